package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisCache(t *testing.T) *RedisCache {
	t.Helper()
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisCache(rdb, "test:sess", time.Minute)
}

func TestRedisPutGet(t *testing.T) {
	ctx := context.Background()
	c := newRedisCache(t)

	snap := testSnapshot("1")
	snap.Permissions = nil
	if err := c.Put(ctx, "client-a", "tok", snap); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := c.Get(ctx, "client-a", "tok")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.UserID != "1" || got.Username != "u-1" {
		t.Fatalf("decoded snapshot mismatch: %+v", got)
	}
}

func TestRedisPartitionIsolation(t *testing.T) {
	ctx := context.Background()
	c := newRedisCache(t)
	c.Put(ctx, "client-a", "tok", testSnapshot("1"))

	if _, err := c.Get(ctx, "client-b", "tok"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-client Get err = %v, want ErrNotFound", err)
	}
}

func TestRedisDeleteToken(t *testing.T) {
	ctx := context.Background()
	c := newRedisCache(t)
	c.Put(ctx, "client-a", "tok", testSnapshot("1"))
	c.Put(ctx, "client-b", "tok", testSnapshot("1"))

	if err := c.DeleteToken(ctx, "tok"); err != nil {
		t.Fatalf("DeleteToken: %v", err)
	}
	for _, clientID := range []string{"client-a", "client-b"} {
		if _, err := c.Get(ctx, clientID, "tok"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("token survived in %s", clientID)
		}
	}
}

func TestRedisUpdateToken(t *testing.T) {
	ctx := context.Background()
	c := newRedisCache(t)
	c.Put(ctx, "client-a", "tok", testSnapshot("1"))

	updated := testSnapshot("1")
	updated.Email = "new@example.com"
	if err := c.UpdateToken(ctx, "tok", updated); err != nil {
		t.Fatalf("UpdateToken: %v", err)
	}
	got, err := c.Get(ctx, "client-a", "tok")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Email != "new@example.com" {
		t.Fatal("snapshot not refreshed")
	}
}

func TestRedisDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	c := newRedisCache(t)
	if err := c.Delete(ctx, "nobody", "ghost"); err != nil {
		t.Fatalf("Delete of absent token: %v", err)
	}
	if err := c.DeleteToken(ctx, "ghost"); err != nil {
		t.Fatalf("DeleteToken of absent token: %v", err)
	}
}

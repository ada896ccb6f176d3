package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testSnapshot(userID string) Snapshot {
	return Snapshot{
		UserID:    userID,
		Username:  "u-" + userID,
		LoginAt:   time.Now(),
		LoginType: LoginTypeNormal,
		Roles:     []string{"user"},
	}
}

func TestMemoryPutGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	snap := testSnapshot("1")
	if err := c.Put(ctx, "client-a", "tok", snap); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := c.Get(ctx, "client-a", "tok")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.UserID != snap.UserID {
		t.Fatalf("got user %q, want %q", got.UserID, snap.UserID)
	}
}

func TestMemoryPartitionIsolation(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	c.Put(ctx, "client-a", "tok", testSnapshot("1"))

	if _, err := c.Get(ctx, "client-b", "tok"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-client Get err = %v, want ErrNotFound", err)
	}

	// Deleting from another client must not touch the owner's entry.
	if err := c.Delete(ctx, "client-b", "tok"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := c.Get(ctx, "client-a", "tok"); err != nil {
		t.Fatalf("owner entry lost after foreign delete: %v", err)
	}
}

func TestMemoryDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	if err := c.Delete(ctx, "nobody", "ghost"); err != nil {
		t.Fatalf("Delete of absent token: %v", err)
	}
}

func TestMemoryDeleteToken(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	c.Put(ctx, "client-a", "tok", testSnapshot("1"))
	c.Put(ctx, "client-b", "tok", testSnapshot("1"))
	c.Put(ctx, "client-b", "other", testSnapshot("2"))

	if err := c.DeleteToken(ctx, "tok"); err != nil {
		t.Fatalf("DeleteToken: %v", err)
	}
	if _, err := c.Get(ctx, "client-a", "tok"); !errors.Is(err, ErrNotFound) {
		t.Fatal("token survived in client-a")
	}
	if _, err := c.Get(ctx, "client-b", "tok"); !errors.Is(err, ErrNotFound) {
		t.Fatal("token survived in client-b")
	}
	if _, err := c.Get(ctx, "client-b", "other"); err != nil {
		t.Fatalf("unrelated token evicted: %v", err)
	}
}

func TestMemoryUpdateToken(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	c.Put(ctx, "client-a", "tok", testSnapshot("1"))
	c.Put(ctx, "client-b", "tok", testSnapshot("1"))

	updated := testSnapshot("1")
	updated.FullName = "New Name"
	if err := c.UpdateToken(ctx, "tok", updated); err != nil {
		t.Fatalf("UpdateToken: %v", err)
	}
	for _, clientID := range []string{"client-a", "client-b"} {
		got, err := c.Get(ctx, clientID, "tok")
		if err != nil {
			t.Fatalf("Get %s: %v", clientID, err)
		}
		if got.FullName != "New Name" {
			t.Fatalf("%s snapshot not refreshed", clientID)
		}
	}
}

func TestMemoryConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			c.Put(ctx, "client-a", "tok", testSnapshot("1"))
			c.Delete(ctx, "client-a", "tok")
		}
	}()
	for i := 0; i < 500; i++ {
		c.Get(ctx, "client-a", "tok")
		c.DeleteToken(ctx, "tok")
	}
	<-done
}

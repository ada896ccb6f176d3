package authcore

import (
	"context"
	"errors"
	"testing"
)

func TestRegister(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(cfg *Config) { cfg.Register.DefaultRole = "user" })

	snap, err := f.m.Register(ctx, RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "secret99",
		FullName: "Alice Doe",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if snap.Username != "alice" || snap.FullName != "Alice Doe" {
		t.Fatalf("bad snapshot: %+v", snap)
	}
	if len(snap.Roles) != 1 || snap.Roles[0] != "user" {
		t.Fatalf("default role not assigned: %v", snap.Roles)
	}

	// fresh account can log in immediately
	if _, err := f.m.Login(ctx, "alice", "secret99", LoginOptions{}); err != nil {
		t.Fatalf("Login after register: %v", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	in := RegisterInput{Username: "alice", Email: "alice@example.com", Password: "secret99"}

	if _, err := f.m.Register(ctx, in); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if _, err := f.m.Register(ctx, in); !errors.Is(err, ErrDuplicateIdentity) {
		t.Fatalf("err = %v, want ErrDuplicateIdentity", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	cases := []RegisterInput{
		{Username: "ab", Email: "a@example.com", Password: "secret99"},        // too short
		{Username: "has space", Email: "a@example.com", Password: "secret99"}, // not alphanumeric
		{Username: "alice", Email: "not-an-email", Password: "secret99"},
		{Username: "alice", Email: "", Password: "secret99"},
	}
	for i, in := range cases {
		if _, err := f.m.Register(ctx, in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d: err = %v, want ErrInvalidInput", i, err)
		}
	}

	short := RegisterInput{Username: "alice", Email: "a@example.com", Password: "abc"}
	if _, err := f.m.Register(ctx, short); !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("err = %v, want ErrPasswordPolicy", err)
	}
}

func TestRegisterComplexityFlags(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(cfg *Config) {
		cfg.Password.RequireUpper = true
		cfg.Password.RequireDigit = true
	})

	in := RegisterInput{Username: "alice", Email: "a@example.com", Password: "alllowercase"}
	if _, err := f.m.Register(ctx, in); !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("err = %v, want ErrPasswordPolicy", err)
	}
	in.Password = "Uppercase1"
	if _, err := f.m.Register(ctx, in); err != nil {
		t.Fatalf("Register with compliant password: %v", err)
	}
}

func TestRegisterDisabled(t *testing.T) {
	f := newFixture(t, func(cfg *Config) { cfg.Register.Enabled = false })
	in := RegisterInput{Username: "alice", Email: "a@example.com", Password: "secret99"}
	if _, err := f.m.Register(context.Background(), in); !errors.Is(err, ErrRegistrationDisabled) {
		t.Fatalf("err = %v, want ErrRegistrationDisabled", err)
	}
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	u := f.seedUser(t, "alice", "oldpass1")
	result := login(t, f, ctx, "alice", "oldpass1", LoginOptions{RememberMe: true})

	if err := f.m.ChangePassword(ctx, u.ID, "wrong", "newpass1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong current err = %v, want ErrInvalidCredentials", err)
	}
	if err := f.m.ChangePassword(ctx, u.ID, "oldpass1", "x"); !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("short new err = %v, want ErrPasswordPolicy", err)
	}

	if err := f.m.ChangePassword(ctx, u.ID, "oldpass1", "newpass1"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	stored := f.store.get(u.ID)
	if stored.SessionToken != "" || stored.RememberToken != "" {
		t.Fatal("tokens not invalidated on password change")
	}
	check, err := f.m.CheckSession(ctx, result.SessionToken, "")
	if err != nil {
		t.Fatalf("CheckSession: %v", err)
	}
	if check.Authenticated {
		t.Fatal("old session survived password change")
	}

	if _, err := f.m.Login(ctx, "alice", "oldpass1", LoginOptions{}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("old password still accepted")
	}
	if _, err := f.m.Login(ctx, "alice", "newpass1", LoginOptions{}); err != nil {
		t.Fatalf("Login with new password: %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	u := f.seedUser(t, "alice", "secret99")
	result := login(t, f, ctx, "alice", "secret99", LoginOptions{})

	name := "Alice Doe"
	phone := "555-0100"
	bio := "keeps the build green"
	snap, err := f.m.UpdateProfile(ctx, u.ID, ProfileUpdate{FullName: &name, Phone: &phone, Bio: &bio})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if snap.FullName != "Alice Doe" || snap.Phone != "555-0100" {
		t.Fatalf("bad snapshot: %+v", snap)
	}
	if snap.Bio != bio {
		t.Fatalf("bio = %q, want %q", snap.Bio, bio)
	}

	// cached session reflects the change without a fresh login
	check, err := f.m.CheckSession(ctx, result.SessionToken, "")
	if err != nil {
		t.Fatalf("CheckSession: %v", err)
	}
	if check.Session.FullName != "Alice Doe" {
		t.Fatal("cached snapshot not refreshed")
	}
}

func TestUpdateProfileEmail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	u := f.seedUser(t, "alice", "secret99")

	bad := "not-an-email"
	if _, err := f.m.UpdateProfile(ctx, u.ID, ProfileUpdate{Email: &bad}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}

	good := "alice.new@example.com"
	snap, err := f.m.UpdateProfile(ctx, u.ID, ProfileUpdate{Email: &good})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if snap.Email != good {
		t.Fatalf("email = %q", snap.Email)
	}
}

func TestGetUserSnapshots(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	u := f.seedUser(t, "alice", "secret99")

	byID, err := f.m.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	byName, err := f.m.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if byID.UserID != byName.UserID {
		t.Fatal("lookups disagree")
	}
	if _, err := f.m.GetUserByID(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestAuditEvents(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Lockout = LockoutConfig{MaxAttempts: 3, Duration: cfg.Lockout.Duration}

	store := newFakeStore()
	sink := NewAuditChannelSink(16)
	m, err := New().
		WithConfig(cfg).
		WithStore(store).
		WithHasher(&spyHasher{}).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	store.add(UserRecord{Username: "alice", Email: "alice@example.com", PasswordDigest: "h:secret99", IsActive: true})

	ctx = WithClientIP(WithClientID(ctx, "browser-a"), "10.0.0.1")
	if _, err := m.Login(ctx, "alice", "secret99", LoginOptions{}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	m.Close() // flush the dispatcher

	event := <-sink.Events()
	if event.Type != AuditLoginSuccess || !event.Success {
		t.Fatalf("event = %+v, want login_success", event)
	}
	if event.ClientID != "browser-a" || event.IP != "10.0.0.1" {
		t.Fatalf("client context not carried: %+v", event)
	}
}

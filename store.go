package authcore

import (
	"context"
	"time"
)

// TokenKind selects which persisted token column a lookup matches.
type TokenKind int

const (
	TokenSession TokenKind = iota
	TokenRemember
)

// UserRecord is the storage view of a user account. Stores return it
// fully hydrated: role names, per-role permission codes, and direct
// permission grants are flattened onto the record so the manager never
// issues follow-up queries.
type UserRecord struct {
	ID             string
	Username       string
	Email          string
	PasswordDigest string

	FullName  string
	Phone     string
	AvatarURL string
	Bio       string

	IsActive    bool
	IsVerified  bool
	IsSuperuser bool

	LoginCount       int
	FailedLoginCount int
	LockedUntil      time.Time // zero means not locked

	SessionToken  string
	RememberToken string

	LastLoginAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Role fields cover the user's active roles only; permissions granted
	// through a deactivated role do not reach the record.
	RoleNames         []string
	RolePermissions   [][]string // permission codes per role, parallel to RoleNames
	DirectPermissions []string
}

// NewUser holds the fields of an account being created.
type NewUser struct {
	Username       string
	Email          string
	PasswordDigest string
	FullName       string
	Roles          []string
}

// UserChanges is a sparse update: nil fields are untouched. Pointer-to-zero
// clears a field (empty token string, zero LockedUntil).
type UserChanges struct {
	PasswordDigest   *string
	LoginCount       *int
	FailedLoginCount *int
	LockedUntil      *time.Time
	SessionToken     *string
	RememberToken    *string
	LastLoginAt      *time.Time
	IsVerified       *bool

	FullName  *string
	Phone     *string
	AvatarURL *string
	Bio       *string
	Email     *string
}

// LoginLogRecord is one persisted login attempt.
type LoginLogRecord struct {
	UserID        string
	Username      string
	LoginAt       time.Time
	IP            string
	UserAgent     string
	Success       bool
	LoginType     string // session.LoginTypeNormal or session.LoginTypeRememberMe
	FailureReason string
}

// CredentialStore is the persistence capability the manager depends on.
// Lookups return ErrUserNotFound for missing rows; all other failures wrap
// ErrStorageUnavailable. See gormstore for the reference implementation.
type CredentialStore interface {
	// FindUserByIdentity matches username or email, case-insensitively.
	FindUserByIdentity(ctx context.Context, identity string) (*UserRecord, error)
	FindUserByID(ctx context.Context, id string) (*UserRecord, error)
	// FindUserByToken matches the persisted session or remember token by
	// exact comparison.
	FindUserByToken(ctx context.Context, kind TokenKind, token string) (*UserRecord, error)

	// InsertUser creates the account and returns the stored record.
	// Username or email collisions return ErrDuplicateIdentity.
	InsertUser(ctx context.Context, user NewUser) (*UserRecord, error)
	// UpdateUser applies a sparse change set to one user row.
	UpdateUser(ctx context.Context, id string, changes UserChanges) error
	// MutateUser runs fn against a freshly loaded record and applies the
	// returned changes in the same transaction. Concurrent mutations of
	// one row serialize; this is the read-modify-write primitive for
	// failure counters and token rotation.
	MutateUser(ctx context.Context, id string, fn func(*UserRecord) (UserChanges, error)) error

	// InsertLoginLog appends one login attempt record.
	InsertLoginLog(ctx context.Context, log LoginLogRecord) error
}
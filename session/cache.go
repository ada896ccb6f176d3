package session

import (
	"context"
	"errors"
)

// DefaultClientID is the partition used when the host supplies no client
// identity. All such callers share one partition.
const DefaultClientID = "default"

// ErrNotFound is returned by Get when the token has no entry in the
// client's partition.
var ErrNotFound = errors.New("session: not found")

// Cache stores login-time snapshots keyed by session token, partitioned by
// client identity. A token stored for one client is invisible to every
// other client; implementations must never let partitions leak.
type Cache interface {
	// Put stores snap under token in the client's partition, replacing any
	// existing entry for that token.
	Put(ctx context.Context, clientID, token string, snap Snapshot) error
	// Get returns the snapshot stored under token in the client's
	// partition, or ErrNotFound.
	Get(ctx context.Context, clientID, token string) (Snapshot, error)
	// Delete removes token from the client's partition. Deleting an absent
	// token is not an error.
	Delete(ctx context.Context, clientID, token string) error
	// DeleteToken removes token from every partition. Used when the token
	// is invalidated server-side (password change, admin revocation).
	DeleteToken(ctx context.Context, token string) error
	// UpdateToken rewrites the snapshot for token in every partition that
	// holds it. Partitions without the token are untouched.
	UpdateToken(ctx context.Context, token string, snap Snapshot) error
}

package authcore

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/webstack/authcore/internal"
	"github.com/webstack/authcore/internal/audit"
	"github.com/webstack/authcore/permission"
	"github.com/webstack/authcore/session"
)

// PasswordHasher produces and verifies password digests. Verify must be
// constant-time for well-formed digests and return false, never an error,
// for malformed ones.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
	NeedsUpgrade(digest string) bool
}

// Manager orchestrates credential verification, session issuance and
// validation, and permission checks over an injected CredentialStore and
// session cache. Construct it with New; a Manager is safe for concurrent
// use.
type Manager struct {
	cfg      Config
	store    CredentialStore
	cache    session.Cache
	hasher   PasswordHasher
	logger   *zap.Logger
	audit    *audit.Dispatcher
	metrics  *Metrics
	validate *validator.Validate

	// injected for tests
	now      func() time.Time
	newToken func() (string, error)
}

// Close flushes the audit dispatcher. The Manager must not be used after
// Close.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	m.audit.Close()
}

// MetricsSnapshot returns a point-in-time copy of the in-process counters.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return m.metrics.Snapshot()
}

// AuditDropped reports how many audit events were discarded due to a full
// buffer.
func (m *Manager) AuditDropped() uint64 {
	if m == nil {
		return 0
	}
	return m.audit.Dropped()
}

// storeCtx bounds a storage call with the configured timeout.
func (m *Manager) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.cfg.Store.Timeout)
}

// commitCtx detaches a write from request cancellation so audit-relevant
// state (failure counters, login logs) is never dropped mid-commit.
func (m *Manager) commitCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), m.cfg.Store.Timeout)
}

func (m *Manager) emit(ctx context.Context, eventType string, user *UserRecord, success bool, reason string) {
	event := audit.Event{
		Timestamp: m.now(),
		Type:      eventType,
		ClientID:  clientIDFromContext(ctx),
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Reason:    reason,
	}
	if user != nil {
		event.UserID = user.ID
		event.Username = user.Username
	}
	m.audit.Emit(ctx, event)
}

func (m *Manager) snapshot(u *UserRecord, loginAt time.Time, loginType string) session.Snapshot {
	roles := make([]string, len(u.RoleNames))
	copy(roles, u.RoleNames)
	return session.Snapshot{
		UserID:      u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FullName:    u.FullName,
		Phone:       u.Phone,
		AvatarURL:   u.AvatarURL,
		Bio:         u.Bio,
		IsVerified:  u.IsVerified,
		IsSuperuser: u.IsSuperuser,
		LoginCount:  u.LoginCount,
		Roles:       roles,
		Permissions: permission.Resolve(u.RolePermissions, u.DirectPermissions),
		LoginAt:     loginAt,
		LoginType:   loginType,
	}
}

// GetUserByID returns a snapshot of the account, or ErrUserNotFound.
func (m *Manager) GetUserByID(ctx context.Context, id string) (session.Snapshot, error) {
	sctx, cancel := m.storeCtx(ctx)
	defer cancel()
	u, err := m.store.FindUserByID(sctx, id)
	if err != nil {
		return session.Snapshot{}, err
	}
	return m.snapshot(u, u.LastLoginAt, session.LoginTypeNormal), nil
}

// GetUserByUsername returns a snapshot of the account, or ErrUserNotFound.
func (m *Manager) GetUserByUsername(ctx context.Context, username string) (session.Snapshot, error) {
	sctx, cancel := m.storeCtx(ctx)
	defer cancel()
	u, err := m.store.FindUserByIdentity(sctx, username)
	if err != nil {
		return session.Snapshot{}, err
	}
	return m.snapshot(u, u.LastLoginAt, session.LoginTypeNormal), nil
}

func (m *Manager) mintToken() (string, error) {
	if m.newToken != nil {
		return m.newToken()
	}
	return internal.NewToken()
}

package authcore

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/webstack/authcore/internal/audit"
	"github.com/webstack/authcore/lockout"
	"github.com/webstack/authcore/session"
)

// LoginOptions modifies a Login call.
type LoginOptions struct {
	// RememberMe mints a long-lived remember token alongside the session
	// token. Ignored when remember-me is disabled in the configuration.
	RememberMe bool
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	Session      session.Snapshot
	SessionToken string
	// RememberToken is set only when remember-me was requested and enabled.
	RememberToken string
}

// Login verifies identity (username or email) and password, enforcing the
// lockout policy. On success it rotates the persisted session token, caches
// a snapshot in the caller's client partition, and appends a login log row.
//
// Unknown identity and wrong password are both ErrInvalidCredentials. A
// locked account returns a LockedError before any password hashing. Wrong
// password against an inactive account is still ErrInvalidCredentials; the
// inactive state is only disclosed after the password matched.
func (m *Manager) Login(ctx context.Context, identity, plaintext string, opts LoginOptions) (*LoginResult, error) {
	if identity == "" || plaintext == "" {
		m.metrics.Inc(MetricLoginFailure)
		return nil, ErrInvalidCredentials
	}

	sctx, cancel := m.storeCtx(ctx)
	u, err := m.store.FindUserByIdentity(sctx, identity)
	cancel()
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			m.metrics.Inc(MetricLoginFailure)
			m.emit(ctx, audit.TypeLoginFailure, nil, false, "unknown_identity")
			return nil, ErrInvalidCredentials
		}
		m.metrics.Inc(MetricStorageError)
		m.logger.Error("login: credential store lookup failed", zap.Error(err))
		m.emit(ctx, audit.TypeStorageError, nil, false, err.Error())
		return nil, ErrInvalidCredentials
	}

	now := m.now()
	state := lockout.State{FailedAttempts: u.FailedLoginCount, LockedUntil: u.LockedUntil}

	// Locked accounts are rejected before the password is hashed, so a
	// flood of attempts against a locked account stays cheap.
	if state.Locked(now) {
		m.metrics.Inc(MetricLoginLocked)
		m.emit(ctx, audit.TypeLoginFailure, u, false, "account_locked")
		m.logAttempt(ctx, u, now, false, session.LoginTypeNormal, "account_locked")
		return nil, lockedErr(state.Remaining(now))
	}

	if !m.hasher.Verify(plaintext, u.PasswordDigest) {
		return nil, m.recordFailure(ctx, u, now)
	}

	if !u.IsActive {
		m.metrics.Inc(MetricLoginFailure)
		m.emit(ctx, audit.TypeLoginFailure, u, false, "account_inactive")
		m.logAttempt(ctx, u, now, false, session.LoginTypeNormal, "account_inactive")
		return nil, ErrAccountInactive
	}

	return m.completeLogin(ctx, u, now, plaintext, opts)
}

// recordFailure commits the failure transition and returns the external
// error: ErrInvalidCredentials, or a LockedError when this attempt tripped
// the threshold.
func (m *Manager) recordFailure(ctx context.Context, u *UserRecord, now time.Time) error {
	policy := m.cfg.lockoutPolicy()
	var next lockout.State

	cctx, cancel := m.commitCtx(ctx)
	err := m.store.MutateUser(cctx, u.ID, func(fresh *UserRecord) (UserChanges, error) {
		state := lockout.State{FailedAttempts: fresh.FailedLoginCount, LockedUntil: fresh.LockedUntil}
		next = policy.Fail(state, now)
		return UserChanges{
			FailedLoginCount: &next.FailedAttempts,
			LockedUntil:      &next.LockedUntil,
		}, nil
	})
	cancel()
	if err != nil {
		m.metrics.Inc(MetricStorageError)
		m.logger.Error("login: failure counter update failed",
			zap.String("user_id", u.ID), zap.Error(err))
	}

	m.metrics.Inc(MetricLoginFailure)
	m.emit(ctx, audit.TypeLoginFailure, u, false, "invalid_password")
	m.logAttempt(ctx, u, now, false, session.LoginTypeNormal, "invalid_password")

	if next.Locked(now) {
		m.metrics.Inc(MetricLoginLocked)
		m.emit(ctx, audit.TypeAccountLocked, u, false, "threshold_reached")
		m.logger.Warn("account locked after repeated failures",
			zap.String("user_id", u.ID),
			zap.Int("attempts", next.FailedAttempts),
			zap.Time("locked_until", next.LockedUntil))
		return lockedErr(next.Remaining(now))
	}
	return ErrInvalidCredentials
}

func (m *Manager) completeLogin(ctx context.Context, u *UserRecord, now time.Time, plaintext string, opts LoginOptions) (*LoginResult, error) {
	sessionToken, err := m.mintToken()
	if err != nil {
		return nil, err
	}
	rememberToken := ""
	if opts.RememberMe && m.cfg.RememberMe.Enabled {
		if rememberToken, err = m.mintToken(); err != nil {
			return nil, err
		}
	}

	var upgraded *string
	if m.cfg.Password.UpgradeOnLogin && m.hasher.NeedsUpgrade(u.PasswordDigest) {
		if digest, herr := m.hasher.Hash(plaintext); herr == nil {
			upgraded = &digest
		} else {
			m.logger.Warn("login: digest upgrade failed",
				zap.String("user_id", u.ID), zap.Error(herr))
		}
	}

	zero := 0
	clearLock := time.Time{}
	var loginCount int
	var previousToken string
	cctx, cancel := m.commitCtx(ctx)
	err = m.store.MutateUser(cctx, u.ID, func(fresh *UserRecord) (UserChanges, error) {
		loginCount = fresh.LoginCount + 1
		previousToken = fresh.SessionToken
		changes := UserChanges{
			LoginCount:       &loginCount,
			FailedLoginCount: &zero,
			LockedUntil:      &clearLock,
			SessionToken:     &sessionToken,
			LastLoginAt:      &now,
			PasswordDigest:   upgraded,
		}
		if rememberToken != "" {
			changes.RememberToken = &rememberToken
		}
		return changes, nil
	})
	cancel()
	if err != nil {
		m.metrics.Inc(MetricStorageError)
		m.logger.Error("login: session token commit failed",
			zap.String("user_id", u.ID), zap.Error(err))
		return nil, ErrInvalidCredentials
	}

	m.evictReplacedToken(ctx, previousToken, sessionToken)

	u.LoginCount = loginCount
	snap := m.snapshot(u, now, session.LoginTypeNormal)
	clientID := clientIDFromContext(ctx)
	if cerr := m.cache.Put(ctx, clientID, sessionToken, snap); cerr != nil {
		// Cache failure degrades to storage-backed validation only.
		m.logger.Warn("login: session cache put failed", zap.Error(cerr))
	}

	m.logAttempt(ctx, u, now, true, session.LoginTypeNormal, "")
	m.metrics.Inc(MetricLoginSuccess)
	m.emit(ctx, audit.TypeLoginSuccess, u, true, "")
	m.logger.Info("login succeeded",
		zap.String("user_id", u.ID), zap.String("username", u.Username))

	return &LoginResult{
		Session:       snap,
		SessionToken:  sessionToken,
		RememberToken: rememberToken,
	}, nil
}

// logAttempt appends a login log row, detached from request cancellation.
// Log failures are reported but never surfaced to the caller.
func (m *Manager) logAttempt(ctx context.Context, u *UserRecord, at time.Time, success bool, loginType, reason string) {
	cctx, cancel := m.commitCtx(ctx)
	defer cancel()
	err := m.store.InsertLoginLog(cctx, LoginLogRecord{
		UserID:        u.ID,
		Username:      u.Username,
		LoginAt:       at,
		IP:            clientIPFromContext(ctx),
		UserAgent:     userAgentFromContext(ctx),
		Success:       success,
		LoginType:     loginType,
		FailureReason: reason,
	})
	if err != nil {
		m.logger.Warn("login log append failed",
			zap.String("user_id", u.ID), zap.Error(err))
	}
}

// evictReplacedToken drops an overwritten session token from every cache
// partition. The persisted row no longer matches it, so any cached copy
// would keep authenticating until eviction.
func (m *Manager) evictReplacedToken(ctx context.Context, previous, current string) {
	if previous == "" || previous == current {
		return
	}
	if err := m.cache.DeleteToken(ctx, previous); err != nil {
		m.logger.Warn("replaced session token eviction failed", zap.Error(err))
	}
}

func lockedErr(remaining time.Duration) error {
	secs := int((remaining + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return &LockedError{RemainingSeconds: secs}
}

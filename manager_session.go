package authcore

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/webstack/authcore/internal/audit"
	"github.com/webstack/authcore/session"
)

// CheckResult is the outcome of session validation. When SessionToken
// differs from the token the caller presented, a fresh token was minted
// from a remember token and the host must store the new value. The Clear
// flags tell the host to drop stale browser-side tokens.
type CheckResult struct {
	Authenticated bool
	Session       session.Snapshot
	SessionToken  string

	ClearSessionToken  bool
	ClearRememberToken bool
}

// CheckSession resolves the caller's authentication state through four
// layers: a snapshot already bound to ctx, the client's cache partition,
// the persisted session token, and finally the remember token (which mints
// and persists a fresh session token). Exhausting all four yields an
// anonymous result, not an error.
//
// Storage outage during token verification degrades to anonymous unless
// Config.Session.FailClosedOnStorageError is set, in which case it returns
// ErrStorageUnavailable.
func (m *Manager) CheckSession(ctx context.Context, sessionToken, rememberToken string) (CheckResult, error) {
	if snap, ok := SessionFromContext(ctx); ok {
		return CheckResult{Authenticated: true, Session: snap, SessionToken: sessionToken}, nil
	}

	clientID := clientIDFromContext(ctx)

	if sessionToken != "" {
		snap, err := m.cache.Get(ctx, clientID, sessionToken)
		if err == nil {
			m.metrics.Inc(MetricSessionCacheHit)
			return CheckResult{Authenticated: true, Session: snap, SessionToken: sessionToken}, nil
		}
		if !errors.Is(err, session.ErrNotFound) {
			m.logger.Warn("session cache get failed", zap.Error(err))
		}
		m.metrics.Inc(MetricSessionCacheMiss)

		result, done, err := m.restoreFromStorage(ctx, clientID, sessionToken)
		if done || err != nil {
			return result, err
		}
		// Persisted token is gone or the account went inactive; the
		// browser copy is stale either way.
	}

	if rememberToken != "" && m.cfg.RememberMe.Enabled {
		result, err := m.loginFromRememberToken(ctx, clientID, sessionToken, rememberToken)
		return result, err
	}

	return CheckResult{ClearSessionToken: sessionToken != ""}, nil
}

// restoreFromStorage is waterfall layer 3: re-validate the session token
// against the persisted copy on the user row. done is false when the
// caller should fall through to the remember-token layer.
func (m *Manager) restoreFromStorage(ctx context.Context, clientID, sessionToken string) (CheckResult, bool, error) {
	sctx, cancel := m.storeCtx(ctx)
	u, err := m.store.FindUserByToken(sctx, TokenSession, sessionToken)
	cancel()
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return CheckResult{}, false, nil
		}
		return m.storageOutage(ctx, err)
	}
	if !u.IsActive {
		return CheckResult{ClearSessionToken: true, ClearRememberToken: true}, true, nil
	}

	snap := m.snapshot(u, u.LastLoginAt, session.LoginTypeNormal)
	if cerr := m.cache.Put(ctx, clientID, sessionToken, snap); cerr != nil {
		m.logger.Warn("session cache put failed", zap.Error(cerr))
	}

	m.metrics.Inc(MetricSessionRestored)
	m.emit(ctx, audit.TypeSessionRestored, u, true, "")
	m.logger.Info("session restored from storage",
		zap.String("user_id", u.ID), zap.String("client_id", clientID))

	return CheckResult{Authenticated: true, Session: snap, SessionToken: sessionToken}, true, nil
}

// loginFromRememberToken is waterfall layer 4: a valid remember token mints
// and persists a fresh session token. The remember token itself is left in
// place; rotating it would invalidate the user's other remembered clients.
func (m *Manager) loginFromRememberToken(ctx context.Context, clientID, staleSessionToken, rememberToken string) (CheckResult, error) {
	anonymous := CheckResult{
		ClearSessionToken:  staleSessionToken != "",
		ClearRememberToken: true,
	}

	sctx, cancel := m.storeCtx(ctx)
	u, err := m.store.FindUserByToken(sctx, TokenRemember, rememberToken)
	cancel()
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return anonymous, nil
		}
		result, _, oerr := m.storageOutage(ctx, err)
		return result, oerr
	}
	if !u.IsActive {
		return anonymous, nil
	}

	newToken, err := m.mintToken()
	if err != nil {
		return CheckResult{}, err
	}

	now := m.now()
	var loginCount int
	var previousToken string
	cctx, cancel := m.commitCtx(ctx)
	err = m.store.MutateUser(cctx, u.ID, func(fresh *UserRecord) (UserChanges, error) {
		loginCount = fresh.LoginCount + 1
		previousToken = fresh.SessionToken
		return UserChanges{
			LoginCount:   &loginCount,
			SessionToken: &newToken,
			LastLoginAt:  &now,
		}, nil
	})
	cancel()
	if err != nil {
		result, _, oerr := m.storageOutage(ctx, err)
		return result, oerr
	}

	m.evictReplacedToken(ctx, previousToken, newToken)

	u.LoginCount = loginCount
	snap := m.snapshot(u, now, session.LoginTypeRememberMe)
	if cerr := m.cache.Put(ctx, clientID, newToken, snap); cerr != nil {
		m.logger.Warn("session cache put failed", zap.Error(cerr))
	}

	m.logAttempt(ctx, u, now, true, session.LoginTypeRememberMe, "")
	m.metrics.Inc(MetricRememberMeLogin)
	m.emit(ctx, audit.TypeRememberLogin, u, true, "")
	m.logger.Info("remember-me login",
		zap.String("user_id", u.ID), zap.String("client_id", clientID))

	return CheckResult{
		Authenticated:     true,
		Session:           snap,
		SessionToken:      newToken,
		ClearSessionToken: staleSessionToken != "" && staleSessionToken != newToken,
	}, nil
}

func (m *Manager) storageOutage(ctx context.Context, err error) (CheckResult, bool, error) {
	m.metrics.Inc(MetricStorageError)
	m.logger.Error("session validation: credential store unavailable", zap.Error(err))
	m.emit(ctx, audit.TypeStorageError, nil, false, err.Error())
	if m.cfg.Session.FailClosedOnStorageError {
		return CheckResult{}, true, ErrStorageUnavailable
	}
	return CheckResult{}, true, nil
}

// Logout evicts the token from the caller's cache partition and clears the
// persisted session and remember tokens. Logging out an unknown token is
// not an error.
func (m *Manager) Logout(ctx context.Context, sessionToken string) error {
	if sessionToken == "" {
		return nil
	}

	// Every partition may hold the token (storage restore warms partitions
	// other than the one that logged in), so eviction is token-wide.
	if err := m.cache.DeleteToken(ctx, sessionToken); err != nil {
		m.logger.Warn("logout: cache eviction failed", zap.Error(err))
	}

	sctx, cancel := m.storeCtx(ctx)
	u, err := m.store.FindUserByToken(sctx, TokenSession, sessionToken)
	cancel()
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil
		}
		return err
	}

	empty := ""
	cctx, cancel := m.commitCtx(ctx)
	err = m.store.UpdateUser(cctx, u.ID, UserChanges{
		SessionToken:  &empty,
		RememberToken: &empty,
	})
	cancel()
	if err != nil {
		return err
	}

	m.metrics.Inc(MetricLogout)
	m.emit(ctx, audit.TypeLogout, u, true, "")
	m.logger.Info("logout", zap.String("user_id", u.ID))
	return nil
}

// IsAuthenticated reports whether the caller resolves to a live session.
func (m *Manager) IsAuthenticated(ctx context.Context, sessionToken, rememberToken string) bool {
	result, err := m.CheckSession(ctx, sessionToken, rememberToken)
	return err == nil && result.Authenticated
}

// HasRole reports whether the caller's session carries the named role.
func (m *Manager) HasRole(ctx context.Context, sessionToken, role string) bool {
	result, err := m.CheckSession(ctx, sessionToken, "")
	return err == nil && result.Authenticated && result.Session.HasRole(role)
}

// HasPermission reports whether the caller's session grants the permission
// code.
func (m *Manager) HasPermission(ctx context.Context, sessionToken, code string) bool {
	result, err := m.CheckSession(ctx, sessionToken, "")
	return err == nil && result.Authenticated && result.Session.HasPermission(code)
}

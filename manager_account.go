package authcore

import (
	"context"
	"errors"
	"unicode"

	"go.uber.org/zap"

	"github.com/webstack/authcore/internal/audit"
	"github.com/webstack/authcore/session"
)

// RegisterInput holds the fields of a self-registration request.
type RegisterInput struct {
	Username string `validate:"required,min=3,max=50,alphanum"`
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required"`
	FullName string `validate:"max=100"`
}

// ProfileUpdate is a sparse profile change: nil fields are untouched.
// Changing Email revalidates uniqueness against the store.
type ProfileUpdate struct {
	FullName  *string
	Phone     *string
	AvatarURL *string
	Bio       *string
	Email     *string
}

// Register creates an account, assigning the configured default role when
// one is set. Username/email collisions return ErrDuplicateIdentity; field
// validation failures return ErrInvalidInput; policy violations return
// ErrPasswordPolicy.
func (m *Manager) Register(ctx context.Context, in RegisterInput) (session.Snapshot, error) {
	if !m.cfg.Register.Enabled {
		return session.Snapshot{}, ErrRegistrationDisabled
	}
	if err := m.validate.Struct(in); err != nil {
		return session.Snapshot{}, ErrInvalidInput
	}
	if err := m.checkPasswordPolicy(in.Password); err != nil {
		return session.Snapshot{}, err
	}

	digest, err := m.hasher.Hash(in.Password)
	if err != nil {
		return session.Snapshot{}, err
	}

	user := NewUser{
		Username:       in.Username,
		Email:          in.Email,
		PasswordDigest: digest,
		FullName:       in.FullName,
	}
	if m.cfg.Register.DefaultRole != "" {
		user.Roles = []string{m.cfg.Register.DefaultRole}
	}

	sctx, cancel := m.storeCtx(ctx)
	u, err := m.store.InsertUser(sctx, user)
	cancel()
	if err != nil {
		if errors.Is(err, ErrDuplicateIdentity) {
			return session.Snapshot{}, ErrDuplicateIdentity
		}
		m.metrics.Inc(MetricStorageError)
		m.logger.Error("register: insert failed", zap.Error(err))
		return session.Snapshot{}, err
	}

	m.metrics.Inc(MetricRegistration)
	m.emit(ctx, audit.TypeRegister, u, true, "")
	m.logger.Info("account registered",
		zap.String("user_id", u.ID), zap.String("username", u.Username))

	return m.snapshot(u, u.CreatedAt, session.LoginTypeNormal), nil
}

// ChangePassword verifies the current password, commits the new digest, and
// invalidates the persisted session and remember tokens plus every cached
// session for the old token. The caller must log in again.
func (m *Manager) ChangePassword(ctx context.Context, userID, current, next string) error {
	if err := m.checkPasswordPolicy(next); err != nil {
		return err
	}

	sctx, cancel := m.storeCtx(ctx)
	u, err := m.store.FindUserByID(sctx, userID)
	cancel()
	if err != nil {
		return err
	}
	if !m.hasher.Verify(current, u.PasswordDigest) {
		m.emit(ctx, audit.TypePasswordChange, u, false, "invalid_current_password")
		return ErrInvalidCredentials
	}

	digest, err := m.hasher.Hash(next)
	if err != nil {
		return err
	}

	empty := ""
	cctx, cancel := m.commitCtx(ctx)
	err = m.store.UpdateUser(cctx, u.ID, UserChanges{
		PasswordDigest: &digest,
		SessionToken:   &empty,
		RememberToken:  &empty,
	})
	cancel()
	if err != nil {
		return err
	}

	if u.SessionToken != "" {
		if cerr := m.cache.DeleteToken(ctx, u.SessionToken); cerr != nil {
			m.logger.Warn("password change: cache eviction failed",
				zap.String("user_id", u.ID), zap.Error(cerr))
		}
	}

	m.metrics.Inc(MetricPasswordChange)
	m.emit(ctx, audit.TypePasswordChange, u, true, "")
	m.logger.Info("password changed", zap.String("user_id", u.ID))
	return nil
}

// UpdateProfile applies a sparse profile change and refreshes every cached
// snapshot for the user's current session token.
func (m *Manager) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (session.Snapshot, error) {
	if update.Email != nil {
		if err := m.validate.Var(*update.Email, "required,email,max=254"); err != nil {
			return session.Snapshot{}, ErrInvalidInput
		}
	}

	cctx, cancel := m.commitCtx(ctx)
	err := m.store.UpdateUser(cctx, userID, UserChanges{
		FullName:  update.FullName,
		Phone:     update.Phone,
		AvatarURL: update.AvatarURL,
		Bio:       update.Bio,
		Email:     update.Email,
	})
	cancel()
	if err != nil {
		return session.Snapshot{}, err
	}

	sctx, cancel := m.storeCtx(ctx)
	u, err := m.store.FindUserByID(sctx, userID)
	cancel()
	if err != nil {
		return session.Snapshot{}, err
	}

	snap := m.snapshot(u, u.LastLoginAt, session.LoginTypeNormal)
	if u.SessionToken != "" {
		if cerr := m.cache.UpdateToken(ctx, u.SessionToken, snap); cerr != nil {
			m.logger.Warn("profile update: cache refresh failed",
				zap.String("user_id", u.ID), zap.Error(cerr))
		}
	}

	m.metrics.Inc(MetricProfileUpdate)
	m.emit(ctx, audit.TypeProfileUpdate, u, true, "")
	return snap, nil
}

// checkPasswordPolicy enforces the configured length bounds and character
// class requirements.
func (m *Manager) checkPasswordPolicy(plaintext string) error {
	p := m.cfg.Password
	if len(plaintext) < p.MinLength || len(plaintext) > p.MaxLength {
		return ErrPasswordPolicy
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range plaintext {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if p.RequireUpper && !hasUpper {
		return ErrPasswordPolicy
	}
	if p.RequireLower && !hasLower {
		return ErrPasswordPolicy
	}
	if p.RequireDigit && !hasDigit {
		return ErrPasswordPolicy
	}
	return nil
}

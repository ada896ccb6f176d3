package authcore

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput indicates a malformed username, email, or password
	// rejected before any storage access.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicateIdentity indicates a username or email collision during
	// registration or a profile email change.
	ErrDuplicateIdentity = errors.New("username or email already exists")
	// ErrInvalidCredentials covers both unknown identity and wrong password.
	// The two cases are intentionally indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked indicates the account is inside its lockout window.
	// Login returns a LockedError wrapping this sentinel.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountInactive indicates the account exists and the credentials
	// matched, but the account is disabled.
	ErrAccountInactive = errors.New("account inactive")
	// ErrUserNotFound is returned by CredentialStore lookups when no row
	// matches. The manager never forwards it to login callers.
	ErrUserNotFound = errors.New("user not found")
	// ErrStorageUnavailable wraps storage backend failures. Login maps it to
	// ErrInvalidCredentials externally; CheckSession maps it to an anonymous
	// result unless fail-closed is configured.
	ErrStorageUnavailable = errors.New("credential storage unavailable")
	// ErrPasswordPolicy indicates the password violates the configured policy.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrPermissionDenied is for hosts gating handlers on HasPermission.
	// The manager itself never returns it.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrRegistrationDisabled indicates self-registration is turned off.
	ErrRegistrationDisabled = errors.New("registration disabled")
	// ErrManagerNotReady indicates a Manager was built without a required
	// dependency.
	ErrManagerNotReady = errors.New("auth manager not initialized")
)

// LockedError reports how long the lockout window has left. It unwraps to
// ErrAccountLocked so callers can match with errors.Is.
type LockedError struct {
	RemainingSeconds int
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked, retry in %ds", e.RemainingSeconds)
}

func (e *LockedError) Unwrap() error {
	return ErrAccountLocked
}

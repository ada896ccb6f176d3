// Package session holds the session snapshot model and the per-client
// session caches.
package session

import (
	"time"

	"github.com/webstack/authcore/permission"
)

// Login types recorded on snapshots and login logs.
const (
	LoginTypeNormal     = "normal"
	LoginTypeRememberMe = "remember_me"
)

// Snapshot is the immutable view of an authenticated user handed across the
// API boundary. It is a value copy of storage state at login or validation
// time; callers must not mutate its slices or set.
type Snapshot struct {
	UserID      string         `json:"user_id"`
	Username    string         `json:"username"`
	Email       string         `json:"email"`
	FullName    string         `json:"full_name,omitempty"`
	Phone       string         `json:"phone,omitempty"`
	AvatarURL   string         `json:"avatar_url,omitempty"`
	Bio         string         `json:"bio,omitempty"`
	IsVerified  bool           `json:"is_verified"`
	IsSuperuser bool           `json:"is_superuser"`
	LoginCount  int            `json:"login_count"`
	Roles       []string       `json:"roles"`
	Permissions permission.Set `json:"permissions"`
	LoginAt     time.Time      `json:"login_at"`
	LoginType   string         `json:"login_type"`
}

// DisplayName returns the full name when set, otherwise the username.
func (s Snapshot) DisplayName() string {
	if s.FullName != "" {
		return s.FullName
	}
	return s.Username
}

// HasRole reports whether the snapshot carries the named role.
// Superusers implicitly hold every role.
func (s Snapshot) HasRole(role string) bool {
	if s.IsSuperuser {
		return true
	}
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasPermission reports whether the snapshot grants the permission code.
func (s Snapshot) HasPermission(code string) bool {
	return permission.Allowed(s.IsSuperuser, s.Permissions, code)
}

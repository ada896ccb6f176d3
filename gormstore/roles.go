package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/webstack/authcore"
)

// Default roles and the seeded permission catalog.
var (
	defaultRoles = []Role{
		{Name: "admin", DisplayName: "Administrator", Description: "Full system access", IsSystem: true, IsActive: true},
		{Name: "user", DisplayName: "User", Description: "Regular user", IsSystem: true, IsActive: true},
	}

	defaultPermissions = []Permission{
		{Code: "user.view", DisplayName: "View users"},
		{Code: "user.create", DisplayName: "Create users"},
		{Code: "user.edit", DisplayName: "Edit users"},
		{Code: "user.delete", DisplayName: "Delete users"},
		{Code: "role.view", DisplayName: "View roles"},
		{Code: "role.manage", DisplayName: "Manage roles and grants"},
		{Code: "system.config", DisplayName: "Change system configuration"},
		{Code: "system.logs", DisplayName: "Read system logs"},
	}

	// admin gets the full catalog; user gets read-only user access.
	defaultRoleGrants = map[string][]string{
		"admin": {"user.view", "user.create", "user.edit", "user.delete",
			"role.view", "role.manage", "system.config", "system.logs"},
		"user": {"user.view"},
	}
)

// seedDefaults inserts the default roles and permission catalog. Existing
// rows are left untouched, so re-opening a store is idempotent.
func (s *Store) seedDefaults() error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, p := range defaultPermissions {
			p.Category = permissionCategory(p.Code)
			var perm Permission
			if err := tx.Where(Permission{Code: p.Code}).Attrs(p).FirstOrCreate(&perm).Error; err != nil {
				return fmt.Errorf("gormstore: seed permission %s: %w", p.Code, err)
			}
		}
		for _, r := range defaultRoles {
			var role Role
			if err := tx.Where(Role{Name: r.Name}).Attrs(r).FirstOrCreate(&role).Error; err != nil {
				return fmt.Errorf("gormstore: seed role %s: %w", r.Name, err)
			}
			var perms []Permission
			if err := tx.Where("code IN ?", defaultRoleGrants[r.Name]).Find(&perms).Error; err != nil {
				return err
			}
			if err := tx.Model(&role).Association("Permissions").Replace(perms); err != nil {
				return fmt.Errorf("gormstore: grant role %s: %w", r.Name, err)
			}
		}
		return nil
	})
}

// permissionCategory derives the grouping from the code prefix:
// "user.view" belongs to "user".
func permissionCategory(code string) string {
	if i := strings.IndexByte(code, '.'); i > 0 {
		return code[:i]
	}
	return code
}

// EnsureRole creates the role if it does not exist and returns it.
func (s *Store) EnsureRole(ctx context.Context, name, description string) (*Role, error) {
	var role Role
	err := s.db.WithContext(ctx).
		Where(Role{Name: name}).
		Attrs(Role{Description: description, IsActive: true}).
		FirstOrCreate(&role).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", authcore.ErrStorageUnavailable, err)
	}
	return &role, nil
}

// SetRoleActive toggles a role's active flag. Deactivating a role removes
// its permissions from every holder on their next record load; system
// roles cannot be deactivated.
func (s *Store) SetRoleActive(ctx context.Context, name string, active bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var role Role
		if err := tx.Where("name = ?", name).First(&role).Error; err != nil {
			return fmt.Errorf("gormstore: role %s: %w", name, err)
		}
		if role.IsSystem && !active {
			return ErrSystemRole
		}
		return tx.Model(&role).Update("is_active", active).Error
	})
}

// DeleteRole removes a role and its grants. System roles are protected.
func (s *Store) DeleteRole(ctx context.Context, name string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var role Role
		if err := tx.Where("name = ?", name).First(&role).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if role.IsSystem {
			return ErrSystemRole
		}
		if err := tx.Model(&role).Association("Permissions").Clear(); err != nil {
			return err
		}
		return tx.Delete(&role).Error
	})
}

// AssignRole adds the named role to the user.
func (s *Store) AssignRole(ctx context.Context, userID, roleName string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user User
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return authcore.ErrUserNotFound
			}
			return err
		}
		var role Role
		if err := tx.Where("name = ?", roleName).First(&role).Error; err != nil {
			return fmt.Errorf("gormstore: role %s: %w", roleName, err)
		}
		return tx.Model(&user).Association("Roles").Append(&role)
	})
}

// RevokeRole removes the named role from the user.
func (s *Store) RevokeRole(ctx context.Context, userID, roleName string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user User
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return authcore.ErrUserNotFound
			}
			return err
		}
		var role Role
		if err := tx.Where("name = ?", roleName).First(&role).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		return tx.Model(&user).Association("Roles").Delete(&role)
	})
}

// GrantPermission adds a direct permission grant to the user, creating the
// permission row if it is new.
func (s *Store) GrantPermission(ctx context.Context, userID, code string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user User
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return authcore.ErrUserNotFound
			}
			return err
		}
		var perm Permission
		if err := tx.Where(Permission{Code: code}).FirstOrCreate(&perm).Error; err != nil {
			return err
		}
		return tx.Model(&user).Association("DirectPermissions").Append(&perm)
	})
}

// SetSuperuser toggles the superuser flag.
func (s *Store) SetSuperuser(ctx context.Context, userID string, superuser bool) error {
	result := s.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", userID).
		Update("is_superuser", superuser)
	if result.Error != nil {
		return fmt.Errorf("%w: %v", authcore.ErrStorageUnavailable, result.Error)
	}
	if result.RowsAffected == 0 {
		return authcore.ErrUserNotFound
	}
	return nil
}

// SetVerified toggles the email-verified flag.
func (s *Store) SetVerified(ctx context.Context, userID string, verified bool) error {
	result := s.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", userID).
		Update("is_verified", verified)
	if result.Error != nil {
		return fmt.Errorf("%w: %v", authcore.ErrStorageUnavailable, result.Error)
	}
	if result.RowsAffected == 0 {
		return authcore.ErrUserNotFound
	}
	return nil
}

// SetActive toggles the active flag. Deactivation takes effect on the next
// storage-backed session validation.
func (s *Store) SetActive(ctx context.Context, userID string, active bool) error {
	result := s.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", userID).
		Update("is_active", active)
	if result.Error != nil {
		return fmt.Errorf("%w: %v", authcore.ErrStorageUnavailable, result.Error)
	}
	if result.RowsAffected == 0 {
		return authcore.ErrUserNotFound
	}
	return nil
}

// RecentLoginLogs returns the newest login attempts for a user.
func (s *Store) RecentLoginLogs(ctx context.Context, userID string, limit int) ([]LoginLog, error) {
	if limit <= 0 {
		limit = 20
	}
	var logs []LoginLog
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("login_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", authcore.ErrStorageUnavailable, err)
	}
	return logs, nil
}

package gormstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/webstack/authcore"
)

// ErrSystemRole is returned when a caller tries to delete or deactivate a
// system role.
var ErrSystemRole = errors.New("gormstore: system roles cannot be removed")

// Store implements authcore.CredentialStore over a GORM database.
type Store struct {
	db *gorm.DB
}

// Open connects to the SQLite database at path, migrates the schema, and
// seeds the default roles and permission catalog.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("gormstore: open %s: %w", path, err)
	}
	return New(db)
}

// New wraps an existing GORM handle, migrating and seeding as needed. The
// handle must have been opened with TranslateError enabled so duplicate
// keys map to gorm.ErrDuplicatedKey.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&User{}, &Role{}, &Permission{}, &LoginLog{}); err != nil {
		return nil, fmt.Errorf("gormstore: migrate: %w", err)
	}
	s := &Store{db: db}
	if err := s.seedDefaults(); err != nil {
		return nil, err
	}
	return s, nil
}

// DB exposes the underlying handle for host-level queries.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) userQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Roles.Permissions").
		Preload("DirectPermissions")
}

func (s *Store) FindUserByIdentity(ctx context.Context, identity string) (*authcore.UserRecord, error) {
	var u User
	err := s.userQuery(ctx).
		Where("lower(username) = lower(?) OR lower(email) = lower(?)", identity, identity).
		First(&u).Error
	return s.toRecord(&u, err)
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*authcore.UserRecord, error) {
	var u User
	err := s.userQuery(ctx).Where("id = ?", id).First(&u).Error
	return s.toRecord(&u, err)
}

func (s *Store) FindUserByToken(ctx context.Context, kind authcore.TokenKind, token string) (*authcore.UserRecord, error) {
	column := "session_token"
	if kind == authcore.TokenRemember {
		column = "remember_token"
	}
	var u User
	err := s.userQuery(ctx).Where(column+" = ?", token).First(&u).Error
	return s.toRecord(&u, err)
}

func (s *Store) InsertUser(ctx context.Context, user authcore.NewUser) (*authcore.UserRecord, error) {
	row := User{
		Username:       user.Username,
		Email:          user.Email,
		PasswordDigest: user.PasswordDigest,
		FullName:       user.FullName,
		IsActive:       true,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(user.Roles) > 0 {
			var roles []Role
			if err := tx.Where("name IN ?", user.Roles).Find(&roles).Error; err != nil {
				return err
			}
			if len(roles) != len(user.Roles) {
				return fmt.Errorf("gormstore: unknown role in %v", user.Roles)
			}
			row.Roles = roles
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, authcore.ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("%w: %v", authcore.ErrStorageUnavailable, err)
	}
	return s.FindUserByID(ctx, row.ID)
}

func (s *Store) UpdateUser(ctx context.Context, id string, changes authcore.UserChanges) error {
	updates := changeColumns(changes)
	if len(updates) == 0 {
		return nil
	}
	result := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return authcore.ErrDuplicateIdentity
		}
		return fmt.Errorf("%w: %v", authcore.ErrStorageUnavailable, result.Error)
	}
	if result.RowsAffected == 0 {
		return authcore.ErrUserNotFound
	}
	return nil
}

func (s *Store) MutateUser(ctx context.Context, id string, fn func(*authcore.UserRecord) (authcore.UserChanges, error)) error {
	var fnErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u User
		if err := tx.Preload("Roles.Permissions").Preload("DirectPermissions").
			Where("id = ?", id).First(&u).Error; err != nil {
			return err
		}
		record, err := s.toRecord(&u, nil)
		if err != nil {
			return err
		}
		changes, err := fn(record)
		if err != nil {
			fnErr = err
			return err
		}
		updates := changeColumns(changes)
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&User{}).Where("id = ?", id).Updates(updates).Error
	})
	if err != nil {
		if fnErr != nil {
			return fnErr
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return authcore.ErrUserNotFound
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return authcore.ErrDuplicateIdentity
		}
		return fmt.Errorf("%w: %v", authcore.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *Store) InsertLoginLog(ctx context.Context, log authcore.LoginLogRecord) error {
	row := LoginLog{
		UserID:        log.UserID,
		Username:      log.Username,
		LoginAt:       log.LoginAt,
		IP:            log.IP,
		UserAgent:     log.UserAgent,
		Success:       log.Success,
		LoginType:     log.LoginType,
		FailureReason: log.FailureReason,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("%w: %v", authcore.ErrStorageUnavailable, err)
	}
	return nil
}

// changeColumns maps a sparse change set onto gorm column updates.
// Pointer-to-zero values clear the column to NULL where the schema uses a
// nullable column (tokens, lock timestamp).
func changeColumns(changes authcore.UserChanges) map[string]any {
	updates := make(map[string]any)
	if changes.PasswordDigest != nil {
		updates["password_digest"] = *changes.PasswordDigest
	}
	if changes.LoginCount != nil {
		updates["login_count"] = *changes.LoginCount
	}
	if changes.IsVerified != nil {
		updates["is_verified"] = *changes.IsVerified
	}
	if changes.FailedLoginCount != nil {
		updates["failed_login_count"] = *changes.FailedLoginCount
	}
	if changes.LockedUntil != nil {
		if changes.LockedUntil.IsZero() {
			updates["locked_until"] = nil
		} else {
			updates["locked_until"] = *changes.LockedUntil
		}
	}
	if changes.SessionToken != nil {
		updates["session_token"] = nullIfEmpty(*changes.SessionToken)
	}
	if changes.RememberToken != nil {
		updates["remember_token"] = nullIfEmpty(*changes.RememberToken)
	}
	if changes.LastLoginAt != nil {
		updates["last_login_at"] = *changes.LastLoginAt
	}
	if changes.FullName != nil {
		updates["full_name"] = *changes.FullName
	}
	if changes.Phone != nil {
		updates["phone"] = *changes.Phone
	}
	if changes.AvatarURL != nil {
		updates["avatar_url"] = *changes.AvatarURL
	}
	if changes.Bio != nil {
		updates["bio"] = *changes.Bio
	}
	if changes.Email != nil {
		updates["email"] = *changes.Email
	}
	return updates
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (s *Store) toRecord(u *User, err error) (*authcore.UserRecord, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authcore.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", authcore.ErrStorageUnavailable, err)
	}

	record := &authcore.UserRecord{
		ID:               u.ID,
		Username:         u.Username,
		Email:            u.Email,
		PasswordDigest:   u.PasswordDigest,
		FullName:         u.FullName,
		Phone:            u.Phone,
		AvatarURL:        u.AvatarURL,
		Bio:              u.Bio,
		IsActive:         u.IsActive,
		IsVerified:       u.IsVerified,
		IsSuperuser:      u.IsSuperuser,
		LoginCount:       u.LoginCount,
		FailedLoginCount: u.FailedLoginCount,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
	if u.LockedUntil != nil {
		record.LockedUntil = *u.LockedUntil
	}
	if u.SessionToken != nil {
		record.SessionToken = *u.SessionToken
	}
	if u.RememberToken != nil {
		record.RememberToken = *u.RememberToken
	}
	if u.LastLoginAt != nil {
		record.LastLoginAt = *u.LastLoginAt
	}

	// Deactivated roles contribute neither their name nor their grants.
	record.RoleNames = make([]string, 0, len(u.Roles))
	record.RolePermissions = make([][]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		if !role.IsActive {
			continue
		}
		codes := make([]string, len(role.Permissions))
		for j, p := range role.Permissions {
			codes[j] = p.Code
		}
		record.RoleNames = append(record.RoleNames, role.Name)
		record.RolePermissions = append(record.RolePermissions, codes)
	}
	record.DirectPermissions = make([]string, len(u.DirectPermissions))
	for i, p := range u.DirectPermissions {
		record.DirectPermissions[i] = p.Code
	}
	return record, nil
}

var _ authcore.CredentialStore = (*Store)(nil)

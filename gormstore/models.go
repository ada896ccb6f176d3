// Package gormstore is the reference CredentialStore backed by GORM.
// It owns the relational schema: users, roles, permissions, login logs,
// and the three association tables.
package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the persisted account row.
type User struct {
	ID             string `gorm:"primaryKey;type:varchar(36)"`
	Username       string `gorm:"uniqueIndex;size:50;not null"`
	Email          string `gorm:"uniqueIndex;size:254;not null"`
	PasswordDigest string `gorm:"size:255;not null"`

	FullName  string `gorm:"size:100"`
	Phone     string `gorm:"size:32"`
	AvatarURL string `gorm:"size:255"`
	Bio       string `gorm:"size:500"`

	IsActive    bool `gorm:"not null;default:true"`
	IsVerified  bool `gorm:"not null;default:false"`
	IsSuperuser bool `gorm:"not null;default:false"`

	LoginCount       int        `gorm:"not null;default:0"`
	FailedLoginCount int        `gorm:"not null;default:0"`
	LockedUntil      *time.Time `gorm:"index"`

	SessionToken  *string `gorm:"uniqueIndex;size:64"`
	RememberToken *string `gorm:"uniqueIndex;size:64"`

	LastLoginAt *time.Time
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`

	Roles             []Role       `gorm:"many2many:user_roles"`
	DirectPermissions []Permission `gorm:"many2many:user_permissions"`
	LoginLogs         []LoginLog   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// Role groups permissions. System roles cannot be deleted or deactivated.
// Deactivated roles keep their grants but stop contributing to effective
// permissions.
type Role struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"uniqueIndex;size:50;not null"`
	DisplayName string `gorm:"size:100"`
	Description string `gorm:"size:255"`
	IsSystem    bool   `gorm:"not null;default:false"`
	IsActive    bool   `gorm:"not null;default:true"`
	CreatedAt   time.Time

	Permissions []Permission `gorm:"many2many:role_permissions"`
}

// Permission is a single grantable capability, identified by its code.
// Category groups codes for admin UIs, conventionally the code prefix.
type Permission struct {
	ID          uint   `gorm:"primaryKey"`
	Code        string `gorm:"uniqueIndex;size:100;not null"`
	DisplayName string `gorm:"size:100"`
	Category    string `gorm:"index;size:50"`
	Description string `gorm:"size:255"`
	CreatedAt   time.Time
}

// LoginLog is one recorded login attempt.
type LoginLog struct {
	ID            uint      `gorm:"primaryKey"`
	UserID        string    `gorm:"type:varchar(36);index;not null"`
	Username      string    `gorm:"size:50"`
	LoginAt       time.Time `gorm:"index;not null"`
	IP            string    `gorm:"size:45"`
	UserAgent     string    `gorm:"size:255"`
	Success       bool      `gorm:"not null"`
	LoginType     string    `gorm:"size:20"`
	FailureReason string    `gorm:"size:50"`
}

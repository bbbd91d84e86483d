// internal/models/user.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an account record. Tasks reference users through Task.OwnerID;
// there is no cross-user sharing, so no association is mapped here.
type User struct {
	ID                    uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Email                 string     `json:"email" gorm:"size:255;uniqueIndex;not null"`
	Username              string     `json:"username" gorm:"size:50;uniqueIndex;not null"`
	PasswordHash          string     `json:"-" gorm:"not null"`
	IsActive              bool       `json:"is_active" gorm:"default:true"`
	RefreshToken          string     `json:"-" gorm:"index"`
	RefreshTokenExpiresAt *time.Time `json:"-"`
	FailedLoginAttempts   int        `json:"-" gorm:"default:0"`
	LockedUntil           *time.Time `json:"-"`
	LastLoginAt           *time.Time `json:"last_login_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Locked reports whether the account is currently locked out.
func (u *User) Locked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a storefront account. The verification and reset code pairs are
// always written together: both set while a code is pending, both nil otherwise.
type User struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name               string     `gorm:"not null;size:255" json:"name"`
	Email              string     `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password           string     `gorm:"not null" json:"-"`
	Role               string     `gorm:"size:20;default:'user'" json:"role"`
	EmailVerified      bool       `gorm:"not null;default:false" json:"email_verified"`
	VerificationCode   *string    `gorm:"size:6" json:"-"`
	VerificationExpiry *time.Time `json:"-"`
	ResetCode          *string    `gorm:"size:6" json:"-"`
	ResetExpiry        *time.Time `json:"-"`
	FacebookLinked     bool       `gorm:"not null;default:false" json:"facebook_linked"`
	FacebookID         *string    `gorm:"size:255" json:"facebook_id"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// HasPendingVerification reports whether a verification code is outstanding.
func (u *User) HasPendingVerification() bool {
	return u.VerificationCode != nil && u.VerificationExpiry != nil
}

// HasPendingReset reports whether a password reset code is outstanding.
func (u *User) HasPendingReset() bool {
	return u.ResetCode != nil && u.ResetExpiry != nil
}

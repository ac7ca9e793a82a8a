package auth

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursecommerce-backend/internal/domain/user"
)

// PasswordResetToken stores only a salted hash of the issued token.
// The highest Version per user is the only redeemable one.
type PasswordResetToken struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_password_reset_tokens_user_version" json:"user_id"`
	User      *user.User `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	Version   int        `gorm:"not null;uniqueIndex:idx_password_reset_tokens_user_version;column:version" json:"version"`
	Salt      string     `gorm:"not null;column:salt" json:"-"`
	TokenHash string     `gorm:"not null;column:token_hash" json:"-"`
	Lookup    string     `gorm:"not null;default:'';index;column:lookup" json:"-"`
	ExpiresAt time.Time  `gorm:"not null;column:expires_at" json:"expires_at"`
	Used      bool       `gorm:"not null;column:used" json:"used"`
	UsedAt    *time.Time `gorm:"column:used_at" json:"used_at,omitempty"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
}

func (PasswordResetToken) TableName() string { return "password_reset_tokens" }

func (t *PasswordResetToken) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

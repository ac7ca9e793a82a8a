package achievements

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursecommerce-backend/internal/domain/user"
)

type Achievement struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Code         string    `gorm:"uniqueIndex;not null;column:code" json:"code"`
	Title        string    `gorm:"not null;column:title" json:"title"`
	Description  string    `gorm:"column:description" json:"description"`
	IconURL      string    `gorm:"column:icon_url" json:"icon_url"`
	TriggerType  string    `gorm:"not null;index:idx_achievements_trigger;column:trigger_type" json:"trigger_type"`
	TriggerValue int64     `gorm:"not null;index:idx_achievements_trigger;column:trigger_value" json:"trigger_value"`
	Active       bool      `gorm:"not null;column:active" json:"active"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

func (Achievement) TableName() string { return "achievements" }

func (a *Achievement) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

type UserAchievement struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_user_achievements_user_achievement" json:"user_id"`
	User          *user.User   `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	AchievementID uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_user_achievements_user_achievement" json:"achievement_id"`
	Achievement   *Achievement `gorm:"constraint:OnDelete:CASCADE;foreignKey:AchievementID;references:ID" json:"achievement,omitempty"`
	Earned        bool         `gorm:"not null;column:earned" json:"earned"`
	EarnedAt      *time.Time   `gorm:"column:earned_at" json:"earned_at,omitempty"`
	CreatedAt     time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null" json:"updated_at"`
}

func (UserAchievement) TableName() string { return "user_achievements" }

func (ua *UserAchievement) BeforeCreate(*gorm.DB) error {
	if ua.ID == uuid.Nil {
		ua.ID = uuid.New()
	}
	return nil
}

// Standing is a read model row: one active achievement and how far the user is from it.
type Standing struct {
	Achievement *Achievement `json:"achievement"`
	Current     int64        `json:"current"`
	Earned      bool         `json:"earned"`
	EarnedAt    *time.Time   `json:"earned_at,omitempty"`
}

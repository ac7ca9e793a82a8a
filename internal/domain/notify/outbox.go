package notify

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/coursecommerce-backend/internal/domain/user"
)

// Event kinds written by the core. The dispatcher composes notifications from them.
const (
	EventPaymentCompleted      = "payment.completed"
	EventPaymentFailed         = "payment.failed"
	EventSubscriptionActivated = "subscription.activated"
	EventSubscriptionRenewed   = "subscription.renewed"
	EventSubscriptionCanceled  = "subscription.canceled"
	EventSubscriptionExpired   = "subscription.expired"
	EventCourseCompleted       = "course.completed"
	EventAchievementEarned     = "achievement.earned"
)

// OutboxEvent is a fact appended in the same transaction as the state change it describes.
type OutboxEvent struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Kind         string         `gorm:"not null;index;column:kind" json:"kind"`
	UserID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User         *user.User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	AggregateKey string         `gorm:"not null;column:aggregate_key" json:"aggregate_key"`
	Payload      datatypes.JSON `gorm:"column:payload" json:"payload"`
	OccurredAt   time.Time      `gorm:"not null;column:occurred_at" json:"occurred_at"`
	PublishedAt  *time.Time     `gorm:"index;column:published_at" json:"published_at,omitempty"`
	Attempts     int            `gorm:"not null;column:attempts" json:"attempts"`
	LastError    string         `gorm:"column:last_error" json:"last_error,omitempty"`
	CreatedAt    time.Time      `gorm:"not null" json:"created_at"`
}

func (OutboxEvent) TableName() string { return "outbox_events" }

func (e *OutboxEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

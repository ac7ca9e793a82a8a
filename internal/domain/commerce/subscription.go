package commerce

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/coursecommerce-backend/internal/domain/user"
)

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionExpired  SubscriptionStatus = "expired"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

func (s SubscriptionStatus) Terminal() bool {
	return s == SubscriptionExpired || s == SubscriptionCanceled
}

type Subscription struct {
	ID     uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID  `gorm:"type:uuid;index;not null" json:"user_id"`
	User   *user.User `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`

	PlanID *uuid.UUID        `gorm:"type:uuid;index" json:"plan_id,omitempty"`
	Plan   *SubscriptionPlan `gorm:"constraint:OnDelete:SET NULL;foreignKey:PlanID;references:ID" json:"-"`

	// At most one active row per processor id; expired/canceled rows are history.
	ProcessorSubscriptionID string `gorm:"not null;column:processor_subscription_id;index:idx_subscriptions_active_processor,unique,where:status = 'active'" json:"processor_subscription_id"`

	Status     SubscriptionStatus `gorm:"not null;index;column:status" json:"status"`
	StartTime  time.Time          `gorm:"not null;column:start_time" json:"start_time"`
	EndTime    time.Time          `gorm:"not null;index;column:end_time" json:"end_time"`
	CanceledAt *time.Time         `gorm:"column:canceled_at" json:"canceled_at,omitempty"`
	ExpiredAt  *time.Time         `gorm:"column:expired_at" json:"expired_at,omitempty"`

	// Bumped on every lifecycle write; guards compare-and-set updates.
	Version int `gorm:"not null;column:version" json:"version"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Subscription) TableName() string { return "subscriptions" }

func (s *Subscription) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

type SubscriptionPlan struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string         `gorm:"not null;column:name" json:"name"`
	Description     string         `gorm:"column:description" json:"description"`
	PriceMinor      int64          `gorm:"not null;column:price_minor" json:"price_minor"`
	Currency        string         `gorm:"not null;column:currency" json:"currency"`
	DurationMonths  int            `gorm:"not null;column:duration_months" json:"duration_months"`
	ProcessorPlanID string         `gorm:"uniqueIndex;not null;column:processor_plan_id" json:"processor_plan_id"`
	Active          bool           `gorm:"not null;column:active" json:"active"`
	CatalogueAccess bool           `gorm:"not null;column:catalogue_access" json:"catalogue_access"`
	Features        datatypes.JSON `gorm:"column:features" json:"features"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
}

func (SubscriptionPlan) TableName() string { return "subscription_plans" }

func (p *SubscriptionPlan) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PeriodEnd returns the end of one billing period starting at start.
func (p *SubscriptionPlan) PeriodEnd(start time.Time) time.Time {
	months := 1
	if p != nil && p.DurationMonths > 0 {
		months = p.DurationMonths
	}
	return start.AddDate(0, months, 0)
}

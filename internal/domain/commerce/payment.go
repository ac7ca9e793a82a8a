package commerce

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursecommerce-backend/internal/domain/catalog"
	"github.com/yungbote/coursecommerce-backend/internal/domain/user"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

func ParsePaymentStatus(raw string) (PaymentStatus, bool) {
	s := PaymentStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed:
		return s, true
	}
	return "", false
}

func (s PaymentStatus) Terminal() bool {
	return s == PaymentCompleted || s == PaymentFailed
}

// CanTransitionTo reports whether the ledger may move from s to next.
// Only pending moves forward; equal statuses are handled as duplicates by the caller.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return s == PaymentPending && next.Terminal()
}

type Payment struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TransactionID string    `gorm:"uniqueIndex;not null;column:transaction_id" json:"transaction_id"`

	UserID uuid.UUID  `gorm:"type:uuid;index;not null" json:"user_id"`
	User   *user.User `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`

	// Exactly one of CourseID and PlanID is set.
	CourseID *uuid.UUID        `gorm:"type:uuid;index" json:"course_id,omitempty"`
	Course   *catalog.Course   `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"-"`
	PlanID   *uuid.UUID        `gorm:"type:uuid;index" json:"plan_id,omitempty"`
	Plan     *SubscriptionPlan `gorm:"constraint:OnDelete:SET NULL;foreignKey:PlanID;references:ID" json:"-"`

	ProcessorSubscriptionID string `gorm:"column:processor_subscription_id" json:"processor_subscription_id,omitempty"`

	AmountMinor int64         `gorm:"not null;column:amount_minor" json:"amount_minor"`
	Currency    string        `gorm:"not null;column:currency" json:"currency"`
	Method      string        `gorm:"not null;column:method" json:"method"`
	Status      PaymentStatus `gorm:"not null;index;column:status" json:"status"`

	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	FailedAt    *time.Time `gorm:"column:failed_at" json:"failed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// IsPlanPurchase reports whether the payment buys a subscription plan rather than a course.
func (p *Payment) IsPlanPurchase() bool {
	return p != nil && p.PlanID != nil && *p.PlanID != uuid.Nil
}

// Enrollment is the durable fact that a user may access a course.
type Enrollment struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_user_courses_user_course" json:"user_id"`
	User            *user.User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	CourseID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_user_courses_user_course;index" json:"course_id"`
	Course          *catalog.Course `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"-"`
	SourcePaymentID *uuid.UUID      `gorm:"type:uuid;column:source_payment_id" json:"source_payment_id,omitempty"`
	EnrolledAt      time.Time       `gorm:"not null;column:enrolled_at" json:"enrolled_at"`
	CreatedAt       time.Time       `gorm:"not null" json:"created_at"`
}

func (Enrollment) TableName() string { return "user_courses" }

func (e *Enrollment) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

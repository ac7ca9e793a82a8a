package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coursecommerce-backend/internal/domain/commerce"
	"github.com/yungbote/coursecommerce-backend/internal/domain/notify"
)

var PaymentAggregateContract = Contract{
	Name:           "Commerce.PaymentAggregate",
	IdempotencyKey: "transaction_id",
	Emits: []string{
		notify.EventPaymentCompleted,
		notify.EventPaymentFailed,
		notify.EventSubscriptionActivated,
		notify.EventAchievementEarned,
	},
	Entitlements: true,
	Notes:        "Owns the payment ledger status machine and the enrollment, subscription and stat side effects of completion.",
}

// PaymentAggregate reconciles payment processor events into the ledger.
//
// Write method failures return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeInvalidTransition, CodeTimeout, CodeRetryable, CodeInternal.
type PaymentAggregate interface {
	Aggregate

	// RecordPaymentEvent applies one (possibly re-delivered) processor event.
	RecordPaymentEvent(ctx context.Context, in RecordPaymentEventInput) (RecordPaymentEventResult, error)
}

type RecordPaymentEventInput struct {
	TransactionID string
	UserID        uuid.UUID

	// Exactly one of CourseID and PlanID must be set.
	CourseID uuid.UUID
	PlanID   uuid.UUID

	// Processor-side subscription id for plan purchases. Defaults to "txn:<TransactionID>".
	ProcessorSubscriptionID string

	AmountMinor int64
	Currency    string
	Method      string
	Status      commerce.PaymentStatus
	OccurredAt  time.Time
}

type RecordPaymentEventResult struct {
	PaymentID      uuid.UUID
	TransactionID  string
	Status         commerce.PaymentStatus
	PreviousStatus commerce.PaymentStatus

	// Duplicate is true when the event matched the stored status and nothing was written.
	Duplicate    bool
	Transitioned bool

	EnrollmentCreated  bool
	SubscriptionID     uuid.UUID
	SubscriptionEnd    *time.Time
	EarnedAchievements []EarnedAchievement
}

package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coursecommerce-backend/internal/domain/commerce"
	"github.com/yungbote/coursecommerce-backend/internal/domain/notify"
)

var SubscriptionAggregateContract = Contract{
	Name:           "Commerce.SubscriptionAggregate",
	IdempotencyKey: "processor_subscription_id",
	Emits: []string{
		notify.EventSubscriptionActivated,
		notify.EventSubscriptionRenewed,
		notify.EventSubscriptionCanceled,
		notify.EventSubscriptionExpired,
	},
	Entitlements:  true,
	PerItemCommit: true,
	Notes:         "Sole writer of subscription status; keeps users.subscription_expires_at in step.",
}

// SubscriptionAggregate owns the active -> expired|canceled lifecycle.
//
// Write method failures return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeDuplicateSubscription, CodeAlreadyTerminal,
// CodeConflict, CodeTimeout, CodeRetryable, CodeInternal.
type SubscriptionAggregate interface {
	Aggregate

	// Open creates an active subscription for a processor subscription id.
	Open(ctx context.Context, in OpenSubscriptionInput) (SubscriptionResult, error)

	// Renew extends end_time of the active row. A terminal row yields CodeAlreadyTerminal.
	Renew(ctx context.Context, in RenewSubscriptionInput) (SubscriptionResult, error)

	// Cancel ends the active row at the effective time.
	Cancel(ctx context.Context, in CancelSubscriptionInput) (SubscriptionResult, error)

	// SweepExpirations expires active rows whose end_time has passed, one transaction per row.
	SweepExpirations(ctx context.Context, in SweepExpirationsInput) (SweepExpirationsResult, error)
}

type OpenSubscriptionInput struct {
	UserID uuid.UUID
	PlanID uuid.UUID
	// ProcessorPlanID names the plan in the processor's catalogue; it is
	// used only when PlanID is nil.
	ProcessorPlanID         string
	ProcessorSubscriptionID string
	StartTime               time.Time
	// EndTime overrides start + plan duration when set.
	EndTime time.Time
}

type RenewSubscriptionInput struct {
	ProcessorSubscriptionID string
	NewEndTime              time.Time
}

type CancelSubscriptionInput struct {
	ProcessorSubscriptionID string
	EffectiveTime           time.Time
}

type SubscriptionResult struct {
	SubscriptionID          uuid.UUID
	UserID                  uuid.UUID
	ProcessorSubscriptionID string
	Status                  commerce.SubscriptionStatus
	StartTime               time.Time
	EndTime                 time.Time
	Version                 int

	// Changed is false for monotonic no-ops (e.g. renewing to an earlier end time).
	Changed bool

	UserSubscriptionExpiresAt *time.Time
}

type SweepExpirationsInput struct {
	Now       time.Time
	BatchSize int
}

type SweepExpirationsResult struct {
	Scanned int
	Expired int
	Skipped int
	// Failed counts rows whose own transaction errored; the sweep moves past them.
	Failed     int
	ExpiredIDs []uuid.UUID
}

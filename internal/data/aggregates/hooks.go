package aggregates

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coursecommerce-backend/internal/observability"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
)

// Entity names the commerce record a write is keyed on.
type Entity string

const (
	EntityPayment        Entity = "payment"
	EntitySubscription   Entity = "subscription"
	EntityCourseProgress Entity = "course_progress"
	EntityUserStat       Entity = "user_stat"
	EntityResetToken     Entity = "password_reset_token"
)

// Write identifies one aggregate write. Key is the business key of the
// touched record (transaction id, processor subscription id, user id); it goes
// to traces and logs but never to metric labels.
type Write struct {
	Op     string
	Entity Entity
	Key    string
}

func paymentWrite(op, transactionID string) Write {
	return Write{Op: op, Entity: EntityPayment, Key: transactionID}
}

func subscriptionWrite(op, processorSubscriptionID string) Write {
	return Write{Op: op, Entity: EntitySubscription, Key: processorSubscriptionID}
}

func userWrite(op string, e Entity, userID uuid.UUID) Write {
	w := Write{Op: op, Entity: e}
	if userID != uuid.Nil {
		w.Key = userID.String()
	}
	return w
}

func (w Write) normalized() Write {
	w.Op = strings.TrimSpace(w.Op)
	if w.Op == "" {
		w.Op = "aggregate.write"
	}
	w.Key = strings.TrimSpace(w.Key)
	return w
}

// Hooks receives the outcome of every aggregate write.
type Hooks interface {
	Finished(w Write, status string, dur time.Duration)
	Conflicted(w Write)
	Retryable(w Write)
}

type noopHooks struct{}

func (noopHooks) Finished(Write, string, time.Duration) {}
func (noopHooks) Conflicted(Write)                      {}
func (noopHooks) Retryable(Write)                       {}

type observabilityHooks struct {
	metrics *observability.Metrics
	log     *logger.Logger
}

// NewObservabilityHooks counts writes per operation and logs contended keys
// at debug level so a hot transaction or subscription can be found.
func NewObservabilityHooks(metrics *observability.Metrics, log *logger.Logger) Hooks {
	if metrics == nil && log == nil {
		return noopHooks{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &observabilityHooks{metrics: metrics, log: log.With("component", "AggregateHooks")}
}

func (h *observabilityHooks) Finished(w Write, status string, dur time.Duration) {
	h.metrics.ObserveAggregateOperation(w.Op, strings.TrimSpace(status), dur)
}

func (h *observabilityHooks) Conflicted(w Write) {
	h.metrics.IncAggregateConflict(w.Op)
	h.log.Debug("aggregate write conflicted", "op", w.Op, "entity", w.Entity, "key", w.Key)
}

func (h *observabilityHooks) Retryable(w Write) {
	h.metrics.IncAggregateRetry(w.Op)
	h.log.Debug("aggregate write retryable", "op", w.Op, "entity", w.Entity, "key", w.Key)
}

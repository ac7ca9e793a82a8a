package aggregates

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/coursecommerce-backend/internal/domain/aggregates"
	"github.com/yungbote/coursecommerce-backend/internal/platform/dbctx"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
)

const tracerName = "coursecommerce/aggregates"

// EntitlementInvalidator drops cached access decisions for a user after a committed write.
type EntitlementInvalidator interface {
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

type BaseDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Runner   TxRunner
	Hooks    Hooks
	CASGuard CASGuard

	// OpTimeout bounds every write that arrives without its own deadline.
	OpTimeout time.Duration
	Now       func() time.Time

	Entitlements EntitlementInvalidator
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.CASGuard.db == nil {
		d.CASGuard = NewCASGuard(d.DB)
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

func (d BaseDeps) now(at time.Time) time.Time {
	if !at.IsZero() {
		return at.UTC()
	}
	if d.Now == nil {
		return time.Now().UTC()
	}
	return d.Now().UTC()
}

// invalidate is best effort; a stale cache entry only lives until its TTL.
func (d BaseDeps) invalidate(ctx context.Context, userIDs ...uuid.UUID) {
	if d.Entitlements == nil {
		return
	}
	for _, id := range userIDs {
		if id == uuid.Nil {
			continue
		}
		if err := d.Entitlements.Invalidate(context.WithoutCancel(ctx), id); err != nil && d.Log != nil {
			d.Log.Warn("entitlement cache invalidation failed", "user_id", id, "error", err)
		}
	}
}

func executeWrite(ctx context.Context, deps BaseDeps, w Write, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	w = w.normalized()
	op := w.Op
	ctx, cancel := dbctx.WithDefaultTimeout(ctx, deps.OpTimeout)
	defer cancel()

	ctx, span := otel.Tracer(tracerName).Start(ctx, op)
	defer span.End()
	if w.Entity != "" {
		span.SetAttributes(attribute.String("aggregate.entity", string(w.Entity)))
	}
	if w.Key != "" {
		span.SetAttributes(attribute.String("aggregate.key", w.Key))
	}

	err := deps.Runner.InTx(ctx, fn)
	mapped := MapError(op, err)

	status := "success"
	if mapped != nil {
		status = aggregateErrorStatus(mapped)
		if domainagg.IsCode(mapped, domainagg.CodeConflict) {
			deps.Hooks.Conflicted(w)
		}
		if domainagg.IsCode(mapped, domainagg.CodeRetryable) {
			deps.Hooks.Retryable(w)
		}
		if domainagg.CodeOf(mapped).Benign() {
			span.SetAttributes(attribute.String("aggregate.outcome", status))
		} else {
			span.RecordError(mapped)
			span.SetStatus(codes.Error, status)
		}
		if domainagg.IsCode(mapped, domainagg.CodeInternal) {
			deps.Log.Error("aggregate write failed", "op", op, "entity", w.Entity, "key", w.Key, "error", mapped)
		}
	}
	span.SetAttributes(attribute.String("aggregate.status", status))
	deps.Hooks.Finished(w, status, time.Since(start))
	return mapped
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := strings.TrimSpace(string(domainagg.CodeOf(err)))
	if code == "" {
		code = strings.TrimSpace(string(domainagg.CodeOf(MapError("aggregate.status", err))))
	}
	if code == "" {
		return "failure"
	}
	return code
}

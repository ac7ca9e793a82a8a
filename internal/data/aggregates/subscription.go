package aggregates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coursecommerce-backend/internal/data/repos"
	types "github.com/yungbote/coursecommerce-backend/internal/domain"
	domainagg "github.com/yungbote/coursecommerce-backend/internal/domain/aggregates"
	"github.com/yungbote/coursecommerce-backend/internal/domain/notify"
	"github.com/yungbote/coursecommerce-backend/internal/platform/dbctx"
)

const (
	subscriptionsTable      = "subscriptions"
	defaultSweepBatchSize   = 100
	subscriptionSweepOpName = "Commerce.Subscription.SweepExpirations"
)

type SubscriptionAggregateDeps struct {
	Base BaseDeps

	Subscriptions repos.SubscriptionRepo
	Plans         repos.SubscriptionPlanRepo
	Users         repos.UserRepo
	Outbox        repos.OutboxRepo
}

type subscriptionAggregate struct {
	deps      SubscriptionAggregateDeps
	lifecycle subscriptionLifecycle

	// beforeExpire runs between candidate listing and the per-row transaction.
	beforeExpire func(ctx context.Context, id uuid.UUID)
}

func NewSubscriptionAggregate(deps SubscriptionAggregateDeps) domainagg.SubscriptionAggregate {
	deps.Base = deps.Base.withDefaults()
	return &subscriptionAggregate{
		deps: deps,
		lifecycle: subscriptionLifecycle{
			subs:   deps.Subscriptions,
			plans:  deps.Plans,
			users:  deps.Users,
			outbox: deps.Outbox,
			cas:    deps.Base.CASGuard,
		},
	}
}

func (a *subscriptionAggregate) Contract() domainagg.Contract {
	return domainagg.SubscriptionAggregateContract
}

func (a *subscriptionAggregate) Open(ctx context.Context, in domainagg.OpenSubscriptionInput) (domainagg.SubscriptionResult, error) {
	const op = "Commerce.Subscription.Open"
	var out domainagg.SubscriptionResult
	if in.UserID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	in.ProcessorPlanID = strings.TrimSpace(in.ProcessorPlanID)
	if in.PlanID == uuid.Nil && in.ProcessorPlanID == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing plan_id or processor_plan_id", nil)
	}
	in.ProcessorSubscriptionID = strings.TrimSpace(in.ProcessorSubscriptionID)
	if in.ProcessorSubscriptionID == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing processor_subscription_id", nil)
	}
	if !a.lifecycle.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "subscription aggregate repos not configured", nil)
	}
	in.StartTime = a.deps.Base.now(in.StartTime)
	if !in.EndTime.IsZero() && !in.EndTime.After(in.StartTime) {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "end_time must be after start_time", nil)
	}

	err := executeWrite(ctx, a.deps.Base, subscriptionWrite(op, in.ProcessorSubscriptionID), func(dbc dbctx.Context) error {
		row, err := a.lifecycle.open(dbc, op, in)
		if err != nil {
			return err
		}
		expiresAt, err := a.lifecycle.refreshUserExpiry(dbc, op, row.UserID)
		if err != nil {
			return err
		}
		out = subscriptionResult(row, true, expiresAt)
		return nil
	})
	if err != nil {
		return domainagg.SubscriptionResult{}, err
	}
	a.deps.Base.invalidate(ctx, out.UserID)
	return out, nil
}

func (a *subscriptionAggregate) Renew(ctx context.Context, in domainagg.RenewSubscriptionInput) (domainagg.SubscriptionResult, error) {
	const op = "Commerce.Subscription.Renew"
	var out domainagg.SubscriptionResult
	processorID := strings.TrimSpace(in.ProcessorSubscriptionID)
	if processorID == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing processor_subscription_id", nil)
	}
	if in.NewEndTime.IsZero() {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing new_end_time", nil)
	}
	if !a.lifecycle.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "subscription aggregate repos not configured", nil)
	}
	newEnd := in.NewEndTime.UTC()
	at := a.deps.Base.now(time.Time{})

	err := executeWrite(ctx, a.deps.Base, subscriptionWrite(op, processorID), func(dbc dbctx.Context) error {
		row, err := a.lifecycle.lockActive(dbc, op, processorID)
		if err != nil {
			return err
		}
		changed, err := a.lifecycle.renew(dbc, op, row, newEnd, at)
		if err != nil {
			return err
		}
		var expiresAt *time.Time
		if changed {
			if expiresAt, err = a.lifecycle.refreshUserExpiry(dbc, op, row.UserID); err != nil {
				return err
			}
		} else if expiresAt, err = a.lifecycle.subs.LatestActiveEnd(dbc, row.UserID); err != nil {
			return err
		}
		out = subscriptionResult(row, changed, expiresAt)
		return nil
	})
	if err != nil {
		return domainagg.SubscriptionResult{}, err
	}
	if out.Changed {
		a.deps.Base.invalidate(ctx, out.UserID)
	}
	return out, nil
}

func (a *subscriptionAggregate) Cancel(ctx context.Context, in domainagg.CancelSubscriptionInput) (domainagg.SubscriptionResult, error) {
	const op = "Commerce.Subscription.Cancel"
	var out domainagg.SubscriptionResult
	processorID := strings.TrimSpace(in.ProcessorSubscriptionID)
	if processorID == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing processor_subscription_id", nil)
	}
	if !a.lifecycle.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "subscription aggregate repos not configured", nil)
	}
	effective := a.deps.Base.now(in.EffectiveTime)

	err := executeWrite(ctx, a.deps.Base, subscriptionWrite(op, processorID), func(dbc dbctx.Context) error {
		row, err := a.lifecycle.lockActive(dbc, op, processorID)
		if err != nil {
			return err
		}
		ok, err := a.lifecycle.cas.UpdateByVersion(dbc, subscriptionsTable, row.ID, row.Version, map[string]any{
			"status":      types.SubscriptionCanceled,
			"end_time":    effective,
			"canceled_at": effective,
			"updated_at":  effective,
		})
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "subscription changed while canceling"); err != nil {
			return err
		}
		row.Status = types.SubscriptionCanceled
		row.EndTime = effective
		row.CanceledAt = timePtr(effective)
		row.Version++

		expiresAt, err := a.lifecycle.refreshUserExpiry(dbc, op, row.UserID)
		if err != nil {
			return err
		}
		if err := appendOutbox(dbc, a.deps.Outbox, notify.EventSubscriptionCanceled, row.UserID, "subscription:"+row.ID.String(), map[string]any{
			"subscription_id":           row.ID,
			"processor_subscription_id": row.ProcessorSubscriptionID,
			"effective_time":            effective,
		}, effective); err != nil {
			return err
		}
		out = subscriptionResult(row, true, expiresAt)
		return nil
	})
	if err != nil {
		return domainagg.SubscriptionResult{}, err
	}
	a.deps.Base.invalidate(ctx, out.UserID)
	return out, nil
}

// SweepExpirations pages candidates by id and expires each in its own transaction.
// Cancellation between rows returns the partial counts with the mapped context error.
func (a *subscriptionAggregate) SweepExpirations(ctx context.Context, in domainagg.SweepExpirationsInput) (domainagg.SweepExpirationsResult, error) {
	const op = subscriptionSweepOpName
	start := time.Now()
	out := domainagg.SweepExpirationsResult{ExpiredIDs: []uuid.UUID{}}
	if !a.lifecycle.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "subscription aggregate repos not configured", nil)
	}
	now := a.deps.Base.now(in.Now)
	batch := in.BatchSize
	if batch <= 0 {
		batch = defaultSweepBatchSize
	}

	finish := func(err error) (domainagg.SweepExpirationsResult, error) {
		status := "success"
		if err != nil {
			status = aggregateErrorStatus(err)
		}
		a.deps.Base.Hooks.Finished(Write{Op: op, Entity: EntitySubscription}, status, time.Since(start))
		return out, err
	}

	afterID := uuid.Nil
	for {
		if err := ctx.Err(); err != nil {
			return finish(MapError(op, err))
		}
		ids, err := a.deps.Subscriptions.ListExpiredActiveIDs(dbctx.Background(ctx), now, afterID, batch)
		if err != nil {
			return finish(MapError(op, err))
		}
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return finish(MapError(op, err))
			}
			afterID = id
			out.Scanned++
			if a.beforeExpire != nil {
				a.beforeExpire(ctx, id)
			}
			expired, userID, err := a.expireOne(ctx, id, now)
			switch {
			case err == nil && expired:
				out.Expired++
				out.ExpiredIDs = append(out.ExpiredIDs, id)
				a.deps.Base.invalidate(ctx, userID)
			case err == nil:
				out.Skipped++
			case ctx.Err() != nil:
				return finish(MapError(op, ctx.Err()))
			case domainagg.IsCode(err, domainagg.CodeConflict):
				out.Skipped++
			default:
				out.Failed++
				a.deps.Base.Log.Warn("subscription expiry failed", "subscription_id", id, "error", err)
			}
		}
		if len(ids) < batch {
			break
		}
	}
	if out.Expired > 0 || out.Failed > 0 {
		a.deps.Base.Log.Info("subscription sweep finished",
			"scanned", out.Scanned, "expired", out.Expired, "skipped", out.Skipped, "failed", out.Failed)
	}
	return finish(nil)
}

// expireOne re-reads the row under lock and expires it only if it is still active and ended.
func (a *subscriptionAggregate) expireOne(ctx context.Context, id uuid.UUID, now time.Time) (bool, uuid.UUID, error) {
	const op = "Commerce.Subscription.Expire"
	var (
		expired bool
		userID  uuid.UUID
	)
	err := executeWrite(ctx, a.deps.Base, Write{Op: op, Entity: EntitySubscription, Key: id.String()}, func(dbc dbctx.Context) error {
		row, err := a.deps.Subscriptions.LockByID(dbc, id)
		if err != nil {
			return err
		}
		if row == nil || row.Status != types.SubscriptionActive || !row.EndTime.Before(now) {
			return nil
		}
		ok, err := a.lifecycle.cas.UpdateByVersion(dbc, subscriptionsTable, row.ID, row.Version, map[string]any{
			"status":     types.SubscriptionExpired,
			"expired_at": now,
			"updated_at": now,
		})
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "subscription changed while expiring"); err != nil {
			return err
		}
		if _, err := a.lifecycle.refreshUserExpiry(dbc, op, row.UserID); err != nil {
			return err
		}
		if err := appendOutbox(dbc, a.deps.Outbox, notify.EventSubscriptionExpired, row.UserID, "subscription:"+row.ID.String(), map[string]any{
			"subscription_id":           row.ID,
			"processor_subscription_id": row.ProcessorSubscriptionID,
			"end_time":                  row.EndTime.UTC(),
		}, now); err != nil {
			return err
		}
		expired = true
		userID = row.UserID
		return nil
	})
	if err != nil {
		return false, uuid.Nil, err
	}
	return expired, userID, nil
}

// subscriptionLifecycle holds the in-transaction steps shared with the payment reconciler.
type subscriptionLifecycle struct {
	subs   repos.SubscriptionRepo
	plans  repos.SubscriptionPlanRepo
	users  repos.UserRepo
	outbox repos.OutboxRepo
	cas    CASGuard
}

func (l subscriptionLifecycle) configured() bool {
	return l.subs != nil && l.plans != nil && l.users != nil
}

func (l subscriptionLifecycle) resolvePlan(dbc dbctx.Context, in domainagg.OpenSubscriptionInput) (*types.SubscriptionPlan, error) {
	if in.PlanID != uuid.Nil {
		return l.plans.GetByID(dbc, in.PlanID)
	}
	return l.plans.GetByProcessorPlanID(dbc, in.ProcessorPlanID)
}

func (l subscriptionLifecycle) open(dbc dbctx.Context, op string, in domainagg.OpenSubscriptionInput) (*types.Subscription, error) {
	u, err := l.users.GetByID(dbc, in.UserID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("user not found: %s", in.UserID), nil)
	}
	plan, err := l.resolvePlan(dbc, in)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		ref := in.PlanID.String()
		if in.PlanID == uuid.Nil {
			ref = in.ProcessorPlanID
		}
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("plan not found: %s", ref), nil)
	}
	existing, err := l.subs.LockActiveByProcessorID(dbc, in.ProcessorSubscriptionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domainagg.NewError(domainagg.CodeDuplicateSubscription, op,
			fmt.Sprintf("active subscription exists for %s", in.ProcessorSubscriptionID), nil)
	}

	start := in.StartTime.UTC()
	end := in.EndTime.UTC()
	if in.EndTime.IsZero() {
		end = plan.PeriodEnd(start).UTC()
	}
	planID := plan.ID
	row := &types.Subscription{
		UserID:                  in.UserID,
		PlanID:                  &planID,
		ProcessorSubscriptionID: in.ProcessorSubscriptionID,
		Status:                  types.SubscriptionActive,
		StartTime:               start,
		EndTime:                 end,
		CreatedAt:               start,
		UpdatedAt:               start,
	}
	if err := l.subs.Create(dbc, row); err != nil {
		if domainagg.IsCode(MapError(op, err), domainagg.CodeDuplicateSubscription) {
			return nil, domainagg.NewError(domainagg.CodeDuplicateSubscription, op,
				fmt.Sprintf("active subscription exists for %s", in.ProcessorSubscriptionID), err)
		}
		return nil, err
	}
	if err := appendOutbox(dbc, l.outbox, notify.EventSubscriptionActivated, row.UserID, "subscription:"+row.ID.String(), map[string]any{
		"subscription_id":           row.ID,
		"processor_subscription_id": row.ProcessorSubscriptionID,
		"plan_id":                   plan.ID,
		"plan_name":                 plan.Name,
		"start_time":                start,
		"end_time":                  end,
	}, start); err != nil {
		return nil, err
	}
	return row, nil
}

// lockActive returns the locked active row, or NotFound / AlreadyTerminal when there is none.
func (l subscriptionLifecycle) lockActive(dbc dbctx.Context, op, processorID string) (*types.Subscription, error) {
	row, err := l.subs.LockActiveByProcessorID(dbc, processorID)
	if err != nil {
		return nil, err
	}
	if row != nil {
		return row, nil
	}
	latest, err := l.subs.GetLatestByProcessorID(dbc, processorID)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("subscription not found: %s", processorID), nil)
	}
	return nil, domainagg.NewError(domainagg.CodeAlreadyTerminal, op,
		fmt.Sprintf("subscription %s is %s", processorID, latest.Status), nil)
}

// renew moves end_time forward; an end at or before the current one is a no-op.
func (l subscriptionLifecycle) renew(dbc dbctx.Context, op string, row *types.Subscription, newEnd, at time.Time) (bool, error) {
	newEnd = newEnd.UTC()
	if !newEnd.After(row.EndTime) {
		return false, nil
	}
	ok, err := l.cas.UpdateByVersion(dbc, subscriptionsTable, row.ID, row.Version, map[string]any{
		"end_time":   newEnd,
		"updated_at": at,
	})
	if err != nil {
		return false, err
	}
	if err := RequireCASSuccess(ok, "subscription changed while renewing"); err != nil {
		return false, err
	}
	previous := row.EndTime.UTC()
	row.EndTime = newEnd
	row.Version++
	if err := appendOutbox(dbc, l.outbox, notify.EventSubscriptionRenewed, row.UserID, "subscription:"+row.ID.String(), map[string]any{
		"subscription_id":           row.ID,
		"processor_subscription_id": row.ProcessorSubscriptionID,
		"previous_end_time":         previous,
		"end_time":                  newEnd,
	}, at); err != nil {
		return false, err
	}
	return true, nil
}

// refreshUserExpiry recomputes users.subscription_expires_at under the user row lock.
func (l subscriptionLifecycle) refreshUserExpiry(dbc dbctx.Context, op string, userID uuid.UUID) (*time.Time, error) {
	u, err := l.users.LockByID(dbc, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("user not found: %s", userID), nil)
	}
	latest, err := l.subs.LatestActiveEnd(dbc, userID)
	if err != nil {
		return nil, err
	}
	if latest != nil {
		latest = timePtr(*latest)
	}
	if err := l.users.SetSubscriptionExpiresAt(dbc, userID, latest); err != nil {
		return nil, err
	}
	return latest, nil
}

func subscriptionResult(row *types.Subscription, changed bool, expiresAt *time.Time) domainagg.SubscriptionResult {
	return domainagg.SubscriptionResult{
		SubscriptionID:            row.ID,
		UserID:                    row.UserID,
		ProcessorSubscriptionID:   row.ProcessorSubscriptionID,
		Status:                    row.Status,
		StartTime:                 row.StartTime.UTC(),
		EndTime:                   row.EndTime.UTC(),
		Version:                   row.Version,
		Changed:                   changed,
		UserSubscriptionExpiresAt: expiresAt,
	}
}

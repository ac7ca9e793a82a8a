package aggregates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coursecommerce-backend/internal/data/repos"
	types "github.com/yungbote/coursecommerce-backend/internal/domain"
	"github.com/yungbote/coursecommerce-backend/internal/domain/achievements"
	domainagg "github.com/yungbote/coursecommerce-backend/internal/domain/aggregates"
	"github.com/yungbote/coursecommerce-backend/internal/domain/commerce"
	"github.com/yungbote/coursecommerce-backend/internal/domain/notify"
	"github.com/yungbote/coursecommerce-backend/internal/platform/dbctx"
)

const paymentsTable = "payments"

type PaymentAggregateDeps struct {
	Base BaseDeps

	Payments      repos.PaymentRepo
	Enrollments   repos.EnrollmentRepo
	Courses       repos.CourseRepo
	Plans         repos.SubscriptionPlanRepo
	Subscriptions repos.SubscriptionRepo
	Users         repos.UserRepo

	Stats            repos.UserStatRepo
	Achievements     repos.AchievementRepo
	UserAchievements repos.UserAchievementRepo
	Outbox           repos.OutboxRepo
}

type paymentAggregate struct {
	deps      PaymentAggregateDeps
	lifecycle subscriptionLifecycle
	engine    statEngine
}

func NewPaymentAggregate(deps PaymentAggregateDeps) domainagg.PaymentAggregate {
	deps.Base = deps.Base.withDefaults()
	return &paymentAggregate{
		deps: deps,
		lifecycle: subscriptionLifecycle{
			subs:   deps.Subscriptions,
			plans:  deps.Plans,
			users:  deps.Users,
			outbox: deps.Outbox,
			cas:    deps.Base.CASGuard,
		},
		engine: statEngine{
			stats:            deps.Stats,
			achievements:     deps.Achievements,
			userAchievements: deps.UserAchievements,
			outbox:           deps.Outbox,
		},
	}
}

func (a *paymentAggregate) Contract() domainagg.Contract {
	return domainagg.PaymentAggregateContract
}

func (a *paymentAggregate) RecordPaymentEvent(ctx context.Context, in domainagg.RecordPaymentEventInput) (domainagg.RecordPaymentEventResult, error) {
	const op = "Commerce.Payment.RecordEvent"
	var out domainagg.RecordPaymentEventResult
	if err := validatePaymentInput(op, &in); err != nil {
		return out, err
	}
	if a.deps.Payments == nil || a.deps.Enrollments == nil || a.deps.Courses == nil ||
		!a.lifecycle.configured() || !a.engine.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "payment aggregate repos not configured", nil)
	}
	at := a.deps.Base.now(in.OccurredAt)

	err := executeWrite(ctx, a.deps.Base, paymentWrite(op, in.TransactionID), func(dbc dbctx.Context) error {
		out = domainagg.RecordPaymentEventResult{TransactionID: in.TransactionID, Status: in.Status}

		existing, err := a.deps.Payments.LockByTransactionID(dbc, in.TransactionID)
		if err != nil {
			return err
		}
		if existing == nil {
			if err := a.requireReference(dbc, op, in); err != nil {
				return err
			}
			row := newPaymentRow(in, at)
			inserted, err := a.deps.Payments.InsertIfAbsent(dbc, row)
			if err != nil {
				return err
			}
			if inserted {
				out.PaymentID = row.ID
				return a.applyStatus(dbc, op, row, in, at, &out)
			}
			// Lost the insert race: continue against the winner's row.
			if existing, err = a.deps.Payments.LockByTransactionID(dbc, in.TransactionID); err != nil {
				return err
			}
			if existing == nil {
				return RetryableError("payment row vanished after insert conflict")
			}
		}

		out.PaymentID = existing.ID
		out.PreviousStatus = existing.Status
		if !sameBinding(existing, in) {
			return domainagg.NewError(domainagg.CodeInvalidTransition, op,
				fmt.Sprintf("transaction %s is bound to a different user or item", in.TransactionID), nil)
		}
		if existing.Status == in.Status {
			out.Duplicate = true
			return nil
		}
		if !existing.Status.CanTransitionTo(in.Status) {
			return domainagg.NewError(domainagg.CodeInvalidTransition, op,
				fmt.Sprintf("%s -> %s", existing.Status, in.Status), nil)
		}
		updates := map[string]any{"status": in.Status, "updated_at": at}
		switch in.Status {
		case commerce.PaymentCompleted:
			updates["completed_at"] = at
		case commerce.PaymentFailed:
			updates["failed_at"] = at
		}
		ok, err := a.deps.Base.CASGuard.UpdateByStatus(dbc, paymentsTable, existing.ID, []string{string(commerce.PaymentPending)}, updates)
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "payment changed while transitioning"); err != nil {
			return err
		}
		existing.Status = in.Status
		return a.applyStatus(dbc, op, existing, in, at, &out)
	})
	if err != nil {
		return domainagg.RecordPaymentEventResult{}, err
	}
	if out.Transitioned && out.Status == commerce.PaymentCompleted {
		a.deps.Base.invalidate(ctx, in.UserID)
	}
	return out, nil
}

func validatePaymentInput(op string, in *domainagg.RecordPaymentEventInput) error {
	in.TransactionID = strings.TrimSpace(in.TransactionID)
	if in.TransactionID == "" {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing transaction_id", nil)
	}
	if in.UserID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	if (in.CourseID == uuid.Nil) == (in.PlanID == uuid.Nil) {
		return domainagg.NewError(domainagg.CodeValidation, op, "exactly one of course_id and plan_id is required", nil)
	}
	status, ok := commerce.ParsePaymentStatus(string(in.Status))
	if !ok {
		return domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("unknown payment status %q", in.Status), nil)
	}
	in.Status = status
	if in.AmountMinor < 0 {
		return domainagg.NewError(domainagg.CodeValidation, op, "amount must not be negative", nil)
	}
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = "USD"
	}
	in.Method = strings.TrimSpace(in.Method)
	in.ProcessorSubscriptionID = strings.TrimSpace(in.ProcessorSubscriptionID)
	if in.PlanID != uuid.Nil && in.ProcessorSubscriptionID == "" {
		in.ProcessorSubscriptionID = "txn:" + in.TransactionID
	}
	return nil
}

func (a *paymentAggregate) requireReference(dbc dbctx.Context, op string, in domainagg.RecordPaymentEventInput) error {
	u, err := a.deps.Users.GetByID(dbc, in.UserID)
	if err != nil {
		return err
	}
	if u == nil {
		return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("user not found: %s", in.UserID), nil)
	}
	if in.CourseID != uuid.Nil {
		c, err := a.deps.Courses.GetByID(dbc, in.CourseID)
		if err != nil {
			return err
		}
		if c == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("course not found: %s", in.CourseID), nil)
		}
		return nil
	}
	p, err := a.deps.Plans.GetByID(dbc, in.PlanID)
	if err != nil {
		return err
	}
	if p == nil {
		return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("plan not found: %s", in.PlanID), nil)
	}
	return nil
}

func newPaymentRow(in domainagg.RecordPaymentEventInput, at time.Time) *types.Payment {
	row := &types.Payment{
		TransactionID:           in.TransactionID,
		UserID:                  in.UserID,
		ProcessorSubscriptionID: in.ProcessorSubscriptionID,
		AmountMinor:             in.AmountMinor,
		Currency:                in.Currency,
		Method:                  in.Method,
		Status:                  in.Status,
		CreatedAt:               at,
		UpdatedAt:               at,
	}
	if in.CourseID != uuid.Nil {
		id := in.CourseID
		row.CourseID = &id
	} else {
		id := in.PlanID
		row.PlanID = &id
	}
	switch in.Status {
	case commerce.PaymentCompleted:
		row.CompletedAt = timePtr(at)
	case commerce.PaymentFailed:
		row.FailedAt = timePtr(at)
	}
	return row
}

// sameBinding reports whether a redelivered event names the same user and item as the stored row.
func sameBinding(p *types.Payment, in domainagg.RecordPaymentEventInput) bool {
	if p.UserID != in.UserID {
		return false
	}
	if in.CourseID != uuid.Nil {
		return p.CourseID != nil && *p.CourseID == in.CourseID
	}
	return p.PlanID != nil && *p.PlanID == in.PlanID
}

// applyStatus runs the side effects of a payment that just reached row.Status.
func (a *paymentAggregate) applyStatus(dbc dbctx.Context, op string, row *types.Payment, in domainagg.RecordPaymentEventInput, at time.Time, out *domainagg.RecordPaymentEventResult) error {
	out.Transitioned = row.Status.Terminal()
	out.Status = row.Status
	key := "payment:" + row.TransactionID
	switch row.Status {
	case commerce.PaymentFailed:
		return appendOutbox(dbc, a.deps.Outbox, notify.EventPaymentFailed, row.UserID, key, paymentPayload(row), at)
	case commerce.PaymentCompleted:
	default:
		return nil
	}

	if row.IsPlanPurchase() {
		if err := a.completePlanPurchase(dbc, op, row, at, out); err != nil {
			return err
		}
	} else {
		if err := a.completeCoursePurchase(dbc, row, at, out); err != nil {
			return err
		}
	}
	return appendOutbox(dbc, a.deps.Outbox, notify.EventPaymentCompleted, row.UserID, key, paymentPayload(row), at)
}

func (a *paymentAggregate) completeCoursePurchase(dbc dbctx.Context, row *types.Payment, at time.Time, out *domainagg.RecordPaymentEventResult) error {
	paymentID := row.ID
	created, err := a.deps.Enrollments.CreateIfAbsent(dbc, &types.Enrollment{
		UserID:          row.UserID,
		CourseID:        *row.CourseID,
		SourcePaymentID: &paymentID,
		EnrolledAt:      at,
		CreatedAt:       at,
	})
	if err != nil {
		return err
	}
	out.EnrollmentCreated = created
	if created {
		if err := a.deps.Courses.IncrementStudents(dbc, *row.CourseID, 1); err != nil {
			return err
		}
	}
	_, _, earned, err := a.engine.increment(dbc, row.UserID, achievements.StatCoursesPurchased, 1, "payment:"+row.TransactionID, at)
	if err != nil {
		return err
	}
	out.EarnedAchievements = append(out.EarnedAchievements, earned...)
	return nil
}

// completePlanPurchase renews the active row for the processor id or opens a new one.
func (a *paymentAggregate) completePlanPurchase(dbc dbctx.Context, op string, row *types.Payment, at time.Time, out *domainagg.RecordPaymentEventResult) error {
	plan, err := a.deps.Plans.GetByID(dbc, *row.PlanID)
	if err != nil {
		return err
	}
	if plan == nil {
		return domainagg.NewError(domainagg.CodePreconditionFailed, op, fmt.Sprintf("plan not found: %s", *row.PlanID), nil)
	}
	processorID := row.ProcessorSubscriptionID
	if processorID == "" {
		processorID = "txn:" + row.TransactionID
	}

	active, err := a.deps.Subscriptions.LockActiveByProcessorID(dbc, processorID)
	if err != nil {
		return err
	}
	var sub *types.Subscription
	if active != nil {
		if active.UserID != row.UserID {
			return domainagg.NewError(domainagg.CodeInvalidTransition, op,
				fmt.Sprintf("processor subscription %s belongs to another user", processorID), nil)
		}
		base := active.EndTime
		if at.After(base) {
			base = at
		}
		if _, err := a.lifecycle.renew(dbc, op, active, plan.PeriodEnd(base), at); err != nil {
			return err
		}
		sub = active
	} else {
		sub, err = a.lifecycle.open(dbc, op, domainagg.OpenSubscriptionInput{
			UserID:                  row.UserID,
			PlanID:                  plan.ID,
			ProcessorSubscriptionID: processorID,
			StartTime:               at,
		})
		if err != nil {
			return err
		}
		_, _, earned, err := a.engine.increment(dbc, row.UserID, achievements.StatSubscriptionsStarted, 1, "payment:"+row.TransactionID, at)
		if err != nil {
			return err
		}
		out.EarnedAchievements = append(out.EarnedAchievements, earned...)
	}
	if _, err := a.lifecycle.refreshUserExpiry(dbc, op, row.UserID); err != nil {
		return err
	}
	out.SubscriptionID = sub.ID
	out.SubscriptionEnd = timePtr(sub.EndTime)
	return nil
}

func paymentPayload(p *types.Payment) map[string]any {
	payload := map[string]any{
		"payment_id":     p.ID,
		"transaction_id": p.TransactionID,
		"amount_minor":   p.AmountMinor,
		"currency":       p.Currency,
		"status":         p.Status,
	}
	if p.CourseID != nil {
		payload["course_id"] = *p.CourseID
	}
	if p.PlanID != nil {
		payload["plan_id"] = *p.PlanID
	}
	return payload
}

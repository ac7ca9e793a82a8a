package aggregates

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	domainagg "github.com/yungbote/coursecommerce-backend/internal/domain/aggregates"
	"github.com/yungbote/coursecommerce-backend/internal/platform/dbctx"
)

func TestExecuteWriteObservesSuccessStatus(t *testing.T) {
	hooks := &spyHooks{}
	runner := spyTxRunner{}

	err := executeWrite(context.Background(), BaseDeps{
		Runner: runner,
		Hooks:  hooks,
	}, paymentWrite("Commerce.Payment.RecordEvent", "txn_ok"), func(_ dbctx.Context) error { return nil })
	if err != nil {
		t.Fatalf("executeWrite success: %v", err)
	}
	if len(hooks.Operations) != 1 {
		t.Fatalf("operations count: want=1 got=%d", len(hooks.Operations))
	}
	got := hooks.Operations[0]
	if got.Status != "success" {
		t.Fatalf("operation status: want=success got=%s", got.Status)
	}
	if got.Write.Entity != EntityPayment || got.Write.Key != "txn_ok" {
		t.Fatalf("operation write: %+v", got.Write)
	}
}

func TestExecuteWriteObservesInvariantViolationStatus(t *testing.T) {
	hooks := &spyHooks{}
	runner := spyTxRunner{}

	err := executeWrite(context.Background(), BaseDeps{
		Runner: runner,
		Hooks:  hooks,
	}, userWrite("Learning.Progress.RecordLessonProgress", EntityCourseProgress, uuid.Nil), func(_ dbctx.Context) error {
		return InvariantError("invariant broken")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domainagg.IsCode(err, domainagg.CodeInvariantViolation) {
		t.Fatalf("expected invariant violation code, got=%v", err)
	}
	if len(hooks.Operations) != 1 {
		t.Fatalf("operations count: want=1 got=%d", len(hooks.Operations))
	}
	if hooks.Operations[0].Status != string(domainagg.CodeInvariantViolation) {
		t.Fatalf("operation status: want=%s got=%s", domainagg.CodeInvariantViolation, hooks.Operations[0].Status)
	}
}

func TestExecuteWriteTracksConflictAndRetryCounters(t *testing.T) {
	t.Run("conflict", func(t *testing.T) {
		hooks := &spyHooks{}
		runner := spyTxRunner{}
		err := executeWrite(context.Background(), BaseDeps{
			Runner: runner,
			Hooks:  hooks,
		}, subscriptionWrite("Commerce.Subscription.Renew", "sub_contended"), func(_ dbctx.Context) error {
			return ConflictError("stale version")
		})
		if err == nil {
			t.Fatalf("expected error")
		}
		if !domainagg.IsCode(err, domainagg.CodeConflict) {
			t.Fatalf("expected conflict code, got=%v", err)
		}
		if len(hooks.Conflicts) != 1 || hooks.Conflicts[0] != "sub_contended" {
			t.Fatalf("conflict hooks: %+v", hooks.Conflicts)
		}
		if len(hooks.Retries) != 0 {
			t.Fatalf("retry hooks should be empty, got=%+v", hooks.Retries)
		}
		if len(hooks.Operations) != 1 || hooks.Operations[0].Status != string(domainagg.CodeConflict) {
			t.Fatalf("unexpected op status: %+v", hooks.Operations)
		}
	})

	t.Run("retryable", func(t *testing.T) {
		hooks := &spyHooks{}
		runner := spyTxRunner{}
		err := executeWrite(context.Background(), BaseDeps{
			Runner: runner,
			Hooks:  hooks,
		}, paymentWrite("Commerce.Payment.RecordEvent", " txn_locked "), func(_ dbctx.Context) error {
			return RetryableError("temporary lock timeout")
		})
		if err == nil {
			t.Fatalf("expected error")
		}
		if !domainagg.IsCode(err, domainagg.CodeRetryable) {
			t.Fatalf("expected retryable code, got=%v", err)
		}
		if len(hooks.Retries) != 1 || hooks.Retries[0] != "txn_locked" {
			t.Fatalf("retry hooks: %+v", hooks.Retries)
		}
		if len(hooks.Conflicts) != 0 {
			t.Fatalf("conflict hooks should be empty, got=%+v", hooks.Conflicts)
		}
		if len(hooks.Operations) != 1 || hooks.Operations[0].Status != string(domainagg.CodeRetryable) {
			t.Fatalf("unexpected op status: %+v", hooks.Operations)
		}
	})
}

func TestAggregateErrorStatus(t *testing.T) {
	if got := aggregateErrorStatus(nil); got != "success" {
		t.Fatalf("nil status: want=success got=%s", got)
	}
	if got := aggregateErrorStatus(InvariantError("x")); got != string(domainagg.CodeInvariantViolation) {
		t.Fatalf("invariant status: got=%s", got)
	}
	if got := aggregateErrorStatus(ConflictError("x")); got != string(domainagg.CodeConflict) {
		t.Fatalf("conflict status: got=%s", got)
	}
	if got := aggregateErrorStatus(RetryableError("x")); got != string(domainagg.CodeRetryable) {
		t.Fatalf("retry status: got=%s", got)
	}
	if got := aggregateErrorStatus(context.DeadlineExceeded); got != string(domainagg.CodeTimeout) {
		t.Fatalf("deadline status: got=%s", got)
	}
}

func TestWriteKeys(t *testing.T) {
	id := uuid.New()
	if w := userWrite("Engagement.Achievement.IncrementStat", EntityUserStat, id); w.Key != id.String() || w.Entity != EntityUserStat {
		t.Fatalf("user write: %+v", w)
	}
	if w := userWrite("Auth.PasswordReset.IssueToken", EntityResetToken, uuid.Nil); w.Key != "" {
		t.Fatalf("nil user should leave key empty: %+v", w)
	}
	if w := (Write{Op: "  ", Key: " sub_1 "}).normalized(); w.Op != "aggregate.write" || w.Key != "sub_1" {
		t.Fatalf("normalized: %+v", w)
	}
}

func TestExecuteWriteAppliesDefaultTimeout(t *testing.T) {
	hooks := &spyHooks{}
	var deadline time.Time
	err := executeWrite(context.Background(), BaseDeps{
		Runner:    spyTxRunner{},
		Hooks:     hooks,
		OpTimeout: 20 * time.Millisecond,
	}, Write{Op: "Commerce.Subscription.Expire", Entity: EntitySubscription}, func(dbc dbctx.Context) error {
		deadline, _ = dbc.Ctx.Deadline()
		<-dbc.Ctx.Done()
		return dbc.Ctx.Err()
	})
	if deadline.IsZero() {
		t.Fatalf("expected a deadline on the write context")
	}
	if !domainagg.IsCode(err, domainagg.CodeTimeout) {
		t.Fatalf("expected timeout code, got=%v", err)
	}
	if len(hooks.Operations) != 1 || hooks.Operations[0].Status != string(domainagg.CodeTimeout) {
		t.Fatalf("unexpected op status: %+v", hooks.Operations)
	}
}

func TestExecuteWriteKeepsCallerDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()
	want, _ := ctx.Deadline()
	err := executeWrite(ctx, BaseDeps{Runner: spyTxRunner{}, OpTimeout: time.Millisecond}, Write{Op: "Auth.PasswordReset.Redeem"}, func(dbc dbctx.Context) error {
		got, ok := dbc.Ctx.Deadline()
		if !ok || !got.Equal(want) {
			t.Errorf("deadline: want=%s got=%s", want, got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}

type spyInvalidator struct{ users []uuid.UUID }

func (s *spyInvalidator) Invalidate(_ context.Context, userID uuid.UUID) error {
	s.users = append(s.users, userID)
	return nil
}

func TestInvalidateSkipsNilUsers(t *testing.T) {
	inv := &spyInvalidator{}
	id := uuid.New()
	BaseDeps{Entitlements: inv}.withDefaults().invalidate(context.Background(), uuid.Nil, id)
	if len(inv.users) != 1 || inv.users[0] != id {
		t.Fatalf("invalidated users: %+v", inv.users)
	}
}

type spyTxRunner struct{}

func (spyTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(dbctx.Context{Ctx: ctx})
}

type spyHooks struct {
	Operations []spyOperation
	Conflicts  []string
	Retries    []string
}

type spyOperation struct {
	Write  Write
	Status string
}

func (h *spyHooks) Finished(w Write, status string, _ time.Duration) {
	h.Operations = append(h.Operations, spyOperation{Write: w, Status: status})
}

func (h *spyHooks) Conflicted(w Write) {
	h.Conflicts = append(h.Conflicts, w.Key)
}

func (h *spyHooks) Retryable(w Write) {
	h.Retries = append(h.Retries, w.Key)
}

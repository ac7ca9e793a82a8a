package aggregates

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	domainagg "github.com/yungbote/coursecommerce-backend/internal/domain/aggregates"
	"gorm.io/gorm"
)

func TestMapErrorCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want domainagg.ErrorCode
	}{
		{"validation", ValidationError("bad"), domainagg.CodeValidation},
		{"invariant", InvariantError("bad"), domainagg.CodeInvariantViolation},
		{"conflict", ConflictError("stale"), domainagg.CodeConflict},
		{"retryable", RetryableError("later"), domainagg.CodeRetryable},
		{"not found", gorm.ErrRecordNotFound, domainagg.CodeNotFound},
		{"deadline", context.DeadlineExceeded, domainagg.CodeTimeout},
		{"wrapped deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), domainagg.CodeTimeout},
		{"canceled", context.Canceled, domainagg.CodeRetryable},
		{"pg unique", &pgconn.PgError{Code: "23505"}, domainagg.CodeConflict},
		{"pg active subscription", &pgconn.PgError{Code: "23505", ConstraintName: "idx_subscriptions_active_processor"}, domainagg.CodeDuplicateSubscription},
		{"pg fk", &pgconn.PgError{Code: "23503"}, domainagg.CodePreconditionFailed},
		{"pg deadlock", &pgconn.PgError{Code: "40P01"}, domainagg.CodeRetryable},
		{"pg statement timeout", &pgconn.PgError{Code: "57014"}, domainagg.CodeTimeout},
		{"sqlite unique", errors.New("UNIQUE constraint failed: payments.transaction_id"), domainagg.CodeConflict},
		{"sqlite active subscription", errors.New("UNIQUE constraint failed: subscriptions.processor_subscription_id"), domainagg.CodeDuplicateSubscription},
		{"pg duplicate key text", errors.New(`duplicate key value violates unique constraint "idx_user_courses_user_course"`), domainagg.CodeConflict},
		{"sqlite locked", errors.New("database is locked"), domainagg.CodeRetryable},
		{"unknown", errors.New("boom"), domainagg.CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MapError("aggregate.test", tc.err)
			if !domainagg.IsCode(got, tc.want) {
				t.Fatalf("code: want=%s got=%s (%v)", tc.want, domainagg.CodeOf(got), got)
			}
		})
	}
}

func TestMapErrorPassesThroughAggregateErrors(t *testing.T) {
	orig := domainagg.NewError(domainagg.CodeSuperseded, "op", "newer token", nil)
	if got := MapError("other.op", fmt.Errorf("wrapped: %w", orig)); domainagg.CodeOf(got) != domainagg.CodeSuperseded {
		t.Fatalf("expected pass-through, got=%v", got)
	}
	if MapError("op", nil) != nil {
		t.Fatalf("nil error should map to nil")
	}
}

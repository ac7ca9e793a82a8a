package aggregates

import (
	"testing"

	"github.com/yungbote/coursecommerce-backend/internal/domain/notify"
)

func TestContractsCoverEveryOutboxEvent(t *testing.T) {
	contracts := []Contract{
		PaymentAggregateContract,
		SubscriptionAggregateContract,
		ProgressAggregateContract,
		AchievementAggregateContract,
		PasswordResetAggregateContract,
	}
	all := []string{
		notify.EventPaymentCompleted,
		notify.EventPaymentFailed,
		notify.EventSubscriptionActivated,
		notify.EventSubscriptionRenewed,
		notify.EventSubscriptionCanceled,
		notify.EventSubscriptionExpired,
		notify.EventCourseCompleted,
		notify.EventAchievementEarned,
	}
	for _, kind := range all {
		found := false
		for _, c := range contracts {
			if c.CanEmit(kind) {
				found = true
			}
		}
		if !found {
			t.Fatalf("no aggregate emits %s", kind)
		}
	}
	for _, c := range contracts {
		if c.Name == "" || c.IdempotencyKey == "" {
			t.Fatalf("incomplete contract: %+v", c)
		}
	}
	if len(PasswordResetAggregateContract.Emits) != 0 || PasswordResetAggregateContract.Entitlements {
		t.Fatalf("password reset must not touch the outbox or access: %+v", PasswordResetAggregateContract)
	}
	if !SubscriptionAggregateContract.PerItemCommit || PaymentAggregateContract.PerItemCommit {
		t.Fatalf("only the subscription sweep commits per row")
	}
	if ProgressAggregateContract.CanEmit(notify.EventPaymentCompleted) {
		t.Fatalf("progress must not emit payment events")
	}
}

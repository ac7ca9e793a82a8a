package testutil

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/coursecommerce-backend/internal/data/aggregates"
	"github.com/yungbote/coursecommerce-backend/internal/data/repos"
	repotest "github.com/yungbote/coursecommerce-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/coursecommerce-backend/internal/domain/aggregates"
	"github.com/yungbote/coursecommerce-backend/internal/domain/commerce"
)

type commerceFixture struct {
	ctx   context.Context
	db    *gorm.DB
	hooks *HooksRecorder
}

func newCommerceFixture(t *testing.T) *commerceFixture {
	t.Helper()
	return &commerceFixture{ctx: context.Background(), db: repotest.DB(t), hooks: &HooksRecorder{}}
}

func (f *commerceFixture) base(t *testing.T, runner aggregates.TxRunner) aggregates.BaseDeps {
	return aggregates.BaseDeps{DB: f.db, Log: repotest.Logger(t), Runner: runner, Hooks: f.hooks}
}

func (f *commerceFixture) payments(t *testing.T, runner aggregates.TxRunner) domainagg.PaymentAggregate {
	log := repotest.Logger(t)
	return aggregates.NewPaymentAggregate(aggregates.PaymentAggregateDeps{
		Base:             f.base(t, runner),
		Payments:         repos.NewPaymentRepo(f.db, log),
		Enrollments:      repos.NewEnrollmentRepo(f.db, log),
		Courses:          repos.NewCourseRepo(f.db, log),
		Plans:            repos.NewSubscriptionPlanRepo(f.db, log),
		Subscriptions:    repos.NewSubscriptionRepo(f.db, log),
		Users:            repos.NewUserRepo(f.db, log),
		Stats:            repos.NewUserStatRepo(f.db, log),
		Achievements:     repos.NewAchievementRepo(f.db, log),
		UserAchievements: repos.NewUserAchievementRepo(f.db, log),
		Outbox:           repos.NewOutboxRepo(f.db, log),
	})
}

func (f *commerceFixture) subscriptions(t *testing.T, runner aggregates.TxRunner) domainagg.SubscriptionAggregate {
	log := repotest.Logger(t)
	return aggregates.NewSubscriptionAggregate(aggregates.SubscriptionAggregateDeps{
		Base:          f.base(t, runner),
		Subscriptions: repos.NewSubscriptionRepo(f.db, log),
		Plans:         repos.NewSubscriptionPlanRepo(f.db, log),
		Users:         repos.NewUserRepo(f.db, log),
		Outbox:        repos.NewOutboxRepo(f.db, log),
	})
}

func (f *commerceFixture) completedCoursePayment(t *testing.T, txn string) domainagg.RecordPaymentEventInput {
	u := repotest.SeedUser(t, f.ctx, f.db)
	c := repotest.SeedCourse(t, f.ctx, f.db)
	return domainagg.RecordPaymentEventInput{
		TransactionID: txn,
		UserID:        u.ID,
		CourseID:      c.ID,
		AmountMinor:   2500,
		Currency:      "usd",
		Method:        "card",
		Status:        commerce.PaymentCompleted,
		OccurredAt:    time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *commerceFixture) count(t *testing.T, model any, where string, arg any) int64 {
	t.Helper()
	var n int64
	if err := f.db.WithContext(f.ctx).Model(model).Where(where, arg).Count(&n).Error; err != nil {
		t.Fatalf("count %T: %v", model, err)
	}
	return n
}

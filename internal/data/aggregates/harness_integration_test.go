package aggregates_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursecommerce-backend/internal/data/aggregates"
	aggtest "github.com/yungbote/coursecommerce-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/coursecommerce-backend/internal/data/repos"
	"github.com/yungbote/coursecommerce-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/coursecommerce-backend/internal/domain/aggregates"
	"github.com/yungbote/coursecommerce-backend/internal/domain/commerce"
	"github.com/yungbote/coursecommerce-backend/internal/platform/dbctx"
	"github.com/yungbote/coursecommerce-backend/internal/platform/passhash"
)

var fastHash = passhash.Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

type spyInvalidator struct {
	mu    sync.Mutex
	users []uuid.UUID
}

func (s *spyInvalidator) Invalidate(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, userID)
	return nil
}

func (s *spyInvalidator) count(userID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range s.users {
		if id == userID {
			n++
		}
	}
	return n
}

type harness struct {
	ctx   context.Context
	db    *gorm.DB
	dbc   dbctx.Context
	hooks *aggtest.HooksRecorder
	inval *spyInvalidator

	users         repos.UserRepo
	payments      repos.PaymentRepo
	enrollments   repos.EnrollmentRepo
	courses       repos.CourseRepo
	content       repos.ContentRepo
	plans         repos.SubscriptionPlanRepo
	subscriptions repos.SubscriptionRepo
	courseProg    repos.CourseProgressRepo
	lessonProg    repos.LessonProgressRepo
	stats         repos.UserStatRepo
	achievements  repos.AchievementRepo
	userAch       repos.UserAchievementRepo
	outbox        repos.OutboxRepo
	tokens        repos.PasswordResetTokenRepo
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	return &harness{
		ctx:           ctx,
		db:            db,
		dbc:           dbctx.Background(ctx),
		hooks:         &aggtest.HooksRecorder{},
		inval:         &spyInvalidator{},
		users:         repos.NewUserRepo(db, log),
		payments:      repos.NewPaymentRepo(db, log),
		enrollments:   repos.NewEnrollmentRepo(db, log),
		courses:       repos.NewCourseRepo(db, log),
		content:       repos.NewContentRepo(db, log),
		plans:         repos.NewSubscriptionPlanRepo(db, log),
		subscriptions: repos.NewSubscriptionRepo(db, log),
		courseProg:    repos.NewCourseProgressRepo(db, log),
		lessonProg:    repos.NewLessonProgressRepo(db, log),
		stats:         repos.NewUserStatRepo(db, log),
		achievements:  repos.NewAchievementRepo(db, log),
		userAch:       repos.NewUserAchievementRepo(db, log),
		outbox:        repos.NewOutboxRepo(db, log),
		tokens:        repos.NewPasswordResetTokenRepo(db, log),
	}
}

func (h *harness) base(t *testing.T) aggregates.BaseDeps {
	return aggregates.BaseDeps{
		DB:           h.db,
		Log:          testutil.Logger(t),
		Hooks:        h.hooks,
		Entitlements: h.inval,
	}
}

func (h *harness) paymentAgg(t *testing.T, base aggregates.BaseDeps) domainagg.PaymentAggregate {
	return aggregates.NewPaymentAggregate(aggregates.PaymentAggregateDeps{
		Base:             base,
		Payments:         h.payments,
		Enrollments:      h.enrollments,
		Courses:          h.courses,
		Plans:            h.plans,
		Subscriptions:    h.subscriptions,
		Users:            h.users,
		Stats:            h.stats,
		Achievements:     h.achievements,
		UserAchievements: h.userAch,
		Outbox:           h.outbox,
	})
}

func (h *harness) subscriptionAgg(t *testing.T) domainagg.SubscriptionAggregate {
	return aggregates.NewSubscriptionAggregate(aggregates.SubscriptionAggregateDeps{
		Base:          h.base(t),
		Subscriptions: h.subscriptions,
		Plans:         h.plans,
		Users:         h.users,
		Outbox:        h.outbox,
	})
}

func (h *harness) progressAgg(t *testing.T) domainagg.ProgressAggregate {
	return aggregates.NewProgressAggregate(aggregates.ProgressAggregateDeps{
		Base:             h.base(t),
		Content:          h.content,
		CourseProgress:   h.courseProg,
		LessonProgress:   h.lessonProg,
		Stats:            h.stats,
		Achievements:     h.achievements,
		UserAchievements: h.userAch,
		Outbox:           h.outbox,
	})
}

func (h *harness) achievementAgg(t *testing.T) domainagg.AchievementAggregate {
	return aggregates.NewAchievementAggregate(aggregates.AchievementAggregateDeps{
		Base:             h.base(t),
		Stats:            h.stats,
		Achievements:     h.achievements,
		UserAchievements: h.userAch,
		Outbox:           h.outbox,
	})
}

func (h *harness) resetAgg(t *testing.T, ttl time.Duration) domainagg.PasswordResetAggregate {
	p := fastHash
	return aggregates.NewPasswordResetAggregate(aggregates.PasswordResetAggregateDeps{
		Base:           h.base(t),
		Users:          h.users,
		Tokens:         h.tokens,
		TTL:            ttl,
		TokenParams:    &p,
		PasswordParams: &p,
	})
}

func (h *harness) statValue(t *testing.T, userID uuid.UUID, statType string) int64 {
	t.Helper()
	v, err := h.stats.GetValue(h.dbc, userID, statType)
	if err != nil {
		t.Fatalf("GetValue(%s): %v", statType, err)
	}
	return v
}

// redeliver repeats fn while it fails with a code the caller is expected to
// retry, the way a webhook sender redelivers.
func redeliver(fn func() error) error {
	var err error
	for i := 0; i < 10; i++ {
		err = fn()
		if !domainagg.IsCode(err, domainagg.CodeRetryable) && !domainagg.IsCode(err, domainagg.CodeConflict) {
			return err
		}
		time.Sleep(time.Duration(i+1) * 10 * time.Millisecond)
	}
	return err
}

func (h *harness) paymentCount(t *testing.T, txn string) int64 {
	t.Helper()
	var n int64
	if err := h.db.WithContext(h.ctx).Model(&commerce.Payment{}).Where("transaction_id = ?", txn).Count(&n).Error; err != nil {
		t.Fatalf("count payments %s: %v", txn, err)
	}
	return n
}

func (h *harness) outboxCount(t *testing.T, userID uuid.UUID, kind string) int {
	t.Helper()
	rows, err := h.outbox.ListByUser(h.dbc, userID, kind)
	if err != nil {
		t.Fatalf("outbox ListByUser: %v", err)
	}
	return len(rows)
}

func earnedCode(earned []domainagg.EarnedAchievement, code string) bool {
	for _, e := range earned {
		if e.Code == code {
			return true
		}
	}
	return false
}

func requireCode(t *testing.T, err error, code domainagg.ErrorCode) {
	t.Helper()
	if !domainagg.IsCode(err, code) {
		t.Fatalf("error code: want=%s got=%v", code, err)
	}
}

// ts returns a whole-second UTC instant so stored times compare exactly on every driver.
func ts(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
}

package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coursecommerce-backend/internal/data/repos"
	"github.com/yungbote/coursecommerce-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursecommerce-backend/internal/domain"
	domainagg "github.com/yungbote/coursecommerce-backend/internal/domain/aggregates"
	"github.com/yungbote/coursecommerce-backend/internal/platform/dbctx"
)

func TestAccountReads(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	svc := NewAccountService(log, AccountDeps{
		Users:            repos.NewUserRepo(db, log),
		Payments:         repos.NewPaymentRepo(db, log),
		Subscriptions:    repos.NewSubscriptionRepo(db, log),
		Enrollments:      repos.NewEnrollmentRepo(db, log),
		Courses:          repos.NewCourseRepo(db, log),
		CourseProgress:   repos.NewCourseProgressRepo(db, log),
		UserAchievements: repos.NewUserAchievementRepo(db, log),
		Stats:            repos.NewUserStatRepo(db, log),
	})

	owner := testutil.SeedUser(t, ctx, db)
	other := testutil.SeedUser(t, ctx, db)
	first := testutil.SeedCourse(t, ctx, db)
	second := testutil.SeedCourse(t, ctx, db)
	now := time.Now().UTC()

	payments := []*types.Payment{
		{TransactionID: "txn_acct_1", UserID: owner.ID, CourseID: &first.ID, AmountMinor: 1000, Currency: "usd", Method: "card", Status: types.PaymentStatus("completed"), CompletedAt: &now},
		{TransactionID: "txn_acct_2", UserID: owner.ID, CourseID: &second.ID, AmountMinor: 2000, Currency: "usd", Method: "card", Status: types.PaymentStatus("pending")},
		{TransactionID: "txn_acct_other", UserID: other.ID, CourseID: &first.ID, AmountMinor: 1000, Currency: "usd", Method: "card", Status: types.PaymentStatus("pending")},
	}
	if err := db.WithContext(ctx).Create(&payments).Error; err != nil {
		t.Fatalf("seed payments: %v", err)
	}
	enrollments := []*types.Enrollment{
		{ID: uuid.New(), UserID: owner.ID, CourseID: second.ID, EnrolledAt: now.Add(-time.Hour)},
		{ID: uuid.New(), UserID: owner.ID, CourseID: first.ID, EnrolledAt: now},
	}
	if err := db.WithContext(ctx).Create(&enrollments).Error; err != nil {
		t.Fatalf("seed enrollments: %v", err)
	}
	prog := &types.CourseProgress{ID: uuid.New(), UserID: owner.ID, CourseID: first.ID, CompletedLessons: 1, TotalLessons: 4, ProgressPercentage: 25, StartedAt: now, LastAccessedAt: now}
	if err := db.WithContext(ctx).Create(prog).Error; err != nil {
		t.Fatalf("seed progress: %v", err)
	}
	plan := testutil.SeedPlan(t, ctx, db, 1)
	testutil.SeedSubscription(t, ctx, db, owner.ID, plan.ID, "sub_acct_1", now, now.AddDate(0, 1, 0))
	earned := testutil.SeedAchievement(t, ctx, db, "acct_first", "courses_purchased", 1)
	pending := testutil.SeedAchievement(t, ctx, db, "acct_many", "courses_purchased", 10)
	dbc := dbctx.Context{Ctx: ctx}
	uaRepo := repos.NewUserAchievementRepo(db, log)
	if err := uaRepo.EnsureRows(dbc, owner.ID, []uuid.UUID{earned.ID, pending.ID}); err != nil {
		t.Fatalf("ensure rows: %v", err)
	}
	if _, err := uaRepo.MarkEarned(dbc, owner.ID, earned.ID, now); err != nil {
		t.Fatalf("mark earned: %v", err)
	}
	if _, err := repos.NewUserStatRepo(db, log).AddToValue(dbc, owner.ID, "courses_purchased", 2); err != nil {
		t.Fatalf("seed stat: %v", err)
	}

	gotPayments, err := svc.Payments(ctx, owner.ID, 0)
	if err != nil || len(gotPayments) != 2 {
		t.Fatalf("payments: n=%d err=%v", len(gotPayments), err)
	}
	p, err := svc.Payment(ctx, owner.ID, " txn_acct_1 ")
	if err != nil || p.AmountMinor != 1000 {
		t.Fatalf("payment: %+v err=%v", p, err)
	}
	if _, err := svc.Payment(ctx, owner.ID, "txn_acct_other"); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("foreign payment: want not_found got=%v", err)
	}
	if _, err := svc.Payment(ctx, owner.ID, "txn_missing"); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("missing payment: want not_found got=%v", err)
	}

	subs, err := svc.Subscriptions(ctx, owner.ID)
	if err != nil || len(subs) != 1 || subs[0].ProcessorSubscriptionID != "sub_acct_1" {
		t.Fatalf("subscriptions: %+v err=%v", subs, err)
	}

	courses, err := svc.Courses(ctx, owner.ID)
	if err != nil || len(courses) != 2 {
		t.Fatalf("courses: n=%d err=%v", len(courses), err)
	}
	if courses[0].ID != second.ID || courses[1].ID != first.ID {
		t.Fatalf("courses not in enrollment order: %v %v", courses[0].ID, courses[1].ID)
	}

	rows, err := svc.Progress(ctx, owner.ID)
	if err != nil || len(rows) != 1 {
		t.Fatalf("progress: n=%d err=%v", len(rows), err)
	}
	one, err := svc.CourseProgress(ctx, owner.ID, first.ID)
	if err != nil || one.ProgressPercentage != 25 {
		t.Fatalf("course progress: %+v err=%v", one, err)
	}
	if _, err := svc.CourseProgress(ctx, owner.ID, second.ID); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("untouched course: want not_found got=%v", err)
	}

	achs, err := svc.Achievements(ctx, owner.ID)
	if err != nil || len(achs) != 1 || achs[0].AchievementID != earned.ID {
		t.Fatalf("achievements: %+v err=%v", achs, err)
	}
	stats, err := svc.Stats(ctx, owner.ID)
	if err != nil || len(stats) != 1 || stats[0].Value != 2 {
		t.Fatalf("stats: %+v err=%v", stats, err)
	}

	ghost := uuid.New()
	if _, err := svc.Payments(ctx, ghost, 10); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("unknown user: want not_found got=%v", err)
	}
	if _, err := svc.Stats(ctx, uuid.Nil); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("nil user: want validation got=%v", err)
	}
	empty, err := svc.Courses(ctx, other.ID)
	if err != nil || len(empty) != 0 {
		t.Fatalf("other user courses: %+v err=%v", empty, err)
	}
}

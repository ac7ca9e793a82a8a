package user

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coursecommerce-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursecommerce-backend/internal/domain"
	"github.com/yungbote/coursecommerce-backend/internal/domain/notify"
)

var userOwnedTables = []string{
	"user_settings",
	"payments",
	"user_courses",
	"subscriptions",
	"course_progress",
	"user_lesson_progress",
	"user_stats",
	"user_stat_events",
	"user_achievements",
	"notifications",
	"outbox_events",
	"password_reset_tokens",
}

func TestDeletingUserCascadesToOwnedRows(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	u := testutil.SeedUser(t, ctx, db)
	bystander := testutil.SeedUser(t, ctx, db)
	course, lessons := testutil.SeedCourseWithLessons(t, ctx, db, 1)
	plan := testutil.SeedPlan(t, ctx, db, 1)
	ach := testutil.SeedAchievement(t, ctx, db, "cascade_"+uuid.NewString()[:8], "courses_purchased", 1)

	seedOwned := func(owner *types.User, tag string) {
		t.Helper()
		rows := []any{
			&types.UserSettings{ID: uuid.New(), UserID: owner.ID, Theme: "light"},
			&types.Payment{ID: uuid.New(), TransactionID: "txn_" + tag, UserID: owner.ID, CourseID: &course.ID, AmountMinor: 100, Currency: "USD", Method: "card", Status: types.PaymentCompleted, CompletedAt: &now},
			&types.Enrollment{ID: uuid.New(), UserID: owner.ID, CourseID: course.ID, EnrolledAt: now},
			&types.Subscription{ID: uuid.New(), UserID: owner.ID, PlanID: &plan.ID, ProcessorSubscriptionID: "sub_" + tag, Status: types.SubscriptionActive, StartTime: now, EndTime: now.AddDate(0, 1, 0)},
			&types.CourseProgress{ID: uuid.New(), UserID: owner.ID, CourseID: course.ID, StartedAt: now, LastAccessedAt: now},
			&types.UserLessonProgress{ID: uuid.New(), UserID: owner.ID, LessonID: lessons[0].ID, StartedAt: now, LastAccessedAt: now},
			&types.UserStat{ID: uuid.New(), UserID: owner.ID, StatType: "courses_purchased", Value: 1},
			&types.UserStatEvent{ID: uuid.New(), UserID: owner.ID, StatType: "courses_purchased", SourceKey: "payment:" + tag, Delta: 1, OccurredAt: now},
			&types.UserAchievement{ID: uuid.New(), UserID: owner.ID, AchievementID: ach.ID, Earned: true, EarnedAt: &now},
			&types.Notification{ID: uuid.New(), UserID: owner.ID, Kind: notify.EventPaymentCompleted, Channel: notify.ChannelInApp, Title: "Payment received", DedupeKey: "dedupe_" + tag},
			&types.OutboxEvent{ID: uuid.New(), Kind: notify.EventPaymentCompleted, UserID: owner.ID, AggregateKey: "payment:" + tag, OccurredAt: now},
			&types.PasswordResetToken{ID: uuid.New(), UserID: owner.ID, Version: 1, Salt: "s", TokenHash: "h", ExpiresAt: now.Add(time.Hour)},
		}
		for _, row := range rows {
			if err := db.WithContext(ctx).Create(row).Error; err != nil {
				t.Fatalf("seed %T: %v", row, err)
			}
		}
	}
	seedOwned(u, "gone")
	seedOwned(bystander, "kept")

	count := func(table string, userID uuid.UUID) int64 {
		t.Helper()
		var n int64
		if err := db.WithContext(ctx).Table(table).Where("user_id = ?", userID).Count(&n).Error; err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		return n
	}
	for _, table := range userOwnedTables {
		if n := count(table, u.ID); n != 1 {
			t.Fatalf("%s before delete: want=1 got=%d", table, n)
		}
	}

	if err := db.WithContext(ctx).Delete(&types.User{}, "id = ?", u.ID).Error; err != nil {
		t.Fatalf("delete user: %v", err)
	}
	for _, table := range userOwnedTables {
		if n := count(table, u.ID); n != 0 {
			t.Fatalf("%s after delete: want=0 got=%d", table, n)
		}
		if n := count(table, bystander.ID); n != 1 {
			t.Fatalf("%s for other user: want=1 got=%d", table, n)
		}
	}
}

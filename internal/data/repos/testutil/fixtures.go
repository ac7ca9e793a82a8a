package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/coursecommerce-backend/internal/domain"
	"github.com/yungbote/coursecommerce-backend/internal/domain/catalog"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB) *types.User {
	tb.Helper()
	id := uuid.New()
	u := &types.User{
		ID:           id,
		Email:        fmt.Sprintf("user-%s@example.com", id.String()[:8]),
		PasswordHash: "pw",
		Role:         types.RoleUser,
		FirstName:    "A",
		LastName:     "B",
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB) *types.Course {
	tb.Helper()
	c := &types.Course{
		ID:         uuid.New(),
		Title:      "course",
		PriceMinor: 1999,
		Currency:   "USD",
		Level:      catalog.LevelBeginner,
		Category:   catalog.CategoryProgramming,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

// SeedCourseWithLessons creates a course with one module holding n lessons at positions 1..n.
func SeedCourseWithLessons(tb testing.TB, ctx context.Context, tx *gorm.DB, n int) (*types.Course, []*types.Lesson) {
	tb.Helper()
	c := SeedCourse(tb, ctx, tx)
	m := SeedModule(tb, ctx, tx, c.ID, 1)
	lessons := make([]*types.Lesson, 0, n)
	for i := 1; i <= n; i++ {
		lessons = append(lessons, SeedLesson(tb, ctx, tx, m.ID, i))
	}
	return c, lessons
}

func SeedModule(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, position int) *types.Module {
	tb.Helper()
	m := &types.Module{
		ID:       uuid.New(),
		CourseID: courseID,
		Title:    fmt.Sprintf("module %d", position),
		Position: position,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed module: %v", err)
	}
	return m
}

func SeedLesson(tb testing.TB, ctx context.Context, tx *gorm.DB, moduleID uuid.UUID, position int) *types.Lesson {
	tb.Helper()
	l := &types.Lesson{
		ID:              uuid.New(),
		ModuleID:        moduleID,
		Title:           fmt.Sprintf("lesson %d", position),
		Type:            catalog.LessonVideo,
		DurationSeconds: 300,
		Position:        position,
	}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed lesson: %v", err)
	}
	return l
}

func SeedVideo(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, position int) *types.Video {
	tb.Helper()
	v := &types.Video{
		ID:              uuid.New(),
		CourseID:        courseID,
		Title:           fmt.Sprintf("video %d", position),
		URL:             fmt.Sprintf("https://cdn.example.com/v/%d.mp4", position),
		DurationSeconds: 120,
		Position:        position,
	}
	if err := tx.WithContext(ctx).Create(v).Error; err != nil {
		tb.Fatalf("seed video: %v", err)
	}
	return v
}

func SeedPlan(tb testing.TB, ctx context.Context, tx *gorm.DB, months int) *types.SubscriptionPlan {
	tb.Helper()
	id := uuid.New()
	p := &types.SubscriptionPlan{
		ID:              id,
		Name:            fmt.Sprintf("%d month plan", months),
		PriceMinor:      999,
		Currency:        "USD",
		DurationMonths:  months,
		ProcessorPlanID: "plan_" + id.String()[:8],
		Active:          true,
		CatalogueAccess: true,
		Features:        datatypes.JSON([]byte(`["all courses"]`)),
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed plan: %v", err)
	}
	return p
}

func SeedSubscription(tb testing.TB, ctx context.Context, tx *gorm.DB, userID, planID uuid.UUID, processorID string, start, end time.Time) *types.Subscription {
	tb.Helper()
	s := &types.Subscription{
		ID:                      uuid.New(),
		UserID:                  userID,
		ProcessorSubscriptionID: processorID,
		Status:                  types.SubscriptionActive,
		StartTime:               start.UTC(),
		EndTime:                 end.UTC(),
	}
	if planID != uuid.Nil {
		s.PlanID = PtrUUID(planID)
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed subscription: %v", err)
	}
	return s
}

func SeedAchievement(tb testing.TB, ctx context.Context, tx *gorm.DB, code, statType string, threshold int64) *types.Achievement {
	tb.Helper()
	a := &types.Achievement{
		ID:           uuid.New(),
		Code:         code,
		Title:        code,
		TriggerType:  statType,
		TriggerValue: threshold,
		Active:       true,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed achievement: %v", err)
	}
	return a
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }

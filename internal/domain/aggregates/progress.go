package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coursecommerce-backend/internal/domain/notify"
)

var ProgressAggregateContract = Contract{
	Name:           "Learning.ProgressAggregate",
	IdempotencyKey: "user_id+lesson_id",
	Emits:          []string{notify.EventCourseCompleted, notify.EventAchievementEarned},
	Notes:          "Upserts lesson progress and re-derives course progress from lesson rows in the same transaction.",
}

// ProgressAggregate rolls lesson completion into course progress.
//
// Write method failures return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeTimeout, CodeRetryable, CodeInternal.
type ProgressAggregate interface {
	Aggregate

	RecordLessonProgress(ctx context.Context, in RecordLessonProgressInput) (RecordLessonProgressResult, error)
}

type RecordLessonProgressInput struct {
	UserID    uuid.UUID
	LessonID  uuid.UUID
	Completed bool
	// Fraction of the lesson consumed, in [0,1].
	Fraction float64
	At       time.Time
}

type RecordLessonProgressResult struct {
	CourseID uuid.UUID

	LessonCompleted      bool
	LessonNewlyCompleted bool
	LessonProgress       float64

	CompletedLessons     int
	TotalLessons         int
	ProgressPercentage   float64
	CourseCompletedAt    *time.Time
	CourseNewlyCompleted bool

	EarnedAchievements []EarnedAchievement
}

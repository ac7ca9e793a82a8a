package aggregates

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coursecommerce-backend/internal/data/repos"
	types "github.com/yungbote/coursecommerce-backend/internal/domain"
	"github.com/yungbote/coursecommerce-backend/internal/domain/achievements"
	domainagg "github.com/yungbote/coursecommerce-backend/internal/domain/aggregates"
	"github.com/yungbote/coursecommerce-backend/internal/domain/notify"
	"github.com/yungbote/coursecommerce-backend/internal/domain/progress"
	"github.com/yungbote/coursecommerce-backend/internal/platform/dbctx"
)

type ProgressAggregateDeps struct {
	Base BaseDeps

	Content        repos.ContentRepo
	CourseProgress repos.CourseProgressRepo
	LessonProgress repos.LessonProgressRepo

	Stats            repos.UserStatRepo
	Achievements     repos.AchievementRepo
	UserAchievements repos.UserAchievementRepo
	Outbox           repos.OutboxRepo
}

type progressAggregate struct {
	deps   ProgressAggregateDeps
	engine statEngine
}

func NewProgressAggregate(deps ProgressAggregateDeps) domainagg.ProgressAggregate {
	deps.Base = deps.Base.withDefaults()
	return &progressAggregate{
		deps: deps,
		engine: statEngine{
			stats:            deps.Stats,
			achievements:     deps.Achievements,
			userAchievements: deps.UserAchievements,
			outbox:           deps.Outbox,
		},
	}
}

func (a *progressAggregate) Contract() domainagg.Contract {
	return domainagg.ProgressAggregateContract
}

func (a *progressAggregate) RecordLessonProgress(ctx context.Context, in domainagg.RecordLessonProgressInput) (domainagg.RecordLessonProgressResult, error) {
	const op = "Learning.Progress.RecordLessonProgress"
	var out domainagg.RecordLessonProgressResult
	if in.UserID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	if in.LessonID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing lesson_id", nil)
	}
	if math.IsNaN(in.Fraction) || in.Fraction < 0 || in.Fraction > 1 {
		return out, domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("fraction %v outside [0,1]", in.Fraction), nil)
	}
	if a.deps.Content == nil || a.deps.CourseProgress == nil || a.deps.LessonProgress == nil || !a.engine.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "progress aggregate repos not configured", nil)
	}
	at := a.deps.Base.now(in.At)

	err := executeWrite(ctx, a.deps.Base, userWrite(op, EntityCourseProgress, in.UserID), func(dbc dbctx.Context) error {
		out = domainagg.RecordLessonProgressResult{}
		ref, err := a.deps.Content.ResolveLesson(dbc, in.LessonID)
		if err != nil {
			return err
		}
		if ref == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("lesson not found: %s", in.LessonID), nil)
		}
		out.CourseID = ref.CourseID

		// The course row lock serializes every call for this (user, course).
		if err := a.deps.CourseProgress.EnsureExists(dbc, in.UserID, ref.CourseID, at); err != nil {
			return err
		}
		cp, err := a.deps.CourseProgress.LockByUserCourse(dbc, in.UserID, ref.CourseID)
		if err != nil {
			return err
		}
		if cp == nil {
			return RetryableError("course progress row missing after ensure")
		}

		if err := a.upsertLesson(dbc, in, at, &out); err != nil {
			return err
		}
		if out.LessonNewlyCompleted {
			_, _, earned, err := a.engine.increment(dbc, in.UserID, achievements.StatLessonsCompleted, 1, "lesson:"+in.LessonID.String(), at)
			if err != nil {
				return err
			}
			out.EarnedAchievements = append(out.EarnedAchievements, earned...)
		}

		total, err := a.deps.Content.CountLessonsInCourse(dbc, ref.CourseID)
		if err != nil {
			return err
		}
		completed, err := a.deps.LessonProgress.CountCompletedInCourse(dbc, in.UserID, ref.CourseID)
		if err != nil {
			return err
		}
		pct := progress.Percentage(int(completed), int(total))
		out.CompletedLessons = int(completed)
		out.TotalLessons = int(total)
		out.ProgressPercentage = pct
		out.CourseCompletedAt = cp.CompletedAt

		updates := map[string]interface{}{
			"progress_percentage": pct,
			"completed_lessons":   int(completed),
			"total_lessons":       int(total),
			"last_accessed_at":    at,
		}
		newlyDone := pct >= 100 && cp.CompletedAt == nil
		if newlyDone {
			updates["completed_at"] = at
			out.CourseCompletedAt = timePtr(at)
			out.CourseNewlyCompleted = true
		}
		if err := a.deps.CourseProgress.UpdateFields(dbc, cp.ID, updates); err != nil {
			return err
		}
		if !newlyDone {
			return nil
		}

		_, _, earned, err := a.engine.increment(dbc, in.UserID, achievements.StatCoursesCompleted, 1, "course:"+ref.CourseID.String(), at)
		if err != nil {
			return err
		}
		out.EarnedAchievements = append(out.EarnedAchievements, earned...)
		return appendOutbox(dbc, a.deps.Outbox, notify.EventCourseCompleted, in.UserID, "course:"+ref.CourseID.String(), map[string]any{
			"course_id":     ref.CourseID,
			"total_lessons": int(total),
			"completed_at":  at,
		}, at)
	})
	if err != nil {
		return domainagg.RecordLessonProgressResult{}, err
	}
	return out, nil
}

// upsertLesson applies the sticky completion rules: completion never reverts,
// completed_at is set once, and the fraction only grows.
func (a *progressAggregate) upsertLesson(dbc dbctx.Context, in domainagg.RecordLessonProgressInput, at time.Time, out *domainagg.RecordLessonProgressResult) error {
	lp, err := a.deps.LessonProgress.GetByUserLesson(dbc, in.UserID, in.LessonID)
	if err != nil {
		return err
	}
	if lp == nil {
		row := &types.UserLessonProgress{
			UserID:         in.UserID,
			LessonID:       in.LessonID,
			IsCompleted:    in.Completed,
			Progress:       in.Fraction,
			StartedAt:      at,
			LastAccessedAt: at,
			CreatedAt:      at,
			UpdatedAt:      at,
		}
		if in.Completed {
			row.Progress = 1
			row.CompletedAt = timePtr(at)
		}
		if err := a.deps.LessonProgress.Create(dbc, row); err != nil {
			return err
		}
		out.LessonCompleted = row.IsCompleted
		out.LessonNewlyCompleted = row.IsCompleted
		out.LessonProgress = row.Progress
		return nil
	}

	updates := map[string]interface{}{"last_accessed_at": at}
	fraction := math.Max(lp.Progress, in.Fraction)
	completed := lp.IsCompleted
	if in.Completed && !lp.IsCompleted {
		completed = true
		out.LessonNewlyCompleted = true
		updates["is_completed"] = true
		if lp.CompletedAt == nil {
			updates["completed_at"] = at
		}
	}
	if completed {
		fraction = 1
	}
	if fraction != lp.Progress {
		updates["progress"] = fraction
	}
	if err := a.deps.LessonProgress.UpdateFields(dbc, lp.ID, updates); err != nil {
		return err
	}
	out.LessonCompleted = completed
	out.LessonProgress = fraction
	return nil
}

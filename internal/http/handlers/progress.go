package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainagg "github.com/yungbote/coursecommerce-backend/internal/domain/aggregates"
	"github.com/yungbote/coursecommerce-backend/internal/http/response"
)

// ProgressHandler takes lesson reports from the player plus stat increments
// from the auth layer.
type ProgressHandler struct {
	progress     domainagg.ProgressAggregate
	achievements domainagg.AchievementAggregate
}

func NewProgressHandler(progress domainagg.ProgressAggregate, achievements domainagg.AchievementAggregate) *ProgressHandler {
	return &ProgressHandler{progress: progress, achievements: achievements}
}

type lessonProgressRequest struct {
	UserID    string    `json:"user_id"`
	LessonID  string    `json:"lesson_id"`
	Completed bool      `json:"completed"`
	Fraction  float64   `json:"fraction"`
	At        time.Time `json:"at"`
}

// POST /api/progress/lessons
func (h *ProgressHandler) RecordLesson(c *gin.Context) {
	var req lessonProgressRequest
	if !bindJSON(c, &req) {
		return
	}
	userID, err := uuid.Parse(strings.TrimSpace(req.UserID))
	if err != nil {
		badField(c, "user_id", err)
		return
	}
	lessonID, err := uuid.Parse(strings.TrimSpace(req.LessonID))
	if err != nil {
		badField(c, "lesson_id", err)
		return
	}
	res, err := h.progress.RecordLessonProgress(c.Request.Context(), domainagg.RecordLessonProgressInput{
		UserID:    userID,
		LessonID:  lessonID,
		Completed: req.Completed,
		Fraction:  req.Fraction,
		At:        req.At,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"course_id":              res.CourseID,
		"lesson_completed":       res.LessonCompleted,
		"lesson_progress":        res.LessonProgress,
		"completed_lessons":      res.CompletedLessons,
		"total_lessons":          res.TotalLessons,
		"progress_percentage":    res.ProgressPercentage,
		"course_completed_at":    res.CourseCompletedAt,
		"course_newly_completed": res.CourseNewlyCompleted,
		"earned":                 earnedResponse(res.EarnedAchievements),
	})
}

type statIncrementRequest struct {
	UserID    string    `json:"user_id"`
	StatType  string    `json:"stat_type"`
	Delta     int64     `json:"delta"`
	SourceKey string    `json:"source_key"`
	At        time.Time `json:"at"`
}

// POST /api/stats/increment
func (h *ProgressHandler) IncrementStat(c *gin.Context) {
	var req statIncrementRequest
	if !bindJSON(c, &req) {
		return
	}
	userID, err := uuid.Parse(strings.TrimSpace(req.UserID))
	if err != nil {
		badField(c, "user_id", err)
		return
	}
	if req.Delta < 0 {
		badField(c, "delta", errors.New("delta must be positive"))
		return
	}
	if req.Delta == 0 {
		req.Delta = 1
	}
	res, err := h.achievements.IncrementStat(c.Request.Context(), domainagg.IncrementStatInput{
		UserID:    userID,
		StatType:  req.StatType,
		Delta:     req.Delta,
		SourceKey: req.SourceKey,
		At:        req.At,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"stat_type": req.StatType,
		"value":     res.Value,
		"applied":   res.Applied,
		"earned":    earnedResponse(res.Earned),
	})
}

// POST /api/users/:id/stats/rebuild
func (h *ProgressHandler) RebuildStats(c *gin.Context) {
	userID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	res, err := h.achievements.RebuildStats(c.Request.Context(), domainagg.RebuildStatsInput{UserID: userID})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"stats": res.Values, "changed": res.Changed})
}

package progress

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursecommerce-backend/internal/domain/catalog"
	"github.com/yungbote/coursecommerce-backend/internal/domain/user"
)

// CourseProgress is derived state: every field except LastAccessedAt is recomputed
// from UserLessonProgress rows.
type CourseProgress struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID             uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_course_progress_user_course" json:"user_id"`
	User               *user.User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	CourseID           uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_course_progress_user_course" json:"course_id"`
	Course             *catalog.Course `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"-"`
	ProgressPercentage float64         `gorm:"not null;column:progress_percentage" json:"progress_percentage"`
	CompletedLessons   int             `gorm:"not null;column:completed_lessons" json:"completed_lessons"`
	TotalLessons       int             `gorm:"not null;column:total_lessons" json:"total_lessons"`
	StartedAt          time.Time       `gorm:"not null;column:started_at" json:"started_at"`
	LastAccessedAt     time.Time       `gorm:"not null;column:last_accessed_at" json:"last_accessed_at"`
	CompletedAt        *time.Time      `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt          time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"not null" json:"updated_at"`
}

func (CourseProgress) TableName() string { return "course_progress" }

func (p *CourseProgress) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type UserLessonProgress struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_user_lesson_progress_user_lesson" json:"user_id"`
	User           *user.User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	LessonID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_user_lesson_progress_user_lesson;index" json:"lesson_id"`
	Lesson         *catalog.Lesson `gorm:"constraint:OnDelete:CASCADE;foreignKey:LessonID;references:ID" json:"-"`
	IsCompleted    bool            `gorm:"not null;column:is_completed" json:"is_completed"`
	Progress       float64         `gorm:"not null;column:progress" json:"progress"`
	StartedAt      time.Time       `gorm:"not null;column:started_at" json:"started_at"`
	CompletedAt    *time.Time      `gorm:"column:completed_at" json:"completed_at,omitempty"`
	LastAccessedAt time.Time       `gorm:"not null;column:last_accessed_at" json:"last_accessed_at"`
	CreatedAt      time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null" json:"updated_at"`
}

func (UserLessonProgress) TableName() string { return "user_lesson_progress" }

func (p *UserLessonProgress) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Percentage is 100*completed/total, 0 for an empty course, capped at 100.
func Percentage(completed, total int) float64 {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	return 100 * float64(completed) / float64(total)
}

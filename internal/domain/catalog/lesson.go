package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LessonType string

const (
	LessonVideo    LessonType = "video"
	LessonExercise LessonType = "exercise"
	LessonQuiz     LessonType = "quiz"
)

func (t LessonType) Valid() bool {
	switch t {
	case LessonVideo, LessonExercise, LessonQuiz:
		return true
	}
	return false
}

type Lesson struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ModuleID        uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_lessons_module_position" json:"module_id"`
	Module          *Module    `gorm:"constraint:OnDelete:CASCADE;foreignKey:ModuleID;references:ID" json:"-"`
	Title           string     `gorm:"not null;column:title" json:"title"`
	Type            LessonType `gorm:"not null;column:type" json:"type"`
	Content         string     `gorm:"column:content" json:"content"`
	VideoURL        string     `gorm:"column:video_url" json:"video_url"`
	DurationSeconds int        `gorm:"not null;column:duration_seconds" json:"duration_seconds"`
	Position        int        `gorm:"not null;column:position;uniqueIndex:idx_lessons_module_position" json:"position"`

	// Authoring flag ("content finished"). Per-user completion lives in UserLessonProgress.
	Completed bool `gorm:"not null;column:completed" json:"completed"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Lesson) TableName() string { return "lessons" }

func (l *Lesson) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Video is the legacy flat content list hanging directly off a course.
type Video struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_videos_course_position" json:"course_id"`
	Course          *Course   `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"-"`
	Title           string    `gorm:"not null;column:title" json:"title"`
	URL             string    `gorm:"not null;column:url" json:"url"`
	DurationSeconds int       `gorm:"not null;column:duration_seconds" json:"duration_seconds"`
	Position        int       `gorm:"not null;column:position;uniqueIndex:idx_videos_course_position" json:"position"`
	CreatedAt       time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null" json:"updated_at"`
}

func (Video) TableName() string { return "videos" }

func (v *Video) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

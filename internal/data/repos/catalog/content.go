package catalog

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/coursecommerce-backend/internal/domain"
	"github.com/yungbote/coursecommerce-backend/internal/platform/dbctx"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
)

// LessonRef locates a lesson inside its course.
type LessonRef struct {
	LessonID uuid.UUID
	ModuleID uuid.UUID
	CourseID uuid.UUID
}

type ContentRepo interface {
	// ResolveLesson maps a lesson to its module and course; nil when the lesson does not exist.
	ResolveLesson(dbc dbctx.Context, lessonID uuid.UUID) (*LessonRef, error)
	CountLessonsInCourse(dbc dbctx.Context, courseID uuid.UUID) (int64, error)

	ListModules(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Module, error)
	ListLessons(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Lesson, error)
	ListVideos(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Video, error)
}

type contentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentRepo(db *gorm.DB, baseLog *logger.Logger) ContentRepo {
	return &contentRepo{db: db, log: baseLog.With("repo", "ContentRepo")}
}

func (r *contentRepo) tx(dbc dbctx.Context) *gorm.DB {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx)
}

func (r *contentRepo) ResolveLesson(dbc dbctx.Context, lessonID uuid.UUID) (*LessonRef, error) {
	if lessonID == uuid.Nil {
		return nil, nil
	}
	var rows []struct {
		LessonID uuid.UUID
		ModuleID uuid.UUID
		CourseID uuid.UUID
	}
	if err := r.tx(dbc).
		Table("lessons AS l").
		Select("l.id AS lesson_id, l.module_id AS module_id, m.course_id AS course_id").
		Joins("JOIN modules AS m ON m.id = l.module_id").
		Where("l.id = ?", lessonID).
		Limit(1).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &LessonRef{LessonID: rows[0].LessonID, ModuleID: rows[0].ModuleID, CourseID: rows[0].CourseID}, nil
}

func (r *contentRepo) CountLessonsInCourse(dbc dbctx.Context, courseID uuid.UUID) (int64, error) {
	if courseID == uuid.Nil {
		return 0, nil
	}
	var n int64
	err := r.tx(dbc).
		Model(&types.Lesson{}).
		Joins("JOIN modules ON modules.id = lessons.module_id").
		Where("modules.course_id = ?", courseID).
		Count(&n).Error
	return n, err
}

func (r *contentRepo) ListModules(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Module, error) {
	out := []*types.Module{}
	if courseID == uuid.Nil {
		return out, nil
	}
	if err := r.tx(dbc).Where("course_id = ?", courseID).Order("position ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *contentRepo) ListLessons(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Lesson, error) {
	out := []*types.Lesson{}
	if courseID == uuid.Nil {
		return out, nil
	}
	if err := r.tx(dbc).
		Select("lessons.*").
		Joins("JOIN modules ON modules.id = lessons.module_id").
		Where("modules.course_id = ?", courseID).
		Order("modules.position ASC, lessons.position ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *contentRepo) ListVideos(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Video, error) {
	out := []*types.Video{}
	if courseID == uuid.Nil {
		return out, nil
	}
	if err := r.tx(dbc).Where("course_id = ?", courseID).Order("position ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

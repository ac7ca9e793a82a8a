package progress

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/coursecommerce-backend/internal/domain"
	"github.com/yungbote/coursecommerce-backend/internal/platform/dbctx"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
)

type CourseProgressRepo interface {
	// EnsureExists creates the (user, course) row when missing; an existing row is left untouched.
	EnsureExists(dbc dbctx.Context, userID, courseID uuid.UUID, at time.Time) error
	LockByUserCourse(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.CourseProgress, error)
	GetByUserCourse(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.CourseProgress, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.CourseProgress, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type courseProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseProgressRepo(db *gorm.DB, baseLog *logger.Logger) CourseProgressRepo {
	return &courseProgressRepo{db: db, log: baseLog.With("repo", "CourseProgressRepo")}
}

func (r *courseProgressRepo) EnsureExists(dbc dbctx.Context, userID, courseID uuid.UUID, at time.Time) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil || courseID == uuid.Nil {
		return nil
	}
	at = at.UTC()
	row := &types.CourseProgress{
		UserID:         userID,
		CourseID:       courseID,
		StartedAt:      at,
		LastAccessedAt: at,
	}
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).
		Create(row).Error
}

func (r *courseProgressRepo) LockByUserCourse(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.CourseProgress, error) {
	return r.find(dbc, true, userID, courseID)
}

func (r *courseProgressRepo) GetByUserCourse(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.CourseProgress, error) {
	return r.find(dbc, false, userID, courseID)
}

func (r *courseProgressRepo) find(dbc dbctx.Context, lock bool, userID, courseID uuid.UUID) (*types.CourseProgress, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil || courseID == uuid.Nil {
		return nil, nil
	}
	q := t.WithContext(dbc.Ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row types.CourseProgress
	if err := q.Where("user_id = ? AND course_id = ?", userID, courseID).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *courseProgressRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.CourseProgress, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	out := []*types.CourseProgress{}
	if userID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("last_accessed_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *courseProgressRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.CourseProgress{}).
		Where("id = ?", id).
		Updates(updates).Error
}

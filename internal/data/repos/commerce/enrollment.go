package commerce

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/coursecommerce-backend/internal/domain"
	"github.com/yungbote/coursecommerce-backend/internal/platform/dbctx"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
)

type EnrollmentRepo interface {
	// CreateIfAbsent inserts the (user, course) enrollment; an existing row is not an error.
	CreateIfAbsent(dbc dbctx.Context, row *types.Enrollment) (bool, error)
	Exists(dbc dbctx.Context, userID, courseID uuid.UUID) (bool, error)
	ListCourseIDsByUser(dbc dbctx.Context, userID uuid.UUID) ([]uuid.UUID, error)
	CountByUserCourse(dbc dbctx.Context, userID, courseID uuid.UUID) (int64, error)
}

type enrollmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentRepo {
	return &enrollmentRepo{db: db, log: baseLog.With("repo", "EnrollmentRepo")}
}

func (r *enrollmentRepo) CreateIfAbsent(dbc dbctx.Context, row *types.Enrollment) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.UserID == uuid.Nil || row.CourseID == uuid.Nil {
		return false, nil
	}
	res := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *enrollmentRepo) Exists(dbc dbctx.Context, userID, courseID uuid.UUID) (bool, error) {
	n, err := r.CountByUserCourse(dbc, userID, courseID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *enrollmentRepo) CountByUserCourse(dbc dbctx.Context, userID, courseID uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil || courseID == uuid.Nil {
		return 0, nil
	}
	var n int64
	err := t.WithContext(dbc.Ctx).
		Model(&types.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&n).Error
	return n, err
}

func (r *enrollmentRepo) ListCourseIDsByUser(dbc dbctx.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	out := []uuid.UUID{}
	if userID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Model(&types.Enrollment{}).
		Where("user_id = ?", userID).
		Order("enrolled_at ASC").
		Pluck("course_id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

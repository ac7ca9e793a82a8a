package achievements

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/coursecommerce-backend/internal/domain"
	"github.com/yungbote/coursecommerce-backend/internal/platform/dbctx"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
)

type UserStatRepo interface {
	// AppendEvent records an increment; it reports false when the source key was already recorded.
	AppendEvent(dbc dbctx.Context, ev *types.UserStatEvent) (bool, error)
	// AddToValue atomically adds delta to the counter (creating it at zero) and returns the new value.
	AddToValue(dbc dbctx.Context, userID uuid.UUID, statType string, delta int64) (int64, error)
	GetValue(dbc dbctx.Context, userID uuid.UUID, statType string) (int64, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserStat, error)
	ListEvents(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserStatEvent, error)
	// SetValue overwrites a counter, used when rebuilding from the event log.
	SetValue(dbc dbctx.Context, userID uuid.UUID, statType string, value int64) error
}

type userStatRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserStatRepo(db *gorm.DB, baseLog *logger.Logger) UserStatRepo {
	return &userStatRepo{db: db, log: baseLog.With("repo", "UserStatRepo")}
}

func (r *userStatRepo) AppendEvent(dbc dbctx.Context, ev *types.UserStatEvent) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if ev == nil || ev.UserID == uuid.Nil || strings.TrimSpace(ev.StatType) == "" {
		return false, nil
	}
	if ev.SourceKey == "" {
		ev.SourceKey = uuid.NewString()
	}
	res := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "stat_type"}, {Name: "source_key"}},
			DoNothing: true,
		}).
		Create(ev)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *userStatRepo) ensure(dbc dbctx.Context, t *gorm.DB, userID uuid.UUID, statType string) error {
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "stat_type"}},
			DoNothing: true,
		}).
		Create(&types.UserStat{UserID: userID, StatType: statType}).Error
}

func (r *userStatRepo) AddToValue(dbc dbctx.Context, userID uuid.UUID, statType string, delta int64) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if err := r.ensure(dbc, t, userID, statType); err != nil {
		return 0, err
	}
	if err := t.WithContext(dbc.Ctx).
		Model(&types.UserStat{}).
		Where("user_id = ? AND stat_type = ?", userID, statType).
		Updates(map[string]interface{}{
			"value":      gorm.Expr("value + ?", delta),
			"updated_at": time.Now().UTC(),
		}).Error; err != nil {
		return 0, err
	}
	return r.GetValue(dbc, userID, statType)
}

func (r *userStatRepo) GetValue(dbc dbctx.Context, userID uuid.UUID, statType string) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.UserStat
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND stat_type = ?", userID, statType).
		Limit(1).
		Find(&row).Error; err != nil {
		return 0, err
	}
	return row.Value, nil
}

func (r *userStatRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserStat, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	out := []*types.UserStat{}
	if userID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("user_id = ?", userID).Order("stat_type ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userStatRepo) ListEvents(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserStatEvent, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	out := []*types.UserStatEvent{}
	if userID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("user_id = ?", userID).Order("occurred_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userStatRepo) SetValue(dbc dbctx.Context, userID uuid.UUID, statType string, value int64) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if err := r.ensure(dbc, t, userID, statType); err != nil {
		return err
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.UserStat{}).
		Where("user_id = ? AND stat_type = ?", userID, statType).
		Updates(map[string]interface{}{"value": value, "updated_at": time.Now().UTC()}).Error
}

package achievements

import (
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/coursecommerce-backend/internal/domain"
	"github.com/yungbote/coursecommerce-backend/internal/platform/dbctx"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
)

type AchievementRepo interface {
	ListActive(dbc dbctx.Context) ([]*types.Achievement, error)
	// ListTriggered returns active achievements of statType with trigger_value <= value.
	ListTriggered(dbc dbctx.Context, statType string, value int64) ([]*types.Achievement, error)
	UpsertByCode(dbc dbctx.Context, row *types.Achievement) error
}

type achievementRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAchievementRepo(db *gorm.DB, baseLog *logger.Logger) AchievementRepo {
	return &achievementRepo{db: db, log: baseLog.With("repo", "AchievementRepo")}
}

func (r *achievementRepo) ListActive(dbc dbctx.Context) ([]*types.Achievement, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	out := []*types.Achievement{}
	if err := t.WithContext(dbc.Ctx).
		Where("active = ?", true).
		Order("trigger_type ASC, trigger_value ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *achievementRepo) ListTriggered(dbc dbctx.Context, statType string, value int64) ([]*types.Achievement, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	out := []*types.Achievement{}
	statType = strings.TrimSpace(statType)
	if statType == "" {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("active = ? AND trigger_type = ? AND trigger_value <= ?", true, statType, value).
		Order("trigger_value ASC, code ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *achievementRepo) UpsertByCode(dbc dbctx.Context, row *types.Achievement) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || strings.TrimSpace(row.Code) == "" {
		return nil
	}
	row.UpdatedAt = time.Now().UTC()
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "description", "icon_url", "trigger_type", "trigger_value", "active", "updated_at",
			}),
		}).
		Create(row).Error
}

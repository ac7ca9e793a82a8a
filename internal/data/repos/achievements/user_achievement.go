package achievements

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/coursecommerce-backend/internal/domain"
	"github.com/yungbote/coursecommerce-backend/internal/platform/dbctx"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
)

type UserAchievementRepo interface {
	// EnsureRows creates unearned rows for any (user, achievement) pair that is missing.
	EnsureRows(dbc dbctx.Context, userID uuid.UUID, achievementIDs []uuid.UUID) error
	// MarkEarned flips earned false->true. It reports false when the row was already earned.
	MarkEarned(dbc dbctx.Context, userID, achievementID uuid.UUID, at time.Time) (bool, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserAchievement, error)
	// ListStandings joins the active catalogue with the user's rows and stat counters.
	ListStandings(dbc dbctx.Context, userID uuid.UUID) ([]*types.Standing, error)
}

type userAchievementRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserAchievementRepo(db *gorm.DB, baseLog *logger.Logger) UserAchievementRepo {
	return &userAchievementRepo{db: db, log: baseLog.With("repo", "UserAchievementRepo")}
}

func (r *userAchievementRepo) EnsureRows(dbc dbctx.Context, userID uuid.UUID, achievementIDs []uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil || len(achievementIDs) == 0 {
		return nil
	}
	rows := make([]*types.UserAchievement, 0, len(achievementIDs))
	for _, id := range achievementIDs {
		if id == uuid.Nil {
			continue
		}
		rows = append(rows, &types.UserAchievement{UserID: userID, AchievementID: id})
	}
	if len(rows) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "achievement_id"}},
			DoNothing: true,
		}).
		Create(&rows).Error
}

func (r *userAchievementRepo) MarkEarned(dbc dbctx.Context, userID, achievementID uuid.UUID, at time.Time) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	at = at.UTC()
	res := t.WithContext(dbc.Ctx).
		Model(&types.UserAchievement{}).
		Where("user_id = ? AND achievement_id = ? AND earned = ?", userID, achievementID, false).
		Updates(map[string]interface{}{
			"earned":     true,
			"earned_at":  at,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *userAchievementRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserAchievement, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	out := []*types.UserAchievement{}
	if userID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Preload("Achievement").
		Where("user_id = ?", userID).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userAchievementRepo) ListStandings(dbc dbctx.Context, userID uuid.UUID) ([]*types.Standing, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	out := []*types.Standing{}
	if userID == uuid.Nil {
		return out, nil
	}
	var catalogue []*types.Achievement
	if err := t.WithContext(dbc.Ctx).
		Where("active = ?", true).
		Order("trigger_type ASC, trigger_value ASC").
		Find(&catalogue).Error; err != nil {
		return nil, err
	}
	var earned []*types.UserAchievement
	if err := t.WithContext(dbc.Ctx).Where("user_id = ?", userID).Find(&earned).Error; err != nil {
		return nil, err
	}
	var stats []*types.UserStat
	if err := t.WithContext(dbc.Ctx).Where("user_id = ?", userID).Find(&stats).Error; err != nil {
		return nil, err
	}
	byAchievement := make(map[uuid.UUID]*types.UserAchievement, len(earned))
	for _, ua := range earned {
		byAchievement[ua.AchievementID] = ua
	}
	values := make(map[string]int64, len(stats))
	for _, s := range stats {
		values[s.StatType] = s.Value
	}
	for _, a := range catalogue {
		st := &types.Standing{Achievement: a, Current: values[a.TriggerType]}
		if ua := byAchievement[a.ID]; ua != nil && ua.Earned {
			st.Earned = true
			st.EarnedAt = ua.EarnedAt
		}
		out = append(out, st)
	}
	return out, nil
}

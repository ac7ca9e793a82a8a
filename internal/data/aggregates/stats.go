package aggregates

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coursecommerce-backend/internal/data/repos"
	types "github.com/yungbote/coursecommerce-backend/internal/domain"
	domainagg "github.com/yungbote/coursecommerce-backend/internal/domain/aggregates"
	"github.com/yungbote/coursecommerce-backend/internal/domain/notify"
	"github.com/yungbote/coursecommerce-backend/internal/platform/dbctx"
)

// statEngine folds stat increments and evaluates achievement triggers inside a caller's transaction.
type statEngine struct {
	stats            repos.UserStatRepo
	achievements     repos.AchievementRepo
	userAchievements repos.UserAchievementRepo
	outbox           repos.OutboxRepo
}

func (e statEngine) configured() bool {
	return e.stats != nil && e.achievements != nil && e.userAchievements != nil
}

// increment appends the event and, when the source key is new, adds delta and evaluates triggers.
// A repeated source key leaves the counter untouched and reports applied=false.
func (e statEngine) increment(dbc dbctx.Context, userID uuid.UUID, statType string, delta int64, sourceKey string, at time.Time) (int64, bool, []domainagg.EarnedAchievement, error) {
	statType = strings.TrimSpace(statType)
	appended, err := e.stats.AppendEvent(dbc, &types.UserStatEvent{
		UserID:     userID,
		StatType:   statType,
		SourceKey:  strings.TrimSpace(sourceKey),
		Delta:      delta,
		OccurredAt: at,
		CreatedAt:  at,
	})
	if err != nil {
		return 0, false, nil, err
	}
	if !appended {
		value, err := e.stats.GetValue(dbc, userID, statType)
		return value, false, nil, err
	}
	value, err := e.stats.AddToValue(dbc, userID, statType, delta)
	if err != nil {
		return 0, false, nil, err
	}
	_, earned, err := e.evaluate(dbc, userID, statType, value, at)
	if err != nil {
		return 0, false, nil, err
	}
	return value, true, earned, nil
}

// evaluate earns every matching achievement once. Rows already earned keep their earned_at.
func (e statEngine) evaluate(dbc dbctx.Context, userID uuid.UUID, statType string, value int64, at time.Time) (int, []domainagg.EarnedAchievement, error) {
	matched, err := e.achievements.ListTriggered(dbc, statType, value)
	if err != nil {
		return 0, nil, err
	}
	if len(matched) == 0 {
		return 0, nil, nil
	}
	ids := make([]uuid.UUID, 0, len(matched))
	for _, a := range matched {
		ids = append(ids, a.ID)
	}
	if err := e.userAchievements.EnsureRows(dbc, userID, ids); err != nil {
		return 0, nil, err
	}
	earned := []domainagg.EarnedAchievement{}
	for _, a := range matched {
		ok, err := e.userAchievements.MarkEarned(dbc, userID, a.ID, at)
		if err != nil {
			return 0, nil, err
		}
		if !ok {
			continue
		}
		earned = append(earned, domainagg.EarnedAchievement{AchievementID: a.ID, Code: a.Code, EarnedAt: at})
		if err := appendOutbox(dbc, e.outbox, notify.EventAchievementEarned, userID, "achievement:"+a.Code, map[string]any{
			"achievement_id": a.ID,
			"code":           a.Code,
			"title":          a.Title,
			"stat_type":      statType,
			"value":          value,
		}, at); err != nil {
			return 0, nil, err
		}
	}
	return len(matched), earned, nil
}

package aggregates

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/coursecommerce-backend/internal/data/repos"
	"github.com/yungbote/coursecommerce-backend/internal/domain/achievements"
	domainagg "github.com/yungbote/coursecommerce-backend/internal/domain/aggregates"
	"github.com/yungbote/coursecommerce-backend/internal/platform/dbctx"
)

type AchievementAggregateDeps struct {
	Base BaseDeps

	Stats            repos.UserStatRepo
	Achievements     repos.AchievementRepo
	UserAchievements repos.UserAchievementRepo
	Outbox           repos.OutboxRepo
}

type achievementAggregate struct {
	deps   AchievementAggregateDeps
	engine statEngine
}

func NewAchievementAggregate(deps AchievementAggregateDeps) domainagg.AchievementAggregate {
	deps.Base = deps.Base.withDefaults()
	return &achievementAggregate{
		deps: deps,
		engine: statEngine{
			stats:            deps.Stats,
			achievements:     deps.Achievements,
			userAchievements: deps.UserAchievements,
			outbox:           deps.Outbox,
		},
	}
}

func (a *achievementAggregate) Contract() domainagg.Contract {
	return domainagg.AchievementAggregateContract
}

func (a *achievementAggregate) EvaluateTriggers(ctx context.Context, in domainagg.EvaluateTriggersInput) (domainagg.EvaluateTriggersResult, error) {
	const op = "Engagement.Achievement.EvaluateTriggers"
	var out domainagg.EvaluateTriggersResult
	if in.UserID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	statType := strings.TrimSpace(in.StatType)
	if statType == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing stat_type", nil)
	}
	if !a.engine.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "achievement aggregate repos not configured", nil)
	}
	at := a.deps.Base.now(in.At)

	err := executeWrite(ctx, a.deps.Base, userWrite(op, EntityUserStat, in.UserID), func(dbc dbctx.Context) error {
		matched, earned, err := a.engine.evaluate(dbc, in.UserID, statType, in.NewValue, at)
		if err != nil {
			return err
		}
		out = domainagg.EvaluateTriggersResult{Matched: matched, Earned: earned}
		return nil
	})
	if err != nil {
		return domainagg.EvaluateTriggersResult{}, err
	}
	return out, nil
}

func (a *achievementAggregate) IncrementStat(ctx context.Context, in domainagg.IncrementStatInput) (domainagg.IncrementStatResult, error) {
	const op = "Engagement.Achievement.IncrementStat"
	var out domainagg.IncrementStatResult
	if in.UserID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	statType := strings.TrimSpace(in.StatType)
	if statType == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing stat_type", nil)
	}
	if in.Delta <= 0 {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "delta must be positive", nil)
	}
	if !a.engine.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "achievement aggregate repos not configured", nil)
	}
	at := a.deps.Base.now(in.At)

	err := executeWrite(ctx, a.deps.Base, userWrite(op, EntityUserStat, in.UserID), func(dbc dbctx.Context) error {
		value, applied, earned, err := a.engine.increment(dbc, in.UserID, statType, in.Delta, in.SourceKey, at)
		if err != nil {
			return err
		}
		out = domainagg.IncrementStatResult{Value: value, Applied: applied, Earned: earned}
		return nil
	})
	if err != nil {
		return domainagg.IncrementStatResult{}, err
	}
	return out, nil
}

func (a *achievementAggregate) RebuildStats(ctx context.Context, in domainagg.RebuildStatsInput) (domainagg.RebuildStatsResult, error) {
	const op = "Engagement.Achievement.RebuildStats"
	var out domainagg.RebuildStatsResult
	if in.UserID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	if a.deps.Stats == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "stat repo not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, userWrite(op, EntityUserStat, in.UserID), func(dbc dbctx.Context) error {
		events, err := a.deps.Stats.ListEvents(dbc, in.UserID)
		if err != nil {
			return err
		}
		current, err := a.deps.Stats.ListByUser(dbc, in.UserID)
		if err != nil {
			return err
		}
		values := achievements.FoldStatEvents(events)
		stored := make(map[string]int64, len(current))
		for _, row := range current {
			stored[row.StatType] = row.Value
			if _, ok := values[row.StatType]; !ok {
				values[row.StatType] = 0
			}
		}
		statTypes := make([]string, 0, len(values))
		for k := range values {
			statTypes = append(statTypes, k)
		}
		sort.Strings(statTypes)

		changed := 0
		for _, statType := range statTypes {
			if v, ok := stored[statType]; ok && v == values[statType] {
				continue
			}
			if err := a.deps.Stats.SetValue(dbc, in.UserID, statType, values[statType]); err != nil {
				return err
			}
			changed++
		}
		out = domainagg.RebuildStatsResult{Values: values, Changed: changed}
		return nil
	})
	if err != nil {
		return domainagg.RebuildStatsResult{}, err
	}
	if out.Changed > 0 {
		a.deps.Base.Log.Warn("stat counters drifted from event log", "user_id", in.UserID, "changed", out.Changed)
	}
	return out, nil
}

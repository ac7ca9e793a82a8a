package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coursecommerce-backend/internal/domain/notify"
)

var AchievementAggregateContract = Contract{
	Name:           "Engagement.AchievementAggregate",
	IdempotencyKey: "source_key",
	Emits:          []string{notify.EventAchievementEarned},
	Notes:          "Folds stat events into counters and flips user achievements false->true exactly once.",
}

// AchievementAggregate owns user stats and achievement unlocks.
//
// Write method failures return *aggregates.Error with codes:
// CodeValidation, CodeTimeout, CodeRetryable, CodeInternal.
type AchievementAggregate interface {
	Aggregate

	// EvaluateTriggers earns every active achievement of statType whose threshold is <= NewValue.
	EvaluateTriggers(ctx context.Context, in EvaluateTriggersInput) (EvaluateTriggersResult, error)

	// IncrementStat appends a stat event, folds it into the counter and evaluates triggers.
	IncrementStat(ctx context.Context, in IncrementStatInput) (IncrementStatResult, error)

	// RebuildStats recomputes every counter of a user from the stat event log.
	RebuildStats(ctx context.Context, in RebuildStatsInput) (RebuildStatsResult, error)
}

type EvaluateTriggersInput struct {
	UserID   uuid.UUID
	StatType string
	NewValue int64
	At       time.Time
}

type EarnedAchievement struct {
	AchievementID uuid.UUID
	Code          string
	EarnedAt      time.Time
}

type EvaluateTriggersResult struct {
	Matched int
	// Earned lists only achievements flipped by this call.
	Earned []EarnedAchievement
}

type IncrementStatInput struct {
	UserID   uuid.UUID
	StatType string
	Delta    int64
	// SourceKey identifies the increment; a repeated key is a no-op.
	SourceKey string
	At        time.Time
}

type IncrementStatResult struct {
	Value   int64
	Applied bool
	Earned  []EarnedAchievement
}

type RebuildStatsInput struct {
	UserID uuid.UUID
}

type RebuildStatsResult struct {
	// Values holds the rebuilt value of every counter the user has.
	Values map[string]int64
	// Changed counts counters whose stored value drifted from the log.
	Changed int
}

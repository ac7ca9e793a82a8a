package achievements

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursecommerce-backend/internal/domain/user"
)

const (
	StatCoursesPurchased     = "courses_purchased"
	StatCoursesCompleted     = "courses_completed"
	StatLessonsCompleted     = "lessons_completed"
	StatSubscriptionsStarted = "subscriptions_started"
	StatLoginCount           = "login_count"
)

// UserStat is the folded value of a user's stat event log.
type UserStat struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_user_stats_user_type" json:"user_id"`
	User      *user.User `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	StatType  string     `gorm:"not null;uniqueIndex:idx_user_stats_user_type;column:stat_type" json:"stat_type"`
	Value     int64      `gorm:"not null;column:value" json:"value"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null" json:"updated_at"`
}

func (UserStat) TableName() string { return "user_stats" }

func (s *UserStat) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// UserStatEvent is one append-only increment. SourceKey makes re-delivery of the
// same increment a no-op.
type UserStatEvent struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_user_stat_events_source" json:"user_id"`
	User       *user.User `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	StatType   string     `gorm:"not null;uniqueIndex:idx_user_stat_events_source;column:stat_type" json:"stat_type"`
	SourceKey  string     `gorm:"not null;uniqueIndex:idx_user_stat_events_source;column:source_key" json:"source_key"`
	Delta      int64      `gorm:"not null;column:delta" json:"delta"`
	OccurredAt time.Time  `gorm:"not null;column:occurred_at" json:"occurred_at"`
	CreatedAt  time.Time  `gorm:"not null" json:"created_at"`
}

func (UserStatEvent) TableName() string { return "user_stat_events" }

func (e *UserStatEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// FoldStatEvents reduces an event log to per-stat totals. Duplicate source keys count once.
func FoldStatEvents(events []*UserStatEvent) map[string]int64 {
	out := map[string]int64{}
	seen := map[[2]string]bool{}
	for _, e := range events {
		if e == nil {
			continue
		}
		k := [2]string{e.StatType, e.SourceKey}
		if seen[k] {
			continue
		}
		seen[k] = true
		out[e.StatType] += e.Delta
	}
	return out
}

package notify

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/coursecommerce-backend/internal/domain/user"
)

type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
)

func ParseChannel(raw string) Channel {
	switch Channel(raw) {
	case ChannelEmail, ChannelPush:
		return Channel(raw)
	default:
		return ChannelInApp
	}
}

// Notification is append-only apart from the read flag.
type Notification struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_notifications_user_created" json:"user_id"`
	User      *user.User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	Kind      string         `gorm:"not null;column:kind" json:"kind"`
	Channel   Channel        `gorm:"not null;column:sent_via" json:"sent_via"`
	Title     string         `gorm:"not null;column:title" json:"title"`
	Body      string         `gorm:"column:body" json:"body"`
	Metadata  datatypes.JSON `gorm:"column:metadata" json:"metadata"`
	DedupeKey string         `gorm:"uniqueIndex;not null;column:dedupe_key" json:"-"`
	Read      bool           `gorm:"not null;column:read" json:"read"`
	ReadAt    *time.Time     `gorm:"column:read_at" json:"read_at,omitempty"`
	CreatedAt time.Time      `gorm:"not null;index:idx_notifications_user_created" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }

func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.DedupeKey == "" {
		n.DedupeKey = n.ID.String()
	}
	return nil
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/coursecommerce-backend/internal/data/repos"
	types "github.com/yungbote/coursecommerce-backend/internal/domain"
	"github.com/yungbote/coursecommerce-backend/internal/domain/notify"
	"github.com/yungbote/coursecommerce-backend/internal/observability"
	bus "github.com/yungbote/coursecommerce-backend/internal/platform/amqp"
	"github.com/yungbote/coursecommerce-backend/internal/platform/dbctx"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
)

// NotificationDispatcher turns outbox envelopes into user notifications.
type NotificationDispatcher interface {
	Handle(ctx context.Context, env bus.Envelope) error
}

type notificationDispatcher struct {
	log           *logger.Logger
	notifications repos.NotificationRepo
	settings      repos.UserSettingsRepo
	metrics       *observability.Metrics
	now           func() time.Time
}

func NewNotificationDispatcher(
	log *logger.Logger,
	notifications repos.NotificationRepo,
	settings repos.UserSettingsRepo,
	metrics *observability.Metrics,
) NotificationDispatcher {
	return &notificationDispatcher{
		log:           log.With("service", "NotificationDispatcher"),
		notifications: notifications,
		settings:      settings,
		metrics:       metrics,
		now:           time.Now,
	}
}

func (d *notificationDispatcher) Handle(ctx context.Context, env bus.Envelope) error {
	title, body, ok := composeNotification(env)
	if !ok {
		d.log.Debug("no notification for event kind", "kind", env.Kind, "event_id", env.ID)
		return nil
	}
	dbc := dbctx.Background(ctx)
	channel := notify.ChannelInApp
	if d.settings != nil {
		s, err := d.settings.GetByUserID(dbc, env.UserID)
		if err != nil {
			return err
		}
		if s != nil {
			if s.MuteAchievements && env.Kind == notify.EventAchievementEarned {
				return nil
			}
			channel = notify.ParseChannel(s.NotificationChannel)
		}
	}

	row := &types.Notification{
		UserID:    env.UserID,
		Kind:      env.Kind,
		Channel:   channel,
		Title:     title,
		Body:      body,
		DedupeKey: env.ID.String(),
		CreatedAt: d.now().UTC(),
	}
	if len(env.Payload) > 0 {
		row.Metadata = datatypes.JSON(env.Payload)
	}
	created, err := d.notifications.CreateIfAbsent(dbc, row)
	if err != nil {
		return err
	}
	if created {
		d.metrics.IncNotificationDelivered(env.Kind, string(channel))
	}
	return nil
}

func composeNotification(env bus.Envelope) (string, string, bool) {
	p := map[string]any{}
	if len(env.Payload) > 0 {
		_ = json.Unmarshal(env.Payload, &p)
	}
	str := func(k string) string {
		if v, ok := p[k]; ok && v != nil {
			return fmt.Sprint(v)
		}
		return ""
	}

	switch env.Kind {
	case notify.EventPaymentCompleted:
		return "Payment received", fmt.Sprintf("Your payment %s was completed.", str("transaction_id")), true
	case notify.EventPaymentFailed:
		return "Payment failed", fmt.Sprintf("Your payment %s could not be completed.", str("transaction_id")), true
	case notify.EventSubscriptionActivated:
		return "Subscription active", fmt.Sprintf("Your %s subscription is active until %s.", str("plan_name"), str("end_time")), true
	case notify.EventSubscriptionRenewed:
		return "Subscription renewed", fmt.Sprintf("Your subscription now runs until %s.", str("end_time")), true
	case notify.EventSubscriptionCanceled:
		return "Subscription canceled", "Your subscription was canceled.", true
	case notify.EventSubscriptionExpired:
		return "Subscription expired", "Your subscription has expired.", true
	case notify.EventCourseCompleted:
		return "Course completed", "Congratulations on finishing the course!", true
	case notify.EventAchievementEarned:
		title := str("title")
		if title == "" {
			title = str("code")
		}
		return "Achievement unlocked", fmt.Sprintf("You earned %q.", title), true
	default:
		return "", "", false
	}
}

package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coursecommerce-backend/internal/data/repos"
	types "github.com/yungbote/coursecommerce-backend/internal/domain"
	domainagg "github.com/yungbote/coursecommerce-backend/internal/domain/aggregates"
	"github.com/yungbote/coursecommerce-backend/internal/domain/notify"
	"github.com/yungbote/coursecommerce-backend/internal/platform/dbctx"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
)

type NotificationService interface {
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*types.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	GetSettings(ctx context.Context, userID uuid.UUID) (*types.UserSettings, error)
	UpdateSettings(ctx context.Context, userID uuid.UUID, in SettingsInput) (*types.UserSettings, error)
}

type SettingsInput struct {
	Theme               *string
	Language            *string
	NotificationChannel *string
	MuteAchievements    *bool
}

type notificationService struct {
	log           *logger.Logger
	notifications repos.NotificationRepo
	settings      repos.UserSettingsRepo
	now           func() time.Time
}

func NewNotificationService(log *logger.Logger, notifications repos.NotificationRepo, settings repos.UserSettingsRepo) NotificationService {
	return &notificationService{
		log:           log.With("service", "NotificationService"),
		notifications: notifications,
		settings:      settings,
		now:           time.Now,
	}
}

func (s *notificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*types.Notification, error) {
	if userID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, "Notify.List", "missing user_id", nil)
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.notifications.ListByUser(dbctx.Background(ctx), userID, unreadOnly, limit)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, "Notify.List", err)
	}
	return rows, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	const op = "Notify.MarkRead"
	if id == uuid.Nil || userID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "notification id and user_id are required", nil)
	}
	ok, err := s.notifications.MarkRead(dbctx.Background(ctx), id, userID, s.now().UTC())
	if err != nil {
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if !ok {
		return domainagg.NewError(domainagg.CodeNotFound, op, "notification not found", nil)
	}
	return nil
}

func (s *notificationService) GetSettings(ctx context.Context, userID uuid.UUID) (*types.UserSettings, error) {
	if userID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, "User.Settings", "missing user_id", nil)
	}
	row, err := s.settings.GetByUserID(dbctx.Background(ctx), userID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, "User.Settings", err)
	}
	if row == nil {
		row = &types.UserSettings{UserID: userID, Theme: "system", Language: "en", NotificationChannel: string(notify.ChannelInApp)}
	}
	return row, nil
}

func (s *notificationService) UpdateSettings(ctx context.Context, userID uuid.UUID, in SettingsInput) (*types.UserSettings, error) {
	row, err := s.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Theme != nil {
		row.Theme = *in.Theme
	}
	if in.Language != nil {
		row.Language = *in.Language
	}
	if in.NotificationChannel != nil {
		row.NotificationChannel = string(notify.ParseChannel(*in.NotificationChannel))
	}
	if in.MuteAchievements != nil {
		row.MuteAchievements = *in.MuteAchievements
	}
	if err := s.settings.Upsert(dbctx.Background(ctx), row); err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, "User.Settings", err)
	}
	return row, nil
}

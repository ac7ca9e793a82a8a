package app

import (
	"gorm.io/gorm"

	httpH "github.com/yungbote/coursecommerce-backend/internal/http/handlers"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
)

type Handlers struct {
	Health        *httpH.HealthHandler
	Webhook       *httpH.WebhookHandler
	Content       *httpH.ContentHandler
	Progress      *httpH.ProgressHandler
	PasswordReset *httpH.PasswordResetHandler
	Notification  *httpH.NotificationHandler
	Account       *httpH.AccountHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, s Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:        httpH.NewHealthHandler(db),
		Webhook:       httpH.NewWebhookHandler(log, s.Aggregates.Payment, s.Aggregates.Subscription),
		Content:       httpH.NewContentHandler(s.Entitlement, s.Catalog),
		Progress:      httpH.NewProgressHandler(s.Aggregates.Progress, s.Aggregates.Achievement),
		PasswordReset: httpH.NewPasswordResetHandler(s.Aggregates.PasswordReset),
		Notification:  httpH.NewNotificationHandler(s.Notification),
		Account:       httpH.NewAccountHandler(s.Account),
	}
}

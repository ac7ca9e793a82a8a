package app

import (
	"github.com/gin-gonic/gin"

	server "github.com/yungbote/coursecommerce-backend/internal/http"
	httpMW "github.com/yungbote/coursecommerce-backend/internal/http/middleware"
	"github.com/yungbote/coursecommerce-backend/internal/observability"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, h Handlers) *gin.Engine {
	log.Info("Wiring router...")
	if cfg.WebhookJWTSecret == "" {
		log.Warn("WEBHOOK_JWT_SECRET not set; every /api request will be rejected")
	}
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return server.NewRouter(server.RouterConfig{
		Log:         log,
		Metrics:     metrics,
		ServiceName: serviceName,
		CORSOrigins: cfg.CORSOrigins,

		ServiceAuth: httpMW.NewServiceAuth(log, cfg.WebhookJWTSecret, cfg.WebhookJWTIssuer),

		WebhookHandler:       h.Webhook,
		ContentHandler:       h.Content,
		ProgressHandler:      h.Progress,
		PasswordResetHandler: h.PasswordReset,
		NotificationHandler:  h.Notification,
		AccountHandler:       h.Account,
		HealthHandler:        h.Health,
	})
}

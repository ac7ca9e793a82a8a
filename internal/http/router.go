package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/coursecommerce-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coursecommerce-backend/internal/http/middleware"
	"github.com/yungbote/coursecommerce-backend/internal/observability"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	ServiceAuth *httpMW.ServiceAuth

	WebhookHandler       *httpH.WebhookHandler
	ContentHandler       *httpH.ContentHandler
	ProgressHandler      *httpH.ProgressHandler
	PasswordResetHandler *httpH.PasswordResetHandler
	NotificationHandler  *httpH.NotificationHandler
	AccountHandler       *httpH.AccountHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	if cfg.ServiceAuth != nil {
		api.Use(cfg.ServiceAuth.RequireService())
	}
	{
		// Payment processor
		if cfg.WebhookHandler != nil {
			api.POST("/webhooks/payments", cfg.WebhookHandler.PaymentEvent)
			api.POST("/webhooks/subscriptions", cfg.WebhookHandler.SubscriptionEvent)
		}

		// Content delivery
		if cfg.ContentHandler != nil {
			api.GET("/courses/:id/access", cfg.ContentHandler.Access)
			api.GET("/courses/:id/outline", cfg.ContentHandler.Outline)
			api.GET("/plans", cfg.ContentHandler.ListPlans)
			api.GET("/users/:id/achievements", cfg.ContentHandler.ListStandings)
		}

		// Lesson player + auth layer stats
		if cfg.ProgressHandler != nil {
			api.POST("/progress/lessons", cfg.ProgressHandler.RecordLesson)
			api.POST("/stats/increment", cfg.ProgressHandler.IncrementStat)
			api.POST("/users/:id/stats/rebuild", cfg.ProgressHandler.RebuildStats)
		}

		// Password reset
		if cfg.PasswordResetHandler != nil {
			api.POST("/password-reset/issue", cfg.PasswordResetHandler.Issue)
			api.POST("/password-reset/redeem", cfg.PasswordResetHandler.Redeem)
		}

		// Notifications
		if cfg.NotificationHandler != nil {
			api.GET("/users/:id/notifications", cfg.NotificationHandler.List)
			api.POST("/notifications/:id/read", cfg.NotificationHandler.MarkRead)
			api.GET("/users/:id/settings", cfg.NotificationHandler.GetSettings)
			api.PUT("/users/:id/settings", cfg.NotificationHandler.UpdateSettings)
		}

		// Account history
		if cfg.AccountHandler != nil {
			api.GET("/users/:id/payments", cfg.AccountHandler.ListPayments)
			api.GET("/users/:id/payments/:transaction_id", cfg.AccountHandler.GetPayment)
			api.GET("/users/:id/subscriptions", cfg.AccountHandler.ListSubscriptions)
			api.GET("/users/:id/courses", cfg.AccountHandler.ListCourses)
			api.GET("/users/:id/progress", cfg.AccountHandler.ListProgress)
			api.GET("/users/:id/progress/:course_id", cfg.AccountHandler.GetCourseProgress)
			api.GET("/users/:id/achievements/earned", cfg.AccountHandler.ListEarned)
			api.GET("/users/:id/stats", cfg.AccountHandler.ListStats)
		}
	}

	return r
}

package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/coursecommerce-backend/internal/data/aggregates"
	domainagg "github.com/yungbote/coursecommerce-backend/internal/domain/aggregates"
	"github.com/yungbote/coursecommerce-backend/internal/observability"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
	"github.com/yungbote/coursecommerce-backend/internal/services"
)

type Aggregates struct {
	Payment       domainagg.PaymentAggregate
	Subscription  domainagg.SubscriptionAggregate
	Progress      domainagg.ProgressAggregate
	Achievement   domainagg.AchievementAggregate
	PasswordReset domainagg.PasswordResetAggregate
}

type Services struct {
	Runner aggregates.TxRunner

	Entitlement            services.EntitlementService
	Catalog                services.CatalogService
	Notification           services.NotificationService
	Account                services.AccountService
	NotificationDispatcher services.NotificationDispatcher
	OutboxRelay            services.OutboxRelay

	Aggregates Aggregates
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, metrics *observability.Metrics, r Repos, c Clients) Services {
	log.Info("Wiring services...")

	runner := aggregates.NewGormTxRunner(db, aggregates.WithLockTimeout(cfg.AggregateLockTimeout))
	entitlements := services.NewEntitlementService(log, r.Enrollment, r.Subscription, c.EntitlementCache, metrics)

	base := aggregates.BaseDeps{
		DB:           db,
		Log:          log,
		Runner:       runner,
		Hooks:        aggregates.NewObservabilityHooks(metrics, log),
		OpTimeout:    cfg.AggregateOpTimeout,
		Entitlements: entitlements,
	}

	aggs := Aggregates{
		Payment: aggregates.NewPaymentAggregate(aggregates.PaymentAggregateDeps{
			Base:             base,
			Payments:         r.Payment,
			Enrollments:      r.Enrollment,
			Courses:          r.Course,
			Plans:            r.SubscriptionPlan,
			Subscriptions:    r.Subscription,
			Users:            r.User,
			Stats:            r.UserStat,
			Achievements:     r.Achievement,
			UserAchievements: r.UserAchievement,
			Outbox:           r.Outbox,
		}),
		Subscription: aggregates.NewSubscriptionAggregate(aggregates.SubscriptionAggregateDeps{
			Base:          base,
			Subscriptions: r.Subscription,
			Plans:         r.SubscriptionPlan,
			Users:         r.User,
			Outbox:        r.Outbox,
		}),
		Progress: aggregates.NewProgressAggregate(aggregates.ProgressAggregateDeps{
			Base:             base,
			Content:          r.Content,
			CourseProgress:   r.CourseProgress,
			LessonProgress:   r.LessonProgress,
			Stats:            r.UserStat,
			Achievements:     r.Achievement,
			UserAchievements: r.UserAchievement,
			Outbox:           r.Outbox,
		}),
		Achievement: aggregates.NewAchievementAggregate(aggregates.AchievementAggregateDeps{
			Base:             base,
			Stats:            r.UserStat,
			Achievements:     r.Achievement,
			UserAchievements: r.UserAchievement,
			Outbox:           r.Outbox,
		}),
		PasswordReset: aggregates.NewPasswordResetAggregate(aggregates.PasswordResetAggregateDeps{
			Base:   base,
			Users:  r.User,
			Tokens: r.PasswordReset,
			TTL:    cfg.PasswordResetTTL,
		}),
	}

	account := services.NewAccountService(log, services.AccountDeps{
		Users:            r.User,
		Payments:         r.Payment,
		Subscriptions:    r.Subscription,
		Enrollments:      r.Enrollment,
		Courses:          r.Course,
		CourseProgress:   r.CourseProgress,
		UserAchievements: r.UserAchievement,
		Stats:            r.UserStat,
	})

	return Services{
		Runner:                 runner,
		Entitlement:            entitlements,
		Catalog:                services.NewCatalogService(log, r.Course, r.Content, r.SubscriptionPlan, r.UserAchievement, entitlements),
		Notification:           services.NewNotificationService(log, r.Notification, r.UserSettings),
		Account:                account,
		NotificationDispatcher: services.NewNotificationDispatcher(log, r.Notification, r.UserSettings, metrics),
		OutboxRelay:            services.NewOutboxRelay(log, runner, r.Outbox, c.Publisher, metrics, cfg.Outbox),
		Aggregates:             aggs,
	}
}

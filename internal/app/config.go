package app

import (
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/coursecommerce-backend/internal/data/aggregates"
	"github.com/yungbote/coursecommerce-backend/internal/data/db"
	"github.com/yungbote/coursecommerce-backend/internal/jobs/cron"
	"github.com/yungbote/coursecommerce-backend/internal/observability"
	bus "github.com/yungbote/coursecommerce-backend/internal/platform/amqp"
	"github.com/yungbote/coursecommerce-backend/internal/platform/envutil"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
	cache "github.com/yungbote/coursecommerce-backend/internal/platform/redis"
	"github.com/yungbote/coursecommerce-backend/internal/services"
)

type Config struct {
	DB    db.Config
	Redis cache.Config
	AMQP  bus.Config
	Otel  observability.OtelConfig

	HTTPAddr    string
	CORSOrigins []string

	WebhookJWTSecret string
	WebhookJWTIssuer string

	PasswordResetTTL     time.Duration
	AggregateOpTimeout   time.Duration
	AggregateLockTimeout time.Duration

	Cron   cron.Config
	Outbox services.OutboxRelayConfig

	// ConsumeNotifications runs the dispatcher in this process.
	ConsumeNotifications bool
	SeedFile             string
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		DB: db.LoadConfig(log),
		Redis: cache.Config{
			Addr:      envutil.String("REDIS_ADDR", "", log),
			Password:  envutil.String("REDIS_PASSWORD", "", log),
			DB:        envutil.Int("REDIS_DB", 0, log),
			KeyPrefix: envutil.String("ENTITLEMENT_CACHE_PREFIX", "cc:ent", log),
			TTL:       envutil.Duration("ENTITLEMENT_CACHE_TTL", time.Minute, log),
		},
		AMQP: bus.Config{
			URL:      envutil.String("AMQP_URL", "", log),
			Queue:    envutil.String("NOTIFY_QUEUE", "coursecommerce.notifications", log),
			Prefetch: envutil.Int("AMQP_PREFETCH", 50, log),
		},
		Otel: loadOtelConfig(log),

		HTTPAddr:    envutil.String("HTTP_ADDR", ":8080", log),
		CORSOrigins: splitList(envutil.String("CORS_ALLOWED_ORIGINS", "", log)),

		WebhookJWTSecret: envutil.String("WEBHOOK_JWT_SECRET", "", log),
		WebhookJWTIssuer: envutil.String("WEBHOOK_JWT_ISSUER", "", log),

		PasswordResetTTL:     envutil.Duration("PASSWORD_RESET_TTL", aggregates.DefaultPasswordResetTTL, log),
		AggregateOpTimeout:   envutil.Duration("AGGREGATE_OP_TIMEOUT", 10*time.Second, log),
		AggregateLockTimeout: envutil.Duration("AGGREGATE_LOCK_TIMEOUT", 3*time.Second, log),

		Cron: cron.Config{
			SweepSpec:      envutil.String("SUBSCRIPTION_SWEEP_SPEC", "0 * * * * *", log),
			SweepBatchSize: envutil.Int("SUBSCRIPTION_SWEEP_BATCH", 200, log),
			RelayInterval:  envutil.Duration("OUTBOX_RELAY_INTERVAL", 5*time.Second, log),
			TokenPruneSpec: envutil.String("RESET_TOKEN_PRUNE_SPEC", "0 0 * * * *", log),
			TokenRetention: envutil.Duration("RESET_TOKEN_RETENTION", 24*time.Hour, log),
			JobTimeout:     envutil.Duration("CRON_JOB_TIMEOUT", 2*time.Minute, log),
		},
		Outbox: services.OutboxRelayConfig{
			BatchSize:   envutil.Int("OUTBOX_RELAY_BATCH", 100, log),
			MaxAttempts: envutil.Int("OUTBOX_MAX_ATTEMPTS", 10, log),
		},

		ConsumeNotifications: envutil.Bool("NOTIFY_CONSUMER_ENABLED", true, log),
		SeedFile:             envutil.String("SEED_FILE", "", log),
	}
}

func loadOtelConfig(log *logger.Logger) observability.OtelConfig {
	ratio := 1.0
	if raw := envutil.String("OTEL_TRACES_SAMPLER_ARG", "", log); raw != "" {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			ratio = f
		} else {
			log.Warn("invalid OTEL_TRACES_SAMPLER_ARG; using 1.0", "value", raw)
		}
	}
	return observability.OtelConfig{
		Enabled:     envutil.Bool("OTEL_ENABLED", false, log),
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "coursecommerce-backend", log),
		Environment: envutil.String("OTEL_ENVIRONMENT", "development", log),
		Version:     envutil.String("OTEL_SERVICE_VERSION", "dev", log),
		Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", "", log),
		Headers:     envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "", log),
		Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false, log),
		SampleRatio: ratio,
	}
}

func splitList(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

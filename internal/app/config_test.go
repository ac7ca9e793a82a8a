package app

import (
	"testing"
	"time"

	"github.com/yungbote/coursecommerce-backend/internal/data/aggregates"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"REDIS_ADDR", "AMQP_URL", "PASSWORD_RESET_TTL", "SUBSCRIPTION_SWEEP_SPEC", "RESET_TOKEN_PRUNE_SPEC", "RESET_TOKEN_RETENTION", "CORS_ALLOWED_ORIGINS", "ENTITLEMENT_CACHE_TTL"} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig(logger.Nop())
	if cfg.PasswordResetTTL != aggregates.DefaultPasswordResetTTL {
		t.Fatalf("reset ttl: want=%s got=%s", aggregates.DefaultPasswordResetTTL, cfg.PasswordResetTTL)
	}
	if cfg.AggregateLockTimeout != 3*time.Second {
		t.Fatalf("lock timeout: got=%s", cfg.AggregateLockTimeout)
	}
	if cfg.Cron.SweepSpec != "0 * * * * *" {
		t.Fatalf("sweep spec: got=%q", cfg.Cron.SweepSpec)
	}
	if cfg.Cron.TokenRetention != 24*time.Hour || cfg.Cron.TokenPruneSpec != "0 0 * * * *" {
		t.Fatalf("token prune: spec=%q retention=%s", cfg.Cron.TokenPruneSpec, cfg.Cron.TokenRetention)
	}
	if cfg.Redis.TTL != time.Minute {
		t.Fatalf("cache ttl: want=1m got=%s", cfg.Redis.TTL)
	}
	if cfg.AMQP.URL != "" || len(cfg.CORSOrigins) != 0 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PASSWORD_RESET_TTL", "30m")
	t.Setenv("ENTITLEMENT_CACHE_TTL", "15s")
	t.Setenv("NOTIFY_QUEUE", "cc.notify")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://shop.example.com, ,https://admin.example.com")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.25")
	t.Setenv("SUBSCRIPTION_SWEEP_BATCH", "50")

	cfg := LoadConfig(logger.Nop())
	if cfg.PasswordResetTTL != 30*time.Minute {
		t.Fatalf("reset ttl: want=30m got=%s", cfg.PasswordResetTTL)
	}
	if cfg.Redis.TTL != 15*time.Second {
		t.Fatalf("cache ttl: want=15s got=%s", cfg.Redis.TTL)
	}
	if cfg.AMQP.Queue != "cc.notify" {
		t.Fatalf("queue: got=%q", cfg.AMQP.Queue)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://admin.example.com" {
		t.Fatalf("origins: got=%v", cfg.CORSOrigins)
	}
	if cfg.Otel.SampleRatio != 0.25 {
		t.Fatalf("sample ratio: want=0.25 got=%v", cfg.Otel.SampleRatio)
	}
	if cfg.Cron.SweepBatchSize != 50 {
		t.Fatalf("sweep batch: want=50 got=%d", cfg.Cron.SweepBatchSize)
	}
}

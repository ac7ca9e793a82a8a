package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/coursecommerce-backend/internal/data/db"
	server "github.com/yungbote/coursecommerce-backend/internal/http"
	"github.com/yungbote/coursecommerce-backend/internal/jobs/cron"
	"github.com/yungbote/coursecommerce-backend/internal/observability"
	"github.com/yungbote/coursecommerce-backend/internal/platform/envutil"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
	"github.com/yungbote/coursecommerce-backend/internal/seed"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Metrics  *observability.Metrics
	Clients  Clients
	Repos    Repos
	Services Services
	Cron     *cron.Manager

	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	envutil.Load(log)
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(ctx, log, cfg.Otel)
	metrics := observability.Init(log)

	theDB, err := db.Open(log, cfg.DB)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := db.AutoMigrateAll(theDB); err != nil {
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	clients, err := wireClients(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, metrics, reposet, clients)

	catalogue, err := seed.Load(cfg.SeedFile)
	if err != nil {
		clients.Close()
		log.Sync()
		return nil, fmt.Errorf("load seed catalogue: %w", err)
	}
	if err := seed.Apply(ctx, log, serviceset.Runner, reposet.SubscriptionPlan, reposet.Achievement, catalogue); err != nil {
		clients.Close()
		log.Sync()
		return nil, fmt.Errorf("apply seed catalogue: %w", err)
	}

	handlerset := wireHandlers(theDB, log, serviceset)
	router := wireRouter(log, cfg, metrics, handlerset)
	manager := cron.NewManager(log, metrics, cfg.Cron, serviceset.Aggregates.Subscription, serviceset.OutboxRelay).
		WithTokenPruner(reposet.PasswordReset)

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Metrics:      metrics,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		Cron:         manager,
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves HTTP and drives the scheduler and notification consumer until
// ctx is canceled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	a.Metrics.StartDBCollector(gctx, a.Log, a.DB)
	a.Metrics.StartRedisCollector(gctx, a.Log, a.Clients.Redis)

	g.Go(func() error {
		a.Log.Info("HTTP server listening", "addr", a.Cfg.HTTPAddr)
		return (&server.Server{Engine: a.Router}).Run(gctx, a.Cfg.HTTPAddr)
	})

	g.Go(func() error {
		if err := a.Cron.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		a.Cron.Stop()
		return nil
	})

	if a.Cfg.ConsumeNotifications && a.Clients.Consumer != nil {
		g.Go(func() error {
			a.Log.Info("notification consumer started", "queue", a.Cfg.AMQP.Queue)
			return a.Clients.Consumer.Consume(gctx, a.Services.NotificationDispatcher.Handle, a.Services.OutboxRelay.Requeue)
		})
	}

	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

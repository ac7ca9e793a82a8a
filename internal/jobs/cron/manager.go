package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	domainagg "github.com/yungbote/coursecommerce-backend/internal/domain/aggregates"
	"github.com/yungbote/coursecommerce-backend/internal/observability"
	"github.com/yungbote/coursecommerce-backend/internal/platform/dbctx"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
	"github.com/yungbote/coursecommerce-backend/internal/services"
)

type Config struct {
	// SweepSpec is a six-field (seconds-first) cron expression.
	SweepSpec      string
	SweepBatchSize int
	// RelayInterval drives the outbox relay; zero disables it.
	RelayInterval time.Duration
	// TokenPruneSpec removes password reset tokens expired longer than
	// TokenRetention ago.
	TokenPruneSpec string
	TokenRetention time.Duration
	JobTimeout     time.Duration
}

type Subscriptions interface {
	SweepExpirations(ctx context.Context, in domainagg.SweepExpirationsInput) (domainagg.SweepExpirationsResult, error)
}

type Relay interface {
	RunOnce(ctx context.Context) (services.OutboxRelayResult, error)
}

type TokenPruner interface {
	DeleteExpiredBefore(dbc dbctx.Context, cutoff time.Time) (int64, error)
}

// Manager runs the periodic maintenance jobs. A job never overlaps with its
// own previous run.
type Manager struct {
	cron    *cron.Cron
	log     *logger.Logger
	metrics *observability.Metrics
	cfg     Config

	subs   Subscriptions
	relay  Relay
	tokens TokenPruner
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewManager(log *logger.Logger, metrics *observability.Metrics, cfg Config, subs Subscriptions, relay Relay) *Manager {
	if cfg.SweepSpec == "" {
		cfg.SweepSpec = "0 * * * * *"
	}
	if cfg.TokenPruneSpec == "" {
		cfg.TokenPruneSpec = "0 0 * * * *"
	}
	if cfg.TokenRetention <= 0 {
		cfg.TokenRetention = 24 * time.Hour
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 2 * time.Minute
	}
	mlog := log.With("service", "CronManager")
	return &Manager{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger), cron.Recover(cron.DiscardLogger)),
		),
		log:     mlog,
		metrics: metrics,
		cfg:     cfg,
		subs:    subs,
		relay:   relay,
		now:     time.Now,
	}
}

// WithTokenPruner schedules the reset token cleanup job.
func (m *Manager) WithTokenPruner(p TokenPruner) *Manager {
	m.tokens = p
	return m
}

func (m *Manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)
	if err := m.registerJobs(); err != nil {
		m.cancel()
		return err
	}
	m.cron.Start()
	m.log.Info("cron jobs started", "sweep_spec", m.cfg.SweepSpec, "relay_interval", m.cfg.RelayInterval.String())
	return nil
}

func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	<-m.cron.Stop().Done()
	m.wg.Wait()
	m.log.Info("cron jobs stopped")
}

func (m *Manager) registerJobs() error {
	if m.subs != nil {
		if _, err := m.cron.AddFunc(m.cfg.SweepSpec, func() { _, _ = m.RunSweep(m.ctx) }); err != nil {
			return fmt.Errorf("register subscription sweep: %w", err)
		}
	}
	if m.relay != nil && m.cfg.RelayInterval > 0 {
		spec := fmt.Sprintf("@every %s", m.cfg.RelayInterval)
		if _, err := m.cron.AddFunc(spec, func() { m.RunRelay(m.ctx) }); err != nil {
			return fmt.Errorf("register outbox relay: %w", err)
		}
	}
	if m.tokens != nil {
		if _, err := m.cron.AddFunc(m.cfg.TokenPruneSpec, func() { _, _ = m.RunTokenPrune(m.ctx) }); err != nil {
			return fmt.Errorf("register token prune: %w", err)
		}
	}
	return nil
}

// RunSweep performs one expiration sweep and records its outcome.
func (m *Manager) RunSweep(ctx context.Context) (domainagg.SweepExpirationsResult, error) {
	m.wg.Add(1)
	defer m.wg.Done()
	ctx, cancel := context.WithTimeout(ctx, m.cfg.JobTimeout)
	defer cancel()

	start := time.Now()
	res, err := m.subs.SweepExpirations(ctx, domainagg.SweepExpirationsInput{BatchSize: m.cfg.SweepBatchSize})
	status := "ok"
	switch {
	case err != nil:
		status = "error"
		m.log.Warn("subscription sweep stopped early", "error", err, "expired", res.Expired, "skipped", res.Skipped)
	case res.Failed > 0:
		status = "partial"
	}
	m.metrics.ObserveSweep(status, res.Expired, res.Skipped, time.Since(start))
	if res.Scanned > 0 || err != nil {
		m.log.Info("subscription sweep",
			"status", status,
			"scanned", res.Scanned,
			"expired", res.Expired,
			"skipped", res.Skipped,
			"failed", res.Failed,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return res, err
}

func (m *Manager) RunRelay(ctx context.Context) {
	m.wg.Add(1)
	defer m.wg.Done()
	ctx, cancel := context.WithTimeout(ctx, m.cfg.JobTimeout)
	defer cancel()
	if _, err := m.relay.RunOnce(ctx); err != nil {
		m.log.Warn("outbox relay failed", "error", err)
	}
}

// RunTokenPrune deletes reset tokens that expired before now minus the
// configured retention.
func (m *Manager) RunTokenPrune(ctx context.Context) (int64, error) {
	m.wg.Add(1)
	defer m.wg.Done()
	ctx, cancel := context.WithTimeout(ctx, m.cfg.JobTimeout)
	defer cancel()
	cutoff := m.now().UTC().Add(-m.cfg.TokenRetention)
	n, err := m.tokens.DeleteExpiredBefore(dbctx.Background(ctx), cutoff)
	if err != nil {
		m.log.Warn("token prune failed", "error", err)
		return 0, err
	}
	if n > 0 {
		m.log.Info("pruned password reset tokens", "deleted", n, "cutoff", cutoff)
	}
	return n, nil
}

package observability

import (
	"context"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	types "github.com/yungbote/coursecommerce-backend/internal/domain"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	aggregateOps       *CounterVec
	aggregateLatency   *HistogramVec
	aggregateConflicts *CounterVec
	aggregateRetries   *CounterVec

	sweepRuns     *CounterVec
	sweepExpired  *Counter
	sweepSkipped  *Counter
	sweepDuration *HistogramVec

	outboxPublished *CounterVec
	outboxFailed    *CounterVec
	outboxBacklog   *Gauge

	notificationsDelivered *CounterVec
	entitlementChecks      *CounterVec

	dbStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	v := strings.TrimSpace(os.Getenv("METRICS_ENABLED"))
	if v == "" {
		return false
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	v := strings.TrimSpace(os.Getenv("METRICS_SCRAPE_INTERVAL_SECONDS"))
	if v == "" {
		return 10 * time.Second
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n) * time.Second
}

// Init returns the process metrics registry, or nil when METRICS_ENABLED is off.
// Every method tolerates a nil receiver.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

// New builds a standalone registry. Init should be preferred outside tests.
func New() *Metrics {
	latencyBuckets := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}
	return &Metrics{
		apiRequests: NewCounterVec("cc_api_requests_total", "Total API requests by caller/method/route/status.", []string{"caller", "method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"cc_api_request_duration_seconds",
			"API request latency in seconds by caller/method/route/status.",
			[]string{"caller", "method", "route", "status"},
			latencyBuckets,
		),
		apiInflight: NewGauge("cc_api_inflight_requests", "In-flight API requests."),

		aggregateOps: NewCounterVec("cc_aggregate_operations_total", "Aggregate write operations by op/status.", []string{"op", "status"}),
		aggregateLatency: NewHistogramVec(
			"cc_aggregate_operation_duration_seconds",
			"Aggregate write latency in seconds by op.",
			[]string{"op"},
			latencyBuckets,
		),
		aggregateConflicts: NewCounterVec("cc_aggregate_conflicts_total", "Aggregate compare-and-set conflicts by op.", []string{"op"}),
		aggregateRetries:   NewCounterVec("cc_aggregate_retryable_total", "Aggregate retryable failures by op.", []string{"op"}),

		sweepRuns:    NewCounterVec("cc_subscription_sweep_runs_total", "Subscription expiration sweeps by status.", []string{"status"}),
		sweepExpired: NewCounter("cc_subscription_sweep_expired_total", "Subscriptions expired by the sweep."),
		sweepSkipped: NewCounter("cc_subscription_sweep_skipped_total", "Sweep candidates skipped after re-check."),
		sweepDuration: NewHistogramVec(
			"cc_subscription_sweep_duration_seconds",
			"Subscription sweep duration in seconds.",
			nil,
			[]float64{0.1, 0.5, 1, 5, 15, 30, 60},
		),

		outboxPublished: NewCounterVec("cc_outbox_published_total", "Outbox events published by kind.", []string{"kind"}),
		outboxFailed:    NewCounterVec("cc_outbox_failed_total", "Outbox publish failures by kind.", []string{"kind"}),
		outboxBacklog:   NewGauge("cc_outbox_backlog", "Unpublished outbox events."),

		notificationsDelivered: NewCounterVec("cc_notifications_delivered_total", "Notifications written by kind/channel.", []string{"kind", "channel"}),
		entitlementChecks:      NewCounterVec("cc_entitlement_checks_total", "Access checks by result/source.", []string{"result", "source"}),

		dbStats:   NewGaugeVec("cc_db_pool", "Database pool stats.", []string{"stat"}),
		redisUp:   NewGauge("cc_redis_up", "Redis reachability (1 up, 0 down)."),
		redisPing: NewGauge("cc_redis_ping_seconds", "Redis ping latency in seconds."),
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	collectors := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.aggregateOps, m.aggregateLatency, m.aggregateConflicts, m.aggregateRetries,
		m.sweepRuns, m.sweepExpired, m.sweepSkipped, m.sweepDuration,
		m.outboxPublished, m.outboxFailed, m.outboxBacklog,
		m.notificationsDelivered, m.entitlementChecks,
		m.dbStats, m.redisUp, m.redisPing,
	}
	for _, c := range collectors {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

// ObserveAPI records one request. caller is the authenticated collaborator
// subject, or "anonymous" for unauthenticated routes.
func (m *Metrics) ObserveAPI(caller, method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if caller == "" {
		caller = "anonymous"
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(caller, method, route, status)
	m.apiLatency.Observe(dur.Seconds(), caller, method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveAggregateOperation(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if op == "" {
		op = "unknown"
	}
	if status == "" {
		status = "unknown"
	}
	m.aggregateOps.Inc(op, status)
	m.aggregateLatency.Observe(dur.Seconds(), op)
}

func (m *Metrics) IncAggregateConflict(op string) {
	if m == nil {
		return
	}
	m.aggregateConflicts.Inc(op)
}

func (m *Metrics) IncAggregateRetry(op string) {
	if m == nil {
		return
	}
	m.aggregateRetries.Inc(op)
}

func (m *Metrics) ObserveSweep(status string, expired, skipped int, dur time.Duration) {
	if m == nil {
		return
	}
	m.sweepRuns.Inc(status)
	m.sweepExpired.Add(float64(expired))
	m.sweepSkipped.Add(float64(skipped))
	m.sweepDuration.Observe(dur.Seconds())
}

func (m *Metrics) IncOutboxPublished(kind string) {
	if m == nil {
		return
	}
	m.outboxPublished.Inc(kind)
}

func (m *Metrics) IncOutboxFailed(kind string) {
	if m == nil {
		return
	}
	m.outboxFailed.Inc(kind)
}

func (m *Metrics) IncNotificationDelivered(kind, channel string) {
	if m == nil {
		return
	}
	m.notificationsDelivered.Inc(kind, channel)
}

// ObserveEntitlement records an access decision; source is "cache" or "db".
func (m *Metrics) ObserveEntitlement(allowed bool, source string) {
	if m == nil {
		return
	}
	result := "denied"
	if allowed {
		result = "allowed"
	}
	m.entitlementChecks.Inc(result, source)
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
				m.dbStats.Set(float64(stats.MaxOpenConnections), "max_open_connections")

				var backlog int64
				if err := db.WithContext(ctx).
					Model(&types.OutboxEvent{}).
					Where("published_at IS NULL").
					Count(&backlog).Error; err != nil {
					if log != nil {
						log.Warn("metrics: outbox backlog query failed", "error", err)
					}
					continue
				}
				m.outboxBacklog.Set(float64(backlog))
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *redis.Client) {
	if m == nil || rdb == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

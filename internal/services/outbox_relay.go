package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coursecommerce-backend/internal/data/aggregates"
	"github.com/yungbote/coursecommerce-backend/internal/data/repos"
	types "github.com/yungbote/coursecommerce-backend/internal/domain"
	"github.com/yungbote/coursecommerce-backend/internal/observability"
	bus "github.com/yungbote/coursecommerce-backend/internal/platform/amqp"
	"github.com/yungbote/coursecommerce-backend/internal/platform/dbctx"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
)

type OutboxRelayConfig struct {
	BatchSize   int
	MaxAttempts int
}

type OutboxRelayResult struct {
	Claimed   int
	Published int
	Failed    int
}

// OutboxRelay moves committed outbox events onto the broker. Delivery is at
// least once: an event published right before a failed commit goes out again
// on the next run, and consumers dedupe on the event id.
type OutboxRelay interface {
	RunOnce(ctx context.Context) (OutboxRelayResult, error)
	// Requeue takes an envelope the consumer gave up on and hands its row back
	// to the relay. Rows that used up MaxAttempts stay unpublished for inspection.
	Requeue(ctx context.Context, env bus.Envelope, cause error) error
}

type outboxRelay struct {
	log       *logger.Logger
	runner    aggregates.TxRunner
	outbox    repos.OutboxRepo
	publisher bus.Publisher
	metrics   *observability.Metrics
	cfg       OutboxRelayConfig
	now       func() time.Time
}

func NewOutboxRelay(
	log *logger.Logger,
	runner aggregates.TxRunner,
	outbox repos.OutboxRepo,
	publisher bus.Publisher,
	metrics *observability.Metrics,
	cfg OutboxRelayConfig,
) OutboxRelay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	return &outboxRelay{
		log:       log.With("service", "OutboxRelay"),
		runner:    runner,
		outbox:    outbox,
		publisher: publisher,
		metrics:   metrics,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (r *outboxRelay) RunOnce(ctx context.Context) (OutboxRelayResult, error) {
	var res OutboxRelayResult
	// Claimed rows stay locked until commit so parallel relays skip them.
	err := r.runner.InTx(ctx, func(dbc dbctx.Context) error {
		res = OutboxRelayResult{}
		rows, err := r.outbox.ClaimUnpublished(dbc, r.cfg.BatchSize, r.cfg.MaxAttempts)
		if err != nil {
			return err
		}
		res.Claimed = len(rows)
		published := make([]uuid.UUID, 0, len(rows))
		for _, row := range rows {
			if err := r.publisher.Publish(ctx, EnvelopeFromOutbox(row)); err != nil {
				res.Failed++
				r.metrics.IncOutboxFailed(row.Kind)
				r.log.Warn("outbox publish failed", "event_id", row.ID, "kind", row.Kind, "attempts", row.Attempts+1, "error", err)
				if err := r.outbox.MarkFailed(dbc, row.ID, err.Error()); err != nil {
					return err
				}
				continue
			}
			r.metrics.IncOutboxPublished(row.Kind)
			published = append(published, row.ID)
		}
		res.Published = len(published)
		return r.outbox.MarkPublished(dbc, published, r.now().UTC())
	})
	if err != nil {
		return OutboxRelayResult{}, err
	}
	if res.Claimed > 0 {
		r.log.Debug("outbox relay pass", "claimed", res.Claimed, "published", res.Published, "failed", res.Failed)
	}
	return res, nil
}

func (r *outboxRelay) Requeue(ctx context.Context, env bus.Envelope, cause error) error {
	msg := "consumer failed"
	if cause != nil {
		msg = "consumer: " + cause.Error()
	}
	released, err := r.outbox.Release(dbctx.Background(ctx), env.ID, msg)
	if err != nil {
		return err
	}
	r.metrics.IncOutboxFailed(env.Kind)
	if !released {
		r.log.Warn("requeue skipped; outbox row missing or unpublished", "event_id", env.ID, "kind", env.Kind)
		return nil
	}
	r.log.Warn("outbox event returned to relay", "event_id", env.ID, "kind", env.Kind, "error", cause)
	return nil
}

func EnvelopeFromOutbox(row *types.OutboxEvent) bus.Envelope {
	env := bus.Envelope{
		ID:           row.ID,
		Kind:         row.Kind,
		UserID:       row.UserID,
		AggregateKey: row.AggregateKey,
		OccurredAt:   row.OccurredAt.UTC(),
	}
	if len(row.Payload) > 0 {
		env.Payload = json.RawMessage(row.Payload)
	}
	return env
}

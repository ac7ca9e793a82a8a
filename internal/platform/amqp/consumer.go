package amqp

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
)

// Handler processes one envelope. A nil return acknowledges the delivery.
type Handler func(ctx context.Context, env Envelope) error

// DeadLetterFunc takes an envelope whose handler failed on its final delivery
// attempt. A nil return means the envelope is owned elsewhere and may be dropped.
type DeadLetterFunc func(ctx context.Context, env Envelope, cause error) error

type Consumer interface {
	// Consume blocks until ctx is done, reconnecting with backoff when the broker goes away.
	// dead may be nil, in which case an exhausted envelope is logged and dropped.
	Consume(ctx context.Context, h Handler, dead DeadLetterFunc) error
}

type consumer struct {
	log *logger.Logger
	cfg Config
}

func NewConsumer(log *logger.Logger, cfg Config) Consumer {
	return &consumer{log: log.With("service", "AMQPConsumer"), cfg: cfg.withDefaults()}
}

func (c *consumer) Consume(ctx context.Context, h Handler, dead DeadLetterFunc) error {
	if h == nil {
		return fmt.Errorf("handler required")
	}
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return nil
		}
		conn, err := amqp.Dial(c.cfg.URL)
		if err != nil {
			c.log.Warn("dial failed; retrying", "error", err, "backoff", backoff.String())
			if !sleepCtx(ctx, backoff) {
				return nil
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn, h, dead)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		c.log.Warn("consume loop ended; reconnecting", "error", err)
		if !sleepCtx(ctx, 2*time.Second) {
			return nil
		}
	}
}

func (c *consumer) consumeLoop(ctx context.Context, conn *amqp.Connection, h Handler, dead DeadLetterFunc) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		c.log.Warn("set QoS failed", "error", err)
	}
	if _, err := declareQueue(ch, c.cfg.Queue); err != nil {
		return err
	}
	msgs, err := ch.Consume(c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.handle(ctx, d, h, dead)
		}
	}
}

func (c *consumer) handle(ctx context.Context, d amqp.Delivery, h Handler, dead DeadLetterFunc) {
	env, err := DecodeEnvelope(d.Body)
	if err != nil {
		c.log.Warn("rejecting malformed delivery", "error", err, "message_id", d.MessageId)
		_ = d.Nack(false, false)
		return
	}
	err = h(ctx, env)
	if err == nil {
		_ = d.Ack(false)
		return
	}
	if !d.Redelivered {
		c.log.Warn("handler failed; requeueing", "error", err, "event_id", env.ID, "kind", env.Kind)
		_ = d.Nack(false, true)
		return
	}
	if dead == nil {
		c.log.Error("handler failed on redelivery; no dead-letter target, dropping", "error", err, "event_id", env.ID, "kind", env.Kind)
		_ = d.Nack(false, false)
		return
	}
	if dlErr := dead(ctx, env, err); dlErr != nil {
		// Keep the message on the broker rather than lose it.
		c.log.Error("dead-letter failed; requeueing", "error", dlErr, "cause", err, "event_id", env.ID, "kind", env.Kind)
		_ = d.Nack(false, true)
		return
	}
	c.log.Warn("handler failed on redelivery; dead-lettered", "error", err, "event_id", env.ID, "kind", env.Kind)
	_ = d.Ack(false)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

package amqp

import (
	"context"
	"fmt"
	"sync"

	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
)

const defaultMemoryAttempts = 3

type memoryDelivery struct {
	env      Envelope
	attempts int
}

// MemoryBus is an in-process Publisher and Consumer used when no broker is
// configured and in tests. Published envelopes are buffered until consumed.
// A failing envelope is re-buffered until it has been tried maxAttempts
// times, then handed to the dead-letter func.
type MemoryBus struct {
	log         *logger.Logger
	maxAttempts int

	mu     sync.Mutex
	closed bool
	ch     chan memoryDelivery
}

func NewMemoryBus(log *logger.Logger, buffer int) *MemoryBus {
	if buffer <= 0 {
		buffer = 256
	}
	if log == nil {
		log = logger.Nop()
	}
	return &MemoryBus{
		log:         log.With("service", "MemoryBus"),
		maxAttempts: defaultMemoryAttempts,
		ch:          make(chan memoryDelivery, buffer),
	}
}

// WithMaxAttempts sets how many times one envelope is handed to the handler.
func (b *MemoryBus) WithMaxAttempts(n int) *MemoryBus {
	if n > 0 {
		b.maxAttempts = n
	}
	return b
}

func (b *MemoryBus) Publish(ctx context.Context, env Envelope) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return fmt.Errorf("memory bus closed")
	}
	select {
	case b.ch <- memoryDelivery{env: env}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *MemoryBus) Consume(ctx context.Context, h Handler, dead DeadLetterFunc) error {
	if h == nil {
		return fmt.Errorf("handler required")
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d := <-b.ch:
			b.deliver(ctx, d, h, dead)
		}
	}
}

// Drain runs every buffered envelope through the same retry path as Consume
// without blocking once the buffer is empty. It returns the number of
// envelopes the handler accepted.
func (b *MemoryBus) Drain(ctx context.Context, h Handler, dead DeadLetterFunc) (int, error) {
	if h == nil {
		return 0, fmt.Errorf("handler required")
	}
	n := 0
	for {
		select {
		case d := <-b.ch:
			if b.deliver(ctx, d, h, dead) {
				n++
			}
		default:
			return n, nil
		}
	}
}

func (b *MemoryBus) deliver(ctx context.Context, d memoryDelivery, h Handler, dead DeadLetterFunc) bool {
	err := h(ctx, d.env)
	if err == nil {
		return true
	}
	d.attempts++
	if d.attempts < b.maxAttempts {
		select {
		case b.ch <- d:
			b.log.Warn("handler failed; re-buffered", "error", err, "event_id", d.env.ID, "kind", d.env.Kind, "attempts", d.attempts)
			return false
		default:
			b.log.Warn("handler failed and buffer is full", "error", err, "event_id", d.env.ID, "kind", d.env.Kind)
		}
	}
	b.deadLetter(ctx, d.env, err, dead)
	return false
}

func (b *MemoryBus) deadLetter(ctx context.Context, env Envelope, cause error, dead DeadLetterFunc) {
	if dead == nil {
		b.log.Error("handler failed; no dead-letter target, envelope dropped", "error", cause, "event_id", env.ID, "kind", env.Kind)
		return
	}
	if err := dead(ctx, env, cause); err != nil {
		b.log.Error("dead-letter failed; envelope dropped", "error", err, "cause", cause, "event_id", env.ID, "kind", env.Kind)
		return
	}
	b.log.Warn("handler failed; envelope dead-lettered", "error", cause, "event_id", env.ID, "kind", env.Kind)
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

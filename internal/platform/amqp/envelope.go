package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Envelope is the wire form of an outbox event. ID doubles as the dedupe key
// downstream, so redelivery of the same envelope is harmless.
type Envelope struct {
	ID           uuid.UUID       `json:"id"`
	Kind         string          `json:"kind"`
	UserID       uuid.UUID       `json:"user_id"`
	AggregateKey string          `json:"aggregate_key"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func DecodeEnvelope(body []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.ID == uuid.Nil {
		return Envelope{}, fmt.Errorf("decode envelope: missing id")
	}
	if env.Kind == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing kind")
	}
	return env, nil
}

package aggregates

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/coursecommerce-backend/internal/data/repos"
	types "github.com/yungbote/coursecommerce-backend/internal/domain"
	"github.com/yungbote/coursecommerce-backend/internal/platform/dbctx"
)

// appendOutbox records an event in the caller's transaction. A nil repo disables the outbox.
func appendOutbox(dbc dbctx.Context, outbox repos.OutboxRepo, kind string, userID uuid.UUID, aggregateKey string, payload map[string]any, at time.Time) error {
	if outbox == nil {
		return nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return InvariantError("outbox payload is not serializable: " + err.Error())
	}
	return outbox.Append(dbc, []*types.OutboxEvent{{
		Kind:         kind,
		UserID:       userID,
		AggregateKey: aggregateKey,
		Payload:      datatypes.JSON(raw),
		OccurredAt:   at.UTC(),
		CreatedAt:    at.UTC(),
	}})
}

func timePtr(t time.Time) *time.Time {
	t = t.UTC()
	return &t
}

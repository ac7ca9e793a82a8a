package aggregates

import (
	"context"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/coursecommerce-backend/internal/domain/aggregates"
)

// SetBeforeExpireHook lets sweep tests interleave writes between listing and the per-row re-read.
func SetBeforeExpireHook(agg domainagg.SubscriptionAggregate, fn func(ctx context.Context, id uuid.UUID)) {
	agg.(*subscriptionAggregate).beforeExpire = fn
}

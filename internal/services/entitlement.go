package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coursecommerce-backend/internal/data/repos"
	domainagg "github.com/yungbote/coursecommerce-backend/internal/domain/aggregates"
	"github.com/yungbote/coursecommerce-backend/internal/observability"
	"github.com/yungbote/coursecommerce-backend/internal/platform/dbctx"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
	cache "github.com/yungbote/coursecommerce-backend/internal/platform/redis"
)

// EntitlementService answers "may this user open this course". It never
// writes to the database; answers may be stale for up to the cache TTL.
type EntitlementService interface {
	HasAccess(ctx context.Context, userID, courseID uuid.UUID) (bool, error)
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

type entitlementService struct {
	log           *logger.Logger
	enrollments   repos.EnrollmentRepo
	subscriptions repos.SubscriptionRepo
	cache         cache.EntitlementCache
	metrics       *observability.Metrics
	now           func() time.Time
}

func NewEntitlementService(
	log *logger.Logger,
	enrollments repos.EnrollmentRepo,
	subscriptions repos.SubscriptionRepo,
	c cache.EntitlementCache,
	metrics *observability.Metrics,
) EntitlementService {
	if c == nil {
		c = cache.NopEntitlementCache()
	}
	return &entitlementService{
		log:           log.With("service", "EntitlementService"),
		enrollments:   enrollments,
		subscriptions: subscriptions,
		cache:         c,
		metrics:       metrics,
		now:           time.Now,
	}
}

func (s *entitlementService) HasAccess(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	const op = "Access.Entitlement.HasAccess"
	if userID == uuid.Nil || courseID == uuid.Nil {
		return false, domainagg.NewError(domainagg.CodeValidation, op, "user_id and course_id are required", nil)
	}

	cached, cacheErr := s.cache.Get(ctx, userID, courseID)
	if cacheErr != nil {
		s.log.Warn("entitlement cache read failed", "user_id", userID, "error", cacheErr)
	} else if cached.Hit {
		s.metrics.ObserveEntitlement(cached.Allowed, "cache")
		return cached.Allowed, nil
	}

	dbc := dbctx.Background(ctx)
	allowed, err := s.enrollments.Exists(dbc, userID, courseID)
	if err != nil {
		return false, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if !allowed {
		allowed, err = s.subscriptions.HasCatalogueAccess(dbc, userID, s.now().UTC())
		if err != nil {
			return false, domainagg.Wrap(domainagg.CodeInternal, op, err)
		}
	}
	s.metrics.ObserveEntitlement(allowed, "db")

	// Without an observed version the answer is not cached.
	if cacheErr == nil {
		if err := s.cache.Set(ctx, userID, courseID, cached.Version, allowed); err != nil {
			s.log.Warn("entitlement cache write failed", "user_id", userID, "error", err)
		}
	}
	return allowed, nil
}

func (s *entitlementService) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return nil
	}
	return s.cache.Invalidate(ctx, userID)
}

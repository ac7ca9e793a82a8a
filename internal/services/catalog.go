package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/yungbote/coursecommerce-backend/internal/data/repos"
	types "github.com/yungbote/coursecommerce-backend/internal/domain"
	domainagg "github.com/yungbote/coursecommerce-backend/internal/domain/aggregates"
	"github.com/yungbote/coursecommerce-backend/internal/domain/catalog"
	"github.com/yungbote/coursecommerce-backend/internal/platform/apierr"
	"github.com/yungbote/coursecommerce-backend/internal/platform/dbctx"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
)

type CatalogService interface {
	// Outline returns the ordered content units of a course the user may open.
	Outline(ctx context.Context, userID, courseID uuid.UUID) ([]catalog.ContentUnit, error)
	ListPlans(ctx context.Context) ([]*types.SubscriptionPlan, error)
	ListStandings(ctx context.Context, userID uuid.UUID) ([]*types.Standing, error)
}

type catalogService struct {
	log              *logger.Logger
	courses          repos.CourseRepo
	content          repos.ContentRepo
	plans            repos.SubscriptionPlanRepo
	userAchievements repos.UserAchievementRepo
	entitlements     EntitlementService
}

func NewCatalogService(
	log *logger.Logger,
	courses repos.CourseRepo,
	content repos.ContentRepo,
	plans repos.SubscriptionPlanRepo,
	userAchievements repos.UserAchievementRepo,
	entitlements EntitlementService,
) CatalogService {
	return &catalogService{
		log:              log.With("service", "CatalogService"),
		courses:          courses,
		content:          content,
		plans:            plans,
		userAchievements: userAchievements,
		entitlements:     entitlements,
	}
}

func (s *catalogService) Outline(ctx context.Context, userID, courseID uuid.UUID) ([]catalog.ContentUnit, error) {
	const op = "Catalog.Outline"
	dbc := dbctx.Background(ctx)
	course, err := s.courses.GetByID(dbc, courseID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if course == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("course not found: %s", courseID), nil)
	}
	ok, err := s.entitlements.HasAccess(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierr.New(http.StatusForbidden, "access_denied", fmt.Errorf("no entitlement for course %s", courseID))
	}

	modules, err := s.content.ListModules(dbc, courseID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	lessons, err := s.content.ListLessons(dbc, courseID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	videos, err := s.content.ListVideos(dbc, courseID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return catalog.SequenceUnits(courseID, modules, lessons, videos), nil
}

func (s *catalogService) ListPlans(ctx context.Context) ([]*types.SubscriptionPlan, error) {
	rows, err := s.plans.ListActive(dbctx.Background(ctx))
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, "Catalog.ListPlans", err)
	}
	return rows, nil
}

func (s *catalogService) ListStandings(ctx context.Context, userID uuid.UUID) ([]*types.Standing, error) {
	if userID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, "Catalog.ListStandings", "missing user_id", nil)
	}
	rows, err := s.userAchievements.ListStandings(dbctx.Background(ctx), userID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, "Catalog.ListStandings", err)
	}
	return rows, nil
}

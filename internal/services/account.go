package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/coursecommerce-backend/internal/data/repos"
	types "github.com/yungbote/coursecommerce-backend/internal/domain"
	domainagg "github.com/yungbote/coursecommerce-backend/internal/domain/aggregates"
	"github.com/yungbote/coursecommerce-backend/internal/platform/dbctx"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
)

// AccountService serves the read side of a user's commerce and learning
// history. Every call answers NotFound for an unknown user.
type AccountService interface {
	Payments(ctx context.Context, userID uuid.UUID, limit int) ([]*types.Payment, error)
	// Payment returns one payment by processor transaction id; a payment
	// owned by someone else is reported as missing.
	Payment(ctx context.Context, userID uuid.UUID, transactionID string) (*types.Payment, error)
	Subscriptions(ctx context.Context, userID uuid.UUID) ([]*types.Subscription, error)
	Courses(ctx context.Context, userID uuid.UUID) ([]*types.Course, error)
	Progress(ctx context.Context, userID uuid.UUID) ([]*types.CourseProgress, error)
	CourseProgress(ctx context.Context, userID, courseID uuid.UUID) (*types.CourseProgress, error)
	Achievements(ctx context.Context, userID uuid.UUID) ([]*types.UserAchievement, error)
	Stats(ctx context.Context, userID uuid.UUID) ([]*types.UserStat, error)
}

type AccountDeps struct {
	Users            repos.UserRepo
	Payments         repos.PaymentRepo
	Subscriptions    repos.SubscriptionRepo
	Enrollments      repos.EnrollmentRepo
	Courses          repos.CourseRepo
	CourseProgress   repos.CourseProgressRepo
	UserAchievements repos.UserAchievementRepo
	Stats            repos.UserStatRepo
}

type accountService struct {
	log  *logger.Logger
	deps AccountDeps
}

func NewAccountService(log *logger.Logger, deps AccountDeps) AccountService {
	return &accountService{log: log.With("service", "AccountService"), deps: deps}
}

func (s *accountService) requireUser(dbc dbctx.Context, op string, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	u, err := s.deps.Users.GetByID(dbc, userID)
	if err != nil {
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if u == nil {
		return domainagg.NewError(domainagg.CodeNotFound, op, "user not found", nil)
	}
	return nil
}

func (s *accountService) Payments(ctx context.Context, userID uuid.UUID, limit int) ([]*types.Payment, error) {
	const op = "Account.Payments"
	dbc := dbctx.Background(ctx)
	if err := s.requireUser(dbc, op, userID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.deps.Payments.ListByUser(dbc, userID, limit)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return rows, nil
}

func (s *accountService) Payment(ctx context.Context, userID uuid.UUID, transactionID string) (*types.Payment, error) {
	const op = "Account.Payment"
	dbc := dbctx.Background(ctx)
	if err := s.requireUser(dbc, op, userID); err != nil {
		return nil, err
	}
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing transaction_id", nil)
	}
	row, err := s.deps.Payments.GetByTransactionID(dbc, transactionID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if row == nil || row.UserID != userID {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "payment not found", nil)
	}
	return row, nil
}

func (s *accountService) Subscriptions(ctx context.Context, userID uuid.UUID) ([]*types.Subscription, error) {
	const op = "Account.Subscriptions"
	dbc := dbctx.Background(ctx)
	if err := s.requireUser(dbc, op, userID); err != nil {
		return nil, err
	}
	rows, err := s.deps.Subscriptions.ListByUser(dbc, userID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return rows, nil
}

// Courses lists purchased courses in enrollment order.
func (s *accountService) Courses(ctx context.Context, userID uuid.UUID) ([]*types.Course, error) {
	const op = "Account.Courses"
	dbc := dbctx.Background(ctx)
	if err := s.requireUser(dbc, op, userID); err != nil {
		return nil, err
	}
	ids, err := s.deps.Enrollments.ListCourseIDsByUser(dbc, userID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if len(ids) == 0 {
		return []*types.Course{}, nil
	}
	rows, err := s.deps.Courses.GetByIDs(dbc, ids)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	byID := make(map[uuid.UUID]*types.Course, len(rows))
	for _, c := range rows {
		byID[c.ID] = c
	}
	out := make([]*types.Course, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *accountService) Progress(ctx context.Context, userID uuid.UUID) ([]*types.CourseProgress, error) {
	const op = "Account.Progress"
	dbc := dbctx.Background(ctx)
	if err := s.requireUser(dbc, op, userID); err != nil {
		return nil, err
	}
	rows, err := s.deps.CourseProgress.ListByUser(dbc, userID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return rows, nil
}

func (s *accountService) CourseProgress(ctx context.Context, userID, courseID uuid.UUID) (*types.CourseProgress, error) {
	const op = "Account.CourseProgress"
	dbc := dbctx.Background(ctx)
	if err := s.requireUser(dbc, op, userID); err != nil {
		return nil, err
	}
	row, err := s.deps.CourseProgress.GetByUserCourse(dbc, userID, courseID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if row == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "no progress for course", nil)
	}
	return row, nil
}

// Achievements returns only the achievements the user has earned.
func (s *accountService) Achievements(ctx context.Context, userID uuid.UUID) ([]*types.UserAchievement, error) {
	const op = "Account.Achievements"
	dbc := dbctx.Background(ctx)
	if err := s.requireUser(dbc, op, userID); err != nil {
		return nil, err
	}
	rows, err := s.deps.UserAchievements.ListByUser(dbc, userID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	out := make([]*types.UserAchievement, 0, len(rows))
	for _, r := range rows {
		if r.Earned {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *accountService) Stats(ctx context.Context, userID uuid.UUID) ([]*types.UserStat, error) {
	const op = "Account.Stats"
	dbc := dbctx.Background(ctx)
	if err := s.requireUser(dbc, op, userID); err != nil {
		return nil, err
	}
	rows, err := s.deps.Stats.ListByUser(dbc, userID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return rows, nil
}

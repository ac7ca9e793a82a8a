package commerce

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/coursecommerce-backend/internal/domain"
	"github.com/yungbote/coursecommerce-backend/internal/platform/dbctx"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
)

type SubscriptionRepo interface {
	Create(dbc dbctx.Context, row *types.Subscription) error

	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Subscription, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Subscription, error)

	// LockActiveByProcessorID locks the active row for a processor subscription id, if any.
	LockActiveByProcessorID(dbc dbctx.Context, processorID string) (*types.Subscription, error)
	// GetLatestByProcessorID returns the most recent row in any status.
	GetLatestByProcessorID(dbc dbctx.Context, processorID string) (*types.Subscription, error)

	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Subscription, error)

	// ListExpiredActiveIDs pages active rows with end_time < now, ordered by id after afterID.
	ListExpiredActiveIDs(dbc dbctx.Context, now time.Time, afterID uuid.UUID, limit int) ([]uuid.UUID, error)

	// LatestActiveEnd returns the furthest end_time among the user's active rows.
	LatestActiveEnd(dbc dbctx.Context, userID uuid.UUID) (*time.Time, error)

	// HasCatalogueAccess reports whether the user holds an active, unexpired row whose plan
	// grants catalogue access. Rows without a plan grant access.
	HasCatalogueAccess(dbc dbctx.Context, userID uuid.UUID, now time.Time) (bool, error)
}

type subscriptionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubscriptionRepo(db *gorm.DB, baseLog *logger.Logger) SubscriptionRepo {
	return &subscriptionRepo{db: db, log: baseLog.With("repo", "SubscriptionRepo")}
}

func (r *subscriptionRepo) Create(dbc dbctx.Context, row *types.Subscription) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).Create(row).Error
}

func (r *subscriptionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Subscription, error) {
	return r.first(dbc, false, "id = ?", id)
}

func (r *subscriptionRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Subscription, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	return r.first(dbc, true, "id = ?", id)
}

func (r *subscriptionRepo) LockActiveByProcessorID(dbc dbctx.Context, processorID string) (*types.Subscription, error) {
	processorID = strings.TrimSpace(processorID)
	if processorID == "" {
		return nil, nil
	}
	return r.first(dbc, true, "processor_subscription_id = ? AND status = ?", processorID, types.SubscriptionActive)
}

func (r *subscriptionRepo) GetLatestByProcessorID(dbc dbctx.Context, processorID string) (*types.Subscription, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	processorID = strings.TrimSpace(processorID)
	if processorID == "" {
		return nil, nil
	}
	var row types.Subscription
	if err := t.WithContext(dbc.Ctx).
		Where("processor_subscription_id = ?", processorID).
		Order("end_time DESC").
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *subscriptionRepo) first(dbc dbctx.Context, lock bool, query string, args ...interface{}) (*types.Subscription, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(dbc.Ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row types.Subscription
	if err := q.Where(query, args...).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *subscriptionRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Subscription, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	out := []*types.Subscription{}
	if userID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("start_time DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *subscriptionRepo) ListExpiredActiveIDs(dbc dbctx.Context, now time.Time, afterID uuid.UUID, limit int) ([]uuid.UUID, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	out := []uuid.UUID{}
	if err := t.WithContext(dbc.Ctx).
		Model(&types.Subscription{}).
		Where("status = ? AND end_time < ? AND id > ?", types.SubscriptionActive, now.UTC(), afterID).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *subscriptionRepo) LatestActiveEnd(dbc dbctx.Context, userID uuid.UUID) (*time.Time, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil {
		return nil, nil
	}
	var row types.Subscription
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND status = ?", userID, types.SubscriptionActive).
		Order("end_time DESC").
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	end := row.EndTime.UTC()
	return &end, nil
}

func (r *subscriptionRepo) HasCatalogueAccess(dbc dbctx.Context, userID uuid.UUID, now time.Time) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil {
		return false, nil
	}
	var n int64
	err := t.WithContext(dbc.Ctx).
		Table("subscriptions AS s").
		Joins("LEFT JOIN subscription_plans AS p ON p.id = s.plan_id").
		Where("s.user_id = ? AND s.status = ? AND s.end_time >= ?", userID, types.SubscriptionActive, now.UTC()).
		Where("(s.plan_id IS NULL OR p.catalogue_access = ?)", true).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

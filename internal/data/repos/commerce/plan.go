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

type SubscriptionPlanRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.SubscriptionPlan, error)
	GetByProcessorPlanID(dbc dbctx.Context, processorPlanID string) (*types.SubscriptionPlan, error)
	ListActive(dbc dbctx.Context) ([]*types.SubscriptionPlan, error)
	// UpsertByProcessorPlanID inserts or refreshes a catalogue plan keyed by its processor id.
	UpsertByProcessorPlanID(dbc dbctx.Context, row *types.SubscriptionPlan) error
}

type subscriptionPlanRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubscriptionPlanRepo(db *gorm.DB, baseLog *logger.Logger) SubscriptionPlanRepo {
	return &subscriptionPlanRepo{db: db, log: baseLog.With("repo", "SubscriptionPlanRepo")}
}

func (r *subscriptionPlanRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.SubscriptionPlan, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	return r.first(dbc, "id = ?", id)
}

func (r *subscriptionPlanRepo) GetByProcessorPlanID(dbc dbctx.Context, processorPlanID string) (*types.SubscriptionPlan, error) {
	processorPlanID = strings.TrimSpace(processorPlanID)
	if processorPlanID == "" {
		return nil, nil
	}
	return r.first(dbc, "processor_plan_id = ?", processorPlanID)
}

func (r *subscriptionPlanRepo) first(dbc dbctx.Context, query string, args ...interface{}) (*types.SubscriptionPlan, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.SubscriptionPlan
	if err := t.WithContext(dbc.Ctx).Where(query, args...).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *subscriptionPlanRepo) ListActive(dbc dbctx.Context) ([]*types.SubscriptionPlan, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	out := []*types.SubscriptionPlan{}
	if err := t.WithContext(dbc.Ctx).
		Where("active = ?", true).
		Order("price_minor ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *subscriptionPlanRepo) UpsertByProcessorPlanID(dbc dbctx.Context, row *types.SubscriptionPlan) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || strings.TrimSpace(row.ProcessorPlanID) == "" {
		return nil
	}
	row.UpdatedAt = time.Now().UTC()
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "processor_plan_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "description", "price_minor", "currency", "duration_months",
				"active", "catalogue_access", "features", "updated_at",
			}),
		}).
		Create(row).Error
}

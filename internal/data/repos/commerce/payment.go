package commerce

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/coursecommerce-backend/internal/domain"
	"github.com/yungbote/coursecommerce-backend/internal/platform/dbctx"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
)

type PaymentRepo interface {
	// InsertIfAbsent creates the row unless the transaction id is already recorded.
	// It reports whether this call inserted it.
	InsertIfAbsent(dbc dbctx.Context, row *types.Payment) (bool, error)

	GetByTransactionID(dbc dbctx.Context, transactionID string) (*types.Payment, error)
	LockByTransactionID(dbc dbctx.Context, transactionID string) (*types.Payment, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.Payment, error)
}

type paymentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPaymentRepo(db *gorm.DB, baseLog *logger.Logger) PaymentRepo {
	return &paymentRepo{db: db, log: baseLog.With("repo", "PaymentRepo")}
}

func (r *paymentRepo) InsertIfAbsent(dbc dbctx.Context, row *types.Payment) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || strings.TrimSpace(row.TransactionID) == "" {
		return false, nil
	}
	res := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "transaction_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *paymentRepo) GetByTransactionID(dbc dbctx.Context, transactionID string) (*types.Payment, error) {
	return r.findByTransactionID(dbc, transactionID, false)
}

func (r *paymentRepo) LockByTransactionID(dbc dbctx.Context, transactionID string) (*types.Payment, error) {
	return r.findByTransactionID(dbc, transactionID, true)
}

func (r *paymentRepo) findByTransactionID(dbc dbctx.Context, transactionID string, lock bool) (*types.Payment, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, nil
	}
	q := t.WithContext(dbc.Ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row types.Payment
	if err := q.Where("transaction_id = ?", transactionID).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *paymentRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.Payment, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	out := []*types.Payment{}
	if userID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 {
		limit = 100
	}
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

package auth

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/coursecommerce-backend/internal/domain"
	"github.com/yungbote/coursecommerce-backend/internal/platform/dbctx"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
)

type PasswordResetTokenRepo interface {
	Create(dbc dbctx.Context, row *types.PasswordResetToken) error
	// MaxVersion returns the highest issued version for the user, 0 when none.
	MaxVersion(dbc dbctx.Context, userID uuid.UUID) (int, error)
	// LockByUser locks every token row of the user, newest version first.
	LockByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.PasswordResetToken, error)
	// MarkUsed flips used false->true; it reports false when the token was already used.
	MarkUsed(dbc dbctx.Context, id uuid.UUID, at time.Time) (bool, error)
	// DeleteExpiredBefore removes tokens that expired before cutoff.
	DeleteExpiredBefore(dbc dbctx.Context, cutoff time.Time) (int64, error)
}

type passwordResetTokenRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPasswordResetTokenRepo(db *gorm.DB, baseLog *logger.Logger) PasswordResetTokenRepo {
	repoLog := baseLog.With("repo", "PasswordResetTokenRepo")
	return &passwordResetTokenRepo{db: db, log: repoLog}
}

func (r *passwordResetTokenRepo) Create(dbc dbctx.Context, row *types.PasswordResetToken) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Create(row).Error
}

func (r *passwordResetTokenRepo) MaxVersion(dbc dbctx.Context, userID uuid.UUID) (int, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.PasswordResetToken
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("version DESC").
		Limit(1).
		Find(&row).Error; err != nil {
		return 0, err
	}
	return row.Version, nil
}

func (r *passwordResetTokenRepo) LockByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.PasswordResetToken, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := []*types.PasswordResetToken{}
	if userID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		Order("version DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *passwordResetTokenRepo) MarkUsed(dbc dbctx.Context, id uuid.UUID, at time.Time) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.PasswordResetToken{}).
		Where("id = ? AND used = ?", id, false).
		Updates(map[string]interface{}{"used": true, "used_at": at.UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *passwordResetTokenRepo) DeleteExpiredBefore(dbc dbctx.Context, cutoff time.Time) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("expires_at < ?", cutoff.UTC()).
		Delete(&types.PasswordResetToken{})
	return res.RowsAffected, res.Error
}

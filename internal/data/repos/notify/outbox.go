package notify

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/coursecommerce-backend/internal/domain"
	"github.com/yungbote/coursecommerce-backend/internal/platform/dbctx"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
)

type OutboxRepo interface {
	Append(dbc dbctx.Context, events []*types.OutboxEvent) error
	// ClaimUnpublished locks up to limit unpublished events, skipping rows claimed elsewhere.
	ClaimUnpublished(dbc dbctx.Context, limit, maxAttempts int) ([]*types.OutboxEvent, error)
	MarkPublished(dbc dbctx.Context, ids []uuid.UUID, at time.Time) error
	MarkFailed(dbc dbctx.Context, id uuid.UUID, errMsg string) error
	// Release returns a published event to the unpublished set so the relay sends it again.
	// It reports false when the row is unknown or already unpublished.
	Release(dbc dbctx.Context, id uuid.UUID, errMsg string) (bool, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, kind string) ([]*types.OutboxEvent, error)
}

type outboxRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOutboxRepo(db *gorm.DB, baseLog *logger.Logger) OutboxRepo {
	return &outboxRepo{db: db, log: baseLog.With("repo", "OutboxRepo")}
}

func (r *outboxRepo) Append(dbc dbctx.Context, events []*types.OutboxEvent) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(events) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).Create(&events).Error
}

func (r *outboxRepo) ClaimUnpublished(dbc dbctx.Context, limit, maxAttempts int) ([]*types.OutboxEvent, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	q := t.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("published_at IS NULL")
	if maxAttempts > 0 {
		q = q.Where("attempts < ?", maxAttempts)
	}
	out := []*types.OutboxEvent{}
	if err := q.Order("occurred_at ASC, id ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *outboxRepo) MarkPublished(dbc dbctx.Context, ids []uuid.UUID, at time.Time) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.OutboxEvent{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"published_at": at.UTC(),
			"attempts":     gorm.Expr("attempts + 1"),
			"last_error":   "",
		}).Error
}

func (r *outboxRepo) MarkFailed(dbc dbctx.Context, id uuid.UUID, errMsg string) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if len(errMsg) > 500 {
		errMsg = errMsg[:500]
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": errMsg,
		}).Error
}

func (r *outboxRepo) Release(dbc dbctx.Context, id uuid.UUID, errMsg string) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	if len(errMsg) > 500 {
		errMsg = errMsg[:500]
	}
	res := t.WithContext(dbc.Ctx).
		Model(&types.OutboxEvent{}).
		Where("id = ? AND published_at IS NOT NULL", id).
		Updates(map[string]interface{}{
			"published_at": nil,
			"last_error":   errMsg,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *outboxRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, kind string) ([]*types.OutboxEvent, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	out := []*types.OutboxEvent{}
	q := t.WithContext(dbc.Ctx).Where("user_id = ?", userID)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	if err := q.Order("occurred_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

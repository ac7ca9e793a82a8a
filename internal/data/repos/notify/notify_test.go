package notify

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/coursecommerce-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursecommerce-backend/internal/domain"
	"github.com/yungbote/coursecommerce-backend/internal/domain/notify"
	"github.com/yungbote/coursecommerce-backend/internal/platform/dbctx"
)

func TestNotificationRepoDedupesAndMarksRead(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	u := testutil.SeedUser(t, ctx, db)
	repo := NewNotificationRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}

	key := uuid.NewString()
	for i, want := range []bool{true, false} {
		ok, err := repo.CreateIfAbsent(dbc, &types.Notification{UserID: u.ID, Kind: notify.EventPaymentCompleted, Channel: notify.ChannelInApp, Title: "Payment received", DedupeKey: key})
		if err != nil {
			t.Fatalf("create #%d: %v", i, err)
		}
		if ok != want {
			t.Fatalf("create #%d: want=%v got=%v", i, want, ok)
		}
	}
	rows, err := repo.ListByUser(dbc, u.ID, true, 10)
	if err != nil || len(rows) != 1 {
		t.Fatalf("unread: want=1 got=%d err=%v", len(rows), err)
	}
	ok, err := repo.MarkRead(dbc, rows[0].ID, u.ID, time.Now())
	if err != nil || !ok {
		t.Fatalf("mark read: want=true got=%v err=%v", ok, err)
	}
	ok, err = repo.MarkRead(dbc, rows[0].ID, u.ID, time.Now())
	if err != nil || ok {
		t.Fatalf("mark read again: want=false got=%v err=%v", ok, err)
	}
	if ok, _ := repo.MarkRead(dbc, rows[0].ID, uuid.New(), time.Now()); ok {
		t.Fatalf("mark read by another user must not match")
	}
	rows, _ = repo.ListByUser(dbc, u.ID, true, 10)
	if len(rows) != 0 {
		t.Fatalf("unread after mark: want=0 got=%d", len(rows))
	}
}

func TestOutboxRepoClaimAndPublish(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	u := testutil.SeedUser(t, ctx, db)
	repo := NewOutboxRepo(db, testutil.Logger(t))
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	now := time.Now().UTC()
	events := []*types.OutboxEvent{
		{Kind: notify.EventPaymentCompleted, UserID: u.ID, AggregateKey: "txn-1", Payload: datatypes.JSON(`{}`), OccurredAt: now},
		{Kind: notify.EventCourseCompleted, UserID: u.ID, AggregateKey: "course-1", Payload: datatypes.JSON(`{}`), OccurredAt: now.Add(time.Second)},
	}
	if err := repo.Append(dbc, events); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := repo.MarkFailed(dbc, events[1].ID, "broker down"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if err := repo.MarkPublished(dbc, []uuid.UUID{events[0].ID}, now); err != nil {
		t.Fatalf("mark published: %v", err)
	}
	rows, err := repo.ListByUser(dbc, u.ID, "")
	if err != nil || len(rows) != 2 {
		t.Fatalf("list: want=2 got=%d err=%v", len(rows), err)
	}
	for _, r := range rows {
		switch r.ID {
		case events[0].ID:
			if r.PublishedAt == nil || r.Attempts != 1 {
				t.Fatalf("published row: %+v", r)
			}
		case events[1].ID:
			if r.PublishedAt != nil || r.Attempts != 1 || r.LastError != "broker down" {
				t.Fatalf("failed row: %+v", r)
			}
		}
	}
	claimed, err := repo.ClaimUnpublished(dbc, 100, 1)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	for _, c := range claimed {
		if c.ID == events[0].ID || c.ID == events[1].ID {
			t.Fatalf("claim must skip published and exhausted rows, got %s", c.ID)
		}
	}
}

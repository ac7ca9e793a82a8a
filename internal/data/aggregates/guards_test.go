package aggregates

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coursecommerce-backend/internal/data/repos/testutil"
	"github.com/yungbote/coursecommerce-backend/internal/platform/dbctx"
)

func TestRequireStatusAllowed(t *testing.T) {
	if err := RequireStatusAllowed("active", "active"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := RequireStatusAllowed("expired", "active"); err == nil {
		t.Fatalf("expected conflict error")
	}
}

func TestRequireVersionMatch(t *testing.T) {
	if err := RequireVersionMatch(3, 3); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := RequireVersionMatch(2, 3); err == nil {
		t.Fatalf("expected conflict error")
	}
}

func TestRequireCASSuccess(t *testing.T) {
	if err := RequireCASSuccess(true, "ok"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := RequireCASSuccess(false, "stale"); err == nil {
		t.Fatalf("expected conflict error")
	}
}

func TestCASGuardUpdateByVersionBumpsVersion(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, ctx, db)
	plan := testutil.SeedPlan(t, ctx, db, 1)
	now := time.Now().UTC()
	sub := testutil.SeedSubscription(t, ctx, db, user.ID, plan.ID, "sub_cas", now, now.Add(time.Hour))

	g := NewCASGuard(db)
	dbc := dbctx.Context{Ctx: ctx}
	ok, err := g.UpdateByVersion(dbc, "subscriptions", sub.ID, sub.Version, map[string]any{"end_time": now.Add(2 * time.Hour)})
	if err != nil || !ok {
		t.Fatalf("first CAS: ok=%v err=%v", ok, err)
	}
	ok, err = g.UpdateByVersion(dbc, "subscriptions", sub.ID, sub.Version, map[string]any{"end_time": now.Add(3 * time.Hour)})
	if err != nil {
		t.Fatalf("second CAS: %v", err)
	}
	if ok {
		t.Fatalf("stale version should not match")
	}
	var version int
	if err := db.Table("subscriptions").Select("version").Where("id = ?", sub.ID).Scan(&version).Error; err != nil {
		t.Fatalf("load version: %v", err)
	}
	if version != sub.Version+1 {
		t.Fatalf("version: want=%d got=%d", sub.Version+1, version)
	}
	if ok, err := g.UpdateByVersion(dbc, "subscriptions", uuid.Nil, 0, nil); err == nil || ok {
		t.Fatalf("nil id should fail validation")
	}
}

package commerce

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coursecommerce-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursecommerce-backend/internal/domain"
	"github.com/yungbote/coursecommerce-backend/internal/platform/dbctx"
)

func TestPaymentRepoInsertIfAbsent(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	u := testutil.SeedUser(t, ctx, db)
	c := testutil.SeedCourse(t, ctx, db)
	repo := NewPaymentRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}

	txn := "txn-" + uuid.NewString()
	first := &types.Payment{TransactionID: txn, UserID: u.ID, CourseID: testutil.PtrUUID(c.ID), AmountMinor: 1999, Currency: "USD", Method: "card", Status: types.PaymentPending}
	inserted, err := repo.InsertIfAbsent(dbc, first)
	if err != nil || !inserted {
		t.Fatalf("first insert: inserted=%v err=%v", inserted, err)
	}
	second := &types.Payment{TransactionID: txn, UserID: u.ID, CourseID: testutil.PtrUUID(c.ID), AmountMinor: 1999, Currency: "USD", Method: "card", Status: types.PaymentCompleted}
	inserted, err = repo.InsertIfAbsent(dbc, second)
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if inserted {
		t.Fatalf("second insert: want=false got=true")
	}
	var n int64
	if err := db.WithContext(ctx).Model(&types.Payment{}).Where("transaction_id = ?", txn).Count(&n).Error; err != nil || n != 1 {
		t.Fatalf("count: want=1 got=%d err=%v", n, err)
	}
	row, err := repo.LockByTransactionID(dbc, txn)
	if err != nil || row == nil || row.Status != types.PaymentPending {
		t.Fatalf("lock: got=%+v err=%v", row, err)
	}
}

func TestEnrollmentRepoCreateIfAbsent(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	u := testutil.SeedUser(t, ctx, db)
	c := testutil.SeedCourse(t, ctx, db)
	repo := NewEnrollmentRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}

	for i, want := range []bool{true, false} {
		created, err := repo.CreateIfAbsent(dbc, &types.Enrollment{UserID: u.ID, CourseID: c.ID, EnrolledAt: time.Now().UTC()})
		if err != nil {
			t.Fatalf("create #%d: %v", i, err)
		}
		if created != want {
			t.Fatalf("create #%d: want=%v got=%v", i, want, created)
		}
	}
	ok, err := repo.Exists(dbc, u.ID, c.ID)
	if err != nil || !ok {
		t.Fatalf("exists: want=true got=%v err=%v", ok, err)
	}
	ids, err := repo.ListCourseIDsByUser(dbc, u.ID)
	if err != nil || len(ids) != 1 || ids[0] != c.ID {
		t.Fatalf("list: got=%v err=%v", ids, err)
	}
}

func TestSubscriptionRepoQueries(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	u := testutil.SeedUser(t, ctx, db)
	plan := testutil.SeedPlan(t, ctx, db, 1)
	repo := NewSubscriptionRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}

	now := time.Date(2031, 3, 1, 12, 0, 0, 0, time.UTC)
	ended := testutil.SeedSubscription(t, ctx, db, u.ID, plan.ID, "sub_a_"+u.ID.String(), now.Add(-48*time.Hour), now.Add(-time.Hour))
	live := testutil.SeedSubscription(t, ctx, db, u.ID, plan.ID, "sub_b_"+u.ID.String(), now.Add(-time.Hour), now.Add(72*time.Hour))

	ids, err := repo.ListExpiredActiveIDs(dbc, now, uuid.Nil, 1000)
	if err != nil {
		t.Fatalf("ListExpiredActiveIDs: %v", err)
	}
	if !containsID(ids, ended.ID) || containsID(ids, live.ID) {
		t.Fatalf("expired ids: want %s only, got=%v", ended.ID, ids)
	}
	ids, err = repo.ListExpiredActiveIDs(dbc, now, ended.ID, 1000)
	if err != nil || containsID(ids, ended.ID) {
		t.Fatalf("page after cursor must exclude it: got=%v err=%v", ids, err)
	}

	end, err := repo.LatestActiveEnd(dbc, u.ID)
	if err != nil || end == nil || !end.Equal(live.EndTime) {
		t.Fatalf("LatestActiveEnd: want=%s got=%v err=%v", live.EndTime, end, err)
	}

	ok, err := repo.HasCatalogueAccess(dbc, u.ID, now)
	if err != nil || !ok {
		t.Fatalf("HasCatalogueAccess: want=true got=%v err=%v", ok, err)
	}
	ok, err = repo.HasCatalogueAccess(dbc, u.ID, now.Add(96*time.Hour))
	if err != nil || ok {
		t.Fatalf("HasCatalogueAccess after end: want=false got=%v err=%v", ok, err)
	}

	locked, err := repo.LockActiveByProcessorID(dbc, "sub_b_"+u.ID.String())
	if err != nil || locked == nil || locked.ID != live.ID {
		t.Fatalf("LockActiveByProcessorID: got=%+v err=%v", locked, err)
	}
}

func TestSubscriptionActiveProcessorIDIsUnique(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	u := testutil.SeedUser(t, ctx, db)
	repo := NewSubscriptionRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}
	now := time.Now().UTC()
	processorID := "sub_dup_" + u.ID.String()

	old := &types.Subscription{UserID: u.ID, ProcessorSubscriptionID: processorID, Status: types.SubscriptionExpired, StartTime: now.Add(-time.Hour), EndTime: now}
	if err := repo.Create(dbc, old); err != nil {
		t.Fatalf("create expired: %v", err)
	}
	first := &types.Subscription{UserID: u.ID, ProcessorSubscriptionID: processorID, Status: types.SubscriptionActive, StartTime: now, EndTime: now.Add(time.Hour)}
	if err := repo.Create(dbc, first); err != nil {
		t.Fatalf("create active next to expired history: %v", err)
	}
	second := &types.Subscription{UserID: u.ID, ProcessorSubscriptionID: processorID, Status: types.SubscriptionActive, StartTime: now, EndTime: now.Add(time.Hour)}
	if err := repo.Create(dbc, second); err == nil {
		t.Fatalf("second active row for the same processor id should violate the unique index")
	}
}

func TestSubscriptionPlanUpsert(t *testing.T) {
	db := testutil.DB(t)
	repo := NewSubscriptionPlanRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	planKey := "plan_monthly_" + uuid.NewString()[:8]
	p := &types.SubscriptionPlan{Name: "Monthly", PriceMinor: 999, Currency: "USD", DurationMonths: 1, ProcessorPlanID: planKey, Active: true, CatalogueAccess: true}
	if err := repo.UpsertByProcessorPlanID(dbc, p); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	p2 := &types.SubscriptionPlan{Name: "Monthly Plus", PriceMinor: 1299, Currency: "USD", DurationMonths: 1, ProcessorPlanID: planKey, Active: true, CatalogueAccess: true}
	if err := repo.UpsertByProcessorPlanID(dbc, p2); err != nil {
		t.Fatalf("upsert (update): %v", err)
	}
	got, err := repo.GetByProcessorPlanID(dbc, planKey)
	if err != nil || got == nil {
		t.Fatalf("get: got=%+v err=%v", got, err)
	}
	if got.Name != "Monthly Plus" || got.PriceMinor != 1299 {
		t.Fatalf("plan: want updated row got=%+v", got)
	}
	active, err := repo.ListActive(dbc)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	found := false
	for _, a := range active {
		found = found || a.ID == got.ID
	}
	if !found {
		t.Fatalf("ListActive: upserted plan missing")
	}
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

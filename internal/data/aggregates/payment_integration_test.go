package aggregates_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coursecommerce-backend/internal/data/aggregates"
	aggtest "github.com/yungbote/coursecommerce-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/coursecommerce-backend/internal/data/repos/testutil"
	"github.com/yungbote/coursecommerce-backend/internal/domain/achievements"
	domainagg "github.com/yungbote/coursecommerce-backend/internal/domain/aggregates"
	"github.com/yungbote/coursecommerce-backend/internal/domain/commerce"
	"github.com/yungbote/coursecommerce-backend/internal/domain/notify"
)

func coursePayment(txn string, userID, courseID uuid.UUID, status commerce.PaymentStatus, at time.Time) domainagg.RecordPaymentEventInput {
	return domainagg.RecordPaymentEventInput{
		TransactionID: txn,
		UserID:        userID,
		CourseID:      courseID,
		AmountMinor:   1999,
		Currency:      "usd",
		Method:        "card",
		Status:        status,
		OccurredAt:    at,
	}
}

func TestRecordPaymentEventRetriedCompletionIsIdempotent(t *testing.T) {
	h := newHarness(t)
	u := testutil.SeedUser(t, h.ctx, h.db)
	c := testutil.SeedCourse(t, h.ctx, h.db)
	agg := h.paymentAgg(t, h.base(t))
	txn := "txn-1-" + uuid.NewString()[:8]
	at := ts(2026, 3, 1, 10)

	first, err := agg.RecordPaymentEvent(h.ctx, coursePayment(txn, u.ID, c.ID, commerce.PaymentCompleted, at))
	if err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if first.Duplicate || !first.Transitioned || !first.EnrollmentCreated {
		t.Fatalf("first delivery result: %+v", first)
	}

	second, err := agg.RecordPaymentEvent(h.ctx, coursePayment(txn, u.ID, c.ID, commerce.PaymentCompleted, at.Add(time.Minute)))
	if err != nil {
		t.Fatalf("retried delivery: %v", err)
	}
	if !second.Duplicate || second.Transitioned || second.EnrollmentCreated {
		t.Fatalf("retried delivery result: %+v", second)
	}
	if second.PaymentID != first.PaymentID {
		t.Fatalf("payment id: want=%s got=%s", first.PaymentID, second.PaymentID)
	}

	if n := h.paymentCount(t, txn); n != 1 {
		t.Fatalf("payments: want=1 got=%d", n)
	}
	if n, _ := h.enrollments.CountByUserCourse(h.dbc, u.ID, c.ID); n != 1 {
		t.Fatalf("enrollments: want=1 got=%d", n)
	}
	if v := h.statValue(t, u.ID, achievements.StatCoursesPurchased); v != 1 {
		t.Fatalf("courses_purchased: want=1 got=%d", v)
	}
	if n := h.outboxCount(t, u.ID, notify.EventPaymentCompleted); n != 1 {
		t.Fatalf("payment.completed events: want=1 got=%d", n)
	}
	course, _ := h.courses.GetByID(h.dbc, c.ID)
	if course == nil || course.Students != 1 {
		t.Fatalf("course students: want=1 got=%+v", course)
	}
	p, _ := h.payments.GetByTransactionID(h.dbc, txn)
	if p == nil || p.Currency != "USD" || p.AmountMinor != 1999 || p.CompletedAt == nil {
		t.Fatalf("stored payment: %+v", p)
	}
	if h.inval.count(u.ID) != 1 {
		t.Fatalf("entitlement invalidations: want=1 got=%d", h.inval.count(u.ID))
	}
}

func TestRecordPaymentEventConcurrentDeliveriesEnrollOnce(t *testing.T) {
	h := newHarness(t)
	u := testutil.SeedUser(t, h.ctx, h.db)
	c := testutil.SeedCourse(t, h.ctx, h.db)
	agg := h.paymentAgg(t, h.base(t))
	txn := "txn-race-" + uuid.NewString()[:8]
	in := coursePayment(txn, u.ID, c.ID, commerce.PaymentCompleted, ts(2026, 3, 2, 10))

	const deliveries = 8
	results := make([]domainagg.RecordPaymentEventResult, deliveries)
	errs := make([]error, deliveries)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = redeliver(func() error {
				var err error
				results[i], err = agg.RecordPaymentEvent(h.ctx, in)
				return err
			})
		}(i)
	}
	close(start)
	wg.Wait()

	enrolled := 0
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("delivery %d: %v", i, errs[i])
		}
		if results[i].EnrollmentCreated {
			enrolled++
		}
	}
	if enrolled != 1 {
		t.Fatalf("deliveries reporting a new enrollment: want=1 got=%d", enrolled)
	}
	if n := h.paymentCount(t, txn); n != 1 {
		t.Fatalf("payments: want=1 got=%d", n)
	}
	if n, _ := h.enrollments.CountByUserCourse(h.dbc, u.ID, c.ID); n != 1 {
		t.Fatalf("enrollments: want=1 got=%d", n)
	}
	if v := h.statValue(t, u.ID, achievements.StatCoursesPurchased); v != 1 {
		t.Fatalf("courses_purchased: want=1 got=%d", v)
	}
	if n := h.outboxCount(t, u.ID, notify.EventPaymentCompleted); n != 1 {
		t.Fatalf("payment.completed events: want=1 got=%d", n)
	}
	if course, _ := h.courses.GetByID(h.dbc, c.ID); course == nil || course.Students != 1 {
		t.Fatalf("course students: want=1 got=%+v", course)
	}
}

func TestRecordPaymentEventPendingThenCompleted(t *testing.T) {
	h := newHarness(t)
	u := testutil.SeedUser(t, h.ctx, h.db)
	c := testutil.SeedCourse(t, h.ctx, h.db)
	agg := h.paymentAgg(t, h.base(t))
	txn := "txn-" + uuid.NewString()
	at := ts(2026, 3, 2, 9)

	res, err := agg.RecordPaymentEvent(h.ctx, coursePayment(txn, u.ID, c.ID, commerce.PaymentPending, at))
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if res.Transitioned || res.EnrollmentCreated {
		t.Fatalf("pending result: %+v", res)
	}
	if ok, _ := h.enrollments.Exists(h.dbc, u.ID, c.ID); ok {
		t.Fatalf("pending payment must not enroll")
	}

	res, err = agg.RecordPaymentEvent(h.ctx, coursePayment(txn, u.ID, c.ID, commerce.PaymentCompleted, at.Add(time.Minute)))
	if err != nil {
		t.Fatalf("completed: %v", err)
	}
	if res.PreviousStatus != commerce.PaymentPending || res.Status != commerce.PaymentCompleted || !res.Transitioned {
		t.Fatalf("completed result: %+v", res)
	}
	if ok, _ := h.enrollments.Exists(h.dbc, u.ID, c.ID); !ok {
		t.Fatalf("completed payment must enroll")
	}
}

func TestRecordPaymentEventRejectsInvalidTransitions(t *testing.T) {
	h := newHarness(t)
	u := testutil.SeedUser(t, h.ctx, h.db)
	other := testutil.SeedUser(t, h.ctx, h.db)
	c := testutil.SeedCourse(t, h.ctx, h.db)
	agg := h.paymentAgg(t, h.base(t))
	txn := "txn-" + uuid.NewString()
	at := ts(2026, 3, 3, 9)

	if _, err := agg.RecordPaymentEvent(h.ctx, coursePayment(txn, u.ID, c.ID, commerce.PaymentCompleted, at)); err != nil {
		t.Fatalf("completed: %v", err)
	}

	_, err := agg.RecordPaymentEvent(h.ctx, coursePayment(txn, u.ID, c.ID, commerce.PaymentFailed, at))
	requireCode(t, err, domainagg.CodeInvalidTransition)
	_, err = agg.RecordPaymentEvent(h.ctx, coursePayment(txn, u.ID, c.ID, commerce.PaymentPending, at))
	requireCode(t, err, domainagg.CodeInvalidTransition)
	_, err = agg.RecordPaymentEvent(h.ctx, coursePayment(txn, other.ID, c.ID, commerce.PaymentCompleted, at))
	requireCode(t, err, domainagg.CodeInvalidTransition)

	p, _ := h.payments.GetByTransactionID(h.dbc, txn)
	if p == nil || p.Status != commerce.PaymentCompleted || p.UserID != u.ID {
		t.Fatalf("ledger row changed: %+v", p)
	}
}

func TestRecordPaymentEventFailedIsLedgerOnly(t *testing.T) {
	h := newHarness(t)
	u := testutil.SeedUser(t, h.ctx, h.db)
	c := testutil.SeedCourse(t, h.ctx, h.db)
	agg := h.paymentAgg(t, h.base(t))

	res, err := agg.RecordPaymentEvent(h.ctx, coursePayment("txn-"+uuid.NewString(), u.ID, c.ID, commerce.PaymentFailed, ts(2026, 3, 4, 9)))
	if err != nil {
		t.Fatalf("failed payment: %v", err)
	}
	if res.EnrollmentCreated || res.Status != commerce.PaymentFailed {
		t.Fatalf("failed result: %+v", res)
	}
	if ok, _ := h.enrollments.Exists(h.dbc, u.ID, c.ID); ok {
		t.Fatalf("failed payment must not enroll")
	}
	if v := h.statValue(t, u.ID, achievements.StatCoursesPurchased); v != 0 {
		t.Fatalf("courses_purchased: want=0 got=%d", v)
	}
	if n := h.outboxCount(t, u.ID, notify.EventPaymentFailed); n != 1 {
		t.Fatalf("payment.failed events: want=1 got=%d", n)
	}
}

func TestRecordPaymentEventValidation(t *testing.T) {
	h := newHarness(t)
	agg := h.paymentAgg(t, h.base(t))
	u := uuid.New()

	cases := []domainagg.RecordPaymentEventInput{
		{UserID: u, CourseID: uuid.New(), Status: commerce.PaymentCompleted},
		{TransactionID: "t", CourseID: uuid.New(), Status: commerce.PaymentCompleted},
		{TransactionID: "t", UserID: u, Status: commerce.PaymentCompleted},
		{TransactionID: "t", UserID: u, CourseID: uuid.New(), PlanID: uuid.New(), Status: commerce.PaymentCompleted},
		{TransactionID: "t", UserID: u, CourseID: uuid.New(), Status: "refunded"},
		{TransactionID: "t", UserID: u, CourseID: uuid.New(), Status: commerce.PaymentCompleted, AmountMinor: -1},
	}
	for i, in := range cases {
		_, err := agg.RecordPaymentEvent(h.ctx, in)
		if !domainagg.IsCode(err, domainagg.CodeValidation) {
			t.Fatalf("case %d: want validation got=%v", i, err)
		}
	}

	_, err := agg.RecordPaymentEvent(h.ctx, coursePayment("txn-"+uuid.NewString(), testutil.SeedUser(t, h.ctx, h.db).ID, uuid.New(), commerce.PaymentCompleted, time.Time{}))
	requireCode(t, err, domainagg.CodeNotFound)
}

func TestRecordPaymentEventPlanPurchaseOpensThenRenews(t *testing.T) {
	h := newHarness(t)
	u := testutil.SeedUser(t, h.ctx, h.db)
	plan := testutil.SeedPlan(t, h.ctx, h.db, 1)
	agg := h.paymentAgg(t, h.base(t))
	processorID := "sub_" + uuid.NewString()
	start := ts(2026, 1, 10, 12)

	in := domainagg.RecordPaymentEventInput{
		TransactionID:           "txn-" + uuid.NewString(),
		UserID:                  u.ID,
		PlanID:                  plan.ID,
		ProcessorSubscriptionID: processorID,
		AmountMinor:             999,
		Currency:                "USD",
		Method:                  "card",
		Status:                  commerce.PaymentCompleted,
		OccurredAt:              start,
	}
	opened, err := agg.RecordPaymentEvent(h.ctx, in)
	if err != nil {
		t.Fatalf("first plan payment: %v", err)
	}
	wantEnd := ts(2026, 2, 10, 12)
	if opened.SubscriptionID == uuid.Nil || opened.SubscriptionEnd == nil || !opened.SubscriptionEnd.Equal(wantEnd) {
		t.Fatalf("opened subscription: %+v", opened)
	}

	in.TransactionID = "txn-" + uuid.NewString()
	in.OccurredAt = start.AddDate(0, 0, 20)
	renewed, err := agg.RecordPaymentEvent(h.ctx, in)
	if err != nil {
		t.Fatalf("renewal payment: %v", err)
	}
	wantEnd = ts(2026, 3, 10, 12)
	if renewed.SubscriptionID != opened.SubscriptionID || !renewed.SubscriptionEnd.Equal(wantEnd) {
		t.Fatalf("renewed subscription: %+v", renewed)
	}

	subs, _ := h.subscriptions.ListByUser(h.dbc, u.ID)
	if len(subs) != 1 || subs[0].Status != commerce.SubscriptionActive || subs[0].Version != 1 {
		t.Fatalf("subscriptions: %+v", subs)
	}
	user, _ := h.users.GetByID(h.dbc, u.ID)
	if user.SubscriptionExpiresAt == nil || !user.SubscriptionExpiresAt.Equal(wantEnd) {
		t.Fatalf("user subscription_expires_at: want=%s got=%v", wantEnd, user.SubscriptionExpiresAt)
	}
	if v := h.statValue(t, u.ID, achievements.StatSubscriptionsStarted); v != 1 {
		t.Fatalf("subscriptions_started: want=1 got=%d", v)
	}
	if n := h.outboxCount(t, u.ID, notify.EventSubscriptionActivated); n != 1 {
		t.Fatalf("subscription.activated events: want=1 got=%d", n)
	}
	if n := h.outboxCount(t, u.ID, notify.EventSubscriptionRenewed); n != 1 {
		t.Fatalf("subscription.renewed events: want=1 got=%d", n)
	}
}

func TestRecordPaymentEventPlanWithoutProcessorIDUsesTransaction(t *testing.T) {
	h := newHarness(t)
	u := testutil.SeedUser(t, h.ctx, h.db)
	plan := testutil.SeedPlan(t, h.ctx, h.db, 12)
	agg := h.paymentAgg(t, h.base(t))
	txn := "txn-" + uuid.NewString()

	res, err := agg.RecordPaymentEvent(h.ctx, domainagg.RecordPaymentEventInput{
		TransactionID: txn,
		UserID:        u.ID,
		PlanID:        plan.ID,
		AmountMinor:   9999,
		Status:        commerce.PaymentCompleted,
		OccurredAt:    ts(2026, 1, 1, 0),
	})
	if err != nil {
		t.Fatalf("plan payment: %v", err)
	}
	sub, _ := h.subscriptions.GetByID(h.dbc, res.SubscriptionID)
	if sub == nil || sub.ProcessorSubscriptionID != "txn:"+txn {
		t.Fatalf("processor id: %+v", sub)
	}
	if !sub.EndTime.Equal(ts(2027, 1, 1, 0)) {
		t.Fatalf("end time: got=%s", sub.EndTime)
	}
}

func TestRecordPaymentEventRollsBackEverythingOnCommitFailure(t *testing.T) {
	h := newHarness(t)
	u := testutil.SeedUser(t, h.ctx, h.db)
	c := testutil.SeedCourse(t, h.ctx, h.db)
	runner := &aggtest.InjectedTxRunner{
		Inner:      aggregates.NewGormTxRunner(h.db),
		FailCommit: errors.New("injected commit failure"),
	}
	base := h.base(t)
	base.Runner = runner
	agg := h.paymentAgg(t, base)
	txn := "txn-" + uuid.NewString()

	_, err := agg.RecordPaymentEvent(h.ctx, coursePayment(txn, u.ID, c.ID, commerce.PaymentCompleted, ts(2026, 3, 5, 9)))
	requireCode(t, err, domainagg.CodeInternal)
	if runner.RollbackCalls != 1 || runner.CommitCalls != 0 {
		t.Fatalf("runner calls: rollback=%d commit=%d", runner.RollbackCalls, runner.CommitCalls)
	}

	if n := h.paymentCount(t, txn); n != 0 {
		t.Fatalf("payments after rollback: want=0 got=%d", n)
	}
	if ok, _ := h.enrollments.Exists(h.dbc, u.ID, c.ID); ok {
		t.Fatalf("enrollment survived rollback")
	}
	if v := h.statValue(t, u.ID, achievements.StatCoursesPurchased); v != 0 {
		t.Fatalf("stat survived rollback: %d", v)
	}
	if n := h.outboxCount(t, u.ID, ""); n != 0 {
		t.Fatalf("outbox survived rollback: %d", n)
	}
	if h.inval.count(u.ID) != 0 {
		t.Fatalf("cache must not be invalidated for a rolled back write")
	}
}

func TestRecordPaymentEventEarnsPurchaseAchievement(t *testing.T) {
	h := newHarness(t)
	u := testutil.SeedUser(t, h.ctx, h.db)
	c := testutil.SeedCourse(t, h.ctx, h.db)
	code := "first-purchase-" + uuid.NewString()[:8]
	testutil.SeedAchievement(t, h.ctx, h.db, code, achievements.StatCoursesPurchased, 1)
	agg := h.paymentAgg(t, h.base(t))

	res, err := agg.RecordPaymentEvent(h.ctx, coursePayment("txn-"+uuid.NewString(), u.ID, c.ID, commerce.PaymentCompleted, ts(2026, 3, 6, 9)))
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if !earnedCode(res.EarnedAchievements, code) {
		t.Fatalf("achievement %s not earned: %+v", code, res.EarnedAchievements)
	}
}

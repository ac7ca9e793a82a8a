package aggregates_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coursecommerce-backend/internal/data/aggregates"
	"github.com/yungbote/coursecommerce-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/coursecommerce-backend/internal/domain/aggregates"
	"github.com/yungbote/coursecommerce-backend/internal/platform/passhash"
)

func TestPasswordResetDoubleRedeemIsAlreadyUsed(t *testing.T) {
	h := newHarness(t)
	u := testutil.SeedUser(t, h.ctx, h.db)
	agg := h.resetAgg(t, time.Hour)
	t0 := ts(2026, 7, 1, 0)

	issued, err := agg.IssueToken(h.ctx, domainagg.IssueResetTokenInput{UserID: u.ID, At: t0})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if issued.Version != 1 || issued.Token == "" || !issued.ExpiresAt.Equal(t0.Add(time.Hour)) {
		t.Fatalf("issue result: %+v", issued)
	}

	res, err := agg.Redeem(h.ctx, domainagg.RedeemResetTokenInput{UserID: u.ID, Token: issued.Token, At: t0.Add(time.Minute)})
	if err != nil || res.Version != 1 || res.PasswordChanged {
		t.Fatalf("redeem: res=%+v err=%v", res, err)
	}
	_, err = agg.Redeem(h.ctx, domainagg.RedeemResetTokenInput{UserID: u.ID, Token: issued.Token, At: t0.Add(2 * time.Minute)})
	requireCode(t, err, domainagg.CodeAlreadyUsed)
}

func TestPasswordResetOlderVersionIsSuperseded(t *testing.T) {
	h := newHarness(t)
	u := testutil.SeedUser(t, h.ctx, h.db)
	agg := h.resetAgg(t, time.Hour)
	t0 := ts(2026, 7, 2, 0)

	v1, err := agg.IssueToken(h.ctx, domainagg.IssueResetTokenInput{UserID: u.ID, At: t0})
	if err != nil {
		t.Fatalf("issue v1: %v", err)
	}
	v2, err := agg.IssueToken(h.ctx, domainagg.IssueResetTokenInput{UserID: u.ID, At: t0.Add(time.Minute)})
	if err != nil || v2.Version != 2 {
		t.Fatalf("issue v2: res=%+v err=%v", v2, err)
	}

	_, err = agg.Redeem(h.ctx, domainagg.RedeemResetTokenInput{UserID: u.ID, Token: v1.Token, At: t0.Add(2 * time.Minute)})
	requireCode(t, err, domainagg.CodeSuperseded)
	if _, err := agg.Redeem(h.ctx, domainagg.RedeemResetTokenInput{UserID: u.ID, Token: v2.Token, At: t0.Add(3 * time.Minute)}); err != nil {
		t.Fatalf("redeem v2: %v", err)
	}
}

func TestPasswordResetCheckOrder(t *testing.T) {
	h := newHarness(t)
	u := testutil.SeedUser(t, h.ctx, h.db)
	agg := h.resetAgg(t, time.Hour)
	t0 := ts(2026, 7, 3, 0)

	v1, _ := agg.IssueToken(h.ctx, domainagg.IssueResetTokenInput{UserID: u.ID, At: t0})
	if _, err := agg.Redeem(h.ctx, domainagg.RedeemResetTokenInput{UserID: u.ID, Token: v1.Token, At: t0}); err != nil {
		t.Fatalf("redeem v1: %v", err)
	}
	v2, _ := agg.IssueToken(h.ctx, domainagg.IssueResetTokenInput{UserID: u.ID, At: t0})

	// Used beats superseded, and superseded beats expired.
	_, err := agg.Redeem(h.ctx, domainagg.RedeemResetTokenInput{UserID: u.ID, Token: v1.Token, At: t0.Add(5 * time.Hour)})
	requireCode(t, err, domainagg.CodeAlreadyUsed)
	_, err = agg.Redeem(h.ctx, domainagg.RedeemResetTokenInput{UserID: u.ID, Token: v2.Token, At: t0.Add(time.Hour)})
	requireCode(t, err, domainagg.CodeExpired)
	_, err = agg.Redeem(h.ctx, domainagg.RedeemResetTokenInput{UserID: u.ID, Token: "not-a-token", At: t0})
	requireCode(t, err, domainagg.CodeNotFound)

	v3, _ := agg.IssueToken(h.ctx, domainagg.IssueResetTokenInput{UserID: u.ID, At: t0})
	_, err = agg.Redeem(h.ctx, domainagg.RedeemResetTokenInput{UserID: u.ID, Token: v2.Token, At: t0.Add(2 * time.Hour)})
	requireCode(t, err, domainagg.CodeSuperseded)
	if v3.Version != 3 {
		t.Fatalf("v3 version: got=%d", v3.Version)
	}
}

func TestPasswordResetChangesPassword(t *testing.T) {
	h := newHarness(t)
	u := testutil.SeedUser(t, h.ctx, h.db)
	agg := h.resetAgg(t, time.Hour)
	t0 := ts(2026, 7, 4, 0)

	issued, _ := agg.IssueToken(h.ctx, domainagg.IssueResetTokenInput{UserID: u.ID, At: t0})
	_, err := agg.Redeem(h.ctx, domainagg.RedeemResetTokenInput{
		UserID: u.ID, Token: issued.Token, NewPassword: strings.Repeat("x", 65), At: t0,
	})
	requireCode(t, err, domainagg.CodeValidation)

	res, err := agg.Redeem(h.ctx, domainagg.RedeemResetTokenInput{
		UserID: u.ID, Token: issued.Token, NewPassword: "n3w-secret", At: t0,
	})
	if err != nil || !res.PasswordChanged {
		t.Fatalf("redeem with password: res=%+v err=%v", res, err)
	}
	user, _ := h.users.GetByID(h.dbc, u.ID)
	ok, err := passhash.Verify("n3w-secret", user.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("stored hash does not verify: ok=%v err=%v", ok, err)
	}
}

func TestPasswordResetUnknownUser(t *testing.T) {
	h := newHarness(t)
	agg := h.resetAgg(t, time.Hour)
	_, err := agg.IssueToken(h.ctx, domainagg.IssueResetTokenInput{UserID: uuid.New(), At: ts(2026, 7, 5, 0)})
	requireCode(t, err, domainagg.CodeNotFound)
	_, err = agg.Redeem(h.ctx, domainagg.RedeemResetTokenInput{UserID: uuid.New(), Token: "x", At: ts(2026, 7, 5, 0)})
	requireCode(t, err, domainagg.CodeNotFound)
}

func TestPasswordResetIssueByEmail(t *testing.T) {
	h := newHarness(t)
	u := testutil.SeedUser(t, h.ctx, h.db)
	agg := h.resetAgg(t, time.Hour)

	res, err := agg.IssueToken(h.ctx, domainagg.IssueResetTokenInput{Email: "  " + strings.ToUpper(u.Email) + " ", At: ts(2026, 7, 5, 0)})
	if err != nil {
		t.Fatalf("issue by email: %v", err)
	}
	if res.UserID != u.ID || res.Version != 1 {
		t.Fatalf("issue result: %+v", res)
	}
	if _, err := agg.Redeem(h.ctx, domainagg.RedeemResetTokenInput{UserID: u.ID, Token: res.Token, At: ts(2026, 7, 5, 0)}); err != nil {
		t.Fatalf("redeem email-issued token: %v", err)
	}

	_, err = agg.IssueToken(h.ctx, domainagg.IssueResetTokenInput{Email: "nobody@example.com", At: ts(2026, 7, 5, 0)})
	requireCode(t, err, domainagg.CodeNotFound)
	_, err = agg.IssueToken(h.ctx, domainagg.IssueResetTokenInput{At: ts(2026, 7, 5, 0)})
	requireCode(t, err, domainagg.CodeValidation)
}

func TestValidatePassword(t *testing.T) {
	for _, pw := range []string{"", "   ", strings.Repeat("é", 65)} {
		if err := aggregates.ValidatePassword(pw); err == nil {
			t.Fatalf("password %q must be rejected", pw)
		}
	}
	if err := aggregates.ValidatePassword(strings.Repeat("é", 64)); err != nil {
		t.Fatalf("64 runes must be accepted: %v", err)
	}
}

func TestPasswordResetMatchesByFingerprintThenHash(t *testing.T) {
	h := newHarness(t)
	u := testutil.SeedUser(t, h.ctx, h.db)
	agg := h.resetAgg(t, time.Hour)
	t0 := ts(2026, 7, 5, 0)

	issued, err := agg.IssueToken(h.ctx, domainagg.IssueResetTokenInput{UserID: u.ID, At: t0})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	rows, err := h.tokens.LockByUser(h.dbc, u.ID)
	if err != nil || len(rows) != 1 {
		t.Fatalf("token rows: n=%d err=%v", len(rows), err)
	}
	if rows[0].Lookup != passhash.Fingerprint(issued.Token) || rows[0].TokenHash == rows[0].Lookup {
		t.Fatalf("stored token: %+v", rows[0])
	}

	// A fingerprint match alone is not enough; the Argon2 hash still decides.
	if err := h.db.Model(rows[0]).Update("token_hash", "AAAA").Error; err != nil {
		t.Fatalf("tamper: %v", err)
	}
	_, err = agg.Redeem(h.ctx, domainagg.RedeemResetTokenInput{UserID: u.ID, Token: issued.Token, At: t0})
	requireCode(t, err, domainagg.CodeNotFound)
}

package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
)

var PasswordResetAggregateContract = Contract{
	Name:           "Auth.PasswordResetAggregate",
	IdempotencyKey: "token",
	Notes:          "Issues versioned reset tokens and redeems the newest one at most once.",
}

// PasswordResetAggregate owns reset token issuance and redemption.
//
// Redeem failures: CodeNotFound (no matching token), CodeAlreadyUsed, CodeSuperseded, CodeExpired,
// CodeValidation (bad new password), CodeTimeout.
type PasswordResetAggregate interface {
	Aggregate

	IssueToken(ctx context.Context, in IssueResetTokenInput) (IssueResetTokenResult, error)
	Redeem(ctx context.Context, in RedeemResetTokenInput) (RedeemResetTokenResult, error)
}

type IssueResetTokenInput struct {
	UserID uuid.UUID
	// Email identifies the user when UserID is nil.
	Email string
	At    time.Time
}

type IssueResetTokenResult struct {
	UserID uuid.UUID
	// Token is the only copy of the raw secret; it is never persisted.
	Token     string
	Version   int
	ExpiresAt time.Time
}

type RedeemResetTokenInput struct {
	UserID uuid.UUID
	Token  string
	// NewPassword, when set, is validated and stored in the same transaction.
	NewPassword string
	At          time.Time
}

type RedeemResetTokenResult struct {
	Version         int
	RedeemedAt      time.Time
	PasswordChanged bool
}

// Package aggregates implements the commerce write boundaries on top of the
// table repos in internal/data/repos.
//
//   - Payment: reconciles processor events into the ledger by transaction id
//     and, on completion, enrolls the user or opens/extends a subscription.
//   - Subscription: opens, renews and cancels by processor subscription id and
//     expires lapsed rows one transaction per row.
//   - Progress: upserts lesson progress and re-derives course progress.
//   - Achievement: folds stat events into counters and unlocks achievements.
//   - PasswordReset: issues versioned tokens and redeems the newest one once.
//
// Every write runs through executeWrite, which maps storage errors onto
// domain codes and reports the touched entity to Hooks. Outbox rows are
// appended inside the same transaction; entitlement cache invalidation runs
// after commit.
package aggregates

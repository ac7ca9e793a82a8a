package aggregates

import "slices"

// Contract records what an aggregate promises its callers. Handlers and
// consumers rely on it to know which redeliveries are safe and which outbox
// events a committed write may leave behind.
type Contract struct {
	Name string

	// IdempotencyKey names the input that makes a redelivered write a no-op.
	IdempotencyKey string

	// Emits lists every outbox event kind a committed write can append.
	Emits []string

	// Entitlements is set when a committed write can change course access,
	// so cached access decisions for the user must be dropped.
	Entitlements bool

	// PerItemCommit marks batch operations that commit each row on its own
	// instead of wrapping the batch in one transaction.
	PerItemCommit bool

	Notes string
}

// Aggregate is implemented by every write boundary in this package.
type Aggregate interface {
	Contract() Contract
}

// CanEmit reports whether kind is an outbox event this aggregate writes.
func (c Contract) CanEmit(kind string) bool {
	return slices.Contains(c.Emits, kind)
}

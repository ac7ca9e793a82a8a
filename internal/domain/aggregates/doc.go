// Package aggregates defines the write contracts of the commerce core.
//
// Each aggregate owns one atomic write boundary (payment ledger, subscription
// lifecycle, course progress, achievements, password reset). Inputs and results
// are plain values; persistence lives in internal/data/aggregates.
package aggregates

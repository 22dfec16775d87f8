// Package metrics is the in-process counter system for the lifecycle keeper.
//
// Counters are fixed-slot atomics indexed by MetricID; incrementing is
// allocation-free and safe from any goroutine. Snapshot returns a deep copy
// so callers can export or log state without holding anything. When disabled,
// every operation is a no-op.
package metrics

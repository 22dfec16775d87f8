// Package internal holds the keeper's non-exported building blocks: the
// audit dispatcher, the clock abstraction, the pure refresh and reconcile
// flows, and the metric counters. Nothing here is API; the root package
// re-exports the few types embedders need.
package internal

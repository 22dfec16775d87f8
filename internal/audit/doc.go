// Package audit carries the structured lifecycle event model and the
// asynchronous dispatcher that forwards events to an embedder-provided sink.
//
// Emitting never blocks the refresh or reconcile paths: events are queued on
// a bounded channel and either dropped (DropIfFull) or delivered with
// backpressure bounded by the caller's context. Close drains whatever is
// still queued before returning.
package audit

// Package flows holds the keeper's two decision cores, free of root package
// dependencies so they stay independently testable: the refresh execution
// loop (classification, retry budget, exponential backoff) and the per-tick
// reconcile decision (external-invalidation check, pre-emptive refresh
// window, grace-period escalation).
//
// Dependencies are injected as narrow funcs (the RefreshDeps struct), and
// the reconcile side is a pure function over a snapshot of observed state.
// Side effects, store writes, metrics, audit, navigation all belong to the
// root package.
package flows

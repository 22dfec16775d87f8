// Package sessionkeep keeps a short-lived bearer credential valid for an
// interactive session: it tracks user activity, schedules pre-emptive
// refreshes ahead of expiry, executes the refresh exchange behind a
// single-flight guard with bounded exponential backoff, and periodically
// reconciles in-memory state against the external credential store to catch
// sessions invalidated outside the running application.
//
// The package is designed for concurrent callers: Keeper methods are safe to
// call from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// sessionkeep is the public surface. It exposes [Keeper], [Builder],
// [Config], and value types (MetricsSnapshot, AuditEvent, etc.). The refresh
// retry loop and the per-tick reconcile decision live under internal/flows;
// expiry decoding lives in token; store implementations live in session; the
// HTTP exchange lives in transport.
//
// # What this package must NOT do
//
//   - Implement the backend's authentication protocol. It only trades an
//     existing credential for a renewed one.
//   - Verify credential signatures. Expiry is decoded unverified; the
//     backend remains the authority.
//   - Surface transient refresh failures to the user. The only externally
//     visible outcomes are "still logged in" and "logged out, redirected".
//
// # Failure model
//
// A rejected credential always logs out and never retries. Transient
// failures (network errors, 5xx) retry with 1s/2s/4s backoff and then give
// up softly; the session stays logged in and the reconciler tries again
// later. Malformed responses and other 4xx answers fail softly with no
// retry. External invalidation, detected by the reconciler, is always
// terminal.
package sessionkeep

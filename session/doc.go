// Package session defines the credential+identity pair kept alive by the
// lifecycle keeper, the store contract it is read from and written back to,
// and the versioned encoding used by durable store implementations.
//
// # Store semantics
//
// A store holds at most one session. Load reports absence as (nil, nil), not
// as an error. Save must replace the credential and identity together; the
// two are never written independently. MarkerPresent probes a durable marker
// kept separately from the session blob; its absence while the keeper still
// holds a session in memory is the signal that the session was invalidated
// outside the running application.
//
// # Architecture boundaries
//
// This package owns the session model, the store contract, and its two
// reference implementations (Redis-backed and in-memory). Refresh policy,
// expiry interpretation, and logout decisions belong to the root package.
//
// # What this package must NOT do
//
//   - Decode credential expiry (that is package token's job).
//   - Perform network refresh calls.
//   - Import the root package or any internal package.
package session

// Package token extracts the absolute expiry instant embedded in a bearer
// credential.
//
// The credential is treated as an opaque JWT: only the registered exp claim
// of the middle segment is read, and the signature is deliberately not
// verified. Verification is the backend's job; this side of the wire only
// needs to know when the backend will stop accepting the token.
//
// # Failure contract
//
// A malformed credential or a missing exp claim is reported as an error, and
// callers must treat "no expiry known" as "cannot schedule, cannot evaluate
// the grace period". It never means "already expired" and never means "never
// expires".
//
// # What this package must NOT do
//
//   - Validate signatures or any claim other than exp.
//   - Import the root package, session, or any internal package.
package token

// Package transport implements the network exchange of an existing bearer
// credential for a renewed one.
//
// # Status taxonomy
//
// The refresh endpoint's response statuses are surfaced as [StatusError]
// values so the caller's retry policy can classify them: 401 means the
// credential itself was rejected, 5xx means a transient backend failure, and
// any other 4xx means a permanent client-side failure. A response that is
// syntactically unusable (undecodable body, or missing the new credential or
// the identity fields) is [ErrMalformedResponse]. Errors with no response at
// all (connection failures, timeouts) pass through untranslated.
//
// # What this package must NOT do
//
//   - Retry, back off, or log out; policy belongs to the root package.
//   - Persist anything.
//   - Import the root package or any internal package.
package transport

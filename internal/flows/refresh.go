package flows

import (
	"context"
	"time"

	"github.com/sessionkeep/sessionkeep/session"
)

// RefreshFailureKind classifies refresh outcomes for root-level mapping.
type RefreshFailureKind int

const (
	// RefreshFailureNone means the exchange succeeded.
	RefreshFailureNone RefreshFailureKind = iota
	// RefreshFailureRejected means the endpoint refused the credential
	// itself. Terminal; the caller must log out and never retry.
	RefreshFailureRejected
	// RefreshFailureTransient means the retry budget was spent on
	// network-level or 5xx failures. Soft; the session stays logged in.
	RefreshFailureTransient
	// RefreshFailurePermanent means a non-retryable client-side failure.
	// Soft; no retry, no logout.
	RefreshFailurePermanent
	// RefreshFailureMalformed means the endpoint answered but the response
	// was unusable. Soft; no retry, no logout.
	RefreshFailureMalformed
	// RefreshFailureCancelled means the context ended mid-attempt or
	// mid-backoff.
	RefreshFailureCancelled
)

// RefreshDeps captures everything the refresh loop needs from the caller.
type RefreshDeps struct {
	// Exchange performs one network round trip with the current credential.
	Exchange func(ctx context.Context) (*session.Session, error)

	// Classify maps an Exchange error onto a failure kind. It is consulted
	// only for non-nil errors and must never return RefreshFailureNone.
	Classify func(err error) RefreshFailureKind

	// Validate rejects structurally unusable sessions returned by Exchange.
	Validate func(s *session.Session) error

	// Sleep waits out a backoff delay; a non-nil return aborts the loop.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRetry is invoked before each backoff wait, when non-nil.
	OnRetry func(attempt int, wait time.Duration)

	// MaxRetries bounds the retries after the first attempt; waits double
	// from BackoffBase: base, 2*base, 4*base, ...
	MaxRetries  int
	BackoffBase time.Duration
}

// RefreshResult carries either the renewed session or failure metadata.
type RefreshResult struct {
	Failure  RefreshFailureKind
	Err      error
	Session  *session.Session
	Attempts int
}

// RunRefresh executes the exchange with the configured retry policy. Only
// transient failures consume the retry budget; rejection, permanent and
// malformed outcomes return on the first occurrence.
func RunRefresh(ctx context.Context, deps RefreshDeps) RefreshResult {
	for attempt := 0; ; attempt++ {
		sess, err := deps.Exchange(ctx)
		if err == nil {
			if verr := deps.Validate(sess); verr != nil {
				return RefreshResult{
					Failure:  RefreshFailureMalformed,
					Err:      verr,
					Attempts: attempt + 1,
				}
			}
			return RefreshResult{
				Failure:  RefreshFailureNone,
				Session:  sess,
				Attempts: attempt + 1,
			}
		}

		kind := deps.Classify(err)
		if kind != RefreshFailureTransient || attempt >= deps.MaxRetries {
			if kind == RefreshFailureNone {
				kind = RefreshFailurePermanent
			}
			return RefreshResult{
				Failure:  kind,
				Err:      err,
				Attempts: attempt + 1,
			}
		}

		wait := deps.BackoffBase << attempt
		if deps.OnRetry != nil {
			deps.OnRetry(attempt, wait)
		}
		if serr := deps.Sleep(ctx, wait); serr != nil {
			return RefreshResult{
				Failure:  RefreshFailureCancelled,
				Err:      serr,
				Attempts: attempt + 1,
			}
		}
	}
}

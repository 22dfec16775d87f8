package sessionkeep

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	internalaudit "github.com/sessionkeep/sessionkeep/internal/audit"
	"github.com/sessionkeep/sessionkeep/internal/flows"
	"github.com/sessionkeep/sessionkeep/session"
	"github.com/sessionkeep/sessionkeep/token"
	"github.com/sessionkeep/sessionkeep/transport"
)

// Refresh exchanges the current credential for a renewed one, right now.
// It funnels through the same single-flight guard as the scheduled and
// reconciler-driven refreshes, so a user-triggered "refresh now" cannot race
// an automatic one; losers return [ErrRefreshInFlight] immediately.
//
// Outcomes are absorbed into the session state: on success the store holds
// the new credential+identity pair, on rejection the session is torn down
// and the redirect fires, and on any soft failure nothing changes.
func (k *Keeper) Refresh(ctx context.Context) error {
	return k.refresh(ctx, triggerManual)
}

func (k *Keeper) refresh(ctx context.Context, trigger string) error {
	sess, gen, running := k.currentSession()
	if !running {
		return ErrNotRunning
	}
	if sess == nil || sess.Credential.Empty() || sess.Identity.ID == "" {
		return ErrNotAuthenticated
	}

	if !k.refreshing.CompareAndSwap(false, true) {
		k.metricInc(MetricRefreshSuppressed)
		k.emit(AuditEvent{
			Kind:     internalaudit.KindRefreshSuppressed,
			UserID:   sess.Identity.ID,
			Metadata: map[string]string{"trigger": trigger},
		})
		return ErrRefreshInFlight
	}
	defer k.refreshing.Store(false)

	started := k.clk.Now()
	result := flows.RunRefresh(ctx, flows.RefreshDeps{
		Exchange:    k.exchange(sess.Credential),
		Classify:    k.classify(ctx),
		Validate:    validateRefreshed,
		Sleep:       k.clk.Sleep,
		OnRetry:     k.onRetry(sess.Identity.ID, trigger),
		MaxRetries:  k.config.Refresh.MaxRetries,
		BackoffBase: k.config.Refresh.BackoffBase,
	})
	k.metrics.ObserveLatency(k.clk.Now().Sub(started))

	switch result.Failure {
	case flows.RefreshFailureNone:
		return k.applyRefresh(ctx, gen, result, trigger)

	case flows.RefreshFailureRejected:
		k.metricInc(MetricRefreshFailure)
		k.teardown(ctx, internalaudit.KindRefreshRejected, true, MetricRefreshRejected)
		return fmt.Errorf("%w: %w", ErrCredentialRejected, result.Err)

	case flows.RefreshFailureTransient:
		k.metricInc(MetricRefreshFailure)
		k.metricInc(MetricRefreshExhausted)
		k.emit(AuditEvent{
			Kind:    internalaudit.KindRefreshExhausted,
			UserID:  sess.Identity.ID,
			Attempt: result.Attempts,
			Error:   result.Err.Error(),
		})
		return fmt.Errorf("%w: %w", ErrRefreshExhausted, result.Err)

	case flows.RefreshFailureMalformed:
		k.metricInc(MetricRefreshFailure)
		k.metricInc(MetricRefreshMalformed)
		k.emit(AuditEvent{
			Kind:   internalaudit.KindRefreshFailed,
			UserID: sess.Identity.ID,
			Error:  result.Err.Error(),
		})
		return fmt.Errorf("%w: %w", ErrRefreshMalformed, result.Err)

	case flows.RefreshFailureCancelled:
		k.metricInc(MetricRefreshFailure)
		return result.Err

	default:
		k.metricInc(MetricRefreshFailure)
		k.emit(AuditEvent{
			Kind:   internalaudit.KindRefreshFailed,
			UserID: sess.Identity.ID,
			Error:  result.Err.Error(),
		})
		return fmt.Errorf("%w: %w", ErrRefreshFailed, result.Err)
	}
}

// exchange builds the single-attempt network call, bounded by the
// per-attempt timeout.
func (k *Keeper) exchange(current Credential) func(ctx context.Context) (*session.Session, error) {
	return func(ctx context.Context) (*session.Session, error) {
		if k.config.Refresh.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, k.config.Refresh.AttemptTimeout)
			defer cancel()
		}
		return k.transport.Refresh(ctx, current)
	}
}

// classify maps transport errors onto the retry taxonomy: 401 is terminal
// rejection, 5xx and anything without a response is transient, a malformed
// body is its own soft failure, and every other status is permanent.
func (k *Keeper) classify(parent context.Context) func(error) flows.RefreshFailureKind {
	return func(err error) flows.RefreshFailureKind {
		if parent.Err() != nil {
			return flows.RefreshFailureCancelled
		}
		if errors.Is(err, transport.ErrMalformedResponse) {
			return flows.RefreshFailureMalformed
		}
		var sc interface{ HTTPStatus() int }
		if errors.As(err, &sc) {
			switch code := sc.HTTPStatus(); {
			case code == http.StatusUnauthorized:
				return flows.RefreshFailureRejected
			case code >= 500:
				return flows.RefreshFailureTransient
			default:
				return flows.RefreshFailurePermanent
			}
		}
		// No response at all.
		return flows.RefreshFailureTransient
	}
}

func (k *Keeper) onRetry(userID, trigger string) func(attempt int, wait time.Duration) {
	return func(attempt int, wait time.Duration) {
		k.metricInc(MetricRefreshRetried)
		k.emit(AuditEvent{
			Kind:    internalaudit.KindRefreshRetry,
			UserID:  userID,
			Attempt: attempt,
			Metadata: map[string]string{
				"trigger": trigger,
				"wait":    wait.String(),
			},
		})
	}
}

// validateRefreshed rejects exchange results missing the fields a session
// cannot exist without.
func validateRefreshed(s *session.Session) error {
	if s == nil || s.Credential.Empty() {
		return errors.New("refresh response missing credential")
	}
	if s.Identity.ID == "" || s.Identity.DisplayName == "" {
		return errors.New("refresh response missing identity")
	}
	return nil
}

// applyRefresh installs a successful exchange result, unless the keeper was
// stopped while the exchange was in flight: a refresh that completes after
// logout must not resurrect the session.
func (k *Keeper) applyRefresh(ctx context.Context, gen uint64, result flows.RefreshResult, trigger string) error {
	newSess := result.Session

	k.storeMu.Lock()
	k.mu.Lock()
	if !k.running || k.generation != gen {
		k.mu.Unlock()
		k.storeMu.Unlock()
		k.metricInc(MetricRefreshDiscarded)
		k.emit(AuditEvent{
			Kind:     internalaudit.KindRefreshDiscarded,
			UserID:   newSess.Identity.ID,
			Metadata: map[string]string{"trigger": trigger},
		})
		return ErrResultDiscarded
	}
	k.sess = newSess.Clone()
	k.mu.Unlock()
	err := k.store.Save(ctx, newSess)
	k.storeMu.Unlock()
	if err != nil {
		// The renewed credential is live in memory; losing the store write
		// is recoverable and must not end the session.
		k.logf("sessionkeep: persisting refreshed session failed: %v", err)
	}

	k.metricInc(MetricRefreshSuccess)
	k.emit(AuditEvent{
		Kind:    internalaudit.KindRefreshSuccess,
		UserID:  newSess.Identity.ID,
		Attempt: result.Attempts,
		Metadata: map[string]string{
			"trigger":  trigger,
			"attempts": strconv.Itoa(result.Attempts),
		},
	})

	if expiry, derr := token.ExpiresAt(string(newSess.Credential)); derr == nil {
		k.scheduleNext(expiry)
	} else {
		k.logf("sessionkeep: refreshed credential expiry undecodable: %v", derr)
	}
	return nil
}

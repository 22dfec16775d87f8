package sessionkeep

import (
	"context"
	"errors"

	"github.com/sessionkeep/sessionkeep/internal/clock"
	"github.com/sessionkeep/sessionkeep/internal/flows"
	"github.com/sessionkeep/sessionkeep/token"
)

// reconcileLoop drives the periodic consistency pass. One loop runs per
// Start; it exits when the stop channel closes.
func (k *Keeper) reconcileLoop(ticker clock.Ticker, stopCh <-chan struct{}, gen uint64) {
	defer k.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C():
			k.reconcileTick(gen)
		}
	}
}

// reconcileTick gathers one observation of the world and acts on the
// decision. The decision itself is pure; everything effectful stays here.
func (k *Keeper) reconcileTick(gen uint64) {
	sess, curGen, running := k.currentSession()
	if !running || curGen != gen {
		return
	}
	k.metricInc(MetricReconcileTick)

	ctx := context.Background()

	state := flows.ReconcileState{
		HaveSession:     sess != nil,
		UserActive:      k.IsUserActive(),
		RefreshInFlight: k.refreshing.Load(),
		LeadTime:        k.config.Schedule.LeadTime,
		GraceWindow:     k.config.Reconcile.GraceWindow,
	}

	present, err := k.store.MarkerPresent(ctx)
	if err != nil {
		// Probe failure means unknown, not absent. Decide treats unknown as
		// "do not force a logout this tick".
		k.logf("sessionkeep: marker probe failed: %v", err)
	} else {
		state.MarkerKnown = true
		state.MarkerPresent = present
	}

	if sess != nil {
		if expiry, derr := token.ExpiresAt(string(sess.Credential)); derr == nil {
			state.ExpiryKnown = true
			state.TimeToExpiry = expiry.Sub(k.clk.Now())
		}
	}

	decision := flows.Decide(state)
	switch decision.Action {
	case flows.ReconcileRefresh:
		// Synchronous on the tick goroutine; a slow refresh simply delays the
		// next pass. Losing the single-flight race is not an error here.
		if err := k.refresh(ctx, triggerReconciler); err != nil && !errors.Is(err, ErrRefreshInFlight) {
			k.logf("sessionkeep: reconciler refresh: %v", err)
		}
	case flows.ReconcileLogout:
		k.forceLogout(ctx, decision.Reason)
	}
}

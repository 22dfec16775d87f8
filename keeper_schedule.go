package sessionkeep

import (
	"context"
	"time"

	internalaudit "github.com/sessionkeep/sessionkeep/internal/audit"
)

// scheduleNext arms the pre-emptive refresh timer at expiry minus the lead
// time. A previously armed timer is cancelled first; there is at most one
// scheduled refresh at any moment. When the fire instant is already in the
// past the timer stays unarmed and the reconciler owns the credential from
// here.
func (k *Keeper) scheduleNext(expiry time.Time) {
	fireIn := expiry.Add(-k.config.Schedule.LeadTime).Sub(k.clk.Now())

	k.mu.Lock()
	if !k.running {
		k.mu.Unlock()
		return
	}
	if k.schedTimer != nil {
		k.schedTimer.Stop()
		k.schedTimer = nil
	}
	// Stop on an already-fired timer is a no-op, so a callback of the old
	// timer may still be pending. Bumping the arm sequence makes that
	// callback recognize itself as stale.
	k.schedSeq++
	if fireIn <= 0 {
		k.mu.Unlock()
		k.metricInc(MetricScheduleSkippedPast)
		return
	}
	gen := k.generation
	seq := k.schedSeq
	k.schedTimer = k.clk.AfterFunc(fireIn, func() {
		k.onScheduledFire(gen, seq)
	})
	k.mu.Unlock()

	k.metricInc(MetricScheduleArmed)
	k.emit(AuditEvent{
		Kind:     internalaudit.KindScheduleArmed,
		Metadata: map[string]string{"fire_in": fireIn.String()},
	})
}

// onScheduledFire runs when the armed timer elapses. An idle user suppresses
// the refresh and deliberately does not re-arm: the next interaction is the
// reconciler's cue to pick the credential back up.
//
// The sequence check keeps a late-firing old timer from untracking a newer
// one: only the callback of the currently tracked arm may clear the handle
// and act.
func (k *Keeper) onScheduledFire(gen, seq uint64) {
	k.mu.Lock()
	if !k.running || k.generation != gen || seq != k.schedSeq {
		k.mu.Unlock()
		return
	}
	k.schedTimer = nil
	k.mu.Unlock()

	if !k.IsUserActive() {
		k.metricInc(MetricRefreshSkippedIdle)
		k.emit(AuditEvent{Kind: internalaudit.KindRefreshSkippedIdle})
		return
	}

	if err := k.refresh(context.Background(), triggerScheduler); err != nil {
		k.logf("sessionkeep: scheduled refresh: %v", err)
	}
}

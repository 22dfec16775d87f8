package sessionkeep

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	internalaudit "github.com/sessionkeep/sessionkeep/internal/audit"
	"github.com/sessionkeep/sessionkeep/internal/clock"
	"github.com/sessionkeep/sessionkeep/internal/flows"
	"github.com/sessionkeep/sessionkeep/session"
	"github.com/sessionkeep/sessionkeep/token"
)

// Trigger labels for audit metadata.
const (
	triggerManual     = "manual"
	triggerScheduler  = "scheduler"
	triggerReconciler = "reconciler"
)

// Keeper owns the credential lifecycle for one interactive session: the
// activity timestamp, the armed refresh timer, the reconciler ticker, the
// single-flight refresh guard, and the in-memory session snapshot. All
// shared state lives here; nothing is package-global.
type Keeper struct {
	id        string
	config    Config
	store     session.Store
	transport RefreshTransport
	nav       Navigator
	clk       clock.Clock
	logf      func(format string, args ...any)

	activity *activityTracker
	metrics  *Metrics
	audit    *internalaudit.Dispatcher

	// refreshing is the single-flight guard shared by every refresh caller.
	refreshing atomic.Bool

	// storeMu serializes store writes against teardown so a refresh that
	// completes after logout cannot resurrect the cleared store.
	storeMu sync.Mutex

	mu         sync.Mutex
	sess       *session.Session
	running    bool
	generation uint64
	stopCh     chan struct{}
	schedTimer clock.Timer
	// schedSeq counts timer arms; a pending callback whose arm sequence no
	// longer matches must not touch the tracked handle.
	schedSeq uint64
	wg       sync.WaitGroup
}

// Start loads the current session from the store and brings the lifecycle
// up: activity resets to now, the pre-emptive refresh timer arms from the
// credential's expiry, and the reconciler begins ticking. Returns
// [ErrNotAuthenticated] when the store holds no session.
func (k *Keeper) Start(ctx context.Context) error {
	sess, err := k.store.Load(ctx)
	if err != nil {
		return err
	}
	if sess == nil || sess.Credential.Empty() || sess.Identity.ID == "" {
		return ErrNotAuthenticated
	}

	k.mu.Lock()
	if k.running {
		k.mu.Unlock()
		return ErrAlreadyRunning
	}
	k.sess = sess
	k.running = true
	k.generation++
	gen := k.generation
	k.stopCh = make(chan struct{})
	stopCh := k.stopCh
	k.mu.Unlock()

	k.activity.reset()
	k.emit(AuditEvent{Kind: internalaudit.KindKeeperStart, UserID: sess.Identity.ID})

	if expiry, derr := token.ExpiresAt(string(sess.Credential)); derr == nil {
		k.scheduleNext(expiry)
	} else {
		// No expiry known: nothing to schedule; the reconciler keeps
		// watching and simply cannot make time-based decisions either.
		k.logf("sessionkeep: credential expiry undecodable at start: %v", derr)
	}

	// The ticker must exist before Start returns so a fake clock advanced
	// immediately afterwards delivers the first tick.
	ticker := k.clk.NewTicker(k.config.Reconcile.Interval)
	k.wg.Add(1)
	go k.reconcileLoop(ticker, stopCh, gen)
	return nil
}

// Stop tears the lifecycle down: the armed refresh timer and the reconciler
// ticker are cancelled and the in-memory session is dropped. The store is
// left untouched; see [Keeper.Logout] for an explicit logout. Safe to call
// on a stopped keeper.
func (k *Keeper) Stop() {
	k.stop()
}

// stop performs the running-to-stopped transition and reports whether this
// call was the one that performed it. Concurrent terminal events race here;
// exactly one caller sees true.
func (k *Keeper) stop() bool {
	k.mu.Lock()
	if !k.running {
		k.mu.Unlock()
		return false
	}
	k.running = false
	k.sess = nil
	close(k.stopCh)
	if k.schedTimer != nil {
		k.schedTimer.Stop()
		k.schedTimer = nil
	}
	k.schedSeq++
	k.mu.Unlock()

	k.emit(AuditEvent{Kind: internalaudit.KindKeeperStop})
	return true
}

// Close stops the keeper, waits for background work to finish, and drains
// the audit dispatcher.
func (k *Keeper) Close() {
	if k == nil {
		return
	}
	k.Stop()
	k.wg.Wait()
	k.audit.Close()
}

// Logout clears the store and stops the keeper. No redirect is triggered;
// the caller asked for this.
func (k *Keeper) Logout(ctx context.Context) {
	k.teardown(ctx, internalaudit.KindLogoutManual, false)
}

// RecordActivity stamps the activity timestamp with now. Call it from every
// recognized interaction hook (see [ActivityKind]). All kinds reset the same
// timestamp.
func (k *Keeper) RecordActivity(ActivityKind) {
	k.activity.record()
	k.metricInc(MetricActivityRecorded)
}

// IsUserActive reports whether an interaction was recorded within the
// configured idle threshold.
func (k *Keeper) IsUserActive() bool {
	return k.activity.isActive(k.config.Activity.IdleThreshold)
}

// TimeSinceActivity returns the silence since the last recorded interaction.
func (k *Keeper) TimeSinceActivity() time.Duration {
	return k.activity.since()
}

// Running reports whether the lifecycle is up.
func (k *Keeper) Running() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.running
}

// Session returns a copy of the in-memory session, or nil when logged out.
func (k *Keeper) Session() *Session {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.sess.Clone()
}

// MetricsSnapshot returns a deep copy of all counters.
func (k *Keeper) MetricsSnapshot() MetricsSnapshot {
	return k.metrics.Snapshot()
}

// AuditDropped reports how many audit events were discarded.
func (k *Keeper) AuditDropped() uint64 {
	return k.audit.Dropped()
}

// teardown is the shared logout path: flip to stopped first so an in-flight
// refresh completion sees a dead keeper, then clear the store, then fire the
// redirect when the logout was forced rather than requested. Concurrent
// terminal events all clear the store, but only the caller that won the
// stop transition records the logout and redirects.
func (k *Keeper) teardown(ctx context.Context, kind string, redirect bool, extra ...MetricID) {
	k.mu.Lock()
	var userID string
	if k.sess != nil {
		userID = k.sess.Identity.ID
	}
	k.mu.Unlock()

	won := k.stop()

	k.storeMu.Lock()
	err := k.store.Clear(ctx)
	k.storeMu.Unlock()
	if err != nil {
		k.logf("sessionkeep: store clear failed during logout: %v", err)
	}

	if !won {
		return
	}

	for _, id := range extra {
		k.metricInc(id)
	}
	k.metricInc(MetricLogout)
	k.emit(AuditEvent{Kind: kind, UserID: userID})

	if redirect {
		k.nav.RedirectToLogin()
	}
}

func (k *Keeper) forceLogout(ctx context.Context, reason flows.LogoutReason) {
	switch reason {
	case flows.LogoutExternalInvalidation:
		k.teardown(ctx, internalaudit.KindLogoutExternal, true, MetricExternalInvalidation)
	case flows.LogoutGraceExhausted:
		k.teardown(ctx, internalaudit.KindLogoutGraceExhausted, true, MetricGraceLogout)
	case flows.LogoutIdleExpired:
		k.teardown(ctx, internalaudit.KindLogoutIdleExpired, true, MetricIdleLogout)
	}
}

// currentSession snapshots session and generation under the lock.
func (k *Keeper) currentSession() (*session.Session, uint64, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.sess, k.generation, k.running
}

func (k *Keeper) metricInc(id MetricID) {
	k.metrics.Inc(id)
}

func (k *Keeper) emit(ev AuditEvent) {
	if k.audit == nil {
		return
	}
	ev.At = k.clk.Now()
	ev.EventID = uuid.NewString()
	ev.KeeperID = k.id
	k.audit.Emit(context.Background(), ev)
}

package sessionkeep

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sessionkeep/sessionkeep/internal/clock"
	"github.com/sessionkeep/sessionkeep/internal/flows"
	"github.com/sessionkeep/sessionkeep/session"
)

var testEpoch = time.Unix(1_700_000_000, 0).UTC()

// testCredential mints a signed token expiring at the given instant. The
// keeper never verifies signatures, so the key is irrelevant.
func testCredential(t *testing.T, expiry time.Time) session.Credential {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "u-1",
		ExpiresAt: jwt.NewNumericDate(expiry),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("signing test credential: %v", err)
	}
	return session.Credential(signed)
}

func testSession(t *testing.T, expiry time.Time) *session.Session {
	t.Helper()
	return &session.Session{
		Credential: testCredential(t, expiry),
		Identity:   session.Identity{ID: "u-1", DisplayName: "Test User", Attributes: []string{"member"}},
		IssuedAt:   testEpoch,
	}
}

type transportFunc func(ctx context.Context, current Credential) (*Session, error)

func (f transportFunc) Refresh(ctx context.Context, current Credential) (*Session, error) {
	return f(ctx, current)
}

type countingNavigator struct {
	calls atomic.Int32
}

func (n *countingNavigator) RedirectToLogin() { n.calls.Add(1) }

type keeperHarness struct {
	clk    *clock.Fake
	store  *session.MemoryStore
	nav    *countingNavigator
	keeper *Keeper
}

// newHarness seeds the store, builds a keeper on a fake clock with metrics
// enabled, and leaves it stopped.
func newHarness(t *testing.T, cfg Config, tr RefreshTransport, seed *session.Session) *keeperHarness {
	t.Helper()
	h := &keeperHarness{
		clk:   clock.NewFake(testEpoch),
		store: session.NewMemoryStore(),
		nav:   &countingNavigator{},
	}
	if seed != nil {
		if err := h.store.Save(context.Background(), seed); err != nil {
			t.Fatalf("seeding store: %v", err)
		}
	}
	cfg.Metrics.Enabled = true
	k, err := New().
		WithConfig(cfg).
		WithStore(h.store).
		WithTransport(tr).
		WithNavigator(h.nav).
		WithLogf(t.Logf).
		withClock(h.clk).
		Build()
	if err != nil {
		t.Fatalf("building keeper: %v", err)
	}
	h.keeper = k
	t.Cleanup(k.Close)
	return h
}

func (h *keeperHarness) counter(t *testing.T, id MetricID) uint64 {
	t.Helper()
	return h.keeper.MetricsSnapshot().Counters[id]
}

// waitFor polls for a condition reached by a background goroutine.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func failingTransport(t *testing.T) RefreshTransport {
	t.Helper()
	return transportFunc(func(context.Context, Credential) (*Session, error) {
		t.Error("transport called unexpectedly")
		return nil, errors.New("unexpected call")
	})
}

func TestStartRequiresStoredSession(t *testing.T) {
	h := newHarness(t, DefaultConfig(), failingTransport(t), nil)

	if err := h.keeper.Start(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("Start on empty store = %v, want ErrNotAuthenticated", err)
	}
	if h.keeper.Running() {
		t.Fatal("keeper running after failed Start")
	}
}

func TestStartStopLifecycle(t *testing.T) {
	seed := testSession(t, testEpoch.Add(10*time.Minute))
	h := newHarness(t, DefaultConfig(), failingTransport(t), seed)

	if err := h.keeper.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !h.keeper.Running() {
		t.Fatal("keeper not running after Start")
	}
	if err := h.keeper.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Start = %v, want ErrAlreadyRunning", err)
	}

	got := h.keeper.Session()
	if got == nil || got.Identity.ID != "u-1" {
		t.Fatalf("Session() = %+v, want the seeded session", got)
	}
	// The accessor hands out a copy.
	got.Identity.ID = "mutated"
	if h.keeper.Session().Identity.ID != "u-1" {
		t.Fatal("mutating the returned session leaked into the keeper")
	}

	h.keeper.Stop()
	if h.keeper.Running() {
		t.Fatal("keeper running after Stop")
	}
	if h.keeper.Session() != nil {
		t.Fatal("in-memory session survived Stop")
	}
	// Stop leaves the store alone.
	stored, err := h.store.Load(context.Background())
	if err != nil || stored == nil {
		t.Fatalf("store after Stop: session=%v err=%v, want intact", stored, err)
	}

	h.keeper.Stop() // idempotent
}

func TestLogoutClearsStoreWithoutRedirect(t *testing.T) {
	seed := testSession(t, testEpoch.Add(10*time.Minute))
	h := newHarness(t, DefaultConfig(), failingTransport(t), seed)

	if err := h.keeper.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.keeper.Logout(context.Background())

	if h.keeper.Running() {
		t.Fatal("keeper running after Logout")
	}
	stored, err := h.store.Load(context.Background())
	if err != nil || stored != nil {
		t.Fatalf("store after Logout: session=%v err=%v, want cleared", stored, err)
	}
	if present, _ := h.store.MarkerPresent(context.Background()); present {
		t.Fatal("marker survived Logout")
	}
	if n := h.nav.calls.Load(); n != 0 {
		t.Fatalf("redirects after manual Logout = %d, want 0", n)
	}
	if got := h.counter(t, MetricLogout); got != 1 {
		t.Fatalf("logout counter = %d, want 1", got)
	}
}

func TestConcurrentTerminalEventsRecordOneLogout(t *testing.T) {
	seed := testSession(t, testEpoch.Add(10*time.Minute))
	h := newHarness(t, DefaultConfig(), failingTransport(t), seed)

	if err := h.keeper.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Two terminal events land at once, e.g. a rejected refresh racing the
	// reconciler's external-invalidation check. Only one may do the logout
	// bookkeeping and fire the redirect.
	reasons := []flows.LogoutReason{flows.LogoutExternalInvalidation, flows.LogoutGraceExhausted}
	var wg sync.WaitGroup
	for _, reason := range reasons {
		wg.Add(1)
		go func(r flows.LogoutReason) {
			defer wg.Done()
			h.keeper.forceLogout(context.Background(), r)
		}(reason)
	}
	wg.Wait()

	if h.keeper.Running() {
		t.Fatal("keeper still running after forced logouts")
	}
	stored, err := h.store.Load(context.Background())
	if err != nil || stored != nil {
		t.Fatalf("store after forced logouts: session=%v err=%v, want cleared", stored, err)
	}
	if got := h.nav.calls.Load(); got != 1 {
		t.Fatalf("redirects = %d, want exactly 1", got)
	}
	if got := h.counter(t, MetricLogout); got != 1 {
		t.Fatalf("logout counter = %d, want exactly 1", got)
	}
}

func TestActivityAccessors(t *testing.T) {
	seed := testSession(t, testEpoch.Add(10*time.Minute))
	h := newHarness(t, DefaultConfig(), failingTransport(t), seed)

	if err := h.keeper.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !h.keeper.IsUserActive() {
		t.Fatal("user inactive immediately after Start")
	}

	h.clk.Advance(4 * time.Minute)
	if !h.keeper.IsUserActive() {
		t.Fatal("user inactive before the idle threshold")
	}
	h.clk.Advance(2 * time.Minute)
	if h.keeper.IsUserActive() {
		t.Fatal("user still active past the idle threshold")
	}

	h.keeper.RecordActivity(ActivityKeyPress)
	if !h.keeper.IsUserActive() {
		t.Fatal("user inactive right after RecordActivity")
	}
	if got := h.keeper.TimeSinceActivity(); got != 0 {
		t.Fatalf("TimeSinceActivity right after recording = %v, want 0", got)
	}
	if got := h.counter(t, MetricActivityRecorded); got != 1 {
		t.Fatalf("activity counter = %d, want 1", got)
	}
}

func TestAuditStreamCarriesLifecycleEvents(t *testing.T) {
	seed := testSession(t, testEpoch.Add(10*time.Minute))

	sink := NewChannelSink(64)
	cfg := DefaultConfig()
	cfg.Audit.Enabled = true
	cfg.Metrics.Enabled = true

	clk := clock.NewFake(testEpoch)
	store := session.NewMemoryStore()
	if err := store.Save(context.Background(), seed); err != nil {
		t.Fatalf("seeding store: %v", err)
	}
	k, err := New().
		WithConfig(cfg).
		WithStore(store).
		WithTransport(failingTransport(t)).
		WithAuditSink(sink).
		WithLogf(t.Logf).
		withClock(clk).
		Build()
	if err != nil {
		t.Fatalf("building keeper: %v", err)
	}

	if err := k.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	k.Logout(context.Background())
	k.Close()

	kinds := map[string]bool{}
	for {
		select {
		case ev := <-sink.Events():
			if ev.EventID == "" || ev.At.IsZero() {
				t.Fatalf("event missing envelope fields: %+v", ev)
			}
			kinds[ev.Kind] = true
			continue
		default:
		}
		break
	}
	for _, want := range []string{"keeper.start", "keeper.stop", "logout.manual"} {
		if !kinds[want] {
			t.Errorf("audit stream missing %q, got %v", want, kinds)
		}
	}
	if got := k.AuditDropped(); got != 0 {
		t.Fatalf("dropped audit events = %d, want 0", got)
	}
}

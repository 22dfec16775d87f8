package flows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sessionkeep/sessionkeep/session"
)

var (
	errRejected  = errors.New("credential rejected")
	errTransient = errors.New("backend unavailable")
	errPermanent = errors.New("bad request")
)

func classifyTestErr(err error) RefreshFailureKind {
	switch {
	case errors.Is(err, errRejected):
		return RefreshFailureRejected
	case errors.Is(err, errTransient):
		return RefreshFailureTransient
	default:
		return RefreshFailurePermanent
	}
}

type refreshHarness struct {
	exchanges int
	sleeps    []time.Duration
	responses []func() (*session.Session, error)
}

func (h *refreshHarness) deps() RefreshDeps {
	return RefreshDeps{
		Exchange: func(context.Context) (*session.Session, error) {
			i := h.exchanges
			h.exchanges++
			return h.responses[i]()
		},
		Classify: classifyTestErr,
		Validate: func(s *session.Session) error {
			if s == nil || s.Credential.Empty() || s.Identity.ID == "" {
				return errors.New("missing required fields")
			}
			return nil
		},
		Sleep: func(_ context.Context, d time.Duration) error {
			h.sleeps = append(h.sleeps, d)
			return nil
		},
		MaxRetries:  3,
		BackoffBase: time.Second,
	}
}

func okResponse() (*session.Session, error) {
	return &session.Session{
		Credential: "new-token",
		Identity:   session.Identity{ID: "u", DisplayName: "U"},
	}, nil
}

func failWith(err error) func() (*session.Session, error) {
	return func() (*session.Session, error) { return nil, err }
}

func TestRunRefreshSuccessFirstAttempt(t *testing.T) {
	h := &refreshHarness{responses: []func() (*session.Session, error){okResponse}}

	res := RunRefresh(context.Background(), h.deps())
	if res.Failure != RefreshFailureNone {
		t.Fatalf("failure = %v, err = %v", res.Failure, res.Err)
	}
	if res.Attempts != 1 || res.Session == nil || res.Session.Credential != "new-token" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(h.sleeps) != 0 {
		t.Fatalf("no backoff expected, got %v", h.sleeps)
	}
}

func TestRunRefreshBackoffSequence(t *testing.T) {
	h := &refreshHarness{responses: []func() (*session.Session, error){
		failWith(errTransient),
		failWith(errTransient),
		failWith(errTransient),
		failWith(errTransient),
	}}

	res := RunRefresh(context.Background(), h.deps())
	if res.Failure != RefreshFailureTransient {
		t.Fatalf("failure = %v, want transient exhaustion", res.Failure)
	}
	if res.Attempts != 4 {
		t.Fatalf("attempts = %d, want 4 (initial + 3 retries)", res.Attempts)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	if len(h.sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", h.sleeps, want)
	}
	for i := range want {
		if h.sleeps[i] != want[i] {
			t.Fatalf("sleep %d = %v, want %v", i, h.sleeps[i], want[i])
		}
	}
}

func TestRunRefreshRecoversMidBudget(t *testing.T) {
	h := &refreshHarness{responses: []func() (*session.Session, error){
		failWith(errTransient),
		failWith(errTransient),
		okResponse,
	}}

	res := RunRefresh(context.Background(), h.deps())
	if res.Failure != RefreshFailureNone || res.Attempts != 3 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(h.sleeps) != 2 {
		t.Fatalf("sleeps = %v, want two waits", h.sleeps)
	}
}

func TestRunRefreshRejectedNeverRetries(t *testing.T) {
	h := &refreshHarness{responses: []func() (*session.Session, error){
		failWith(errRejected),
	}}

	res := RunRefresh(context.Background(), h.deps())
	if res.Failure != RefreshFailureRejected || res.Attempts != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(h.sleeps) != 0 {
		t.Fatal("rejection must not back off")
	}
}

func TestRunRefreshPermanentNeverRetries(t *testing.T) {
	h := &refreshHarness{responses: []func() (*session.Session, error){
		failWith(errPermanent),
	}}

	res := RunRefresh(context.Background(), h.deps())
	if res.Failure != RefreshFailurePermanent || res.Attempts != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestRunRefreshMalformedResponse(t *testing.T) {
	h := &refreshHarness{responses: []func() (*session.Session, error){
		func() (*session.Session, error) {
			return &session.Session{Credential: "tok"}, nil // identity missing
		},
	}}

	res := RunRefresh(context.Background(), h.deps())
	if res.Failure != RefreshFailureMalformed || res.Attempts != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Session != nil {
		t.Fatal("malformed results must not surface a session")
	}
}

func TestRunRefreshCancelledDuringBackoff(t *testing.T) {
	h := &refreshHarness{responses: []func() (*session.Session, error){
		failWith(errTransient),
	}}
	deps := h.deps()
	deps.Sleep = func(context.Context, time.Duration) error {
		return context.Canceled
	}

	res := RunRefresh(context.Background(), deps)
	if res.Failure != RefreshFailureCancelled {
		t.Fatalf("failure = %v, want cancelled", res.Failure)
	}
	if h.exchanges != 1 {
		t.Fatalf("exchanges = %d, want 1", h.exchanges)
	}
}

func TestRunRefreshReportsRetries(t *testing.T) {
	h := &refreshHarness{responses: []func() (*session.Session, error){
		failWith(errTransient),
		okResponse,
	}}
	deps := h.deps()
	var attempts []int
	deps.OnRetry = func(attempt int, wait time.Duration) {
		attempts = append(attempts, attempt)
		if wait != time.Second {
			t.Fatalf("first wait = %v, want 1s", wait)
		}
	}

	if res := RunRefresh(context.Background(), deps); res.Failure != RefreshFailureNone {
		t.Fatalf("unexpected failure %v", res.Failure)
	}
	if len(attempts) != 1 || attempts[0] != 0 {
		t.Fatalf("retry callbacks = %v", attempts)
	}
}

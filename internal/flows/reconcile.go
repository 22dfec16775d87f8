package flows

import "time"

// ReconcileAction is the single action a reconcile pass settles on.
type ReconcileAction int

const (
	// ReconcileNoop takes no action this tick.
	ReconcileNoop ReconcileAction = iota
	// ReconcileRefresh starts a pre-emptive refresh.
	ReconcileRefresh
	// ReconcileLogout tears the session down for the given reason.
	ReconcileLogout
)

// LogoutReason explains a ReconcileLogout decision.
type LogoutReason int

const (
	// LogoutNone accompanies non-logout actions.
	LogoutNone LogoutReason = iota
	// LogoutExternalInvalidation: the durable marker is gone while a session
	// is still held in memory.
	LogoutExternalInvalidation
	// LogoutGraceExhausted: the credential expired more than the grace
	// window ago with no refresh in flight.
	LogoutGraceExhausted
	// LogoutIdleExpired: the credential expired within the grace window but
	// the user is idle and nothing is in flight.
	LogoutIdleExpired
)

// ReconcileState is a snapshot of everything one tick observes. TimeToExpiry
// is expiry minus now: negative once expired.
type ReconcileState struct {
	HaveSession bool

	// MarkerKnown is false when the marker probe itself failed; an unknown
	// marker never forces a logout, only a confirmed absence does.
	MarkerKnown   bool
	MarkerPresent bool

	ExpiryKnown  bool
	TimeToExpiry time.Duration

	UserActive      bool
	RefreshInFlight bool

	LeadTime    time.Duration
	GraceWindow time.Duration
}

// Decision is the outcome of one reconcile pass.
type Decision struct {
	Action ReconcileAction
	Reason LogoutReason
}

// Decide evaluates one reconcile tick. Checks run in fixed order: external
// consistency, liveness, expiry decodability, pre-emptive refresh window,
// grace-period escalation. External invalidation always wins; an undecodable
// expiry defers every time-based decision to a later tick.
func Decide(s ReconcileState) Decision {
	if s.HaveSession && s.MarkerKnown && !s.MarkerPresent {
		return Decision{Action: ReconcileLogout, Reason: LogoutExternalInvalidation}
	}

	if !s.HaveSession || !s.ExpiryKnown {
		return Decision{Action: ReconcileNoop}
	}

	ttl := s.TimeToExpiry
	if ttl > 0 {
		if ttl < s.LeadTime && s.UserActive && !s.RefreshInFlight {
			return Decision{Action: ReconcileRefresh}
		}
		return Decision{Action: ReconcileNoop}
	}

	// Expired. Past the grace window nothing can save the session except a
	// refresh that is already running.
	if ttl <= -s.GraceWindow {
		if s.RefreshInFlight {
			return Decision{Action: ReconcileNoop}
		}
		return Decision{Action: ReconcileLogout, Reason: LogoutGraceExhausted}
	}

	// Expired but inside the grace window: an in-flight refresh gets to
	// finish, an idle user is logged out now, an active user is left for the
	// pre-emptive path or the next tick's escalation.
	if s.RefreshInFlight {
		return Decision{Action: ReconcileNoop}
	}
	if !s.UserActive {
		return Decision{Action: ReconcileLogout, Reason: LogoutIdleExpired}
	}
	return Decision{Action: ReconcileNoop}
}

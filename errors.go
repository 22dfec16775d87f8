package sessionkeep

import "errors"

var (
	// ErrNotAuthenticated is returned when no credential+identity pair is
	// available to manage.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrAlreadyRunning is returned by Start on a running keeper.
	ErrAlreadyRunning = errors.New("keeper already running")
	// ErrNotRunning is returned by operations that need a started keeper.
	ErrNotRunning = errors.New("keeper not running")
	// ErrRefreshInFlight is returned to callers that lose the single-flight
	// race. The winner's outcome is observable through the credential store.
	ErrRefreshInFlight = errors.New("refresh already in flight")
	// ErrCredentialRejected is returned when the refresh endpoint refused
	// the current credential. The session has been torn down.
	ErrCredentialRejected = errors.New("credential rejected by refresh endpoint")
	// ErrRefreshExhausted is returned after the transient retry budget is
	// spent. The session remains logged in.
	ErrRefreshExhausted = errors.New("refresh retries exhausted")
	// ErrRefreshFailed is returned for non-retryable client-side refresh
	// failures. The session remains logged in.
	ErrRefreshFailed = errors.New("refresh failed")
	// ErrRefreshMalformed is returned when the endpoint answered with an
	// unusable payload. The session remains logged in.
	ErrRefreshMalformed = errors.New("refresh response unusable")
	// ErrResultDiscarded is returned when a refresh completed after the
	// keeper was stopped and its result was thrown away.
	ErrResultDiscarded = errors.New("refresh result discarded after stop")
	// ErrStoreRequired is returned by Build without a credential store.
	ErrStoreRequired = errors.New("credential store is required")
	// ErrTransportRequired is returned by Build without a refresh transport.
	ErrTransportRequired = errors.New("refresh transport is required")
	// ErrBuilderReused is returned by a second call to Build.
	ErrBuilderReused = errors.New("builder already used")
)

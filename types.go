package sessionkeep

import (
	"context"
	"io"

	internalaudit "github.com/sessionkeep/sessionkeep/internal/audit"
	internalmetrics "github.com/sessionkeep/sessionkeep/internal/metrics"
	"github.com/sessionkeep/sessionkeep/session"
)

// Session is the credential+identity pair managed by the keeper.
type Session = session.Session

// Credential is the opaque bearer string with an embedded expiry.
type Credential = session.Credential

// Identity is the principal bound to the current credential.
type Identity = session.Identity

// RefreshTransport exchanges the current credential for a renewed session.
//
// Implementations signal a non-200 answer through an error exposing
// `HTTPStatus() int` (see transport.StatusError) and an unusable 200 body
// through transport.ErrMalformedResponse; errors carrying neither are
// treated as network-level transient failures.
type RefreshTransport interface {
	Refresh(ctx context.Context, current Credential) (*Session, error)
}

// Navigator is the fire-and-forget redirect-to-login side effect, invoked on
// credential rejection, confirmed external invalidation, and grace-period
// exhaustion.
type Navigator interface {
	RedirectToLogin()
}

// NavigatorFunc adapts a plain function to [Navigator].
type NavigatorFunc func()

// RedirectToLogin calls f.
func (f NavigatorFunc) RedirectToLogin() { f() }

// AuditEvent is a structured lifecycle record emitted by the keeper.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the keeper's dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] writing one JSON object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// MetricID identifies a specific counter or histogram bucket.
type MetricID = internalmetrics.MetricID

const (
	// MetricRefreshSuccess counts refresh exchanges that replaced the session.
	MetricRefreshSuccess = internalmetrics.MetricRefreshSuccess
	// MetricRefreshFailure counts refresh attempts that ended in any failure.
	MetricRefreshFailure = internalmetrics.MetricRefreshFailure
	// MetricRefreshRejected counts terminal credential rejections.
	MetricRefreshRejected = internalmetrics.MetricRefreshRejected
	// MetricRefreshRetried counts individual backoff retries.
	MetricRefreshRetried = internalmetrics.MetricRefreshRetried
	// MetricRefreshExhausted counts retry budgets spent without success.
	MetricRefreshExhausted = internalmetrics.MetricRefreshExhausted
	// MetricRefreshMalformed counts unusable refresh responses.
	MetricRefreshMalformed = internalmetrics.MetricRefreshMalformed
	// MetricRefreshSuppressed counts callers that lost the single-flight race.
	MetricRefreshSuppressed = internalmetrics.MetricRefreshSuppressed
	// MetricRefreshSkippedIdle counts scheduled fires skipped for idleness.
	MetricRefreshSkippedIdle = internalmetrics.MetricRefreshSkippedIdle
	// MetricRefreshDiscarded counts results dropped by the post-stop guard.
	MetricRefreshDiscarded = internalmetrics.MetricRefreshDiscarded
	// MetricScheduleArmed counts armed refresh timers.
	MetricScheduleArmed = internalmetrics.MetricScheduleArmed
	// MetricScheduleSkippedPast counts schedule requests already in the past.
	MetricScheduleSkippedPast = internalmetrics.MetricScheduleSkippedPast
	// MetricReconcileTick counts reconciler passes.
	MetricReconcileTick = internalmetrics.MetricReconcileTick
	// MetricExternalInvalidation counts logouts from a missing external marker.
	MetricExternalInvalidation = internalmetrics.MetricExternalInvalidation
	// MetricGraceLogout counts logouts from grace-window exhaustion.
	MetricGraceLogout = internalmetrics.MetricGraceLogout
	// MetricIdleLogout counts logouts of idle users with expired credentials.
	MetricIdleLogout = internalmetrics.MetricIdleLogout
	// MetricLogout counts every session teardown, whatever the reason.
	MetricLogout = internalmetrics.MetricLogout
	// MetricActivityRecorded counts recorded interaction events.
	MetricActivityRecorded = internalmetrics.MetricActivityRecorded
	// MetricRefreshLatency is the refresh exchange latency histogram.
	MetricRefreshLatency = internalmetrics.MetricRefreshLatency
)

// Metrics holds atomic counters and an optional latency histogram.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a [Metrics] instance configured by the given
// [MetricsConfig]. When Enabled is false, all operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}

package metrics

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a single counter slot.
type MetricID uint16

const (
	// MetricRefreshSuccess counts refresh exchanges that replaced the session.
	MetricRefreshSuccess MetricID = iota
	// MetricRefreshFailure counts refresh attempts that ended in any failure.
	MetricRefreshFailure
	// MetricRefreshRejected counts terminal credential rejections (forced logout).
	MetricRefreshRejected
	// MetricRefreshRetried counts individual backoff retries.
	MetricRefreshRetried
	// MetricRefreshExhausted counts retry budgets spent without success.
	MetricRefreshExhausted
	// MetricRefreshMalformed counts well-delivered but unusable refresh responses.
	MetricRefreshMalformed
	// MetricRefreshSuppressed counts callers that lost the single-flight race.
	MetricRefreshSuppressed
	// MetricRefreshSkippedIdle counts scheduled fires skipped because the user was idle.
	MetricRefreshSkippedIdle
	// MetricRefreshDiscarded counts refresh results dropped by the post-stop guard.
	MetricRefreshDiscarded
	// MetricScheduleArmed counts armed refresh timers.
	MetricScheduleArmed
	// MetricScheduleSkippedPast counts schedule requests whose fire instant had already passed.
	MetricScheduleSkippedPast
	// MetricReconcileTick counts reconciler passes.
	MetricReconcileTick
	// MetricExternalInvalidation counts logouts forced by a missing external marker.
	MetricExternalInvalidation
	// MetricGraceLogout counts logouts forced by grace-window exhaustion.
	MetricGraceLogout
	// MetricIdleLogout counts logouts of idle users with expired credentials.
	MetricIdleLogout
	// MetricLogout counts every teardown, whatever the reason.
	MetricLogout
	// MetricActivityRecorded counts recorded interaction events.
	MetricActivityRecorded
	// MetricRefreshLatency is the refresh exchange latency histogram.
	MetricRefreshLatency

	// MetricIDCount is the number of defined metric slots.
	MetricIDCount
)

// Histogram bucket upper bounds for refresh latency, in milliseconds.
var latencyBucketsMs = [...]uint64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

// Config controls which parts of the metric system are live.
type Config struct {
	Enabled       bool
	EnableLatency bool
}

// Metrics holds the counter slots. The zero value is unusable; construct
// through New.
type Metrics struct {
	cfg      Config
	counters [MetricIDCount]atomic.Uint64
	latency  [len(latencyBucketsMs) + 1]atomic.Uint64
}

// Snapshot is a point-in-time deep copy of all counters.
type Snapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// New creates a Metrics instance. A nil return is valid to call methods on
// when the config disables metrics entirely.
func New(cfg Config) *Metrics {
	if !cfg.Enabled {
		return nil
	}
	return &Metrics{cfg: cfg}
}

// Inc adds one to the given counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || id >= MetricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// ObserveLatency records a refresh exchange duration.
func (m *Metrics) ObserveLatency(d time.Duration) {
	if m == nil || !m.cfg.EnableLatency {
		return
	}
	ms := uint64(d / time.Millisecond)
	for i, bound := range latencyBucketsMs {
		if ms <= bound {
			m.latency[i].Add(1)
			return
		}
	}
	m.latency[len(latencyBucketsMs)].Add(1)
}

// Snapshot deep-copies every counter and histogram bucket.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{
		Counters:   make(map[MetricID]uint64, MetricIDCount),
		Histograms: map[MetricID][]uint64{},
	}
	if m == nil {
		return snap
	}
	for id := MetricID(0); id < MetricIDCount; id++ {
		snap.Counters[id] = m.counters[id].Load()
	}
	if m.cfg.EnableLatency {
		buckets := make([]uint64, len(m.latency))
		for i := range m.latency {
			buckets[i] = m.latency[i].Load()
		}
		snap.Histograms[MetricRefreshLatency] = buckets
	}
	return snap
}

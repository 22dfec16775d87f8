package sessionkeep

import (
	"errors"
	"time"
)

// Config groups all keeper tuning knobs. Configure once before Build; the
// keeper never mutates it afterwards.
type Config struct {
	Refresh   RefreshConfig
	Schedule  ScheduleConfig
	Reconcile ReconcileConfig
	Activity  ActivityConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig bounds the refresh executor's retry policy.
type RefreshConfig struct {
	// MaxRetries is how many times a transient failure is retried after the
	// first attempt. Waits double from BackoffBase: 1s, 2s, 4s by default.
	MaxRetries  int
	BackoffBase time.Duration

	// AttemptTimeout bounds each individual network exchange. Zero disables
	// the per-attempt bound.
	AttemptTimeout time.Duration
}

/*
====================================
SCHEDULE CONFIG
====================================
*/

// ScheduleConfig controls the pre-emptive refresh timer.
type ScheduleConfig struct {
	// LeadTime is how long before expiry the scheduled refresh fires.
	LeadTime time.Duration
}

/*
====================================
RECONCILE CONFIG
====================================
*/

// ReconcileConfig controls the periodic consistency pass.
type ReconcileConfig struct {
	Interval time.Duration

	// GraceWindow is how long past expiry the session is tolerated while a
	// refresh may still rescue it.
	GraceWindow time.Duration
}

/*
====================================
ACTIVITY CONFIG
====================================
*/

// ActivityConfig controls idleness evaluation.
type ActivityConfig struct {
	// IdleThreshold is the silence after which the user counts as inactive
	// and refreshes stop being performed on their behalf.
	IdleThreshold time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process metric counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the documented default tuning: refresh 2 minutes
// before expiry, 3 retries doubling from 1s, a 30s reconcile pass with a
// 1 minute grace window, and a 5 minute idle threshold.
func DefaultConfig() Config {
	return Config{
		Refresh: RefreshConfig{
			MaxRetries:     3,
			BackoffBase:    time.Second,
			AttemptTimeout: 15 * time.Second,
		},
		Schedule: ScheduleConfig{
			LeadTime: 2 * time.Minute,
		},
		Reconcile: ReconcileConfig{
			Interval:    30 * time.Second,
			GraceWindow: time.Minute,
		},
		Activity: ActivityConfig{
			IdleThreshold: 5 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func validateConfig(cfg Config) error {
	if cfg.Refresh.MaxRetries < 0 || cfg.Refresh.MaxRetries > 10 {
		return errors.New("invalid MaxRetries configuration")
	}
	if cfg.Refresh.BackoffBase <= 0 || cfg.Refresh.BackoffBase > 30*time.Second {
		return errors.New("invalid BackoffBase configuration")
	}
	if cfg.Refresh.AttemptTimeout < 0 {
		return errors.New("invalid AttemptTimeout configuration")
	}
	if cfg.Schedule.LeadTime <= 0 {
		return errors.New("invalid LeadTime configuration")
	}
	if cfg.Reconcile.Interval < time.Second {
		return errors.New("invalid reconcile Interval configuration")
	}
	if cfg.Reconcile.GraceWindow < 0 {
		return errors.New("invalid GraceWindow configuration")
	}
	if cfg.Activity.IdleThreshold <= 0 {
		return errors.New("invalid IdleThreshold configuration")
	}
	return nil
}

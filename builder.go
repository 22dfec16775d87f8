package sessionkeep

import (
	"log"

	"github.com/google/uuid"
	internalaudit "github.com/sessionkeep/sessionkeep/internal/audit"
	"github.com/sessionkeep/sessionkeep/internal/clock"
	internalmetrics "github.com/sessionkeep/sessionkeep/internal/metrics"
	"github.com/sessionkeep/sessionkeep/session"
)

// Builder assembles a [Keeper]. Construction is allocation-only; no I/O
// happens before [Keeper.Start].
type Builder struct {
	config    Config
	store     session.Store
	transport RefreshTransport
	nav       Navigator
	auditSink AuditSink
	clk       clock.Clock
	logf      func(format string, args ...any)

	built bool
}

// New creates a Builder preloaded with the default configuration.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStore sets the external credential store. Required.
func (b *Builder) WithStore(store session.Store) *Builder {
	b.store = store
	return b
}

// WithTransport sets the refresh exchange transport. Required.
func (b *Builder) WithTransport(t RefreshTransport) *Builder {
	b.transport = t
	return b
}

// WithNavigator sets the redirect-to-login side effect. Defaults to a no-op.
func (b *Builder) WithNavigator(nav Navigator) *Builder {
	b.nav = nav
	return b
}

// WithAuditSink sets the audit sink; audit must also be enabled in Config.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles metric collection.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLogf replaces the diagnostic log function. Defaults to log.Printf.
func (b *Builder) WithLogf(logf func(format string, args ...any)) *Builder {
	b.logf = logf
	return b
}

// withClock injects a fake time source; tests only.
func (b *Builder) withClock(clk clock.Clock) *Builder {
	b.clk = clk
	return b
}

// Build validates the configuration and wiring and returns a stopped Keeper.
func (b *Builder) Build() (*Keeper, error) {
	if b.built {
		return nil, ErrBuilderReused
	}
	if err := validateConfig(b.config); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, ErrStoreRequired
	}
	if b.transport == nil {
		return nil, ErrTransportRequired
	}

	nav := b.nav
	if nav == nil {
		nav = NavigatorFunc(func() {})
	}
	clk := b.clk
	if clk == nil {
		clk = clock.System()
	}
	logf := b.logf
	if logf == nil {
		logf = log.Printf
	}

	b.built = true
	return &Keeper{
		id:        uuid.NewString(),
		config:    b.config,
		store:     b.store,
		transport: b.transport,
		nav:       nav,
		clk:       clk,
		logf:      logf,
		activity:  newActivityTracker(clk),
		metrics: internalmetrics.New(internalmetrics.Config{
			Enabled:       b.config.Metrics.Enabled,
			EnableLatency: b.config.Metrics.EnableLatencyHistograms,
		}),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    b.config.Audit.Enabled,
			BufferSize: b.config.Audit.BufferSize,
			DropIfFull: b.config.Audit.DropIfFull,
		}, b.auditSink),
	}, nil
}

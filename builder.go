package authstate

import (
	"context"
	"time"

	internalaudit "github.com/variel/authstate/internal/audit"
	"github.com/variel/authstate/internal/expiry"
	"github.com/variel/authstate/store"
)

// Builder assembles a [Manager]. Configure it during initialization and
// call Build exactly once; the zero-dependency path is a single
// WithStore call with an adapter from store/redis, store/file, or
// store/memory.
type Builder struct {
	config    Config
	kv        store.KV
	watcher   store.Watcher
	clock     func() time.Time
	auditSink AuditSink

	built bool
}

// New returns a Builder primed with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		clock:  time.Now,
	}
}

// WithConfig replaces the configuration wholesale.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the persistence adapter. When kv also implements
// [store.Watcher] the cross-context synchronizer is wired automatically;
// use WithWatcher to override or to supply a separate change feed.
func (b *Builder) WithStore(kv store.KV) *Builder {
	b.kv = kv
	if w, ok := kv.(store.Watcher); ok && b.watcher == nil {
		b.watcher = w
	}
	return b
}

// WithWatcher sets the change-feed source explicitly. Pass nil to run
// without cross-context synchronization even on a watchable store.
func (b *Builder) WithWatcher(w store.Watcher) *Builder {
	b.watcher = w
	return b
}

// WithClock injects the wall clock used for expiry decisions. Tests use it
// to evaluate validity at chosen instants.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	if now != nil {
		b.clock = now
	}
	return b
}

// WithAuditSink attaches a sink and enables the audit dispatcher.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = true
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, wires the scheduler, audit dispatcher
// and counters, and starts the cross-context watch loop when a watcher is
// present. Build does not hydrate: call [Manager.Hydrate] once at startup
// so the timer is seeded against the current clock.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}
	if b.kv == nil {
		return nil, ErrStoreRequired
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		config:  cfg,
		kv:      b.kv,
		watcher: b.watcher,
		now:     b.clock,
		sched: expiry.NewWithHooks(b.clock, func(d time.Duration, fn func()) expiry.Handle {
			return time.AfterFunc(d, fn)
		}),
		metrics: NewMetrics(cfg.Metrics),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
	}

	if m.watcher != nil {
		ctx, cancel := context.WithCancel(context.Background())
		ch, err := m.watcher.Watch(ctx)
		if err != nil {
			cancel()
			m.audit.Close()
			return nil, err
		}
		m.watchCancel = cancel
		m.watchDone = make(chan struct{})
		go m.runWatch(ctx, ch)
	}

	b.built = true

	return m, nil
}

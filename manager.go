package authstate

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	internalaudit "github.com/variel/authstate/internal/audit"
	"github.com/variel/authstate/internal/expiry"
	"github.com/variel/authstate/store"
	"github.com/variel/authstate/token"
)

// Manager is the session facade: the single in-memory source of truth for
// the token and profile, the owner of the expiry timer, and the consumer of
// cross-context change notifications. All mutators — Login, Logout,
// Hydrate, the timer callback, the watch loop — serialize through one
// mutex, so each runs to completion before the next begins.
type Manager struct {
	config  Config
	kv      store.KV
	watcher store.Watcher
	sched   *expiry.Scheduler
	audit   *internalaudit.Dispatcher
	metrics *Metrics
	now     func() time.Time

	mu       sync.Mutex
	rawToken string
	hasToken bool
	profile  Profile
	langHook func(lang string)

	watchCancel context.CancelFunc
	watchDone   chan struct{}
	closed      atomic.Bool
}

// Login installs a new session: token and profile are written to the store
// first, then memory is updated and the expiry timer re-armed, as one
// logical operation. A failed store write aborts before any in-memory
// mutation — there is no partial login. A token that is already past its
// expiry logs straight back out.
func (m *Manager) Login(ctx context.Context, raw string, profile Profile) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if raw == "" {
		return ErrEmptyToken
	}

	blob, err := json.Marshal(profile)
	if err != nil {
		return err
	}

	if err := m.kv.Set(ctx, m.config.Keys.Token, raw); err != nil {
		m.metrics.Inc(MetricLoginFailure)
		m.emit(ctx, "login", raw, err)
		return err
	}
	if err := m.kv.Set(ctx, m.config.Keys.Profile, string(blob)); err != nil {
		m.metrics.Inc(MetricLoginFailure)
		m.emit(ctx, "login", raw, err)
		return err
	}

	m.mu.Lock()
	m.rawToken = raw
	m.hasToken = true
	m.profile = profile.clone()
	expired := m.scheduleLocked(raw)
	m.mu.Unlock()

	m.metrics.Inc(MetricLoginSuccess)
	m.emit(ctx, "login", raw, nil)

	if expired {
		return m.expireNow(ctx, raw)
	}
	return nil
}

// Logout clears the session. Memory and the timer are cleared first, then
// both keys are removed from the store, so the process is logged out even
// when storage is unreachable (the removal error is still returned).
// Logout is idempotent: with no session it performs the same clears and
// removals without complaint.
func (m *Manager) Logout(ctx context.Context) error {
	if m.closed.Load() {
		return ErrClosed
	}

	m.mu.Lock()
	m.rawToken = ""
	m.hasToken = false
	m.profile = nil
	m.sched.Cancel()
	m.mu.Unlock()

	err := errors.Join(
		m.kv.Remove(ctx, m.config.Keys.Token),
		m.kv.Remove(ctx, m.config.Keys.Profile),
	)

	m.metrics.Inc(MetricLogout)
	m.emit(ctx, "logout", "", err)
	return err
}

// Hydrate reconstructs the session from the store. Call it once at process
// start: a constructor cannot seed the expiry timer because the token's
// remaining lifetime must be recomputed against the current clock. Hydrate
// is idempotent; repeated calls with no intervening mutation produce
// identical state.
//
// A token key holding the empty string or the literal text "undefined"
// hydrates as no token. A corrupt profile blob hydrates as no profile;
// neither is an error.
func (m *Manager) Hydrate(ctx context.Context) error {
	if m.closed.Load() {
		return ErrClosed
	}

	raw, ok, err := m.kv.Get(ctx, m.config.Keys.Token)
	if err != nil {
		return err
	}
	if raw == "" || raw == "undefined" {
		ok = false
		raw = ""
	}

	blob, blobOK, err := m.kv.Get(ctx, m.config.Keys.Profile)
	if err != nil {
		return err
	}
	var profile Profile
	if blobOK && !store.DecodeJSON(blob, &profile) {
		profile = nil
		m.metrics.Inc(MetricCorruptState)
		m.emitKey(ctx, "corrupt_state", m.config.Keys.Profile, "")
	}

	m.mu.Lock()
	m.rawToken = raw
	m.hasToken = ok
	m.profile = profile
	expired := false
	if ok {
		expired = m.scheduleLocked(raw)
	}
	m.mu.Unlock()

	m.metrics.Inc(MetricHydrate)
	m.emit(ctx, "hydrate", raw, nil)

	if expired {
		return m.expireNow(ctx, raw)
	}
	return nil
}

// IsAuthenticated derives session validity at the current instant: a token
// must be present, decodable, carry an expiry claim, and that claim must
// lie strictly in the future (millisecond precision — a token expiring at
// exactly "now" is expired). Recomputed on every call, never cached.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	raw, ok := m.rawToken, m.hasToken
	m.mu.Unlock()

	if !ok {
		return false
	}
	claims, decoded := token.Decode(raw)
	if !decoded {
		return false
	}
	return claims.Valid(m.now())
}

// DisplayName returns the profile name, or the configured fallback when no
// profile name is present. The profile never influences IsAuthenticated.
func (m *Manager) DisplayName() string {
	m.mu.Lock()
	name := m.profile.Name()
	m.mu.Unlock()

	if name == "" {
		return m.config.Profile.FallbackName
	}
	return name
}

// Token returns the current bearer token, if any.
func (m *Manager) Token() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rawToken, m.hasToken
}

// Claims decodes the current token. ok is false when there is no token or
// it does not decode.
func (m *Manager) Claims() (token.Claims, bool) {
	raw, ok := m.Token()
	if !ok {
		return token.Claims{}, false
	}
	return token.Decode(raw)
}

// Snapshot returns a consistent read-only copy of the session plus its
// derived values, evaluated at the current clock.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	snap := Snapshot{
		Token:    m.rawToken,
		HasToken: m.hasToken,
		Profile:  m.profile.clone(),
	}
	m.mu.Unlock()

	if snap.HasToken {
		snap.Claims, snap.HasClaims = token.Decode(snap.Token)
		snap.IsAuthenticated = snap.HasClaims && snap.Claims.Valid(m.now())
	}
	snap.DisplayName = snap.Profile.Name()
	if snap.DisplayName == "" {
		snap.DisplayName = m.config.Profile.FallbackName
	}
	return snap
}

// OnLanguageChange registers the hook invoked when another context writes
// the language key. Used by the locale layer; pass nil to detach.
func (m *Manager) OnLanguageChange(hook func(lang string)) {
	m.mu.Lock()
	m.langHook = hook
	m.mu.Unlock()
}

// MetricsSnapshot returns a deep copy of the counters.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	return m.metrics.Snapshot()
}

// AuditDropped reports audit events discarded under backpressure.
func (m *Manager) AuditDropped() uint64 {
	return m.audit.Dropped()
}

// Close stops the watch loop, cancels any pending expiry timer, and drains
// the audit dispatcher. The Manager is unusable afterwards.
func (m *Manager) Close() {
	if m == nil || m.closed.Swap(true) {
		return
	}
	if m.watchCancel != nil {
		m.watchCancel()
		<-m.watchDone
	}
	m.sched.Cancel()
	m.audit.Close()
}

// scheduleLocked re-arms the expiry timer for raw. Caller holds m.mu.
// Reports true when the token is already expired, in which case the caller
// must run the logout synchronously after releasing the lock.
func (m *Manager) scheduleLocked(raw string) bool {
	if !m.config.Scheduler.Enabled {
		return false
	}
	return m.sched.Schedule(raw, func() { m.autoLogout(raw) }) == expiry.AlreadyExpired
}

// autoLogout is the timer callback. The token is re-checked against the
// current session: a fire that lost a race with a newer Login must not
// clear the newer token.
func (m *Manager) autoLogout(raw string) {
	if m.closed.Load() {
		return
	}

	m.mu.Lock()
	if !m.hasToken || m.rawToken != raw {
		m.mu.Unlock()
		return
	}
	m.rawToken = ""
	m.hasToken = false
	m.profile = nil
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := errors.Join(
		m.kv.Remove(ctx, m.config.Keys.Token),
		m.kv.Remove(ctx, m.config.Keys.Profile),
	)

	m.metrics.Inc(MetricAutoLogout)
	m.emit(ctx, "auto_logout", raw, err)
}

// expireNow handles a token whose expiry is already in the past at
// scheduling time: the logout runs synchronously instead of arming a timer.
func (m *Manager) expireNow(ctx context.Context, raw string) error {
	m.mu.Lock()
	if !m.hasToken || m.rawToken != raw {
		m.mu.Unlock()
		return nil
	}
	m.rawToken = ""
	m.hasToken = false
	m.profile = nil
	m.mu.Unlock()

	err := errors.Join(
		m.kv.Remove(ctx, m.config.Keys.Token),
		m.kv.Remove(ctx, m.config.Keys.Profile),
	)

	m.metrics.Inc(MetricAutoLogout)
	m.emit(ctx, "auto_logout", raw, err)
	return err
}

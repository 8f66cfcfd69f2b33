package authstate

import (
	"context"

	"github.com/variel/authstate/store"
	"github.com/variel/authstate/token"
)

// runWatch is the cross-context synchronizer: it mirrors foreign writes
// into memory. It never writes the store back — the originating context
// already persisted the value, and echoing it would loop notifications
// between contexts.
func (m *Manager) runWatch(ctx context.Context, ch <-chan store.Change) {
	defer close(m.watchDone)
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-ch:
			if !ok {
				return
			}
			m.applyChange(ctx, c)
		}
	}
}

func (m *Manager) applyChange(ctx context.Context, c store.Change) {
	switch c.Key {
	case m.config.Keys.Token:
		m.applyTokenChange(ctx, c)
	case m.config.Keys.Profile:
		m.applyProfileChange(ctx, c)
	case m.config.Keys.Language:
		if m.config.Keys.Language != "" {
			m.applyLanguageChange(c)
		}
	}
	m.metrics.Inc(MetricWatchApplied)
}

// applyTokenChange mirrors a remote login or logout. Token changes are
// treated uniformly with local ones: a new remote token re-arms the local
// expiry timer, a removal cancels it. Without the re-arm a mirroring
// context would read as valid forever past the deadline.
func (m *Manager) applyTokenChange(ctx context.Context, c store.Change) {
	raw := c.NewValue
	present := c.NewPresent && raw != "" && raw != "undefined"

	if !present {
		m.mu.Lock()
		m.rawToken = ""
		m.hasToken = false
		m.sched.Cancel()
		m.mu.Unlock()

		m.metrics.Inc(MetricRemoteLogout)
		m.emitRemote(ctx, "remote_logout", "", c.Origin)
		return
	}

	if _, decoded := token.Decode(raw); !decoded {
		m.metrics.Inc(MetricDecodeFailure)
		m.emitRemote(ctx, "decode_failure", raw, c.Origin)
		// The value is installed anyway; a garbage token reads exactly
		// like no session, and the store stays the source of truth.
	}

	m.mu.Lock()
	m.rawToken = raw
	m.hasToken = true
	expired := m.scheduleLocked(raw)
	m.mu.Unlock()

	m.metrics.Inc(MetricRemoteLogin)
	m.emitRemote(ctx, "remote_login", raw, c.Origin)

	if expired {
		_ = m.expireNow(ctx, raw)
	}
}

// applyProfileChange mirrors a remote profile write. Malformed JSON in a
// notification degrades to an absent profile, never to an error.
func (m *Manager) applyProfileChange(ctx context.Context, c store.Change) {
	var profile Profile
	if c.NewPresent && !store.DecodeJSON(c.NewValue, &profile) {
		m.metrics.Inc(MetricCorruptState)
		m.emitKey(ctx, "corrupt_state", m.config.Keys.Profile, c.Origin)
	}

	m.mu.Lock()
	m.profile = profile
	m.mu.Unlock()

	m.metrics.Inc(MetricRemoteProfile)
}

func (m *Manager) applyLanguageChange(c store.Change) {
	if !c.NewPresent {
		return
	}
	m.mu.Lock()
	hook := m.langHook
	m.mu.Unlock()

	if hook != nil {
		hook(c.NewValue)
	}
}

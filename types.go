package authstate

import (
	"io"

	internalaudit "github.com/variel/authstate/internal/audit"
	internalmetrics "github.com/variel/authstate/internal/metrics"
	"github.com/variel/authstate/token"
)

// Profile carries the user-facing attributes stored next to the token. Its
// lifecycle is independent from the token's, though the two are
// conventionally set and cleared together. The profile never participates
// in the authenticated decision; only the token's claims do.
type Profile map[string]any

// Name returns the profile's "name" attribute, or "" when absent or not a
// string.
func (p Profile) Name() string {
	if p == nil {
		return ""
	}
	name, _ := p["name"].(string)
	return name
}

func (p Profile) clone() Profile {
	if p == nil {
		return nil
	}
	out := make(Profile, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Snapshot is a read-only copy of the session at one instant, for callers
// that want the raw state alongside the derived values.
type Snapshot struct {
	Token           string
	HasToken        bool
	Profile         Profile
	Claims          token.Claims
	HasClaims       bool
	IsAuthenticated bool
	DisplayName     string
}

// AuditEvent is a structured session lifecycle record emitted by the
// manager.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the manager's dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink], the push mechanism
// for hosts that want to react to session changes.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer], one object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// MetricID identifies a counter in the in-process metrics system.
type MetricID = internalmetrics.ID

const (
	MetricLoginSuccess  = internalmetrics.MetricLoginSuccess
	MetricLoginFailure  = internalmetrics.MetricLoginFailure
	MetricLogout        = internalmetrics.MetricLogout
	MetricAutoLogout    = internalmetrics.MetricAutoLogout
	MetricHydrate       = internalmetrics.MetricHydrate
	MetricRemoteLogin   = internalmetrics.MetricRemoteLogin
	MetricRemoteLogout  = internalmetrics.MetricRemoteLogout
	MetricRemoteProfile = internalmetrics.MetricRemoteProfile
	MetricDecodeFailure = internalmetrics.MetricDecodeFailure
	MetricCorruptState  = internalmetrics.MetricCorruptState
	MetricWatchApplied  = internalmetrics.MetricWatchApplied
)

// Metrics holds the manager's atomic counters.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time deep copy of all counters.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a [Metrics] instance configured by cfg. When Enabled
// is false, all operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{Enabled: cfg.Enabled})
}

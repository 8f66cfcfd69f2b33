// Package metrics implements the in-process counter set for the session
// manager. Counters are plain atomics; exporters read point-in-time
// snapshots, never the live values.
package metrics

// ID identifies a single counter.
type ID uint16

const (
	MetricLoginSuccess ID = iota
	MetricLoginFailure
	MetricLogout
	MetricAutoLogout
	MetricHydrate
	MetricRemoteLogin
	MetricRemoteLogout
	MetricRemoteProfile
	MetricDecodeFailure
	MetricCorruptState
	MetricWatchApplied

	// IDCount is the number of defined counters. New IDs go above it.
	IDCount
)

// Config controls whether the counter set is live. When Enabled is false
// all operations are no-ops.
type Config struct {
	Enabled bool
}

// Snapshot is a point-in-time deep copy of all counters.
type Snapshot struct {
	Counters map[ID]uint64
}

// Package internaldefs holds the exporter-facing counter catalog. It exists
// so the Prometheus and OTel exporters render the same names and help text
// without importing each other.
package internaldefs

import "github.com/variel/authstate/internal/metrics"

// CounterDef describes one exported counter.
type CounterDef struct {
	ID   metrics.ID
	Name string
	Help string
}

// CounterDefs lists every counter in export order.
var CounterDefs = []CounterDef{
	{metrics.MetricLoginSuccess, "authstate_login_success_total", "Successful login operations."},
	{metrics.MetricLoginFailure, "authstate_login_failure_total", "Login operations aborted by a storage write failure."},
	{metrics.MetricLogout, "authstate_logout_total", "Explicit logout operations."},
	{metrics.MetricAutoLogout, "authstate_auto_logout_total", "Automatic logouts fired at token expiry."},
	{metrics.MetricHydrate, "authstate_hydrate_total", "Startup hydrations from the durable store."},
	{metrics.MetricRemoteLogin, "authstate_remote_login_total", "Token installs mirrored from another context."},
	{metrics.MetricRemoteLogout, "authstate_remote_logout_total", "Token removals mirrored from another context."},
	{metrics.MetricRemoteProfile, "authstate_remote_profile_total", "Profile updates mirrored from another context."},
	{metrics.MetricDecodeFailure, "authstate_decode_failure_total", "Bearer tokens that failed to decode."},
	{metrics.MetricCorruptState, "authstate_corrupt_state_total", "Persisted blobs that degraded to absent."},
	{metrics.MetricWatchApplied, "authstate_watch_applied_total", "Change-feed notifications processed."},
}

package authstate

import "errors"

// Config defines the manager's tunables. Zero values are filled in by
// [DefaultConfig]; a Config passed to the builder is cloned and validated
// during Build and treated as immutable afterwards.
type Config struct {
	Keys      KeysConfig
	Profile   ProfileConfig
	Scheduler SchedulerConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
KEY LAYOUT
====================================
*/

// KeysConfig names the independent string keys in the durable store. Token
// and profile are read and written atomically each, but never jointly — a
// crash between the two writes is possible and tolerated.
type KeysConfig struct {
	// Token holds the raw bearer credential.
	Token string
	// Profile holds the JSON-serialized profile object.
	Profile string
	// Language holds the persisted locale choice. Optional; an empty name
	// disables language propagation.
	Language string
}

/*
====================================
PROFILE / DERIVED STATE
====================================
*/

// ProfileConfig controls derived-state presentation.
type ProfileConfig struct {
	// FallbackName is returned by DisplayName when no profile name is set.
	FallbackName string
}

/*
====================================
SCHEDULER
====================================
*/

// SchedulerConfig controls the automatic-logout timer.
type SchedulerConfig struct {
	// Enabled arms a one-shot logout at the token's expiry instant. When
	// false the session still *reads* as unauthenticated past expiry (the
	// derived check is independent), but nothing clears the stored state.
	Enabled bool
}

/*
====================================
AUDIT
====================================
*/

// AuditConfig controls the asynchronous event dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS
====================================
*/

// MetricsConfig controls the in-process counter set.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the baseline configuration: "token"/"user"/"lang"
// key layout, "Guest" fallback display name, scheduler on, audit and
// metrics off.
func DefaultConfig() Config {
	return Config{
		Keys: KeysConfig{
			Token:    "token",
			Profile:  "user",
			Language: "lang",
		},
		Profile: ProfileConfig{
			FallbackName: "Guest",
		},
		Scheduler: SchedulerConfig{
			Enabled: true,
		},
		Audit: AuditConfig{
			BufferSize: 64,
			DropIfFull: true,
		},
	}
}

// Validate rejects configurations the manager cannot operate on.
func (c Config) Validate() error {
	if c.Keys.Token == "" {
		return errors.New("Keys.Token must not be empty")
	}
	if c.Keys.Profile == "" {
		return errors.New("Keys.Profile must not be empty")
	}
	if c.Keys.Token == c.Keys.Profile {
		return errors.New("Keys.Token and Keys.Profile must differ")
	}
	if c.Keys.Language != "" && (c.Keys.Language == c.Keys.Token || c.Keys.Language == c.Keys.Profile) {
		return errors.New("Keys.Language must differ from token and profile keys")
	}
	if c.Audit.Enabled && c.Audit.BufferSize < 0 {
		return errors.New("Audit.BufferSize must not be negative")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	// All sections are value types today; the clone keeps Build immune to
	// later mutation of the caller's Config.
	return cfg
}

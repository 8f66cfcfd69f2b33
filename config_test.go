package authstate

import "testing"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Keys.Token != "token" || cfg.Keys.Profile != "user" || cfg.Keys.Language != "lang" {
		t.Fatalf("key layout = %+v", cfg.Keys)
	}
	if cfg.Profile.FallbackName != "Guest" {
		t.Fatalf("fallback name = %q", cfg.Profile.FallbackName)
	}
	if !cfg.Scheduler.Enabled {
		t.Fatal("scheduler must default on")
	}
	if cfg.Audit.Enabled || cfg.Metrics.Enabled {
		t.Fatal("audit and metrics must default off")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"empty token key", func(c *Config) { c.Keys.Token = "" }, true},
		{"empty profile key", func(c *Config) { c.Keys.Profile = "" }, true},
		{"token equals profile", func(c *Config) { c.Keys.Profile = c.Keys.Token }, true},
		{"language equals token", func(c *Config) { c.Keys.Language = c.Keys.Token }, true},
		{"language disabled", func(c *Config) { c.Keys.Language = "" }, false},
		{"negative audit buffer", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = -1
		}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected a validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestProfileName(t *testing.T) {
	if got := (Profile{"name": "Ada"}).Name(); got != "Ada" {
		t.Fatalf("Name = %q", got)
	}
	if got := (Profile{"name": 42}).Name(); got != "" {
		t.Fatalf("non-string name = %q", got)
	}
	if got := (Profile{}).Name(); got != "" {
		t.Fatalf("missing name = %q", got)
	}
	if got := (Profile)(nil).Name(); got != "" {
		t.Fatalf("nil profile name = %q", got)
	}
}

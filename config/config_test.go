package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 8080
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("explicit port lost, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("default host not applied, got %q", cfg.Server.Host)
	}
	if cfg.Weather.ShortTermDays != 15 || cfg.Weather.SeasonalDays != 210 {
		t.Errorf("default thresholds not applied: %+v", cfg.Weather)
	}
	if cfg.RateLimit.MinIntervalMs != 2000 || cfg.RateLimit.MaxRequests != 30 || cfg.RateLimit.WindowSeconds != 60 {
		t.Errorf("default rate limits not applied: %+v", cfg.RateLimit)
	}
	if cfg.Cache.Capacity != 50 || cfg.Cache.EvictBatch != 10 {
		t.Errorf("default cache sizing not applied: %+v", cfg.Cache)
	}
	if cfg.Claude.Model == "" || cfg.Claude.MaxTokens != 500 {
		t.Errorf("default Claude settings not applied: %+v", cfg.Claude)
	}
	if cfg.Logging.FilenamePattern != "eventcast-YYYYMMDD.log" {
		t.Errorf("default log pattern not applied, got %q", cfg.Logging.FilenamePattern)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	var notFound *ConfigNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ConfigNotFoundError, got %v", err)
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	path := writeConfig(t, `[server but no closing bracket`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error for malformed TOML")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("METEOMATICS_USERNAME", "env-user")
	t.Setenv("METEOMATICS_PASSWORD", "env-pass")
	t.Setenv("ANTHROPIC_API_KEY", "env-key")
	t.Setenv("EVENTCAST_PORT", "9999")

	path := writeConfig(t, `
[weather]
meteomatics_username = "file-user"
meteomatics_password = "file-pass"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Weather.MeteomaticsUsername != "env-user" || cfg.Weather.MeteomaticsPassword != "env-pass" {
		t.Errorf("env credentials must win over file values: %+v", cfg.Weather)
	}
	if cfg.Claude.APIKey != "env-key" {
		t.Errorf("env API key not applied, got %q", cfg.Claude.APIKey)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("env port not applied, got %d", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, true},
		{"inverted thresholds", func(c *Config) { c.Weather.ShortTermDays = 300 }, true},
		{"lone meteomatics username", func(c *Config) { c.Weather.MeteomaticsUsername = "user" }, true},
		{"credential pair ok", func(c *Config) {
			c.Weather.MeteomaticsUsername = "user"
			c.Weather.MeteomaticsPassword = "pass"
		}, false},
		{"temperature too high", func(c *Config) { c.Claude.Temperature = 1.5 }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
		{"spacing wider than window", func(c *Config) { c.RateLimit.MinIntervalMs = 120000 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.ApplyDefaults()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestGenerateSampleConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample", "config.toml")

	if err := GenerateSampleConfig(path); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("generated sample must load cleanly: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("generated sample must validate: %v", err)
	}
	if cfg.Server.Port != 3001 {
		t.Errorf("sample port = %d, want 3001", cfg.Server.Port)
	}
}

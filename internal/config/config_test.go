package config

import (
	"strings"
	"testing"
	"time"
)

func env(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load(env(map[string]string{"JWT_SECRET": "s3cret"}))

	if cfg.Port != "8080" {
		t.Errorf("Port = %s, want 8080", cfg.Port)
	}
	if cfg.Backend != "sqlite" {
		t.Errorf("Backend = %s, want sqlite", cfg.Backend)
	}
	if cfg.TokenDuration != 24*time.Hour {
		t.Errorf("TokenDuration = %v, want 24h", cfg.TokenDuration)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg := Load(env(map[string]string{
		"PORT":           "9000",
		"STORE_BACKEND":  "memory",
		"JWT_SECRET":     "s3cret",
		"TOKEN_DURATION": "1h",
		"LOG_FORMAT":     "json",
	}))

	if cfg.Port != "9000" || cfg.Backend != "memory" || cfg.TokenDuration != time.Hour || cfg.LogFormat != "json" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want string
	}{
		{"missing secret", map[string]string{}, "JWT_SECRET"},
		{"bad port", map[string]string{"JWT_SECRET": "s", "PORT": "nope"}, "invalid port"},
		{"bad backend", map[string]string{"JWT_SECRET": "s", "STORE_BACKEND": "oracle"}, "store backend"},
		{"bad log format", map[string]string{"JWT_SECRET": "s", "LOG_FORMAT": "xml"}, "log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Load(env(tt.vars)).Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func loadForTest(t *testing.T) (*Config, error) {
	t.Helper()
	t.Setenv(EnvSessionBackend, SessionBackendMemory)
	v := viper.New()
	v.AutomaticEnv()
	return FromViper(v, "test")
}

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := loadForTest(t)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APIBaseURL != DefaultAPIBaseURL {
		t.Errorf("APIBaseURL = %q, want %q", cfg.APIBaseURL, DefaultAPIBaseURL)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.CacheCleanupInterval != 10*time.Minute {
		t.Errorf("CacheCleanupInterval = %s, want 10m", cfg.CacheCleanupInterval)
	}
	if cfg.Log == nil {
		t.Error("expected logger to be configured")
	}
}

func TestFromViper_EnvOverrides(t *testing.T) {
	t.Setenv(EnvAPIBaseURL, "https://api.example.com/api/v1/")
	t.Setenv(EnvRequestTimeout, "3s")
	t.Setenv(EnvKafkaBrokers, "k1:9092, k2:9092,")

	cfg, err := loadForTest(t)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APIBaseURL != "https://api.example.com/api/v1" {
		t.Errorf("APIBaseURL = %q, trailing slash should be trimmed", cfg.APIBaseURL)
	}
	if cfg.RequestTimeout != 3*time.Second {
		t.Errorf("RequestTimeout = %s, want 3s", cfg.RequestTimeout)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
	if got := cfg.Origin(); got != "https://api.example.com" {
		t.Errorf("Origin() = %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "relative base url",
			mutate:  func(c *Config) { c.APIBaseURL = "/api" },
			wantErr: "APIBaseURL",
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.MaxRetries = -1 },
			wantErr: "MaxRetries",
		},
		{
			name:    "backoff max below base",
			mutate:  func(c *Config) { c.BackoffMax = time.Millisecond },
			wantErr: "BackoffMax",
		},
		{
			name:    "unknown session backend",
			mutate:  func(c *Config) { c.SessionBackend = "sqlite" },
			wantErr: "SessionBackend",
		},
		{
			name: "mongo backend with bad uri",
			mutate: func(c *Config) {
				c.SessionBackend = SessionBackendMongo
				c.MongoURI = "localhost:27017"
			},
			wantErr: "MongoURI",
		},
		{
			name: "unusable session key",
			mutate: func(c *Config) {
				c.SessionBackend = SessionBackendFile
				c.SessionKey = "dG9vLXNob3J0"
			},
			wantErr: "SessionKey",
		},
		{
			name:    "bad theme colour",
			mutate:  func(c *Config) { c.ThemeColor = "blue" },
			wantErr: "ThemeColor",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := loadForTest(t)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.mutate(cfg)

			err = cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}

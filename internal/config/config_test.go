package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVICE_BASE_URL", "http://guardrails.local/")
	t.Setenv("SERVICE_USER_ID", "trader-1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://guardrails.local", cfg.Service.BaseURL)
	assert.Equal(t, "trader-1", cfg.Service.UserID)
	assert.Equal(t, 10*time.Second, cfg.Service.Timeout)
	assert.Equal(t, 60*time.Second, cfg.Autonomy.AutonomyInterval)
	assert.Equal(t, 12*time.Second, cfg.Autonomy.ListenTimeout)
	assert.Equal(t, 900*time.Millisecond, cfg.Autonomy.SpeechMinVisual)
	assert.Equal(t, "EUR/USD", cfg.Autonomy.DefaultPair)
	assert.False(t, cfg.Database.Enabled)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad timeout", "SERVICE_TIMEOUT", "soon"},
		{"bad equity", "ACCOUNT_EQUITY", "lots"},
		{"bad briefing flag", "BRIEFING_ENABLED", "maybe"},
		{"bad db port", "DB_PORT", "port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Service: ServiceConfig{BaseURL: "http://x", UserID: "u", Timeout: time.Second, RequestsPerSec: 1},
			Autonomy: AutonomyConfig{
				AutonomyInterval: time.Minute,
				ListenTimeout:    12 * time.Second,
				AccountEquity:    1000,
				Language:         "en",
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing base url", func(c *Config) { c.Service.BaseURL = "" }, true},
		{"unsupported language", func(c *Config) { c.Autonomy.Language = "de" }, true},
		{"zero equity", func(c *Config) { c.Autonomy.AccountEquity = 0 }, true},
		{"db without password", func(c *Config) { c.Database.Enabled = true }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

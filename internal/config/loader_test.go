package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, GetDefaultConfig(), cfg)
	assert.Equal(t, DefaultAuthorizationExpirationTimeout, cfg.AuthorizationTimeout())
	assert.False(t, cfg.LicenseAgreementCallback)
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `
frontend_url: https://selfhosted.example.com
callback_port: 9099
authorization_expiration_timeout: 2m
license_agreement_callback: true
log_level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "https://selfhosted.example.com", cfg.FrontendURL)
	assert.Equal(t, 9099, cfg.CallbackPort)
	assert.Equal(t, 2*time.Minute, cfg.AuthorizationTimeout())
	assert.True(t, cfg.LicenseAgreementCallback)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("frontend_url: [broken"), 0644))

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "relative frontend URL",
			mutate:  func(c *Config) { c.FrontendURL = "not-a-url" },
			wantErr: "frontend_url",
		},
		{
			name:    "negative port",
			mutate:  func(c *Config) { c.CallbackPort = -1 },
			wantErr: "callback_port",
		},
		{
			name:    "malformed timeout",
			mutate:  func(c *Config) { c.AuthorizationExpirationTimeout = "soon" },
			wantErr: "authorization_expiration_timeout",
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.AuthorizationExpirationTimeout = "-1m" },
			wantErr: "authorization_expiration_timeout",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

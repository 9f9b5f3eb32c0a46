package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config is the host configuration for the nimbus session core.
type Config struct {
	// FrontendURL is the default cloud frontend. A self-hosted URL passed to
	// Authorize overrides it per session.
	FrontendURL string `yaml:"frontend_url"`

	// CallbackPort is the local port for the OAuth redirect listener,
	// normally the app's built-in server port.
	CallbackPort int `yaml:"callback_port"`

	// AuthorizationExpirationTimeout bounds the license-acceptance wait
	// during authorization. Parsed with time.ParseDuration, e.g. "10m".
	AuthorizationExpirationTimeout string `yaml:"authorization_expiration_timeout"`

	// LicenseAgreementCallback enables the license-acceptance gate: when
	// true, a user is not considered authorized until all licenses are
	// accepted.
	LicenseAgreementCallback bool `yaml:"license_agreement_callback"`

	// TokenStorageDir is the directory for the persisted refresh token.
	// Empty means the per-user default.
	TokenStorageDir string `yaml:"token_storage_dir"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// ValidationError describes a rejected configuration value.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Message)
}

// Validate checks the configuration for values the session core cannot
// operate with.
func (c *Config) Validate() error {
	if c.FrontendURL != "" {
		parsed, err := url.Parse(c.FrontendURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return &ValidationError{Field: "frontend_url", Message: "must be an absolute URL"}
		}
	}
	if c.CallbackPort < 0 || c.CallbackPort > 65535 {
		return &ValidationError{Field: "callback_port", Message: "must be a valid TCP port"}
	}
	if c.AuthorizationExpirationTimeout != "" {
		d, err := time.ParseDuration(c.AuthorizationExpirationTimeout)
		if err != nil {
			return &ValidationError{Field: "authorization_expiration_timeout", Message: "must be a duration like \"10m\""}
		}
		if d <= 0 {
			return &ValidationError{Field: "authorization_expiration_timeout", Message: "must be positive"}
		}
	}
	return nil
}

// AuthorizationTimeout returns the parsed license-wait budget, falling back
// to the built-in default when unset or malformed.
func (c *Config) AuthorizationTimeout() time.Duration {
	if c.AuthorizationExpirationTimeout == "" {
		return DefaultAuthorizationExpirationTimeout
	}
	d, err := time.ParseDuration(c.AuthorizationExpirationTimeout)
	if err != nil || d <= 0 {
		return DefaultAuthorizationExpirationTimeout
	}
	return d
}

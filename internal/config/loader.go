package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"nimbus/pkg/logging"
)

const (
	userConfigDir  = ".config/nimbus"
	configFileName = "config.yaml"
)

// DefaultAuthorizationExpirationTimeout bounds the license-acceptance wait
// when the configuration does not override it.
const DefaultAuthorizationExpirationTimeout = 10 * time.Minute

// GetDefaultConfigPath returns the per-user configuration directory.
func GetDefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// GetDefaultConfig returns the built-in defaults.
func GetDefaultConfig() Config {
	return Config{
		FrontendURL:              "https://cloud.nimbus.dev",
		CallbackPort:             0, // 0 selects the built-in server default
		LicenseAgreementCallback: false,
		LogLevel:                 "info",
	}
}

// LoadConfig loads configuration from the specified directory. A missing
// config.yaml is not an error; defaults apply.
func LoadConfig(configPath string) (Config, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			return config, nil
		}
		return Config{}, err
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	return config, nil
}

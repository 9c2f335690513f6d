package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"teamsync/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/teamsync"
	configFileName = "teamsync.yaml"
)

// osUserHomeDir is replaced in tests.
var osUserHomeDir = os.UserHomeDir

// GetUserConfigDir returns the default configuration directory.
func GetUserConfigDir() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// LoadConfig loads teamsync.yaml from configPath on top of the defaults.
// A missing file yields the defaults. A malformed or invalid file yields a
// ConfigurationError or a ConfigurationErrorCollection.
func LoadConfig(configPath string) (Config, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No %s found at %s, using defaults", configFileName, configFilePath)
			return config, nil
		}
		logging.Info("ConfigLoader", "Error loading %s from %s: %s", configFileName, configFilePath, err)
		return Config{}, NewConfigurationError(configFilePath, "io", err.Error())
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		cfgErr := NewConfigurationError(configFilePath, "parse", err.Error())
		cfgErr.Suggestions = []string{"Check the YAML syntax and indentation", "Durations are written like 200ms or 1s"}
		return Config{}, cfgErr
	}

	if verrs := config.Validate(); verrs.HasErrors() {
		collection := NewConfigurationErrorCollection()
		for _, verr := range verrs {
			cfgErr := NewConfigurationError(configFilePath, "validation", verr.Error())
			cfgErr.Field = verr.Field
			collection.Add(cfgErr)
		}
		return Config{}, *collection
	}

	logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	return config, nil
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"azpim/internal/models"
)

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

// Defaults returns the configuration used when no other source sets a value
func Defaults() models.Config {
	return models.Config{
		LogLevel:        "error",
		BaseURL:         models.PIMBaseURL,
		DurationMinutes: models.DefaultDurationMinutes,
		Reason:          models.DefaultReason,
	}
}

// LoadConfig loads configuration from multiple sources with proper precedence:
// 1. Environment variables (highest priority)
// 2. Configuration file
// 3. Default values (lowest priority)
func LoadConfig(configPath string) (models.Config, error) {
	config := Defaults()

	if configPath != "" {
		fileConfig, err := loadFromFile(configPath)
		if err != nil {
			return models.Config{}, fmt.Errorf("failed to load config file: %w", err)
		}
		mergeConfigs(&config, &fileConfig)
	}

	envConfig, err := loadFromEnv()
	if err != nil {
		return models.Config{}, err
	}
	mergeConfigs(&config, &envConfig)

	return config, nil
}

// GetDefaultConfigPaths returns platform-specific default configuration file paths
func GetDefaultConfigPaths() []string {
	var paths []string

	switch runtime.GOOS {
	case "darwin":
		if home, err := os.UserHomeDir(); err == nil {
			paths = append(paths, filepath.Join(home, "Library", "Preferences", "azpim", "config.yaml"))
			paths = append(paths, filepath.Join(home, ".config", "azpim", "config.yaml"))
		}

	case "linux":
		configDir := os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			if home, err := os.UserHomeDir(); err == nil {
				configDir = filepath.Join(home, ".config")
			}
		}

		if configDir != "" {
			paths = append(paths, filepath.Join(configDir, "azpim", "config.yaml"))
		}

	default:
		if home, err := os.UserHomeDir(); err == nil {
			paths = append(paths, filepath.Join(home, ".azpim", "config.yaml"))
		}
	}

	return paths
}

// LoadConfigWithDefaults loads configuration from multiple sources, checking default paths if no explicit path provided
func LoadConfigWithDefaults(defaultPaths []string) (models.Config, error) {
	config := Defaults()

	if configPath := os.Getenv("AZPIM_CONFIG"); configPath != "" {
		fileConfig, err := loadFromFile(configPath)
		if err != nil {
			return models.Config{}, fmt.Errorf("failed to load config from AZPIM_CONFIG path: %w", err)
		}
		mergeConfigs(&config, &fileConfig)
	} else {
		if len(defaultPaths) == 0 {
			defaultPaths = GetDefaultConfigPaths()
		}

		for _, configPath := range defaultPaths {
			if _, err := os.Stat(configPath); err == nil {
				fileConfig, err := loadFromFile(configPath)
				if err != nil {
					continue
				}
				mergeConfigs(&config, &fileConfig)
				break // first found config file wins
			}
		}
	}

	envConfig, err := loadFromEnv()
	if err != nil {
		return models.Config{}, err
	}
	mergeConfigs(&config, &envConfig)

	return config, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(configPath string) (models.Config, error) {
	var config models.Config

	data, err := os.ReadFile(configPath) // #nosec G304 -- Reading user-provided config file is expected behavior
	if err != nil {
		return config, fmt.Errorf("failed to read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(configPath))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return config, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		return config, fmt.Errorf("unsupported config file format: %s (only YAML is supported)", ext)
	}

	return config, nil
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv() (models.Config, error) {
	var config models.Config

	// AZPIM_TENANT_ID wins over the generic TENANT_ID used by older scripts
	if val := os.Getenv("AZPIM_TENANT_ID"); val != "" {
		config.TenantID = val
	} else if val := os.Getenv("TENANT_ID"); val != "" {
		config.TenantID = val
	}
	if val := os.Getenv("AZPIM_LOG_LEVEL"); val != "" {
		config.LogLevel = val
	}
	if val := os.Getenv("AZPIM_BASE_URL"); val != "" {
		config.BaseURL = val
	}
	if val := os.Getenv("AZPIM_REASON"); val != "" {
		config.Reason = val
	}
	if val := os.Getenv("AZPIM_ACCESS_TOKEN"); val != "" {
		config.AccessToken = val
	}
	if val := os.Getenv("AZPIM_DURATION"); val != "" {
		minutes, err := strconv.Atoi(val)
		if err != nil {
			return config, fmt.Errorf("invalid AZPIM_DURATION %q: must be a whole number of minutes", val)
		}
		config.DurationMinutes = minutes
	}

	return config, nil
}

// mergeConfigs merges source config into target, only overriding non-zero values
func mergeConfigs(target, source *models.Config) {
	if source.TenantID != "" {
		target.TenantID = source.TenantID
	}
	if source.LogLevel != "" {
		target.LogLevel = source.LogLevel
	}
	if source.BaseURL != "" {
		target.BaseURL = source.BaseURL
	}
	if source.DurationMinutes != 0 {
		target.DurationMinutes = source.DurationMinutes
	}
	if source.Reason != "" {
		target.Reason = source.Reason
	}
	if source.AccessToken != "" {
		target.AccessToken = source.AccessToken
	}
}

// ValidateConfig validates the configuration and returns an error if invalid.
// The tenant is checked by the workflow since `version` and `help` never need it.
func ValidateConfig(config models.Config) error {
	if !validLogLevels[strings.ToLower(config.LogLevel)] {
		return errors.New("invalid log level")
	}

	parsed, err := url.Parse(config.BaseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("invalid base URL %q: must be a valid HTTP or HTTPS URL", config.BaseURL)
	}

	if config.DurationMinutes <= 0 || config.DurationMinutes > models.MaxDurationMinutes {
		return fmt.Errorf("invalid duration %d: must be between 1 and %d minutes", config.DurationMinutes, models.MaxDurationMinutes)
	}

	return nil
}

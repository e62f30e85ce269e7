package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/erauner12/listsync/internal/mailchimp"
)

// Load loads configuration from a file path and applies environment variable overrides.
// An empty path means environment only.
// Validation is deferred to allow CLI flag overrides to be applied first.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		fileConfig, err := loadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = fileConfig
	}

	if err := applyEnvironmentOverrides(cfg); err != nil {
		return nil, err
	}
	deriveBaseURL(cfg)

	// Call cfg.Validate() after applying CLI overrides in the caller
	return cfg, nil
}

// LoadFromEnvironment builds a configuration from defaults and environment only
func LoadFromEnvironment() (*Config, error) {
	return Load("")
}

// loadFromFile loads configuration from a JSON file on top of the defaults
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigFileNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfigFormat, err)
	}
	return cfg, nil
}

// applyEnvironmentOverrides applies configuration from environment variables
func applyEnvironmentOverrides(cfg *Config) error {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.DatabaseURL = url
	}

	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		cfg.HTTPAddr = addr
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if debug := os.Getenv("LISTSYNC_DEBUG"); debug == "true" || debug == "1" {
		cfg.Debug = true
	}

	if devMode := os.Getenv("LISTSYNC_DEV_MODE"); devMode == "true" || devMode == "1" {
		cfg.DevMode = true
	}

	if secret := os.Getenv("JWT_HS256_SECRET"); secret != "" {
		cfg.JWTSecret = secret
	}

	if key := os.Getenv("MAILCHIMP_API_KEY"); key != "" {
		cfg.Mailchimp.APIKey = key
	}

	if baseURL := os.Getenv("MAILCHIMP_BASE_URL"); baseURL != "" {
		cfg.Mailchimp.BaseURL = baseURL
	}

	// Single list shortcut for simple deployments
	if listID := strings.TrimSpace(os.Getenv("MAILCHIMP_LIST_ID")); listID != "" {
		list := ListConfig{ID: listID, Shortcut: strings.TrimSpace(os.Getenv("MAILCHIMP_LIST_SHORTCUT"))}
		replaced := false
		for i, l := range cfg.Lists {
			if l.ID == listID {
				if list.Shortcut == "" {
					list.Shortcut = l.Shortcut
				}
				list.Schedule = l.Schedule
				cfg.Lists[i] = list
				replaced = true
			}
		}
		if !replaced {
			cfg.Lists = append(cfg.Lists, list)
		}
	}

	if maxItems := os.Getenv("LISTSYNC_BATCH_MAX_ITEMS"); maxItems != "" {
		n, err := strconv.Atoi(maxItems)
		if err != nil {
			return fmt.Errorf("LISTSYNC_BATCH_MAX_ITEMS: %w", err)
		}
		cfg.Batch.MaxItems = n
	}

	return nil
}

// deriveBaseURL fills the API root from the key's data center when unset
func deriveBaseURL(cfg *Config) {
	if cfg.Mailchimp.BaseURL != "" || cfg.Mailchimp.APIKey == "" {
		return
	}
	if baseURL, err := mailchimp.BaseURLFromAPIKey(cfg.Mailchimp.APIKey); err == nil {
		cfg.Mailchimp.BaseURL = baseURL
	}
}

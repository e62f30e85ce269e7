package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var envKeys = []string{
	"DATABASE_URL", "HTTP_ADDR", "LOG_LEVEL", "LISTSYNC_DEBUG", "LISTSYNC_DEV_MODE", "JWT_HS256_SECRET",
	"MAILCHIMP_API_KEY", "MAILCHIMP_BASE_URL", "MAILCHIMP_LIST_ID", "MAILCHIMP_LIST_SHORTCUT",
	"LISTSYNC_BATCH_MAX_ITEMS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		checks  func(*testing.T, *Config)
	}{
		{
			name: "single list from env",
			envVars: map[string]string{
				"DATABASE_URL":            "postgres://localhost/listsync",
				"MAILCHIMP_API_KEY":       "abc123-us6",
				"MAILCHIMP_LIST_ID":       "a1b2c3",
				"MAILCHIMP_LIST_SHORTCUT": "news",
			},
			checks: func(t *testing.T, cfg *Config) {
				if cfg.DatabaseURL != "postgres://localhost/listsync" {
					t.Errorf("expected DatabaseURL from env, got %s", cfg.DatabaseURL)
				}
				if cfg.Mailchimp.BaseURL != "https://us6.api.mailchimp.com/3.0" {
					t.Errorf("expected base url derived from key, got %s", cfg.Mailchimp.BaseURL)
				}
				if len(cfg.Lists) != 1 || cfg.Lists[0].ID != "a1b2c3" || cfg.Lists[0].Name() != "news" {
					t.Errorf("unexpected lists %+v", cfg.Lists)
				}
				if err := cfg.Validate(); err != nil {
					t.Errorf("Validate() error = %v", err)
				}
			},
		},
		{
			name:    "default values when no env set",
			envVars: map[string]string{},
			checks: func(t *testing.T, cfg *Config) {
				if cfg.HTTPAddr != ":8080" {
					t.Errorf("expected default HTTPAddr, got %s", cfg.HTTPAddr)
				}
				if cfg.LogLevel != "info" {
					t.Errorf("expected default LogLevel=info, got %s", cfg.LogLevel)
				}
				if cfg.Batch != DefaultBatchConfig() {
					t.Errorf("expected default batch config, got %+v", cfg.Batch)
				}
			},
		},
		{
			name: "explicit base url wins",
			envVars: map[string]string{
				"MAILCHIMP_API_KEY":  "abc123-us6",
				"MAILCHIMP_BASE_URL": "http://localhost:9999/3.0",
				"LISTSYNC_DEBUG":     "1",
			},
			checks: func(t *testing.T, cfg *Config) {
				if cfg.Mailchimp.BaseURL != "http://localhost:9999/3.0" {
					t.Errorf("expected base url from env, got %s", cfg.Mailchimp.BaseURL)
				}
				if !cfg.Debug {
					t.Error("expected Debug=true")
				}
			},
		},
		{
			name:    "invalid batch size",
			envVars: map[string]string{"LISTSYNC_BATCH_MAX_ITEMS": "many"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg, err := LoadFromEnvironment()
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadFromEnvironment() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if err == nil && tt.checks != nil {
				tt.checks(t, cfg)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	testConfigPath := filepath.Join(tmpDir, "listsync.json")
	testConfigJSON := `{
  "databaseUrl": "postgres://file/listsync",
  "debug": true,
  "logLevel": "debug",
  "mailchimp": {"apiKey": "filekey-us21", "requestsPerSecond": 2},
  "lists": [
    {"id": "a1b2c3", "shortcut": "news", "schedule": "*/15 * * * *"},
    {"id": "d4e5f6"}
  ],
  "batch": {"maxItems": 100, "maxCheckIterations": 4}
}`
	if err := os.WriteFile(testConfigPath, []byte(testConfigJSON), 0644); err != nil {
		t.Fatalf("failed to create test config file: %v", err)
	}

	badConfigPath := filepath.Join(tmpDir, "bad.json")
	if err := os.WriteFile(badConfigPath, []byte("{nope"), 0644); err != nil {
		t.Fatalf("failed to create test config file: %v", err)
	}

	tests := []struct {
		name       string
		configPath string
		envVars    map[string]string
		wantErr    error
		checks     func(*testing.T, *Config)
	}{
		{
			name:       "load from file",
			configPath: testConfigPath,
			checks: func(t *testing.T, cfg *Config) {
				if cfg.DatabaseURL != "postgres://file/listsync" {
					t.Errorf("expected DatabaseURL from file, got %s", cfg.DatabaseURL)
				}
				if cfg.Mailchimp.BaseURL != "https://us21.api.mailchimp.com/3.0" {
					t.Errorf("expected derived base url, got %s", cfg.Mailchimp.BaseURL)
				}
				if cfg.Batch.MaxItems != 100 || cfg.Batch.MaxCheckIterations != 4 {
					t.Errorf("expected batch values from file, got %+v", cfg.Batch)
				}
				// Unset batch keys keep their defaults
				if cfg.Batch.InitialCheckIntervalMs != 7500 {
					t.Errorf("expected default initial interval, got %d", cfg.Batch.InitialCheckIntervalMs)
				}
				if l, ok := cfg.List("d4e5f6"); !ok || l.Name() != "d4e5f6" {
					t.Errorf("expected list by id, got %+v", l)
				}
				if l, ok := cfg.List("news"); !ok || l.Schedule != "*/15 * * * *" {
					t.Errorf("expected list by shortcut, got %+v", l)
				}
			},
		},
		{
			name:       "env overrides file",
			configPath: testConfigPath,
			envVars: map[string]string{
				"DATABASE_URL":            "postgres://override/listsync",
				"MAILCHIMP_LIST_ID":       "a1b2c3",
				"MAILCHIMP_LIST_SHORTCUT": "weekly",
			},
			checks: func(t *testing.T, cfg *Config) {
				if cfg.DatabaseURL != "postgres://override/listsync" {
					t.Errorf("expected env to override file DatabaseURL, got %s", cfg.DatabaseURL)
				}
				if len(cfg.Lists) != 2 {
					t.Fatalf("expected env list to replace the file entry, got %+v", cfg.Lists)
				}
				if cfg.Lists[0].Name() != "weekly" || cfg.Lists[0].Schedule != "*/15 * * * *" {
					t.Errorf("unexpected merged list %+v", cfg.Lists[0])
				}
				if !cfg.Debug {
					t.Error("expected Debug=true from file")
				}
			},
		},
		{
			name:       "nonexistent file",
			configPath: "/nonexistent/config.json",
			wantErr:    ErrConfigFileNotFound,
		},
		{
			name:       "invalid json",
			configPath: badConfigPath,
			wantErr:    ErrInvalidConfigFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg, err := Load(tt.configPath)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}

			if tt.checks != nil {
				tt.checks(t, cfg)
			}
		})
	}
}

func TestConfigValidation(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.DatabaseURL = "postgres://localhost/listsync"
		cfg.Mailchimp.APIKey = "abc-us6"
		cfg.Lists = []ListConfig{{ID: "a1b2c3", Shortcut: "news"}}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing database", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: ErrMissingDatabaseURL},
		{name: "missing api key", mutate: func(c *Config) { c.Mailchimp.APIKey = "" }, wantErr: ErrMissingAPIKey},
		{name: "no lists", mutate: func(c *Config) { c.Lists = nil }, wantErr: ErrNoLists},
		{name: "list without id", mutate: func(c *Config) { c.Lists = []ListConfig{{Shortcut: "x"}} }, wantErr: ErrMissingListID},
		{
			name: "duplicate shortcut",
			mutate: func(c *Config) {
				c.Lists = append(c.Lists, ListConfig{ID: "other", Shortcut: "news"})
			},
			wantErr: ErrDuplicateList,
		},
		{name: "bad schedule", mutate: func(c *Config) { c.Lists[0].Schedule = "sometimes" }, wantErr: ErrInvalidSchedule},
		{name: "zero batch size", mutate: func(c *Config) { c.Batch.MaxItems = 0 }, wantErr: ErrInvalidBatchSize},
		{name: "zero check step", mutate: func(c *Config) { c.Batch.CheckStepIntervalMs = 0 }, wantErr: ErrInvalidPollSettings},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil && err != nil {
				t.Errorf("Validate() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBatchConfig_PollConfig(t *testing.T) {
	pc := DefaultBatchConfig().PollConfig()
	if pc.InitialInterval != 7500*time.Millisecond || pc.RecordInterval != 30*time.Millisecond ||
		pc.StepInterval != 500*time.Millisecond || pc.MaxChecks != 10 {
		t.Errorf("unexpected poll config %+v", pc)
	}
}

package config

import (
	"github.com/adhocore/gronx"
	"github.com/erauner12/listsync/internal/batchsync"
	"github.com/erauner12/listsync/internal/syncx"
)

// Config holds all configuration for the sync service and CLI
type Config struct {
	DatabaseURL string          `json:"databaseUrl"`
	HTTPAddr    string          `json:"httpAddr"`
	LogLevel    string          `json:"logLevel"`
	Debug       bool            `json:"debug"`
	DevMode     bool            `json:"devMode"` // enables X-Debug-Sub header fallback on the admin API
	JWTSecret   string          `json:"jwtSecret"`
	Mailchimp   MailchimpConfig `json:"mailchimp"`
	Lists       []ListConfig    `json:"lists"`
	Batch       BatchConfig     `json:"batch"`
}

// MailchimpConfig holds the provider credentials
type MailchimpConfig struct {
	APIKey            string  `json:"apiKey"`
	BaseURL           string  `json:"baseUrl,omitempty"` // derived from the API key when empty
	RequestsPerSecond float64 `json:"requestsPerSecond,omitempty"`
}

// ListConfig describes one remote audience kept in sync
type ListConfig struct {
	ID       string `json:"id"`
	Shortcut string `json:"shortcut,omitempty"`
	Schedule string `json:"schedule,omitempty"` // cron expression, empty = manual only
}

// Name returns the shortcut, falling back to the list id
func (l ListConfig) Name() string {
	if l.Shortcut != "" {
		return l.Shortcut
	}
	return l.ID
}

// BatchConfig sizes a run and tunes the status poller
type BatchConfig struct {
	MaxItems               int `json:"maxItems"`
	InitialCheckIntervalMs int `json:"initialCheckIntervalMs"`
	RecordCheckIntervalMs  int `json:"recordCheckIntervalMs"`
	CheckStepIntervalMs    int `json:"checkStepIntervalMs"`
	MaxCheckIterations     int `json:"maxCheckIterations"`
}

// PollConfig converts the millisecond settings for the poller
func (b BatchConfig) PollConfig() batchsync.PollConfig {
	return batchsync.PollConfig{
		InitialInterval: syncx.Millis(b.InitialCheckIntervalMs),
		RecordInterval:  syncx.Millis(b.RecordCheckIntervalMs),
		StepInterval:    syncx.Millis(b.CheckStepIntervalMs),
		MaxChecks:       b.MaxCheckIterations,
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	if c.Mailchimp.APIKey == "" {
		return ErrMissingAPIKey
	}
	if len(c.Lists) == 0 {
		return ErrNoLists
	}

	gron := gronx.New()
	seen := make(map[string]bool, len(c.Lists))
	for _, l := range c.Lists {
		if l.ID == "" {
			return ErrMissingListID
		}
		if seen[l.Name()] {
			return ErrDuplicateList
		}
		seen[l.Name()] = true
		if l.Schedule != "" && !gron.IsValid(l.Schedule) {
			return ErrInvalidSchedule
		}
	}

	return c.Batch.Validate()
}

// Validate checks the batch limits
func (b BatchConfig) Validate() error {
	if b.MaxItems <= 0 {
		return ErrInvalidBatchSize
	}
	if b.InitialCheckIntervalMs < 0 || b.RecordCheckIntervalMs < 0 || b.CheckStepIntervalMs <= 0 || b.MaxCheckIterations < 0 {
		return ErrInvalidPollSettings
	}
	return nil
}

// List returns the list configured under a shortcut or id
func (c *Config) List(name string) (ListConfig, bool) {
	for _, l := range c.Lists {
		if l.Name() == name || l.ID == name {
			return l, true
		}
	}
	return ListConfig{}, false
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		HTTPAddr: ":8080",
		LogLevel: "info",
		Lists:    []ListConfig{},
		Batch:    DefaultBatchConfig(),
	}
}

// DefaultBatchConfig matches the provider's recommended polling cadence
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxItems:               500,
		InitialCheckIntervalMs: 7500,
		RecordCheckIntervalMs:  30,
		CheckStepIntervalMs:    500,
		MaxCheckIterations:     10,
	}
}

package config

import "errors"

var (
	// ErrMissingDatabaseURL indicates that no database is configured
	ErrMissingDatabaseURL = errors.New("databaseUrl is required in configuration")

	// ErrMissingAPIKey indicates that the Mailchimp API key is not configured
	ErrMissingAPIKey = errors.New("mailchimp.apiKey is required in configuration")

	// ErrNoLists indicates that no list is configured for syncing
	ErrNoLists = errors.New("at least one list must be configured")

	// ErrMissingListID indicates a list entry without an id
	ErrMissingListID = errors.New("every list needs an id")

	// ErrDuplicateList indicates two lists sharing a shortcut
	ErrDuplicateList = errors.New("list shortcuts must be unique")

	// ErrInvalidSchedule indicates a list schedule that is not a cron expression
	ErrInvalidSchedule = errors.New("list schedule must be a valid cron expression")

	// ErrInvalidBatchSize indicates a non-positive batch.maxItems
	ErrInvalidBatchSize = errors.New("batch.maxItems must be positive")

	// ErrInvalidPollSettings indicates negative intervals or a zero check step
	ErrInvalidPollSettings = errors.New("batch check intervals must not be negative and checkStepIntervalMs must be positive")

	// ErrConfigFileNotFound indicates that the config file was not found
	ErrConfigFileNotFound = errors.New("configuration file not found")

	// ErrInvalidConfigFormat indicates that the config file has invalid JSON
	ErrInvalidConfigFormat = errors.New("invalid configuration file format")
)

package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = defaultAPITimeoutSeconds
	}

	if c.Ingest.PollIntervalMS <= 0 {
		c.Ingest.PollIntervalMS = defaultPollIntervalMS
	}
	if c.Ingest.MaxPollFailures <= 0 {
		c.Ingest.MaxPollFailures = defaultMaxPollFailures
	}
	if c.Ingest.MaxActiveJobs <= 0 {
		c.Ingest.MaxActiveJobs = defaultMaxActiveJobs
	}

	if c.Likes.DebounceMS <= 0 {
		c.Likes.DebounceMS = defaultDebounceMS
	}
	if c.Likes.PreloadConcurrency <= 0 {
		c.Likes.PreloadConcurrency = defaultPreloadConcurrency
	}

	if strings.TrimSpace(c.Journal.Path) == "" {
		c.Journal.Path = defaultJournalPath
	}
	var err error
	if c.Journal.Path, err = expandPath(c.Journal.Path); err != nil {
		return fmt.Errorf("journal.path: %w", err)
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}

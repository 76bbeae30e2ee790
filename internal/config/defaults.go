package config

const (
	defaultBaseURL            = "https://api.ladle.recipes"
	defaultAPITimeoutSeconds  = 15
	defaultPollIntervalMS     = 2500
	defaultMaxPollFailures    = 5
	defaultMaxActiveJobs      = 3
	defaultDebounceMS         = 500
	defaultPreloadConcurrency = 4
	defaultJournalPath        = "~/.local/share/ladle/journal.db"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		API: API{
			BaseURL:        defaultBaseURL,
			TimeoutSeconds: defaultAPITimeoutSeconds,
		},
		Ingest: Ingest{
			PollIntervalMS:  defaultPollIntervalMS,
			MaxPollFailures: defaultMaxPollFailures,
			MaxActiveJobs:   defaultMaxActiveJobs,
		},
		Likes: Likes{
			DebounceMS:         defaultDebounceMS,
			PreloadConcurrency: defaultPreloadConcurrency,
		},
		Journal: Journal{
			Enabled: true,
			Path:    defaultJournalPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

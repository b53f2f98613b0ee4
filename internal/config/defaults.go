package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Path:   "~/.config/stepr",
			DBFile: "stepr.db",
		},
		Aggregation: AggregationConfig{
			WindowDays:  30,
			Concurrency: 1,
			Retries:     2,
			Timezone:    "",
		},
		Export: ExportConfig{
			Dir:    "",
			Format: "csv",
		},
		Credentials: CredentialsConfig{
			Encrypted: true,
			KeyFile:   "master.key",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "",
		},
	}
}

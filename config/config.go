// Package config loads arl settings from YAML.
package config

import "time"

// Config represents the complete arl configuration
type Config struct {
	BaseDir string        `yaml:"-"` // Directory containing config file, for resolving relative paths
	Path    string        `yaml:"-"` // Config file that was loaded, empty when running on defaults
	Logging LoggingConfig `yaml:"logging"`
	Output  OutputConfig  `yaml:"output"`
	Index   IndexConfig   `yaml:"index"`
	Watch   WatchConfig   `yaml:"watch"`
	REPL    REPLConfig    `yaml:"repl"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
	Color  string `yaml:"color"`  // auto, always, never
}

// OutputConfig controls how token and tree dumps are printed
type OutputConfig struct {
	Format string `yaml:"format"` // text or json
}

// IndexConfig holds the symbol index database settings
type IndexConfig struct {
	Driver      string `yaml:"driver"`        // sqlite, postgres, mysql
	DSN         string `yaml:"dsn"`           // File path for sqlite, connection string otherwise
	MaxFileSize string `yaml:"max_file_size"` // Larger sources are skipped (e.g. "4MB")
}

// WatchConfig holds file watcher settings
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"` // Quiet period before re-scanning after a change
}

// REPLConfig holds interactive session settings
type REPLConfig struct {
	History string `yaml:"history"` // History file, "" disables history
}

// Defaults returns a Config with sensible defaults
func Defaults() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Color:  "auto",
		},
		Output: OutputConfig{
			Format: "text",
		},
		Index: IndexConfig{
			Driver:      "sqlite",
			DSN:         "./arl-index.db",
			MaxFileSize: "4MB",
		},
		Watch: WatchConfig{
			Debounce: 100 * time.Millisecond,
		},
		REPL: REPLConfig{
			History: "~/.arl_history",
		},
	}
}

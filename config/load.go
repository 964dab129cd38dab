package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable that points at a config file
const EnvConfig = "ARL_CONFIG"

// Load reads configuration from a file with ENV interpolation.
// If configPath is empty, it searches default locations and falls back to
// Defaults() when none exist.
func Load(configPath string, getenv func(string) string) (*Config, error) {
	cfg, _, err := LoadWithPath(configPath, getenv)
	return cfg, err
}

// LoadWithPath reads configuration and returns both the config and the
// resolved path. The path is empty when no file was found.
func LoadWithPath(configPath string, getenv func(string) string) (*Config, string, error) {
	path, err := resolveConfigPath(configPath, getenv)
	if err != nil {
		return nil, "", err
	}

	if path == "" {
		cfg := Defaults()
		if wd, err := os.Getwd(); err == nil {
			cfg.BaseDir = wd
		}
		resolvePaths(cfg, getenv)
		return cfg, "", nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data, getenv)
	if err != nil {
		return nil, "", err
	}
	cfg.Path = absPath
	cfg.BaseDir = filepath.Dir(absPath)
	resolvePaths(cfg, getenv)

	if err := Validate(cfg); err != nil {
		return nil, "", err
	}

	return cfg, absPath, nil
}

// Parse decodes YAML on top of Defaults() after interpolating ${VAR}
// references. Paths are left as written.
func Parse(data []byte, getenv func(string) string) (*Config, error) {
	data = interpolateEnv(data, getenv)

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// resolvePaths makes file paths absolute against BaseDir and expands ~.
func resolvePaths(cfg *Config, getenv func(string) string) {
	if cfg.Index.Driver == "sqlite" && isFilePath(cfg.Index.DSN) {
		cfg.Index.DSN = resolvePath(cfg.BaseDir, cfg.Index.DSN, getenv)
	}
	if cfg.REPL.History != "" {
		cfg.REPL.History = resolvePath(cfg.BaseDir, cfg.REPL.History, getenv)
	}
}

// isFilePath reports whether a sqlite DSN names a file on disk
func isFilePath(dsn string) bool {
	return dsn != "" && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:")
}

func resolvePath(baseDir, path string, getenv func(string) string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home := getenv("HOME")
		if home == "" {
			home, _ = os.UserHomeDir()
		}
		if home != "" {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	if filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}

// Warnings returns non-fatal configuration issues that should be reported
// to the user.
func Warnings(cfg *Config) []string {
	var warnings []string

	if cfg.Index.Driver == "sqlite" && cfg.Index.DSN == ":memory:" {
		warnings = append(warnings, "index.dsn is :memory: - the index is discarded when arl exits")
	}
	if cfg.Watch.Debounce == 0 {
		warnings = append(warnings, "watch.debounce is 0 - every write event triggers a re-scan")
	}
	if cfg.Output.Format == "json" && cfg.Logging.Format == "text" && cfg.Logging.Level == "debug" {
		warnings = append(warnings, "debug text logs go to stderr and will interleave with JSON output on a terminal")
	}

	return warnings
}

// resolveConfigPath finds the config file to use.
// Search order: explicit path > ARL_CONFIG env > ./arl.yaml > ~/.config/arl/arl.yaml
// An empty result with a nil error means no file exists.
func resolveConfigPath(explicit string, getenv func(string) string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	if envPath := getenv(EnvConfig); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("%s file not found: %s", EnvConfig, envPath)
		}
		return envPath, nil
	}

	if _, err := os.Stat("arl.yaml"); err == nil {
		return "arl.yaml", nil
	}

	home := getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	if home != "" {
		xdgPath := filepath.Join(home, ".config", "arl", "arl.yaml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath, nil
		}
	}

	return "", nil
}

// envPattern matches ${VAR} or ${VAR:-default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// interpolateEnv replaces ${VAR} and ${VAR:-default} patterns with environment values.
func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := string(parts[1])
		value := getenv(varName)

		if value == "" && len(parts) >= 3 && len(parts[2]) > 0 {
			value = string(parts[2])
		}

		return []byte(value)
	})
}

// Validate checks the configuration for errors, reporting all of them at once.
func Validate(cfg *Config) error {
	var errs []string

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", cfg.Logging.Level))
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be json or text)", cfg.Logging.Format))
	}
	if !validFormats[cfg.Output.Format] {
		errs = append(errs, fmt.Sprintf("invalid output format: %s (must be json or text)", cfg.Output.Format))
	}

	validColors := map[string]bool{"auto": true, "always": true, "never": true}
	if !validColors[cfg.Logging.Color] {
		errs = append(errs, fmt.Sprintf("invalid log color: %s (must be auto, always, or never)", cfg.Logging.Color))
	}

	validDrivers := map[string]bool{"sqlite": true, "postgres": true, "mysql": true}
	if !validDrivers[cfg.Index.Driver] {
		errs = append(errs, fmt.Sprintf("invalid index driver: %s (must be sqlite, postgres, or mysql)", cfg.Index.Driver))
	}
	if cfg.Index.DSN == "" {
		errs = append(errs, "index.dsn is required")
	}
	if _, err := ParseSize(cfg.Index.MaxFileSize); err != nil {
		errs = append(errs, fmt.Sprintf("index.max_file_size: %v", err))
	}

	if cfg.Watch.Debounce < 0 {
		errs = append(errs, fmt.Sprintf("invalid watch.debounce: %s (must not be negative)", cfg.Watch.Debounce))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// ParseSize parses a size string like "10MB", "1GB", "500KB" to bytes.
// Supports: B, KB, MB, GB (case insensitive).
// Returns 0 for empty string.
func ParseSize(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}

	s = strings.TrimSpace(strings.ToUpper(s))

	// Longest suffix first so "B" does not match before "MB"
	suffixes := []struct {
		suffix string
		mult   int64
	}{
		{"GB", 1024 * 1024 * 1024},
		{"MB", 1024 * 1024},
		{"KB", 1024},
		{"B", 1},
	}

	for _, sf := range suffixes {
		if strings.HasSuffix(s, sf.suffix) {
			numStr := strings.TrimSpace(strings.TrimSuffix(s, sf.suffix))
			var num int64
			if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil {
				return 0, fmt.Errorf("invalid size number: %s", numStr)
			}
			return num * sf.mult, nil
		}
	}

	var num int64
	if _, err := fmt.Sscanf(s, "%d", &num); err != nil {
		return 0, fmt.Errorf("invalid size format: %s (use B, KB, MB, or GB suffix)", s)
	}
	return num, nil
}

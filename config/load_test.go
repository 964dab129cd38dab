package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level 'info', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Index.Driver != "sqlite" || cfg.Index.DSN != "./arl-index.db" {
		t.Errorf("unexpected index defaults: %+v", cfg.Index)
	}
	if cfg.Watch.Debounce != 100*time.Millisecond {
		t.Errorf("expected 100ms debounce, got %s", cfg.Watch.Debounce)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestInterpolateEnv(t *testing.T) {
	getenv := envMap(map[string]string{
		"TEST_DB":   "/var/arl.db",
		"TEST_HOST": "db.example.com",
	})

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple substitution",
			input:    "dsn: ${TEST_DB}",
			expected: "dsn: /var/arl.db",
		},
		{
			name:     "with default (env set)",
			input:    "dsn: ${TEST_DB:-./arl.db}",
			expected: "dsn: /var/arl.db",
		},
		{
			name:     "with default (env not set)",
			input:    "dsn: ${UNSET_VAR:-./arl.db}",
			expected: "dsn: ./arl.db",
		},
		{
			name:     "multiple substitutions",
			input:    "dsn: postgres://${TEST_HOST}/${UNSET_VAR:-arl}",
			expected: "dsn: postgres://db.example.com/arl",
		},
		{
			name:     "unset without default",
			input:    "dsn: ${UNSET_VAR}",
			expected: "dsn: ",
		},
		{
			name:     "no variables",
			input:    "level: debug",
			expected: "level: debug",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := string(interpolateEnv([]byte(tt.input), getenv))
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "arl.yaml")

	configContent := `
logging:
  level: debug
  format: json
  color: never

output:
  format: json

index:
  driver: sqlite
  dsn: ./data/index.db

watch:
  debounce: 250ms

repl:
  history: ""
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, path, err := LoadWithPath(configPath, envMap(nil))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if path != configPath || cfg.Path != configPath {
		t.Errorf("expected path %q, got %q / %q", configPath, path, cfg.Path)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" || cfg.Logging.Color != "never" {
		t.Errorf("unexpected logging config: %+v", cfg.Logging)
	}
	if cfg.Output.Format != "json" {
		t.Errorf("expected json output, got %q", cfg.Output.Format)
	}
	if want := filepath.Join(dir, "data", "index.db"); cfg.Index.DSN != want {
		t.Errorf("expected dsn %q, got %q", want, cfg.Index.DSN)
	}
	if cfg.Watch.Debounce != 250*time.Millisecond {
		t.Errorf("expected 250ms debounce, got %s", cfg.Watch.Debounce)
	}
	if cfg.REPL.History != "" {
		t.Errorf("expected history disabled, got %q", cfg.REPL.History)
	}
	if cfg.Index.MaxFileSize != "4MB" {
		t.Errorf("unset keys should keep defaults, got max_file_size %q", cfg.Index.MaxFileSize)
	}
}

func TestLoadWithEnvInterpolation(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "arl.yaml")

	configContent := `
index:
  driver: ${ARL_DRIVER:-sqlite}
  dsn: ${ARL_DSN}
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath, envMap(map[string]string{
		"ARL_DRIVER": "postgres",
		"ARL_DSN":    "postgres://localhost/arl?sslmode=disable",
	}))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Index.Driver != "postgres" {
		t.Errorf("expected driver 'postgres', got %q", cfg.Index.Driver)
	}
	if cfg.Index.DSN != "postgres://localhost/arl?sslmode=disable" {
		t.Errorf("non-sqlite DSN should not be resolved as a path, got %q", cfg.Index.DSN)
	}
}

func TestLoadFromEnvVar(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "elsewhere.yaml")
	if err := os.WriteFile(configPath, []byte("logging:\n  level: warn\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("", envMap(map[string]string{EnvConfig: configPath}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected warn, got %q", cfg.Logging.Level)
	}

	if _, err := Load("", envMap(map[string]string{EnvConfig: filepath.Join(dir, "missing.yaml")})); err == nil {
		t.Error("expected error for missing ARL_CONFIG file")
	}
}

func TestLoadFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, path, err := LoadWithPath("", envMap(map[string]string{"HOME": dir}))
	if err != nil {
		t.Fatal(err)
	}
	if path != "" || cfg.Path != "" {
		t.Errorf("expected no config path, got %q", path)
	}
	if want := filepath.Join(cfg.BaseDir, "arl-index.db"); cfg.Index.DSN != want {
		t.Errorf("expected dsn %q, got %q", want, cfg.Index.DSN)
	}
	if want := filepath.Join(dir, ".arl_history"); cfg.REPL.History != want {
		t.Errorf("expected history %q, got %q", want, cfg.REPL.History)
	}
}

func TestLoadXDGPath(t *testing.T) {
	home := t.TempDir()
	t.Chdir(t.TempDir())

	xdg := filepath.Join(home, ".config", "arl")
	if err := os.MkdirAll(xdg, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(xdg, "arl.yaml"), []byte("output:\n  format: json\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("", envMap(map[string]string{"HOME": home}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Output.Format != "json" {
		t.Errorf("expected XDG config to be loaded, got %+v", cfg.Output)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name      string
		config    string
		expectErr bool
		errSubstr string
	}{
		{
			name:      "valid minimal config",
			config:    "logging:\n  level: info\n",
			expectErr: false,
		},
		{
			name:      "invalid log level",
			config:    "logging:\n  level: verbose\n",
			expectErr: true,
			errSubstr: "invalid log level",
		},
		{
			name:      "invalid log format",
			config:    "logging:\n  format: xml\n",
			expectErr: true,
			errSubstr: "invalid log format",
		},
		{
			name:      "invalid color",
			config:    "logging:\n  color: rainbow\n",
			expectErr: true,
			errSubstr: "invalid log color",
		},
		{
			name:      "invalid output format",
			config:    "output:\n  format: yaml\n",
			expectErr: true,
			errSubstr: "invalid output format",
		},
		{
			name:      "invalid driver",
			config:    "index:\n  driver: oracle\n",
			expectErr: true,
			errSubstr: "invalid index driver",
		},
		{
			name:      "empty dsn",
			config:    "index:\n  dsn: \"\"\n",
			expectErr: true,
			errSubstr: "index.dsn is required",
		},
		{
			name:      "bad size",
			config:    "index:\n  max_file_size: lots\n",
			expectErr: true,
			errSubstr: "max_file_size",
		},
		{
			name:      "negative debounce",
			config:    "watch:\n  debounce: -1s\n",
			expectErr: true,
			errSubstr: "invalid watch.debounce",
		},
		{
			name:      "several errors at once",
			config:    "logging:\n  level: loud\n  format: xml\n",
			expectErr: true,
			errSubstr: "invalid log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			configPath := filepath.Join(dir, "arl.yaml")
			if err := os.WriteFile(configPath, []byte(tt.config), 0644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}

			_, err := Load(configPath, envMap(nil))
			if tt.expectErr {
				if err == nil {
					t.Error("expected error, got nil")
				} else if !strings.Contains(err.Error(), tt.errSubstr) {
					t.Errorf("expected error containing %q, got %q", tt.errSubstr, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse([]byte("logging: [unclosed"), envMap(nil)); err == nil {
		t.Error("expected YAML error")
	}
	if _, err := Parse([]byte("watch:\n  debounce: soon\n"), envMap(nil)); err == nil {
		t.Error("expected duration error")
	}
}

func TestResolveConfigPath(t *testing.T) {
	_, err := resolveConfigPath("/nonexistent/path/arl.yaml", envMap(nil))
	if err == nil {
		t.Error("expected error for nonexistent path")
	}

	dir := t.TempDir()
	configPath := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(configPath, []byte(""), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	resolved, err := resolveConfigPath(configPath, envMap(nil))
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if resolved != configPath {
		t.Errorf("expected %q, got %q", configPath, resolved)
	}
}

func TestWarnings(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		wantWarn string
	}{
		{
			name:     "defaults",
			mutate:   func(*Config) {},
			wantWarn: "",
		},
		{
			name:     "memory index",
			mutate:   func(c *Config) { c.Index.DSN = ":memory:" },
			wantWarn: "discarded",
		},
		{
			name:     "zero debounce",
			mutate:   func(c *Config) { c.Watch.Debounce = 0 },
			wantWarn: "every write event",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			warnings := Warnings(cfg)
			if tt.wantWarn == "" {
				if len(warnings) > 0 {
					t.Errorf("expected no warnings, got %v", warnings)
				}
				return
			}
			found := false
			for _, w := range warnings {
				if strings.Contains(w, tt.wantWarn) {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("expected warning containing %q, got %v", tt.wantWarn, warnings)
			}
		})
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
		wantErr  bool
	}{
		{"", 0, false},
		{"100", 100, false},
		{"100B", 100, false},
		{"10KB", 10 * 1024, false},
		{"4MB", 4 * 1024 * 1024, false},
		{"1gb", 1024 * 1024 * 1024, false},
		{" 2 MB ", 2 * 1024 * 1024, false},
		{"lots", 0, true},
		{"xMB", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSize(%q) error = %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("ParseSize(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, defaults, and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_ValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  http_addr: "0.0.0.0:3000"

database:
  path: "./gateway.db"

transport:
  matrix:
    homeserver: "https://matrix.org"
    user_id: "@bot:matrix.org"
    access_token: "matrix-token"
    server_name: "matrix.org"

dedupe:
  ttl: "10m"
  max_size: 5000

logging:
  level: "debug"
  format: "json"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:3000" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "0.0.0.0:3000")
	}
	if cfg.Database.Path != "./gateway.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./gateway.db")
	}
	if cfg.Transport.Matrix.Homeserver != "https://matrix.org" {
		t.Errorf("Transport.Matrix.Homeserver = %q, want %q", cfg.Transport.Matrix.Homeserver, "https://matrix.org")
	}
	if cfg.Transport.Matrix.UserID != "@bot:matrix.org" {
		t.Errorf("Transport.Matrix.UserID = %q, want %q", cfg.Transport.Matrix.UserID, "@bot:matrix.org")
	}
	if cfg.Transport.Matrix.ServerName != "matrix.org" {
		t.Errorf("Transport.Matrix.ServerName = %q, want %q", cfg.Transport.Matrix.ServerName, "matrix.org")
	}
	if cfg.Dedupe.TTL != 10*time.Minute {
		t.Errorf("Dedupe.TTL = %v, want %v", cfg.Dedupe.TTL, 10*time.Minute)
	}
	if cfg.Dedupe.MaxSize != 5000 {
		t.Errorf("Dedupe.MaxSize = %d, want 5000", cfg.Dedupe.MaxSize)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoad_Defaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
transport:
  matrix:
    homeserver: "https://matrix.org"
    user_id: "@bot:matrix.org"
    access_token: "matrix-token"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != defaultHTTPAddr {
		t.Errorf("Server.HTTPAddr = %q, want default %q", cfg.Server.HTTPAddr, defaultHTTPAddr)
	}
	if cfg.Dedupe.TTL != defaultDedupeTTL {
		t.Errorf("Dedupe.TTL = %v, want default %v", cfg.Dedupe.TTL, defaultDedupeTTL)
	}
	if cfg.Dedupe.MaxSize != defaultDedupeMaxSize {
		t.Errorf("Dedupe.MaxSize = %d, want default %d", cfg.Dedupe.MaxSize, defaultDedupeMaxSize)
	}
	if cfg.Database.Path != "" {
		t.Errorf("Database.Path = %q, want empty (in-memory ledger)", cfg.Database.Path)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_MATRIX_TOKEN", "matrix-from-env")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
transport:
  matrix:
    homeserver: "https://matrix.org"
    user_id: "@bot:matrix.org"
    access_token: "${TEST_MATRIX_TOKEN}"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Transport.Matrix.AccessToken != "matrix-from-env" {
		t.Errorf("Transport.Matrix.AccessToken = %q, want %q", cfg.Transport.Matrix.AccessToken, "matrix-from-env")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  http_addr "missing colon"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err = Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
transport:
  matrix:
    homeserver: "https://matrix.org"
    user_id: "@bot:matrix.org"
    access_token: "token"

dedupe:
  ttl: "invalid-duration"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err = Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid duration, got nil")
	}
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name          string
		configContent string
		wantErrSubstr string
	}{
		{
			name: "missing homeserver",
			configContent: `
transport:
  matrix:
    user_id: "@bot:matrix.org"
    access_token: "token"
`,
			wantErrSubstr: "transport.matrix.homeserver is required",
		},
		{
			name: "missing user_id",
			configContent: `
transport:
  matrix:
    homeserver: "https://matrix.org"
    access_token: "token"
`,
			wantErrSubstr: "transport.matrix.user_id is required",
		},
		{
			name: "missing access_token",
			configContent: `
transport:
  matrix:
    homeserver: "https://matrix.org"
    user_id: "@bot:matrix.org"
`,
			wantErrSubstr: "transport.matrix.access_token is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, "config.yaml")

			err := os.WriteFile(configPath, []byte(tt.configContent), 0644)
			if err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}

			_, err = Load(configPath)
			if err == nil {
				t.Errorf("Load() expected error containing %q, got nil", tt.wantErrSubstr)
				return
			}

			if !strings.Contains(err.Error(), tt.wantErrSubstr) {
				t.Errorf("Load() error = %q, want error containing %q", err.Error(), tt.wantErrSubstr)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("FOO", "bar")
	t.Setenv("BAZ", "qux")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "single env var",
			input:    "${FOO}",
			expected: "bar",
		},
		{
			name:     "env var with surrounding text",
			input:    "prefix-${FOO}-suffix",
			expected: "prefix-bar-suffix",
		},
		{
			name:     "multiple env vars",
			input:    "${FOO}/${BAZ}",
			expected: "bar/qux",
		},
		{
			name:     "no env vars",
			input:    "no-vars-here",
			expected: "no-vars-here",
		},
		{
			name:     "unset env var",
			input:    "${UNSET_VAR}",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandEnvVars(tt.input)
			if result != tt.expected {
				t.Errorf("expandEnvVars(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

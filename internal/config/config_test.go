package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"confluence-mcp/internal/confluence"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		configData  string
		expectError bool
		errorMsg    string
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name: "full config",
			configData: `
confluence:
  base_url: "https://example.atlassian.net"
  email: "test@example.com"
  timeout: 45s
server:
  transport: http
  addr: ":9000"
log:
  verbose: true
`,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Confluence.BaseURL != "https://example.atlassian.net" {
					t.Errorf("Expected base URL from file, got %s", cfg.Confluence.BaseURL)
				}
				if cfg.Confluence.Email != "test@example.com" {
					t.Errorf("Expected email from file, got %s", cfg.Confluence.Email)
				}
				if cfg.Confluence.Timeout != 45*time.Second {
					t.Errorf("Expected 45s timeout, got %s", cfg.Confluence.Timeout)
				}
				if cfg.Server.Transport != TransportHTTP || cfg.Server.Addr != ":9000" {
					t.Errorf("unexpected server config %+v", cfg.Server)
				}
				if !cfg.Log.Verbose {
					t.Error("Expected verbose logging")
				}
			},
		},
		{
			name: "partial config keeps defaults",
			configData: `
confluence:
  email: "test@example.com"
`,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Confluence.BaseURL != confluence.DefaultBaseURL {
					t.Errorf("Expected default base URL, got %s", cfg.Confluence.BaseURL)
				}
				if cfg.Confluence.Timeout != confluence.DefaultTimeout {
					t.Errorf("Expected default timeout, got %s", cfg.Confluence.Timeout)
				}
				if cfg.Server.Transport != TransportStdio || cfg.Server.Addr != DefaultAddr {
					t.Errorf("unexpected server defaults %+v", cfg.Server)
				}
			},
		},
		{
			name: "token in file is ignored",
			configData: `
confluence:
  email: "test@example.com"
  api_token: "from-file"
`,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Confluence.APIToken != "" {
					t.Errorf("API token must not be read from the config file, got %q", cfg.Confluence.APIToken)
				}
			},
		},
		{
			name: "invalid yaml",
			configData: `
confluence:
  base_url: "https://example.atlassian.net"
  email: [invalid
`,
			expectError: true,
			errorMsg:    "failed to parse config",
		},
		{
			name: "invalid timeout",
			configData: `
confluence:
  timeout: soon
`,
			expectError: true,
			errorMsg:    "failed to parse config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, "config.yaml")

			if err := os.WriteFile(configPath, []byte(tt.configData), 0600); err != nil {
				t.Fatalf("Failed to write test config: %v", err)
			}

			cfg, err := Load(configPath)

			if tt.expectError {
				if err == nil {
					t.Fatalf("Expected error but got none")
				}
				if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error containing '%s', got '%s'", tt.errorMsg, err.Error())
				}
				if !confluence.IsKind(err, confluence.KindConfig) {
					t.Errorf("Expected ConfigError, got %s", confluence.KindOf(err))
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Expected defaults for missing file, got error: %v", err)
	}
	if cfg.Confluence.BaseURL != confluence.DefaultBaseURL {
		t.Errorf("Expected default base URL, got %s", cfg.Confluence.BaseURL)
	}
}

func TestLoadUnreadable(t *testing.T) {
	// A directory cannot be read as a file.
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("Expected error reading a directory")
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		EnvEmail:    " me@example.com ",
		EnvAPIToken: "secret-token",
		EnvBaseURL:  "https://other.atlassian.net",
		EnvTimeout:  "5",
	}))
	if err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if cfg.Confluence.Email != "me@example.com" {
		t.Errorf("Expected trimmed email, got %q", cfg.Confluence.Email)
	}
	if cfg.Confluence.APIToken != "secret-token" {
		t.Errorf("Expected token from env, got %q", cfg.Confluence.APIToken)
	}
	if cfg.Confluence.BaseURL != "https://other.atlassian.net" {
		t.Errorf("Expected base URL from env, got %s", cfg.Confluence.BaseURL)
	}
	if cfg.Confluence.Timeout != 5*time.Second {
		t.Errorf("Expected 5s timeout, got %s", cfg.Confluence.Timeout)
	}
}

func TestApplyEnvOverridesFile(t *testing.T) {
	cfg := Default()
	cfg.Confluence.Email = "file@example.com"
	if err := cfg.ApplyEnv(envMap(map[string]string{EnvEmail: "env@example.com", EnvBaseURL: "  "})); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if cfg.Confluence.Email != "env@example.com" {
		t.Errorf("Expected env to win, got %s", cfg.Confluence.Email)
	}
	if cfg.Confluence.BaseURL != confluence.DefaultBaseURL {
		t.Errorf("blank env value should be ignored, got %s", cfg.Confluence.BaseURL)
	}
}

func TestApplyEnvTimeoutFormats(t *testing.T) {
	tests := []struct {
		value   string
		want    time.Duration
		wantErr bool
	}{
		{"30s", 30 * time.Second, false},
		{"1m", time.Minute, false},
		{"2.5", 2500 * time.Millisecond, false},
		{"later", 0, true},
		{"30abc", 0, true},
		{"10 s", 0, true},
		{"NaN", 0, true},
		{"Inf", 0, true},
	}
	for _, tt := range tests {
		cfg := Default()
		err := cfg.ApplyEnv(envMap(map[string]string{EnvTimeout: tt.value}))
		if (err != nil) != tt.wantErr {
			t.Errorf("timeout %q: error = %v, wantErr %v", tt.value, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && cfg.Confluence.Timeout != tt.want {
			t.Errorf("timeout %q: got %s, want %s", tt.value, cfg.Confluence.Timeout, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		missingCred bool
		errorMsg    string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{
			name:        "missing email",
			mutate:      func(c *Config) { c.Confluence.Email = "" },
			missingCred: true,
			errorMsg:    EnvEmail,
		},
		{
			name:        "missing token",
			mutate:      func(c *Config) { c.Confluence.APIToken = "" },
			missingCred: true,
			errorMsg:    EnvAPIToken,
		},
		{
			name:     "bad transport",
			mutate:   func(c *Config) { c.Server.Transport = "grpc" },
			errorMsg: "server.transport",
		},
		{
			name:     "zero timeout",
			mutate:   func(c *Config) { c.Confluence.Timeout = 0 },
			errorMsg: "timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Confluence.Email = "me@example.com"
			cfg.Confluence.APIToken = "token"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.errorMsg == "" {
				if err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Expected error but got none")
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("Expected error containing '%s', got '%s'", tt.errorMsg, err.Error())
			}
			if errors.Is(err, ErrMissingCredentials) != tt.missingCred {
				t.Errorf("errors.Is(ErrMissingCredentials) = %v, want %v", !tt.missingCred, tt.missingCred)
			}
			if !confluence.IsKind(err, confluence.KindConfig) {
				t.Errorf("Expected ConfigError, got %s", confluence.KindOf(err))
			}
		})
	}
}

func TestTokenNeverExposed(t *testing.T) {
	cfg := Default()
	cfg.Confluence.Email = "me@example.com"
	cfg.Confluence.APIToken = "super-secret"

	if s := cfg.String(); strings.Contains(s, "super-secret") {
		t.Errorf("String() leaked the token: %s", s)
	}
	if s := cfg.Credentials().String(); strings.Contains(s, "super-secret") {
		t.Errorf("Credentials().String() leaked the token: %s", s)
	}

	data, err := cfg.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(data), "super-secret") {
		t.Errorf("YAML output contains the token:\n%s", data)
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if reloaded.Confluence.Email != "me@example.com" || reloaded.Confluence.APIToken != "" {
		t.Errorf("unexpected round trip %s", reloaded)
	}
	if reloaded.Confluence.Timeout != cfg.Confluence.Timeout {
		t.Errorf("timeout changed across save: %s", reloaded.Confluence.Timeout)
	}
}

func TestCredentials(t *testing.T) {
	cfg := Default()
	cfg.Confluence.Email = "me@example.com"
	cfg.Confluence.APIToken = "token"

	auth := cfg.Credentials()
	if auth.Email != "me@example.com" || auth.Token != "token" {
		t.Errorf("unexpected credentials %+v", auth)
	}
}

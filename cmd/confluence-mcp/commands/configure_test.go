package commands

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"confluence-mcp/internal/config"
)

// Test non-interactive configure usage with --set and --print
func TestConfigureNonInteractivePrint(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	args := []string{"configure",
		"--config", cfgPath,
		"--non-interactive",
		"--yes",
		"--print",
		"--set", "confluence.base_url=https://example.atlassian.net",
		"--set", "confluence.email=user@example.com",
		"--set", "confluence.timeout=10s",
		"--set", "server.transport=http",
		"--set", "log.verbose=true",
	}
	out, _, err := runCmdForTest(t, args)
	if err != nil {
		t.Fatalf("configure command error: %v", err)
	}
	if _, statErr := os.Stat(cfgPath); !os.IsNotExist(statErr) {
		t.Fatalf("print mode must not write %s", cfgPath)
	}
	mustContain := []string{
		"confluence:",
		"base_url: https://example.atlassian.net",
		"email: user@example.com",
		"timeout: 10s",
		"transport: http",
		"verbose: true",
	}
	for _, m := range mustContain {
		if !strings.Contains(out, m) {
			t.Fatalf("expected output to contain %q. Full output: %s", m, out)
		}
	}
	if strings.Contains(out, "Configuration saved") {
		t.Fatalf("did not expect save confirmation in print mode: %s", out)
	}
}

// Test that running configure without --print writes the file
func TestConfigureWritesFile(t *testing.T) {
	t.Setenv(config.EnvAPIToken, "never-written")
	cfgPath := filepath.Join(t.TempDir(), "nested", "config.yaml")
	args := []string{"configure",
		"--config", cfgPath,
		"--non-interactive",
		"--yes",
		"--set", "confluence.email=user@example.com",
		"--set", "server.addr=127.0.0.1:9000",
	}
	out, _, err := runCmdForTest(t, args)
	if err != nil {
		t.Fatalf("configure command error: %v", err)
	}
	if !strings.Contains(out, "Configuration saved") {
		t.Errorf("expected save confirmation, got %s", out)
	}
	data, readErr := os.ReadFile(cfgPath)
	if readErr != nil {
		t.Fatalf("expected config file written: %v", readErr)
	}
	content := string(data)
	if !strings.Contains(content, "email: user@example.com") || !strings.Contains(content, "addr: 127.0.0.1:9000") {
		t.Fatalf("written config missing expected fields: %s", content)
	}
	if strings.Contains(content, "never-written") || strings.Contains(content, "api_token") {
		t.Fatalf("token leaked into config file: %s", content)
	}

	// A second run edits the existing file instead of starting over.
	args = []string{"configure", "--config", cfgPath, "--non-interactive", "--yes", "--set", "log.verbose=true"}
	if _, _, err := runCmdForTest(t, args); err != nil {
		t.Fatalf("configure command error: %v", err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if cfg.Confluence.Email != "user@example.com" || !cfg.Log.Verbose {
		t.Errorf("expected both runs to be kept, got %s", cfg)
	}
}

func TestConfigureRejectsToken(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	args := []string{"configure", "--config", cfgPath, "--non-interactive", "--yes", "--set", "confluence.api_token=tok"}
	_, _, err := runCmdForTest(t, args)
	if !errors.Is(err, errTokenNotStored) {
		t.Fatalf("expected token rejection, got: %v", err)
	}
}

// Test invalid --set key returns an error
func TestConfigureInvalidSetKey(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	args := []string{"configure",
		"--config", cfgPath,
		"--non-interactive",
		"--yes",
		"--set", "confluence.unknown_field=value",
	}
	_, _, err := runCmdForTest(t, args)
	if err == nil || !strings.Contains(err.Error(), "unsupported key") {
		t.Fatalf("expected unsupported key error, got: %v", err)
	}
}

func TestConfigureInvalidValues(t *testing.T) {
	tests := []struct {
		set      string
		errorMsg string
	}{
		{"server.transport=grpc", "validation failed"},
		{"confluence.timeout=soon", "set confluence.timeout"},
		{"log.verbose=loud", "set log.verbose"},
		{"confluence.email", "expected key=value"},
	}
	for _, tt := range tests {
		t.Run(tt.set, func(t *testing.T) {
			cfgPath := filepath.Join(t.TempDir(), "config.yaml")
			args := []string{"configure", "--config", cfgPath, "--non-interactive", "--yes", "--set", tt.set}
			_, _, err := runCmdForTest(t, args)
			if err == nil || !strings.Contains(err.Error(), tt.errorMsg) {
				t.Fatalf("expected error containing %q, got: %v", tt.errorMsg, err)
			}
		})
	}
}

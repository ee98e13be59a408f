package commands

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"confluence-mcp/internal/config"
	"confluence-mcp/internal/confluence"
	"confluence-mcp/pkg/logger"
)

// runCmdForTest executes rootCmd with args and captures its output.
func runCmdForTest(t *testing.T, args []string) (stdout string, stderr string, err error) {
	t.Helper()
	resetCommandState(t)
	// Cobra uses the same rootCmd singleton; replace its output writers
	outBuf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	rootCmd.SetOut(outBuf)
	rootCmd.SetErr(errBuf)
	rootCmd.SetArgs(args)
	err = rootCmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

// resetCommandState clears flag values left over from a previous Execute.
func resetCommandState(t *testing.T) {
	t.Helper()
	configFile = filepath.Join(t.TempDir(), "config.yaml")
	verbose = false
	serveTransport, serveAddr = "", ""
	callBodyFile = ""
	toolsJSON = false
	configureYes, configurePrint, configureNonInteractive = false, false, false
	shortVersion = false

	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		}
		f.Changed = false
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(reset)
	}
}

// withCredentials sets the credential environment for one test.
func withCredentials(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvEmail, "me@example.com")
	t.Setenv(config.EnvAPIToken, "test-token")
}

// withMockClient makes every command use mock instead of a real client.
func withMockClient(t *testing.T, mock *confluence.MockClient) {
	t.Helper()
	orig := newConfluenceClient
	t.Cleanup(func() { newConfluenceClient = orig })
	newConfluenceClient = func(cfg *config.Config, log *logger.Logger) confluence.ConfluenceClient {
		return mock
	}
}

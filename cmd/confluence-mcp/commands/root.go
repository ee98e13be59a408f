package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"confluence-mcp/internal/config"
	"confluence-mcp/pkg/logger"
)

var (
	configFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "confluence-mcp",
	Short: "MCP server for Confluence Cloud",
	Long: `confluence-mcp exposes Confluence Cloud spaces, pages and CQL search to
MCP hosts as tools. Running it without a subcommand starts the server on stdio.

Credentials are read from the environment:
  CONFLUENCE_EMAIL       Atlassian account email (required)
  CONFLUENCE_API_TOKEN   Atlassian API token (required)
  CONFLUENCE_BASE_URL    Site URL (optional)
  CONFLUENCE_TIMEOUT     Request timeout, e.g. 30s (optional)`,
	Example: `  confluence-mcp                                   # Serve on stdio
  confluence-mcp serve --transport http --addr :8000
  confluence-mcp call confluence_get_space_by_key --arg key=TEAM
  confluence-mcp tools`,
	SilenceUsage: true,
	RunE:         runServe,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags available to all subcommands
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// loadConfig reads the config file and environment and checks credentials.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFromEnv(configFile)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Log.Verbose = true
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *logger.Logger {
	return logger.New(cfg.Log.Verbose)
}

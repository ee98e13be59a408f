package commands

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"confluence-mcp/internal/config"
	"confluence-mcp/internal/tools"
	"confluence-mcp/pkg/logger"
	"confluence-mcp/pkg/version"
)

var (
	serveTransport string
	serveAddr      string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server",
	Long: `Run the MCP server until the host disconnects.

The stdio transport speaks JSON-RPC over stdin/stdout; diagnostics go to stderr.
The http transport serves the streamable HTTP endpoint at --addr.`,
	Example: `  confluence-mcp serve
  confluence-mcp serve --transport http --addr 127.0.0.1:8000 -v`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveTransport, "transport", "", "transport to serve on: stdio or http (default from config, stdio)")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address for the http transport (default from config, :8000)")
}

// startServer runs s on the configured transport and blocks until it stops.
var startServer = func(s *server.MCPServer, cfg *config.Config, log *logger.Logger) error {
	switch cfg.Server.Transport {
	case config.TransportHTTP:
		log.Info("Listening on %s", cfg.Server.Addr)
		return server.NewStreamableHTTPServer(s).Start(cfg.Server.Addr)
	default:
		return server.ServeStdio(s, server.WithErrorLogger(log.StdLogger()))
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if serveTransport != "" {
		cfg.Server.Transport = serveTransport
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := newLogger(cfg)
	log.Debug("Using %s", cfg)

	d := tools.NewDispatcher(newConfluenceClient(cfg, log), log)
	s := d.NewServer()

	log.Info("Starting %s %s with %d tools on %s", version.Name, version.ServerVersion(), len(d.Tools()), cfg.Server.Transport)
	if err := startServer(s, cfg, log); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

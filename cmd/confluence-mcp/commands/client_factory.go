package commands

import (
	"confluence-mcp/internal/config"
	"confluence-mcp/internal/confluence"
	"confluence-mcp/pkg/logger"
)

// newConfluenceClient is a package-level variable to allow test injection of a mock.
// Production code uses the real client constructor; tests can override this.
var newConfluenceClient = func(cfg *config.Config, log *logger.Logger) confluence.ConfluenceClient {
	return confluence.NewClient(
		cfg.Confluence.BaseURL,
		cfg.Credentials(),
		log,
		confluence.WithTimeout(cfg.Confluence.Timeout),
	)
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"confluence-mcp/pkg/version"
)

var (
	shortVersion bool
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display the version information for confluence-mcp including build details.

The version command shows the current version along with build information
such as Git commit, build date, Go version, and platform. MCP hosts see the
same version in the server info.`,
	Example: `  confluence-mcp version        # Show full version information
  confluence-mcp version --short # Show only version number`,
	RunE: runVersion,
}

func runVersion(cmd *cobra.Command, args []string) error {
	buildInfo := version.Get()

	if shortVersion {
		fmt.Fprintln(cmd.OutOrStdout(), buildInfo.Version)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), buildInfo.String())
	}

	return nil
}

func init() {
	rootCmd.AddCommand(versionCmd)

	// Local flags for version command
	versionCmd.Flags().BoolVar(&shortVersion, "short", false, "show only version number")
}

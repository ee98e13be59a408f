package commands

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"confluence-mcp/internal/tools"
	"confluence-mcp/pkg/logger"
)

var toolsJSON bool

// toolsCmd prints the tool catalog
var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools the server exposes",
	Long: `List every tool with its parameters, marking required ones with '*'.
Use --json to print the definitions exactly as MCP hosts receive them.`,
	Example: `  confluence-mcp tools
  confluence-mcp tools --json`,
	RunE: runTools,
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	toolsCmd.Flags().BoolVar(&toolsJSON, "json", false, "print tool definitions as JSON")
}

func runTools(cmd *cobra.Command, args []string) error {
	// The catalog does not depend on credentials.
	d := tools.NewDispatcher(nil, logger.New(verbose))
	defs := d.Tools()
	out := cmd.OutOrStdout()

	if toolsJSON {
		data, err := json.MarshalIndent(defs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode tools: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	for i, def := range defs {
		mode := "read-only"
		if def.Annotations.ReadOnlyHint == nil || !*def.Annotations.ReadOnlyHint {
			mode = "writes"
		}
		fmt.Fprintf(out, "%s (%s)\n", def.Name, mode)
		fmt.Fprintf(out, "    %s\n", def.Description)

		required := make(map[string]bool, len(def.InputSchema.Required))
		for _, name := range def.InputSchema.Required {
			required[name] = true
		}
		var params []string
		for _, name := range sortedParams(def.InputSchema.Properties, def.InputSchema.Required) {
			if required[name] {
				name += "*"
			}
			params = append(params, name)
		}
		fmt.Fprintf(out, "    params: %s\n", strings.Join(params, ", "))
		if i < len(defs)-1 {
			fmt.Fprintln(out)
		}
	}
	return nil
}

// sortedParams lists required parameters first, then the rest by name.
func sortedParams(props map[string]any, required []string) []string {
	seen := make(map[string]bool, len(props))
	out := make([]string, 0, len(props))
	for _, name := range required {
		seen[name] = true
		out = append(out, name)
	}
	var rest []string
	for name := range props {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

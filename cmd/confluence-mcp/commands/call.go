package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"confluence-mcp/internal/markdown"
	"confluence-mcp/internal/tools"
)

var (
	callArgs     []string
	callBodyFile string
)

// callCmd runs a single tool without an MCP host
var callCmd = &cobra.Command{
	Use:   "call <tool>",
	Short: "Invoke one tool and print its result",
	Long: `Invoke one tool the same way an MCP host would and print the text it returns.

Arguments are passed as key=value pairs. Numbers and booleans may be given as
plain text. --body-file reads a Markdown file into the body argument and uses
its first heading as the title when --arg title is not given.`,
	Example: `  confluence-mcp call confluence_get_space_by_key --arg key=TEAM
  confluence-mcp call confluence_search --arg cql='type = page AND space = TEAM' --arg limit=5
  confluence-mcp call confluence_create_page --arg spaceId=123 --body-file ./notes.md`,
	Args: cobra.ExactArgs(1),
	RunE: runCall,
}

func init() {
	rootCmd.AddCommand(callCmd)
	callCmd.Flags().StringArrayVar(&callArgs, "arg", nil, "Tool argument as key=value (repeatable)")
	callCmd.Flags().StringVar(&callBodyFile, "body-file", "", "Markdown file to send as the body argument")
}

func runCall(cmd *cobra.Command, args []string) error {
	arguments, err := parseCallArgs(callArgs)
	if err != nil {
		return err
	}
	if callBodyFile != "" {
		doc, err := markdown.ParseFile(callBodyFile)
		if err != nil {
			return err
		}
		arguments["body"] = doc.Content
		if _, ok := arguments["title"]; !ok {
			arguments["title"] = doc.Title
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := newLogger(cfg)

	d := tools.NewDispatcher(newConfluenceClient(cfg, log), log)
	result, err := d.Call(context.Background(), args[0], arguments)
	if err != nil {
		return fmt.Errorf("%w; available tools: %s", err, strings.Join(d.Names(), ", "))
	}

	text := resultText(result)
	if result.IsError {
		return errors.New(text)
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

func parseCallArgs(pairs []string) (map[string]any, error) {
	arguments := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --arg value '%s' (expected key=value)", pair)
		}
		arguments[key] = value
	}
	return arguments, nil
}

func resultText(result *mcp.CallToolResult) string {
	var parts []string
	for _, c := range result.Content {
		if text, ok := c.(mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}

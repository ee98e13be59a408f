// Package tools exposes the Confluence client as MCP tools: it owns the tool
// catalog, validates arguments, dispatches to the client and renders results.
package tools

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"confluence-mcp/internal/confluence"
	"confluence-mcp/pkg/logger"
	"confluence-mcp/pkg/version"
)

const instructions = "Tools for Confluence Cloud spaces, pages and CQL search. " +
	"List and search tools return one page of results; pass the returned cursor to fetch the next one. " +
	"Updating a page requires the version you last read as expectedVersion."

type runFunc func(ctx context.Context, d *Dispatcher, a args) (string, error)

type tool struct {
	def mcp.Tool
	run runFunc
}

// Dispatcher routes tool calls to a ConfluenceClient. It holds no per-call
// state and is safe for concurrent use.
type Dispatcher struct {
	client confluence.ConfluenceClient
	logger *logger.Logger
	tools  []tool
	index  map[string]int
}

// NewDispatcher registers the tool catalog against client.
func NewDispatcher(client confluence.ConfluenceClient, log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.New(false)
	}
	d := &Dispatcher{
		client: client,
		logger: log,
		tools:  catalog(),
		index:  make(map[string]int),
	}
	for i, t := range d.tools {
		d.index[t.def.Name] = i
	}
	return d
}

// Tools returns the tool definitions in catalog order.
func (d *Dispatcher) Tools() []mcp.Tool {
	defs := make([]mcp.Tool, len(d.tools))
	for i, t := range d.tools {
		defs[i] = t.def
	}
	return defs
}

// Names returns the sorted tool names.
func (d *Dispatcher) Names() []string {
	names := make([]string, 0, len(d.tools))
	for _, t := range d.tools {
		names = append(names, t.def.Name)
	}
	sort.Strings(names)
	return names
}

// Register adds every tool to s.
func (d *Dispatcher) Register(s *server.MCPServer) {
	for _, t := range d.tools {
		s.AddTool(t.def, d.handler(t))
	}
}

// NewServer builds an MCP server with all tools registered.
func (d *Dispatcher) NewServer() *server.MCPServer {
	s := server.NewMCPServer(
		version.Name,
		version.ServerVersion(),
		server.WithToolCapabilities(true),
		server.WithInstructions(instructions),
		server.WithRecovery(),
	)
	d.Register(s)
	return s
}

// Call invokes a tool by name outside of an MCP session. Tool failures are
// reported in the result; the error is only set for an unknown tool.
func (d *Dispatcher) Call(ctx context.Context, name string, arguments map[string]any) (*mcp.CallToolResult, error) {
	i, ok := d.index[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool '%s'", name)
	}
	return d.invoke(ctx, d.tools[i], arguments), nil
}

func (d *Dispatcher) handler(t tool) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return d.invoke(ctx, t, req.GetArguments()), nil
	}
}

func (d *Dispatcher) invoke(ctx context.Context, t tool, arguments map[string]any) *mcp.CallToolResult {
	start := time.Now()
	d.logger.Debug("Calling tool %s", t.def.Name)

	text, err := t.run(ctx, d, args(arguments))
	if err != nil {
		d.logger.Warn("Tool %s failed: %s", t.def.Name, confluence.KindOf(err))
		return ErrorResult(err)
	}

	d.logger.Debug("Tool %s completed in %s", t.def.Name, time.Since(start).Round(time.Millisecond))
	return mcp.NewToolResultText(text)
}

// FormatError renders err as "<Kind>: <message>".
func FormatError(err error) string {
	return fmt.Sprintf("%s: %s", confluence.KindOf(err), err.Error())
}

// ErrorResult wraps err in an MCP error result.
func ErrorResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(FormatError(err))
}

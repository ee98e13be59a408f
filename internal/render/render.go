// Package render formats Confluence client results as the text block a tool
// returns, either human-readable Markdown or indented JSON.
package render

import (
	"fmt"
	"strings"

	"confluence-mcp/internal/confluence"
)

// Format selects a Renderer.
type Format int

const (
	FormatMarkdown Format = iota
	FormatJSON
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	default:
		return "markdown"
	}
}

// ParseFormat accepts "markdown" or "json", case-insensitively. An empty
// value selects Markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "markdown":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatMarkdown, fmt.Errorf("output_format must be 'markdown' or 'json', got '%s'", s)
	}
}

// Renderer turns one client result into a text block.
type Renderer interface {
	Space(space *confluence.Space) (string, error)
	Spaces(res *confluence.SearchResult[confluence.Space]) (string, error)
	Page(page *confluence.Page) (string, error)
	Pages(heading string, res *confluence.SearchResult[confluence.Page]) (string, error)
	Search(cql string, res *confluence.SearchResult[confluence.Content]) (string, error)
	Created(page *confluence.Page) (string, error)
	Updated(page *confluence.Page) (string, error)
}

// New returns the Renderer for f.
func New(f Format) Renderer {
	if f == FormatJSON {
		return jsonRenderer{}
	}
	return markdownRenderer{}
}

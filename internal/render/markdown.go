package render

import (
	"fmt"
	"strings"

	"confluence-mcp/internal/confluence"
	"confluence-mcp/internal/storage"
)

type markdownRenderer struct{}

func field(b *strings.Builder, name string, value interface{}) {
	fmt.Fprintf(b, "- **%s**: %v\n", name, value)
}

func optionalField(b *strings.Builder, name string, value string) {
	if value != "" {
		field(b, name, value)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// moreResults writes the continuation hint for a paged listing.
func moreResults(b *strings.Builder, cursor string) {
	if cursor == "" {
		return
	}
	fmt.Fprintf(b, "\n**More results available.** Pass `cursor: \"%s\"` to get the next page.\n", cursor)
}

func writeSpace(b *strings.Builder, s *confluence.Space) {
	fmt.Fprintf(b, "## %s\n", orDefault(s.Name, "Unknown"))
	field(b, "Key", orDefault(s.Key, "N/A"))
	field(b, "ID", orDefault(string(s.ID), "N/A"))
	field(b, "Type", orDefault(s.Type, "N/A"))
	field(b, "Status", orDefault(s.Status, "N/A"))
	optionalField(b, "Homepage ID", string(s.HomepageID))
	optionalField(b, "URL", s.URL)
	if s.Description != nil && s.Description.Plain != nil && s.Description.Plain.Value != "" {
		fmt.Fprintf(b, "\n%s\n", s.Description.Plain.Value)
	}
}

func (markdownRenderer) Space(space *confluence.Space) (string, error) {
	var b strings.Builder
	writeSpace(&b, space)
	return strings.TrimRight(b.String(), "\n"), nil
}

func (markdownRenderer) Spaces(res *confluence.SearchResult[confluence.Space]) (string, error) {
	if len(res.Results) == 0 {
		return "No spaces found.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Confluence Spaces (%d results)\n\n", len(res.Results))
	for i := range res.Results {
		writeSpace(&b, &res.Results[i])
		b.WriteString("\n---\n\n")
	}
	moreResults(&b, res.Cursor)
	return strings.TrimRight(b.String(), "\n"), nil
}

func writePageFields(b *strings.Builder, p *confluence.Page) {
	field(b, "ID", orDefault(string(p.ID), "N/A"))
	field(b, "Space ID", orDefault(string(p.SpaceID), "N/A"))
	optionalField(b, "Parent ID", string(p.ParentID))
	field(b, "Status", orDefault(p.Status, "N/A"))
	if p.Version != nil {
		field(b, "Version", p.Version.Number)
		optionalField(b, "Last Updated", p.Version.CreatedAt)
		optionalField(b, "Version Message", p.Version.Message)
	}
	optionalField(b, "URL", p.URL)
}

func (markdownRenderer) Page(page *confluence.Page) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n", orDefault(page.Title, "Untitled"))
	writePageFields(&b, page)

	if body := page.StorageBody(); body != "" {
		b.WriteString("\n### Content\n\n")
		b.WriteString(storage.ToMarkdownOrRaw(body))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (markdownRenderer) Pages(heading string, res *confluence.SearchResult[confluence.Page]) (string, error) {
	if len(res.Results) == 0 {
		return "No pages found.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s (%d results)\n\n", heading, len(res.Results))
	for i := range res.Results {
		p := &res.Results[i]
		fmt.Fprintf(&b, "### %s\n", orDefault(p.Title, "Untitled"))
		writePageFields(&b, p)
		b.WriteString("\n")
	}
	moreResults(&b, res.Cursor)
	return strings.TrimRight(b.String(), "\n"), nil
}

func (markdownRenderer) Search(cql string, res *confluence.SearchResult[confluence.Content]) (string, error) {
	if len(res.Results) == 0 {
		return fmt.Sprintf("No results found for query: %s", cql), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Search Results (%d found)\n\n", len(res.Results))
	fmt.Fprintf(&b, "**Query**: `%s`\n\n", cql)
	for _, c := range res.Results {
		fmt.Fprintf(&b, "### %s\n", orDefault(c.Title, "Untitled"))
		field(&b, "Type", orDefault(c.Type, "unknown"))
		field(&b, "ID", string(c.ID))
		if c.Space != nil {
			field(&b, "Space", orDefault(c.Space.Key, "N/A"))
		} else {
			field(&b, "Space", "N/A")
		}
		if c.Version != nil {
			field(&b, "Version", c.Version.Number)
		}
		optionalField(&b, "URL", c.URL)
		b.WriteString("\n")
	}
	moreResults(&b, res.Cursor)
	return strings.TrimRight(b.String(), "\n"), nil
}

func (markdownRenderer) Created(page *confluence.Page) (string, error) {
	var b strings.Builder
	b.WriteString("# Page Created Successfully\n\n")
	field(&b, "Title", orDefault(page.Title, "N/A"))
	writePageFields(&b, page)
	return strings.TrimRight(b.String(), "\n"), nil
}

func (markdownRenderer) Updated(page *confluence.Page) (string, error) {
	var b strings.Builder
	b.WriteString("# Page Updated Successfully\n\n")
	field(&b, "Title", orDefault(page.Title, "N/A"))
	writePageFields(&b, page)
	return strings.TrimRight(b.String(), "\n"), nil
}

// Package markdown turns Markdown authored by a tool caller into Confluence
// storage XHTML.
package markdown

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Document is a Markdown file read from disk for a page body.
type Document struct {
	Title    string
	Content  string
	FilePath string
}

func ParseFile(filePath string) (*Document, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	title := ExtractTitle(lines)
	if title == "" {
		base := filepath.Base(filePath)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	return &Document{
		Title:    title,
		Content:  strings.Join(lines, "\n"),
		FilePath: filePath,
	}, nil
}

// ExtractTitle returns the text of the first level-one heading, or "".
func ExtractTitle(lines []string) string {
	inFence := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if !inFence && strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

var (
	headingRe     = regexp.MustCompile(`^(#{1,6})\s+(.*?)(?:\s+#+)?\s*$`)
	orderedItemRe = regexp.MustCompile(`^\d+[.)]\s+(.*)$`)
	tableSepRe    = regexp.MustCompile(`^\|?\s*:?-{3,}:?\s*(\|\s*:?-{3,}:?\s*)*\|?$`)
	ruleRe        = regexp.MustCompile(`^(\*\s*){3,}$|^(-\s*){3,}$|^(_\s*){3,}$`)
	linkRe        = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
	boldRe        = regexp.MustCompile(`\*\*([^*]+)\*\*|__([^_]+)__`)
	italicRe      = regexp.MustCompile(`(^|[^*\w])\*([^*\s][^*]*)\*|(^|[^_\w])_([^_\s][^_]*)_`)
	strikeRe      = regexp.MustCompile(`~~([^~]+)~~`)
)

// converter holds the open-block state while walking lines.
type converter struct {
	out       []string
	paragraph []string
	list      string // "ul", "ol" or ""
	quote     []string
	table     []string
}

// ToStorage converts Markdown into Confluence storage XHTML. Fenced code
// becomes the code macro; everything else maps onto plain XHTML elements.
func ToStorage(markdown string) string {
	c := &converter{}
	lines := strings.Split(strings.ReplaceAll(markdown, "\r\n", "\n"), "\n")

	inCodeBlock := false
	var codeBlockLang string
	var codeBlockContent []string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			if !inCodeBlock {
				c.flush()
				inCodeBlock = true
				codeBlockLang = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
				codeBlockContent = nil
			} else {
				inCodeBlock = false
				c.out = append(c.out, codeMacro(codeBlockLang, strings.Join(codeBlockContent, "\n")))
			}
			continue
		}
		if inCodeBlock {
			codeBlockContent = append(codeBlockContent, line)
			continue
		}

		if trimmed == "" {
			c.flush()
			continue
		}

		if strings.HasPrefix(trimmed, ">") {
			c.flushParagraph()
			c.closeList()
			c.quote = append(c.quote, strings.TrimSpace(strings.TrimPrefix(trimmed, ">")))
			continue
		}
		c.closeQuote()

		if strings.HasPrefix(trimmed, "|") {
			c.flushParagraph()
			c.closeList()
			c.table = append(c.table, trimmed)
			continue
		}
		c.closeTable()

		if m := headingRe.FindStringSubmatch(trimmed); m != nil {
			c.flush()
			level := len(m[1])
			c.out = append(c.out, fmt.Sprintf("<h%d>%s</h%d>", level, inline(m[2]), level))
			continue
		}

		if ruleRe.MatchString(trimmed) {
			c.flush()
			c.out = append(c.out, "<hr/>")
			continue
		}

		if strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") || strings.HasPrefix(trimmed, "+ ") {
			c.flushParagraph()
			c.openList("ul")
			c.out = append(c.out, "<li>"+listItem(trimmed[2:])+"</li>")
			continue
		}

		if m := orderedItemRe.FindStringSubmatch(trimmed); m != nil {
			c.flushParagraph()
			c.openList("ol")
			c.out = append(c.out, "<li>"+inline(m[1])+"</li>")
			continue
		}

		c.closeList()
		c.paragraph = append(c.paragraph, trimmed)
	}

	if inCodeBlock {
		c.out = append(c.out, codeMacro(codeBlockLang, strings.Join(codeBlockContent, "\n")))
	}
	c.flush()

	return strings.Join(c.out, "\n")
}

func (c *converter) flush() {
	c.flushParagraph()
	c.closeList()
	c.closeQuote()
	c.closeTable()
}

func (c *converter) flushParagraph() {
	if len(c.paragraph) == 0 {
		return
	}
	c.out = append(c.out, "<p>"+inline(strings.Join(c.paragraph, " "))+"</p>")
	c.paragraph = nil
}

func (c *converter) openList(kind string) {
	if c.list == kind {
		return
	}
	c.closeList()
	c.out = append(c.out, "<"+kind+">")
	c.list = kind
}

func (c *converter) closeList() {
	if c.list == "" {
		return
	}
	c.out = append(c.out, "</"+c.list+">")
	c.list = ""
}

func (c *converter) closeQuote() {
	if len(c.quote) == 0 {
		return
	}
	c.out = append(c.out, "<blockquote><p>"+inline(strings.Join(c.quote, " "))+"</p></blockquote>")
	c.quote = nil
}

// closeTable emits a pipe table. Without a separator row the lines are kept
// as a paragraph.
func (c *converter) closeTable() {
	if len(c.table) == 0 {
		return
	}
	rows := c.table
	c.table = nil
	if len(rows) < 2 || !tableSepRe.MatchString(rows[1]) {
		c.out = append(c.out, "<p>"+inline(strings.Join(rows, " "))+"</p>")
		return
	}

	var b strings.Builder
	b.WriteString("<table><tbody>")
	writeRow(&b, "th", rows[0])
	for _, row := range rows[2:] {
		writeRow(&b, "td", row)
	}
	b.WriteString("</tbody></table>")
	c.out = append(c.out, b.String())
}

func writeRow(b *strings.Builder, cell, row string) {
	row = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(row), "|"), "|")
	b.WriteString("<tr>")
	for _, col := range strings.Split(row, "|") {
		fmt.Fprintf(b, "<%s>%s</%s>", cell, inline(strings.TrimSpace(col)), cell)
	}
	b.WriteString("</tr>")
}

// listItem renders GitHub-style task markers as checkbox glyphs.
func listItem(text string) string {
	switch {
	case strings.HasPrefix(text, "[ ] "):
		return "☐ " + inline(text[4:])
	case strings.HasPrefix(text, "[x] "), strings.HasPrefix(text, "[X] "):
		return "☑ " + inline(text[4:])
	}
	return inline(text)
}

func codeMacro(lang, body string) string {
	var b strings.Builder
	b.WriteString(`<ac:structured-macro ac:name="code" ac:schema-version="1">`)
	if lang != "" {
		fmt.Fprintf(&b, `<ac:parameter ac:name="language">%s</ac:parameter>`, escapeHTML(lang))
	}
	b.WriteString(`<ac:plain-text-body><![CDATA[`)
	// "]]>" cannot appear inside CDATA; split it across two sections.
	b.WriteString(strings.ReplaceAll(body, "]]>", "]]]]><![CDATA[>"))
	b.WriteString(`]]></ac:plain-text-body></ac:structured-macro>`)
	return b.String()
}

// inline escapes text and applies span-level formatting. Backtick spans are
// left untouched by the other rules.
func inline(text string) string {
	parts := strings.Split(text, "`")
	var b strings.Builder
	for i, part := range parts {
		inCode := i%2 == 1 && i < len(parts)-1
		switch {
		case inCode:
			b.WriteString("<code>" + escapeHTML(part) + "</code>")
		case i%2 == 1:
			// unmatched trailing backtick
			b.WriteString("`" + convertInlineFormatting(escapeHTML(part)))
		default:
			b.WriteString(convertInlineFormatting(escapeHTML(part)))
		}
	}
	return b.String()
}

func convertInlineFormatting(text string) string {
	text = linkRe.ReplaceAllString(text, `<a href="$2">$1</a>`)
	text = boldRe.ReplaceAllStringFunc(text, func(m string) string {
		return "<strong>" + m[2:len(m)-2] + "</strong>"
	})
	text = strikeRe.ReplaceAllString(text, "<del>$1</del>")
	text = italicRe.ReplaceAllString(text, "$1$3<em>$2$4</em>")
	return text
}

func escapeHTML(text string) string {
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	text = strings.ReplaceAll(text, "\"", "&quot;")
	return text
}

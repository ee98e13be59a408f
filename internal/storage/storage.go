// Package storage renders Confluence storage-format XHTML as Markdown.
package storage

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/strikethrough"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

var blankRuns = regexp.MustCompile(`\n{3,}`)

func newConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
			strikethrough.NewStrikethroughPlugin(),
		),
	)
}

// ToMarkdown converts a storage-format body to Markdown. Rendering is
// best-effort: macros without a Markdown equivalent become placeholders.
func ToMarkdown(storageBody string) (string, error) {
	if strings.TrimSpace(storageBody) == "" {
		return "", nil
	}

	htmlBody, err := Preprocess(storageBody)
	if err != nil {
		return "", err
	}

	md, err := newConverter().ConvertString(htmlBody)
	if err != nil {
		return "", fmt.Errorf("failed to convert storage format to markdown: %w", err)
	}

	return strings.TrimSpace(blankRuns.ReplaceAllString(md, "\n\n")), nil
}

// ToMarkdownOrRaw renders Markdown, falling back to the raw storage body
// fenced as XML when conversion fails.
func ToMarkdownOrRaw(storageBody string) string {
	md, err := ToMarkdown(storageBody)
	if err != nil {
		return "```xml\n" + storageBody + "\n```"
	}
	return md
}

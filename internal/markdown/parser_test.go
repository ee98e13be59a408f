package markdown

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseFile(t *testing.T) {
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "test.md")
	content := "# Test Document\n\nThis is a test document.\n\n## Section 1\n\nSome content here."

	if err := os.WriteFile(testFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	doc, err := ParseFile(testFile)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if doc.Title != "Test Document" {
		t.Errorf("Expected title 'Test Document', got '%s'", doc.Title)
	}
	if doc.Content != content {
		t.Errorf("Expected content to round-trip, got %q", doc.Content)
	}
	if doc.FilePath != testFile {
		t.Errorf("Expected file path '%s', got '%s'", testFile, doc.FilePath)
	}
}

func TestParseFileNoTitle(t *testing.T) {
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "release-notes.md")
	if err := os.WriteFile(testFile, []byte("Just text.\n## Not a title"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	doc, err := ParseFile(testFile)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if doc.Title != "release-notes" {
		t.Errorf("Expected title from filename, got '%s'", doc.Title)
	}
}

func TestParseFileNotFound(t *testing.T) {
	_, err := ParseFile("/nonexistent/file.md")
	if err == nil {
		t.Fatal("Expected error for nonexistent file")
	}
	if !strings.Contains(err.Error(), "failed to open file") {
		t.Errorf("Unexpected error %v", err)
	}
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{"first h1", []string{"intro", "# Title", "# Second"}, "Title"},
		{"indented", []string{"   #   Spaced Title  "}, "Spaced Title"},
		{"h2 only", []string{"## Sub"}, ""},
		{"inside fence", []string{"```", "# comment", "```", "# Real"}, "Real"},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractTitle(tt.lines); got != tt.want {
				t.Errorf("ExtractTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToStorage(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		want     string
	}{
		{"h1", "# Title", "<h1>Title</h1>"},
		{"h3 closing hashes", "### Notes ###", "<h3>Notes</h3>"},
		{"h6", "###### Deep", "<h6>Deep</h6>"},
		{"paragraph", "Hello world", "<p>Hello world</p>"},
		{"paragraph lines join", "one\ntwo", "<p>one two</p>"},
		{"escaping", "a < b & c", "<p>a &lt; b &amp; c</p>"},
		{"bold", "**bold**", "<p><strong>bold</strong></p>"},
		{"italic", "an *italic* word", "<p>an <em>italic</em> word</p>"},
		{"underscore word", "snake_case_name", "<p>snake_case_name</p>"},
		{"strike", "~~gone~~", "<p><del>gone</del></p>"},
		{"inline code", "run `a*b*c` now", "<p>run <code>a*b*c</code> now</p>"},
		{"link", "see [docs](https://x.io/a?b=1&c=2)", `<p>see <a href="https://x.io/a?b=1&amp;c=2">docs</a></p>`},
		{"rule", "---", "<hr/>"},
		{"quote", "> careful\n> now", "<blockquote><p>careful now</p></blockquote>"},
		{"unordered", "- one\n- two", "<ul>\n<li>one</li>\n<li>two</li>\n</ul>"},
		{"ordered", "1. one\n10. ten", "<ol>\n<li>one</li>\n<li>ten</li>\n</ol>"},
		{"tasks", "- [ ] todo\n- [x] done", "<ul>\n<li>☐ todo</li>\n<li>☑ done</li>\n</ul>"},
		{
			"code with language",
			"```go\nfmt.Println(\"<hi>\")\n```",
			`<ac:structured-macro ac:name="code" ac:schema-version="1"><ac:parameter ac:name="language">go</ac:parameter><ac:plain-text-body><![CDATA[fmt.Println("<hi>")]]></ac:plain-text-body></ac:structured-macro>`,
		},
		{
			"code without language",
			"```\nx\n```",
			`<ac:structured-macro ac:name="code" ac:schema-version="1"><ac:plain-text-body><![CDATA[x]]></ac:plain-text-body></ac:structured-macro>`,
		},
		{
			"cdata terminator",
			"```\na]]>b\n```",
			`<ac:structured-macro ac:name="code" ac:schema-version="1"><ac:plain-text-body><![CDATA[a]]]]><![CDATA[>b]]></ac:plain-text-body></ac:structured-macro>`,
		},
		{
			"table",
			"| A | B |\n|---|:---:|\n| 1 | **2** |",
			"<table><tbody><tr><th>A</th><th>B</th></tr><tr><td>1</td><td><strong>2</strong></td></tr></tbody></table>",
		},
		{"pipe line without separator", "| not a table", "<p>| not a table</p>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToStorage(tt.markdown); got != tt.want {
				t.Errorf("ToStorage(%q)\n got: %q\nwant: %q", tt.markdown, got, tt.want)
			}
		})
	}
}

func TestToStorageMixedBlocks(t *testing.T) {
	md := `# Runbook

Intro paragraph.

- step one
- step two
1. first
2. second

` + "```bash\necho hi\n```" + `
Trailing text.`

	got := ToStorage(md)
	wantOrder := []string{
		"<h1>Runbook</h1>",
		"<p>Intro paragraph.</p>",
		"<ul>", "<li>step one</li>", "</ul>",
		"<ol>", "<li>second</li>", "</ol>",
		`<ac:parameter ac:name="language">bash</ac:parameter>`,
		"<p>Trailing text.</p>",
	}
	pos := 0
	for _, w := range wantOrder {
		idx := strings.Index(got[pos:], w)
		if idx < 0 {
			t.Fatalf("Expected %q after offset %d in:\n%s", w, pos, got)
		}
		pos += idx + len(w)
	}
}

func TestToStorageUnterminatedFence(t *testing.T) {
	got := ToStorage("```\nnever closed")
	if !strings.Contains(got, "<![CDATA[never closed]]>") {
		t.Errorf("Expected unterminated fence to be emitted as code, got %q", got)
	}
}

func TestEscapeHTML(t *testing.T) {
	got := escapeHTML(`<a href="x">&</a>`)
	want := "&lt;a href=&quot;x&quot;&gt;&amp;&lt;/a&gt;"
	if got != want {
		t.Errorf("escapeHTML() = %q, want %q", got, want)
	}
}

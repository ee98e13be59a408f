package storage

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

type frameKind int

const (
	frameElement frameKind = iota
	frameMacro
	frameParam
	frameBody
	frameLink
	frameImage
	frameTask
	frameTaskStatus
	frameSkip
)

// frame tracks one open ac:/ri: element.
type frame struct {
	tag  string
	kind frameKind

	// macros
	macro  string
	params map[string]string
	opened bool

	// param, link, task-status capture
	name string
	buf  *strings.Builder

	// links and images
	title  string
	href   string
	src    string
	alt    string
	anchor string

	// tasks
	status string

	// closing markup written when the frame ends
	closing string
}

var panelMacros = map[string]string{
	"info":    "Info",
	"note":    "Note",
	"warning": "Warning",
	"tip":     "Tip",
	"panel":   "Panel",
	"expand":  "Expand",
}

// Layout macros only wrap content; their bodies are rendered as is.
var transparentMacros = map[string]bool{
	"section": true,
	"column":  true,
	"excerpt": true,
	"details": true,
	"div":     true,
}

// preprocessor rewrites storage XHTML into plain HTML the Markdown
// converter understands.
type preprocessor struct {
	out    strings.Builder
	frames []*frame
}

// Preprocess replaces Confluence-specific elements with plain HTML.
// Structured macros become code blocks, quoted panels or inline
// "macro: name" placeholders; links, mentions, images, emoticons and task lists become
// their closest HTML equivalents.
func Preprocess(storage string) (string, error) {
	p := &preprocessor{}
	z := html.NewTokenizer(strings.NewReader(storage))
	z.AllowCDATA(true)

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if errors.Is(z.Err(), io.EOF) {
				break
			}
			return "", fmt.Errorf("failed to tokenize storage format: %w", z.Err())
		}

		raw := string(z.Raw())
		tok := z.Token()

		switch tt {
		case html.TextToken:
			p.text(tok.Data)
		case html.StartTagToken:
			p.start(tok, raw)
		case html.SelfClosingTagToken:
			if isConfluenceTag(tok.Data) {
				p.start(tok, "")
				p.end(tok.Data, "")
			} else {
				p.start(tok, raw)
			}
		case html.EndTagToken:
			p.end(tok.Data, raw)
		}
	}

	// Unbalanced input: close whatever is still open.
	for len(p.frames) > 0 {
		p.end(p.frames[len(p.frames)-1].tag, "")
	}

	return p.out.String(), nil
}

func isConfluenceTag(name string) bool {
	return strings.HasPrefix(name, "ac:") || strings.HasPrefix(name, "ri:")
}

// writer returns where markup goes: the innermost capturing frame, nil when
// inside a skipped element, or the document itself.
func (p *preprocessor) writer(textOnly bool) *strings.Builder {
	for i := len(p.frames) - 1; i >= 0; i-- {
		f := p.frames[i]
		switch {
		case f.kind == frameSkip || f.kind == frameImage:
			return nil
		case f.kind == frameParam || f.kind == frameTaskStatus:
			if !textOnly {
				return nil
			}
			return f.buf
		case f.buf != nil:
			return f.buf
		}
	}
	return &p.out
}

func (p *preprocessor) text(s string) {
	if w := p.writer(true); w != nil {
		w.WriteString(html.EscapeString(s))
	}
}

func (p *preprocessor) write(markup string) {
	if markup == "" {
		return
	}
	if w := p.writer(false); w != nil {
		w.WriteString(markup)
	}
}

func (p *preprocessor) nearest(kind frameKind) *frame {
	for i := len(p.frames) - 1; i >= 0; i-- {
		if p.frames[i].kind == kind {
			return p.frames[i]
		}
	}
	return nil
}

func (p *preprocessor) push(f *frame) {
	p.frames = append(p.frames, f)
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func (p *preprocessor) start(tok html.Token, raw string) {
	name := tok.Data

	if !isConfluenceTag(name) {
		if name == "time" {
			p.text(attr(tok, "datetime"))
			return
		}
		p.write(raw)
		return
	}

	f := &frame{tag: name, kind: frameElement}

	switch name {
	case "ac:structured-macro", "ac:macro":
		f.kind = frameMacro
		f.macro = strings.ToLower(attr(tok, "ac:name"))
		f.params = make(map[string]string)

	case "ac:parameter":
		f.kind = frameParam
		f.name = attr(tok, "ac:name")
		f.buf = &strings.Builder{}

	case "ac:plain-text-body":
		f.kind = frameBody
		m := p.nearest(frameMacro)
		lang := ""
		if m != nil && m.macro == "code" {
			lang = m.params["language"]
		}
		if m != nil {
			m.opened = true
		}
		if lang != "" {
			p.write(fmt.Sprintf(`<pre><code class="language-%s">`, html.EscapeString(lang)))
		} else {
			p.write("<pre><code>")
		}
		f.closing = "</code></pre>"

	case "ac:rich-text-body":
		f.kind = frameBody
		if m := p.nearest(frameMacro); m != nil {
			p.openMacroBody(m, f)
		}

	case "ac:link":
		f.kind = frameLink
		f.anchor = attr(tok, "ac:anchor")
		f.buf = &strings.Builder{}

	case "ac:image":
		f.kind = frameImage
		f.alt = attr(tok, "ac:alt")
		if f.alt == "" {
			f.alt = attr(tok, "ac:title")
		}

	case "ri:page", "ri:blog-post":
		if l := p.nearest(frameLink); l != nil {
			l.title = attr(tok, "ri:content-title")
		}
		f.kind = frameSkip

	case "ri:user":
		user := attr(tok, "ri:account-id")
		if user == "" {
			user = attr(tok, "ri:userkey")
		}
		if user == "" {
			user = attr(tok, "ri:username")
		}
		if l := p.nearest(frameLink); l != nil {
			l.title = "@" + user
		} else {
			p.text("@" + user)
		}
		f.kind = frameSkip

	case "ri:attachment":
		filename := attr(tok, "ri:filename")
		if img := p.nearest(frameImage); img != nil {
			img.src = filename
		} else if l := p.nearest(frameLink); l != nil {
			l.title = filename
		}
		f.kind = frameSkip

	case "ri:url":
		value := attr(tok, "ri:value")
		if img := p.nearest(frameImage); img != nil {
			img.src = value
		} else if l := p.nearest(frameLink); l != nil {
			l.href = value
		}
		f.kind = frameSkip

	case "ri:space":
		if l := p.nearest(frameLink); l != nil && l.title == "" {
			l.title = attr(tok, "ri:space-key")
		}
		f.kind = frameSkip

	case "ac:emoticon":
		emoticon := attr(tok, "ac:emoji-shortname")
		if emoticon == "" {
			emoticon = ":" + attr(tok, "ac:name") + ":"
		}
		p.text(emoticon)
		f.kind = frameSkip

	case "ac:task-list":
		p.write("<ul>")
		f.closing = "</ul>"

	case "ac:task":
		f.kind = frameTask
		p.write("<li>")
		f.closing = "</li>"

	case "ac:task-status":
		f.kind = frameTaskStatus
		f.buf = &strings.Builder{}

	case "ac:task-body":
		marker := "☐ "
		if t := p.nearest(frameTask); t != nil && t.status == "complete" {
			marker = "☑ "
		}
		p.text(marker)

	case "ac:task-id", "ac:task-uuid", "ac:placeholder":
		f.kind = frameSkip

	default:
		if strings.HasPrefix(name, "ri:") {
			f.kind = frameSkip
		}
		// Any other ac: element is dropped while its children are kept.
	}

	p.push(f)
}

// openMacroBody writes the opening markup for a macro's rich-text body.
func (p *preprocessor) openMacroBody(m *frame, body *frame) {
	m.opened = true
	if transparentMacros[m.macro] {
		return
	}
	if label, ok := panelMacros[m.macro]; ok {
		if title := strings.TrimSpace(m.params["title"]); title != "" {
			label += ": " + title
		}
		p.write("<blockquote><p><strong>" + html.EscapeString(label) + "</strong></p>")
		body.closing = "</blockquote>"
		return
	}
	p.write("<p>" + placeholder(m.macro) + "</p>")
}

func placeholder(macro string) string {
	return "<code>macro: " + html.EscapeString(macro) + "</code>"
}

func (p *preprocessor) end(name, raw string) {
	if !isConfluenceTag(name) {
		if name == "time" {
			return
		}
		p.write(raw)
		return
	}

	// Find the matching frame; stray closing tags are ignored.
	idx := -1
	for i := len(p.frames) - 1; i >= 0; i-- {
		if p.frames[i].tag == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	for len(p.frames) > idx {
		f := p.frames[len(p.frames)-1]
		p.frames = p.frames[:len(p.frames)-1]
		p.finish(f)
	}
}

func (p *preprocessor) finish(f *frame) {
	switch f.kind {
	case frameParam:
		if m := p.nearest(frameMacro); m != nil && f.name != "" {
			m.params[f.name] = html.UnescapeString(f.buf.String())
		}

	case frameTaskStatus:
		if t := p.nearest(frameTask); t != nil {
			t.status = strings.TrimSpace(html.UnescapeString(f.buf.String()))
		}

	case frameMacro:
		if !f.opened && !transparentMacros[f.macro] {
			p.write(placeholder(f.macro))
		}

	case frameLink:
		body := strings.TrimSpace(f.buf.String())
		if body == "" {
			label := f.title
			if label == "" && f.anchor != "" {
				label = "#" + f.anchor
			}
			if label == "" {
				label = f.href
			}
			body = html.EscapeString(label)
		}
		if f.href != "" {
			p.write(`<a href="` + html.EscapeString(f.href) + `">` + body + `</a>`)
		} else {
			p.write(body)
		}

	case frameImage:
		if f.src != "" {
			// the image frame is already popped, so this reaches the parent
			p.write(`<img src="` + html.EscapeString(f.src) + `" alt="` + html.EscapeString(f.alt) + `"/>`)
		}
	}

	p.write(f.closing)
}

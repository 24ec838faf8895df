package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
)

// ErrHTMLConversion indicates HTML conversion failed.
var ErrHTMLConversion = errors.New("HTML conversion failed")

// htmlTemplate wraps Goldmark's fragment output in a complete HTML5 document.
// The title ends up in the PDF metadata.
const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body>
%s
</body>
</html>`

// defaultTitle is used when the document has no level-one heading.
const defaultTitle = "Document"

var (
	firstH1  = regexp.MustCompile(`(?is)<h1[^>]*>(.*?)</h1>`)
	anyTag   = regexp.MustCompile(`<[^>]+>`)
	spaceRun = regexp.MustCompile(`\s+`)
)

// HTMLConverter abstracts Markdown to HTML conversion.
type HTMLConverter interface {
	ToHTML(ctx context.Context, doc MarkdownDoc) (string, error)
}

// GoldmarkConverter converts Markdown to HTML using goldmark (pure Go).
type GoldmarkConverter struct {
	md goldmark.Markdown
}

// NewGoldmarkConverter creates a GoldmarkConverter with GFM extensions and syntax highlighting.
func NewGoldmarkConverter() *GoldmarkConverter {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,      // Tables, strikethrough, autolinks, task lists
			extension.Footnote, // [^1] footnotes
			highlighting.NewHighlighting(
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true), // CSS classes for smaller HTML and external stylesheet control
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(), // Generate IDs for headings (in-document links)
		),
		goldmark.WithRendererOptions(
			goldmarkhtml.WithHardWraps(), // Treat newlines as <br>
			goldmarkhtml.WithXHTML(),     // Self-closing tags
			// No WithUnsafe: raw HTML in Markdown is dropped.
			// ==highlight== uses placeholders converted after Goldmark.
		),
	)
	return &GoldmarkConverter{md: md}
}

// ToHTML converts doc to a standalone HTML5 document titled doc.Title, or
// the first level-one heading when doc.Title is empty.
// Supports context cancellation via goroutine + select pattern since
// Goldmark doesn't natively support context.
func (c *GoldmarkConverter) ToHTML(ctx context.Context, doc MarkdownDoc) (string, error) {
	// Fast path: check context before starting
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type result struct {
		html string
		err  error
	}

	done := make(chan result, 1)

	go func() {
		var buf bytes.Buffer
		if err := c.md.Convert([]byte(doc.Body), &buf); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrHTMLConversion, err)}
			return
		}
		body := buf.String()
		title := html.EscapeString(doc.Title)
		if title == "" {
			title = documentTitle(body)
		}
		done <- result{html: fmt.Sprintf(htmlTemplate, title, body)}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.html, r.err
	}
}

// documentTitle returns the text of the first <h1> in body, already
// HTML-escaped, or defaultTitle.
func documentTitle(body string) string {
	m := firstH1.FindStringSubmatch(body)
	if m == nil {
		return defaultTitle
	}
	text := html.UnescapeString(anyTag.ReplaceAllString(m[1], ""))
	text = strings.NewReplacer(markOpen, "", markClose, "").Replace(text)
	text = strings.TrimSpace(spaceRun.ReplaceAllString(text, " "))
	if text == "" {
		return defaultTitle
	}
	return html.EscapeString(text)
}

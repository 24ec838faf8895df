package pipeline

import (
	"context"
	"regexp"
	"strings"

	"github.com/alnah/go-ezpdf/internal/yamlutil"
)

// ==text== is carried through goldmark as private-use runes and turned
// into <mark> afterwards, so raw HTML can stay disabled.
const (
	markOpen  = "\uE000"
	markClose = "\uE001"
)

var (
	lineBreaks = regexp.MustCompile(`\r\n?`)
	blankRuns  = regexp.MustCompile(`\n{3,}`)

	// Both delimiters must touch text, so "a == b == c" stays prose.
	highlight = regexp.MustCompile(`==(\S(?:[^\n]*?\S)?)==`)

	// A YAML block at the very start, closed by --- or ...
	frontMatter = regexp.MustCompile(`\A---\n(?:([\s\S]*?)\n)?(?:---|\.\.\.)(?:\n|\z)`)
)

// MarkdownDoc is Markdown ready for goldmark plus what was lifted off it.
type MarkdownDoc struct {
	Body string

	// Title comes from front matter. Empty means the first <h1> is used.
	Title string
}

// MarkdownPreprocessor prepares Markdown source for conversion.
type MarkdownPreprocessor interface {
	PreprocessMarkdown(ctx context.Context, content string) MarkdownDoc
}

// CommonMarkPreprocessor normalizes line endings, lifts YAML front matter,
// marks ==highlights== and caps blank-line runs at one empty line.
type CommonMarkPreprocessor struct{}

// PreprocessMarkdown returns content unchanged when ctx is already done.
func (p *CommonMarkPreprocessor) PreprocessMarkdown(ctx context.Context, content string) MarkdownDoc {
	if ctx.Err() != nil {
		return MarkdownDoc{Body: content}
	}

	content = lineBreaks.ReplaceAllString(content, "\n")
	title, content := splitFrontMatter(content)
	content = highlight.ReplaceAllString(content, markOpen+"$1"+markClose)
	content = blankRuns.ReplaceAllString(content, "\n\n")

	return MarkdownDoc{Body: content, Title: title}
}

// splitFrontMatter removes a leading YAML mapping and returns its title.
// A block that is not a mapping is left in place and read as Markdown.
func splitFrontMatter(content string) (title, rest string) {
	loc := frontMatter.FindStringSubmatchIndex(content)
	if loc == nil {
		return "", content
	}
	rest = content[loc[1]:]

	var block string
	if loc[2] >= 0 {
		block = content[loc[2]:loc[3]]
	}
	if strings.TrimSpace(block) == "" {
		return "", rest
	}

	var fields any
	if err := yamlutil.UnmarshalStrict([]byte(block), &fields); err != nil {
		return "", content
	}
	switch m := fields.(type) {
	case map[string]any:
		title, _ = m["title"].(string)
	case map[any]any:
		title, _ = m["title"].(string)
	default:
		return "", content
	}
	return strings.TrimSpace(title), rest
}

// markHighlights swaps the placeholders for <mark> elements once goldmark
// has escaped everything else.
func markHighlights(html string) string {
	return strings.NewReplacer(markOpen, "<mark>", markClose, "</mark>").Replace(html)
}

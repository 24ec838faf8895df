package pipeline

import (
	"context"
	"fmt"
)

// Source is a document to prepare for rendering.
type Source struct {
	// Content is HTML, or Markdown when Markdown is set.
	Content  string
	Markdown bool

	// CSS is injected as a <style> block.
	CSS string

	// SourceDir resolves relative image, stylesheet and link paths to
	// file:// URLs. Empty leaves paths untouched.
	SourceDir string

	// BaseURL adds a <base href> for relative references. Ignored when the
	// document declares its own <base>.
	BaseURL string
}

// Pipeline turns a Source into a standalone HTML document.
type Pipeline struct {
	preprocessor MarkdownPreprocessor
	converter    HTMLConverter
	css          CSSInjector
}

// New creates a Pipeline using goldmark for Markdown.
func New() *Pipeline {
	return &Pipeline{
		preprocessor: &CommonMarkPreprocessor{},
		converter:    NewGoldmarkConverter(),
		css:          &CSSInjection{},
	}
}

// Prepare runs every stage that applies to src and returns the HTML.
func (p *Pipeline) Prepare(ctx context.Context, src Source) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	doc := src.Content
	if src.Markdown {
		var err error
		doc, err = p.converter.ToHTML(ctx, p.preprocessor.PreprocessMarkdown(ctx, doc))
		if err != nil {
			return "", err
		}
		doc = markHighlights(doc)
	}

	if src.SourceDir != "" {
		rewritten, err := RewriteRelativePaths(doc, src.SourceDir)
		if err != nil {
			return "", fmt.Errorf("rewriting relative paths: %w", err)
		}
		doc = rewritten
	}

	doc = InjectBaseURL(doc, src.BaseURL)
	doc = p.css.InjectCSS(ctx, doc, src.CSS)

	return doc, ctx.Err()
}

package pipeline

import (
	"context"
	"html"
	"regexp"
	"strings"
)

// CSSInjector defines the contract for CSS injection into HTML.
type CSSInjector interface {
	InjectCSS(ctx context.Context, htmlContent, cssContent string) string
}

// CSSInjection injects CSS as a <style> block into HTML content.
type CSSInjection struct{}

// InjectCSS inserts a <style> block into HTML content.
// Tries </head> first, then <body>, then prepends to the HTML.
// CSS content is sanitized to prevent injection attacks.
func (s *CSSInjection) InjectCSS(ctx context.Context, htmlContent, cssContent string) string {
	if cssContent == "" {
		return htmlContent
	}

	// Check for cancellation
	if ctx.Err() != nil {
		return htmlContent
	}

	styleBlock := "<style>" + sanitizeCSS(cssContent) + "</style>"

	// Try inserting before </head>
	if loc := headCloseTag.FindStringIndex(htmlContent); loc != nil {
		return htmlContent[:loc[0]] + styleBlock + htmlContent[loc[0]:]
	}

	// Try inserting after <body>
	if pos := afterOpeningTag(htmlContent, bodyTag); pos != -1 {
		return htmlContent[:pos] + styleBlock + htmlContent[pos:]
	}

	// Fallback: prepend
	return styleBlock + htmlContent
}

// sanitizeCSS escapes sequences that could break out of a <style> block.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}

// Tags matched case-insensitively on the original bytes; \b keeps <header>
// from matching <head.
var (
	headCloseTag = regexp.MustCompile(`(?i)</head\s*>`)
	headTag      = regexp.MustCompile(`(?i)<head\b[^>]*>`)
	htmlTag      = regexp.MustCompile(`(?i)<html\b[^>]*>`)
	bodyTag      = regexp.MustCompile(`(?i)<body\b[^>]*>`)
	baseTag      = regexp.MustCompile(`(?i)<base\b`)
)

// InjectBaseURL adds <base href> so relative references in an HTML string
// resolve against baseURL. Documents that already declare a <base> are
// left unchanged, as are calls with an empty baseURL.
func InjectBaseURL(htmlContent, baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" || baseTag.MatchString(htmlContent) {
		return htmlContent
	}

	tag := `<base href="` + html.EscapeString(baseURL) + `">`

	if pos := afterOpeningTag(htmlContent, headTag); pos != -1 {
		return htmlContent[:pos] + tag + htmlContent[pos:]
	}
	if pos := afterOpeningTag(htmlContent, htmlTag); pos != -1 {
		return htmlContent[:pos] + "<head>" + tag + "</head>" + htmlContent[pos:]
	}
	return tag + htmlContent
}

// afterOpeningTag returns the index just past the first match of tag, or -1.
func afterOpeningTag(htmlContent string, tag *regexp.Regexp) int {
	loc := tag.FindStringIndex(htmlContent)
	if loc == nil {
		return -1
	}
	return loc[1]
}

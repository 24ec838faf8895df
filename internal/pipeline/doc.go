// Package pipeline prepares documents before they reach the browser.
//
// Stages, each skipped when it does not apply:
//   - Markdown preprocessing (line normalization, ==highlight== syntax)
//   - Markdown to HTML conversion via Goldmark (GFM, syntax highlighting)
//   - Relative path rewriting to file:// URLs for local documents
//   - <base href> injection for HTML strings with remote references
//   - CSS injection
//
// PDF generation is handled by the root ezpdf package.
package pipeline

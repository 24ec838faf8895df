package ezpdf

import (
	"context"

	"github.com/go-rod/rod"
)

// Page is the live browser tab handed to render hooks.
type Page interface {
	// Eval runs a JavaScript function or expression in the page.
	Eval(ctx context.Context, js string) error

	// WaitSelector blocks until an element matching the CSS selector exists.
	WaitSelector(ctx context.Context, selector string) error

	// Rod returns the underlying go-rod page for anything else.
	// Hooks must not close it.
	Rod() *rod.Page
}

// browserLauncher starts a browser. Implementations return a handle that
// owns the browser process.
type browserLauncher interface {
	launch(ctx context.Context) (browserHandle, error)
}

// browserHandle is a running browser able to open pages.
type browserHandle interface {
	newPage(ctx context.Context) (pageHandle, error)
	close() error
}

// pageHandle is a single tab, used for exactly one render call.
type pageHandle interface {
	Page

	setContent(ctx context.Context, html string) error
	navigate(ctx context.Context, url string) error

	// interceptNavigation merges headers into main-frame document requests
	// until the returned release function is called.
	interceptNavigation(headers map[string]string) (release func() error, err error)

	printPDF(ctx context.Context, opts *PDFOptions) ([]byte, error)
	close() error
}

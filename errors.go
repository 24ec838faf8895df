package ezpdf

import "errors"

// Sentinel errors for library operations.
var (
	ErrBrowserFetch   = errors.New("failed to fetch browser")
	ErrBrowserLaunch  = errors.New("failed to launch browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrContentLoad    = errors.New("failed to set page content")
	ErrNavigation     = errors.New("navigation failed")
	ErrInterception   = errors.New("request interception failed")
	ErrPDFGeneration  = errors.New("PDF generation failed")
	ErrEmptyPDF       = errors.New("PDF generation produced no output")
	ErrHook           = errors.New("render hook failed")
	ErrRendererClosed = errors.New("renderer is closed")
	ErrEmptyURL       = errors.New("URL cannot be empty")

	// ErrBrowserInvariant means initialization reported success without
	// leaving a browser handle behind. It is a programming error.
	ErrBrowserInvariant = errors.New("browser handle missing after initialization")

	// Page settings validation errors.
	ErrInvalidPageSize    = errors.New("invalid page size")
	ErrInvalidOrientation = errors.New("invalid orientation")
	ErrInvalidMargin      = errors.New("invalid margin")
)

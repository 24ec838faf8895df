package main

import (
	"errors"
	"os"

	ezpdf "github.com/alnah/go-ezpdf"
	"github.com/alnah/go-ezpdf/internal/config"
	"github.com/alnah/go-ezpdf/internal/pdfinfo"
)

// Exit codes for the ezpdf CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Successful render
	ExitGeneral = 1 // General/unexpected error, unhealthy browser
	ExitUsage   = 2 // Invalid flags, config, or validation
	ExitIO      = 3 // File not found, permission denied
	ExitBrowser = 4 // Browser/Chrome errors
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Browser errors (exit 4)
	if errors.Is(err, ezpdf.ErrBrowserFetch) ||
		errors.Is(err, ezpdf.ErrBrowserLaunch) ||
		errors.Is(err, ezpdf.ErrBrowserInvariant) ||
		errors.Is(err, ezpdf.ErrPageCreate) ||
		errors.Is(err, ezpdf.ErrContentLoad) ||
		errors.Is(err, ezpdf.ErrNavigation) ||
		errors.Is(err, ezpdf.ErrInterception) ||
		errors.Is(err, ezpdf.ErrPDFGeneration) ||
		errors.Is(err, ezpdf.ErrEmptyPDF) ||
		errors.Is(err, pdfinfo.ErrInvalidPDF) {
		return ExitBrowser
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadInput) ||
		errors.Is(err, ErrReadCSS) ||
		errors.Is(err, ErrWritePDF) ||
		errors.Is(err, ErrNoInput) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidField) ||
		errors.Is(err, ezpdf.ErrEmptyURL) ||
		errors.Is(err, ezpdf.ErrInvalidPageSize) ||
		errors.Is(err, ezpdf.ErrInvalidOrientation) ||
		errors.Is(err, ezpdf.ErrInvalidMargin) ||
		errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrUnknownCommand) ||
		errors.Is(err, ErrInvalidHeader) ||
		errors.Is(err, ErrInvalidWorkerCount) ||
		errors.Is(err, ErrUnsupportedInput) ||
		errors.Is(err, ErrOutputTarget) {
		return ExitUsage
	}

	return ExitGeneral
}

package ezpdf

import (
	"context"
	"io"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"
)

// PDFOptions is forwarded verbatim to the browser's print-to-PDF call.
// A nil value uses the browser defaults.
type PDFOptions = proto.PagePrintToPDF

// Hook runs against the live page at a fixed point of a render call.
// Returning an error aborts the remaining steps of that call.
type Hook func(ctx context.Context, page Page) error

// RenderOptions customizes a single render call. The zero value and nil
// are both valid.
type RenderOptions struct {
	// BeforePageLoad runs after the page is opened, before content is loaded.
	BeforePageLoad Hook

	// BeforePDF runs after content is loaded, before printing.
	BeforePDF Hook

	// AfterPDF runs after the PDF bytes have been produced.
	AfterPDF Hook

	// RequestHeaders are merged into the top-level navigation request of
	// RenderURL. Sub-resource requests are left untouched. Ignored by
	// RenderHTML.
	RequestHeaders map[string]string
}

func (o *RenderOptions) beforePageLoad() Hook {
	if o == nil {
		return nil
	}
	return o.BeforePageLoad
}

func (o *RenderOptions) beforePDF() Hook {
	if o == nil {
		return nil
	}
	return o.BeforePDF
}

func (o *RenderOptions) afterPDF() Hook {
	if o == nil {
		return nil
	}
	return o.AfterPDF
}

func (o *RenderOptions) headers() map[string]string {
	if o == nil {
		return nil
	}
	return o.RequestHeaders
}

// LaunchConfig customizes the browser launcher before the first launch.
type LaunchConfig func(l *launcher.Launcher)

// Option configures a Renderer.
type Option func(*Renderer)

// rendererConfig holds the settings applied when the browser is launched.
type rendererConfig struct {
	launchConfig LaunchConfig
	browserBin   string
	noSandbox    bool
	revision     int
}

// WithLaunchConfig registers a callback that adjusts the launcher
// (flags, proxy, user data dir) before the browser starts.
func WithLaunchConfig(fn LaunchConfig) Option {
	return func(r *Renderer) {
		r.cfg.launchConfig = fn
	}
}

// WithBrowserBin uses the given Chrome/Chromium executable instead of
// looking one up or downloading it.
func WithBrowserBin(path string) Option {
	return func(r *Renderer) {
		r.cfg.browserBin = path
	}
}

// WithNoSandbox disables the Chrome sandbox (containers, CI).
func WithNoSandbox(disable bool) Option {
	return func(r *Renderer) {
		r.cfg.noSandbox = disable
	}
}

// WithBrowserRevision pins the Chromium revision downloaded when no local
// browser is found. Zero keeps the go-rod default.
func WithBrowserRevision(revision int) Option {
	return func(r *Renderer) {
		r.cfg.revision = revision
	}
}

// WithLogger sets the logger used for browser and page lifecycle events.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.log = logger
		}
	}
}

// withLauncher replaces the browser launcher (tests).
func withLauncher(l browserLauncher) Option {
	return func(r *Renderer) {
		r.launcher = l
	}
}

// discardLogger returns a logger that drops every entry.
func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

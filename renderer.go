package ezpdf

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Renderer converts HTML strings and web pages to PDF using a shared
// headless browser. The browser is launched on first use and kept until
// Close. Render calls are safe for concurrent use; each one runs on its
// own page.
type Renderer struct {
	cfg           rendererConfig
	log           logrus.FieldLogger
	launcher      browserLauncher
	healthTimeout time.Duration

	launches singleflight.Group

	mu      sync.Mutex // guards browser and closed; never held during a launch
	browser browserHandle
	closed  bool
}

// NewRenderer creates a Renderer. No browser is started until the first
// render call.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		log:           discardLogger(),
		healthTimeout: HealthCheckTimeout,
	}

	for _, opt := range opts {
		opt(r)
	}

	// Create the rod launcher if not injected (e.g., by tests)
	if r.launcher == nil {
		r.launcher = &rodLauncher{cfg: r.cfg, log: r.log}
	}

	return r
}

// RenderHTML loads html into a fresh page and prints it to PDF.
// RequestHeaders in opts are ignored since no navigation takes place.
func (r *Renderer) RenderHTML(ctx context.Context, html string, opts *RenderOptions, pdfOpts *PDFOptions) ([]byte, error) {
	return r.render(ctx, opts, pdfOpts, nil, func(ctx context.Context, page pageHandle) error {
		if err := page.setContent(ctx, html); err != nil {
			return fmt.Errorf("%w: %v", ErrContentLoad, err)
		}
		return nil
	})
}

// RenderURL navigates a fresh page to url and prints it to PDF.
// HTTP error statuses on the main document fail the call with ErrNavigation.
func (r *Renderer) RenderURL(ctx context.Context, url string, opts *RenderOptions, pdfOpts *PDFOptions) ([]byte, error) {
	if url == "" {
		return nil, ErrEmptyURL
	}

	var prepare func(pageHandle) (func() error, error)
	if headers := opts.headers(); len(headers) > 0 {
		prepare = func(page pageHandle) (func() error, error) {
			release, err := page.interceptNavigation(headers)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInterception, err)
			}
			return release, nil
		}
	}

	return r.render(ctx, opts, pdfOpts, prepare, func(ctx context.Context, page pageHandle) error {
		if err := page.navigate(ctx, url); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrNavigation, url, err)
		}
		return nil
	})
}

// render runs the shared page lifecycle. prepare, when set, runs right
// after the page is opened and returns a release func that is called
// before the page is closed. load fills the page with content.
func (r *Renderer) render(
	ctx context.Context,
	opts *RenderOptions,
	pdfOpts *PDFOptions,
	prepare func(pageHandle) (func() error, error),
	load func(context.Context, pageHandle) error,
) (_ []byte, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	browser, err := r.acquireBrowser(ctx)
	if err != nil {
		return nil, err
	}

	page, err := browser.newPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer func() {
		err = r.closePage(page, err)
	}()

	if prepare != nil {
		release, err := prepare(page)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := release(); err != nil {
				r.log.WithError(err).Warn("releasing request interception")
			}
		}()
	}

	if err := runHook(ctx, "before page load", opts.beforePageLoad(), page); err != nil {
		return nil, err
	}

	if err := load(ctx, page); err != nil {
		return nil, err
	}

	if err := runHook(ctx, "before pdf", opts.beforePDF(), page); err != nil {
		return nil, err
	}

	pdf, err := page.printPDF(ctx, pdfOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	if len(pdf) == 0 {
		return nil, ErrEmptyPDF
	}

	if err := runHook(ctx, "after pdf", opts.afterPDF(), page); err != nil {
		return nil, err
	}

	return pdf, nil
}

// runHook invokes hook if set. Hook errors keep their identity for errors.Is.
func runHook(ctx context.Context, stage string, hook Hook, page Page) error {
	if hook == nil {
		return nil
	}
	if err := hook(ctx, page); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrHook, stage, err)
	}
	return nil
}

// closePage closes page and joins a close failure onto renderErr. When the
// render itself succeeded the failure is only logged so the PDF is kept.
func (r *Renderer) closePage(page pageHandle, renderErr error) error {
	closeErr := page.close()
	if closeErr == nil {
		return renderErr
	}
	if renderErr == nil {
		r.log.WithError(closeErr).Warn("closing page")
		return nil
	}
	return errors.Join(renderErr, fmt.Errorf("closing page: %w", closeErr))
}

// HealthCheck checks the browser by opening (and, when testURI is set,
// navigating) a short-lived page. It returns HealthUnknown if the browser
// has not finished launching, without waiting for a launch in progress.
// The check is bounded by HealthCheckTimeout.
func (r *Renderer) HealthCheck(ctx context.Context, testURI string) Health {
	r.mu.Lock()
	browser := r.browser
	r.mu.Unlock()

	if browser == nil {
		return HealthUnknown
	}

	ctx, cancel := context.WithTimeout(ctx, r.healthTimeout)
	defer cancel()

	if err := r.checkPage(ctx, browser, testURI); err != nil {
		r.log.WithError(err).WithField("uri", testURI).Debug("health check failed")
		return HealthUnhealthy
	}
	return HealthHealthy
}

func (r *Renderer) checkPage(ctx context.Context, browser browserHandle, testURI string) (err error) {
	page, err := browser.newPage(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer func() {
		err = errors.Join(err, page.close())
	}()

	if testURI != "" {
		if err := page.navigate(ctx, testURI); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrNavigation, testURI, err)
		}
	}
	return nil
}

// acquireBrowser returns the shared browser, launching it on first use.
func (r *Renderer) acquireBrowser(ctx context.Context) (browserHandle, error) {
	if err := r.initBrowser(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRendererClosed
	}
	if r.browser == nil {
		return nil, ErrBrowserInvariant
	}
	return r.browser, nil
}

// initBrowser launches the browser once. Concurrent first calls share one
// launch and each stops waiting when its own ctx is done. The launch itself
// is detached from ctx cancellation so a caller giving up does not fail the
// others. A failed launch leaves the handle unset and a later call retries.
func (r *Renderer) initBrowser(ctx context.Context) error {
	r.mu.Lock()
	closed, ready := r.closed, r.browser != nil
	r.mu.Unlock()

	if closed {
		return ErrRendererClosed
	}
	if ready {
		return nil
	}

	launched := r.launches.DoChan("browser", func() (any, error) {
		return nil, r.launch(context.WithoutCancel(ctx))
	})
	select {
	case res := <-launched:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Renderer) launch(ctx context.Context) error {
	// An earlier launch may have finished after the caller's check.
	r.mu.Lock()
	closed, ready := r.closed, r.browser != nil
	r.mu.Unlock()
	if closed {
		return ErrRendererClosed
	}
	if ready {
		return nil
	}

	start := time.Now()
	browser, err := r.launcher.launch(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		// Close ran while the browser was starting.
		if browser != nil {
			if cerr := browser.close(); cerr != nil {
				r.log.WithError(cerr).Warn("closing browser launched after Close")
			}
		}
		return ErrRendererClosed
	}
	r.browser = browser
	r.mu.Unlock()

	r.log.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Debug("browser ready")
	return nil
}

// Close releases the browser and every page it still holds. It is safe to
// call more than once. Render calls made after Close fail with
// ErrRendererClosed.
func (r *Renderer) Close() error {
	r.mu.Lock()
	browser := r.browser
	r.browser = nil
	r.closed = true
	r.mu.Unlock()

	if browser == nil {
		return nil
	}
	return browser.close()
}

// CloseAsync runs Close in the background. The returned channel yields
// Close's result and is then closed.
func (r *Renderer) CloseAsync() <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- r.Close()
	}()
	return done
}

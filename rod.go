package ezpdf

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"

	"github.com/alnah/go-ezpdf/internal/process"
)

// Compile-time interface checks
var (
	_ browserLauncher = (*rodLauncher)(nil)
	_ browserHandle   = (*rodBrowser)(nil)
	_ pageHandle      = (*rodPage)(nil)
)

// navigationStatusJS reads the HTTP status of the main document.
// Returns 0 when the browser does not expose it (file://, about:blank).
const navigationStatusJS = `() => {
	const entry = performance.getEntriesByType('navigation')[0];
	return entry && entry.responseStatus ? entry.responseStatus : 0;
}`

// rodLauncher starts Chromium with go-rod.
// Rod downloads a managed Chromium if no local browser is found.
type rodLauncher struct {
	cfg rendererConfig
	log logrus.FieldLogger
}

func (l *rodLauncher) launch(ctx context.Context) (browserHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lc := launcher.New().Headless(true)

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		lc = lc.Bin(bin)
	}
	if l.cfg.browserBin != "" {
		lc = lc.Bin(l.cfg.browserBin)
	}

	// NoSandbox required for CI and containerized environments
	if l.cfg.noSandbox || os.Getenv("ROD_NO_SANDBOX") == "1" || os.Getenv("CI") == "true" {
		lc = lc.NoSandbox(true)
	}

	if l.cfg.launchConfig != nil {
		l.cfg.launchConfig(lc)
	}

	if err := l.ensureBinary(lc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserFetch, err)
	}

	u, err := lc.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserLaunch, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		lc.Kill()
		return nil, fmt.Errorf("%w: %v", ErrBrowserLaunch, err)
	}

	l.log.WithFields(logrus.Fields{
		"pid": lc.PID(),
		"bin": lc.Get(flags.Bin),
	}).Debug("browser launched")

	return &rodBrowser{browser: browser, launcher: lc}, nil
}

// ensureBinary makes sure the launcher points at an executable, looking up
// a system browser first and downloading one as a last resort.
func (l *rodLauncher) ensureBinary(lc *launcher.Launcher) error {
	if lc.Get(flags.Bin) != "" {
		return nil
	}

	if path, found := launcher.LookPath(); found {
		lc.Bin(path)
		return nil
	}

	fetcher := launcher.NewBrowser()
	if l.cfg.revision > 0 {
		fetcher.Revision = l.cfg.revision
	}
	l.log.WithField("revision", fetcher.Revision).Info("downloading browser")

	path, err := fetcher.Get()
	if err != nil {
		return err
	}
	lc.Bin(path)
	return nil
}

// rodBrowser owns a launched Chromium process.
type rodBrowser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
}

func (b *rodBrowser) newPage(ctx context.Context) (pageHandle, error) {
	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, err
	}
	// Detach from the caller's context so the page can always be closed.
	return &rodPage{page: page.Context(context.Background())}, nil
}

func (b *rodBrowser) close() error {
	err := b.browser.Close()

	// Chrome may leave GPU/renderer children behind; kill the whole group.
	if pid := b.launcher.PID(); pid > 0 {
		process.KillProcessGroup(pid)
	}
	b.launcher.Kill()
	b.launcher.Cleanup()

	return err
}

// rodPage adapts a go-rod page to pageHandle.
type rodPage struct {
	page *rod.Page
}

func (p *rodPage) Rod() *rod.Page {
	return p.page
}

func (p *rodPage) Eval(ctx context.Context, js string) error {
	_, err := p.page.Context(ctx).Eval(js)
	return err
}

func (p *rodPage) WaitSelector(ctx context.Context, selector string) error {
	_, err := p.page.Context(ctx).Element(selector)
	return err
}

func (p *rodPage) setContent(ctx context.Context, html string) error {
	page := p.page.Context(ctx)
	if err := page.SetDocumentContent(html); err != nil {
		return err
	}
	return page.WaitLoad()
}

func (p *rodPage) navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return err
	}
	if err := page.WaitLoad(); err != nil {
		return err
	}

	res, err := page.Eval(navigationStatusJS)
	if err != nil {
		return fmt.Errorf("reading response status: %w", err)
	}
	if status := res.Value.Int(); status >= 400 {
		return fmt.Errorf("server responded with HTTP %d", status)
	}
	return nil
}

func (p *rodPage) interceptNavigation(headers map[string]string) (func() error, error) {
	return interceptNavigation(p.page, headers)
}

func (p *rodPage) printPDF(ctx context.Context, opts *PDFOptions) ([]byte, error) {
	// Copy so the caller's options are not mutated by go-rod.
	req := PDFOptions{}
	if opts != nil {
		req = *opts
	}

	reader, err := p.page.Context(ctx).PDF(&req)
	if err != nil {
		return nil, err
	}

	pdf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading PDF stream: %w", err)
	}
	return pdf, nil
}

func (p *rodPage) close() error {
	return p.page.Close()
}

package ezpdf

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-rod/rod"
)

// Compile-time interface checks
var (
	_ browserLauncher = (*fakeLauncher)(nil)
	_ browserHandle   = (*fakeBrowser)(nil)
	_ pageHandle      = (*fakePage)(nil)
)

var fakePDF = []byte("%PDF-1.7\nfake\n%%EOF")

// fakeLauncher counts launches. The first failures launches return err.
// When gate is set, launches block until it is closed.
type fakeLauncher struct {
	mu        sync.Mutex
	launches  int
	failures  int
	err       error
	nilHandle bool
	delay     time.Duration
	gate      chan struct{}
	started   chan struct{}
	browser   *fakeBrowser
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{browser: &fakeBrowser{}}
}

func (l *fakeLauncher) launch(ctx context.Context) (browserHandle, error) {
	l.mu.Lock()
	l.launches++
	n := l.launches
	l.mu.Unlock()

	if l.started != nil && n == 1 {
		close(l.started)
	}
	if l.gate != nil {
		<-l.gate
	}
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	if n <= l.failures {
		return nil, l.err
	}
	if l.nilHandle {
		return nil, nil
	}
	return l.browser, nil
}

func (l *fakeLauncher) launchCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launches
}

// fakeBrowser hands out fakePages. configure, when set, adjusts each page
// before it is returned.
type fakeBrowser struct {
	mu         sync.Mutex
	pages      []*fakePage
	newPageErr error
	closeErr   error
	closes     int
	configure  func(p *fakePage)
}

func (b *fakeBrowser) newPage(ctx context.Context) (pageHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.newPageErr != nil {
		return nil, b.newPageErr
	}
	p := &fakePage{pdf: fakePDF}
	if b.configure != nil {
		b.configure(p)
	}
	b.pages = append(b.pages, p)
	return p, nil
}

func (b *fakeBrowser) close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closes++
	return b.closeErr
}

func (b *fakeBrowser) setConfigure(fn func(p *fakePage)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.configure = fn
}

func (b *fakeBrowser) lastPage() *fakePage {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pages) == 0 {
		return nil
	}
	return b.pages[len(b.pages)-1]
}

func (b *fakeBrowser) pageCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pages)
}

func (b *fakeBrowser) closeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closes
}

// fakePage records every call in order.
type fakePage struct {
	mu sync.Mutex

	setContentErr error
	navigateErr   error
	interceptErr  error
	releaseErr    error
	pdfErr        error
	closeErr      error
	pdf           []byte
	blockNavigate bool

	calls    []string
	html     string
	url      string
	headers  map[string]string
	pdfOpts  *PDFOptions
	closes   int
	releases int
}

func (p *fakePage) record(call string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
}

func (p *fakePage) Eval(ctx context.Context, js string) error {
	p.record("eval:" + js)
	return nil
}

func (p *fakePage) WaitSelector(ctx context.Context, selector string) error {
	p.record("wait:" + selector)
	return nil
}

func (p *fakePage) Rod() *rod.Page {
	return nil
}

func (p *fakePage) setContent(ctx context.Context, html string) error {
	p.record("setContent")
	p.mu.Lock()
	p.html = html
	p.mu.Unlock()
	return p.setContentErr
}

func (p *fakePage) navigate(ctx context.Context, url string) error {
	p.record("navigate")
	p.mu.Lock()
	p.url = url
	p.mu.Unlock()
	if p.blockNavigate {
		<-ctx.Done()
		return ctx.Err()
	}
	return p.navigateErr
}

func (p *fakePage) interceptNavigation(headers map[string]string) (func() error, error) {
	p.record("intercept")
	if p.interceptErr != nil {
		return nil, p.interceptErr
	}
	p.mu.Lock()
	p.headers = headers
	p.mu.Unlock()
	return func() error {
		p.record("release")
		p.mu.Lock()
		p.releases++
		p.mu.Unlock()
		return p.releaseErr
	}, nil
}

func (p *fakePage) printPDF(ctx context.Context, opts *PDFOptions) ([]byte, error) {
	p.record("printPDF")
	p.mu.Lock()
	p.pdfOpts = opts
	p.mu.Unlock()
	if p.pdfErr != nil {
		return nil, p.pdfErr
	}
	return p.pdf, nil
}

func (p *fakePage) close() error {
	p.record("close")
	p.mu.Lock()
	p.closes++
	p.mu.Unlock()
	return p.closeErr
}

func (p *fakePage) callLog() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *fakePage) closeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes
}

func (p *fakePage) releaseCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.releases
}

var errFake = errors.New("fake failure")

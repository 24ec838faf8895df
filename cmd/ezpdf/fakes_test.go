package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	ezpdf "github.com/alnah/go-ezpdf"
)

const fakePDF = "%PDF-1.7\nfake\n%%EOF"

var errFake = errors.New("fake failure")

// renderCall records one render request.
type renderCall struct {
	method  string // "html" or "url"
	target  string // HTML content or URL
	headers map[string]string
	pdfOpts *ezpdf.PDFOptions
	body    string // file content behind a file:// URL, read during the call
}

// fakeRenderer is an in-memory Renderer.
type fakeRenderer struct {
	mu        sync.Mutex
	calls     []renderCall
	err       error            // returned by every render
	errFor    map[string]error // by URL
	health    ezpdf.Health
	healthURI string
	closes    int
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{health: ezpdf.HealthHealthy}
}

func (f *fakeRenderer) RenderHTML(_ context.Context, html string, opts *ezpdf.RenderOptions, pdfOpts *ezpdf.PDFOptions) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, renderCall{method: "html", target: html, headers: headersOf(opts), pdfOpts: pdfOpts})
	if f.err != nil {
		return nil, f.err
	}
	return []byte(fakePDF), nil
}

func (f *fakeRenderer) RenderURL(_ context.Context, url string, opts *ezpdf.RenderOptions, pdfOpts *ezpdf.PDFOptions) ([]byte, error) {
	body := readFileURL(url)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, renderCall{method: "url", target: url, headers: headersOf(opts), pdfOpts: pdfOpts, body: body})
	if err := f.errFor[url]; err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return []byte(fakePDF), nil
}

func (f *fakeRenderer) HealthCheck(_ context.Context, testURI string) ezpdf.Health {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.healthURI = testURI
	return f.health
}

func (f *fakeRenderer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeRenderer) callLog() []renderCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]renderCall(nil), f.calls...)
}

func headersOf(opts *ezpdf.RenderOptions) map[string]string {
	if opts == nil {
		return nil
	}
	return opts.RequestHeaders
}

// fakePool hands out a single shared fakeRenderer.
type fakePool struct {
	renderer *fakeRenderer
	size     int
	nilOnce  bool // Acquire returns nil (closed pool)
	opts     []ezpdf.Option

	mu       sync.Mutex
	acquires int
	releases int
	closed   bool
}

func (p *fakePool) Acquire() Renderer {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.acquires++
	if p.nilOnce {
		return nil
	}
	return p.renderer
}

func (p *fakePool) Release(Renderer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releases++
}

func (p *fakePool) Size() int { return p.size }

func (p *fakePool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// testEnv wires buffers and fakes into an Environment.
type testEnv struct {
	*Environment
	stdout   *bytes.Buffer
	stderr   *bytes.Buffer
	renderer *fakeRenderer
	pool     *fakePool
	vars     map[string]string
}

func newTestEnv() *testEnv {
	te := &testEnv{
		stdout:   &bytes.Buffer{},
		stderr:   &bytes.Buffer{},
		renderer: newFakeRenderer(),
		vars:     map[string]string{},
	}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	te.Environment = &Environment{
		Now:    func() time.Time { return now },
		Stdout: te.stdout,
		Stderr: te.stderr,
		Stdin:  strings.NewReader(""),
		Getenv: func(k string) string { return te.vars[k] },
		NewPool: func(size int, opts ...ezpdf.Option) Pool {
			te.pool = &fakePool{renderer: te.renderer, size: size, opts: opts}
			return te.pool
		},
		NewRenderer: func(...ezpdf.Option) Renderer { return te.renderer },
	}
	return te
}

func (te *testEnv) withStdin(s string) *testEnv {
	te.Stdin = io.Reader(strings.NewReader(s))
	return te
}

// readFileURL returns the content behind a file:// URL, or "".
// The CLI deletes its temp file after the render, so the fake reads it
// while the call is in progress.
func readFileURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "file" {
		return ""
	}
	data, err := os.ReadFile(u.Path)
	if err != nil {
		return ""
	}
	return string(data)
}

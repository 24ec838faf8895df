package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	ezpdf "github.com/alnah/go-ezpdf"
	"github.com/alnah/go-ezpdf/internal/pdfinfo"
)

func TestRunRender_HTMLFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, "page.html")
	if err := os.WriteFile(filepath.Join(dir, "page.html"), []byte(`<html><head></head><body><img src="logo.png"></body></html>`), 0o600); err != nil {
		t.Fatal(err)
	}
	cssPath := filepath.Join(dir, "style.css")
	if err := os.WriteFile(cssPath, []byte("body { color: red; }"), 0o600); err != nil {
		t.Fatal(err)
	}

	te := newTestEnv()
	err := runRender(context.Background(), []string{"--css", cssPath, "-H", "X-Ignored: 1", filepath.Join(dir, "page.html")}, te.Environment)
	if err != nil {
		t.Fatalf("runRender() error = %v", err)
	}

	out, err := os.ReadFile(filepath.Join(dir, "page.pdf"))
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if string(out) != fakePDF {
		t.Errorf("output = %q, want fake PDF", out)
	}

	calls := te.renderer.callLog()
	if len(calls) != 1 {
		t.Fatalf("len(calls) = %d, want 1", len(calls))
	}
	c := calls[0]
	if c.method != "url" || !strings.HasPrefix(c.target, "file://") {
		t.Errorf("call = %s %s, want url file://...", c.method, c.target)
	}
	if c.headers != nil {
		t.Errorf("local files must not carry request headers, got %v", c.headers)
	}
	if !strings.Contains(c.body, "color: red") {
		t.Error("CSS not injected into rendered document")
	}
	if !strings.Contains(c.body, "file://") || !strings.Contains(c.body, "logo.png") {
		t.Errorf("relative image not rewritten to file URL: %s", c.body)
	}
	if c.pdfOpts == nil || *c.pdfOpts.PaperWidth != 8.5 {
		t.Errorf("pdfOpts = %+v, want letter defaults", c.pdfOpts)
	}
	if !strings.Contains(te.stdout.String(), "Created") {
		t.Errorf("stdout = %q, want Created line", te.stdout.String())
	}
	if !te.pool.closed {
		t.Error("pool not closed")
	}
	if te.pool.size != 1 {
		t.Errorf("pool size = %d, want 1 for a single document", te.pool.size)
	}
}

func TestRunRender_ValidateRejectsMalformedPDF(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "page.html")
	if err := os.WriteFile(input, []byte("<p>x</p>"), 0o600); err != nil {
		t.Fatal(err)
	}

	te := newTestEnv()
	err := runRender(context.Background(), []string{"--validate", input}, te.Environment)

	// The fake renderer's bytes only look like a PDF.
	if !errors.Is(err, pdfinfo.ErrInvalidPDF) {
		t.Fatalf("runRender() error = %v, want ErrInvalidPDF", err)
	}
	if code := exitCodeFor(err); code != ExitBrowser {
		t.Errorf("exit code = %d, want %d", code, ExitBrowser)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "page.pdf")); !errors.Is(statErr, os.ErrNotExist) {
		t.Errorf("invalid PDF was written (stat error = %v)", statErr)
	}
}

func TestRunRender_Markdown(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "notes.md")
	if err := os.WriteFile(input, []byte("# Notes\n\nSome *text*."), 0o600); err != nil {
		t.Fatal(err)
	}

	te := newTestEnv()
	out := filepath.Join(dir, "pdf", "notes.pdf")
	if err := runRender(context.Background(), []string{input, "-o", out, "-p", "a4", "--orientation", "landscape"}, te.Environment); err != nil {
		t.Fatalf("runRender() error = %v", err)
	}

	if _, err := os.Stat(out); err != nil {
		t.Fatalf("output not written: %v", err)
	}
	c := te.renderer.callLog()[0]
	if !strings.Contains(c.body, "<h1") || !strings.Contains(c.body, "<em>text</em>") {
		t.Errorf("markdown not converted: %s", c.body)
	}
	if !c.pdfOpts.Landscape || *c.pdfOpts.PaperWidth != 8.27 {
		t.Errorf("pdfOpts = %+v, want a4 landscape", c.pdfOpts)
	}
}

func TestRunRender_URLWithHeaders(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "cfg.yaml")
	cfg := "request:\n  headers:\n    Authorization: Bearer config\n    X-Config: keep\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}

	te := newTestEnv()
	out := filepath.Join(dir, "site.pdf")
	err := runRender(context.Background(), []string{
		"-c", cfgPath, "-H", "authorization: Bearer flag", "https://example.com/page", "-o", out,
	}, te.Environment)
	if err != nil {
		t.Fatalf("runRender() error = %v", err)
	}

	c := te.renderer.callLog()[0]
	if c.method != "url" || c.target != "https://example.com/page" {
		t.Errorf("call = %s %s", c.method, c.target)
	}
	want := map[string]string{"authorization": "Bearer flag", "X-Config": "keep"}
	if len(c.headers) != len(want) {
		t.Fatalf("headers = %v, want %v", c.headers, want)
	}
	for k, v := range want {
		if c.headers[k] != v {
			t.Errorf("headers[%q] = %q, want %q", k, c.headers[k], v)
		}
	}
}

func TestRunRender_Stdin(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	te := newTestEnv().withStdin("# From stdin")
	out := filepath.Join(dir, "stdin.pdf")

	if err := runRender(context.Background(), []string{"-", "--markdown", "-o", out}, te.Environment); err != nil {
		t.Fatalf("runRender() error = %v", err)
	}

	c := te.renderer.callLog()[0]
	if c.method != "html" {
		t.Fatalf("method = %s, want html", c.method)
	}
	if !strings.Contains(c.target, "From stdin") || !strings.Contains(c.target, "<h1") {
		t.Errorf("stdin markdown not rendered: %s", c.target)
	}
}

func TestRunRender_Batch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, "a.html", "b.html", "c.md")
	out := filepath.Join(t.TempDir(), "out")

	te := newTestEnv()
	if err := runRender(context.Background(), []string{dir, "-o", out, "-w", "2"}, te.Environment); err != nil {
		t.Fatalf("runRender() error = %v", err)
	}

	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
	if te.pool.size != 2 {
		t.Errorf("pool size = %d, want 2", te.pool.size)
	}
	if te.pool.acquires != te.pool.releases {
		t.Errorf("acquires = %d, releases = %d", te.pool.acquires, te.pool.releases)
	}
	if !strings.Contains(te.stdout.String(), "3 succeeded, 0 failed") {
		t.Errorf("stdout = %q, want summary", te.stdout.String())
	}
}

func TestRunRender_Failures(t *testing.T) {
	t.Parallel()

	t.Run("single failure is returned as is", func(t *testing.T) {
		t.Parallel()

		te := newTestEnv()
		te.renderer.err = fmt.Errorf("%w: status 500", ezpdf.ErrNavigation)
		err := runRender(context.Background(), []string{"https://example.com", "-o", filepath.Join(t.TempDir(), "x.pdf")}, te.Environment)
		if !errors.Is(err, ezpdf.ErrNavigation) {
			t.Errorf("error = %v, want ErrNavigation", err)
		}
		if exitCodeFor(err) != ExitBrowser {
			t.Errorf("exit code = %d, want %d", exitCodeFor(err), ExitBrowser)
		}
	})

	t.Run("partial batch failure", func(t *testing.T) {
		t.Parallel()

		te := newTestEnv()
		te.renderer.errFor = map[string]error{"https://bad.example": ezpdf.ErrNavigation}
		out := t.TempDir()
		err := runRender(context.Background(), []string{"https://good.example", "https://bad.example", "-o", out}, te.Environment)
		if !errors.Is(err, ErrRenderFailed) {
			t.Fatalf("error = %v, want ErrRenderFailed", err)
		}
		if _, statErr := os.Stat(filepath.Join(out, "good.example.pdf")); statErr != nil {
			t.Errorf("successful document not written: %v", statErr)
		}
		if !strings.Contains(te.stderr.String(), "FAILED https://bad.example") {
			t.Errorf("stderr = %q, want FAILED line", te.stderr.String())
		}
		if !strings.Contains(te.stdout.String(), "1 succeeded, 1 failed") {
			t.Errorf("stdout = %q, want summary", te.stdout.String())
		}
	})

	t.Run("closed pool fails every job", func(t *testing.T) {
		t.Parallel()

		te := newTestEnv()
		newPool := te.NewPool
		te.NewPool = func(size int, opts ...ezpdf.Option) Pool {
			p := newPool(size, opts...).(*fakePool)
			p.nilOnce = true
			return p
		}
		err := runRender(context.Background(), []string{"https://example.com", "-o", filepath.Join(t.TempDir(), "x.pdf")}, te.Environment)
		if !errors.Is(err, ezpdf.ErrRendererClosed) {
			t.Errorf("error = %v, want ErrRendererClosed", err)
		}
	})

	t.Run("canceled context skips rendering", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		te := newTestEnv()
		err := runRender(ctx, []string{"https://example.com", "-o", filepath.Join(t.TempDir(), "x.pdf")}, te.Environment)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
		if len(te.renderer.callLog()) != 0 {
			t.Error("renderer should not be called")
		}
	})
}

func TestRunRender_ValidationErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, "a.html")
	input := filepath.Join(dir, "a.html")

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{"no input", nil, ErrNoInput},
		{"negative workers", []string{"-w", "-1", input}, ErrInvalidWorkerCount},
		{"too many workers", []string{"-w", "99", input}, ErrInvalidWorkerCount},
		{"bad page size", []string{"-p", "tabloid", input}, ezpdf.ErrInvalidPageSize},
		{"bad margin", []string{"--margin", "2em", input}, ezpdf.ErrInvalidMargin},
		{"bad timeout", []string{"-t", "soon", input}, nil},
		{"bad header", []string{"-H", "nocolon", input}, ErrInvalidHeader},
		{"missing css", []string{"--css", filepath.Join(dir, "nope.css"), input}, ErrReadCSS},
		{"missing config", []string{"-c", filepath.Join(dir, "nope.yaml"), input}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			te := newTestEnv()
			err := runRender(context.Background(), tt.args, te.Environment)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && exitCodeFor(err) != ExitUsage {
				t.Errorf("exit code = %d, want %d (%v)", exitCodeFor(err), ExitUsage, err)
			}
			if len(te.renderer.callLog()) != 0 {
				t.Error("renderer should not be called")
			}
		})
	}
}

func TestRunRender_TimeoutFromEnv(t *testing.T) {
	t.Parallel()

	te := newTestEnv()
	te.vars[envTimeout] = "nonsense"
	err := runRender(context.Background(), []string{"https://example.com"}, te.Environment)
	if exitCodeFor(err) != ExitUsage {
		t.Errorf("error = %v, want usage error from EZPDF_TIMEOUT", err)
	}
}

func TestMergeHeaderMaps(t *testing.T) {
	t.Parallel()

	if got := mergeHeaderMaps(nil, nil); got != nil {
		t.Errorf("mergeHeaderMaps(nil, nil) = %v, want nil", got)
	}

	got := mergeHeaderMaps(
		map[string]string{"Authorization": "a", "X-Keep": "k"},
		map[string]string{"AUTHORIZATION": "b"},
	)
	if len(got) != 2 || got["AUTHORIZATION"] != "b" || got["X-Keep"] != "k" {
		t.Errorf("mergeHeaderMaps() = %v", got)
	}
}

func TestValidateWorkers(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, ezpdf.MaxPoolSize} {
		if err := validateWorkers(n); err != nil {
			t.Errorf("validateWorkers(%d) = %v, want nil", n, err)
		}
	}
	for _, n := range []int{-1, ezpdf.MaxPoolSize + 1} {
		if err := validateWorkers(n); !errors.Is(err, ErrInvalidWorkerCount) {
			t.Errorf("validateWorkers(%d) = %v, want ErrInvalidWorkerCount", n, err)
		}
	}
}

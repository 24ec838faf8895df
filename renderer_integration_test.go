//go:build integration

package ezpdf

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-rod/rod/lib/launcher"

	"github.com/alnah/go-ezpdf/internal/pdfinfo"
)

func TestRenderHTML_Integration(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	t.Run("simple document", func(t *testing.T) {
		t.Parallel()

		pdf, err := testRenderer.RenderHTML(ctx, "<h1>Hello, World!</h1>", nil, nil)
		if err != nil {
			t.Fatalf("RenderHTML() error = %v", err)
		}
		assertValidPDF(t, pdf)

		pages, err := pdfinfo.PageCount(pdf)
		if err != nil {
			t.Fatalf("PageCount() error = %v", err)
		}
		if pages != 1 {
			t.Errorf("pages = %d, want 1", pages)
		}
	})

	t.Run("page breaks", func(t *testing.T) {
		t.Parallel()

		html := `<div>one</div>
<div style="break-before: page">two</div>
<div style="break-before: page">three</div>`
		pdf, err := testRenderer.RenderHTML(ctx, html, nil, nil)
		if err != nil {
			t.Fatalf("RenderHTML() error = %v", err)
		}

		pages, err := pdfinfo.PageCount(pdf)
		if err != nil {
			t.Fatalf("PageCount() error = %v", err)
		}
		if pages != 3 {
			t.Errorf("pages = %d, want 3", pages)
		}
	})

	t.Run("page settings", func(t *testing.T) {
		t.Parallel()

		pdfOpts, err := (&PageSettings{Size: PageSizeA4, Orientation: OrientationLandscape, Margin: "10mm"}).ToPDFOptions()
		if err != nil {
			t.Fatalf("ToPDFOptions() error = %v", err)
		}
		pdf, err := testRenderer.RenderHTML(ctx, "<p>landscape</p>", nil, pdfOpts)
		if err != nil {
			t.Fatalf("RenderHTML() error = %v", err)
		}
		assertValidPDF(t, pdf)
	})

	t.Run("hooks see the live page", func(t *testing.T) {
		t.Parallel()

		var title string
		opts := &RenderOptions{
			BeforePDF: func(ctx context.Context, page Page) error {
				if err := page.Eval(ctx, `() => { document.body.insertAdjacentHTML('beforeend', '<p id="stamp">stamped</p>') }`); err != nil {
					return err
				}
				if err := page.WaitSelector(ctx, "#stamp"); err != nil {
					return err
				}
				title = page.Rod().MustInfo().Title
				return nil
			},
		}
		html := `<html><head><title>Hooked</title></head><body><p>body</p></body></html>`
		if _, err := testRenderer.RenderHTML(ctx, html, opts, nil); err != nil {
			t.Fatalf("RenderHTML() error = %v", err)
		}
		if title != "Hooked" {
			t.Errorf("title = %q, want Hooked", title)
		}
	})
}

func TestRenderURL_Integration(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	t.Run("renders page", func(t *testing.T) {
		t.Parallel()

		pdf, err := testRenderer.RenderURL(ctx, testServer.URL+"/page", nil, nil)
		if err != nil {
			t.Fatalf("RenderURL() error = %v", err)
		}
		assertValidPDF(t, pdf)
	})

	t.Run("HTTP error status fails", func(t *testing.T) {
		t.Parallel()

		_, err := testRenderer.RenderURL(ctx, testServer.URL+"/broken", nil, nil)
		if !errors.Is(err, ErrNavigation) {
			t.Errorf("error = %v, want ErrNavigation", err)
		}
		if err != nil && !strings.Contains(err.Error(), "500") {
			t.Errorf("error should mention status, got %q", err)
		}
	})

	t.Run("unreachable host fails", func(t *testing.T) {
		t.Parallel()

		_, err := testRenderer.RenderURL(ctx, "http://127.0.0.1:1/nothing", nil, nil)
		if !errors.Is(err, ErrNavigation) {
			t.Errorf("error = %v, want ErrNavigation", err)
		}
	})
}

// TestRenderURL_HeadersOnlyOnNavigation uses a dedicated marker value so
// concurrent tests hitting the same fixture paths do not interfere.
func TestRenderURL_HeadersOnlyOnNavigation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	const marker = "Bearer integration-marker"
	opts := &RenderOptions{RequestHeaders: map[string]string{"Authorization": marker}}

	if _, err := testRenderer.RenderURL(ctx, testServer.URL+"/redirect", opts, nil); err != nil {
		t.Fatalf("RenderURL() error = %v", err)
	}

	hasMarker := func(path string) bool {
		for _, h := range testServer.headers(path) {
			if h.Get("Authorization") == marker {
				return true
			}
		}
		return false
	}

	if !hasMarker("/redirect") {
		t.Error("navigation request did not carry the header")
	}
	if !hasMarker("/page") {
		t.Error("redirected navigation request did not carry the header")
	}
	for _, sub := range []string{"/style.css", "/pixel.svg"} {
		if len(testServer.headers(sub)) == 0 {
			t.Errorf("%s was never requested", sub)
		}
		if hasMarker(sub) {
			t.Errorf("sub-resource %s carried the navigation header", sub)
		}
	}
}

func TestRenderer_LaunchesOnce_Integration(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	var launches atomic.Int32
	r := NewRenderer(WithLaunchConfig(func(l *launcher.Launcher) {
		launches.Add(1)
	}))
	defer r.Close()

	if h := r.HealthCheck(ctx, ""); h != HealthUnknown {
		t.Errorf("HealthCheck() before launch = %v, want unknown", h)
	}

	for i := 0; i < 3; i++ {
		if _, err := r.RenderHTML(ctx, "<p>again</p>", nil, nil); err != nil {
			t.Fatalf("RenderHTML() #%d error = %v", i, err)
		}
	}
	if got := launches.Load(); got != 1 {
		t.Errorf("launch config ran %d times, want 1", got)
	}

	if h := r.HealthCheck(ctx, ""); h != HealthHealthy {
		t.Errorf("HealthCheck() = %v, want healthy", h)
	}
	if h := r.HealthCheck(ctx, testServer.URL+"/health"); h != HealthHealthy {
		t.Errorf("HealthCheck(uri) = %v, want healthy", h)
	}
	if h := r.HealthCheck(ctx, testServer.URL+"/broken"); h != HealthUnhealthy {
		t.Errorf("HealthCheck(broken uri) = %v, want unhealthy", h)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := r.RenderHTML(ctx, "<p>closed</p>", nil, nil); !errors.Is(err, ErrRendererClosed) {
		t.Errorf("RenderHTML() after Close error = %v, want ErrRendererClosed", err)
	}
}

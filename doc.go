// Package ezpdf renders HTML strings and web pages to PDF using headless
// Chrome.
//
// # Quick Start
//
// Create a renderer, render, and close when done:
//
//	r := ezpdf.NewRenderer()
//	defer r.Close()
//
//	pdf, err := r.RenderHTML(ctx, "<h1>Hello</h1>", nil, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("output.pdf", pdf, 0644)
//
// The browser is launched on the first render call and shared by every
// later call until Close. Each call runs on its own page, so a Renderer is
// safe for concurrent use.
//
// # Rendering a URL
//
// RenderURL navigates to a page and prints it. Headers in
// RenderOptions.RequestHeaders are added to the top-level navigation
// request (and its redirects) only; images, scripts and stylesheets are
// fetched without them:
//
//	pdf, err := r.RenderURL(ctx, "https://intranet/report", &ezpdf.RenderOptions{
//	    RequestHeaders: map[string]string{"Authorization": "Bearer " + token},
//	}, nil)
//
// A main document answered with an HTTP status of 400 or above fails with
// ErrNavigation.
//
// # Hooks
//
// Three hooks run against the live page: BeforePageLoad (page open, no
// content yet), BeforePDF (content loaded) and AfterPDF (bytes produced).
// A hook error aborts the call and is returned wrapped in ErrHook. The
// page is closed on every path.
//
// # Print Options
//
// PDFOptions is go-rod's proto.PagePrintToPDF and is forwarded as is.
// PageSettings builds common options from named sizes and CSS-like margins:
//
//	opts, err := (&ezpdf.PageSettings{Size: "a4", Margin: "10mm"}).ToPDFOptions()
//
// # Health
//
// HealthCheck reports HealthUnknown until the browser has been launched,
// then checks it with a fresh page (optionally loading a test URI) bounded
// by HealthCheckTimeout.
//
// # Parallel Processing
//
// A single Renderer shares one browser. For process isolation in batch
// jobs, use RendererPool:
//
//	pool := ezpdf.NewRendererPool(4)
//	defer pool.Close()
//
//	r := pool.Acquire()
//	defer pool.Release(r)
//
// # Browser Requirements
//
// Rendering requires Chrome/Chromium. A system browser is used when found;
// otherwise go-rod downloads a managed Chromium (~/.cache/rod/browser/).
//
// For containers and CI environments, set ROD_NO_SANDBOX=1 to disable the
// Chrome sandbox. Use ROD_BROWSER_BIN to specify a custom Chrome binary.
package ezpdf

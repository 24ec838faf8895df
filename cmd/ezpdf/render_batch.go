package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	ezpdf "github.com/alnah/go-ezpdf"
	"github.com/alnah/go-ezpdf/internal/fileutil"
	"github.com/alnah/go-ezpdf/internal/hints"
	"github.com/alnah/go-ezpdf/internal/pdfinfo"
	"github.com/alnah/go-ezpdf/internal/pipeline"
)

// File permission constants.
const (
	dirPermissions  = 0o750 // rwxr-x---: owner full, group read+execute
	filePermissions = 0o644 // rw-r--r--: owner read+write, others read
)

// renderParams groups settings shared by every job of a batch.
type renderParams struct {
	pdfOpts  *ezpdf.PDFOptions
	headers  map[string]string
	css      string
	timeout  time.Duration
	markdown bool
	validate bool
	pipeline *pipeline.Pipeline
	stdin    io.Reader
	now      func() time.Time
	log      logrus.FieldLogger
}

// RenderResult holds the outcome of a single job.
type RenderResult struct {
	Input      string
	OutputPath string
	Pages      int
	Err        error
	Duration   time.Duration
}

// renderBatch processes jobs concurrently using the renderer pool.
func renderBatch(ctx context.Context, pool Pool, jobs []renderJob, params *renderParams) []RenderResult {
	if len(jobs) == 0 {
		return nil
	}

	concurrency := pool.Size()
	if concurrency > len(jobs) {
		concurrency = len(jobs)
	}

	results := make([]RenderResult, len(jobs))
	var wg sync.WaitGroup
	queue := make(chan int, len(jobs))

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			r := pool.Acquire()
			if r == nil {
				for idx := range queue {
					results[idx] = RenderResult{Input: jobs[idx].Input, Err: ezpdf.ErrRendererClosed}
				}
				return
			}
			defer pool.Release(r)

			for idx := range queue {
				if err := ctx.Err(); err != nil {
					results[idx] = RenderResult{Input: jobs[idx].Input, Err: err}
					continue
				}
				results[idx] = renderOne(ctx, r, jobs[idx], params)
			}
		}()
	}

	for i := range jobs {
		queue <- i
	}
	close(queue)

	wg.Wait()
	return results
}

// renderOne renders a job and writes its PDF.
func renderOne(ctx context.Context, r Renderer, job renderJob, params *renderParams) RenderResult {
	start := params.now()
	result := RenderResult{Input: job.Input, OutputPath: job.OutputPath}
	finish := func(err error) RenderResult {
		result.Err = err
		result.Duration = params.now().Sub(start)
		return result
	}

	if params.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, params.timeout)
		defer cancel()
	}

	var pdf []byte
	var err error
	switch job.Kind {
	case inputURL:
		pdf, err = r.RenderURL(ctx, job.Input, &ezpdf.RenderOptions{RequestHeaders: params.headers}, params.pdfOpts)
	case inputStdin:
		pdf, err = renderStdin(ctx, r, params)
	default:
		pdf, err = renderFile(ctx, r, job.Input, params)
	}
	if err != nil {
		return finish(err)
	}
	if params.validate {
		if err := pdfinfo.Validate(pdf); err != nil {
			return finish(err)
		}
	}

	if dir := filepath.Dir(job.OutputPath); dir != "." {
		if err := os.MkdirAll(dir, dirPermissions); err != nil {
			return finish(fmt.Errorf("%w: creating %s: %v%s", ErrWritePDF, dir, err, hints.ForOutputDirectory()))
		}
	}
	// #nosec G306 -- PDFs are meant to be readable
	if err := os.WriteFile(job.OutputPath, pdf, filePermissions); err != nil {
		return finish(fmt.Errorf("%w: %v", ErrWritePDF, err))
	}

	if pages, err := pdfinfo.PageCount(pdf); err == nil {
		result.Pages = pages
	} else {
		params.log.WithError(err).WithField("output", job.OutputPath).Warn("could not read page count")
	}
	return finish(nil)
}

// renderFile prepares a local document and loads it from a temporary
// file. Relative assets are rewritten to file:// URLs beforehand so they
// still resolve from the temp location.
func renderFile(ctx context.Context, r Renderer, path string, params *renderParams) ([]byte, error) {
	content, err := os.ReadFile(path) // #nosec G304 -- user-provided input path
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadInput, err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadInput, err)
	}

	doc, err := params.pipeline.Prepare(ctx, pipeline.Source{
		Content:   string(content),
		Markdown:  params.markdown || isMarkdownFile(path),
		CSS:       params.css,
		SourceDir: filepath.Dir(absPath),
	})
	if err != nil {
		return nil, err
	}

	tmpPath, cleanup, err := fileutil.WriteTempFile(doc, "html")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return r.RenderURL(ctx, pipeline.FileURL(tmpPath), nil, params.pdfOpts)
}

// renderStdin renders a document piped on stdin. It has no source
// directory, so it is loaded directly instead of through a file.
func renderStdin(ctx context.Context, r Renderer, params *renderParams) ([]byte, error) {
	if params.stdin == nil {
		return nil, fmt.Errorf("%w: stdin unavailable", ErrReadInput)
	}
	content, err := io.ReadAll(params.stdin)
	if err != nil {
		return nil, fmt.Errorf("%w: stdin: %v", ErrReadInput, err)
	}

	doc, err := params.pipeline.Prepare(ctx, pipeline.Source{
		Content:  string(content),
		Markdown: params.markdown,
		CSS:      params.css,
	})
	if err != nil {
		return nil, err
	}
	return r.RenderHTML(ctx, doc, nil, params.pdfOpts)
}

// ResultSummary holds the count of succeeded and failed renders.
type ResultSummary struct {
	Succeeded int
	Failed    int
}

// countResults tallies succeeded and failed renders.
func countResults(results []RenderResult) ResultSummary {
	var summary ResultSummary
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}
	return summary
}

// printResults writes one line per job and a summary for batches.
// Returns the number of failures.
func printResults(results []RenderResult, f commonFlags, env *Environment) int {
	summary := countResults(results)

	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(env.Stderr, "FAILED %s: %v%s\n", r.Input, r.Err, hintFor(r.Err))
			continue
		}

		if f.quiet {
			continue
		}

		if f.verbose {
			fmt.Fprintf(env.Stdout, "%s -> %s (%d pages, %v)\n", r.Input, r.OutputPath, r.Pages, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(env.Stdout, "Created %s\n", r.OutputPath)
		}
	}

	if !f.quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", summary.Succeeded, summary.Failed)
	}

	return summary.Failed
}

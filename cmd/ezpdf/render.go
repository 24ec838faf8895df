package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	ezpdf "github.com/alnah/go-ezpdf"
	"github.com/alnah/go-ezpdf/internal/config"
	"github.com/alnah/go-ezpdf/internal/pipeline"
)

// Sentinel errors for CLI operations.
var (
	ErrNoInput            = errors.New("no input specified")
	ErrReadInput          = errors.New("failed to read input")
	ErrReadCSS            = errors.New("failed to read CSS file")
	ErrWritePDF           = errors.New("failed to write PDF file")
	ErrUnsupportedInput   = errors.New("unsupported input file")
	ErrOutputTarget       = errors.New("invalid output target")
	ErrInvalidHeader      = errors.New("invalid header")
	ErrInvalidWorkerCount = errors.New("invalid worker count")
	ErrUsage              = errors.New("invalid usage")
	ErrUnknownCommand     = errors.New("unknown command")
	ErrRenderFailed       = errors.New("some documents failed to render")
)

// runRender renders every input to PDF.
func runRender(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseRenderFlags(args)
	if err != nil {
		return err
	}
	if err := validateWorkers(flags.workers); err != nil {
		return err
	}

	cfg, err := loadConfig(flags.common.config, env)
	if err != nil {
		return err
	}
	mergeRenderFlags(flags, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	headers, err := parseHeaders(flags.headers)
	if err != nil {
		return err
	}
	headers = mergeHeaderMaps(cfg.Request.Headers, headers)

	pdfOpts, err := cfg.PageSettings().ToPDFOptions()
	if err != nil {
		return err
	}

	css, err := readCSS(cfg.Request.CSS)
	if err != nil {
		return err
	}

	jobs, err := discoverJobs(positional, flags.output, cfg.Output.DefaultDir, flags.markdown)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log, flags.common, env.Stderr)

	size := ezpdf.ResolvePoolSize(flags.workers)
	if size > len(jobs) {
		size = len(jobs)
	}
	logger.WithField("workers", size).WithField("documents", len(jobs)).Debug("rendering")

	pool := env.NewPool(size, cfg.RendererOptions(logger)...)
	defer func() {
		if err := pool.Close(); err != nil {
			logger.WithError(err).Warn("closing browsers")
		}
	}()

	results := renderBatch(ctx, pool, jobs, &renderParams{
		pdfOpts:  pdfOpts,
		headers:  headers,
		css:      css,
		timeout:  cfg.RequestTimeout(),
		markdown: flags.markdown,
		validate: flags.validate,
		pipeline: pipeline.New(),
		stdin:    env.Stdin,
		now:      env.Now,
		log:      logger,
	})

	// A single failure is returned as is so the exit code reflects it.
	if len(results) == 1 && results[0].Err != nil {
		return results[0].Err
	}
	if failed := printResults(results, flags.common, env); failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrRenderFailed, failed, len(results))
	}
	return nil
}

// mergeRenderFlags overlays render flags onto cfg (CLI wins).
func mergeRenderFlags(f *renderFlags, cfg *config.Config) {
	applyPageFlags(cfg, f.page)
	if f.timeout != "" {
		cfg.Request.Timeout = f.timeout
	}
	if f.css != "" {
		cfg.Request.CSS = f.css
	}
}

// mergeHeaderMaps overlays flag headers onto config headers.
// Names compare case-insensitively; the flag spelling is kept.
func mergeHeaderMaps(base, override map[string]string) map[string]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	merged := make(map[string]string, len(base)+len(override))
	for name, value := range base {
		merged[name] = value
	}
	for name, value := range override {
		for existing := range merged {
			if strings.EqualFold(existing, name) {
				delete(merged, existing)
			}
		}
		merged[name] = value
	}
	return merged
}

// readCSS loads the stylesheet injected into local documents.
func readCSS(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided CSS path
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrReadCSS, err)
	}
	return string(data), nil
}

// validateWorkers checks the --workers flag.
func validateWorkers(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d (must be >= 0)", ErrInvalidWorkerCount, n)
	}
	if n > ezpdf.MaxPoolSize {
		return fmt.Errorf("%w: %d (maximum is %d)", ErrInvalidWorkerCount, n, ezpdf.MaxPoolSize)
	}
	return nil
}

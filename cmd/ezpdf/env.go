package main

import (
	"context"
	"io"
	"os"
	"time"

	ezpdf "github.com/alnah/go-ezpdf"
)

// Renderer is the subset of *ezpdf.Renderer the commands use.
type Renderer interface {
	RenderHTML(ctx context.Context, html string, opts *ezpdf.RenderOptions, pdfOpts *ezpdf.PDFOptions) ([]byte, error)
	RenderURL(ctx context.Context, url string, opts *ezpdf.RenderOptions, pdfOpts *ezpdf.PDFOptions) ([]byte, error)
	HealthCheck(ctx context.Context, testURI string) ezpdf.Health
	Close() error
}

// Compile-time interface implementation check.
var _ Renderer = (*ezpdf.Renderer)(nil)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Now    func() time.Time
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
	Getenv func(string) string

	// NewPool builds the renderer pool for batch renders.
	NewPool func(size int, opts ...ezpdf.Option) Pool

	// NewRenderer builds the single renderer used by serve and health.
	NewRenderer func(opts ...ezpdf.Option) Renderer
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:    time.Now,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Stdin:  os.Stdin,
		Getenv: os.Getenv,
		NewPool: func(size int, opts ...ezpdf.Option) Pool {
			return &poolAdapter{pool: ezpdf.NewRendererPool(size, opts...)}
		},
		NewRenderer: func(opts ...ezpdf.Option) Renderer {
			return ezpdf.NewRenderer(opts...)
		},
	}
}

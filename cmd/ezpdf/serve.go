package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/alnah/go-ezpdf/internal/config"
	"github.com/alnah/go-ezpdf/internal/server"
)

// shutdownTimeout bounds how long in-flight requests may finish after a
// termination signal.
const shutdownTimeout = 15 * time.Second

// httpServer is the part of *server.Server that serve drives.
type httpServer interface {
	Listen(addr string) error
	Shutdown(ctx context.Context) error
}

// runServe starts the HTTP render service and blocks until ctx is done.
func runServe(ctx context.Context, args []string, env *Environment) error {
	flags, err := parseServeFlags(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(flags.common.config, env)
	if err != nil {
		return err
	}
	mergeServeFlags(flags, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	css, err := readCSS(cfg.Request.CSS)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log, flags.common, env.Stderr)

	r := env.NewRenderer(cfg.RendererOptions(logger)...)
	defer func() {
		if err := r.Close(); err != nil {
			logger.WithError(err).Warn("closing browser")
		}
	}()

	srv := server.New(r, serverConfig(cfg, css), logger)
	return serveUntilDone(ctx, srv, cfg.Server.Addr, logger)
}

// mergeServeFlags overlays serve flags onto cfg (CLI wins).
func mergeServeFlags(f *serveFlags, cfg *config.Config) {
	applyPageFlags(cfg, f.page)
	if f.addr != "" {
		cfg.Server.Addr = f.addr
	}
	if f.timeout != "" {
		cfg.Server.RequestTimeout = f.timeout
	}
	if f.healthURI != "" {
		cfg.Server.HealthURI = f.healthURI
	}
}

// serverConfig maps the config file onto server settings.
func serverConfig(cfg *config.Config, css string) server.Config {
	return server.Config{
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		RequestTimeout: cfg.ServerRequestTimeout(),
		HealthURI:      cfg.Server.HealthURI,
		Page:           cfg.PageSettings(),
		Headers:        cfg.Request.Headers,
		CSS:            css,
	}
}

// serveUntilDone listens on addr and shuts down gracefully once ctx is
// canceled. A listen failure is returned immediately.
func serveUntilDone(ctx context.Context, srv httpServer, addr string, log logrus.FieldLogger) error {
	listenErr := make(chan error, 1)
	go func() {
		listenErr <- srv.Listen(addr)
	}()

	select {
	case err := <-listenErr:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

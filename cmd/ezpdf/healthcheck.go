package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	ezpdf "github.com/alnah/go-ezpdf"
)

// warmupHTML is rendered once so the browser is launched before probing;
// a renderer that never launched reports unknown.
const warmupHTML = "<!DOCTYPE html><html><body></body></html>"

// healthReport is the JSON form of the health command.
type healthReport struct {
	Status ezpdf.Health `json:"status"`
	URI    string       `json:"uri,omitempty"`
}

// runHealthCmd launches a browser, checks it, and returns an exit code:
// 0 healthy, 1 unhealthy or unknown, 4 when the browser cannot start.
func runHealthCmd(ctx context.Context, args []string, env *Environment) (int, error) {
	flags, err := parseHealthFlags(args)
	if err != nil {
		return exitCodeFor(err), err
	}

	cfg, err := loadConfig(flags.common.config, env)
	if err != nil {
		return exitCodeFor(err), err
	}
	if flags.timeout != "" {
		cfg.Request.Timeout = flags.timeout
	}
	if err := cfg.Validate(); err != nil {
		return exitCodeFor(err), err
	}

	logger := newLogger(cfg.Log, flags.common, env.Stderr)
	r := env.NewRenderer(cfg.RendererOptions(logger)...)
	defer func() {
		if err := r.Close(); err != nil {
			logger.WithError(err).Warn("closing browser")
		}
	}()

	start := env.Now()
	warmCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout())
	_, err = r.RenderHTML(warmCtx, warmupHTML, nil, nil)
	cancel()
	if err != nil {
		err = fmt.Errorf("starting browser: %w", err)
		return exitCodeFor(err), err
	}

	uri := flags.uri
	if uri == "" {
		uri = cfg.Server.HealthURI
	}
	status := r.HealthCheck(ctx, uri)
	logger.WithField("status", status).WithField("elapsed", env.Now().Sub(start).Round(time.Millisecond)).Debug("health check done")

	if flags.json {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(healthReport{Status: status, URI: uri})
	} else if !flags.common.quiet {
		fmt.Fprintf(env.Stdout, "browser: %s\n", status)
	}

	if status != ezpdf.HealthHealthy {
		return ExitGeneral, nil
	}
	return ExitSuccess, nil
}

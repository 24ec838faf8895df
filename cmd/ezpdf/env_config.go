package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/alnah/go-ezpdf/internal/config"
	"github.com/alnah/go-ezpdf/internal/hints"
)

// Environment variables read on top of the config file. Flags still win.
const (
	envConfig    = "EZPDF_CONFIG"     // config name or path
	envTimeout   = "EZPDF_TIMEOUT"    // request.timeout
	envOutputDir = "EZPDF_OUTPUT_DIR" // output.defaultDir
	envAddr      = "EZPDF_ADDR"       // server.addr
	envLogLevel  = "EZPDF_LOG_LEVEL"  // log.level
	envLogFormat = "EZPDF_LOG_FORMAT" // log.format
)

// loadConfig resolves the config file (flag, then EZPDF_CONFIG) and
// applies environment overrides. No file means defaults.
func loadConfig(flagConfig string, env *Environment) (*config.Config, error) {
	name := flagConfig
	if name == "" {
		name = getenv(env, envConfig)
	}

	cfg := config.DefaultConfig()
	if name != "" {
		var err error
		cfg, err = config.LoadConfig(name)
		if err != nil {
			if errors.Is(err, config.ErrConfigNotFound) {
				return nil, fmt.Errorf("loading config: %w%s", err, hints.ForConfigNotFound(config.SearchPaths(name)))
			}
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}

	applyEnv(cfg, env)
	return cfg, nil
}

// applyEnv overlays EZPDF_* variables onto cfg.
func applyEnv(cfg *config.Config, env *Environment) {
	if v := getenv(env, envTimeout); v != "" {
		cfg.Request.Timeout = v
	}
	if v := getenv(env, envOutputDir); v != "" {
		cfg.Output.DefaultDir = v
	}
	if v := getenv(env, envAddr); v != "" {
		cfg.Server.Addr = v
	}
	if v := getenv(env, envLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := getenv(env, envLogFormat); v != "" {
		cfg.Log.Format = v
	}
}

// applyPageFlags overlays page flags onto cfg.
func applyPageFlags(cfg *config.Config, f pageFlags) {
	if f.size != "" {
		cfg.Page.Size = f.size
	}
	if f.orientation != "" {
		cfg.Page.Orientation = f.orientation
	}
	if f.margin != "" {
		cfg.Page.Margin = f.margin
	}
	if f.noBackground {
		off := false
		cfg.Page.PrintBackground = &off
	}
}

func getenv(env *Environment, key string) string {
	if env.Getenv == nil {
		return ""
	}
	return env.Getenv(key)
}

// newLogger builds the CLI logger from the log section. --verbose forces
// debug and --quiet forces error; verbose wins when both are set.
func newLogger(cfg config.LogConfig, f commonFlags, w io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)

	level := logrus.InfoLevel
	if cfg.Level != "" {
		if parsed, err := logrus.ParseLevel(cfg.Level); err == nil {
			level = parsed
		}
	}
	switch {
	case f.verbose:
		level = logrus.DebugLevel
	case f.quiet:
		level = logrus.ErrorLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	}
	return logger
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/sirupsen/logrus"

	ezpdf "github.com/alnah/go-ezpdf"
	"github.com/alnah/go-ezpdf/internal/fileutil"
	"github.com/alnah/go-ezpdf/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidField    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxPathLength        = 4096
	MaxHeaderNameLength  = 256
	MaxHeaderValueLength = 8192
	MaxFlagLength        = 512
	MaxAddrLength        = 256
)

// Default values applied by DefaultConfig.
const (
	DefaultTimeout        = 30 * time.Second
	DefaultAddr           = "127.0.0.1:8080"
	DefaultMaxBodyBytes   = 8 * 1024 * 1024
	DefaultRequestTimeout = 60 * time.Second
)

// configDirName is the directory searched under the user config dir.
const configDirName = "go-ezpdf"

// Config holds settings shared by the CLI and the HTTP server.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	Page    PageConfig    `yaml:"page"`
	Request RequestConfig `yaml:"request"`
	Output  OutputConfig  `yaml:"output"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
}

// BrowserConfig defines how Chromium is located and launched.
type BrowserConfig struct {
	Bin       string   `yaml:"bin"`       // Empty = lookup, then download
	NoSandbox bool     `yaml:"noSandbox"` // Required in most containers
	Revision  int      `yaml:"revision"`  // Chromium revision to download (0 = rod default)
	Flags     []string `yaml:"flags"`     // Extra Chrome flags: "name" or "name=value"
}

// PageConfig defines PDF page settings.
type PageConfig struct {
	Size            string `yaml:"size"`            // "letter", "legal", "a3", "a4", "a5"
	Orientation     string `yaml:"orientation"`     // "portrait", "landscape"
	Margin          string `yaml:"margin"`          // "0.5in", "10mm", ...
	PrintBackground *bool  `yaml:"printBackground"` // nil = true
}

// RequestConfig defines per-render settings.
type RequestConfig struct {
	Headers map[string]string `yaml:"headers"` // Sent with URL navigations
	Timeout string            `yaml:"timeout"` // Go duration, e.g. "30s"
	CSS     string            `yaml:"css"`     // Stylesheet file injected into HTML/Markdown inputs
}

// OutputConfig defines output destination options.
type OutputConfig struct {
	DefaultDir string `yaml:"defaultDir"` // Empty = next to the input
}

// ServerConfig defines the HTTP render service.
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	MaxBodyBytes   int    `yaml:"maxBodyBytes"`
	RequestTimeout string `yaml:"requestTimeout"`
	HealthURI      string `yaml:"healthURI"` // Loaded by /healthz when no uri query is given
}

// LogConfig defines logging output.
type LogConfig struct {
	Level  string `yaml:"level"`  // logrus level name
	Format string `yaml:"format"` // "text" or "json"
}

// Validate checks field lengths and value formats.
// Called automatically by LoadConfig, but available for callers that
// build a Config by hand.
func (c *Config) Validate() error {
	if err := validateFieldLength("browser.bin", c.Browser.Bin, MaxPathLength); err != nil {
		return err
	}
	if c.Browser.Revision < 0 {
		return fmt.Errorf("%w: browser.revision: must not be negative, got %d", ErrInvalidField, c.Browser.Revision)
	}
	for i, f := range c.Browser.Flags {
		field := fmt.Sprintf("browser.flags[%d]", i)
		if err := validateFieldLength(field, f, MaxFlagLength); err != nil {
			return err
		}
		if strings.TrimPrefix(strings.TrimSpace(f), "--") == "" {
			return fmt.Errorf("%w: %s: empty flag", ErrInvalidField, field)
		}
	}

	if err := c.PageSettings().Validate(); err != nil {
		return fmt.Errorf("page: %w", err)
	}

	for name, value := range c.Request.Headers {
		if name == "" || strings.ContainsAny(name, ": \t\r\n") {
			return fmt.Errorf("%w: request.headers: invalid header name %q", ErrInvalidField, name)
		}
		if err := validateFieldLength("request.headers."+name, name, MaxHeaderNameLength); err != nil {
			return err
		}
		if err := validateFieldLength("request.headers."+name, value, MaxHeaderValueLength); err != nil {
			return err
		}
	}
	if err := validateDuration("request.timeout", c.Request.Timeout); err != nil {
		return err
	}
	if err := validateFieldLength("request.css", c.Request.CSS, MaxPathLength); err != nil {
		return err
	}

	if err := validateFieldLength("output.defaultDir", c.Output.DefaultDir, MaxPathLength); err != nil {
		return err
	}

	if err := validateFieldLength("server.addr", c.Server.Addr, MaxAddrLength); err != nil {
		return err
	}
	if c.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("%w: server.maxBodyBytes: must not be negative", ErrInvalidField)
	}
	if err := validateDuration("server.requestTimeout", c.Server.RequestTimeout); err != nil {
		return err
	}

	if c.Log.Level != "" {
		if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("%w: log.level: %v", ErrInvalidField, err)
		}
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log.format: %q (must be text or json)", ErrInvalidField, c.Log.Format)
	}

	return nil
}

// PageSettings converts the page section to library settings.
func (c *Config) PageSettings() *ezpdf.PageSettings {
	printBackground := true
	if c.Page.PrintBackground != nil {
		printBackground = *c.Page.PrintBackground
	}
	return &ezpdf.PageSettings{
		Size:            c.Page.Size,
		Orientation:     c.Page.Orientation,
		Margin:          c.Page.Margin,
		PrintBackground: printBackground,
	}
}

// RequestTimeout returns the per-render timeout, or DefaultTimeout.
func (c *Config) RequestTimeout() time.Duration {
	return durationOr(c.Request.Timeout, DefaultTimeout)
}

// ServerRequestTimeout returns the HTTP per-request timeout.
func (c *Config) ServerRequestTimeout() time.Duration {
	return durationOr(c.Server.RequestTimeout, DefaultRequestTimeout)
}

// RendererOptions translates the browser section into renderer options.
func (c *Config) RendererOptions(logger logrus.FieldLogger) []ezpdf.Option {
	opts := []ezpdf.Option{
		ezpdf.WithLogger(logger),
		ezpdf.WithNoSandbox(c.Browser.NoSandbox),
	}
	if c.Browser.Bin != "" {
		opts = append(opts, ezpdf.WithBrowserBin(c.Browser.Bin))
	}
	if c.Browser.Revision > 0 {
		opts = append(opts, ezpdf.WithBrowserRevision(c.Browser.Revision))
	}
	if len(c.Browser.Flags) > 0 {
		browserFlags := append([]string(nil), c.Browser.Flags...)
		opts = append(opts, ezpdf.WithLaunchConfig(func(l *launcher.Launcher) {
			ApplyFlags(l, browserFlags)
		}))
	}
	return opts
}

// ApplyFlags sets Chrome command-line flags on the launcher.
// Each entry is "name" or "name=value", with or without leading dashes.
func ApplyFlags(l *launcher.Launcher, browserFlags []string) {
	for _, f := range browserFlags {
		f = strings.TrimPrefix(strings.TrimSpace(f), "--")
		if f == "" {
			continue
		}
		if name, value, ok := strings.Cut(f, "="); ok {
			l.Set(flags.Flag(name), value)
			continue
		}
		l.Set(flags.Flag(f))
	}
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

func validateDuration(fieldName, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidField, fieldName, err)
	}
	if d <= 0 {
		return fmt.Errorf("%w: %s: must be positive, got %s", ErrInvalidField, fieldName, value)
	}
	return nil
}

func durationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// DefaultConfig returns a configuration with library defaults.
func DefaultConfig() *Config {
	return &Config{
		Page: PageConfig{
			Size:        ezpdf.PageSizeLetter,
			Orientation: ezpdf.OrientationPortrait,
			Margin:      ezpdf.DefaultMargin,
		},
		Server: ServerConfig{
			Addr:         DefaultAddr,
			MaxBodyBytes: DefaultMaxBodyBytes,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Fields missing from the file keep their DefaultConfig values.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if fileutil.IsFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SearchPaths lists the locations tried for a config name, in order.
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(userConfigDir, configDirName, name+ext))
		}
	}
	return paths
}

// resolveConfigPath searches for a config file by name.
// Tries the current directory first, then ~/.config/go-ezpdf/.
func resolveConfigPath(name string) (string, error) {
	paths := SearchPaths(name)
	for _, p := range paths {
		if fileutil.FileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(paths, ", "))
}

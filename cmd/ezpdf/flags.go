package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// pageFlags holds page layout flags.
type pageFlags struct {
	size         string
	orientation  string
	margin       string
	noBackground bool
}

// renderFlags holds all flags for the render command.
type renderFlags struct {
	common   commonFlags
	page     pageFlags
	output   string
	workers  int
	timeout  string
	css      string
	headers  []string
	markdown bool
	validate bool
}

// serveFlags holds flags for the serve command.
type serveFlags struct {
	common    commonFlags
	page      pageFlags
	addr      string
	timeout   string
	healthURI string
}

// healthFlags holds flags for the health command.
type healthFlags struct {
	common  commonFlags
	uri     string
	timeout string
	json    bool
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging and timings")
}

// addPageFlags adds page layout flags to a FlagSet.
func addPageFlags(fs *flag.FlagSet, f *pageFlags) {
	fs.StringVarP(&f.size, "page-size", "p", "", "page size: letter, legal, a3, a4, a5")
	fs.StringVar(&f.orientation, "orientation", "", "page orientation: portrait, landscape")
	fs.StringVar(&f.margin, "margin", "", "margin on all sides, e.g. 0.5in, 10mm")
	fs.BoolVar(&f.noBackground, "no-background", false, "do not print background graphics")
}

// newFlagSet builds a FlagSet that reports errors to the caller
// instead of printing them.
func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	return fs
}

// parseError keeps flag.ErrHelp intact and tags everything else as a
// usage error.
func parseError(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUsage, err)
}

// parseRenderFlags parses render command flags and returns positional args.
func parseRenderFlags(args []string) (*renderFlags, []string, error) {
	fs := newFlagSet("render")
	f := &renderFlags{}

	fs.StringVarP(&f.output, "output", "o", "", "output PDF file or directory")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel browsers (0 = auto)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "per-document timeout (e.g., 30s, 2m)")
	fs.StringVar(&f.css, "css", "", "CSS file injected into HTML and Markdown inputs")
	fs.StringArrayVarP(&f.headers, "header", "H", nil, "request header for URL inputs, \"Name: value\" (repeatable)")
	fs.BoolVar(&f.markdown, "markdown", false, "treat stdin and unknown extensions as Markdown")
	fs.BoolVar(&f.validate, "validate", false, "check each PDF with pdfcpu before writing it")

	addCommonFlags(fs, &f.common)
	addPageFlags(fs, &f.page)

	if err := fs.Parse(args); err != nil {
		return nil, nil, parseError(err)
	}
	return f, fs.Args(), nil
}

// parseServeFlags parses serve command flags.
func parseServeFlags(args []string) (*serveFlags, error) {
	fs := newFlagSet("serve")
	f := &serveFlags{}

	fs.StringVarP(&f.addr, "addr", "a", "", "listen address (default from config, 127.0.0.1:8080)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "per-request timeout (e.g., 60s)")
	fs.StringVar(&f.healthURI, "health-uri", "", "page loaded by /healthz when no uri is given")

	addCommonFlags(fs, &f.common)
	addPageFlags(fs, &f.page)

	if err := fs.Parse(args); err != nil {
		return nil, parseError(err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: serve takes no arguments, got %q", ErrUsage, fs.Args())
	}
	return f, nil
}

// parseHealthFlags parses health command flags.
func parseHealthFlags(args []string) (*healthFlags, error) {
	fs := newFlagSet("health")
	f := &healthFlags{}

	fs.StringVarP(&f.uri, "uri", "u", "", "page to load during the check")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "browser startup timeout (e.g., 30s)")
	fs.BoolVar(&f.json, "json", false, "print the result as JSON")

	addCommonFlags(fs, &f.common)

	if err := fs.Parse(args); err != nil {
		return nil, parseError(err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: health takes no arguments, got %q", ErrUsage, fs.Args())
	}
	return f, nil
}

// parseHeaders turns "Name: value" entries into a map. Later entries win.
func parseHeaders(entries []string) (map[string]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(entries))
	for _, entry := range entries {
		name, value, ok := strings.Cut(entry, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" || strings.ContainsAny(name, " \t\r\n") {
			return nil, fmt.Errorf("%w: %q (want \"Name: value\")", ErrInvalidHeader, entry)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

// hasVerboseFlag reports whether -v or --verbose appears in args.
// Used before flag parsing to decide how chatty startup should be.
func hasVerboseFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--" {
			return false
		}
		if arg == "-v" || arg == "--verbose" || arg == "--verbose=true" {
			return true
		}
	}
	return false
}

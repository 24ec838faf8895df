package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: ezpdf [command] [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  render     Render HTML, Markdown or web pages to PDF (default)")
	fmt.Fprintln(w, "  serve      Run the HTTP render service")
	fmt.Fprintln(w, "  health     Launch the browser and report its health")
	fmt.Fprintln(w, "  doctor     Check the system for rendering requirements")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'ezpdf help <command>' for details on a specific command.")
}

// printRenderUsage prints usage for the render command.
func printRenderUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: ezpdf render <input>... [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render documents to PDF. Inputs are http(s) URLs, .html/.htm or")
	fmt.Fprintln(w, ".md/.markdown files, directories (searched recursively), or '-'")
	fmt.Fprintln(w, "for stdin.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input/Output:")
	fmt.Fprintln(w, "  -o, --output <path>       Output .pdf file (single input) or directory")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel browsers (0 = auto)")
	fmt.Fprintln(w, "  -t, --timeout <d>         Per-document timeout (e.g., 30s, 2m)")
	fmt.Fprintln(w, "      --markdown            Treat stdin and other extensions as Markdown")
	fmt.Fprintln(w, "      --validate            Check each PDF with pdfcpu before writing it")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Requests:")
	fmt.Fprintln(w, "  -H, --header <h>          \"Name: value\" sent with the page request of")
	fmt.Fprintln(w, "                            URL inputs only (repeatable)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Page:")
	fmt.Fprintln(w, "  -p, --page-size <s>       letter, legal, a3, a4, a5")
	fmt.Fprintln(w, "      --orientation <s>     portrait, landscape")
	fmt.Fprintln(w, "      --margin <len>        All sides: 0.5in, 10mm, 1cm, 36pt, 48px")
	fmt.Fprintln(w, "      --no-background       Skip background colors and images")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Styling:")
	fmt.Fprintln(w, "      --css <path>          Stylesheet injected into file inputs")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Debug logs, page counts and timings")
}

// printServeUsage prints usage for the serve command.
func printServeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: ezpdf serve [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run the HTTP render service:")
	fmt.Fprintln(w, "  POST /render/html   HTML body (or Markdown with ?format=markdown)")
	fmt.Fprintln(w, "  POST /render/url    JSON {\"url\", \"headers\", \"page\"}")
	fmt.Fprintln(w, "  GET  /healthz       Browser health, optional ?uri=")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -a, --addr <host:port>    Listen address (default 127.0.0.1:8080)")
	fmt.Fprintln(w, "  -t, --timeout <d>         Per-request timeout (default 60s)")
	fmt.Fprintln(w, "      --health-uri <url>    Page loaded by /healthz by default")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -p, --page-size <s>       Default page size")
	fmt.Fprintln(w, "      --orientation <s>     Default orientation")
	fmt.Fprintln(w, "      --margin <len>        Default margin")
	fmt.Fprintln(w, "      --no-background       Skip background graphics by default")
	fmt.Fprintln(w, "  -q, --quiet               Only log errors")
	fmt.Fprintln(w, "  -v, --verbose             Debug logging")
}

// printHealthUsage prints usage for the health command.
func printHealthUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: ezpdf health [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Launch the browser, then report healthy or unhealthy.")
	fmt.Fprintln(w, "Exits 0 when healthy, 1 when unhealthy, 4 when the browser cannot start.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -u, --uri <url>           Page to load during the check")
	fmt.Fprintln(w, "  -t, --timeout <d>         Browser startup timeout")
	fmt.Fprintln(w, "      --json                Print the result as JSON")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: ezpdf doctor [--json]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check browser, environment, config and temp directory.")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	switch args[0] {
	case cmdRender:
		printRenderUsage(env.Stdout)
	case cmdServe:
		printServeUsage(env.Stdout)
	case cmdHealth:
		printHealthUsage(env.Stdout)
	case cmdDoctor:
		printDoctorUsage(env.Stdout)
	case cmdVersion:
		fmt.Fprintln(env.Stdout, "Usage: ezpdf version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case cmdHelp:
		fmt.Fprintln(env.Stdout, "Usage: ezpdf help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return ExitSuccess
}

// usageFor returns the usage printer of a command.
func usageFor(cmd string) func(io.Writer) {
	switch cmd {
	case cmdServe:
		return printServeUsage
	case cmdHealth:
		return printHealthUsage
	case cmdDoctor:
		return printDoctorUsage
	default:
		return printRenderUsage
	}
}

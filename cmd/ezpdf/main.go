package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"

	ezpdf "github.com/alnah/go-ezpdf"
	"github.com/alnah/go-ezpdf/internal/hints"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Command names.
const (
	cmdRender  = "render"
	cmdServe   = "serve"
	cmdHealth  = "health"
	cmdDoctor  = "doctor"
	cmdVersion = "version"
	cmdHelp    = "help"
)

func main() {
	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply and the program continues safely.
	if hasVerboseFlag(os.Args[1:]) {
		_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}))
	} else {
		_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))
	}

	os.Exit(runMain(os.Args, DefaultEnv()))
}

// runMain dispatches to a command and returns the process exit code.
// Without a known command name the arguments go to render.
func runMain(args []string, env *Environment) int {
	if len(args) < 2 {
		printUsage(env.Stderr)
		return ExitUsage
	}

	ctx, stop := notifyContext(context.Background())
	defer stop()

	cmd, rest := splitCommand(args[1:])

	var err error
	switch cmd {
	case cmdHelp:
		return runHelp(rest, env)
	case cmdVersion:
		fmt.Fprintf(env.Stdout, "ezpdf %s\n", Version)
		return ExitSuccess
	case cmdDoctor:
		return runDoctorCmd(rest, env)
	case cmdHealth:
		var code int
		code, err = runHealthCmd(ctx, rest, env)
		if err == nil {
			return code
		}
	case cmdServe:
		err = runServe(ctx, rest, env)
	default:
		err = runRender(ctx, rest, env)
	}

	return reportError(cmd, err, env)
}

// splitCommand separates the command name from its arguments.
func splitCommand(args []string) (string, []string) {
	if len(args) == 0 {
		return cmdRender, nil
	}
	switch args[0] {
	case cmdRender, cmdServe, cmdHealth, cmdDoctor, cmdVersion, cmdHelp:
		return args[0], args[1:]
	case "-h", "--help":
		return cmdHelp, args[1:]
	case "--version":
		return cmdVersion, nil
	}
	return cmdRender, args
}

// reportError prints err with a hint and maps it to an exit code.
func reportError(cmd string, err error, env *Environment) int {
	if err == nil {
		return ExitSuccess
	}
	if errors.Is(err, flag.ErrHelp) {
		usageFor(cmd)(env.Stdout)
		return ExitSuccess
	}

	fmt.Fprintf(env.Stderr, "Error: %v%s\n", err, hintFor(err))
	if errors.Is(err, ErrUsage) {
		fmt.Fprintf(env.Stderr, "Run 'ezpdf help %s' for usage.\n", cmd)
	}
	return exitCodeFor(err)
}

// hintFor returns an actionable hint for well-known failures.
func hintFor(err error) string {
	switch {
	case errors.Is(err, ezpdf.ErrBrowserFetch):
		return hints.ForBrowserFetch()
	case errors.Is(err, ezpdf.ErrBrowserLaunch):
		return hints.ForBrowserLaunch()
	case errors.Is(err, ezpdf.ErrNavigation):
		return hints.ForNavigation()
	case errors.Is(err, context.DeadlineExceeded):
		return hints.ForTimeout()
	}
	return ""
}

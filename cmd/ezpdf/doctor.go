package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/go-rod/rod/lib/launcher"

	"github.com/alnah/go-ezpdf/internal/config"
	"github.com/alnah/go-ezpdf/internal/fileutil"
)

// Doctor status values.
const (
	doctorReady    = "ready"
	doctorWarnings = "warnings"
	doctorErrors   = "errors"
)

// ciEnvVars mark common CI runners.
var ciEnvVars = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string      `json:"status"`
	Browser  browserInfo `json:"browser"`
	Env      envInfo     `json:"environment"`
	Config   configInfo  `json:"config"`
	System   systemInfo  `json:"system"`
	Warnings []string    `json:"warnings,omitempty"`
	Errors   []string    `json:"errors,omitempty"`
}

// browserInfo holds Chrome/Chromium detection results.
type browserInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	NoSandbox     string `json:"rod_no_sandbox"`
	BrowserBin    string `json:"rod_browser_bin"`
}

// configInfo reports the config named by EZPDF_CONFIG, if any.
type configInfo struct {
	Name   string `json:"name,omitempty"`
	Loaded bool   `json:"loaded"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempWritable bool `json:"temp_writable"`
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found, 2 = bad flags.
func runDoctorCmd(args []string, env *Environment) int {
	fs := newFlagSet("doctor")
	jsonOutput := fs.Bool("json", false, "print the report as JSON")
	if err := fs.Parse(args); err != nil {
		return reportError(cmdDoctor, parseError(err), env)
	}

	result := runDoctor(env)

	if *jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == doctorErrors {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(env *Environment) *doctorResult {
	result := &doctorResult{
		Status: doctorReady,
		Env: envInfo{
			OS:         runtime.GOOS,
			Arch:       runtime.GOARCH,
			NoSandbox:  getenv(env, "ROD_NO_SANDBOX"),
			BrowserBin: getenv(env, "ROD_BROWSER_BIN"),
		},
	}

	checkBrowser(result)
	checkEnvironment(result, env)
	checkConfig(result, env)
	checkSystem(result)

	if len(result.Errors) > 0 {
		result.Status = doctorErrors
	} else if len(result.Warnings) > 0 {
		result.Status = doctorWarnings
	}
	return result
}

// checkBrowser locates Chrome/Chromium. A missing browser is only a
// warning: the renderer downloads one on first launch.
func checkBrowser(result *doctorResult) {
	path := result.Env.BrowserBin
	if path == "" {
		var found bool
		path, found = launcher.LookPath()
		if !found {
			result.Warnings = append(result.Warnings,
				"Chrome/Chromium not found; Chromium will be downloaded on first render (set ROD_BROWSER_BIN to avoid)")
			return
		}
	}

	if _, err := os.Stat(path); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("browser not found at %s", path))
		return
	}

	result.Browser.Found = true
	result.Browser.Path = path
	result.Browser.Sandbox = result.Env.NoSandbox != "1"

	out, err := exec.Command(path, "--version").Output() // #nosec G204 -- browser path from env or lookup
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("could not read browser version: %v", err))
		return
	}
	result.Browser.Version = strings.TrimSpace(string(out))
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult, env *Environment) {
	result.Env.Container, result.Env.ContainerHint = detectContainer(env)

	for _, v := range ciEnvVars {
		if getenv(env, v) != "" {
			result.Env.CI = true
			break
		}
	}

	if (result.Env.Container || result.Env.CI) && result.Env.NoSandbox != "1" {
		result.Warnings = append(result.Warnings,
			"container/CI detected but ROD_NO_SANDBOX is not set; set ROD_NO_SANDBOX=1")
	}
}

// detectContainer returns whether a container was detected and which
// signal gave it away.
func detectContainer(env *Environment) (bool, string) {
	if getenv(env, "EZPDF_CONTAINER") == "1" {
		return true, "EZPDF_CONTAINER=1"
	}
	if fileutil.FileExists("/.dockerenv") {
		return true, "/.dockerenv"
	}
	if v := getenv(env, "container"); v != "" {
		return true, "container=" + v
	}
	if getenv(env, "KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkConfig loads the config named by EZPDF_CONFIG.
func checkConfig(result *doctorResult, env *Environment) {
	name := getenv(env, envConfig)
	if name == "" {
		return
	}
	result.Config.Name = name
	if _, err := config.LoadConfig(name); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", envConfig, err))
		return
	}
	result.Config.Loaded = true
}

// checkSystem verifies the temp directory accepts rendered documents.
func checkSystem(result *doctorResult) {
	_, cleanup, err := fileutil.WriteTempFile("doctor", "html")
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("temp directory not writable: %s", os.TempDir()))
		return
	}
	cleanup()
	result.System.TempWritable = true
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "ezpdf doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Browser")
	if r.Browser.Found {
		fmt.Fprintf(w, "  [OK] Found at %s\n", r.Browser.Path)
		if r.Browser.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Browser.Version)
		}
		if r.Browser.Sandbox {
			fmt.Fprintln(w, "  [OK] Sandbox: enabled")
		} else {
			fmt.Fprintln(w, "  [OK] Sandbox: disabled (ROD_NO_SANDBOX=1)")
		}
	} else {
		fmt.Fprintln(w, "  [WARN] Not found locally")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	if r.Config.Name != "" {
		fmt.Fprintln(w, "Config")
		if r.Config.Loaded {
			fmt.Fprintf(w, "  [OK] %s loaded\n", r.Config.Name)
		} else {
			fmt.Fprintf(w, "  [ERROR] %s could not be loaded\n", r.Config.Name)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "System")
	if r.System.TempWritable {
		fmt.Fprintln(w, "  [OK] Temp directory: writable")
	} else {
		fmt.Fprintln(w, "  [ERROR] Temp directory: not writable")
	}
	fmt.Fprintln(w)

	printList(w, "Warnings:", "WARN", r.Warnings)
	printList(w, "Errors:", "ERROR", r.Errors)

	switch r.Status {
	case doctorReady:
		fmt.Fprintln(w, "Status: Ready to render")
	case doctorWarnings:
		fmt.Fprintln(w, "Status: Ready with warnings")
	case doctorErrors:
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}

func printList(w io.Writer, title, tag string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintln(w, title)
	for _, item := range items {
		fmt.Fprintf(w, "  [%s] %s\n", tag, item)
	}
	fmt.Fprintln(w)
}

//go:build windows

// Package process terminates browser process trees.
package process

import (
	"os/exec"
	"strconv"
)

// KillProcessGroup kills pid and its children using taskkill.
// /F = force kill, /T = terminate child processes (tree kill).
func KillProcessGroup(pid int) {
	// Best-effort; launcher.Kill() is the fallback
	_ = exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(pid)).Run()
}

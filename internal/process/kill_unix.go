//go:build !windows

// Package process terminates browser process trees.
package process

import "syscall"

// KillProcessGroup sends SIGKILL to the process group led by pid, taking
// Chrome's renderer and GPU children down with it.
func KillProcessGroup(pid int) {
	// Best-effort; launcher.Kill() is the fallback
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}

//go:build !windows

package client

import (
	"os/exec"
	"syscall"
)

// The daemon gets its own session so closing the terminal does not stop it.
func applyDaemonSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

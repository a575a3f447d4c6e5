//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package compiler

import "os/exec"

// configureProcess keeps exec.CommandContext's default of killing the
// compiler process itself; WaitDelay bounds any children left behind.
func configureProcess(cmd *exec.Cmd) {}

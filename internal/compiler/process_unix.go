//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package compiler

import (
	"errors"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// configureProcess starts the compiler in its own process group and makes
// cancellation kill the whole group, so helpers it spawned (linkers,
// assemblers, rustup proxies) cannot outlive the invocation or hold its
// output pipes open.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}

		err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
		if errors.Is(err, unix.ESRCH) {
			return nil
		}

		return err
	}
}

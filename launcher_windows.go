//go:build windows

package svchost

import (
	"os/exec"
	"syscall"
)

// command builds the child command. The argument string is appended to the
// command line verbatim and left to the program's own argument parsing.
func command(program, arguments string) *exec.Cmd {
	cmd := exec.Command(program)
	cmdLine := syscall.EscapeArg(program)
	if arguments != "" {
		cmdLine += " " + arguments
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CmdLine:    cmdLine,
		HideWindow: true,
	}
	return cmd
}

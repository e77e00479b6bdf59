//go:build !windows

package svchost

import (
	"os/exec"
	"strings"
)

// command builds the child command. execve needs an argv, so the argument
// string is split on whitespace; quotes inside it are passed through as-is.
func command(program, arguments string) *exec.Cmd {
	return exec.Command(program, strings.Fields(arguments)...)
}

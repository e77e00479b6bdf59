package svchost

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
)

// ManagedProcess is the single child process a supervisor owns.
// Its standard output and standard error are OS pipes created by Launch.
type ManagedProcess struct {
	// Program is the executable that was started
	Program string
	// Arguments is the verbatim argument string
	Arguments string

	cmd    *exec.Cmd
	stdout *os.File
	stderr *os.File
	done   chan struct{}

	mu      sync.Mutex
	exitErr error
}

// Launch starts program with arguments, redirecting its standard output and
// standard error into pipes read by the parent. No shell is involved.
//
// The pipes are plain *os.File values rather than exec.Cmd pipes: Cmd.Wait
// closes its own pipes on exit, which would truncate a concurrent drain.
func Launch(program, arguments string) (*ManagedProcess, error) {
	if program == "" {
		return nil, &OpError{Op: OpLaunch, Name: program, Err: ErrNoExecutable}
	}

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, &OpError{Op: OpLaunch, Name: program, Err: fmt.Errorf("creating stdout pipe: %w", err)}
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		_ = stdoutR.Close()
		_ = stdoutW.Close()
		return nil, &OpError{Op: OpLaunch, Name: program, Err: fmt.Errorf("creating stderr pipe: %w", err)}
	}

	cmd := command(program, arguments)
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	startErr := cmd.Start()

	// The child holds its own copies of the write ends
	_ = stdoutW.Close()
	_ = stderrW.Close()

	if startErr != nil {
		_ = stdoutR.Close()
		_ = stderrR.Close()
		return nil, &OpError{Op: OpLaunch, Name: program, Err: startErr}
	}

	p := &ManagedProcess{
		Program:   program,
		Arguments: arguments,
		cmd:       cmd,
		stdout:    stdoutR,
		stderr:    stderrR,
		done:      make(chan struct{}),
	}
	go p.reap()

	return p, nil
}

// LaunchCommandLine splits executable with SplitCommandLine and launches it
func LaunchCommandLine(executable string) (*ManagedProcess, error) {
	program, arguments := SplitCommandLine(executable)
	return Launch(program, arguments)
}

func (p *ManagedProcess) reap() {
	err := p.cmd.Wait()
	p.mu.Lock()
	p.exitErr = err
	p.mu.Unlock()
	close(p.done)
}

// PID returns the operating system process ID
func (p *ManagedProcess) PID() int {
	return p.cmd.Process.Pid
}

// Stdout returns the read end of the standard output pipe
func (p *ManagedProcess) Stdout() *os.File {
	return p.stdout
}

// Stderr returns the read end of the standard error pipe
func (p *ManagedProcess) Stderr() *os.File {
	return p.stderr
}

// Done is closed once the process has exited
func (p *ManagedProcess) Done() <-chan struct{} {
	return p.done
}

// Exited reports whether the process has exited
func (p *ManagedProcess) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// ExitErr returns the error from waiting on the process, nil for a clean exit
// or while the process is still running
func (p *ManagedProcess) ExitErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitErr
}

// ExitCode returns the exit code, or -1 while running or when killed by a signal
func (p *ManagedProcess) ExitCode() int {
	if !p.Exited() {
		return -1
	}
	return p.cmd.ProcessState.ExitCode()
}

// closePipes releases the read ends that are not owned by a drain
func (p *ManagedProcess) closePipes(stdoutOwned bool) {
	if !stdoutOwned {
		_ = p.stdout.Close()
	}
	_ = p.stderr.Close()
}

package svchost

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func waitExit(t *testing.T, p *ManagedProcess) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("process did not exit")
	}
}

func TestLaunchCapturesStdout(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p, err := LaunchCommandLine(helperCommand(t, "echo", "hello", "world"))
	require.NoError(t, err)
	require.Positive(t, p.PID())

	out, err := io.ReadAll(p.Stdout())
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", string(out))

	waitExit(t, p)
	p.closePipes(false)

	assert.True(t, p.Exited())
	assert.Equal(t, 0, p.ExitCode())
	assert.NoError(t, p.ExitErr())
}

func TestLaunchSeparatesStderr(t *testing.T) {
	p, err := LaunchCommandLine(helperCommand(t, "stderr", "oops"))
	require.NoError(t, err)

	stderr, err := io.ReadAll(p.Stderr())
	require.NoError(t, err)
	stdout, err := io.ReadAll(p.Stdout())
	require.NoError(t, err)

	assert.Equal(t, "oops\n", string(stderr))
	assert.Empty(t, stdout)
	waitExit(t, p)
	p.closePipes(false)
}

func TestLaunchExitCode(t *testing.T) {
	p, err := LaunchCommandLine(helperCommand(t, "exit", "3"))
	require.NoError(t, err)
	waitExit(t, p)
	p.closePipes(false)

	assert.Equal(t, 3, p.ExitCode())
	assert.Error(t, p.ExitErr())
}

func TestLaunchRunning(t *testing.T) {
	p, err := LaunchCommandLine(helperCommand(t, "sleep", "500ms"))
	require.NoError(t, err)

	assert.False(t, p.Exited())
	assert.Equal(t, -1, p.ExitCode())

	waitExit(t, p)
	p.closePipes(false)
	assert.Equal(t, 0, p.ExitCode())
}

func TestLaunchFailure(t *testing.T) {
	tests := []struct {
		name       string
		executable string
		wantErr    error
	}{
		{"empty", "", ErrNoExecutable},
		{"missing program", "svchost-no-such-program-0xdeadbeef --flag", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := LaunchCommandLine(tt.executable)
			require.Error(t, err)
			assert.Nil(t, p)

			var opErr *OpError
			require.True(t, errors.As(err, &opErr))
			assert.Equal(t, OpLaunch, opErr.Op)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

package svchost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState(t *testing.T) {
	tests := []struct {
		state    State
		str      string
		terminal bool
	}{
		{StateIdle, "idle", false},
		{StateLaunching, "launching", false},
		{StateRunning, "running", false},
		{StateExited, "exited", true},
		{StateFailed, "failed", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.str, tt.state.String())
		assert.Equal(t, tt.terminal, tt.state.Terminal(), tt.str)
	}
}

func TestServiceStateString(t *testing.T) {
	assert.Equal(t, "running", ServiceStateRunning.String())
	assert.Equal(t, "stop_pending", ServiceStateStopPending.String())
	assert.Equal(t, "unknown", ServiceStateUnknown.String())
}

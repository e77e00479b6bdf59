package svchost

import "time"

// Supervision defaults
const (
	// DefaultWaitTimeout bounds the wait for process exit on the service-managed start path
	DefaultWaitTimeout = 10 * time.Second

	// DefaultFlushTimeout bounds how long a foreground run waits for the drain to reach EOF
	DefaultFlushTimeout = 2 * time.Second

	// DefaultInstallTimeout bounds registrar operations started from the command line
	DefaultInstallTimeout = 30 * time.Second

	// ConsoleLogPath is the log path sentinel routing child output to the console
	ConsoleLogPath = "console"

	// drainBufferSize is the read size of the drain loop
	drainBufferSize = 4096
)

// File modes
const (
	// DirMode is the default mode for created directories
	DirMode = 0o755

	// FileMode is the default mode for created files
	FileMode = 0o644

	// ExecMode is the default mode for executable scripts
	ExecMode = 0o755
)

// Operation identifies the step that produced an OpError
type Operation int

const (
	// OpUnknown represents an unknown operation
	OpUnknown Operation = iota
	// OpLaunch starts the managed process
	OpLaunch
	// OpDrain copies the managed process output to its sink
	OpDrain
	// OpSink opens the output sink
	OpSink
	// OpCreate registers a service with the service manager
	OpCreate
	// OpQuery reads the service state from the service manager
	OpQuery
	// OpStart starts a registered service
	OpStart
	// OpStop stops a registered service
	OpStop
	// OpDelete removes a registered service
	OpDelete
)

// Operation string constants
const (
	opUnknownStr = "unknown"
	opLaunchStr  = "launch"
	opDrainStr   = "drain"
	opSinkStr    = "sink"
	opCreateStr  = "create"
	opQueryStr   = "query"
	opStartStr   = "start"
	opStopStr    = "stop"
	opDeleteStr  = "delete"
)

// String returns the string representation of an Operation
func (op Operation) String() string {
	switch op {
	case OpLaunch:
		return opLaunchStr
	case OpDrain:
		return opDrainStr
	case OpSink:
		return opSinkStr
	case OpCreate:
		return opCreateStr
	case OpQuery:
		return opQueryStr
	case OpStart:
		return opStartStr
	case OpStop:
		return opStopStr
	case OpDelete:
		return opDeleteStr
	default:
		return opUnknownStr
	}
}

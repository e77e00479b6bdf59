package svchost

// State is the supervisor's position in its activation lifecycle
type State int

const (
	// StateIdle indicates Start has not been called
	StateIdle State = iota
	// StateLaunching indicates the configuration is being validated and the process started
	StateLaunching
	// StateRunning indicates the managed process is alive
	StateRunning
	// StateExited indicates the process exited or could not be created
	StateExited
	// StateFailed indicates the configuration was rejected before launch
	StateFailed
)

// State string constants
const (
	stateIdleStr      = "idle"
	stateLaunchingStr = "launching"
	stateRunningStr   = "running"
	stateExitedStr    = "exited"
	stateFailedStr    = "failed"
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateLaunching:
		return stateLaunchingStr
	case StateRunning:
		return stateRunningStr
	case StateExited:
		return stateExitedStr
	case StateFailed:
		return stateFailedStr
	default:
		return stateIdleStr
	}
}

// Terminal reports whether no further transitions happen from s
func (s State) Terminal() bool {
	return s == StateExited || s == StateFailed
}

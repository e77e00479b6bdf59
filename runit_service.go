package svchost

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

// Runit directory and file constants
const (
	// SuperviseDir is the subdirectory runsv creates for its control files
	SuperviseDir = "supervise"

	// ControlFile is the control FIFO file name
	ControlFile = "control"

	// StatusFile is the binary status file name
	StatusFile = "status"

	// DownFile keeps runsv from starting a service when it is first supervised
	DownFile = "down"

	// StatusFileSize is the exact size of the binary status record in bytes
	// Reference: https://github.com/g-pape/runit/blob/master/src/sv.c#L53
	// char svstatus[20];
	StatusFileSize = 20

	// TAI64Base is the TAI64 label of the Unix epoch (2^62 + 10 leap seconds)
	TAI64Base = uint64(1<<62) + 10

	// unprivilegedUser runs services registered for the local or network service account
	unprivilegedUser = "nobody"
)

// runit control bytes
const (
	runitControlUp   = 'u'
	runitControlDown = 'd'
	runitControlExit = 'x'
)

// Status file layout offsets (from runit source)
const (
	offsetTAI64Sec  = 0  // bytes 0-7: TAI64N seconds
	offsetTAI64Nano = 8  // bytes 8-11: TAI64N nanoseconds
	offsetPID       = 12 // bytes 12-15: PID
	offsetPaused    = 16 // byte 16: paused flag
	offsetWant      = 17 // byte 17: want flag
	offsetTerm      = 18 // byte 18: term flag
	offsetRun       = 19 // byte 19: run state
)

// runStateFinish is the run state byte while the finish script runs
const runStateFinish = 2

// runitStatus is a decoded supervise/status record
type runitStatus struct {
	PID       int
	Since     time.Time
	Paused    bool
	WantUp    bool
	WantDown  bool
	Finishing bool
}

// decodeRunitStatus decodes a 20-byte runit status record.
// The format is:
//
//	bytes 0-7:   TAI64N seconds (big-endian uint64)
//	bytes 8-11:  TAI64N nanoseconds (big-endian uint32)
//	bytes 12-15: PID (little-endian uint32)
//	byte 16:     paused flag
//	byte 17:     want flag ('u' for up, 'd' for down)
//	byte 18:     term flag (SIGTERM sent)
//	byte 19:     run state (0 down, 1 run, 2 finish)
func decodeRunitStatus(data []byte) (runitStatus, error) {
	if len(data) != StatusFileSize {
		return runitStatus{}, fmt.Errorf("invalid status record: expected %d bytes, got %d", StatusFileSize, len(data))
	}

	var st runitStatus

	// runsv packs the pid least significant byte first
	st.PID = int(binary.LittleEndian.Uint32(data[offsetPID:offsetPaused]))

	sec := binary.BigEndian.Uint64(data[offsetTAI64Sec:offsetTAI64Nano])
	nano := binary.BigEndian.Uint32(data[offsetTAI64Nano:offsetPID])
	if sec > TAI64Base {
		unixSec := int64(sec - TAI64Base)
		if unixSec < 253402300800 { // before year 10000
			st.Since = time.Unix(unixSec, int64(nano))
		}
	}

	st.Paused = data[offsetPaused] != 0
	st.WantUp = data[offsetWant] == 'u'
	st.WantDown = data[offsetWant] == 'd'
	st.Finishing = data[offsetRun] == runStateFinish

	return st, nil
}

// serviceStatus maps the record onto the registrar's view of a service
func (st runitStatus) serviceStatus(name string) ServiceStatus {
	status := ServiceStatus{Name: name, PID: st.PID}

	switch {
	case st.PID > 0 && st.Paused:
		status.State = ServiceStatePaused
	case st.Finishing:
		status.State = ServiceStateStopPending
	case st.PID > 0 && st.WantDown:
		status.State = ServiceStateStopPending
	case st.PID > 0:
		status.State = ServiceStateRunning
	case st.WantUp:
		status.State = ServiceStateStartPending
	default:
		status.State = ServiceStateStopped
	}

	status.CanStop = !st.Finishing && (st.PID > 0 || st.WantUp)
	return status
}

// BuildRunScript generates the run script registered for def.
// Standard error of the host joins its standard output in runsv's log pipe.
func BuildRunScript(def ServiceDefinition, chpstPath string) (string, error) {
	if def.Program == "" {
		return "", fmt.Errorf("command not specified")
	}
	if chpstPath == "" {
		chpstPath = DefaultChpstPath
	}

	lines := []string{"#!/bin/sh", "exec 2>&1"}

	cmdParts := make([]string, 0, len(def.Args)+4)

	switch def.Account {
	case AccountUser:
		if def.UserName != "" {
			cmdParts = append(cmdParts, chpstPath, "-u", shellQuote(def.UserName))
		}
	case AccountLocalService, AccountNetworkService:
		cmdParts = append(cmdParts, chpstPath, "-u", unprivilegedUser)
	}

	cmdParts = append(cmdParts, shellQuote(def.Program))
	for _, arg := range def.Args {
		cmdParts = append(cmdParts, shellQuote(arg))
	}

	lines = append(lines, "exec "+strings.Join(cmdParts, " "))

	return strings.Join(lines, "\n") + "\n", nil
}

// BuildFinishScript generates the finish script. It marks the service down
// once the host exits, so runsv does not start it again.
func BuildFinishScript() string {
	lines := []string{
		"#!/bin/sh",
		fmt.Sprintf("printf %c > %s/%s", runitControlDown, SuperviseDir, ControlFile),
	}
	return strings.Join(lines, "\n") + "\n"
}

// shellQuote escapes a string for safe use in shell scripts
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}

	if !needsShellQuoting(s) {
		return s
	}

	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}

// needsShellQuoting checks if a string contains characters that require shell quoting
func needsShellQuoting(s string) bool {
	const specialChars = " \t\n'\"\\$`!*?[](){}<>|&;~#"

	for _, r := range s {
		if strings.ContainsRune(specialChars, r) {
			return true
		}
	}
	return false
}

package svchost

import (
	"fmt"
	"strconv"
	"strings"
)

// systemd property values read by Query
const (
	systemdLoadNotFound     = "not-found"
	systemdActive           = "active"
	systemdActivating       = "activating"
	systemdDeactivating     = "deactivating"
	systemdInactive         = "inactive"
	systemdFailed           = "failed"
	systemdSubStateRunning  = "running"
	systemdShowProperties   = "LoadState,ActiveState,SubState,MainPID"
	systemdUnitSuffix       = ".service"
	systemdManagedByComment = "# Managed by svchost"
)

// BuildSystemdUnit generates the unit file registered for def.
// The unit starts the host once and never restarts it; stopping the unit only
// signals the host, so the managed process outlives a service stop.
func BuildSystemdUnit(def ServiceDefinition) (string, error) {
	if def.Program == "" {
		return "", fmt.Errorf("command not specified")
	}

	description := def.DisplayName
	if description == "" {
		description = def.Name
	}

	var unit strings.Builder

	unit.WriteString("[Unit]\n")
	fmt.Fprintf(&unit, "Description=%s\n", description)
	unit.WriteString("After=network.target\n")
	unit.WriteString(systemdManagedByComment + "\n")
	unit.WriteString("\n")

	unit.WriteString("[Service]\n")
	unit.WriteString("Type=simple\n")
	unit.WriteString("Restart=no\n")
	unit.WriteString("KillMode=process\n")
	unit.WriteString("KillSignal=SIGTERM\n")

	switch def.Account {
	case AccountUser:
		if def.UserName != "" {
			fmt.Fprintf(&unit, "User=%s\n", def.UserName)
		}
	case AccountLocalService, AccountNetworkService:
		unit.WriteString("DynamicUser=yes\n")
	}

	execStart := make([]string, 0, len(def.Args)+1)
	execStart = append(execStart, systemdQuote(def.Program))
	for _, arg := range def.Args {
		execStart = append(execStart, systemdQuote(arg))
	}
	fmt.Fprintf(&unit, "ExecStart=%s\n", strings.Join(execStart, " "))

	unit.WriteString("StandardOutput=journal\n")
	unit.WriteString("StandardError=journal\n")

	unit.WriteString("\n")
	unit.WriteString("[Install]\n")
	unit.WriteString("WantedBy=multi-user.target\n")

	return unit.String(), nil
}

// systemdQuote quotes an ExecStart word. Specifier and variable expansion
// characters are doubled so the value reaches the host unchanged.
func systemdQuote(s string) string {
	s = strings.ReplaceAll(s, "%", "%%")
	s = strings.ReplaceAll(s, "$", "$$")

	if s != "" && !strings.ContainsAny(s, " \t\n\"'\\;") {
		return s
	}

	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// parseSystemdShow maps the key=value output of systemctl show onto a
// ServiceStatus. found is false when systemd has no unit of that name.
func parseSystemdShow(name, output string) (status ServiceStatus, found bool) {
	status = ServiceStatus{Name: name}
	var loadState, activeState, subState string

	for _, line := range strings.Split(output, "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.TrimSpace(key) {
		case "LoadState":
			loadState = value
		case "ActiveState":
			activeState = value
		case "SubState":
			subState = value
		case "MainPID":
			if pid, err := strconv.Atoi(value); err == nil && pid > 0 {
				status.PID = pid
			}
		}
	}

	if loadState == "" || loadState == systemdLoadNotFound {
		return status, false
	}

	switch activeState {
	case systemdActive:
		if subState == systemdSubStateRunning || status.PID > 0 {
			status.State = ServiceStateRunning
		} else {
			status.State = ServiceStateStopped
		}
	case systemdActivating:
		status.State = ServiceStateStartPending
	case systemdDeactivating:
		status.State = ServiceStateStopPending
	case systemdInactive, systemdFailed:
		status.State = ServiceStateStopped
	default:
		status.State = ServiceStateUnknown
	}

	status.CanStop = status.State == ServiceStateRunning || status.State == ServiceStateStartPending
	return status, true
}

//go:build windows

package svchost

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

// Built-in service accounts
const (
	windowsLocalServiceAccount   = `NT AUTHORITY\LocalService`
	windowsNetworkServiceAccount = `NT AUTHORITY\NetworkService`
)

// ControlWindows registers and controls services through the service control manager
type ControlWindows struct {
	// Timeout bounds the wait for a stop request to take effect
	Timeout time.Duration
}

// NewControlWindows creates a Windows backend from config
func NewControlWindows(config *ControlConfig) *ControlWindows {
	c := &ControlWindows{Timeout: DefaultControlTimeout}
	if config != nil && config.Timeout > 0 {
		c.Timeout = config.Timeout
	}
	return c
}

func newControlWindows(config *ControlConfig) (ServiceControl, error) {
	return NewControlWindows(config), nil
}

// withService connects to the SCM, opens name and calls fn
func withService(op Operation, name string, fn func(s *mgr.Service) error) error {
	m, err := mgr.Connect()
	if err != nil {
		return &OpError{Op: op, Name: name, Err: fmt.Errorf("connecting to service manager: %w", err)}
	}
	defer func() { _ = m.Disconnect() }()

	s, err := m.OpenService(name)
	if err != nil {
		return &OpError{Op: op, Name: name, Err: mapWindowsError(err)}
	}
	defer func() { _ = s.Close() }()

	if err := fn(s); err != nil {
		return &OpError{Op: op, Name: name, Err: mapWindowsError(err)}
	}
	return nil
}

// Create registers the service with the SCM
func (c *ControlWindows) Create(_ context.Context, def ServiceDefinition) error {
	m, err := mgr.Connect()
	if err != nil {
		return &OpError{Op: OpCreate, Name: def.Name, Err: fmt.Errorf("connecting to service manager: %w", err)}
	}
	defer func() { _ = m.Disconnect() }()

	config := mgr.Config{
		DisplayName: def.DisplayName,
		StartType:   mgr.StartManual,
	}
	if def.AutoStart {
		config.StartType = mgr.StartAutomatic
	}

	switch def.Account {
	case AccountLocalService:
		config.ServiceStartName = windowsLocalServiceAccount
	case AccountNetworkService:
		config.ServiceStartName = windowsNetworkServiceAccount
	case AccountUser:
		config.ServiceStartName = windowsUserAccount(def.UserName)
		config.Password = def.Password
	}

	s, err := m.CreateService(def.Name, def.Program, config, def.Args...)
	if err != nil {
		return &OpError{Op: OpCreate, Name: def.Name, Err: mapWindowsError(err)}
	}
	return s.Close()
}

// windowsUserAccount qualifies a bare user name with the local machine
func windowsUserAccount(user string) string {
	if user == "" || strings.ContainsAny(user, `\@`) {
		return user
	}
	return `.\` + user
}

// Query reads the service status
func (c *ControlWindows) Query(_ context.Context, name string) (ServiceStatus, error) {
	var status ServiceStatus
	err := withService(OpQuery, name, func(s *mgr.Service) error {
		st, err := s.Query()
		if err != nil {
			return err
		}
		status = serviceStatusFromWindows(name, st)
		return nil
	})
	return status, err
}

func serviceStatusFromWindows(name string, st svc.Status) ServiceStatus {
	status := ServiceStatus{
		Name:    name,
		PID:     int(st.ProcessId),
		CanStop: st.Accepts&svc.AcceptStop != 0,
	}

	switch st.State {
	case svc.Stopped:
		status.State = ServiceStateStopped
	case svc.StartPending:
		status.State = ServiceStateStartPending
	case svc.StopPending:
		status.State = ServiceStateStopPending
	case svc.Running, svc.ContinuePending:
		status.State = ServiceStateRunning
	case svc.Paused, svc.PausePending:
		status.State = ServiceStatePaused
	default:
		status.State = ServiceStateUnknown
	}
	return status
}

// Start starts the service
func (c *ControlWindows) Start(_ context.Context, name string) error {
	return withService(OpStart, name, func(s *mgr.Service) error {
		return s.Start()
	})
}

// Stop sends a stop control and waits until the service reports stopped
func (c *ControlWindows) Stop(ctx context.Context, name string) error {
	return withService(OpStop, name, func(s *mgr.Service) error {
		st, err := s.Control(svc.Stop)
		if err != nil {
			return err
		}

		deadline := time.Now().Add(c.Timeout)
		for st.State != svc.Stopped {
			if time.Now().After(deadline) {
				return fmt.Errorf("%w: service still %d", ErrTimeout, st.State)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(300 * time.Millisecond):
			}
			if st, err = s.Query(); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete marks the service for deletion
func (c *ControlWindows) Delete(_ context.Context, name string) error {
	return withService(OpDelete, name, func(s *mgr.Service) error {
		return s.Delete()
	})
}

// mapWindowsError translates SCM error codes into package sentinels
func mapWindowsError(err error) error {
	switch {
	case errors.Is(err, windows.ERROR_SERVICE_DOES_NOT_EXIST):
		return fmt.Errorf("%w: %w", ErrServiceNotFound, err)
	case errors.Is(err, windows.ERROR_SERVICE_EXISTS):
		return fmt.Errorf("%w: %w", ErrServiceExists, err)
	case errors.Is(err, windows.ERROR_SERVICE_MARKED_FOR_DELETE):
		return fmt.Errorf("%w: %w", ErrServiceNotFound, err)
	default:
		return err
	}
}

// Ensure ControlWindows implements ServiceControl
var _ ServiceControl = (*ControlWindows)(nil)

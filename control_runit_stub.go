//go:build !linux && !darwin

package svchost

import "fmt"

func newControlRunit(_ *ControlConfig) (ServiceControl, error) {
	return nil, fmt.Errorf("%w: runit is only supported on Linux and macOS", ErrUnsupported)
}

//go:build !linux

package svchost

import "fmt"

func newControlSystemd(_ *ControlConfig) (ServiceControl, error) {
	return nil, fmt.Errorf("%w: systemd is only supported on Linux", ErrUnsupported)
}

//go:build !windows

package svchost

import "fmt"

func newControlWindows(_ *ControlConfig) (ServiceControl, error) {
	return nil, fmt.Errorf("%w: the service control manager is only available on Windows", ErrUnsupported)
}

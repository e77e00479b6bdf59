package svchost

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"
)

// ServiceType represents the service manager a service is registered with
type ServiceType int

const (
	// ServiceTypeUnknown lets DetectServiceType choose
	ServiceTypeUnknown ServiceType = iota
	// ServiceTypeSystemd represents systemd units
	ServiceTypeSystemd
	// ServiceTypeRunit represents runit service directories
	ServiceTypeRunit
	// ServiceTypeWindows represents the Windows service control manager
	ServiceTypeWindows
)

// ServiceType string constants
const (
	serviceTypeUnknownStr = "unknown"
	serviceTypeSystemdStr = "systemd"
	serviceTypeRunitStr   = "runit"
	serviceTypeWindowsStr = "windows"
)

// Default service manager locations
const (
	// DefaultSystemdUnitDir is where unit files are written
	DefaultSystemdUnitDir = "/etc/systemd/system"

	// DefaultSystemctlPath is the default path to the systemctl binary
	DefaultSystemctlPath = "systemctl"

	// DefaultRunitServiceDir holds the service definitions
	DefaultRunitServiceDir = "/etc/sv"

	// DefaultRunitScanDir is the directory runsvdir scans
	DefaultRunitScanDir = "/etc/service"

	// DefaultChpstPath is the default path to the chpst binary
	DefaultChpstPath = "chpst"

	// DefaultRunsvdirPath is the default path to the runsvdir binary
	DefaultRunsvdirPath = "runsvdir"

	// DefaultControlTimeout bounds a single backend command
	DefaultControlTimeout = 10 * time.Second

	// systemdRuntimeDir exists only when systemd is the running init
	systemdRuntimeDir = "/run/systemd/system"
)

// ControlConfig contains the settings of a service-control backend
type ControlConfig struct {
	// Type specifies which service manager this is for
	Type ServiceType
	// ServiceDir is the unit directory (systemd) or the service definition directory (runit)
	ServiceDir string
	// ScanDir is the directory runsvdir scans (runit only)
	ScanDir string
	// ToolPath is the path to systemctl (systemd only)
	ToolPath string
	// ChpstPath is the path to chpst, used to drop privileges (runit only)
	ChpstPath string
	// UseSudo runs privileged commands through SudoCommand (systemd only)
	UseSudo bool
	// SudoCommand is the sudo command to use
	SudoCommand string
	// Timeout bounds waiting for the service manager to pick up a new service
	Timeout time.Duration
}

// ConfigSystemd returns the default configuration for systemd
//
//nolint:revive // Clear naming for multiple config types
func ConfigSystemd() *ControlConfig {
	return &ControlConfig{
		Type:        ServiceTypeSystemd,
		ServiceDir:  DefaultSystemdUnitDir,
		ToolPath:    DefaultSystemctlPath,
		UseSudo:     os.Geteuid() > 0,
		SudoCommand: "sudo",
		Timeout:     DefaultControlTimeout,
	}
}

// ConfigRunit returns the default configuration for runit
//
//nolint:revive // Clear naming for multiple config types
func ConfigRunit() *ControlConfig {
	return &ControlConfig{
		Type:       ServiceTypeRunit,
		ServiceDir: DefaultRunitServiceDir,
		ScanDir:    DefaultRunitScanDir,
		ChpstPath:  DefaultChpstPath,
		Timeout:    DefaultControlTimeout,
	}
}

// ConfigWindows returns the default configuration for the Windows service control manager
//
//nolint:revive // Clear naming for multiple config types
func ConfigWindows() *ControlConfig {
	return &ControlConfig{
		Type:    ServiceTypeWindows,
		Timeout: DefaultControlTimeout,
	}
}

// ConfigFor returns the default configuration of a service type
func ConfigFor(t ServiceType) (*ControlConfig, error) {
	switch t {
	case ServiceTypeSystemd:
		return ConfigSystemd(), nil
	case ServiceTypeRunit:
		return ConfigRunit(), nil
	case ServiceTypeWindows:
		return ConfigWindows(), nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, t)
	}
}

// DetectServiceType picks the service manager of the running system
func DetectServiceType() ServiceType {
	if runtime.GOOS == "windows" {
		return ServiceTypeWindows
	}
	if fi, err := os.Stat(systemdRuntimeDir); err == nil && fi.IsDir() {
		return ServiceTypeSystemd
	}
	if _, err := exec.LookPath(DefaultRunsvdirPath); err == nil {
		return ServiceTypeRunit
	}
	return ServiceTypeUnknown
}

// NewServiceControl creates the backend for t, detecting one for ServiceTypeUnknown
func NewServiceControl(t ServiceType) (ServiceControl, error) {
	if t == ServiceTypeUnknown {
		t = DetectServiceType()
	}
	config, err := ConfigFor(t)
	if err != nil {
		return nil, err
	}
	return NewServiceControlWithConfig(config)
}

// NewServiceControlWithConfig creates the backend described by config
func NewServiceControlWithConfig(config *ControlConfig) (ServiceControl, error) {
	switch config.Type {
	case ServiceTypeSystemd:
		return newControlSystemd(config)
	case ServiceTypeRunit:
		return newControlRunit(config)
	case ServiceTypeWindows:
		return newControlWindows(config)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, config.Type)
	}
}

// ParseServiceType converts a flag value into a ServiceType
func ParseServiceType(s string) (ServiceType, error) {
	switch s {
	case serviceTypeSystemdStr:
		return ServiceTypeSystemd, nil
	case serviceTypeRunitStr:
		return ServiceTypeRunit, nil
	case serviceTypeWindowsStr:
		return ServiceTypeWindows, nil
	default:
		return ServiceTypeUnknown, fmt.Errorf("%w: unknown service manager %q", ErrInvalidArgument, s)
	}
}

// String returns the string representation of ServiceType
func (st ServiceType) String() string {
	switch st {
	case ServiceTypeSystemd:
		return serviceTypeSystemdStr
	case ServiceTypeRunit:
		return serviceTypeRunitStr
	case ServiceTypeWindows:
		return serviceTypeWindowsStr
	case ServiceTypeUnknown:
		fallthrough
	default:
		return serviceTypeUnknownStr
	}
}

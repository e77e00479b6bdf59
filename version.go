package svchost

import "runtime"

// Version is the current version of svchost
const Version = "1.0.0"

// VersionInfo contains detailed version information
type VersionInfo struct {
	// Version is the semantic version
	Version string
	// Platform is the operating system the binary was built for
	Platform string
	// Managers lists the service managers this build can register with
	Managers []ServiceType
}

// GetVersion returns the current version information
func GetVersion() VersionInfo {
	info := VersionInfo{Version: Version, Platform: runtime.GOOS}
	switch runtime.GOOS {
	case "windows":
		info.Managers = []ServiceType{ServiceTypeWindows}
	case "linux":
		info.Managers = []ServiceType{ServiceTypeSystemd, ServiceTypeRunit}
	case "darwin":
		info.Managers = []ServiceType{ServiceTypeRunit}
	}
	return info
}

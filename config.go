package svchost

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
)

// Action selects what the binary does with a parsed configuration
type Action int

const (
	// ActionStart runs under the service manager (bounded wait on start)
	ActionStart Action = iota
	// ActionInstall registers and starts the service
	ActionInstall
	// ActionUninstall stops and deregisters the service
	ActionUninstall
	// ActionRun runs in the foreground until the managed process exits
	ActionRun
)

// Action string constants, matched case-sensitively by ParseAction
const (
	actionStartStr     = "Start"
	actionInstallStr   = "Install"
	actionUninstallStr = "Uninstall"
	actionRunStr       = "Run"
)

// String returns the string representation of an Action
func (a Action) String() string {
	switch a {
	case ActionInstall:
		return actionInstallStr
	case ActionUninstall:
		return actionUninstallStr
	case ActionRun:
		return actionRunStr
	default:
		return actionStartStr
	}
}

// ParseAction converts a flag value into an Action
func ParseAction(s string) (Action, error) {
	switch s {
	case actionStartStr:
		return ActionStart, nil
	case actionInstallStr:
		return ActionInstall, nil
	case actionUninstallStr:
		return ActionUninstall, nil
	case actionRunStr:
		return ActionRun, nil
	default:
		return ActionStart, fmt.Errorf("%w: unknown action %q", ErrInvalidArgument, s)
	}
}

// Account is the identity a registered service runs under
type Account int

const (
	// AccountLocalSystem runs the service with full local privileges
	AccountLocalSystem Account = iota
	// AccountLocalService runs the service as the unprivileged local service account
	AccountLocalService
	// AccountNetworkService runs the service as the network service account
	AccountNetworkService
	// AccountUser runs the service as UserName with Password
	AccountUser
)

// Account string constants, matched case-sensitively by ParseAccount
const (
	accountLocalSystemStr    = "LocalSystem"
	accountLocalServiceStr   = "LocalService"
	accountNetworkServiceStr = "NetworkService"
	accountUserStr           = "User"
)

// String returns the string representation of an Account
func (a Account) String() string {
	switch a {
	case AccountLocalService:
		return accountLocalServiceStr
	case AccountNetworkService:
		return accountNetworkServiceStr
	case AccountUser:
		return accountUserStr
	default:
		return accountLocalSystemStr
	}
}

// ParseAccount converts a flag value into an Account
func ParseAccount(s string) (Account, error) {
	switch s {
	case accountLocalSystemStr:
		return AccountLocalSystem, nil
	case accountLocalServiceStr:
		return AccountLocalService, nil
	case accountNetworkServiceStr:
		return AccountNetworkService, nil
	case accountUserStr:
		return AccountUser, nil
	default:
		return AccountLocalSystem, fmt.Errorf("%w: unknown account %q", ErrInvalidArgument, s)
	}
}

// LogRoute says where the managed process's standard output goes
type LogRoute int

const (
	// RouteNone leaves the output pipe undrained
	RouteNone LogRoute = iota
	// RouteConsole copies output to the host's console stream
	RouteConsole
	// RouteFile appends output to the file at LogPath
	RouteFile
)

// String returns the string representation of a LogRoute
func (r LogRoute) String() string {
	switch r {
	case RouteConsole:
		return "console"
	case RouteFile:
		return "file"
	default:
		return "none"
	}
}

// ServiceConfiguration is the parsed command line of one service instance.
// It is not modified after ParseArgs returns; consumers take a Clone.
type ServiceConfiguration struct {
	// Executable is the program path followed by its argument string
	Executable string
	// LogPath is "console", a file path, or empty to leave output undrained
	LogPath string
	// ServiceName is the name registered with the service manager
	ServiceName string
	// DisplayName is the human readable service name
	DisplayName string
	// Account is the identity the registered service runs under
	Account Account
	// UserName is the account name when Account is AccountUser
	UserName string
	// Password is the account password when Account is AccountUser
	Password string
	// Action is what the binary does with this configuration
	Action Action
	// Manager forces a service-control backend instead of detecting one
	Manager ServiceType
}

// Clone returns a copy of the configuration
func (c *ServiceConfiguration) Clone() *ServiceConfiguration {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// Validate checks the configuration can start a supervisor
func (c *ServiceConfiguration) Validate() error {
	if strings.TrimSpace(c.Executable) == "" {
		return ErrNoExecutable
	}
	return nil
}

// LogRoute classifies LogPath
func (c *ServiceConfiguration) LogRoute() LogRoute {
	return RouteFor(c.LogPath)
}

// RouteFor classifies a log path
func RouteFor(logPath string) LogRoute {
	switch {
	case strings.TrimSpace(logPath) == "":
		return RouteNone
	case strings.EqualFold(logPath, ConsoleLogPath):
		return RouteConsole
	default:
		return RouteFile
	}
}

// Name returns ServiceName, or a name derived from the program when it is empty
func (c *ServiceConfiguration) Name() string {
	if c.ServiceName != "" {
		return c.ServiceName
	}
	program, _ := SplitCommandLine(c.Executable)
	base := filepath.Base(program)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Label returns DisplayName, falling back to Name
func (c *ServiceConfiguration) Label() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Name()
}

// SplitCommandLine splits an executable string at the first whitespace.
// The remainder is returned verbatim; it is not tokenized or unquoted.
func SplitCommandLine(executable string) (program, arguments string) {
	executable = strings.TrimLeftFunc(executable, unicode.IsSpace)
	i := strings.IndexFunc(executable, unicode.IsSpace)
	if i < 0 {
		return executable, ""
	}
	return executable[:i], executable[i+1:]
}

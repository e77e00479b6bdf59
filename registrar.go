package svchost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// ServiceState is the state of a registered service as its manager reports it
type ServiceState int

const (
	// ServiceStateUnknown indicates the manager reported a state we do not map
	ServiceStateUnknown ServiceState = iota
	// ServiceStateStopped indicates the service is not running
	ServiceStateStopped
	// ServiceStateStartPending indicates the service is starting
	ServiceStateStartPending
	// ServiceStateStopPending indicates the service is stopping
	ServiceStateStopPending
	// ServiceStateRunning indicates the service is running
	ServiceStateRunning
	// ServiceStatePaused indicates the service is paused
	ServiceStatePaused
)

// String returns the string representation of the service state
func (s ServiceState) String() string {
	switch s {
	case ServiceStateStopped:
		return "stopped"
	case ServiceStateStartPending:
		return "start_pending"
	case ServiceStateStopPending:
		return "stop_pending"
	case ServiceStateRunning:
		return "running"
	case ServiceStatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// ServiceStatus is a snapshot of a registered service
type ServiceStatus struct {
	// Name is the registered service name
	Name string
	// State is the current service state
	State ServiceState
	// CanStop reports whether the manager currently accepts a stop request
	CanStop bool
	// PID is the main process ID, 0 when not running
	PID int
}

// ServiceDefinition describes a service to register
type ServiceDefinition struct {
	// Name is the service name
	Name string
	// DisplayName is the human readable name
	DisplayName string
	// Program is the binary the service manager starts
	Program string
	// Args are (flag, value) pairs passed to Program
	Args []string
	// Account is the identity the service runs under
	Account Account
	// UserName is the account name for AccountUser
	UserName string
	// Password is the account password for AccountUser
	Password string
	// AutoStart starts the service at boot
	AutoStart bool
}

// CommandLine renders Program and Args as a single binary-path string with
// every value quoted, as BinPath does
func (d ServiceDefinition) CommandLine() string {
	parts := make([]string, 0, len(d.Args)+1)
	parts = append(parts, quoteArg(d.Program))
	for i, a := range d.Args {
		if i%2 == 0 {
			parts = append(parts, a)
		} else {
			parts = append(parts, quoteValue(a))
		}
	}
	return strings.Join(parts, " ")
}

// ServiceControl is the part of a service manager the registrar needs
type ServiceControl interface {
	// Create registers a new service; ErrServiceExists if the name is taken
	Create(ctx context.Context, def ServiceDefinition) error
	// Query reads the service status; ErrServiceNotFound if not registered
	Query(ctx context.Context, name string) (ServiceStatus, error)
	// Start starts a registered service
	Start(ctx context.Context, name string) error
	// Stop asks a running service to stop
	Stop(ctx context.Context, name string) error
	// Delete removes the registration
	Delete(ctx context.Context, name string) error
}

// Registrar installs and uninstalls this binary as a service
type Registrar struct {
	// Binary is the program registered as the service binary
	Binary string

	control ServiceControl
	logger  *slog.Logger
}

// RegistrarOption configures a Registrar
type RegistrarOption func(*Registrar)

// WithBinary sets the registered program instead of the running executable
func WithBinary(path string) RegistrarOption {
	return func(r *Registrar) {
		r.Binary = path
	}
}

// WithRegistrarLogger sets the registrar logger
func WithRegistrarLogger(logger *slog.Logger) RegistrarOption {
	return func(r *Registrar) {
		r.logger = logger
	}
}

// NewRegistrar creates a Registrar using control
func NewRegistrar(control ServiceControl, opts ...RegistrarOption) (*Registrar, error) {
	r := &Registrar{
		control: control,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.Binary == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolving service binary: %w", err)
		}
		r.Binary = exe
	}

	return r, nil
}

// Definition builds the service definition registered for config
func (r *Registrar) Definition(config *ServiceConfiguration) ServiceDefinition {
	return ServiceDefinition{
		Name:        config.Name(),
		DisplayName: config.Label(),
		Program:     r.Binary,
		Args:        InstallArgs(config),
		Account:     config.Account,
		UserName:    config.UserName,
		Password:    config.Password,
		AutoStart:   true,
	}
}

// Install registers the service with automatic start and starts it unless it
// is already running
func (r *Registrar) Install(ctx context.Context, config *ServiceConfiguration) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("installing service: %w", err)
	}

	def := r.Definition(config)
	logger := r.logger.With("service", def.Name)

	if err := r.control.Create(ctx, def); err != nil {
		return err
	}
	logger.InfoContext(ctx, "service registered", "command_line", def.CommandLine(), "account", def.Account.String())

	status, err := r.control.Query(ctx, def.Name)
	if err != nil {
		return err
	}

	if status.State == ServiceStateRunning || status.State == ServiceStateStartPending {
		logger.InfoContext(ctx, "service already running", "state", status.State.String())
		return nil
	}

	if err := r.control.Start(ctx, def.Name); err != nil {
		return err
	}
	logger.InfoContext(ctx, "service started")
	return nil
}

// Uninstall stops the service when it can be stopped and deregisters it.
// Uninstalling a service that is not registered succeeds.
func (r *Registrar) Uninstall(ctx context.Context, config *ServiceConfiguration) error {
	name := config.Name()
	logger := r.logger.With("service", name)

	status, err := r.control.Query(ctx, name)
	if errors.Is(err, ErrServiceNotFound) {
		logger.InfoContext(ctx, "service not registered, nothing to uninstall")
		return nil
	}
	if err != nil {
		return err
	}

	var errs MultiError

	if status.CanStop && status.State != ServiceStateStopped && status.State != ServiceStateStopPending {
		if err := r.control.Stop(ctx, name); err != nil {
			logger.WarnContext(ctx, "stopping service failed", "error", err)
			errs.Add(err)
		} else {
			logger.InfoContext(ctx, "service stopped")
		}
	}

	if err := r.control.Delete(ctx, name); err != nil && !errors.Is(err, ErrServiceNotFound) {
		errs.Add(err)
	} else {
		logger.InfoContext(ctx, "service deregistered")
	}

	return errs.Err()
}

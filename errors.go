package svchost

import (
	"errors"
	"fmt"
)

// Common errors returned by svchost operations
var (
	// ErrNoConfig indicates the argument list did not form a configuration
	ErrNoConfig = errors.New("svchost: no configuration")

	// ErrInvalidArgument indicates a flag value could not be parsed
	ErrInvalidArgument = errors.New("svchost: invalid argument")

	// ErrNoExecutable indicates the configuration names no executable to supervise
	ErrNoExecutable = errors.New("svchost: executable is not defined")

	// ErrAlreadyStarted indicates the supervisor already activated a process
	ErrAlreadyStarted = errors.New("svchost: supervisor already started")

	// ErrServiceNotFound indicates the service manager has no such service
	ErrServiceNotFound = errors.New("svchost: service not found")

	// ErrServiceExists indicates the service manager already has a service with that name
	ErrServiceExists = errors.New("svchost: service already exists")

	// ErrUnsupported indicates the service manager is not available on this platform
	ErrUnsupported = errors.New("svchost: unsupported service manager")

	// ErrSinkWrite indicates the output sink rejected a write
	ErrSinkWrite = errors.New("svchost: sink write failed")

	// ErrTimeout indicates an operation exceeded its timeout
	ErrTimeout = errors.New("svchost: timeout")
)

// OpError represents an error from a supervision or service-control operation
type OpError struct {
	// Op is the operation that failed
	Op Operation
	// Name is the program, path or service name involved in the operation
	Name string
	// Err is the underlying error
	Err error
}

// Error returns a formatted error message
func (e *OpError) Error() string {
	return fmt.Sprintf("svchost %s %q: %v", e.Op.String(), e.Name, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *OpError) Unwrap() error {
	return e.Err
}

// MultiError aggregates the errors of a multi-step service-control action
type MultiError struct {
	// Errors contains all accumulated errors
	Errors []error
}

// Error returns a summary of the accumulated errors
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred: %v", len(m.Errors), errors.Join(m.Errors...))
}

// Unwrap exposes the accumulated errors to errors.Is and errors.As
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Add appends an error to the collection if it's not nil
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// Err returns nil if no errors occurred, otherwise returns the MultiError itself
func (m *MultiError) Err() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}

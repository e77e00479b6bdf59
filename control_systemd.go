//go:build linux

package svchost

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"
)

// ControlSystemd registers and controls services as systemd units
type ControlSystemd struct {
	// UnitDir is the directory where unit files are written
	UnitDir string

	// SystemctlPath is the path to systemctl binary
	SystemctlPath string

	// UseSudo indicates whether to use sudo for privileged operations
	UseSudo bool

	// SudoCommand is the sudo command to use (default: "sudo")
	SudoCommand string

	// Timeout for systemctl operations
	Timeout time.Duration
}

// NewControlSystemd creates a systemd backend from config
func NewControlSystemd(config *ControlConfig) *ControlSystemd {
	c := &ControlSystemd{
		UnitDir:       DefaultSystemdUnitDir,
		SystemctlPath: DefaultSystemctlPath,
		SudoCommand:   "sudo",
		Timeout:       DefaultControlTimeout,
	}

	if config != nil {
		if config.ServiceDir != "" {
			c.UnitDir = config.ServiceDir
		}
		if config.ToolPath != "" {
			c.SystemctlPath = config.ToolPath
		}
		if config.SudoCommand != "" {
			c.SudoCommand = config.SudoCommand
		}
		if config.Timeout > 0 {
			c.Timeout = config.Timeout
		}
		c.UseSudo = config.UseSudo
	}

	return c
}

func newControlSystemd(config *ControlConfig) (ServiceControl, error) {
	return NewControlSystemd(config), nil
}

func (c *ControlSystemd) unitPath(name string) string {
	return filepath.Join(c.UnitDir, name+systemdUnitSuffix)
}

// command builds a privileged command, prefixed with sudo when configured
func (c *ControlSystemd) command(ctx context.Context, name string, args ...string) *exec.Cmd {
	if c.UseSudo {
		return exec.CommandContext(ctx, c.SudoCommand, append([]string{name}, args...)...)
	}
	return exec.CommandContext(ctx, name, args...)
}

// systemctl executes a systemctl command and returns its standard output
func (c *ControlSystemd) systemctl(ctx context.Context, args ...string) (string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := c.command(ctx, c.SystemctlPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("systemctl %s: %w (stderr: %s)", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}

	return stdout.String(), nil
}

// Create writes the unit file, reloads systemd and enables the unit
func (c *ControlSystemd) Create(ctx context.Context, def ServiceDefinition) error {
	path := c.unitPath(def.Name)

	if _, err := os.Stat(path); err == nil {
		return &OpError{Op: OpCreate, Name: def.Name, Err: ErrServiceExists}
	}

	unit, err := BuildSystemdUnit(def)
	if err != nil {
		return &OpError{Op: OpCreate, Name: def.Name, Err: err}
	}

	if err := c.writeUnitFile(ctx, path, unit); err != nil {
		return &OpError{Op: OpCreate, Name: def.Name, Err: fmt.Errorf("writing unit file: %w", err)}
	}

	if _, err := c.systemctl(ctx, "daemon-reload"); err != nil {
		return &OpError{Op: OpCreate, Name: def.Name, Err: err}
	}

	if def.AutoStart {
		if _, err := c.systemctl(ctx, "enable", def.Name+systemdUnitSuffix); err != nil {
			return &OpError{Op: OpCreate, Name: def.Name, Err: err}
		}
	}

	return nil
}

// writeUnitFile writes the unit file, using sudo if necessary
func (c *ControlSystemd) writeUnitFile(ctx context.Context, path string, content string) error {
	if !c.UseSudo {
		return renameio.WriteFile(path, []byte(content), FileMode)
	}

	// Equivalent to: echo "content" | sudo tee /path/to/file
	cmd := exec.CommandContext(ctx, c.SudoCommand, "tee", path)
	cmd.Stdin = strings.NewReader(content)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("sudo tee failed: %w (output: %s)", err, out.String())
	}

	return nil
}

// Query reads the unit state through systemctl show
func (c *ControlSystemd) Query(ctx context.Context, name string) (ServiceStatus, error) {
	out, err := c.systemctl(ctx, "show", "-p", systemdShowProperties, "--no-pager", name+systemdUnitSuffix)
	if err != nil {
		return ServiceStatus{}, &OpError{Op: OpQuery, Name: name, Err: err}
	}

	status, found := parseSystemdShow(name, out)
	if !found {
		return ServiceStatus{}, &OpError{Op: OpQuery, Name: name, Err: ErrServiceNotFound}
	}
	return status, nil
}

// Start starts the unit
func (c *ControlSystemd) Start(ctx context.Context, name string) error {
	if _, err := c.systemctl(ctx, "start", name+systemdUnitSuffix); err != nil {
		return &OpError{Op: OpStart, Name: name, Err: err}
	}
	return nil
}

// Stop stops the unit
func (c *ControlSystemd) Stop(ctx context.Context, name string) error {
	if _, err := c.systemctl(ctx, "stop", name+systemdUnitSuffix); err != nil {
		return &OpError{Op: OpStop, Name: name, Err: err}
	}
	return nil
}

// Delete disables the unit, removes its file and reloads systemd
func (c *ControlSystemd) Delete(ctx context.Context, name string) error {
	path := c.unitPath(name)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return &OpError{Op: OpDelete, Name: name, Err: ErrServiceNotFound}
	}

	// Disable the service (ignore errors if it's not enabled)
	_, _ = c.systemctl(ctx, "disable", name+systemdUnitSuffix)

	var err error
	if c.UseSudo {
		err = c.command(ctx, "rm", "-f", path).Run()
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		return &OpError{Op: OpDelete, Name: name, Err: fmt.Errorf("removing unit file: %w", err)}
	}

	if _, err := c.systemctl(ctx, "daemon-reload"); err != nil {
		return &OpError{Op: OpDelete, Name: name, Err: err}
	}
	return nil
}

// Ensure ControlSystemd implements ServiceControl
var _ ServiceControl = (*ControlSystemd)(nil)

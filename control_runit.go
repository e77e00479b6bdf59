//go:build linux || darwin

package svchost

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/renameio/v2"

	"github.com/axondata/go-svchost/internal/fifo"
)

// Retry settings for control writes while runsv is still opening its FIFO
const (
	runitBackoffMin  = 10 * time.Millisecond
	runitBackoffMax  = time.Second
	runitMaxAttempts = 10
)

// ControlRunit registers services as runit service directories and controls
// them through runsv's supervise files, without shelling out to sv
type ControlRunit struct {
	// ServiceDir holds the service definitions
	ServiceDir string

	// ScanDir is the directory runsvdir scans; services are linked into it
	ScanDir string

	// ChpstPath is the path to the chpst binary
	ChpstPath string

	// Timeout bounds the wait for runsv to supervise a new service
	Timeout time.Duration

	// mu protects concurrent access to send operations
	mu sync.Mutex
}

// NewControlRunit creates a runit backend from config
func NewControlRunit(config *ControlConfig) *ControlRunit {
	c := &ControlRunit{
		ServiceDir: DefaultRunitServiceDir,
		ScanDir:    DefaultRunitScanDir,
		ChpstPath:  DefaultChpstPath,
		Timeout:    DefaultControlTimeout,
	}

	if config != nil {
		if config.ServiceDir != "" {
			c.ServiceDir = config.ServiceDir
		}
		if config.ScanDir != "" {
			c.ScanDir = config.ScanDir
		}
		if config.ChpstPath != "" {
			c.ChpstPath = config.ChpstPath
		}
		if config.Timeout > 0 {
			c.Timeout = config.Timeout
		}
	}

	return c
}

func newControlRunit(config *ControlConfig) (ServiceControl, error) {
	return NewControlRunit(config), nil
}

func (c *ControlRunit) serviceDir(name string) string {
	return filepath.Join(c.ServiceDir, name)
}

func (c *ControlRunit) linkPath(name string) string {
	return filepath.Join(c.ScanDir, name)
}

// Create writes the service directory, links it into the scan directory and
// waits for runsv to take it over
func (c *ControlRunit) Create(ctx context.Context, def ServiceDefinition) error {
	dir := c.serviceDir(def.Name)

	if _, err := os.Lstat(dir); err == nil {
		return &OpError{Op: OpCreate, Name: def.Name, Err: ErrServiceExists}
	}

	if err := c.build(dir, def); err != nil {
		return &OpError{Op: OpCreate, Name: def.Name, Err: err}
	}

	if err := os.MkdirAll(c.ScanDir, DirMode); err != nil {
		return &OpError{Op: OpCreate, Name: def.Name, Err: fmt.Errorf("creating scan directory: %w", err)}
	}
	if err := os.Symlink(dir, c.linkPath(def.Name)); err != nil {
		return &OpError{Op: OpCreate, Name: def.Name, Err: fmt.Errorf("linking service: %w", err)}
	}

	control := filepath.Join(dir, SuperviseDir, ControlFile)
	if err := waitForPath(ctx, control, c.Timeout); err != nil {
		return &OpError{Op: OpCreate, Name: def.Name, Err: fmt.Errorf("waiting for runsv: %w", err)}
	}

	return nil
}

// build creates the service directory with its run and finish scripts
func (c *ControlRunit) build(dir string, def ServiceDefinition) error {
	if err := os.MkdirAll(dir, DirMode); err != nil {
		return fmt.Errorf("creating service directory: %w", err)
	}

	run, err := BuildRunScript(def, c.ChpstPath)
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(filepath.Join(dir, "run"), []byte(run), ExecMode); err != nil {
		return fmt.Errorf("writing run script: %w", err)
	}

	if err := renameio.WriteFile(filepath.Join(dir, "finish"), []byte(BuildFinishScript()), ExecMode); err != nil {
		return fmt.Errorf("writing finish script: %w", err)
	}

	if !def.AutoStart {
		if err := renameio.WriteFile(filepath.Join(dir, DownFile), nil, FileMode); err != nil {
			return fmt.Errorf("writing down file: %w", err)
		}
	}

	return nil
}

// Query reads and decodes the binary status file
func (c *ControlRunit) Query(_ context.Context, name string) (ServiceStatus, error) {
	dir := c.serviceDir(name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return ServiceStatus{}, &OpError{Op: OpQuery, Name: name, Err: ErrServiceNotFound}
	}

	statusPath := filepath.Join(dir, SuperviseDir, StatusFile)

	file, err := os.Open(statusPath)
	if errors.Is(err, os.ErrNotExist) {
		// Registered but not yet supervised
		return ServiceStatus{Name: name, State: ServiceStateUnknown}, nil
	}
	if err != nil {
		return ServiceStatus{}, &OpError{Op: OpQuery, Name: name, Err: err}
	}
	defer func() { _ = file.Close() }()

	buf := make([]byte, StatusFileSize)
	if _, err := io.ReadFull(file, buf); err != nil {
		return ServiceStatus{}, &OpError{Op: OpQuery, Name: name, Err: err}
	}

	st, err := decodeRunitStatus(buf)
	if err != nil {
		return ServiceStatus{}, &OpError{Op: OpQuery, Name: name, Err: err}
	}
	return st.serviceStatus(name), nil
}

// Start sets the service want up
func (c *ControlRunit) Start(ctx context.Context, name string) error {
	return c.send(ctx, OpStart, name, runitControlUp)
}

// Stop sets the service want down
func (c *ControlRunit) Stop(ctx context.Context, name string) error {
	return c.send(ctx, OpStop, name, runitControlDown)
}

// Delete stops supervision, unlinks the service from the scan directory and
// removes its directory
func (c *ControlRunit) Delete(ctx context.Context, name string) error {
	dir := c.serviceDir(name)
	link := c.linkPath(name)

	_, dirErr := os.Lstat(dir)
	_, linkErr := os.Lstat(link)
	if errors.Is(dirErr, os.ErrNotExist) && errors.Is(linkErr, os.ErrNotExist) {
		return &OpError{Op: OpDelete, Name: name, Err: ErrServiceNotFound}
	}

	// runsv may already be gone; removing the link is what matters
	_ = c.send(ctx, OpDelete, name, runitControlDown)
	_ = c.send(ctx, OpDelete, name, runitControlExit)

	var errs MultiError
	if err := os.Remove(link); err != nil && !errors.Is(err, os.ErrNotExist) {
		errs.Add(&OpError{Op: OpDelete, Name: name, Err: fmt.Errorf("unlinking service: %w", err)})
	}
	if err := os.RemoveAll(dir); err != nil {
		errs.Add(&OpError{Op: OpDelete, Name: name, Err: fmt.Errorf("removing service directory: %w", err)})
	}
	return errs.Err()
}

// send writes a single control byte to the service's control FIFO.
// It retries with exponential backoff while runsv has no reader open.
func (c *ControlRunit) send(ctx context.Context, op Operation, name string, cmd byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	controlPath := filepath.Join(c.serviceDir(name), SuperviseDir, ControlFile)

	var lastErr error
	backoff := runitBackoffMin

	for attempt := 0; attempt < runitMaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return &OpError{Op: op, Name: name, Err: ctx.Err()}
			case <-time.After(backoff):
			}

			backoff *= 2
			if backoff > runitBackoffMax {
				backoff = runitBackoffMax
			}
		}

		err := fifo.WriteByte(controlPath, cmd)
		if err == nil {
			return nil
		}
		lastErr = err

		if errors.Is(err, os.ErrNotExist) {
			break
		}
	}

	return &OpError{Op: op, Name: name, Err: lastErr}
}

// waitForPath blocks until path exists, watching the deepest existing
// directory on the way to it
func waitForPath(ctx context.Context, path string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	watched := make(map[string]struct{})

	// exists watches the deepest existing directory on the way to path until
	// no deeper one shows up between the check and the watch
	exists := func() (bool, error) {
		for {
			if _, err := os.Stat(path); err == nil {
				return true, nil
			}

			dir := filepath.Dir(path)
			for {
				if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
					break
				}
				parent := filepath.Dir(dir)
				if parent == dir {
					break
				}
				dir = parent
			}

			if _, ok := watched[dir]; ok {
				return false, nil
			}
			if err := watcher.Add(dir); err != nil {
				return false, err
			}
			watched[dir] = struct{}{}
		}
	}

	for {
		ok, err := exists()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: %s did not appear", ErrTimeout, path)
			}
			return ctx.Err()
		case _, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watching %s: watcher closed", path)
			}
		case err, ok := <-watcher.Errors:
			if ok && err != nil {
				return fmt.Errorf("watching %s: %w", path, err)
			}
		}
	}
}

// Ensure ControlRunit implements ServiceControl
var _ ServiceControl = (*ControlRunit)(nil)

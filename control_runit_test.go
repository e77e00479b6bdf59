//go:build linux || darwin

package svchost

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axondata/go-svchost/internal/fifo"
)

func newTestRunit(t *testing.T, timeout time.Duration) *ControlRunit {
	t.Helper()
	root := t.TempDir()
	return NewControlRunit(&ControlConfig{
		Type:       ServiceTypeRunit,
		ServiceDir: filepath.Join(root, "sv"),
		ScanDir:    filepath.Join(root, "service"),
		Timeout:    timeout,
	})
}

// fakeRunsv takes over the service directory the way runsv does: once the run
// script appears it creates supervise/control and reports every control byte.
func fakeRunsv(t *testing.T, dir string) <-chan byte {
	t.Helper()
	received := make(chan byte, 16)
	opened := make(chan *os.File, 1)

	go func() {
		deadline := time.Now().Add(5 * time.Second)
		for {
			if _, err := os.Stat(filepath.Join(dir, "run")); err == nil {
				break
			}
			if time.Now().After(deadline) {
				close(opened)
				return
			}
			time.Sleep(5 * time.Millisecond)
		}

		supervise := filepath.Join(dir, SuperviseDir)
		if err := os.MkdirAll(supervise, DirMode); err != nil {
			close(opened)
			return
		}
		control := filepath.Join(supervise, ControlFile)
		if err := fifo.Make(control, 0o600); err != nil {
			close(opened)
			return
		}

		// Read-write keeps a writer attached so reads block instead of hitting EOF
		f, err := os.OpenFile(control, os.O_RDWR, 0)
		if err != nil {
			close(opened)
			return
		}
		opened <- f

		buf := make([]byte, 1)
		for {
			if _, err := f.Read(buf); err != nil {
				return
			}
			received <- buf[0]
		}
	}()

	t.Cleanup(func() {
		if f, ok := <-opened; ok && f != nil {
			_ = f.Close()
		}
	})
	return received
}

func expectControl(t *testing.T, received <-chan byte, want byte) {
	t.Helper()
	select {
	case got := <-received:
		assert.Equal(t, string(want), string(got))
	case <-time.After(5 * time.Second):
		t.Fatalf("control byte %q not received", want)
	}
}

func TestControlRunitLifecycle(t *testing.T) {
	c := newTestRunit(t, 5*time.Second)
	def := ServiceDefinition{
		Name:      "pinger",
		Program:   "/opt/svchost/bin/svchost",
		Args:      []string{"-exe", "ping -c 5 127.0.0.1"},
		AutoStart: true,
	}
	dir := filepath.Join(c.ServiceDir, def.Name)
	received := fakeRunsv(t, dir)

	ctx := t.Context()
	require.NoError(t, c.Create(ctx, def))

	run, err := os.ReadFile(filepath.Join(dir, "run"))
	require.NoError(t, err)
	want, err := BuildRunScript(def, DefaultChpstPath)
	require.NoError(t, err)
	assert.Equal(t, want, string(run))

	fi, err := os.Stat(filepath.Join(dir, "finish"))
	require.NoError(t, err)
	assert.NotZero(t, fi.Mode()&0o100, "finish script is executable")

	assert.NoFileExists(t, filepath.Join(dir, DownFile))

	target, err := os.Readlink(filepath.Join(c.ScanDir, def.Name))
	require.NoError(t, err)
	assert.Equal(t, dir, target)

	require.NoError(t, c.Start(ctx, def.Name))
	expectControl(t, received, 'u')

	require.NoError(t, c.Stop(ctx, def.Name))
	expectControl(t, received, 'd')

	require.NoError(t, c.Delete(ctx, def.Name))
	expectControl(t, received, 'd')
	expectControl(t, received, 'x')
	assert.NoDirExists(t, dir)
	_, err = os.Lstat(filepath.Join(c.ScanDir, def.Name))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	err = c.Delete(ctx, def.Name)
	assert.ErrorIs(t, err, ErrServiceNotFound)
}

func TestControlRunitCreateManualStart(t *testing.T) {
	c := newTestRunit(t, 5*time.Second)
	def := ServiceDefinition{Name: "manual", Program: "/bin/svchost", Args: []string{"-exe", "app"}}
	dir := filepath.Join(c.ServiceDir, def.Name)
	fakeRunsv(t, dir)

	require.NoError(t, c.Create(t.Context(), def))
	assert.FileExists(t, filepath.Join(dir, DownFile))
}

func TestControlRunitCreateExisting(t *testing.T) {
	c := newTestRunit(t, time.Second)
	require.NoError(t, os.MkdirAll(filepath.Join(c.ServiceDir, "taken"), DirMode))

	err := c.Create(t.Context(), ServiceDefinition{Name: "taken", Program: "/bin/svchost"})
	require.ErrorIs(t, err, ErrServiceExists)

	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, OpCreate, opErr.Op)
}

func TestControlRunitCreateTimeout(t *testing.T) {
	c := newTestRunit(t, 100*time.Millisecond)

	start := time.Now()
	err := c.Create(t.Context(), ServiceDefinition{Name: "orphan", Program: "/bin/svchost"})
	require.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestControlRunitQuery(t *testing.T) {
	c := newTestRunit(t, time.Second)
	ctx := t.Context()

	_, err := c.Query(ctx, "missing")
	require.ErrorIs(t, err, ErrServiceNotFound)

	dir := filepath.Join(c.ServiceDir, "app")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, SuperviseDir), DirMode))

	status, err := c.Query(ctx, "app")
	require.NoError(t, err)
	assert.Equal(t, ServiceStateUnknown, status.State)

	record := makeStatus(4321, time.Now(), false, 'u', 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, SuperviseDir, StatusFile), record, FileMode))

	status, err = c.Query(ctx, "app")
	require.NoError(t, err)
	assert.Equal(t, ServiceStatus{Name: "app", State: ServiceStateRunning, CanStop: true, PID: 4321}, status)

	require.NoError(t, os.WriteFile(filepath.Join(dir, SuperviseDir, StatusFile), record[:10], FileMode))
	_, err = c.Query(ctx, "app")
	assert.Error(t, err)
}

func TestControlRunitSendWithoutSupervisor(t *testing.T) {
	c := newTestRunit(t, time.Second)
	require.NoError(t, os.MkdirAll(filepath.Join(c.ServiceDir, "app"), DirMode))

	err := c.Start(t.Context(), "app")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestControlRunitSendNoReader(t *testing.T) {
	c := newTestRunit(t, time.Second)
	supervise := filepath.Join(c.ServiceDir, "app", SuperviseDir)
	require.NoError(t, os.MkdirAll(supervise, DirMode))
	require.NoError(t, fifo.Make(filepath.Join(supervise, ControlFile), 0o600))

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	err := c.Stop(ctx, "app")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded) || errors.Is(err, fifo.ErrNoReader), "err = %v", err)
}

func TestWaitForPath(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "a", "b", "c")

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.MkdirAll(filepath.Join(root, "a", "b"), DirMode)
		time.Sleep(20 * time.Millisecond)
		_ = os.WriteFile(target, nil, FileMode)
	}()

	require.NoError(t, waitForPath(t.Context(), target, 5*time.Second))
	assert.FileExists(t, target)

	require.NoError(t, waitForPath(t.Context(), target, time.Second), "existing path returns at once")

	err := waitForPath(t.Context(), filepath.Join(root, "never"), 50*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestNewServiceControlRunit(t *testing.T) {
	config := ConfigRunit()
	config.ServiceDir = t.TempDir()
	config.Timeout = time.Second

	control, err := NewServiceControlWithConfig(config)
	require.NoError(t, err)
	c, ok := control.(*ControlRunit)
	require.True(t, ok)
	assert.Equal(t, config.ServiceDir, c.ServiceDir)
	assert.Equal(t, DefaultRunitScanDir, c.ScanDir)
	assert.Equal(t, time.Second, c.Timeout)
}

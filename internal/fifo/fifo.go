//go:build linux || darwin

// Package fifo writes to named pipes without blocking on a missing reader.
package fifo

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ErrNoReader indicates nothing holds the FIFO open for reading
var ErrNoReader = errors.New("fifo: no reader")

// WriteByte writes b to the FIFO at path. It returns ErrNoReader instead of
// blocking when no process has the FIFO open for reading.
func WriteByte(path string, b byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		if errors.Is(err, unix.ENXIO) {
			return fmt.Errorf("%w: %s", ErrNoReader, path)
		}
		return err
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write([]byte{b}); err != nil {
		return err
	}
	return nil
}

// Make creates a FIFO at path with mode
func Make(path string, mode uint32) error {
	if err := unix.Mkfifo(path, mode); err != nil {
		return &os.PathError{Op: "mkfifo", Path: path, Err: err}
	}
	return nil
}

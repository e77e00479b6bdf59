package svchost

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"vawter.tech/stopper"
)

// OpenSink resolves a log path to the writer that receives process output.
// It returns nil for an empty path, console (wrapped so Close is a no-op) for
// "console" in any letter case, and otherwise opens the file for appending,
// creating it and its directory when missing. Writes on the returned file are
// unbuffered, so the file is never behind the last chunk drained.
func OpenSink(logPath string, console io.Writer) (io.WriteCloser, error) {
	switch RouteFor(logPath) {
	case RouteNone:
		return nil, nil
	case RouteConsole:
		if console == nil {
			console = os.Stdout
		}
		return nopWriteCloser{console}, nil
	}

	if err := os.MkdirAll(filepath.Dir(logPath), DirMode); err != nil {
		return nil, &OpError{Op: OpSink, Name: logPath, Err: fmt.Errorf("creating log directory: %w", err)}
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, FileMode)
	if err != nil {
		return nil, &OpError{Op: OpSink, Name: logPath, Err: err}
	}
	return file, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// Drain copies src to dst until src reaches end of stream. Every chunk read is
// written before the next read, so dst sees the bytes in production order.
// A write failure is returned wrapped in ErrSinkWrite; EOF is not an error.
func Drain(src io.Reader, dst io.Writer) (int64, error) {
	buf := make([]byte, drainBufferSize)
	var written int64

	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			w, werr := dst.Write(buf[:n])
			written += int64(w)
			if werr == nil && w != n {
				werr = io.ErrShortWrite
			}
			if werr != nil {
				return written, fmt.Errorf("%w: %w", ErrSinkWrite, werr)
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) || errors.Is(rerr, os.ErrClosed) {
				return written, nil
			}
			return written, rerr
		}
	}
}

// DrainTask is the handle of a running drain. The supervisor never waits on
// it or cancels it; tests and the foreground flush use Done.
type DrainTask struct {
	// Sink names the destination (console or the log file path)
	Sink string

	done chan struct{}

	mu        sync.Mutex
	written   int64
	discarded int64
	err       error
}

// StartDrain runs Drain as a task on sctx. The task owns src and sink and
// closes both when src reaches end of stream.
//
// If the sink fails, the failure is logged, writing stops, and the rest of src
// is read into io.Discard so the child never blocks on a full pipe.
func StartDrain(sctx *stopper.Context, src io.ReadCloser, sink io.WriteCloser, name string, logger *slog.Logger) *DrainTask {
	if logger == nil {
		logger = slog.Default()
	}

	d := &DrainTask{
		Sink: name,
		done: make(chan struct{}),
	}

	sctx.Go(func(_ *stopper.Context) error {
		defer close(d.done)
		defer func() { _ = src.Close() }()

		n, err := Drain(src, sink)
		var discarded int64

		if errors.Is(err, ErrSinkWrite) {
			logger.Error("writing process output failed, discarding remaining output",
				"sink", name, "written", n, "error", err)
			discarded, _ = io.Copy(io.Discard, src)
		} else if err != nil {
			logger.Error("reading process output failed", "sink", name, "written", n, "error", err)
		}

		if cerr := sink.Close(); cerr != nil && err == nil {
			logger.Warn("closing output sink failed", "sink", name, "error", cerr)
		}

		d.mu.Lock()
		d.written = n
		d.discarded = discarded
		d.err = err
		d.mu.Unlock()

		logger.Debug("output drain finished", "sink", name, "written", n, "discarded", discarded)
		return nil
	})

	return d
}

// Done is closed when the source reached end of stream
func (d *DrainTask) Done() <-chan struct{} {
	return d.done
}

// Err returns the failure that ended writing, if any
func (d *DrainTask) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Written returns the number of bytes delivered to the sink
func (d *DrainTask) Written() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.written
}

// Discarded returns the number of bytes read after a sink failure
func (d *DrainTask) Discarded() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.discarded
}

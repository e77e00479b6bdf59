package svchost

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"vawter.tech/stopper"
)

// Supervisor runs one managed process for one service activation.
// It launches the process, starts the output drain when a log route is
// configured, waits for exit and then asks the enclosing service to stop.
type Supervisor struct {
	// WaitTimeout bounds the wait for exit in Start
	WaitTimeout time.Duration

	config  *ServiceConfiguration
	logger  *slog.Logger
	console io.Writer
	onExit  func()

	mu    sync.Mutex
	state State
	proc  *ManagedProcess
	drain *DrainTask
	sctx  *stopper.Context

	exitOnce sync.Once
}

// SupervisorOption configures a Supervisor
type SupervisorOption func(*Supervisor)

// WithLogger sets the logger used for lifecycle and drain messages
func WithLogger(logger *slog.Logger) SupervisorOption {
	return func(s *Supervisor) {
		s.logger = logger
	}
}

// WithWaitTimeout sets the bound of the wait for exit in Start
func WithWaitTimeout(d time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		s.WaitTimeout = d
	}
}

// WithConsole sets the writer used for the "console" log route
func WithConsole(w io.Writer) SupervisorOption {
	return func(s *Supervisor) {
		s.console = w
	}
}

// WithExitHandler sets the function called once when the supervisor observes
// that the process exited, or that there is no process, during its wait
func WithExitHandler(fn func()) SupervisorOption {
	return func(s *Supervisor) {
		s.onExit = fn
	}
}

// NewSupervisor creates a Supervisor for a copy of config
func NewSupervisor(config *ServiceConfiguration, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		WaitTimeout: DefaultWaitTimeout,
		config:      config.Clone(),
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.config == nil {
		s.config = &ServiceConfiguration{}
	}

	return s
}

// Start launches the process and waits at most WaitTimeout for it to exit.
// This is the service-manager start path, which has to return promptly: if the
// process is still running when the bound elapses, Start returns nil and the
// process and its drain keep running in the background.
//
// A missing executable is a configuration error and the only error returned
// for a fresh supervisor. A process that cannot be created is not an error:
// the supervisor moves to StateExited and calls the exit handler.
func (s *Supervisor) Start(ctx context.Context) error {
	return s.run(ctx, s.WaitTimeout)
}

// RunForeground behaves like Start but waits until the process exits or ctx
// is done. Cancelling ctx ends the wait; it does not kill the process.
func (s *Supervisor) RunForeground(ctx context.Context) error {
	return s.run(ctx, 0)
}

func (s *Supervisor) run(ctx context.Context, bound time.Duration) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.state = StateLaunching
	s.mu.Unlock()

	name := s.config.Name()
	logger := s.logger.With("service", name)

	if err := s.config.Validate(); err != nil {
		s.setState(StateFailed)
		logger.ErrorContext(ctx, "refusing to start service", "error", err)
		return fmt.Errorf("starting service %s: %w", name, err)
	}

	program, arguments := SplitCommandLine(s.config.Executable)
	proc, err := Launch(program, arguments)
	if err != nil {
		logger.WarnContext(ctx, "process could not be started", "program", program, "error", err)
		s.exited()
		return nil
	}

	sctx := stopper.WithContext(context.WithoutCancel(ctx))

	s.mu.Lock()
	s.proc = proc
	s.sctx = sctx
	s.state = StateRunning
	s.mu.Unlock()

	logger = logger.With("pid", proc.PID())
	logger.InfoContext(ctx, "process started", "program", program, "arguments", arguments)

	drained := s.startDrain(ctx, sctx, proc, logger)

	sctx.Go(func(_ *stopper.Context) error {
		<-proc.Done()
		proc.closePipes(drained)
		s.setState(StateExited)
		logger.Info("process exited", "exit_code", proc.ExitCode())
		return nil
	})

	return s.wait(ctx, proc, bound, logger)
}

// startDrain opens the configured sink and starts the drain. It reports
// whether the drain took ownership of the stdout pipe.
func (s *Supervisor) startDrain(ctx context.Context, sctx *stopper.Context, proc *ManagedProcess, logger *slog.Logger) bool {
	route := s.config.LogRoute()
	if route == RouteNone {
		logger.DebugContext(ctx, "no log route configured, process output is not drained")
		return false
	}

	sink, err := OpenSink(s.config.LogPath, s.console)
	if err != nil {
		logger.ErrorContext(ctx, "opening output sink failed, process output is not drained", "error", err)
		return false
	}

	name := s.config.LogPath
	if route == RouteConsole {
		name = ConsoleLogPath
	}

	d := StartDrain(sctx, proc.Stdout(), sink, name, logger)

	s.mu.Lock()
	s.drain = d
	s.mu.Unlock()

	logger.DebugContext(ctx, "draining process output", "route", route.String(), "sink", name)
	return true
}

// wait blocks until the process exits, bound elapses (bound > 0) or ctx is done
func (s *Supervisor) wait(ctx context.Context, proc *ManagedProcess, bound time.Duration, logger *slog.Logger) error {
	var timeout <-chan time.Time
	if bound > 0 {
		timer := time.NewTimer(bound)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-proc.Done():
		s.exited()
		return nil
	case <-timeout:
		logger.InfoContext(ctx, "process still running after start wait, continuing in background", "wait", bound)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// exited records the exit and notifies the exit handler once
func (s *Supervisor) exited() {
	s.setState(StateExited)
	s.exitOnce.Do(func() {
		if s.onExit != nil {
			s.onExit()
		}
	})
}

func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// Stop handles a stop request from the service manager. The managed process
// is not terminated; it keeps running detached from the service.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	proc := s.proc
	s.mu.Unlock()

	if proc != nil && !proc.Exited() {
		s.logger.InfoContext(ctx, "service stopping, managed process left running",
			"service", s.config.Name(), "pid", proc.PID())
	}
	return nil
}

// Flush waits up to timeout for the drain to reach end of stream and then
// stops the supervisor's background tasks. It is a no-op before a launch.
func (s *Supervisor) Flush(timeout time.Duration) error {
	s.mu.Lock()
	d := s.drain
	sctx := s.sctx
	s.mu.Unlock()

	if sctx == nil {
		return nil
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	if d != nil {
		select {
		case <-d.Done():
		case <-deadline.C:
			return &OpError{Op: OpDrain, Name: d.Sink, Err: ErrTimeout}
		}
	}

	sctx.Stop(timeout)

	waited := make(chan error, 1)
	go func() { waited <- sctx.Wait() }()

	select {
	case err := <-waited:
		return err
	case <-deadline.C:
		return &OpError{Op: OpDrain, Name: s.config.Name(), Err: ErrTimeout}
	}
}

// State returns the current lifecycle state
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Process returns the managed process, nil before launch or when launch failed
func (s *Supervisor) Process() *ManagedProcess {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proc
}

// Drain returns the output drain handle, nil when no drain was started
func (s *Supervisor) Drain() *DrainTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drain
}

// Config returns a copy of the supervised configuration
func (s *Supervisor) Config() *ServiceConfiguration {
	return s.config.Clone()
}

package svchost

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Lifecycle is what a service manager drives: a start hook and a stop hook
type Lifecycle interface {
	// OnStart is called once when the service manager starts the service
	OnStart(ctx context.Context, args []string) error
	// OnStop is called once when the service manager stops the service
	OnStop(ctx context.Context) error
}

// StopRequester is implemented by lifecycles that can ask their service
// manager to stop the service on their own
type StopRequester interface {
	// StopRequested is closed when the service should stop
	StopRequested() <-chan struct{}
}

// Host adapts a Supervisor to a service manager's lifecycle.
// When the supervisor sees the managed process exit during its wait, the host
// asks the service manager to stop the service.
type Host struct {
	// FlushTimeout bounds the wait for trailing output after a foreground run
	FlushTimeout time.Duration

	sup    *Supervisor
	logger *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewHost creates a Host supervising config. The options are passed to the
// supervisor; an exit handler given here runs before the stop request.
func NewHost(config *ServiceConfiguration, opts ...SupervisorOption) *Host {
	h := &Host{
		FlushTimeout: DefaultFlushTimeout,
		stopCh:       make(chan struct{}),
	}

	sup := NewSupervisor(config, opts...)
	userExit := sup.onExit
	sup.onExit = func() {
		if userExit != nil {
			userExit()
		}
		h.RequestStop()
	}

	h.sup = sup
	h.logger = sup.logger
	return h
}

// OnStart starts the supervisor with its bounded wait. Start arguments passed
// by the service manager are ignored; the configuration comes from the
// command line the service was registered with.
func (h *Host) OnStart(ctx context.Context, args []string) error {
	if len(args) > 0 {
		h.logger.DebugContext(ctx, "ignoring service start arguments", "args", args)
	}
	return h.sup.Start(ctx)
}

// OnStop handles the service manager's stop request. Output of a process that
// already exited is flushed before the host goes away.
func (h *Host) OnStop(ctx context.Context) error {
	if err := h.sup.Stop(ctx); err != nil {
		return err
	}
	if p := h.sup.Process(); p != nil && p.Exited() {
		if err := h.sup.Flush(h.FlushTimeout); err != nil {
			h.logger.WarnContext(ctx, "flushing process output incomplete", "error", err)
		}
	}
	return nil
}

// RunForeground runs the managed process outside any service manager, waits
// for it to exit and flushes its remaining output
func (h *Host) RunForeground(ctx context.Context) error {
	if err := h.sup.RunForeground(ctx); err != nil {
		return err
	}
	if err := h.sup.Flush(h.FlushTimeout); err != nil {
		h.logger.WarnContext(ctx, "flushing process output incomplete", "error", err)
	}
	return nil
}

// RequestStop asks the service manager to stop the service. It is safe to
// call more than once.
func (h *Host) RequestStop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
	})
}

// StopRequested is closed once the host asked for the service to stop
func (h *Host) StopRequested() <-chan struct{} {
	return h.stopCh
}

// Supervisor returns the underlying supervisor
func (h *Host) Supervisor() *Supervisor {
	return h.sup
}

func stopRequested(l Lifecycle) <-chan struct{} {
	if r, ok := l.(StopRequester); ok {
		return r.StopRequested()
	}
	return nil
}

//go:build windows

package svchost

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sys/windows/svc"
)

// startFailedExitCode is the service-specific exit code reported when OnStart fails
const startFailedExitCode = 1

// serviceHandler adapts a Lifecycle to the service control manager
type serviceHandler struct {
	ctx    context.Context
	name   string
	l      Lifecycle
	logger *slog.Logger
	err    error
}

// Execute is called by the SCM and runs for the lifetime of the service
func (h *serviceHandler) Execute(args []string, r <-chan svc.ChangeRequest, changes chan<- svc.Status) (bool, uint32) {
	const cmdsAccepted = svc.AcceptStop | svc.AcceptShutdown

	changes <- svc.Status{State: svc.StartPending}

	if err := h.l.OnStart(h.ctx, args); err != nil {
		h.err = fmt.Errorf("starting service %s: %w", h.name, err)
		h.logger.ErrorContext(h.ctx, "service start failed", "error", err)
		return true, startFailedExitCode
	}

	changes <- svc.Status{State: svc.Running, Accepts: cmdsAccepted}
	stop := stopRequested(h.l)

loop:
	for {
		select {
		case c := <-r:
			switch c.Cmd {
			case svc.Interrogate:
				changes <- c.CurrentStatus
			case svc.Stop, svc.Shutdown:
				h.logger.InfoContext(h.ctx, "stop requested by service manager", "command", c.Cmd)
				break loop
			default:
				h.logger.WarnContext(h.ctx, "unexpected control request", "command", c.Cmd)
			}
		case <-stop:
			h.logger.InfoContext(h.ctx, "managed process exited, stopping service")
			break loop
		case <-h.ctx.Done():
			break loop
		}
	}

	changes <- svc.Status{State: svc.StopPending}
	if err := h.l.OnStop(context.WithoutCancel(h.ctx)); err != nil {
		h.err = err
		h.logger.ErrorContext(h.ctx, "service stop failed", "error", err)
	}
	return false, 0
}

// RunService runs l under the service control manager until the service stops
func RunService(ctx context.Context, name string, l Lifecycle) error {
	h := &serviceHandler{
		ctx:    ctx,
		name:   name,
		l:      l,
		logger: slog.Default().With("service", name),
	}
	if err := svc.Run(name, h); err != nil {
		return fmt.Errorf("running service %s: %w", name, err)
	}
	return h.err
}

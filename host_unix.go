//go:build !windows

package svchost

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
)

// RunService drives l the way systemd and runit drive a foreground service:
// OnStart, then wait for SIGTERM or SIGINT, ctx, or a stop request from l,
// then OnStop. A failing OnStart is returned without calling OnStop, and the
// caller's non-zero exit tells the service manager the start failed.
func RunService(ctx context.Context, name string, l Lifecycle) error {
	sigctx, cancel := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	logger := slog.Default().With("service", name)

	if err := l.OnStart(ctx, nil); err != nil {
		return fmt.Errorf("starting service %s: %w", name, err)
	}

	select {
	case <-sigctx.Done():
		logger.InfoContext(ctx, "stop requested by service manager")
	case <-stopRequested(l):
		logger.InfoContext(ctx, "managed process exited, stopping service")
	}

	return l.OnStop(context.WithoutCancel(ctx))
}

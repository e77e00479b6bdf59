// Command svchost runs an executable as a service and installs itself with
// the system service manager.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/google/uuid"

	svchost "github.com/axondata/go-svchost"
	"github.com/axondata/go-svchost/internal/log"
)

// Exit codes
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

const helpText = `svchost hosts an executable as a background service.

Usage:
  svchost -exe "<program> [arguments]" [-log <path>|console] [-action Start|Run|Install|Uninstall]
          [-sn <service name>] [-dn <display name>]
          [-ac LocalSystem|LocalService|NetworkService|User] [-u <user>] [-p <password>]
          [-sm systemd|runit|windows]

Arguments are (flag, value) pairs in any order. Unknown flags are ignored.

Actions:
  Start      run under the service manager (default)
  Run        run in the foreground until the program exits
  Install    register the service with automatic start and start it
  Uninstall  stop the service and remove its registration

The program's standard output is appended to the -log file, or copied to this
console when -log is "console". Without -log the output is not captured.
`

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout))
}

func run(ctx context.Context, args []string, stdout io.Writer) int {
	config, err := svchost.ParseArgs(args)
	switch {
	case errors.Is(err, svchost.ErrNoConfig):
		_, _ = io.WriteString(stdout, helpText)
		return exitOK
	case err != nil:
		_, _ = fmt.Fprintf(stdout, "error: %v\n\n%s", err, helpText)
		return exitUsage
	}

	logger := log.New(false)
	slog.SetDefault(logger)
	ctx = log.ContextAttrs(ctx,
		slog.String("action", config.Action.String()),
		slog.String("invocation", uuid.NewString()),
	)

	info := svchost.GetVersion()
	logger.DebugContext(ctx, "svchost starting", "version", info.Version, "managers", info.Managers)

	switch config.Action {
	case svchost.ActionInstall:
		err = register(ctx, config, logger, (*svchost.Registrar).Install)
	case svchost.ActionUninstall:
		err = register(ctx, config, logger, (*svchost.Registrar).Uninstall)
	case svchost.ActionRun:
		err = runForeground(ctx, config, logger)
	default:
		host := svchost.NewHost(config, svchost.WithLogger(logger))
		err = svchost.RunService(ctx, config.Name(), host)
	}

	if err != nil {
		logger.ErrorContext(ctx, "svchost failed", "error", err)
		return exitFailure
	}
	return exitOK
}

func runForeground(ctx context.Context, config *svchost.ServiceConfiguration, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	host := svchost.NewHost(config, svchost.WithLogger(logger))
	err := host.RunForeground(ctx)
	if errors.Is(err, context.Canceled) {
		logger.InfoContext(ctx, "interrupted, managed process left running")
		return nil
	}
	return err
}

func register(
	ctx context.Context,
	config *svchost.ServiceConfiguration,
	logger *slog.Logger,
	action func(*svchost.Registrar, context.Context, *svchost.ServiceConfiguration) error,
) error {
	control, err := svchost.NewServiceControl(config.Manager)
	if err != nil {
		return err
	}

	registrar, err := svchost.NewRegistrar(control, svchost.WithRegistrarLogger(logger))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, svchost.DefaultInstallTimeout)
	defer cancel()

	return action(registrar, ctx, config)
}

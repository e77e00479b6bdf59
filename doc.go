// Package svchost runs an ordinary executable as a background service.
//
// The Supervisor type launches one process from a command line, copies its
// standard output to a log file or the console, and waits a bounded time for
// it to exit:
//
//	config := &svchost.ServiceConfiguration{
//	    Executable: "ping 127.0.0.1 -c 5",
//	    LogPath:    "/var/log/ping.log",
//	}
//
//	sup := svchost.NewSupervisor(config)
//	if err := sup.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Host adapts a Supervisor to the lifecycle callbacks of a service manager,
// and RunService drives those callbacks until the manager or the managed
// process asks the service to stop.
//
// # Registration
//
// The Registrar installs and removes the service with the system service
// manager through a ServiceControl backend:
//
//	control, err := svchost.NewServiceControl(svchost.ServiceTypeUnknown)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	registrar, err := svchost.NewRegistrar(control)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = registrar.Install(ctx, config)
//
// Backends exist for systemd, runit and the Windows service control manager.
// Registered services re-invoke the installing binary with the -exe and -log
// arguments, so the host supervises the same executable once the manager
// starts it.
//
// # Stopping
//
// Stopping the service never terminates the managed process. The host stops
// itself when the process exits, and service managers are configured not to
// restart it.
package svchost

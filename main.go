package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/oxzi/gomaster/internal"
)

// configureLogger sets up the standard logger with an optional debug log
// level and JSON encoded output, used by a detached child to be relayed.
func configureLogger(verbose, jsonOutput bool) {
	if jsonOutput {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	}

	if verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

// notifySystemd reports the bound sockets to systemd, if started by it.
func notifySystemd() {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		log.WithError(err).Warn("Failed to notify systemd")
	} else if sent {
		log.Debug("Notified systemd about readiness")
	}
}

// bootstrap resolves and binds all listening sockets and hardens the process
// afterwards. On success, the bound sockets are returned.
func bootstrap(ctx context.Context, conf Config, detached bool) ([]internal.ListenSocket, error) {
	hardener := conf.hardener()

	if err := hardener.PreSecurityInit(); err != nil {
		return nil, err
	}
	if hardener.Daemon == internal.DaemonRequested {
		attachSyslog()
	}

	registry := internal.NewRegistry(internal.MaxListenAddresses)
	for _, addr := range conf.Listen {
		if err := registry.Declare(addr); err != nil {
			log.WithError(err).WithField("address", addr).Error("Cannot declare listen address")
			return nil, err
		}
	}

	plan, err := internal.NewResolver().Resolve(ctx, registry, conf.Ports)
	if err != nil {
		return nil, err
	}

	socks, err := internal.BindAll(plan, internal.NewSockets())
	if err != nil {
		return nil, err
	}
	if len(socks) == 0 {
		log.Error("No listening socket could be created")
		return nil, internal.ErrBind
	}

	cleanup := func(err error) ([]internal.ListenSocket, error) {
		if closeErr := internal.CloseAll(socks); closeErr != nil {
			log.WithError(closeErr).Warn("Failed to close sockets")
		}
		return nil, err
	}

	notifySystemd()

	if err := hardener.SecurityInit(); err != nil {
		return cleanup(err)
	}
	if err := hardener.SecureInit(); err != nil {
		return cleanup(err)
	}

	if detached && hardener.Daemon == internal.DaemonActive {
		if err := signalReady(); err != nil {
			log.WithError(err).Error("Failed to signal readiness to the launcher")
			return cleanup(err)
		}
	}

	return socks, nil
}

// run the master server until a signal arrives and return the exit code.
func run(conf Config, detached bool) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	socks, err := bootstrap(ctx, conf, detached)
	if err != nil {
		return 1
	}
	defer func() {
		if err := internal.CloseAll(socks); err != nil {
			log.WithError(err).Warn("Failed to close sockets")
		}
	}()

	log.WithField("sockets", len(socks)).Info("Startup finished")

	if err := serve(ctx, socks, drainHandler{}); err != nil {
		return 1
	}
	return 0
}

func main() {
	detached := os.Getenv(internal.DetachedEnv) != ""

	configureLogger(false, detached)

	cl, err := parseCmdline(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	} else if err != nil {
		log.WithError(err).Error("Failed to parse command line, see --help")
		os.Exit(1)
	}

	conf, err := cl.config()
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	configureLogger(conf.Verbose, detached)

	if conf.Daemon && !detached {
		os.Exit(launch())
	}

	os.Exit(run(conf, detached))
}

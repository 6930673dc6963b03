//go:build !(aix || linux || darwin || dragonfly || freebsd || openbsd || netbsd || solaris)

package main

import (
	"runtime"

	log "github.com/sirupsen/logrus"
)

// launch is unreachable, as checkPlatform rejects the daemon mode.
func launch() int {
	log.Errorf("Daemon mode is not supported on %s", runtime.GOOS)
	return 1
}

func signalReady() error {
	return nil
}

func attachSyslog() {}

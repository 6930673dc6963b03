//go:build aix || linux || darwin || dragonfly || freebsd || openbsd || netbsd || solaris

package main

import (
	"log/syslog"

	log "github.com/sirupsen/logrus"
	lsyslog "github.com/sirupsen/logrus/hooks/syslog"
)

// attachSyslog forwards all log messages to the local syslog daemon.
//
// The connection must be established before the chroot, as the syslog socket
// is not reachable afterwards. A daemon has no other output left.
func attachSyslog() {
	hook, err := lsyslog.NewSyslogHook("", "", syslog.LOG_INFO|syslog.LOG_DAEMON, "gomaster")
	if err != nil {
		log.WithError(err).Warn("Failed to connect to syslog, daemon messages will be lost")
		return
	}

	log.AddHook(hook)
	log.Debug("Attached syslog hook")
}

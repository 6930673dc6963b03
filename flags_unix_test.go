//go:build aix || linux || darwin || dragonfly || freebsd || openbsd || netbsd || solaris

package main

import (
	"testing"

	"github.com/oxzi/gomaster/internal"
)

func TestParseCmdlinePlatformFlags(t *testing.T) {
	cl, err := parseCmdline([]string{"-D", "-j", "/var/lib/gomaster", "--user=_gomaster", "--sandbox"})
	if err != nil {
		t.Fatal(err)
	}

	conf, err := cl.config()
	if err != nil {
		t.Fatal(err)
	}

	if !conf.Daemon || !conf.Sandbox {
		t.Fatalf("Daemon or sandbox was not set: %+v", conf)
	}
	if conf.JailPath != "/var/lib/gomaster" || conf.User != "_gomaster" {
		t.Fatalf("Jail path or user was not set: %+v", conf)
	}

	h := conf.hardener()
	if h.Daemon != internal.DaemonRequested || !h.Sandbox {
		t.Fatalf("Hardener was not configured: %+v", h)
	}
	if h.JailPath != conf.JailPath || h.User != conf.User {
		t.Fatalf("Hardener has jail %q and user %q", h.JailPath, h.User)
	}
}

func TestParseCmdlinePlatformConfig(t *testing.T) {
	path := writeConfig(t, `
user: _gomaster
jail_path: /var/lib/gomaster
daemon: true
`)

	cl, err := parseCmdline([]string{"--config", path, "-u", "games"})
	if err != nil {
		t.Fatal(err)
	}

	conf, err := cl.config()
	if err != nil {
		t.Fatal(err)
	}

	if conf.User != "games" {
		t.Fatalf("User is %q, expected the flag's value", conf.User)
	}
	if conf.JailPath != "/var/lib/gomaster" || !conf.Daemon {
		t.Fatalf("Configured values were lost: %+v", conf)
	}
}

//go:build !(aix || linux || darwin || dragonfly || freebsd || openbsd || netbsd || solaris)

package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/pflag"

	"github.com/oxzi/gomaster/internal"
)

// registerPlatformFlags adds nothing, as neither privilege dropping nor
// daemon mode exists here.
func registerPlatformFlags(*pflag.FlagSet, *Config) {}

// checkPlatform rejects the configuration keys of the POSIX only options.
func checkPlatform(conf Config) error {
	switch {
	case conf.Daemon:
		return fmt.Errorf("unrecognized option daemon on %s", runtime.GOOS)
	case conf.Sandbox:
		return fmt.Errorf("unrecognized option sandbox on %s", runtime.GOOS)
	case conf.User != internal.DefaultUser:
		return fmt.Errorf("unrecognized option user on %s", runtime.GOOS)
	case conf.JailPath != internal.DefaultJailPath:
		return fmt.Errorf("unrecognized option jail_path on %s", runtime.GOOS)
	default:
		return nil
	}
}

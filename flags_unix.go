//go:build aix || linux || darwin || dragonfly || freebsd || openbsd || netbsd || solaris

package main

import (
	"github.com/spf13/pflag"

	"github.com/oxzi/gomaster/internal"
)

// registerPlatformFlags adds the flags for privilege dropping and daemon mode.
func registerPlatformFlags(fs *pflag.FlagSet, conf *Config) {
	fs.BoolVarP(&conf.Daemon, "daemon", "D", false, "Run as a daemon")
	fs.StringVarP(&conf.JailPath, "jail-path", "j", internal.DefaultJailPath,
		"Use `path` as chroot path\nOnly available when running with super-user privileges")
	fs.StringVarP(&conf.User, "user", "u", internal.DefaultUser,
		"Use `user` privileges\nOnly available when running with super-user privileges")
	fs.BoolVar(&conf.Sandbox, "sandbox", false, "Restrict the process by the platform's sandbox after startup")
}

func checkPlatform(Config) error {
	return nil
}

//go:build aix || darwin || dragonfly || freebsd || netbsd || solaris

package internal

import (
	"fmt"
	"runtime"

	log "github.com/sirupsen/logrus"

	syscall "golang.org/x/sys/unix"
)

// SetGroupID uses setgid(2), as setresgid(2) is not available everywhere.
// For the super-user, it sets the real, effective and saved GID.
func (posixSystem) SetGroupID(gid int) error {
	if err := syscall.Setgroups([]int{gid}); err != nil {
		return fmt.Errorf("setgroups: %w", err)
	}
	if err := syscall.Setgid(gid); err != nil {
		return fmt.Errorf("setgid: %w", err)
	}
	return nil
}

func (posixSystem) SetUserID(uid int) error {
	if err := syscall.Setuid(uid); err != nil {
		return fmt.Errorf("setuid: %w", err)
	}
	return nil
}

func dupFd(oldfd, newfd int) error {
	return syscall.Dup2(oldfd, newfd)
}

// Restrict has no implementation for those platforms.
func (posixSystem) Restrict() error {
	log.Warnf("No sandbox available for %s/%s", runtime.GOOS, runtime.GOARCH)
	return nil
}

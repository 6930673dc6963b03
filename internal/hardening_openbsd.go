package internal

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	syscall "golang.org/x/sys/unix"
)

func (posixSystem) SetGroupID(gid int) error {
	if err := syscall.Setgroups([]int{gid}); err != nil {
		return fmt.Errorf("setgroups: %w", err)
	}
	if err := syscall.Setresgid(gid, gid, gid); err != nil {
		return fmt.Errorf("setresgid: %w", err)
	}
	return nil
}

func (posixSystem) SetUserID(uid int) error {
	if err := syscall.Setresuid(uid, uid, uid); err != nil {
		return fmt.Errorf("setresuid: %w", err)
	}
	return nil
}

func dupFd(oldfd, newfd int) error {
	return syscall.Dup2(oldfd, newfd)
}

// Restrict pledges to plain I/O on the already bound sockets.
func (posixSystem) Restrict() error {
	if err := syscall.PledgePromises("stdio inet"); err != nil {
		return fmt.Errorf("pledge: %w", err)
	}

	log.Info("Applied pledge sandbox")
	return nil
}

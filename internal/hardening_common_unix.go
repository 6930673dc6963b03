//go:build aix || linux || darwin || dragonfly || freebsd || openbsd || netbsd || solaris

// This file contains some common code for multiple Unix platforms - or might it
// be POSIX? It should at least be feasible for BSDs and Linux.

package internal

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"strconv"

	syscall "golang.org/x/sys/unix"
)

// posixSystem implements System by (more or less) POSIX system calls. The
// platform specific parts are within the hardening_${GOOS}.go files.
type posixSystem struct{}

// NewSystem returns the System for this platform.
func NewSystem() System {
	return posixSystem{}
}

func (posixSystem) NetworkStartup() error {
	return nil
}

func (posixSystem) OpenNullDevice() (*os.File, error) {
	return os.OpenFile(os.DevNull, os.O_RDWR, 0)
}

func (posixSystem) Geteuid() int {
	return syscall.Geteuid()
}

// LookupUser returns the user's UID and GID. This MUST happen before the
// chroot as the user database isn't available afterwards.
func (posixSystem) LookupUser(name string) (uid int, gid int, err error) {
	sysUser, err := user.Lookup(name)
	if err != nil {
		return
	}

	if uid, err = strconv.Atoi(sysUser.Uid); err != nil {
		return
	}
	gid, err = strconv.Atoi(sysUser.Gid)
	return
}

func (posixSystem) Chroot(path string) error {
	return syscall.Chroot(path)
}

func (posixSystem) Chdir(path string) error {
	return syscall.Chdir(path)
}

// Detach checks that this process runs within its own session, as started by
// the launcher. The working directory is left as it is, as it is already the
// jail's root after a chroot.
func (posixSystem) Detach() error {
	if os.Getenv(DetachedEnv) == "" {
		return errors.New("process was not started detached")
	}

	sid, err := syscall.Getsid(0)
	if err != nil {
		return fmt.Errorf("getsid: %w", err)
	}
	if pid := syscall.Getpid(); sid != pid {
		return fmt.Errorf("process %d is not leading its session %d", pid, sid)
	}

	return nil
}

func (posixSystem) Redirect(f *os.File) error {
	return redirectFds(int(f.Fd()), []int{syscall.Stdin, syscall.Stdout, syscall.Stderr}, dupFd)
}

// redirectFds replaces each of fds by a duplicate of nullFd. All targets are
// saved first, so a failure restores the already replaced ones.
func redirectFds(nullFd int, fds []int, dup func(oldfd, newfd int) error) error {
	var targets, saved []int
	defer func() {
		for _, fd := range saved {
			_ = syscall.Close(fd)
		}
	}()

	for _, fd := range fds {
		if fd == nullFd {
			continue
		}

		backup, err := syscall.Dup(fd)
		if err != nil {
			return fmt.Errorf("dup %d: %w", fd, err)
		}
		syscall.CloseOnExec(backup)

		targets = append(targets, fd)
		saved = append(saved, backup)
	}

	for i, fd := range targets {
		if err := dup(nullFd, fd); err != nil {
			for j := 0; j < i; j++ {
				_ = dup(saved[j], targets[j])
			}
			return fmt.Errorf("dup %d to %d: %w", nullFd, fd, err)
		}
	}
	return nil
}

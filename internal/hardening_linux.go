package internal

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/landlock-lsm/go-landlock/landlock"
	llsys "github.com/landlock-lsm/go-landlock/landlock/syscall"

	syscallset "github.com/oxzi/syscallset-go"

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

// dupFd uses dup3(2) as dup2(2) is missing on some Linux architectures.
func dupFd(oldfd, newfd int) error {
	return syscall.Dup3(oldfd, newfd, 0)
}

// restrictLandlock forbids all file system access.
func restrictLandlock() error {
	if _, err := llsys.LandlockGetABIVersion(); err != nil {
		log.Warn("Landlock is not supported")
		return nil
	}

	return landlock.V2.BestEffort().RestrictPaths()
}

// restrictSeccompBpf limits the system calls to those needed for serving UDP.
func restrictSeccompBpf() error {
	if !syscallset.IsSupported() {
		log.Warn("No seccomp-bpf support is available")
		return nil
	}

	filter := []string{
		"@system-service",
		"~@chown",
		"~@clock",
		"~@cpu-emulation",
		"~@debug",
		"~@keyring",
		"~@memlock",
		"~@module",
		"~@mount",
		"~@privileged",
		"~@reboot",
		"~@resources",
		"~@sandbox",
		"~@setuid",
		"~@swap",
		/* @process */ "~execve", "~execveat", "~fork", "~kill",
	}
	return syscallset.LimitTo(strings.Join(filter, " "))
}

// Restrict is achieved on Linux with Landlock and seccomp-bpf.
func (posixSystem) Restrict() error {
	if err := restrictLandlock(); err != nil {
		return fmt.Errorf("landlock: %w", err)
	}
	if err := restrictSeccompBpf(); err != nil {
		return fmt.Errorf("seccomp-bpf: %w", err)
	}

	log.Info("Applied Landlock and seccomp-bpf sandbox")
	return nil
}

package internal

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

const (
	// DefaultJailPath is the chroot directory when running as root.
	DefaultJailPath = "/var/empty/"

	// DefaultUser is the unprivileged user to switch to when running as root.
	DefaultUser = "nobody"

	// DetachedEnv marks a child process started by a launcher in its own
	// session, which finishes its daemonization within SecureInit.
	DetachedEnv = "GOMASTER_DETACHED"
)

// DaemonState tracks the daemonization. A request moves from DaemonDisabled
// to DaemonRequested, which ends either in DaemonActive or, on failure, back
// in DaemonDisabled.
type DaemonState int

const (
	DaemonDisabled DaemonState = iota
	DaemonRequested
	DaemonActive
)

func (s DaemonState) String() string {
	switch s {
	case DaemonDisabled:
		return "disabled"
	case DaemonRequested:
		return "requested"
	case DaemonActive:
		return "active"
	default:
		return fmt.Sprintf("DaemonState(%d)", int(s))
	}
}

// System holds the operating system specific operations used by a Hardener.
// NewSystem returns the implementation for the current platform.
type System interface {
	// NetworkStartup bootstraps the network stack, if the platform needs it.
	NetworkStartup() error

	// OpenNullDevice opens the null device for reading and writing.
	OpenNullDevice() (*os.File, error)

	Geteuid() int

	// LookupUser returns the UID and primary GID of a user account.
	LookupUser(name string) (uid, gid int, err error)

	Chroot(path string) error
	Chdir(path string) error

	// SetGroupID sets the supplementary groups and all group IDs to gid.
	SetGroupID(gid int) error

	// SetUserID sets all user IDs to uid.
	SetUserID(uid int) error

	// Detach ensures the process is detached from its controlling terminal.
	Detach() error

	// Redirect stdin, stdout and stderr to f. On failure, all three are left
	// unchanged.
	Redirect(f *os.File) error

	// Restrict applies the platform's sandbox to the current process.
	Restrict() error
}

// Hardener drops privileges and daemonizes the process in three phases:
// PreSecurityInit, SecurityInit and SecureInit. They must be called once
// and in this order.
type Hardener struct {
	JailPath string
	User     string
	Daemon   DaemonState
	Sandbox  bool

	System System

	// nullDevice is opened in PreSecurityInit, as it might not be reachable
	// after the chroot, and consumed by SecureInit.
	nullDevice *os.File
}

// NewHardener with the default jail and user for this platform.
func NewHardener() *Hardener {
	return &Hardener{
		JailPath: DefaultJailPath,
		User:     DefaultUser,
		System:   NewSystem(),
	}
}

// PreSecurityInit must be called before any privilege check.
func (h *Hardener) PreSecurityInit() error {
	if err := h.System.NetworkStartup(); err != nil {
		log.WithError(err).Error("Cannot initialize the network stack")
		return fmt.Errorf("network startup: %w", err)
	}

	if h.Daemon == DaemonRequested {
		f, err := h.System.OpenNullDevice()
		if err != nil {
			log.WithError(err).WithField("path", os.DevNull).Error("Cannot open the null device")
			return fmt.Errorf("%w: open %s: %w", ErrSecurity, os.DevNull, err)
		}
		h.nullDevice = f
	}

	return nil
}

// SecurityInit drops the super-user privileges, if the process has them.
//
// The user is looked up first, as this might be impossible within the jail.
// Afterwards, the process is chrooted and the group ID is set before the user
// ID. Each failure is fatal and must stop the startup.
func (h *Hardener) SecurityInit() error {
	if h.System.Geteuid() != 0 {
		log.Debug("Not running with super-user privileges, nothing to drop")
		return nil
	}

	log.Warn("Running with super-user privileges")

	logger := log.WithField("user", h.User)

	uid, gid, err := h.System.LookupUser(h.User)
	if err != nil {
		logger.WithError(err).Error("Cannot get user properties")
		return fmt.Errorf("%w: user %q: %w", ErrSecurity, h.User, err)
	}

	logger = logger.WithField("chroot", h.JailPath)

	if err := h.System.Chroot(h.JailPath); err != nil {
		logger.WithError(err).Error("Cannot chroot")
		return fmt.Errorf("%w: chroot %s: %w", ErrSecurity, h.JailPath, err)
	}
	if err := h.System.Chdir("/"); err != nil {
		logger.WithError(err).Error("Cannot chdir after chroot")
		return fmt.Errorf("%w: chdir: %w", ErrSecurity, err)
	}
	logger.Info("Chrooted myself")

	logger = logger.WithFields(log.Fields{
		"uid": uid,
		"gid": gid,
	})

	if err := h.System.SetGroupID(gid); err != nil {
		logger.WithError(err).Error("Cannot switch group privileges")
		return fmt.Errorf("%w: gid %d: %w", ErrSecurity, gid, err)
	}
	if err := h.System.SetUserID(uid); err != nil {
		logger.WithError(err).Error("Cannot switch user privileges")
		return fmt.Errorf("%w: uid %d: %w", ErrSecurity, uid, err)
	}

	if uid != 0 && h.System.Geteuid() == 0 {
		logger.Error("Still running with super-user privileges")
		return fmt.Errorf("%w: effective UID is still 0", ErrSecurity)
	}

	logger.Info("Switched to user privileges")
	return nil
}

// SecureInit runs after the privileges were dropped. It daemonizes the
// process if requested and applies the optional sandbox.
func (h *Hardener) SecureInit() error {
	if h.Daemon == DaemonRequested {
		if err := h.daemonize(); err != nil {
			return err
		}
	}

	if h.Sandbox {
		if err := h.System.Restrict(); err != nil {
			log.WithError(err).Error("Cannot apply sandbox")
			return fmt.Errorf("%w: sandbox: %w", ErrSecurity, err)
		}
	}

	return nil
}

// daemonize detaches the process and replaces its standard streams by the
// null device. On failure, the streams are left untouched.
func (h *Hardener) daemonize() error {
	nullDevice := h.nullDevice
	h.nullDevice = nil

	if nullDevice == nil {
		h.Daemon = DaemonDisabled
		log.Error("Daemonization failed, null device was not opened")
		return fmt.Errorf("%w: null device was not opened", ErrDaemonize)
	}
	defer func() { _ = nullDevice.Close() }()

	if err := h.System.Detach(); err != nil {
		h.Daemon = DaemonDisabled
		log.WithError(err).Error("Daemonization failed")
		return fmt.Errorf("%w: %w", ErrDaemonize, err)
	}

	if err := h.System.Redirect(nullDevice); err != nil {
		h.Daemon = DaemonDisabled
		log.WithError(err).Error("Cannot redirect standard streams")
		return fmt.Errorf("%w: redirect: %w", ErrDaemonize, err)
	}

	h.Daemon = DaemonActive
	return nil
}

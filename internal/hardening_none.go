//go:build !(aix || linux || darwin || dragonfly || freebsd || openbsd || netbsd || solaris)

package internal

import (
	"os"
	"runtime"

	log "github.com/sirupsen/logrus"
)

// noneSystem is used on platforms without the POSIX privilege model. As the
// jail, user and daemon options are not available there, only the network
// startup is relevant.
type noneSystem struct{}

// NewSystem returns the System for this platform.
func NewSystem() System {
	return noneSystem{}
}

// NetworkStartup is a no-op, as the Go runtime initializes the network stack,
// e.g., Winsock, on its own.
func (noneSystem) NetworkStartup() error {
	log.Debugf("No network startup needed for %s/%s", runtime.GOOS, runtime.GOARCH)
	return nil
}

func (noneSystem) OpenNullDevice() (*os.File, error) {
	return nil, ErrUnsupported
}

// Geteuid reports -1, thus no privileges will be dropped.
func (noneSystem) Geteuid() int {
	return -1
}

func (noneSystem) LookupUser(string) (int, int, error) {
	return 0, 0, ErrUnsupported
}

func (noneSystem) Chroot(string) error {
	return ErrUnsupported
}

func (noneSystem) Chdir(path string) error {
	return os.Chdir(path)
}

func (noneSystem) SetGroupID(int) error {
	return ErrUnsupported
}

func (noneSystem) SetUserID(int) error {
	return ErrUnsupported
}

func (noneSystem) Detach() error {
	return ErrUnsupported
}

func (noneSystem) Redirect(*os.File) error {
	return ErrUnsupported
}

func (noneSystem) Restrict() error {
	log.Warnf("No sandbox available for %s/%s", runtime.GOOS, runtime.GOARCH)
	return nil
}

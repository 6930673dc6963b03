//go:build aix || linux || darwin || dragonfly || freebsd || openbsd || netbsd || solaris

package main

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/oxzi/gomaster/internal"
)

// readyFd is the child's end of the readiness pipe, the first of ExtraFiles.
const readyFd = 3

// readyMsg is written by the child once its startup has finished.
const readyMsg = "ready"

// launch executes this program again in a new session, which finishes the
// daemonization. The child's log output is relayed until it reports its
// readiness or stops. The returned value is the launcher's exit code.
func launch() int {
	logParent, logChild, err := os.Pipe()
	if err != nil {
		log.WithError(err).Error("Failed to create log pipe")
		return 1
	}
	readyParent, readyChild, err := os.Pipe()
	if err != nil {
		log.WithError(err).Error("Failed to create readiness pipe")
		closeFiles(logParent, logChild)
		return 1
	}

	cmd := exec.Command(os.Args[0], os.Args[1:]...)

	cmd.Env = append(os.Environ(), internal.DetachedEnv+"=1")
	cmd.Stdin = nil
	cmd.Stdout = logChild
	cmd.Stderr = logChild
	cmd.ExtraFiles = []*os.File{readyChild}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	err = cmd.Start()
	closeFiles(logChild, readyChild)
	if err != nil {
		log.WithError(err).Error("Failed to start daemon process")
		closeFiles(logParent, readyParent)
		return 1
	}

	logger := log.WithField("pid", cmd.Process.Pid)

	relayCh := make(chan struct{})
	go func() {
		relayLog(logParent, "daemon")
		close(relayCh)
	}()

	ready := waitReady(readyParent)

	// After a successful start, the child's output is already redirected.
	select {
	case <-relayCh:
	case <-time.After(time.Second):
	}

	if ready {
		logger.Info("Daemon is running")
		_ = cmd.Process.Release()
		return 0
	}

	err = cmd.Wait()
	logger.WithError(err).Error("Daemon failed to start")

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return exitErr.ExitCode()
	}
	return 1
}

// closeFiles closes all files, ignoring errors.
func closeFiles(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}

// waitReady blocks until the readiness pipe is closed and reports if the
// child has written its readiness message before.
func waitReady(r io.ReadCloser) bool {
	defer func() { _ = r.Close() }()

	msg, err := io.ReadAll(io.LimitReader(r, int64(len(readyMsg))))
	if err != nil {
		log.WithError(err).Warn("Failed to read from readiness pipe")
		return false
	}
	return string(msg) == readyMsg
}

// signalReady informs the launcher of this detached process that the startup
// has finished.
func signalReady() error {
	f := os.NewFile(readyFd, "ready")
	if f == nil {
		return errors.New("readiness pipe is not available")
	}
	defer func() { _ = f.Close() }()

	_, err := io.WriteString(f, readyMsg)
	return err
}

package daemon

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const (
	// DetachedEnv marks a process that is already running in the background.
	DetachedEnv = "WFW_DETACHED"

	// readyEnv names the descriptor a detached child reports its startup
	// outcome on.
	readyEnv     = "WFW_READY_FD"
	readyOK      = "ok"
	readyTimeout = 30 * time.Second
)

// Detached reports whether this process was started by Daemonize.
func Detached() bool { return os.Getenv(DetachedEnv) == "1" }

// Daemonize turns the process into a background service. In a process that
// is already detached it does nothing and returns false. Otherwise it
// re-executes the binary with the same arguments in a new session, with
// stdio on /dev/null, and waits until the child calls NotifyReady. It then
// returns true and the child's startup error, if any; the caller should exit.
//
// Descriptors opened before Daemonize do not survive, so it must run
// before the virtual interface and the sockets are opened.
func Daemonize() (parent bool, err error) {
	if Detached() {
		return false, nil
	}

	execPath, err := os.Executable()
	if err != nil {
		return false, fmt.Errorf("cannot locate executable: %w", err)
	}

	null, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return false, err
	}
	defer null.Close()

	r, w, err := os.Pipe()
	if err != nil {
		return false, fmt.Errorf("failed to create readiness pipe: %w", err)
	}
	defer r.Close()

	cmd := exec.Command(execPath, os.Args[1:]...)
	// ExtraFiles[0] is descriptor 3 in the child
	cmd.Env = append(os.Environ(), DetachedEnv+"=1", readyEnv+"=3")
	cmd.Stdin = null
	cmd.Stdout = null
	cmd.Stderr = null
	cmd.ExtraFiles = []*os.File{w}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true, // new session, no controlling terminal
	}

	err = cmd.Start()
	w.Close()
	if err != nil {
		return false, fmt.Errorf("failed to start background process: %w", err)
	}
	if err := cmd.Process.Release(); err != nil {
		return true, err
	}
	return true, waitReady(r, readyTimeout)
}

// NotifyReady reports the startup outcome to the parent blocked in
// Daemonize: nil for success, otherwise the startup error. Only the first
// call in a detached child writes; elsewhere it does nothing.
func NotifyReady(startErr error) error {
	v := os.Getenv(readyEnv)
	if v == "" {
		return nil
	}
	os.Unsetenv(readyEnv)

	fd, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("malformed %s=%q", readyEnv, v)
	}
	f := os.NewFile(uintptr(fd), "ready")
	defer f.Close()
	return writeReady(f, startErr)
}

func writeReady(w io.Writer, startErr error) error {
	msg := readyOK
	if startErr != nil {
		msg = startErr.Error()
	}
	_, err := io.WriteString(w, msg)
	return err
}

// waitReady reads the child's report until it closes its end. A child that
// exits without reporting, or stays silent past timeout, is a failure.
func waitReady(r *os.File, timeout time.Duration) error {
	if err := r.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return fmt.Errorf("background process not ready after %s", timeout)
		}
		return err
	}

	switch msg := strings.TrimSpace(string(data)); msg {
	case readyOK:
		return nil
	case "":
		return errors.New("background process exited during startup")
	default:
		return errors.New(msg)
	}
}

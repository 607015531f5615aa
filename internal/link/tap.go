// Package link opens the descriptors the bridge runs on: the virtual
// interface and the two UDP sockets, plus the readiness poller over them.
package link

import (
	"fmt"
	"io"
	"os"
	"strings"

	"firestige.xyz/wfw/internal/core"
)

const tunClonePath = "/dev/net/tun"

// Tap is an open virtual layer-2 interface.
type Tap struct {
	name string
	rwc  io.ReadWriteCloser
	fd   int
}

// IsCharDevice reports whether device names a character device path
// (BSD-style /dev/tap0) rather than a Linux interface name.
func IsCharDevice(device string) bool {
	return strings.HasPrefix(device, "/dev/") && device != tunClonePath
}

// OpenTap opens device. A path under /dev/ other than /dev/net/tun is
// opened directly; anything else names a Linux TAP interface created or
// attached through /dev/net/tun. Failures are *core.SetupError.
func OpenTap(device string) (*Tap, error) {
	var (
		t   *Tap
		err error
	)
	if IsCharDevice(device) {
		t, err = openCharDevice(device)
	} else {
		t, err = openTAP(device)
	}
	if err != nil {
		return nil, &core.SetupError{Op: "open tap " + device, Err: err}
	}
	return t, nil
}

func openCharDevice(path string) (*Tap, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return &Tap{name: path, rwc: f, fd: int(f.Fd())}, nil
}

// fdOf extracts the descriptor from the file behind a device handle.
func fdOf(rwc io.ReadWriteCloser) (int, error) {
	f, ok := rwc.(interface{ Fd() uintptr })
	if !ok {
		return -1, fmt.Errorf("device handle %T exposes no descriptor", rwc)
	}
	return int(f.Fd()), nil
}

// Name returns the interface name or device path.
func (t *Tap) Name() string { return t.name }

// Fd returns the descriptor to poll on.
func (t *Tap) Fd() int { return t.fd }

// Read reads exactly one frame.
func (t *Tap) Read(p []byte) (int, error) { return t.rwc.Read(p) }

// Write writes exactly one frame.
func (t *Tap) Write(p []byte) (int, error) { return t.rwc.Write(p) }

// Close closes the device.
func (t *Tap) Close() error { return t.rwc.Close() }

// Package core defines sentinel errors.
package core

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// Frame errors
	ErrFrameTooShort = errors.New("wfw: frame too short")
	ErrFrameTooLarge = errors.New("wfw: frame exceeds 1514 bytes")

	// Header inspection errors
	ErrNotIPv6TCP       = errors.New("wfw: not an IPv6 TCP segment")
	ErrPacketTooShort   = errors.New("wfw: packet too short")
	ErrUnsupportedProto = errors.New("wfw: unsupported protocol")

	// Engine errors
	ErrEngineStopped = errors.New("wfw: engine stopped")

	// Configuration errors
	ErrConfigInvalid = errors.New("wfw: invalid configuration")
)

// SetupError is a fatal startup failure: the virtual interface or a socket
// could not be opened, bound or configured. The engine is never entered.
type SetupError struct {
	Op  string
	Err error
}

func (e *SetupError) Error() string { return fmt.Sprintf("setup %s: %v", e.Op, e.Err) }
func (e *SetupError) Unwrap() error { return e.Err }

// TransmitError is a recoverable failure to deliver a frame: a send on the
// transport or a write to the virtual interface.
type TransmitError struct {
	To  string
	Err error
}

func (e *TransmitError) Error() string { return fmt.Sprintf("transmit to %s: %v", e.To, e.Err) }
func (e *TransmitError) Unwrap() error { return e.Err }

// ReceiveError is a recoverable failure to read one frame from the virtual
// interface or a socket.
type ReceiveError struct {
	Source string
	Err    error
}

func (e *ReceiveError) Error() string { return fmt.Sprintf("receive on %s: %v", e.Source, e.Err) }
func (e *ReceiveError) Unwrap() error { return e.Err }

// LoopError ends a bridging session: the readiness wait itself failed.
type LoopError struct {
	Err error
}

func (e *LoopError) Error() string { return fmt.Sprintf("readiness wait: %v", e.Err) }
func (e *LoopError) Unwrap() error { return e.Err }

// Package bridge runs the event loop that moves frames between the virtual
// interface and the UDP transport.
package bridge

import (
	"context"
	"errors"
	"net/netip"
	"sync/atomic"

	"firestige.xyz/wfw/internal/config"
	"firestige.xyz/wfw/internal/core"
	"firestige.xyz/wfw/internal/learning"
	"firestige.xyz/wfw/internal/log"
	"firestige.xyz/wfw/internal/metrics"
	"firestige.xyz/wfw/internal/ratelimit"
	"firestige.xyz/wfw/internal/session"
)

// Device is the virtual network interface. One Read returns one frame.
type Device interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Fd() int
}

// PacketConn is a UDP socket carrying one frame per datagram.
type PacketConn interface {
	ReadFrom(p []byte) (int, netip.AddrPort, error)
	WriteTo(p []byte, to netip.AddrPort) (int, error)
	Fd() int
}

// Poller waits for readability.
type Poller interface {
	// Wait blocks until at least one of fds is readable and returns the
	// index of the first readable one. It returns core.ErrEngineStopped
	// after Wake.
	Wait(fds []int) (int, error)
	// Wake makes a pending or future Wait return core.ErrEngineStopped.
	Wake() error
}

// State of an Engine.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Positions in the watch list. The order is the service priority.
const (
	srcTap = iota
	srcIn
	srcOut
)

var sourceNames = [...]string{srcTap: "tap", srcIn: "in", srcOut: "out"}

// Options configures an Engine.
type Options struct {
	// Broadcast receives every frame whose destination is not learned.
	Broadcast netip.AddrPort
	// Blacklisted decides whether frames from flagged remotes reach the
	// virtual interface.
	Blacklisted config.BlacklistPolicy
	// Warnings bounds unsolicited-connection warnings per transport peer.
	// Nil logs every one.
	Warnings *ratelimit.Limiter
}

// Engine owns the learning table and the session tracker for one bridging
// session. Descriptors are borrowed; the caller closes them after Run.
type Engine struct {
	tap     Device
	in, out PacketConn
	poller  Poller
	opts    Options

	fds      []int
	table    *learning.Table
	sessions *session.Tracker
	buf      []byte
	state    atomic.Int32
	log      log.Logger
}

// New creates an engine with empty tables.
func New(tap Device, in, out PacketConn, poller Poller, opts Options) *Engine {
	return &Engine{
		tap:      tap,
		in:       in,
		out:      out,
		poller:   poller,
		opts:     opts,
		fds:      []int{srcTap: tap.Fd(), srcIn: in.Fd(), srcOut: out.Fd()},
		table:    learning.New(),
		sessions: session.NewTracker(),
		// One spare byte so an oversized read is detected, not truncated to a valid size.
		buf: make([]byte, core.MaxFrameLen+1),
		log: log.GetLogger().WithField("component", "bridge"),
	}
}

// State returns the current state. It is safe to call from any goroutine.
func (e *Engine) State() State { return State(e.state.Load()) }

// Table exposes the learning table for inspection. It must not be used
// while Run is executing.
func (e *Engine) Table() *learning.Table { return e.table }

// Sessions exposes the session tracker for inspection. It must not be used
// while Run is executing.
func (e *Engine) Sessions() *session.Tracker { return e.sessions }

// Run services descriptors until the readiness wait fails or ctx is
// cancelled. A cancelled context returns nil; a wait failure returns a
// *core.LoopError. The tables are released on every exit path, so an
// Engine runs at most once.
func (e *Engine) Run(ctx context.Context) error {
	if !e.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return core.ErrEngineStopped
	}
	defer e.release()

	stop := context.AfterFunc(ctx, func() {
		if err := e.poller.Wake(); err != nil {
			e.log.WithError(err).Warn("failed to wake event loop")
		}
	})
	defer stop()

	metrics.EngineRunning.Set(1)
	defer metrics.EngineRunning.Set(0)

	e.log.WithField("broadcast", e.opts.Broadcast.String()).
		WithField("policy", string(e.opts.Blacklisted)).
		Info("bridge running")

	for {
		if ctx.Err() != nil {
			e.log.Info("bridge stopped")
			return nil
		}

		ready, err := e.poller.Wait(e.fds)
		if err != nil {
			if errors.Is(err, core.ErrEngineStopped) {
				e.log.Info("bridge stopped")
				return nil
			}
			e.log.WithError(err).Error("readiness wait failed, bridge stopping")
			return &core.LoopError{Err: err}
		}

		switch ready {
		case srcTap:
			e.forwardOutbound()
		case srcIn:
			e.forwardInbound(srcIn, e.in)
		case srcOut:
			e.forwardInbound(srcOut, e.out)
		}
	}
}

func (e *Engine) release() {
	e.state.Store(int32(StateStopped))
	e.table.Close()
	e.sessions.Close()
	e.publishSizes()
}

func (e *Engine) publishSizes() {
	metrics.LearnedAddresses.Set(float64(e.table.Len()))
	metrics.TrackedSessions.Set(float64(e.sessions.Sessions()))
	metrics.BlacklistedRemotes.Set(float64(e.sessions.BlacklistLen()))
}

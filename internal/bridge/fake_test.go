package bridge

import (
	"bytes"
	"errors"
	"net/netip"
	"sync/atomic"

	"firestige.xyz/wfw/internal/core"
)

var errNoData = errors.New("no data queued")

type datagram struct {
	b    []byte
	addr netip.AddrPort
}

// fakeTap serves queued frames and records writes.
type fakeTap struct {
	reads    [][]byte
	readErr  error
	written  [][]byte
	writeErr error
}

func (t *fakeTap) Read(p []byte) (int, error) {
	if t.readErr != nil {
		err := t.readErr
		t.readErr = nil
		return 0, err
	}
	if len(t.reads) == 0 {
		return 0, errNoData
	}
	f := t.reads[0]
	t.reads = t.reads[1:]
	return copy(p, f), nil
}

func (t *fakeTap) Write(p []byte) (int, error) {
	if t.writeErr != nil {
		return 0, t.writeErr
	}
	t.written = append(t.written, bytes.Clone(p))
	return len(p), nil
}

func (t *fakeTap) Fd() int { return 3 }

// fakeConn serves queued datagrams and records sends.
type fakeConn struct {
	fd       int
	reads    []datagram
	readErr  error
	sent     []datagram
	writeErr error
}

func (c *fakeConn) ReadFrom(p []byte) (int, netip.AddrPort, error) {
	if c.readErr != nil {
		err := c.readErr
		c.readErr = nil
		return 0, netip.AddrPort{}, err
	}
	if len(c.reads) == 0 {
		return 0, netip.AddrPort{}, errNoData
	}
	d := c.reads[0]
	c.reads = c.reads[1:]
	return copy(p, d.b), d.addr, nil
}

func (c *fakeConn) WriteTo(p []byte, to netip.AddrPort) (int, error) {
	if c.writeErr != nil {
		err := c.writeErr
		c.writeErr = nil
		return 0, err
	}
	c.sent = append(c.sent, datagram{b: bytes.Clone(p), addr: to})
	return len(p), nil
}

func (c *fakeConn) Fd() int { return c.fd }

// fakePoller replays a script of ready indices. When the script runs out it
// calls inspect, with the tables still live, and then fails with err, or
// reports a stop when err is nil.
type fakePoller struct {
	script  []int
	err     error
	inspect func()
	woken   atomic.Bool
	fds     []int
}

func (p *fakePoller) Wait(fds []int) (int, error) {
	p.fds = fds
	if p.woken.Load() {
		return -1, core.ErrEngineStopped
	}
	if len(p.script) == 0 {
		if p.inspect != nil {
			p.inspect()
		}
		if p.err != nil {
			return -1, p.err
		}
		return -1, core.ErrEngineStopped
	}
	i := p.script[0]
	p.script = p.script[1:]
	return i, nil
}

func (p *fakePoller) Wake() error {
	p.woken.Store(true)
	return nil
}

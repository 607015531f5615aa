package link

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"firestige.xyz/wfw/internal/core"
)

const readable = unix.POLLIN | unix.POLLERR | unix.POLLHUP

// Poller waits on a fixed list of descriptors with poll(2). A self-pipe
// lets another goroutine interrupt the wait.
type Poller struct {
	wakeR, wakeW int
	pfds         []unix.PollFd
}

// NewPoller creates a poller and its wake pipe.
func NewPoller() (*Poller, error) {
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		return nil, &core.SetupError{Op: "create wake pipe", Err: err}
	}
	for _, fd := range p {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(p[0])
			unix.Close(p[1])
			return nil, &core.SetupError{Op: "create wake pipe", Err: err}
		}
	}
	return &Poller{wakeR: p[0], wakeW: p[1]}, nil
}

// Wait blocks without timeout until one of fds is readable and returns the
// index of the first readable descriptor in list order. Error and hangup
// conditions count as readable so the following read reports them. It
// returns core.ErrEngineStopped once Wake has been called.
func (p *Poller) Wait(fds []int) (int, error) {
	if cap(p.pfds) < len(fds)+1 {
		p.pfds = make([]unix.PollFd, len(fds)+1)
	}
	p.pfds = p.pfds[:len(fds)+1]
	for i, fd := range fds {
		p.pfds[i] = unix.PollFd{Fd: int32(fd), Events: unix.POLLIN}
	}
	wake := len(fds)
	p.pfds[wake] = unix.PollFd{Fd: int32(p.wakeR), Events: unix.POLLIN}

	for {
		for i := range p.pfds {
			p.pfds[i].Revents = 0
		}

		n, err := unix.Poll(p.pfds, -1)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return -1, err
		}
		if n == 0 {
			continue
		}

		if p.pfds[wake].Revents != 0 {
			return -1, core.ErrEngineStopped
		}
		for i := range fds {
			re := p.pfds[i].Revents
			if re&unix.POLLNVAL != 0 {
				return -1, fmt.Errorf("descriptor %d: %w", fds[i], unix.EBADF)
			}
			if re&readable != 0 {
				return i, nil
			}
		}
	}
}

// Wake interrupts a blocked Wait and makes every later Wait return
// core.ErrEngineStopped. It is safe to call from any goroutine.
func (p *Poller) Wake() error {
	_, err := unix.Write(p.wakeW, []byte{1})
	if errors.Is(err, unix.EAGAIN) {
		return nil
	}
	return err
}

// Close releases the wake pipe.
func (p *Poller) Close() error {
	err := unix.Close(p.wakeR)
	if e := unix.Close(p.wakeW); err == nil {
		err = e
	}
	return err
}

package link

import (
	"fmt"
	"net/netip"

	"golang.org/x/sys/unix"

	"firestige.xyz/wfw/internal/core"
)

// Socket is an IPv4 UDP socket used through raw descriptor calls so the
// engine can poll it together with the TAP device.
type Socket struct {
	fd    int
	local netip.AddrPort
}

// ListenUDP opens a broadcast-capable UDP socket bound to addr. With reuse
// set, SO_REUSEADDR lets several bridges on one host share the broadcast
// port. Failures are *core.SetupError.
func ListenUDP(addr netip.AddrPort, reuse bool) (*Socket, error) {
	s, err := listenUDP(addr, reuse)
	if err != nil {
		return nil, &core.SetupError{Op: "bind " + addr.String(), Err: err}
	}
	return s, nil
}

func listenUDP(addr netip.AddrPort, reuse bool) (*Socket, error) {
	if !addr.Addr().Unmap().Is4() {
		return nil, fmt.Errorf("not an IPv4 address: %s", addr.Addr())
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, unix.IPPROTO_UDP)
	if err != nil {
		return nil, fmt.Errorf("cannot create socket: %w", err)
	}
	unix.CloseOnExec(fd)
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_BROADCAST, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("cannot set SO_BROADCAST: %w", err)
	}
	if reuse {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("cannot set SO_REUSEADDR: %w", err)
		}
	}
	if err := unix.Bind(fd, sockaddr(addr)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("cannot bind socket: %w", err)
	}

	sa, err := unix.Getsockname(fd)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("cannot read bound address: %w", err)
	}
	local, _ := addrPort(sa)
	return &Socket{fd: fd, local: local}, nil
}

func sockaddr(ap netip.AddrPort) *unix.SockaddrInet4 {
	return &unix.SockaddrInet4{Port: int(ap.Port()), Addr: ap.Addr().Unmap().As4()}
}

func addrPort(sa unix.Sockaddr) (netip.AddrPort, bool) {
	in4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return netip.AddrPort{}, false
	}
	return netip.AddrPortFrom(netip.AddrFrom4(in4.Addr), uint16(in4.Port)), true
}

// Fd returns the descriptor to poll on.
func (s *Socket) Fd() int { return s.fd }

// LocalAddr returns the bound address, with the kernel-chosen port filled in.
func (s *Socket) LocalAddr() netip.AddrPort { return s.local }

// ReadFrom receives one datagram. A datagram longer than p is truncated by
// the kernel; callers size p one byte past the largest valid frame to
// detect that.
func (s *Socket) ReadFrom(p []byte) (int, netip.AddrPort, error) {
	n, from, err := unix.Recvfrom(s.fd, p, 0)
	if err != nil {
		return 0, netip.AddrPort{}, err
	}
	ap, ok := addrPort(from)
	if !ok {
		return n, netip.AddrPort{}, fmt.Errorf("unexpected sender address family %T", from)
	}
	return n, ap, nil
}

// WriteTo sends p as one datagram.
func (s *Socket) WriteTo(p []byte, to netip.AddrPort) (int, error) {
	if err := unix.Sendto(s.fd, p, 0, sockaddr(to)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close closes the socket.
func (s *Socket) Close() error { return unix.Close(s.fd) }

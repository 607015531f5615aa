package daemon

import (
	"context"
	"errors"
	"io"
	"net/netip"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"firestige.xyz/wfw/internal/config"
	"firestige.xyz/wfw/internal/core"
	"firestige.xyz/wfw/internal/link"
	"firestige.xyz/wfw/internal/testutil"
)

// pairTap is one end of a datagram socketpair standing in for a TAP
// device; the test drives the other end.
type pairTap struct {
	f *os.File
}

func (p *pairTap) Read(b []byte) (int, error)  { return p.f.Read(b) }
func (p *pairTap) Write(b []byte) (int, error) { return p.f.Write(b) }
func (p *pairTap) Fd() int                     { return int(p.f.Fd()) }
func (p *pairTap) Close() error                { return p.f.Close() }
func (p *pairTap) Name() string                { return "pair0" }

func newPairTap(t *testing.T) (*pairTap, *os.File) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_DGRAM, 0)
	require.NoError(t, err)
	// Non-blocking so the runtime poller backs read deadlines
	require.NoError(t, unix.SetNonblock(fds[1], true))
	peer := os.NewFile(uintptr(fds[1]), "peer")
	t.Cleanup(func() { peer.Close() })
	return &pairTap{f: os.NewFile(uintptr(fds[0]), "tap")}, peer
}

func freeUDPPort(t *testing.T) uint16 {
	t.Helper()
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	require.NoError(t, err)
	defer unix.Close(fd)
	require.NoError(t, unix.Bind(fd, &unix.SockaddrInet4{Addr: [4]byte{127, 0, 0, 1}}))
	sa, err := unix.Getsockname(fd)
	require.NoError(t, err)
	return uint16(sa.(*unix.SockaddrInet4).Port)
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Device:    "pair0",
		Port:      freeUDPPort(t),
		Broadcast: netip.MustParseAddr("127.0.0.1"),
		PIDFile:   filepath.Join(t.TempDir(), "wfw.pid"),
		Policy:    config.PolicyConfig{Blacklisted: config.PolicyForward},
	}
}

func TestDaemonLoopback(t *testing.T) {
	cfg := testConfig(t)
	tap, peer := newPairTap(t)

	d := New(cfg)
	d.openTap = func(string) (tapDevice, error) { return tap, nil }

	require.NoError(t, d.Start(context.Background()))

	pid, err := ReadPIDFile(cfg.PIDFile)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() {
		runDone <- d.Run(ctx)
	}()

	// A frame from the interface is broadcast to 127.0.0.1:port, where the
	// inbound socket picks it up and writes it back to the interface.
	frame := testutil.Raw(core.BroadcastAddr, core.HardwareAddr{0x02, 0, 0, 0, 0, 1}, core.EtherTypeARP, 28)
	_, err = peer.Write(frame)
	require.NoError(t, err)

	require.NoError(t, peer.SetReadDeadline(time.Now().Add(5*time.Second)))
	buf := make([]byte, core.MaxFrameLen)
	n, err := peer.Read(buf)
	if errors.Is(err, os.ErrDeadlineExceeded) {
		t.Fatal("frame did not come back through the bridge")
	}
	require.NoError(t, err)
	assert.Equal(t, frame, buf[:n])

	cancel()
	select {
	case err := <-runDone:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop within timeout")
	}

	_, err = os.Stat(cfg.PIDFile)
	assert.True(t, os.IsNotExist(err), "PID file was not removed after shutdown")
}

func TestDaemonStartFailureCleansUp(t *testing.T) {
	cfg := testConfig(t)
	tap, _ := newPairTap(t)

	d := New(cfg)
	d.openTap = func(string) (tapDevice, error) { return tap, nil }

	// The outbound socket binds, the inbound one fails
	var bound []netip.AddrPort
	d.listen = func(addr netip.AddrPort, reuse bool) (*link.Socket, error) {
		bound = append(bound, addr)
		if reuse {
			return nil, &core.SetupError{Op: "bind " + addr.String(), Err: unix.EADDRINUSE}
		}
		return link.ListenUDP(addr, reuse)
	}

	err := d.Start(context.Background())
	require.Error(t, err)

	var setupErr *core.SetupError
	assert.True(t, errors.As(err, &setupErr))
	assert.ErrorIs(t, err, unix.EADDRINUSE)
	assert.Equal(t, []netip.AddrPort{anyEndpoint, cfg.BroadcastEndpoint()}, bound)
	assert.Nil(t, d.tap, "descriptors must be closed")
	assert.Nil(t, d.out)
	assert.Nil(t, d.in)
	assert.Nil(t, d.poller, "engine setup never reached")

	_, statErr := os.Stat(cfg.PIDFile)
	assert.True(t, os.IsNotExist(statErr), "no PID file on failed start")
	assert.Error(t, d.Run(context.Background()), "engine is never entered")
}

func TestDaemonTapFailure(t *testing.T) {
	d := New(testConfig(t))
	d.openTap = func(device string) (tapDevice, error) {
		return nil, &core.SetupError{Op: "open tap " + device, Err: os.ErrPermission}
	}

	err := d.Start(context.Background())
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.Error(t, d.Run(context.Background()), "engine is never entered")
}

func TestPIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wfw.pid")

	require.NoError(t, WritePIDFile(path))
	pid, err := ReadPIDFile(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	require.NoError(t, RemovePIDFile(path))
	require.NoError(t, RemovePIDFile(path), "removing twice is fine")

	assert.NoError(t, WritePIDFile(""))
	assert.NoError(t, RemovePIDFile(""))
}

func TestReadPIDFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wfw.pid")
	require.NoError(t, os.WriteFile(path, []byte("abc\n"), 0644))

	_, err := ReadPIDFile(path)
	assert.Error(t, err)
}

func TestDaemonizeWhenDetached(t *testing.T) {
	t.Setenv(DetachedEnv, "1")

	parent, err := Daemonize()
	require.NoError(t, err)
	assert.False(t, parent)
	assert.True(t, Detached())
}

func TestReadinessReport(t *testing.T) {
	tests := []struct {
		name    string
		report  func(w io.Writer)
		wantErr string
	}{
		{
			name:   "ready",
			report: func(w io.Writer) { require.NoError(t, writeReady(w, nil)) },
		},
		{
			name: "startup failed",
			report: func(w io.Writer) {
				err := &core.SetupError{Op: "open tap tap0", Err: os.ErrPermission}
				require.NoError(t, writeReady(w, err))
			},
			wantErr: "setup open tap tap0: permission denied",
		},
		{
			name:    "exited without report",
			report:  func(io.Writer) {},
			wantErr: "background process exited during startup",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, w, err := os.Pipe()
			require.NoError(t, err)
			defer r.Close()

			tt.report(w)
			require.NoError(t, w.Close())

			err = waitReady(r, 5*time.Second)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tt.wantErr)
			}
		})
	}
}

func TestReadinessTimeout(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	err = waitReady(r, 50*time.Millisecond)
	assert.ErrorContains(t, err, "not ready")
}

func TestNotifyReady(t *testing.T) {
	// Outside a detached child it does nothing
	t.Setenv(readyEnv, "")
	assert.NoError(t, NotifyReady(errors.New("ignored")))

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	// NotifyReady takes ownership of the descriptor it is handed
	fd, err := unix.Dup(int(w.Fd()))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	t.Setenv(readyEnv, strconv.Itoa(fd))
	require.NoError(t, NotifyReady(nil))
	assert.Empty(t, os.Getenv(readyEnv), "reported once")
	assert.NoError(t, NotifyReady(errors.New("late")), "later calls do nothing")

	assert.NoError(t, waitReady(r, 5*time.Second))
}

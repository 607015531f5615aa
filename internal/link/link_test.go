package link

import (
	"errors"
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/wfw/internal/core"
)

var loopback = netip.MustParseAddrPort("127.0.0.1:0")

func TestIsCharDevice(t *testing.T) {
	assert.True(t, IsCharDevice("/dev/tap0"))
	assert.False(t, IsCharDevice("/dev/net/tun"))
	assert.False(t, IsCharDevice("tap0"))
	assert.False(t, IsCharDevice("wfw%d"))
}

func TestOpenTapMissingDevice(t *testing.T) {
	_, err := OpenTap("/dev/wfw-test-no-such-tap")
	require.Error(t, err)

	var setupErr *core.SetupError
	assert.True(t, errors.As(err, &setupErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestOpenTapCharDevice(t *testing.T) {
	// Any readable/writable file stands in for a BSD tap node.
	path := filepath.Join(t.TempDir(), "tap0")
	require.NoError(t, os.WriteFile(path, nil, 0600))

	tap, err := openCharDevice(path)
	require.NoError(t, err)
	defer tap.Close()

	assert.Equal(t, path, tap.Name())
	assert.GreaterOrEqual(t, tap.Fd(), 0)

	n, err := tap.Write([]byte("frame"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestListenUDPRejectsIPv6(t *testing.T) {
	_, err := ListenUDP(netip.MustParseAddrPort("[::1]:0"), false)
	var setupErr *core.SetupError
	assert.True(t, errors.As(err, &setupErr))
}

func TestSocketSendReceive(t *testing.T) {
	in, err := ListenUDP(loopback, true)
	require.NoError(t, err)
	defer in.Close()

	out, err := ListenUDP(loopback, false)
	require.NoError(t, err)
	defer out.Close()

	require.NotZero(t, in.LocalAddr().Port())

	frame := make([]byte, core.MaxFrameLen)
	for i := range frame {
		frame[i] = byte(i)
	}
	n, err := out.WriteTo(frame, in.LocalAddr())
	require.NoError(t, err)
	assert.Equal(t, len(frame), n)

	poller, err := NewPoller()
	require.NoError(t, err)
	defer poller.Close()

	ready, err := poller.Wait([]int{out.Fd(), in.Fd()})
	require.NoError(t, err)
	assert.Equal(t, 1, ready)

	buf := make([]byte, core.MaxFrameLen+1)
	n, from, err := in.ReadFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, frame, buf[:n])
	assert.Equal(t, out.LocalAddr().Port(), from.Port())
}

func TestSocketOversizedDatagramDetectable(t *testing.T) {
	in, err := ListenUDP(loopback, false)
	require.NoError(t, err)
	defer in.Close()
	out, err := ListenUDP(loopback, false)
	require.NoError(t, err)
	defer out.Close()

	_, err = out.WriteTo(make([]byte, 2000), in.LocalAddr())
	require.NoError(t, err)

	buf := make([]byte, core.MaxFrameLen+1)
	n, _, err := in.ReadFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, core.MaxFrameLen+1, n)
}

func TestPollerWake(t *testing.T) {
	in, err := ListenUDP(loopback, false)
	require.NoError(t, err)
	defer in.Close()

	poller, err := NewPoller()
	require.NoError(t, err)
	defer poller.Close()

	done := make(chan error, 1)
	go func() {
		_, err := poller.Wait([]int{in.Fd()})
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, poller.Wake())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, core.ErrEngineStopped)
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after Wake")
	}

	// Stays stopped
	_, err = poller.Wait([]int{in.Fd()})
	assert.ErrorIs(t, err, core.ErrEngineStopped)
}

func TestPollerClosedDescriptor(t *testing.T) {
	poller, err := NewPoller()
	require.NoError(t, err)
	defer poller.Close()

	s, err := ListenUDP(loopback, false)
	require.NoError(t, err)
	fd := s.Fd()
	require.NoError(t, s.Close())

	_, err = poller.Wait([]int{fd})
	assert.Error(t, err)
}

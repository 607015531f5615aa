// Package testutil builds realistic frames for tests across the bridge
// packages.
package testutil

import (
	"net"
	"net/netip"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/require"

	"firestige.xyz/wfw/internal/core"
)

// TCP6 describes an Ethernet/IPv6/TCP frame.
type TCP6 struct {
	SrcMAC, DstMAC   core.HardwareAddr
	SrcIP, DstIP     netip.Addr
	SrcPort, DstPort uint16
	SYN, ACK         bool
	FIN, RST         bool
	Payload          []byte
}

// Frame serializes the description with correct lengths and checksums.
func (s TCP6) Frame(tb testing.TB) []byte {
	tb.Helper()

	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr(s.SrcMAC[:]),
		DstMAC:       net.HardwareAddr(s.DstMAC[:]),
		EthernetType: layers.EthernetTypeIPv6,
	}
	ip6 := &layers.IPv6{
		Version:    6,
		NextHeader: layers.IPProtocolTCP,
		HopLimit:   64,
		SrcIP:      s.SrcIP.AsSlice(),
		DstIP:      s.DstIP.AsSlice(),
	}
	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(s.SrcPort),
		DstPort: layers.TCPPort(s.DstPort),
		Seq:     1000,
		Window:  65535,
		SYN:     s.SYN,
		ACK:     s.ACK,
		FIN:     s.FIN,
		RST:     s.RST,
	}
	if s.ACK {
		tcp.Ack = 2000
	}
	require.NoError(tb, tcp.SetNetworkLayerForChecksum(ip6))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(tb, gopacket.SerializeLayers(buf, opts, eth, ip6, tcp, gopacket.Payload(s.Payload)))

	return append([]byte(nil), buf.Bytes()...)
}

// UDP4 builds an Ethernet/IPv4/UDP frame, used as traffic the session
// gate must ignore.
func UDP4(tb testing.TB, src, dst core.HardwareAddr, payload []byte) []byte {
	tb.Helper()

	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr(src[:]),
		DstMAC:       net.HardwareAddr(dst[:]),
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip4 := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IPv4(192, 168, 1, 1),
		DstIP:    net.IPv4(192, 168, 1, 2),
	}
	udp := &layers.UDP{SrcPort: 5000, DstPort: 5001}
	require.NoError(tb, udp.SetNetworkLayerForChecksum(ip4))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(tb, gopacket.SerializeLayers(buf, opts, eth, ip4, udp, gopacket.Payload(payload)))

	return append([]byte(nil), buf.Bytes()...)
}

// Raw builds a frame with the given header and a zero payload of n bytes.
func Raw(dst, src core.HardwareAddr, etherType uint16, n int) []byte {
	b := make([]byte, core.HeaderLen+n)
	copy(b[0:6], dst[:])
	copy(b[6:12], src[:])
	b[12] = byte(etherType >> 8)
	b[13] = byte(etherType)
	for i := core.HeaderLen; i < len(b); i++ {
		b[i] = byte(i)
	}
	return b
}

// Package core defines core types with zero external dependencies.
package core

import "fmt"

// Frame geometry.
const (
	HardwareAddrLen = 6
	HeaderLen       = 14   // dst[6] | src[6] | ethertype[2]
	MaxPayloadLen   = 1500 // Ethernet MTU
	MaxFrameLen     = HeaderLen + MaxPayloadLen
)

// EtherType and protocol numbers inspected by the bridge.
const (
	EtherTypeIPv4 = 0x0800
	EtherTypeIPv6 = 0x86DD
	EtherTypeARP  = 0x0806

	ProtocolTCP = 6
	ProtocolUDP = 17
)

// HardwareAddr is a 6-byte link-layer address. Being an array it is
// comparable and usable as a value key.
type HardwareAddr [HardwareAddrLen]byte

// BroadcastAddr is the all-ones address. It is also the "any" sentinel of
// the learning table and is never learned.
var BroadcastAddr = HardwareAddr{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// IsBroadcast reports whether h is FF:FF:FF:FF:FF:FF.
func (h HardwareAddr) IsBroadcast() bool { return h == BroadcastAddr }

// IsMulticast reports whether the group bit is set (broadcast included).
func (h HardwareAddr) IsMulticast() bool { return h[0]&0x01 != 0 }

func (h HardwareAddr) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", h[0], h[1], h[2], h[3], h[4], h[5])
}

// Package decoder implements protocol decoding.
package decoder

import (
	"encoding/binary"
	"net/netip"

	"firestige.xyz/wfw/internal/core"
)

const ipv6HeaderLen = 40

// IPv6Header is a view over a fixed 40-byte IPv6 header followed by its
// payload. Every field is read through an explicit big-endian accessor.
//
//	0      4              12                     31
//	| ver  | traffic class |      flow label      |
//	|   payload length    | next hdr |  hop limit |
//	|            source address (16)              |
//	|         destination address (16)            |
type IPv6Header []byte

// ParseIPv6 validates the length and version nibble of data.
func ParseIPv6(data []byte) (IPv6Header, error) {
	if len(data) < ipv6HeaderLen {
		return nil, core.ErrPacketTooShort
	}
	if data[0]>>4 != 6 {
		return nil, core.ErrUnsupportedProto
	}
	return IPv6Header(data), nil
}

// Version returns the 4-bit version field.
func (h IPv6Header) Version() uint8 { return h[0] >> 4 }

// TrafficClass returns the 8-bit traffic class spanning bytes 0 and 1.
func (h IPv6Header) TrafficClass() uint8 { return h[0]<<4 | h[1]>>4 }

// FlowLabel returns the low 20 bits of the first word.
func (h IPv6Header) FlowLabel() uint32 { return binary.BigEndian.Uint32(h[0:4]) & 0x000FFFFF }

// PayloadLength returns the length of everything after the fixed header.
func (h IPv6Header) PayloadLength() uint16 { return binary.BigEndian.Uint16(h[4:6]) }

// NextHeader returns the protocol number of the following header.
func (h IPv6Header) NextHeader() uint8 { return h[6] }

// HopLimit returns the hop limit.
func (h IPv6Header) HopLimit() uint8 { return h[7] }

// Src returns the source address.
func (h IPv6Header) Src() netip.Addr { return netip.AddrFrom16([16]byte(h[8:24])) }

// Dst returns the destination address.
func (h IPv6Header) Dst() netip.Addr { return netip.AddrFrom16([16]byte(h[24:40])) }

// SrcBytes returns the raw source address, aliasing the frame.
func (h IPv6Header) SrcBytes() []byte { return h[8:24] }

// DstBytes returns the raw destination address, aliasing the frame.
func (h IPv6Header) DstBytes() []byte { return h[24:40] }

// Payload returns the bytes after the fixed header. Link-layer padding
// beyond the declared payload length is cut off.
func (h IPv6Header) Payload() []byte {
	end := ipv6HeaderLen + int(h.PayloadLength())
	if end > len(h) {
		end = len(h)
	}
	return h[ipv6HeaderLen:end]
}

// Package decoder implements protocol decoding.
package decoder

import (
	"encoding/binary"

	"firestige.xyz/wfw/internal/core"
)

const tcpHeaderMinLen = 20

// TCP control flags as laid out in byte 13 of the header.
const (
	FlagFIN uint8 = 1 << iota
	FlagSYN
	FlagRST
	FlagPSH
	FlagACK
	FlagURG
)

// TCPSegment is a view over a TCP header and its payload.
type TCPSegment []byte

// ParseTCP validates the minimum length and the data offset of data.
func ParseTCP(data []byte) (TCPSegment, error) {
	if len(data) < tcpHeaderMinLen {
		return nil, core.ErrPacketTooShort
	}
	headerLen := int(data[12]>>4) * 4 // Data offset is in 32-bit words
	if headerLen < tcpHeaderMinLen || len(data) < headerLen {
		return nil, core.ErrPacketTooShort
	}
	return TCPSegment(data), nil
}

func (s TCPSegment) SrcPort() uint16 { return binary.BigEndian.Uint16(s[0:2]) }
func (s TCPSegment) DstPort() uint16 { return binary.BigEndian.Uint16(s[2:4]) }
func (s TCPSegment) Seq() uint32     { return binary.BigEndian.Uint32(s[4:8]) }
func (s TCPSegment) Ack() uint32     { return binary.BigEndian.Uint32(s[8:12]) }

// DataOffset returns the header length in 32-bit words.
func (s TCPSegment) DataOffset() uint8 { return s[12] >> 4 }

// HeaderLen returns the header length in bytes, options included.
func (s TCPSegment) HeaderLen() int { return int(s.DataOffset()) * 4 }

// Flags returns the six control bits URG ACK PSH RST SYN FIN.
func (s TCPSegment) Flags() uint8 { return s[13] & 0x3F }

func (s TCPSegment) FIN() bool { return s.Flags()&FlagFIN != 0 }
func (s TCPSegment) SYN() bool { return s.Flags()&FlagSYN != 0 }
func (s TCPSegment) RST() bool { return s.Flags()&FlagRST != 0 }
func (s TCPSegment) PSH() bool { return s.Flags()&FlagPSH != 0 }
func (s TCPSegment) ACK() bool { return s.Flags()&FlagACK != 0 }
func (s TCPSegment) URG() bool { return s.Flags()&FlagURG != 0 }

func (s TCPSegment) Window() uint16   { return binary.BigEndian.Uint16(s[14:16]) }
func (s TCPSegment) Checksum() uint16 { return binary.BigEndian.Uint16(s[16:18]) }
func (s TCPSegment) Urgent() uint16   { return binary.BigEndian.Uint16(s[18:20]) }

// Payload returns the bytes after the header and its options.
func (s TCPSegment) Payload() []byte { return s[s.HeaderLen():] }

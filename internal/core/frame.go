package core

import "encoding/binary"

// Frame is one raw link-layer frame, exactly as read from the virtual
// interface or carried as a UDP datagram payload:
//
//	dst[6] | src[6] | ethertype[2, big-endian] | payload[0..1500]
//
// A Frame aliases the buffer it was parsed from.
type Frame []byte

// ParseFrame checks the size bounds of b and returns it as a Frame.
// Anything shorter than a header or longer than 1514 bytes is rejected.
func ParseFrame(b []byte) (Frame, error) {
	if len(b) < HeaderLen {
		return nil, ErrFrameTooShort
	}
	if len(b) > MaxFrameLen {
		return nil, ErrFrameTooLarge
	}
	return Frame(b), nil
}

// Dst returns the destination hardware address.
func (f Frame) Dst() (h HardwareAddr) {
	copy(h[:], f[0:6])
	return
}

// Src returns the source hardware address.
func (f Frame) Src() (h HardwareAddr) {
	copy(h[:], f[6:12])
	return
}

// EtherType returns the type field.
func (f Frame) EtherType() uint16 {
	return binary.BigEndian.Uint16(f[12:14])
}

// Payload returns the bytes after the link-layer header.
func (f Frame) Payload() []byte {
	return f[HeaderLen:]
}

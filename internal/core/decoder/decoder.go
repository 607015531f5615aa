// Package decoder implements read-only views over the IPv6 and TCP headers
// carried inside a bridged frame.
package decoder

import "firestige.xyz/wfw/internal/core"

// DecodeIPv6TCP applies the inspection gate: the frame must carry IPv6 and
// the IPv6 next header must be TCP. Extension headers are not walked, so a
// segment behind a hop-by-hop or routing header does not qualify.
// Returns core.ErrNotIPv6TCP when the frame does not qualify.
func DecodeIPv6TCP(f core.Frame) (IPv6Header, TCPSegment, error) {
	if f.EtherType() != core.EtherTypeIPv6 {
		return nil, nil, core.ErrNotIPv6TCP
	}

	ip, err := ParseIPv6(f.Payload())
	if err != nil {
		return nil, nil, err
	}
	if ip.NextHeader() != core.ProtocolTCP {
		return ip, nil, core.ErrNotIPv6TCP
	}

	tcp, err := ParseTCP(ip.Payload())
	if err != nil {
		return ip, nil, err
	}
	return ip, tcp, nil
}

// Package session tracks locally initiated IPv6 TCP handshakes and flags
// remotes that open connections nobody asked for.
package session

import (
	"encoding/binary"
	"net/netip"

	"firestige.xyz/wfw/internal/core"
	"firestige.xyz/wfw/internal/core/decoder"
	"firestige.xyz/wfw/internal/store"
)

// KeyLen is the packed size of a session key:
//
//	remote[16] | remotePort[2, big-endian] | localPort[2, big-endian]
const KeyLen = 16 + 2 + 2

// Key identifies one TCP handshake from the local side's point of view.
type Key [KeyLen]byte

// MakeKey packs a session key.
func MakeKey(remote netip.Addr, remotePort, localPort uint16) Key {
	var k Key
	a := remote.As16()
	copy(k[0:16], a[:])
	binary.BigEndian.PutUint16(k[16:18], remotePort)
	binary.BigEndian.PutUint16(k[18:20], localPort)
	return k
}

// Remote returns the remote address part of the key.
func (k Key) Remote() netip.Addr { return netip.AddrFrom16([16]byte(k[0:16])) }

// outboundKey derives the key of a segment leaving through the virtual
// interface: the remote is the destination.
func outboundKey(ip decoder.IPv6Header, tcp decoder.TCPSegment) Key {
	var k Key
	copy(k[0:16], ip.DstBytes())
	binary.BigEndian.PutUint16(k[16:18], tcp.DstPort())
	binary.BigEndian.PutUint16(k[18:20], tcp.SrcPort())
	return k
}

// inboundKey derives the mirrored key of a segment arriving from the
// transport: the remote is the source.
func inboundKey(ip decoder.IPv6Header, tcp decoder.TCPSegment) Key {
	var k Key
	copy(k[0:16], ip.SrcBytes())
	binary.BigEndian.PutUint16(k[16:18], tcp.SrcPort())
	binary.BigEndian.PutUint16(k[18:20], tcp.DstPort())
	return k
}

// Verdict classifies an inbound frame.
type Verdict int

const (
	// VerdictNotInspected: the frame is not IPv6/TCP.
	VerdictNotInspected Verdict = iota
	// VerdictTrusted: the segment belongs to a locally initiated session.
	// Its source hardware address may be learned.
	VerdictTrusted
	// VerdictUntracked: no session and no SYN.
	VerdictUntracked
	// VerdictUnsolicited: a SYN with no matching session. The remote has
	// just been blacklisted.
	VerdictUnsolicited
	// VerdictBlacklisted: no matching session and the remote was
	// blacklisted earlier.
	VerdictBlacklisted
)

func (v Verdict) String() string {
	switch v {
	case VerdictNotInspected:
		return "not_inspected"
	case VerdictTrusted:
		return "trusted"
	case VerdictUntracked:
		return "untracked"
	case VerdictUnsolicited:
		return "unsolicited"
	case VerdictBlacklisted:
		return "blacklisted"
	default:
		return "unknown"
	}
}

// Learnable reports whether the frame's source address may enter the
// learning table.
func (v Verdict) Learnable() bool { return v == VerdictTrusted }

// Tracker holds the session set and the blacklist. Neither ever shrinks.
type Tracker struct {
	sessions  *store.Store[struct{}]
	blacklist *store.Store[struct{}]
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		sessions:  store.New(store.Options[struct{}]{Capacity: 256}),
		blacklist: store.New(store.Options[struct{}]{}),
	}
}

// Outbound inspects a frame read from the virtual interface and records a
// session when it carries a SYN. It returns true when a new session was
// recorded.
func (t *Tracker) Outbound(f core.Frame) bool {
	ip, tcp, err := decoder.DecodeIPv6TCP(f)
	if err != nil || !tcp.SYN() {
		return false
	}
	return t.Track(outboundKey(ip, tcp))
}

// Inbound inspects a frame received from the transport.
func (t *Tracker) Inbound(f core.Frame) Verdict {
	ip, tcp, err := decoder.DecodeIPv6TCP(f)
	if err != nil {
		return VerdictNotInspected
	}

	// A recorded session wins over the blacklist: replies to a handshake
	// this side opened are trusted even from a flagged remote.
	k := inboundKey(ip, tcp)
	if t.sessions.Has(k[:]) {
		return VerdictTrusted
	}

	remote := ip.SrcBytes()
	switch {
	case t.blacklist.Has(remote):
		return VerdictBlacklisted
	case tcp.SYN():
		t.blacklist.Insert(remote, struct{}{})
		return VerdictUnsolicited
	default:
		return VerdictUntracked
	}
}

// Track records a session. It returns false when k was already recorded.
func (t *Tracker) Track(k Key) bool { return t.sessions.Insert(k[:], struct{}{}) }

// Tracked reports whether k has been recorded.
func (t *Tracker) Tracked(k Key) bool { return t.sessions.Has(k[:]) }

// Blacklisted reports whether addr has been flagged.
func (t *Tracker) Blacklisted(addr netip.Addr) bool {
	a := addr.As16()
	return t.blacklist.Has(a[:])
}

// Sessions returns the number of recorded sessions.
func (t *Tracker) Sessions() int { return t.sessions.Len() }

// BlacklistLen returns the number of blacklisted remotes.
func (t *Tracker) BlacklistLen() int { return t.blacklist.Len() }

// Close releases both tables.
func (t *Tracker) Close() {
	t.sessions.Destroy()
	t.blacklist.Destroy()
}

// Package learning maps link-layer addresses to the transport endpoint they
// were last seen behind.
package learning

import (
	"net/netip"

	"firestige.xyz/wfw/internal/core"
	"firestige.xyz/wfw/internal/store"
)

// Table is the address learning table. Entries never expire; the most
// recent Learn for an address wins.
type Table struct {
	entries *store.Store[netip.AddrPort]
}

// New creates an empty table.
func New() *Table {
	return &Table{
		entries: store.New(store.Options[netip.AddrPort]{Capacity: 64}),
	}
}

// Learn records that hw is reachable at ep. An existing entry is updated in
// place when the address roams to a different endpoint. Group addresses,
// broadcast included, are never stored.
//
// It returns true when the table changed.
func (t *Table) Learn(hw core.HardwareAddr, ep netip.AddrPort) bool {
	if hw.IsMulticast() {
		return false
	}
	if cur, ok := t.entries.Find(hw[:]); ok {
		if *cur == ep {
			return false
		}
		*cur = ep
		return true
	}
	return t.entries.Insert(hw[:], ep)
}

// Resolve returns the endpoint hw was last learned behind.
func (t *Table) Resolve(hw core.HardwareAddr) (netip.AddrPort, bool) {
	ep, ok := t.entries.Find(hw[:])
	if !ok {
		return netip.AddrPort{}, false
	}
	return *ep, true
}

// Len returns the number of learned addresses.
func (t *Table) Len() int { return t.entries.Len() }

// Close releases the table. Further Learn calls are ignored.
func (t *Table) Close() { t.entries.Destroy() }

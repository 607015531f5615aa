// Package ratelimit bounds how often an event may fire per peer address.
package ratelimit

import (
	"net/netip"
	"sync"
	"time"
)

// Limiter counts events per address in fixed windows. Counts reset when a
// window expires. A nil *Limiter allows everything.
type Limiter struct {
	mu           sync.Mutex
	current      map[netip.Addr]int // address → events in current window
	windowStart  time.Time
	windowSize   time.Duration
	maxPerWindow int

	suppressed uint64
}

// Config configures per-address limiting.
type Config struct {
	MaxPerWindow int           // Max events per address per window (0 = disabled)
	Window       time.Duration // Window size (default 10s)
}

// New creates a limiter. Returns nil if disabled (MaxPerWindow <= 0).
func New(cfg Config) *Limiter {
	if cfg.MaxPerWindow <= 0 {
		return nil
	}
	if cfg.Window <= 0 {
		cfg.Window = 10 * time.Second
	}
	return &Limiter{
		current:      make(map[netip.Addr]int),
		windowStart:  time.Now(),
		windowSize:   cfg.Window,
		maxPerWindow: cfg.MaxPerWindow,
	}
}

// Allow records one event from addr and reports whether it is within the
// limit.
func (l *Limiter) Allow(addr netip.Addr, now time.Time) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.windowStart) >= l.windowSize {
		clear(l.current)
		l.windowStart = now
	}

	l.current[addr]++
	if l.current[addr] > l.maxPerWindow {
		l.suppressed++
		return false
	}
	return true
}

// Suppressed returns the total number of rejected events.
func (l *Limiter) Suppressed() uint64 {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.suppressed
}

// Active returns the number of distinct addresses in the current window.
func (l *Limiter) Active() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.current)
}

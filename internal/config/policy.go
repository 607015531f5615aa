package config

import (
	"fmt"
	"strings"
)

// BlacklistPolicy decides what happens to inbound frames from a blacklisted
// remote. Blacklisted sources are never learned under either policy.
type BlacklistPolicy string

const (
	// PolicyForward writes the frame to the virtual interface anyway.
	PolicyForward BlacklistPolicy = "forward"
	// PolicyDrop discards the frame.
	PolicyDrop BlacklistPolicy = "drop"
)

// ParseBlacklistPolicy converts s to a BlacklistPolicy (case-insensitive,
// surrounding whitespace ignored). Empty means forward.
func ParseBlacklistPolicy(s string) (BlacklistPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "forward", "":
		return PolicyForward, nil
	case "drop":
		return PolicyDrop, nil
	default:
		return "", fmt.Errorf("unknown blacklist policy: %q", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler for mapstructure and yaml.
func (p *BlacklistPolicy) UnmarshalText(text []byte) error {
	v, err := ParseBlacklistPolicy(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Drop reports whether flagged frames are discarded.
func (p BlacklistPolicy) Drop() bool { return p == PolicyDrop }

//go:build !linux

package link

import (
	"errors"
	"fmt"

	"firestige.xyz/wfw/internal/config"
	"firestige.xyz/wfw/internal/core"
)

var errNoTapClone = errors.New("tap interface names need Linux; configure a /dev/tapN path instead")

func openTAP(name string) (*Tap, error) {
	return nil, fmt.Errorf("%s: %w", name, errNoTapClone)
}

// Configure is only supported on Linux.
func Configure(t *Tap, cfg config.LinkConfig) error {
	if !cfg.Up && cfg.MTU == 0 {
		return nil
	}
	return &core.SetupError{Op: "configure " + t.name, Err: errors.New("link configuration needs Linux netlink")}
}

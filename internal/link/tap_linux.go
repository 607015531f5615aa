package link

import (
	"fmt"

	"github.com/songgao/water"
	"github.com/vishvananda/netlink"

	"firestige.xyz/wfw/internal/config"
	"firestige.xyz/wfw/internal/core"
)

func openTAP(name string) (*Tap, error) {
	iface, err := water.New(water.Config{
		DeviceType:             water.TAP,
		PlatformSpecificParams: water.PlatformSpecificParams{Name: name},
	})
	if err != nil {
		return nil, err
	}
	fd, err := fdOf(iface.ReadWriteCloser)
	if err != nil {
		iface.Close()
		return nil, err
	}
	return &Tap{name: iface.Name(), rwc: iface, fd: fd}, nil
}

// Configure applies link settings to a TAP interface through netlink.
// It does nothing when cfg asks for nothing or the device is a character
// device path.
func Configure(t *Tap, cfg config.LinkConfig) error {
	if (!cfg.Up && cfg.MTU == 0) || IsCharDevice(t.name) {
		return nil
	}

	link, err := netlink.LinkByName(t.name)
	if err != nil {
		return &core.SetupError{Op: "configure " + t.name, Err: fmt.Errorf("link not found: %w", err)}
	}
	if cfg.MTU > 0 {
		if err := netlink.LinkSetMTU(link, cfg.MTU); err != nil {
			return &core.SetupError{Op: "configure " + t.name, Err: fmt.Errorf("set mtu: %w", err)}
		}
	}
	if cfg.Up {
		if err := netlink.LinkSetUp(link); err != nil {
			return &core.SetupError{Op: "configure " + t.name, Err: fmt.Errorf("link up: %w", err)}
		}
	}
	return nil
}

// Package daemon implements the bridge process lifecycle: descriptor setup,
// PID file, metrics server, signal handling and orderly teardown.
package daemon

import (
	"context"
	"fmt"
	"io"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"firestige.xyz/wfw/internal/bridge"
	"firestige.xyz/wfw/internal/config"
	"firestige.xyz/wfw/internal/core"
	"firestige.xyz/wfw/internal/link"
	"firestige.xyz/wfw/internal/log"
	"firestige.xyz/wfw/internal/metrics"
	"firestige.xyz/wfw/internal/ratelimit"
)

// anyEndpoint is where the outbound socket binds: any interface, any port.
var anyEndpoint = netip.AddrPortFrom(netip.IPv4Unspecified(), 0)

// tapDevice is the subset of *link.Tap the daemon needs.
type tapDevice interface {
	bridge.Device
	io.Closer
	Name() string
}

// Daemon manages one bridging session.
type Daemon struct {
	config *config.Config

	// Descriptors, owned by the daemon and lent to the engine
	tap    tapDevice
	in     *link.Socket
	out    *link.Socket
	poller *link.Poller

	engine        *bridge.Engine
	metricsServer *metrics.Server // nil if metrics disabled
	pidWritten    bool

	openTap func(device string) (tapDevice, error)
	listen  func(addr netip.AddrPort, reuse bool) (*link.Socket, error)
	sigChan chan os.Signal
	log     log.Logger
}

// New creates a Daemon for cfg. Nothing is opened until Start.
func New(cfg *config.Config) *Daemon {
	return &Daemon{
		config: cfg,
		openTap: func(device string) (tapDevice, error) {
			t, err := link.OpenTap(device)
			if err != nil {
				return nil, err
			}
			if err := link.Configure(t, cfg.Link); err != nil {
				t.Close()
				return nil, err
			}
			return t, nil
		},
		listen: link.ListenUDP,
		log:    log.GetLogger().WithField("component", "daemon"),
	}
}

// Start opens the virtual interface, the outbound socket and the inbound
// socket in that order, then writes the PID file and starts the metrics
// server. Any failure closes what was opened and returns a
// *core.SetupError; the engine is never created.
func (d *Daemon) Start(ctx context.Context) error {
	if err := d.start(ctx); err != nil {
		d.closeDescriptors()
		d.removePIDFile()
		return err
	}
	return nil
}

func (d *Daemon) start(ctx context.Context) error {
	cfg := d.config
	d.log.WithField("device", cfg.Device).
		WithField("broadcast", cfg.BroadcastEndpoint().String()).
		Info("starting wfw")

	// 1. Virtual interface
	tap, err := d.openTap(cfg.Device)
	if err != nil {
		return err
	}
	d.tap = tap
	d.log.WithField("device", tap.Name()).Info("virtual interface opened")

	// 2. Outbound socket
	if d.out, err = d.listen(anyEndpoint, false); err != nil {
		return err
	}

	// 3. Inbound socket
	if d.in, err = d.listen(cfg.BroadcastEndpoint(), true); err != nil {
		return err
	}
	d.log.WithField("out", d.out.LocalAddr().String()).
		WithField("in", d.in.LocalAddr().String()).
		Info("transport sockets bound")

	if d.poller, err = link.NewPoller(); err != nil {
		return err
	}

	// 4. PID file
	if err := WritePIDFile(cfg.PIDFile); err != nil {
		return &core.SetupError{Op: "write pid file", Err: err}
	}
	d.pidWritten = cfg.PIDFile != ""

	// 5. Metrics server
	if cfg.Metrics.Enabled {
		d.metricsServer = metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		if err := d.metricsServer.Start(ctx); err != nil {
			d.metricsServer = nil
			return &core.SetupError{Op: "start metrics", Err: err}
		}
	}

	d.engine = bridge.New(d.tap, d.in, d.out, d.poller, bridge.Options{
		Broadcast:   cfg.BroadcastEndpoint(),
		Blacklisted: cfg.Policy.Blacklisted,
		Warnings: ratelimit.New(ratelimit.Config{
			MaxPerWindow: cfg.Log.WarnLimit,
			Window:       cfg.Log.WarnWindow,
		}),
	})
	return nil
}

// Run runs the engine until it fails, ctx is cancelled, or SIGINT/SIGTERM
// arrives, then tears everything down. It returns the engine's error.
func (d *Daemon) Run(ctx context.Context) error {
	if d.engine == nil {
		return fmt.Errorf("daemon not started")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d.sigChan = make(chan os.Signal, 1)
	signal.Notify(d.sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(d.sigChan)

	go func() {
		select {
		case sig := <-d.sigChan:
			d.log.WithField("signal", sig.String()).Info("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	err := d.engine.Run(ctx)
	d.Stop()
	return err
}

// Stop releases everything Start acquired. It is safe to call more than once.
func (d *Daemon) Stop() {
	if d.metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := d.metricsServer.Stop(shutdownCtx); err != nil {
			d.log.WithError(err).Error("error stopping metrics server")
		}
		cancel()
		d.metricsServer = nil
	}

	d.closeDescriptors()
	d.removePIDFile()
	d.log.Info("wfw stopped")
}

func (d *Daemon) closeDescriptors() {
	closeLogged := func(name string, c io.Closer) {
		if err := c.Close(); err != nil {
			d.log.WithError(err).Warnf("error closing %s", name)
		}
	}
	if d.in != nil {
		closeLogged("inbound socket", d.in)
		d.in = nil
	}
	if d.out != nil {
		closeLogged("outbound socket", d.out)
		d.out = nil
	}
	if d.tap != nil {
		closeLogged("virtual interface", d.tap)
		d.tap = nil
	}
	if d.poller != nil {
		closeLogged("poller", d.poller)
		d.poller = nil
	}
}

func (d *Daemon) removePIDFile() {
	if !d.pidWritten {
		return
	}
	if err := RemovePIDFile(d.config.PIDFile); err != nil {
		d.log.WithError(err).Error("error removing PID file")
	}
	d.pidWritten = false
}

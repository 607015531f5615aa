package cmd

import (
	"context"
	"fmt"

	"firestige.xyz/wfw/internal/config"
	"firestige.xyz/wfw/internal/core"
	"firestige.xyz/wfw/internal/daemon"
	"firestige.xyz/wfw/internal/log"
)

// bridgeService is the lifecycle runBridge drives; *daemon.Daemon in
// production.
type bridgeService interface {
	Start(ctx context.Context) error
	Run(ctx context.Context) error
}

var (
	daemonize   = daemon.Daemonize
	notifyReady = daemon.NotifyReady
	newService  = func(cfg *config.Config) bridgeService { return daemon.New(cfg) }
)

// runBridge loads the configuration, detaches unless foreground is set,
// then opens the descriptors and runs the bridge until it stops. In
// background mode the parent waits for the child's startup outcome and
// returns its setup error, so failures are reported on the terminal that
// started the bridge.
func runBridge(ctx context.Context, configPath string, foreground bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return &core.SetupError{Op: "load config " + configPath, Err: err}
	}

	if !foreground {
		parent, err := daemonize()
		if parent {
			if err != nil {
				return &core.SetupError{Op: "start in background", Err: err}
			}
			return nil
		}
		if err != nil {
			return &core.SetupError{Op: "daemonize", Err: err}
		}
	}

	svc, err := startService(ctx, cfg)
	if nerr := notifyReady(err); nerr != nil {
		log.GetLogger().WithError(nerr).Warn("failed to report startup outcome")
	}
	if err != nil {
		return err
	}
	defer log.Close()

	if err := svc.Run(ctx); err != nil {
		log.GetLogger().WithError(err).Error("bridge terminated")
		return fmt.Errorf("bridge terminated: %w", err)
	}
	return nil
}

func startService(ctx context.Context, cfg *config.Config) (bridgeService, error) {
	if err := log.Init(cfg.Log); err != nil {
		return nil, &core.SetupError{Op: "init logging", Err: err}
	}

	svc := newService(cfg)
	if err := svc.Start(ctx); err != nil {
		log.GetLogger().WithError(err).Error("startup failed")
		log.Close()
		return nil, err
	}
	return svc, nil
}

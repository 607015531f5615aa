package cmd

import (
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/spf13/cobra"

	"firestige.xyz/wfw/internal/config"
	"firestige.xyz/wfw/internal/daemon"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running bridge",
	Long: `Send SIGTERM to the bridge whose PID is recorded in the configured pidfile.

Examples:
  wfw stop
  wfw stop -c ./wfw.cfg`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(configFile)
		if err != nil {
			exitWithError("failed to load config", err)
		}
		if err := runStop(cfg.PIDFile, osSignaler{}, os.Stdout); err != nil {
			exitWithError("failed to stop bridge", err)
		}
	},
}

// signaler delivers a signal to a process.
type signaler interface {
	Signal(pid int, sig syscall.Signal) error
}

type osSignaler struct{}

func (osSignaler) Signal(pid int, sig syscall.Signal) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Signal(sig)
}

func runStop(pidFile string, s signaler, w io.Writer) error {
	if pidFile == "" {
		return fmt.Errorf("no pidfile configured")
	}
	pid, err := daemon.ReadPIDFile(pidFile)
	if err != nil {
		return fmt.Errorf("bridge not running: %w", err)
	}
	if err := s.Signal(pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal pid %d: %w", pid, err)
	}
	fmt.Fprintf(w, "✓ Sent SIGTERM to wfw (pid %d)\n", pid)
	return nil
}

package skininject

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DataDrake/cli-ng/v2/cmd"

	"github.com/long113112113/skininject/cli/log"
	"github.com/long113112113/skininject/internal/injection"
)

func init() {
	cmd.Register(&ProbeMonitor)
}

// ProbeMonitor starts the Game Monitor standalone, prints its state
// transitions, and stops it on Ctrl+C — a manual introspection tool,
// the same role "skininject chroot" would play if this module shelled
// directly into a build root the way solbuild's chroot does.
var ProbeMonitor = cmd.Sub{
	Name:  "probe-monitor",
	Short: "Start the game monitor standalone and print state transitions",
	Run:   ProbeMonitorRun,
}

// ProbeMonitorRun carries out the "probe-monitor" sub-command.
func ProbeMonitorRun(r *cmd.Root, _ *cmd.Sub) {
	rFlags := r.Flags.(*GlobalFlags) //nolint:forcetypeassert // guaranteed by callee.

	applyGlobalFlags(rFlags)

	cfg, err := injection.NewConfig()
	if err != nil {
		log.Panic("Failed to load configuration", "err", err)
	}

	mon := injection.NewMonitor(cfg.GameExecutable, cfg.AutoResumeTimeout())
	mon.Start()

	slog.Info("Monitor started, watching for target process", "executable", cfg.GameExecutable)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	prev := injection.MonitorStopped

	for {
		select {
		case <-sig:
			slog.Info("Stopping monitor")
			mon.Stop()

			return
		case <-ticker.C:
			if cur := mon.State(); cur != prev {
				slog.Info("Monitor state changed", "from", prev, "to", cur)
				prev = cur
			}
		}
	}
}

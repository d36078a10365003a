package skininject

import (
	"log/slog"

	"github.com/DataDrake/cli-ng/v2/cmd"

	"github.com/long113112113/skininject/cli/log"
	"github.com/long113112113/skininject/internal/injection"
)

func init() {
	cmd.Register(&Clean)
}

// Clean wipes the mods/overlay workspace tree without running the
// pipeline, for operator-triggered resets.
var Clean = cmd.Sub{
	Name:  "clean",
	Short: "Clear the injection workspace (mods/ and overlay/)",
	Run:   CleanRun,
}

// CleanRun carries out the "clean" sub-command.
func CleanRun(r *cmd.Root, _ *cmd.Sub) {
	rFlags := r.Flags.(*GlobalFlags) //nolint:forcetypeassert // guaranteed by callee.

	applyGlobalFlags(rFlags)

	cfg, err := injection.NewConfig()
	if err != nil {
		log.Panic("Failed to load configuration", "err", err)
	}

	stager := injection.NewStager(cfg.WorkspaceDir())

	if err := stager.CleanWorkspace(); err != nil {
		log.Panic("Failed to clean workspace", "err", err)
	}

	slog.Info("Workspace cleaned", "path", cfg.WorkspaceDir())
}

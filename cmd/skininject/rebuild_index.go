package skininject

import (
	"log/slog"
	"os"

	"github.com/DataDrake/cli-ng/v2/cmd"
	"github.com/cheggaaa/pb/v3"

	"github.com/long113112113/skininject/cli/log"
	"github.com/long113112113/skininject/internal/injection"
)

func init() {
	cmd.Register(&RebuildIndex)
}

// RebuildIndex rescans the archive tree and writes a fresh cache
// snapshot, with a progress bar over the champion directories scanned.
var RebuildIndex = cmd.Sub{
	Name:  "rebuild-index",
	Short: "Rescan the archive tree and rebuild the cached index",
	Run:   RebuildIndexRun,
}

// RebuildIndexRun carries out the "rebuild-index" sub-command.
func RebuildIndexRun(r *cmd.Root, _ *cmd.Sub) {
	rFlags := r.Flags.(*GlobalFlags) //nolint:forcetypeassert // guaranteed by callee.

	applyGlobalFlags(rFlags)

	cfg, err := injection.NewConfig()
	if err != nil {
		log.Panic("Failed to load configuration", "err", err)
	}

	root := cfg.ArchiveRoot()

	entries, err := os.ReadDir(root)
	if err != nil {
		log.Panic("Failed to read archive root", "root", root, "err", err)
	}

	bar := pb.StartNew(len(entries))
	defer bar.Finish()

	ix := injection.NewArchiveIndex()

	if err := ix.Build(root, func(done, _ int) { bar.SetCurrent(int64(done)) }); err != nil {
		log.Panic("Failed to build archive index", "err", err)
	}

	if err := ix.SaveCache(cfg.IndexCachePath()); err != nil {
		slog.Warn("Failed to persist index cache", "err", err)
	}

	slog.Info("Archive index rebuilt", "path", cfg.IndexCachePath())
}

package skininject

import (
	"context"
	"log/slog"
	"os"

	"github.com/DataDrake/cli-ng/v2/cmd"

	"github.com/long113112113/skininject/cli/log"
	"github.com/long113112113/skininject/internal/injection"
)

func init() {
	cmd.Register(&Inject)
}

// Inject drives a single manual injection, for testing the pipeline
// outside the normal LCU-driven flow.
var Inject = cmd.Sub{
	Name:  "inject",
	Short: "Inject a skin/chroma by id, bypassing the LCU event router",
	Flags: &InjectFlags{},
	Run:   InjectRun,
}

// InjectFlags are flags for the "inject" sub-command.
type InjectFlags struct {
	Champion int `short:"c" long:"champion" desc:"Champion id"`
	Skin     int `short:"s" long:"skin"     desc:"Skin id"`
	Chroma   int `short:"r" long:"chroma"   desc:"Chroma id, 0 for none"`
}

// InjectRun carries out the "inject" sub-command.
func InjectRun(r *cmd.Root, s *cmd.Sub) {
	rFlags := r.Flags.(*GlobalFlags) //nolint:forcetypeassert // guaranteed by callee.
	sFlags := s.Flags.(*InjectFlags) //nolint:forcetypeassert // guaranteed by callee.

	applyGlobalFlags(rFlags)

	cfg, err := injection.NewConfig()
	if err != nil {
		log.Panic("Failed to load configuration", "err", err)
	}

	ctrl := injection.NewController(cfg)

	intent := injection.SkinIntent{ChampionID: sFlags.Champion, SkinID: sFlags.Skin}
	if sFlags.Chroma != 0 {
		intent.ChromaID = &sFlags.Chroma
	}

	state := &injection.SharedState{LockedChampionID: sFlags.Champion}

	result, injectErr := ctrl.Inject(context.Background(), intent, state)

	if injectErr != nil {
		slog.Info("Injection finished", "result", result, "err", injectErr)
	} else {
		slog.Info("Injection finished", "result", result)
	}

	if result != injection.ResultOK && result != injection.ResultSkippedBaseSkin && result != injection.ResultSkippedOwned {
		os.Exit(1)
	}
}

func applyGlobalFlags(flags *GlobalFlags) {
	if flags.Debug {
		log.Level.Set(slog.LevelDebug)
	}

	if flags.NoColor {
		log.SetUncoloredLogger()
	}
}

package skininject

import (
	"fmt"

	"github.com/DataDrake/cli-ng/v2/cmd"

	"github.com/long113112113/skininject/cli/log"
	"github.com/long113112113/skininject/internal/injection"
)

func init() {
	cmd.Register(&ShowIndex)
}

// ShowIndex loads the cached archive index and lists the skin ids it
// knows for one champion. Without --champion it only reports that the
// cache loaded; it does not list every champion.
var ShowIndex = cmd.Sub{
	Name:  "show-index",
	Short: "Show the contents of the cached archive index",
	Flags: &ShowIndexFlags{},
	Run:   ShowIndexRun,
}

// ShowIndexFlags are flags for the "show-index" sub-command.
type ShowIndexFlags struct {
	Champion int `short:"c" long:"champion" desc:"Champion id whose skins to list, 0 to only check the cache loads"`
}

// ShowIndexRun carries out the "show-index" sub-command.
func ShowIndexRun(r *cmd.Root, s *cmd.Sub) {
	rFlags := r.Flags.(*GlobalFlags)    //nolint:forcetypeassert // guaranteed by callee.
	sFlags := s.Flags.(*ShowIndexFlags) //nolint:forcetypeassert // guaranteed by callee.

	applyGlobalFlags(rFlags)

	cfg, err := injection.NewConfig()
	if err != nil {
		log.Panic("Failed to load configuration", "err", err)
	}

	ix := injection.NewArchiveIndex()

	if err := ix.LoadCache(cfg.IndexCachePath()); err != nil {
		log.Panic("Failed to load index cache, run rebuild-index first", "err", err)
	}

	if sFlags.Champion != 0 {
		printChampion(ix, sFlags.Champion)
		return
	}

	fmt.Println("Index loaded; pass --champion to list its skins.")
}

func printChampion(ix *injection.ArchiveIndex, championID int) {
	skins := ix.ChampionSkins(championID)
	if len(skins) == 0 {
		fmt.Printf("champion %d: no known skins\n", championID)
		return
	}

	fmt.Printf("champion %d:\n", championID)

	for _, skinID := range skins {
		path, _ := ix.GetSkin(skinID)
		fmt.Printf("  skin %d -> %s\n", skinID, path)
	}
}

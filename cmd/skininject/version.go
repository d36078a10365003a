package skininject

import (
	"fmt"

	"github.com/DataDrake/cli-ng/v2/cmd"
)

// Version is the current public version of skininject.
const Version = "0.1.0"

func init() {
	cmd.Register(&VersionCmd)
}

// VersionCmd prints out the version of this executable.
var VersionCmd = cmd.Sub{
	Name:  "version",
	Short: "Print the skininject version and exit",
	Run:   VersionRun,
}

// VersionRun carries out the "version" sub-command.
func VersionRun(_ *cmd.Root, _ *cmd.Sub) {
	fmt.Printf("skininject version %v\n", Version)
}

package injection

import (
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"
)

// ToolSet is the set of external binaries/data files the overlay tool
// requires, and which of them (if any) are missing. Presence is checked
// once at startup; a non-empty Missing does not fail the call.
type ToolSet struct {
	MkOverlay  string
	RunOverlay string
	Missing    []string
}

// Available reports whether every required tool file was found.
func (t ToolSet) Available() bool {
	return len(t.Missing) == 0
}

// toolsManifest is the shape of tools.ini shipped beside the overlay
// tool, naming the binaries solbuild-style: structured metadata parsed
// with gopkg.in/ini.v1 rather than a hardcoded file list, so operators
// can repoint the engine at a renamed or repackaged build of the tool
// without a code change.
type toolsManifestSection struct {
	File string `ini:"file"`
}

// CheckTools parses tools.ini under toolsDir and stats every file it
// lists, returning the ToolSet with Missing populated for any entry
// that doesn't exist. A missing or unparsable manifest falls back to the
// default file names "mkoverlay" and "runoverlay" under toolsDir.
func CheckTools(toolsDir string) ToolSet {
	manifestPath := filepath.Join(toolsDir, "tools.ini")

	cfg, err := ini.Load(manifestPath)
	if err != nil {
		slog.Warn("Failed to load tools manifest, assuming defaults", "path", manifestPath, "err", err)

		return checkDefaultToolset(toolsDir)
	}

	ts := ToolSet{}

	mk := toolsManifestSection{}
	if sec, err := cfg.GetSection("mkoverlay"); err == nil {
		_ = sec.MapTo(&mk)
	}

	if mk.File == "" {
		mk.File = "mkoverlay"
	}

	ts.MkOverlay = filepath.Join(toolsDir, mk.File)

	ro := toolsManifestSection{}
	if sec, err := cfg.GetSection("runoverlay"); err == nil {
		_ = sec.MapTo(&ro)
	}

	if ro.File == "" {
		ro.File = "runoverlay"
	}

	ts.RunOverlay = filepath.Join(toolsDir, ro.File)

	for _, p := range []string{ts.MkOverlay, ts.RunOverlay} {
		if !fileExists(p) {
			ts.Missing = append(ts.Missing, p)
		}
	}

	return ts
}

func checkDefaultToolset(toolsDir string) ToolSet {
	ts := ToolSet{
		MkOverlay:  filepath.Join(toolsDir, "mkoverlay"),
		RunOverlay: filepath.Join(toolsDir, "runoverlay"),
	}

	for _, p := range []string{ts.MkOverlay, ts.RunOverlay} {
		if !fileExists(p) {
			ts.Missing = append(ts.Missing, p)
		}
	}

	return ts
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

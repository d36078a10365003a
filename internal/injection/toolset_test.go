package injection

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckToolsDefaultNames(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "mkoverlay"))
	writeFile(t, filepath.Join(dir, "runoverlay"))

	ts := CheckTools(dir)

	if !ts.Available() {
		t.Fatalf("expected tool set to be available, missing %v", ts.Missing)
	}

	if ts.MkOverlay != filepath.Join(dir, "mkoverlay") {
		t.Errorf("MkOverlay = %q", ts.MkOverlay)
	}
}

func TestCheckToolsManifestOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "mkoverlay-custom"))
	writeFile(t, filepath.Join(dir, "runoverlay"))

	manifest := `[mkoverlay]
file = mkoverlay-custom

[runoverlay]
file = runoverlay
`
	if err := os.WriteFile(filepath.Join(dir, "tools.ini"), []byte(manifest), 0o0644); err != nil {
		t.Fatal(err)
	}

	ts := CheckTools(dir)

	if !ts.Available() {
		t.Fatalf("expected available, missing %v", ts.Missing)
	}

	if ts.MkOverlay != filepath.Join(dir, "mkoverlay-custom") {
		t.Errorf("MkOverlay = %q, want mkoverlay-custom", ts.MkOverlay)
	}
}

func TestCheckToolsMissing(t *testing.T) {
	dir := t.TempDir()

	ts := CheckTools(dir)

	if ts.Available() {
		t.Errorf("expected unavailable tool set in empty dir")
	}

	if len(ts.Missing) != 2 {
		t.Errorf("Missing = %v, want 2 entries", ts.Missing)
	}
}

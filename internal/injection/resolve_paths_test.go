package injection

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveGameDirFromConfiguredPath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "League of Legends.exe"))

	cfg := &Config{LeaguePath: dir, GameExecutable: "League of Legends.exe", DataDir: t.TempDir()}

	got, err := ResolveGameDir(cfg)
	if err != nil {
		t.Fatalf("ResolveGameDir failed: %v", err)
	}

	if string(got) != dir {
		t.Errorf("got %q, want %q", got, dir)
	}
}

func TestResolveGameDirFromPersistedPath(t *testing.T) {
	dataDir := t.TempDir()
	gameDir := t.TempDir()
	writeFile(t, filepath.Join(gameDir, "League of Legends.exe"))

	cfg := &Config{GameExecutable: "League of Legends.exe", DataDir: dataDir}

	if err := SaveDiscoveredGameDir(cfg, gameDir); err != nil {
		t.Fatal(err)
	}

	got, err := ResolveGameDir(cfg)
	if err != nil {
		t.Fatalf("ResolveGameDir failed: %v", err)
	}

	if string(got) != gameDir {
		t.Errorf("got %q, want %q", got, gameDir)
	}
}

func TestResolveGameDirFailsCleanly(t *testing.T) {
	cfg := &Config{GameExecutable: "no-such-game.exe", ClientProcessName: "no-such-client.exe", DataDir: t.TempDir()}

	_, err := ResolveGameDir(cfg)
	if err != ErrNoGameDir {
		t.Errorf("err = %v, want ErrNoGameDir", err)
	}
}

func TestValidGameDirRejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "League of Legends.exe"), 0o0755); err != nil {
		t.Fatal(err)
	}

	if validGameDir(dir, "League of Legends.exe") {
		t.Errorf("expected validGameDir to reject a directory masquerading as the executable")
	}
}

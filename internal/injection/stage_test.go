package injection

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func writeTestZip(t *testing.T, path string, files map[string]string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o0755); err != nil {
		t.Fatal(err)
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}

		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}

	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func newTestStager(t *testing.T) *Stager {
	t.Helper()

	workspace := t.TempDir()
	s := NewStager(workspace)

	if err := s.CleanWorkspace(); err != nil {
		t.Fatal(err)
	}

	return s
}

func TestStagerExtract(t *testing.T) {
	s := newTestStager(t)

	archivePath := filepath.Join(t.TempDir(), "99021.zip")
	writeTestZip(t, archivePath, map[string]string{"WAD/99021.wad": "data"})

	folder, err := s.Extract(archivePath)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if folder != "99021" {
		t.Errorf("folder = %q, want 99021", folder)
	}

	if _, err := os.Stat(filepath.Join(s.modsDir(), "99021", "WAD", "99021.wad")); err != nil {
		t.Errorf("expected extracted file to exist: %v", err)
	}
}

func TestStagerExtractCollisionSameContent(t *testing.T) {
	s := newTestStager(t)

	archivePath := filepath.Join(t.TempDir(), "99021.zip")
	writeTestZip(t, archivePath, map[string]string{"WAD/99021.wad": "data"})

	if _, err := s.Extract(archivePath); err != nil {
		t.Fatal(err)
	}

	folder, err := s.Extract(archivePath)
	if err != nil {
		t.Fatalf("second Extract failed: %v", err)
	}

	if folder != "99021" {
		t.Errorf("folder = %q, want reused name 99021", folder)
	}
}

func TestStagerExtractCollisionDifferentContent(t *testing.T) {
	s := newTestStager(t)

	dir := t.TempDir()
	first := filepath.Join(dir, "mod.zip")
	writeTestZip(t, first, map[string]string{"a.txt": "one"})

	folder1, err := s.Extract(first)
	if err != nil {
		t.Fatal(err)
	}

	second := filepath.Join(dir, "mod2", "mod.zip")
	writeTestZip(t, second, map[string]string{"a.txt": "two-different-content"})

	folder2, err := s.Extract(second)
	if err != nil {
		t.Fatal(err)
	}

	if folder1 == folder2 {
		t.Errorf("expected distinct folder names for colliding stems with different content, got %q twice", folder1)
	}
}

func TestStagerCleanWorkspace(t *testing.T) {
	s := newTestStager(t)

	stale := filepath.Join(s.modsDir(), "stale", "file.txt")
	if err := os.MkdirAll(filepath.Dir(stale), 0o0755); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(stale, []byte("x"), 0o0644); err != nil {
		t.Fatal(err)
	}

	if err := s.CleanWorkspace(); err != nil {
		t.Fatalf("CleanWorkspace failed: %v", err)
	}

	entries, err := os.ReadDir(s.modsDir())
	if err != nil {
		t.Fatal(err)
	}

	if len(entries) != 0 {
		t.Errorf("expected empty mods dir after CleanWorkspace, got %v", entries)
	}
}

func TestStagerCopyTree(t *testing.T) {
	s := newTestStager(t)

	source := filepath.Join(t.TempDir(), "custommod")
	if err := os.MkdirAll(source, 0o0755); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(source, "data.txt"), []byte("hi"), 0o0644); err != nil {
		t.Fatal(err)
	}

	folder, err := s.CopyTree(source)
	if err != nil {
		t.Fatalf("CopyTree failed: %v", err)
	}

	if folder != "custommod" {
		t.Errorf("folder = %q, want custommod", folder)
	}

	if _, err := os.Stat(filepath.Join(s.modsDir(), "custommod", "data.txt")); err != nil {
		t.Errorf("expected copied file to exist: %v", err)
	}
}

func TestStagerStageRequestNoModsStaged(t *testing.T) {
	s := newTestStager(t)

	missing := filepath.Join(t.TempDir(), "missing.zip")

	_, err := s.StageRequest(ModRequest{Skin: &missing})
	if err != ErrNoModsStaged {
		t.Errorf("err = %v, want ErrNoModsStaged", err)
	}
}

func TestStagerStageRequestPartialFailure(t *testing.T) {
	s := newTestStager(t)

	dir := t.TempDir()
	good := filepath.Join(dir, "good.zip")
	writeTestZip(t, good, map[string]string{"a.txt": "ok"})

	missing := filepath.Join(dir, "missing.zip")

	folders, err := s.StageRequest(ModRequest{
		Skin:   &good,
		Extras: []ExtraMod{{Category: CategoryMap, ArchivePath: missing}},
	})
	if err != nil {
		t.Fatalf("StageRequest failed: %v", err)
	}

	if len(folders) != 1 || folders[0] != "good" {
		t.Errorf("folders = %v, want [good]", folders)
	}
}

package injection

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcutil/base58"
	"github.com/getsolus/libosdev/disk"
	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

// modManifest is the optional mod.yaml sitting beside a custom mod's
// archive or directory, parsed purely for logging — mirrors
// builder/pkg.go's YmlPackage parse of package.yml.
type modManifest struct {
	Name    string `yaml:"name"`
	Author  string `yaml:"author"`
	Version string `yaml:"version"`
}

// Stager is the Mod Stager (component D): it clears the workspace and
// extracts/copies archives into named mod folders.
type Stager struct {
	Workspace string // <data>/injection
}

// NewStager returns a Stager rooted at workspace.
func NewStager(workspace string) *Stager {
	return &Stager{Workspace: workspace}
}

func (s *Stager) modsDir() string    { return filepath.Join(s.Workspace, "mods") }
func (s *Stager) overlayDir() string { return filepath.Join(s.Workspace, "overlay") }

// CleanWorkspace deletes mods/ and overlay/ contents recursively, then
// recreates the empty directories. Tolerates files locked by a
// previous run: failures are logged and skipped rather than propagated.
func (s *Stager) CleanWorkspace() error {
	for _, dir := range []string{s.modsDir(), s.overlayDir()} {
		entries, err := os.ReadDir(dir)
		if err != nil && !os.IsNotExist(err) {
			slog.Warn("Failed to list workspace directory for cleanup", "dir", dir, "err", err)
			continue
		}

		for _, e := range entries {
			p := filepath.Join(dir, e.Name())
			if err := os.RemoveAll(p); err != nil {
				slog.Warn("Failed to remove stale workspace entry, continuing best-effort", "path", p, "err", err)
			}
		}

		if err := os.MkdirAll(dir, 0o0755); err != nil {
			return fmt.Errorf("failed to recreate workspace directory %s: %w", dir, err)
		}
	}

	return nil
}

// Extract opens archivePath (zip or fantome, same container format)
// with archive/zip regardless of extension, and expands it into a
// named mod folder under mods/. On a name collision with different
// content (by blake3 hash), the new folder is suffixed with a
// base58-encoded hash fragment instead of clobbering the first mod.
func (s *Stager) Extract(archivePath string) (string, error) {
	stem := strings.TrimSuffix(filepath.Base(archivePath), filepath.Ext(archivePath))

	folderName, err := s.reserveFolderName(stem, archivePath)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(s.modsDir(), folderName)
	if err := os.MkdirAll(dest, 0o0755); err != nil {
		return "", &StagingError{ArchivePath: archivePath, Err: err}
	}

	if err := extractZip(archivePath, dest); err != nil {
		return "", &StagingError{ArchivePath: archivePath, Err: err}
	}

	logManifestIfPresent(filepath.Dir(archivePath))

	return folderName, nil
}

// reserveFolderName implements the collision policy of spec.md §4.3
// ("mod_folder_name is the archive stem ...; if a collision occurs, the
// existing folder is removed first") with one refinement: if the
// colliding folder holds content with a different blake3 hash than the
// incoming archive, the new folder is suffixed with a base58-encoded
// hash fragment instead of destroying the first mod outright. Same
// name + same content is a pure no-op reuse.
func (s *Stager) reserveFolderName(stem, archivePath string) (string, error) {
	dest := filepath.Join(s.modsDir(), stem)
	if !dirExists(dest) {
		return stem, nil
	}

	incomingHash, err := hashFile(archivePath)
	if err != nil {
		// Can't compare, fall back to spec default: remove existing first.
		if err := os.RemoveAll(dest); err != nil {
			return "", err
		}

		return stem, nil
	}

	if marker, ok := readHashMarker(dest); ok {
		if marker == incomingHash {
			return stem, nil
		}

		suffixed := fmt.Sprintf("%s-%s", stem, incomingHash[:8])
		slog.Warn("Mod folder name collision with different content, disambiguating",
			"name", stem, "suffixed", suffixed)

		return suffixed, nil
	}

	// No hash marker recorded (pre-existing or foreign folder): spec
	// default applies.
	if err := os.RemoveAll(dest); err != nil {
		return "", err
	}

	return stem, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return base58.Encode(h.Sum(nil)), nil
}

const hashMarkerFile = ".skininject-hash"

func readHashMarker(dest string) (string, bool) {
	b, err := os.ReadFile(filepath.Join(dest, hashMarkerFile))
	if err != nil {
		return "", false
	}

	return strings.TrimSpace(string(b)), true
}

func writeHashMarker(dest, hash string) {
	_ = os.WriteFile(filepath.Join(dest, hashMarkerFile), []byte(hash), 0o0644)
}

func extractZip(archivePath, dest string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		target := filepath.Join(dest, f.Name)

		if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) && target != filepath.Clean(dest) {
			return fmt.Errorf("archive entry escapes destination: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o0755); err != nil {
				return err
			}

			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o0755); err != nil {
			return err
		}

		if err := extractZipEntry(f, target); err != nil {
			return err
		}
	}

	hash, err := hashFile(archivePath)
	if err == nil {
		writeHashMarker(dest, hash)
	}

	return nil
}

func extractZipEntry(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)

	return err
}

func logManifestIfPresent(sourceDir string) {
	b, err := os.ReadFile(filepath.Join(sourceDir, "mod.yaml"))
	if err != nil {
		return
	}

	var m modManifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		slog.Debug("Found mod.yaml but failed to parse it", "dir", sourceDir, "err", err)
		return
	}

	slog.Debug("Staging mod with manifest", "name", m.Name, "author", m.Author, "version", m.Version)
}

// CopyTree recursively copies sourceDir into a named mod folder under
// mods/, for directory-based custom mods. Backed by libosdev/disk the
// same way builder/copy.go's CopyAll backs asset copying for solbuild.
func (s *Stager) CopyTree(sourceDir string) (string, error) {
	stem := filepath.Base(strings.TrimRight(sourceDir, string(os.PathSeparator)))
	dest := filepath.Join(s.modsDir(), stem)

	if dirExists(dest) {
		if err := os.RemoveAll(dest); err != nil {
			return "", &StagingError{ArchivePath: sourceDir, Err: err}
		}
	}

	if err := copyTreeRecursive(sourceDir, dest); err != nil {
		return "", &StagingError{ArchivePath: sourceDir, Err: err}
	}

	logManifestIfPresent(sourceDir)

	return stem, nil
}

func copyTreeRecursive(source, dest string) error {
	entries, err := os.ReadDir(source)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dest, 0o0755); err != nil {
		return err
	}

	for _, e := range entries {
		srcPath := filepath.Join(source, e.Name())
		dstPath := filepath.Join(dest, e.Name())

		if e.IsDir() {
			if err := copyTreeRecursive(srcPath, dstPath); err != nil {
				return err
			}

			continue
		}

		if err := disk.CopyFile(srcPath, dstPath); err != nil {
			return err
		}
	}

	return nil
}

func dirExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}

// StageRequest stages, in order, the base skin archive (if any), then
// each extra (a directory is copied with CopyTree, anything else is
// extracted) in the order given by req.Extras which the caller must
// have already arranged as custom, map, font, announcer, other per
// spec.md §4.3. Any single failure is recorded and skipped; the
// pipeline proceeds if at least one mod staged.
func (s *Stager) StageRequest(req ModRequest) ([]string, error) {
	var (
		folders []string
		errs    []error
	)

	if req.Skin != nil {
		name, err := s.Extract(*req.Skin)
		if err != nil {
			errs = append(errs, err)
		} else {
			folders = append(folders, name)
		}
	}

	for _, extra := range req.Extras {
		stage := s.Extract
		if dirExists(extra.ArchivePath) {
			stage = s.CopyTree
		}

		name, err := stage(extra.ArchivePath)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		folders = append(folders, name)
	}

	for _, e := range errs {
		slog.Warn("Skipping mod that failed to stage", "err", e)
	}

	if len(folders) == 0 {
		return nil, ErrNoModsStaged
	}

	return folders, nil
}

package injection

import (
	"encoding/gob"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/ulikunitz/xz"
)

// archiveExtensions are the two interchangeable extensions an archive
// may carry, tried in this order everywhere the tree is scanned.
var archiveExtensions = []string{"zip", "fantome"}

// archiveSnapshot is the gob-serializable payload cached to disk,
// compressed with xz the same way builder/manager.go decodes a remote
// eopkg-index.xml.xz — here used for a local warm-start cache instead.
type archiveSnapshot struct {
	Skins   map[int]string
	Chromas map[int]string
	Champs  map[int]map[int]struct{}
}

// ArchiveIndex is the cached mapping from (champion_id, skin_id,
// chroma_id) to archive path. Build is single-threaded; reads are
// concurrent and lock-free beyond the RWMutex's read-lock fast path.
type ArchiveIndex struct {
	mu      sync.RWMutex
	skins   map[int]string
	chromas map[int]string
	champs  map[int]map[int]struct{}
}

// NewArchiveIndex returns an empty index. Callers must call Build (or
// LoadCache) before use.
func NewArchiveIndex() *ArchiveIndex {
	return &ArchiveIndex{
		skins:   map[int]string{},
		chromas: map[int]string{},
		champs:  map[int]map[int]struct{}{},
	}
}

// Build scans root, organized as
// <root>/<champion_id>/<skin_id>/<skin_id>.{zip,fantome} and
// <root>/<champion_id>/<skin_id>/<chroma_id>/<chroma_id>.{zip,fantome},
// and swaps in a freshly built set of maps under a single short write
// lock. Readers never observe a partially built index.
//
// progress, if non-nil, is called after each champion directory is
// scanned with (done, total) — the attachment point for the CLI's
// cheggaaa/pb progress bar.
func (ix *ArchiveIndex) Build(root string, progress func(done, total int)) error {
	champDirs, err := os.ReadDir(root)
	if err != nil {
		return err
	}

	skins := map[int]string{}
	chromas := map[int]string{}
	champs := map[int]map[int]struct{}{}

	total := len(champDirs)

	for i, cd := range champDirs {
		if !cd.IsDir() {
			if progress != nil {
				progress(i+1, total)
			}

			continue
		}

		champID, err := strconv.Atoi(cd.Name())
		if err != nil {
			if progress != nil {
				progress(i+1, total)
			}

			continue
		}

		scanChampionDir(filepath.Join(root, cd.Name()), champID, skins, chromas, champs)

		if progress != nil {
			progress(i+1, total)
		}
	}

	ix.mu.Lock()
	ix.skins = skins
	ix.chromas = chromas
	ix.champs = champs
	ix.mu.Unlock()

	return nil
}

func scanChampionDir(dir string, champID int, skins, chromas map[int]string, champs map[int]map[int]struct{}) {
	skinDirs, err := os.ReadDir(dir)
	if err != nil {
		slog.Warn("Failed to scan champion directory", "dir", dir, "err", err)
		return
	}

	for _, sd := range skinDirs {
		if !sd.IsDir() {
			continue
		}

		skinID, err := strconv.Atoi(sd.Name())
		if err != nil {
			continue
		}

		skinDir := filepath.Join(dir, sd.Name())

		if path, ok := findArchive(skinDir, sd.Name()); ok {
			skins[skinID] = path

			if champs[champID] == nil {
				champs[champID] = map[int]struct{}{}
			}

			champs[champID][skinID] = struct{}{}
		}

		chromaDirs, err := os.ReadDir(skinDir)
		if err != nil {
			continue
		}

		for _, chd := range chromaDirs {
			if !chd.IsDir() {
				continue
			}

			chromaID, err := strconv.Atoi(chd.Name())
			if err != nil {
				continue
			}

			chromaDir := filepath.Join(skinDir, chd.Name())

			if path, ok := findArchive(chromaDir, chd.Name()); ok {
				chromas[chromaID] = path
			}
		}
	}
}

// findArchive looks for <dir>/<stem>.{zip,fantome} in that order.
func findArchive(dir, stem string) (string, bool) {
	for _, ext := range archiveExtensions {
		p := filepath.Join(dir, stem+"."+ext)
		if fileExists(p) {
			return p, true
		}
	}

	return "", false
}

// GetSkin looks up a skin archive path by id.
func (ix *ArchiveIndex) GetSkin(id int) (string, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	p, ok := ix.skins[id]

	return p, ok
}

// GetChroma looks up a chroma archive path by id.
func (ix *ArchiveIndex) GetChroma(id int) (string, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	p, ok := ix.chromas[id]

	return p, ok
}

// ChampionSkins returns the known skin ids for a champion, sorted for
// deterministic output.
func (ix *ArchiveIndex) ChampionSkins(champID int) []int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	set, ok := ix.champs[champID]
	if !ok {
		return nil
	}

	out := make([]int, 0, len(set))
	for id := range set {
		out = append(out, id)
	}

	sort.Ints(out)

	return out
}

// Invalidate clears the index. Readers observe an empty index until
// the next Build/Refresh.
func (ix *ArchiveIndex) Invalidate() {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.skins = map[int]string{}
	ix.chromas = map[int]string{}
	ix.champs = map[int]map[int]struct{}{}
}

// Refresh rebuilds the index from root, without a progress callback.
func (ix *ArchiveIndex) Refresh(root string) error {
	return ix.Build(root, nil)
}

// SaveCache writes an xz-compressed gob snapshot of the current index
// to path, for a fast warm start on the next run.
func (ix *ArchiveIndex) SaveCache(path string) error {
	ix.mu.RLock()
	snap := archiveSnapshot{Skins: ix.skins, Chromas: ix.chromas, Champs: ix.champs}
	ix.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	xw, err := xz.NewWriter(f)
	if err != nil {
		return err
	}

	if err := gob.NewEncoder(xw).Encode(snap); err != nil {
		xw.Close()
		return err
	}

	return xw.Close()
}

// LoadCache loads a previously saved snapshot, replacing the current
// index contents in a single write-locked swap. Returns an error if
// the cache is absent or unreadable; callers should fall back to Build.
func (ix *ArchiveIndex) LoadCache(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	xr, err := xz.NewReader(f)
	if err != nil {
		return err
	}

	var snap archiveSnapshot
	if err := gob.NewDecoder(xr).Decode(&snap); err != nil {
		return err
	}

	ix.mu.Lock()
	ix.skins = snap.Skins
	ix.chromas = snap.Chromas
	ix.champs = snap.Champs
	ix.mu.Unlock()

	return nil
}

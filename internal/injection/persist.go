package injection

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// discoveredPath is the persisted record of a successfully validated
// game directory, so later runs skip process-discovery. Mirrors the
// shape of Config but is written into DataDir, never into the system
// config paths the operator owns.
type discoveredPath struct {
	GameDir string `toml:"game_dir"`
}

func discoveredPathFile(cfg *Config) string {
	return filepath.Join(cfg.DataDir, "discovered_path.conf")
}

// SaveDiscoveredGameDir persists a validated game directory. Never
// called with an invalid path; ResolveGameDir validates before calling.
func SaveDiscoveredGameDir(cfg *Config, dir string) error {
	if err := os.MkdirAll(cfg.DataDir, 0o0755); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w", cfg.DataDir, err)
	}

	f, err := os.Create(discoveredPathFile(cfg))
	if err != nil {
		return err
	}
	defer f.Close()

	enc := toml.NewEncoder(f)

	return enc.Encode(discoveredPath{GameDir: dir})
}

// LoadDiscoveredGameDir reads back a previously persisted game
// directory. Returns "" if none has been recorded.
func LoadDiscoveredGameDir(cfg *Config) string {
	f, err := os.Open(discoveredPathFile(cfg))
	if err != nil {
		return ""
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return ""
	}

	var dp discoveredPath
	if _, err := toml.Decode(string(b), &dp); err != nil {
		return ""
	}

	return dp.GameDir
}

// HistoricSkins is the per-champion record of the last injected skin
// id, consumed by higher layers for "replay last skin" UI features.
type HistoricSkins struct {
	// LastSkinByChampion maps champion id to the last injected skin id.
	LastSkinByChampion map[int]int `toml:"last_skin_by_champion"`
}

func historicFile(cfg *Config) string {
	return filepath.Join(cfg.DataDir, "historic_skins.conf")
}

// LoadHistoricSkins reads the historic-skin record, returning an empty
// value (never an error) if none exists yet.
func LoadHistoricSkins(cfg *Config) *HistoricSkins {
	h := &HistoricSkins{LastSkinByChampion: map[int]int{}}

	f, err := os.Open(historicFile(cfg))
	if err != nil {
		return h
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return h
	}

	_, _ = toml.Decode(string(b), h)

	if h.LastSkinByChampion == nil {
		h.LastSkinByChampion = map[int]int{}
	}

	return h
}

// RecordInjection updates the historic-skin file after a successful
// injection. Never called for a skipped or failed request.
func RecordInjection(cfg *Config, championID, skinID int) error {
	h := LoadHistoricSkins(cfg)
	h.LastSkinByChampion[championID] = skinID

	if err := os.MkdirAll(cfg.DataDir, 0o0755); err != nil {
		return err
	}

	f, err := os.Create(historicFile(cfg))
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(h)
}

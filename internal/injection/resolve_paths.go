package injection

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// GameDirectory is an absolute path containing the game executable.
type GameDirectory string

// ResolveGameDir implements spec.md §4.1: check the configured path,
// fall back to scanning /proc for the running client process and
// deriving the game directory from its executable path, and persist
// the discovered path on success.
//
// The /proc walk is grounded on builder/util.go's MurderDeathKill,
// which already scans /proc/*/cwd looking for processes rooted under a
// given directory; here the same directory walk instead follows
// /proc/*/exe looking for the configured client process name.
func ResolveGameDir(cfg *Config) (GameDirectory, error) {
	if cfg.LeaguePath != "" && validGameDir(cfg.LeaguePath, cfg.GameExecutable) {
		return GameDirectory(cfg.LeaguePath), nil
	}

	if persisted := LoadDiscoveredGameDir(cfg); persisted != "" && validGameDir(persisted, cfg.GameExecutable) {
		return GameDirectory(persisted), nil
	}

	clientExe, err := findProcessExe(cfg.ClientProcessName)
	if err != nil {
		slog.Debug("Client process not found during discovery", "name", cfg.ClientProcessName, "err", err)
		return "", ErrNoGameDir
	}

	for _, dir := range candidateGameDirs(clientExe) {
		if validGameDir(dir, cfg.GameExecutable) {
			if err := SaveDiscoveredGameDir(cfg, dir); err != nil {
				slog.Warn("Failed to persist discovered game directory", "dir", dir, "err", err)
			}

			return GameDirectory(dir), nil
		}
	}

	return "", ErrNoGameDir
}

// candidateGameDirs enumerates the two known installer layouts: a
// sibling "Game" directory next to the client, or an ascent to the
// installer root followed by the same "Game" segment. The first
// layout whose executable exists wins.
func candidateGameDirs(clientExePath string) []string {
	clientDir := filepath.Dir(clientExePath)

	return []string{
		filepath.Join(clientDir, "Game"),
		filepath.Join(filepath.Dir(clientDir), "Game"),
	}
}

func validGameDir(dir, executable string) bool {
	if dir == "" {
		return false
	}

	st, err := os.Stat(filepath.Join(dir, executable))

	return err == nil && !st.IsDir()
}

// findProcessExe scans /proc for a running process whose exe basename
// matches name, returning the resolved exe path of the first match.
func findProcessExe(name string) (string, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return "", err
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}

		if _, err := strconv.Atoi(e.Name()); err != nil {
			continue
		}

		exePath, err := os.Readlink(filepath.Join("/proc", e.Name(), "exe"))
		if err != nil {
			continue
		}

		if filepath.Base(exePath) == name {
			return exePath, nil
		}
	}

	return "", os.ErrNotExist
}

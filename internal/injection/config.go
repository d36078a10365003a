package injection

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config defines the global defaults for the injection engine, loaded
// the same way solbuild loads its own Config: a layered glob of *.conf
// files under ConfigPaths, applied in reverse precedence so the most
// specific path wins.
type Config struct {
	LeaguePath               string  `toml:"league_path"`
	InjectionThreshold       float64 `toml:"injection_threshold"`
	MonitorAutoResumeTimeout float64 `toml:"monitor_auto_resume_timeout"`
	DataDir                  string  `toml:"data_dir"`
	ToolsDir                 string  `toml:"tools_dir"`
	GameExecutable           string  `toml:"game_executable"`
	ClientProcessName        string  `toml:"client_process_name"`
}

var (
	// ConfigPaths is the set of locations searched for valid
	// configuration files, most specific first.
	ConfigPaths = []string{
		"/etc/skininject",
		"/usr/share/skininject",
	}

	// ConfigSuffix is the suffix a file must have to be glob loaded.
	ConfigSuffix = ".conf"
)

// NewConfig reads all vendor then system config files, so a system file
// overrides a vendor one, applying sane defaults first so a missing or
// partial config still yields a usable value.
func NewConfig() (*Config, error) {
	config := &Config{
		InjectionThreshold:       0.5,
		MonitorAutoResumeTimeout: 60,
		DataDir:                  "/var/lib/skininject",
		ToolsDir:                 "/usr/share/skininject/tools",
		GameExecutable:           "League of Legends.exe",
		ClientProcessName:        "LeagueClientUx.exe",
	}

	for i := len(ConfigPaths) - 1; i >= 0; i-- {
		globPat := filepath.Join(ConfigPaths[i], fmt.Sprintf("*%s", ConfigSuffix))

		configs, _ := filepath.Glob(globPat)

		for _, p := range configs {
			fi, err := os.Open(p)
			if err != nil {
				return nil, err
			}

			var b []byte

			if b, err = io.ReadAll(fi); err != nil {
				fi.Close()
				return nil, err
			}

			fi.Close()

			if _, err = toml.Decode(string(b), config); err != nil {
				return nil, err
			}
		}
	}

	config.clamp()

	return config, nil
}

// clamp enforces the ranges spec.md §6 requires: threshold is never
// negative, the auto-resume timeout is clamped to [1, 180] seconds.
func (c *Config) clamp() {
	if c.InjectionThreshold < 0 {
		c.InjectionThreshold = 0
	}

	if c.MonitorAutoResumeTimeout < 1 {
		c.MonitorAutoResumeTimeout = 1
	}

	if c.MonitorAutoResumeTimeout > 180 {
		c.MonitorAutoResumeTimeout = 180
	}
}

// Threshold converts the in-memory cooldown threshold into a
// time.Duration. It is not itself re-read from disk — callers that
// need the latest operator-edited value call Controller.RefreshThreshold
// first, the way every original injection entry point calls
// refresh_injection_threshold() before checking the cooldown.
func (c *Config) Threshold() time.Duration {
	return time.Duration(c.InjectionThreshold * float64(time.Second))
}

// AutoResumeTimeout returns the monitor's wall-clock suspension bound.
func (c *Config) AutoResumeTimeout() time.Duration {
	return time.Duration(c.MonitorAutoResumeTimeout * float64(time.Second))
}

// WorkspaceDir is the root of the mods/overlay scratch tree.
func (c *Config) WorkspaceDir() string {
	return filepath.Join(c.DataDir, "injection")
}

// ModsDir is the directory staged mod folders live under.
func (c *Config) ModsDir() string {
	return filepath.Join(c.WorkspaceDir(), "mods")
}

// OverlayDir is the scratch area owned by the external tool.
func (c *Config) OverlayDir() string {
	return filepath.Join(c.WorkspaceDir(), "overlay")
}

// ArchiveRoot is the root of the skin archive tree.
func (c *Config) ArchiveRoot() string {
	return filepath.Join(c.DataDir, "skins")
}

// IndexCachePath is where the archive index's xz snapshot is stored.
func (c *Config) IndexCachePath() string {
	return filepath.Join(c.WorkspaceDir(), "index.cache.xz")
}

// RefreshThreshold re-reads only injection_threshold from the layered
// config files, leaving every other field (data dir, tool dir, league
// path, ...) untouched. This mirrors the original threshold manager's
// refresh(), which re-reads a single config key rather than the whole
// config, so a config edit takes effect on the very next injection
// attempt without disturbing already-resolved paths.
func (c *Config) RefreshThreshold() {
	probe := struct {
		InjectionThreshold float64 `toml:"injection_threshold"`
	}{InjectionThreshold: c.InjectionThreshold}

	for i := len(ConfigPaths) - 1; i >= 0; i-- {
		globPat := filepath.Join(ConfigPaths[i], fmt.Sprintf("*%s", ConfigSuffix))

		configs, _ := filepath.Glob(globPat)

		for _, p := range configs {
			b, err := os.ReadFile(p)
			if err != nil {
				continue
			}

			if _, err := toml.Decode(string(b), &probe); err != nil {
				slog.Debug("Failed to parse config file while refreshing threshold", "path", p, "err", err)
			}
		}
	}

	if probe.InjectionThreshold < 0 {
		probe.InjectionThreshold = 0
	}

	if probe.InjectionThreshold != c.InjectionThreshold {
		slog.Info("Injection threshold reloaded", "threshold_s", probe.InjectionThreshold)
	}

	c.InjectionThreshold = probe.InjectionThreshold
}

package injection

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// OverlayRun is the transient state of one pipeline execution. Created
// per request and dropped after completion; never reused across calls.
type OverlayRun struct {
	ModFolderNames []string
	MkOverlayMS    int64
	StartTS        time.Time
}

// OverlayPipeline is component G: it sequences the mod stager, two
// phases of the external tool, and the monitor's resume, per spec.md
// §4.6.
type OverlayPipeline struct {
	Supervisor Supervisor
	ToolSet    ToolSet
	GameDir    GameDirectory
	Workspace  string // <data>/injection
	MkTimeout  time.Duration
}

// NewOverlayPipeline returns a pipeline bound to the given tool set,
// game directory and workspace.
func NewOverlayPipeline(sup Supervisor, tools ToolSet, gameDir GameDirectory, workspace string, mkTimeout time.Duration) *OverlayPipeline {
	return &OverlayPipeline{Supervisor: sup, ToolSet: tools, GameDir: gameDir, Workspace: workspace, MkTimeout: mkTimeout}
}

func (p *OverlayPipeline) modsDir() string    { return filepath.Join(p.Workspace, "mods") }
func (p *OverlayPipeline) overlayDir() string { return filepath.Join(p.Workspace, "overlay") }

// MkRunOverlay drives mkoverlay then runoverlay for the given staged mod
// folders, resuming monitor as soon as runoverlay is spawned, and
// terminating runoverlay once gameEnded reports true.
func (p *OverlayPipeline) MkRunOverlay(ctx context.Context, modFolders []string, gameEnded func() bool, monitor *Monitor) (*OverlayRun, error) {
	if !p.ToolSet.Available() {
		return nil, ErrToolsMissing
	}

	if p.GameDir == "" {
		return nil, ErrNoGameDir
	}

	run := &OverlayRun{ModFolderNames: modFolders, StartTS: time.Now()}

	if err := p.runMkOverlay(ctx, run); err != nil {
		return nil, err
	}

	if err := p.verifyMkOverlayOutput(); err != nil {
		return nil, err
	}

	return run, p.runRunOverlay(ctx, run, gameEnded, monitor)
}

func (p *OverlayPipeline) runMkOverlay(ctx context.Context, run *OverlayRun) error {
	args := []string{
		p.modsDir(),
		p.overlayDir(),
		"--game:" + string(p.GameDir),
		"--mods:" + strings.Join(run.ModFolderNames, "/"),
		"--noTFT",
		"--ignoreConflict",
	}

	start := time.Now()

	child, err := p.Supervisor.Spawn(ctx, p.ToolSet.MkOverlay, args, SpawnOptions{CaptureOutput: true})
	if err != nil {
		return &ToolFailure{Phase: ToolPhaseMkOverlay, ExitCode: -1}
	}

	result, err := p.Supervisor.Wait(child, p.MkTimeout)

	run.MkOverlayMS = time.Since(start).Milliseconds()

	if err != nil {
		return &ToolFailure{Phase: ToolPhaseMkOverlay, ExitCode: -1}
	}

	switch result.Kind {
	case ExitTimedOut:
		slog.Warn("mkoverlay timed out", "stdout", child.Stdout(), "stderr", child.Stderr())
		return &ToolFailure{Phase: ToolPhaseMkOverlay, TimedOut: true}
	case ExitExited:
		if result.Code != 0 {
			slog.Warn("mkoverlay exited non-zero", "code", result.Code, "stderr", child.Stderr())
			return &ToolFailure{Phase: ToolPhaseMkOverlay, ExitCode: result.Code}
		}
	}

	return nil
}

// verifyMkOverlayOutput checks for the config file mkoverlay must have
// produced on success, per spec.md §6's exit-code-or-missing-output
// failure rule.
func (p *OverlayPipeline) verifyMkOverlayOutput() error {
	if _, err := os.Stat(filepath.Join(p.overlayDir(), "cslol-config.json")); err != nil {
		return &ToolFailure{Phase: ToolPhaseMkOverlay, ExitCode: 0}
	}

	return nil
}

func (p *OverlayPipeline) runRunOverlay(ctx context.Context, run *OverlayRun, gameEnded func() bool, monitor *Monitor) error {
	configPath := filepath.Join(p.overlayDir(), "cslol-config.json")

	args := []string{
		p.overlayDir(),
		configPath,
		"--game:" + string(p.GameDir),
		"--opts:configless",
	}

	child, err := p.Supervisor.Spawn(ctx, p.ToolSet.RunOverlay, args, SpawnOptions{CaptureOutput: false, PriorityBoost: true})
	if err != nil {
		return &ToolFailure{Phase: ToolPhaseRunOverlay, ExitCode: -1}
	}

	// mkoverlay completes-happens-before this point, which
	// happens-before resume: the ordering guarantee spec.md §5 requires.
	if monitor != nil {
		monitor.Resume()
	}

	return p.pollUntilEndedOrExit(child, gameEnded)
}

// pollUntilEndedOrExit polls at a short cadence; on gameEnded it
// terminates runoverlay gracefully-then-forced, otherwise waits for the
// child's own exit.
func (p *OverlayPipeline) pollUntilEndedOrExit(child *Child, gameEnded func() bool) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-child.done:
			if child.werr != nil {
				slog.Warn("runoverlay exited with error", "err", child.werr)
				return &ToolFailure{Phase: ToolPhaseRunOverlay, ExitCode: -1}
			}

			return nil
		case <-ticker.C:
			if gameEnded != nil && gameEnded() {
				if err := p.Supervisor.Kill(child); err != nil {
					return fmt.Errorf("failed to terminate runoverlay: %w", err)
				}

				<-child.done

				return nil
			}
		}
	}
}

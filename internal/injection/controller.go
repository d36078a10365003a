package injection

import (
	"context"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/login1"
)

// Controller is the Injection Controller (component H): it serializes
// inject requests, owns the resolver/stager/pipeline stack, and applies
// the cooldown and short-circuit rules of spec.md §4.7.
type Controller struct {
	cfg *Config

	writeLock chan struct{} // buffered(1) try-lock, mirrors builder/manager.go's single Lock field

	index      *ArchiveIndex
	monitor    *Monitor
	supervisor Supervisor

	gameDir GameDirectory
	tools   ToolSet
	ready   bool

	lastInjection time.Time

	// SelectClient forces a client-side skin selection for the
	// owned/base-skin short-circuit and unowned-plus-mods paths.
	// Supplied by the external collaborator owning the LCU connection;
	// nil is tolerated (a no-op) so the controller stays testable alone.
	SelectClient func(championID, skinID int)

	// GameEnded reports whether the current game has ended, for the
	// overlay pipeline's termination predicate. Supplied externally;
	// nil is treated as "never ends on its own", relying on runoverlay's
	// natural exit.
	GameEnded func() bool
}

// NewController builds a Controller against cfg. The game directory and
// tool set are resolved lazily on first Inject call.
func NewController(cfg *Config) *Controller {
	return &Controller{
		cfg:       cfg,
		writeLock: make(chan struct{}, 1),
		index:     NewArchiveIndex(),
	}
}

func (c *Controller) tryLock() bool {
	select {
	case c.writeLock <- struct{}{}:
		return true
	default:
		return false
	}
}

func (c *Controller) unlock() {
	<-c.writeLock
}

// ensureReady performs the lazy initialization spec.md §4.7 describes:
// first use resolves the game directory and tool set; failure leaves
// the controller un-ready so the next call retries.
func (c *Controller) ensureReady() error {
	if c.ready {
		return nil
	}

	gameDir, err := ResolveGameDir(c.cfg)
	if err != nil {
		return err
	}

	tools := CheckTools(c.cfg.ToolsDir)
	if !tools.Available() {
		return ErrToolsMissing
	}

	c.gameDir = gameDir
	c.tools = tools
	c.monitor = NewMonitor(c.cfg.GameExecutable, c.cfg.AutoResumeTimeout())

	if err := c.index.Refresh(c.cfg.ArchiveRoot()); err != nil {
		slog.Warn("Failed to build archive index during lazy init", "err", err)
	}

	c.ready = true

	return nil
}

// resolvedRequest is what Inject has worked out after translating an
// InjectionIntent: the ids needed for short-circuit decisions, plus the
// ModRequest ready to hand to the stager once a short-circuit doesn't
// apply.
type resolvedRequest struct {
	championID  int
	skinID      int // -1 if the intent carries no skin id at all
	hasCategory bool
	mods        ModRequest
}

// Inject is the sole external write surface: the one entry point that
// stages mods and drives the overlay pipeline for a single request.
func (c *Controller) Inject(ctx context.Context, intent InjectionIntent, state *SharedState) (Result, error) {
	// Every original injection entry point calls refresh_injection_threshold()
	// before its cooldown check, so a tray/config edit to injection_threshold
	// applies to the very next request rather than whenever some unrelated
	// caller happens to invoke RefreshThreshold.
	c.RefreshThreshold()

	threshold := c.cfg.Threshold()
	if threshold > 0 && !c.lastInjection.IsZero() && time.Since(c.lastInjection) < threshold {
		return ResultCooldown, &CooldownError{Remaining: threshold - time.Since(c.lastInjection)}
	}

	if !c.tryLock() {
		return ResultBusy, ErrBusy
	}
	defer c.unlock()

	if err := c.ensureReady(); err != nil {
		slog.Warn("Controller not ready, refusing to inject", "err", err)
		return ResultConfigError, err
	}

	rr := c.translateIntent(intent)

	if !rr.hasCategory && rr.skinID >= 0 && rr.skinID == BaseSkinID(rr.championID) {
		c.monitor.Stop()
		return ResultSkippedBaseSkin, nil
	}

	if !rr.hasCategory && rr.skinID >= 0 && state != nil && state.OwnsSkin(rr.skinID) {
		if c.SelectClient != nil {
			c.SelectClient(rr.championID, rr.skinID)
		}

		c.monitor.Stop()

		return ResultSkippedOwned, nil
	}

	if rr.skinID >= 0 && state != nil && !state.OwnsSkin(rr.skinID) && c.SelectClient != nil {
		c.SelectClient(rr.championID, BaseSkinID(rr.championID))
	}

	if cm, ok := intent.(CustomSkinModIntent); ok && cm.BaseSkinIfUnowned && state != nil && !state.OwnsSkin(state.LastHoveredSkinID) && c.SelectClient != nil {
		c.SelectClient(cm.ChampionID, BaseSkinID(cm.ChampionID))
	}

	return c.runPipeline(ctx, rr)
}

// translateIntent normalizes the three InjectionIntent variants,
// resolving any skin/chroma reference to an archive path via the
// controller's own index and archive root.
func (c *Controller) translateIntent(intent InjectionIntent) resolvedRequest {
	switch v := intent.(type) {
	case SkinIntent:
		req := ModRequest{}

		if path, err := resolveSkinArchive(c.index, c.cfg.ArchiveRoot(), v); err == nil {
			req.Skin = &path
		}

		return resolvedRequest{championID: v.ChampionID, skinID: v.SkinID, mods: req}

	case ModsIntent:
		req := ModRequest{Extras: v.Selections}

		skinID := -1
		championID := 0

		if v.Skin != nil {
			skinID = v.Skin.SkinID
			championID = v.Skin.ChampionID

			if path, err := resolveSkinArchive(c.index, c.cfg.ArchiveRoot(), *v.Skin); err == nil {
				req.Skin = &path
			}
		}

		return resolvedRequest{championID: championID, skinID: skinID, hasCategory: len(v.Selections) > 0, mods: req}

	case CustomSkinModIntent:
		req := ModRequest{Extras: []ExtraMod{{Category: CategoryCustomSkinMod, ArchivePath: v.Descriptor}}}
		skinID := -1

		return resolvedRequest{championID: v.ChampionID, skinID: skinID, hasCategory: true, mods: req}

	default:
		return resolvedRequest{skinID: -1}
	}
}

// resolveSkinArchive turns a SkinIntent into the concrete archive path
// via the Archive Resolver (component C), preferring the chroma when set.
func resolveSkinArchive(ix *ArchiveIndex, root string, s SkinIntent) (string, error) {
	var req Request
	if s.ChromaID != nil {
		req = ChromaRequest{ChampionID: s.ChampionID, ChromaID: *s.ChromaID}
	} else {
		req = SkinRequest{ChampionID: s.ChampionID, SkinID: s.SkinID}
	}

	path, ext, err := Resolve(ix, root, req)
	if err == nil {
		slog.Debug("Resolved skin archive", "path", path, "ext", ext)
	}

	return path, err
}

func (c *Controller) runPipeline(ctx context.Context, rr resolvedRequest) (Result, error) {
	req := rr.mods

	stager := NewStager(c.cfg.WorkspaceDir())

	if err := stager.CleanWorkspace(); err != nil {
		slog.Error("Failed to clean workspace before staging", "err", err)
		return ResultConfigError, err
	}

	c.monitor.Start()

	inhibitor, inhibitErr := acquireSleepInhibitor()
	if inhibitErr != nil {
		slog.Debug("Sleep inhibitor unavailable, continuing without it", "err", inhibitErr)
	}

	defer releaseSleepInhibitor(inhibitor)

	folders, err := stager.StageRequest(req)
	if err != nil {
		c.monitor.Stop()
		return ResultNoModsStaged, ErrNoModsStaged
	}

	pipeline := NewOverlayPipeline(c.supervisor, c.tools, c.gameDir, c.cfg.WorkspaceDir(), 60*time.Second)

	_, err = pipeline.MkRunOverlay(ctx, folders, c.GameEnded, c.monitor)

	c.monitor.Stop()

	if err != nil {
		slog.Warn("Overlay pipeline failed", "err", err)
		return ResultToolFailure, err
	}

	c.lastInjection = time.Now()

	// Spec.md §6's historic file records the last injected skin id per
	// champion; never written for a skipped or failed request, only here
	// on a confirmed-successful pipeline run.
	if rr.skinID >= 0 {
		if err := RecordInjection(c.cfg, rr.championID, rr.skinID); err != nil {
			slog.Warn("Failed to record historic skin", "champion_id", rr.championID, "skin_id", rr.skinID, "err", err)
		}
	}

	return ResultOK, nil
}

// CleanSystem wipes the workspace tree without running the pipeline,
// for operator-triggered resets.
func (c *Controller) CleanSystem() error {
	return NewStager(c.cfg.WorkspaceDir()).CleanWorkspace()
}

// StopOverlay halts the monitor and, transitively, resumes any
// suspended game process. It does not kill a running runoverlay; callers
// wanting that should also call KillAllRunoverlay.
func (c *Controller) StopOverlay() {
	if c.monitor != nil {
		c.monitor.Stop()
	}
}

// KillAllRunoverlay terminates every process matching the runoverlay
// binary, for a hard reset outside the normal pipeline lifecycle. Runs
// on a detached goroutine so phase-transition callers never block.
func (c *Controller) KillAllRunoverlay() {
	go killAllByExecutable(c.tools.RunOverlay)
}

// KillAllToolProcesses terminates every mkoverlay and runoverlay
// process found running.
func (c *Controller) KillAllToolProcesses() {
	go func() {
		killAllByExecutable(c.tools.MkOverlay)
		killAllByExecutable(c.tools.RunOverlay)
	}()
}

// RefreshThreshold re-reads injection_threshold from configuration so
// an operator's edit applies to the very next Inject call. Inject calls
// this itself at the top of every request; this method stays exported
// for external callers (e.g. a settings-tray save handler) that want to
// push a change in between requests too.
func (c *Controller) RefreshThreshold() {
	c.cfg.RefreshThreshold()
}

func killAllByExecutable(path string) {
	if path == "" {
		return
	}

	pids, err := findAllProcessesByExecutable(path)
	if err != nil {
		return
	}

	for _, pid := range pids {
		if err := killProcessGroup(pid); err != nil {
			slog.Warn("Failed to kill tool process", "pid", pid, "path", path, "err", err)
		}
	}
}

// killProcessGroup signals a discovered (not necessarily ours) pid:
// SIGTERM first, then SIGKILL after a short grace period, mirroring
// Supervisor.Kill's two-stage termination for processes this module did
// not itself spawn.
func killProcessGroup(pid int) error {
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return err
	}

	time.Sleep(2 * time.Second)

	if err := syscall.Kill(pid, 0); err != nil {
		// Process already gone.
		return nil
	}

	return syscall.Kill(pid, syscall.SIGKILL)
}

// acquireSleepInhibitor takes a systemd-logind block lock for the
// duration the game process may be suspended, mirroring cli/build.go's
// build-in-progress inhibitor so a screen-lock/suspend policy can't fire
// while the game is frozen mid-injection.
func acquireSleepInhibitor() (*os.File, error) {
	conn, err := login1.New()
	if err != nil {
		return nil, err
	}

	if !conn.Connected() {
		return nil, ErrLogindUnavailable
	}

	return conn.Inhibit("shutdown:idle:sleep", "skininject", "Skin injection in progress, game process is suspended", "block")
}

func releaseSleepInhibitor(fd *os.File) {
	if fd != nil {
		fd.Close()
	}
}

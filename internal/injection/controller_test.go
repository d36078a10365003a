package injection

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func readyTestController(t *testing.T) *Controller {
	t.Helper()

	cfg := &Config{DataDir: t.TempDir(), ToolsDir: t.TempDir(), InjectionThreshold: 0, MonitorAutoResumeTimeout: 60}

	c := NewController(cfg)
	c.ready = true
	c.gameDir = GameDirectory(t.TempDir())
	c.monitor = NewMonitor("definitely-not-a-real-process.exe", cfg.AutoResumeTimeout())

	return c
}

func TestControllerBaseSkinShortCircuit(t *testing.T) {
	c := readyTestController(t)

	intent := SkinIntent{ChampionID: 99, SkinID: BaseSkinID(99)}

	result, err := c.Inject(context.Background(), intent, &SharedState{})
	if result != ResultSkippedBaseSkin {
		t.Errorf("result = %v, want ResultSkippedBaseSkin", result)
	}

	if err != nil {
		t.Errorf("err = %v, want nil", err)
	}

	if !c.lastInjection.IsZero() {
		t.Errorf("lastInjection should be unchanged on a skipped request")
	}
}

func TestControllerOwnedSkinShortCircuit(t *testing.T) {
	c := readyTestController(t)

	var selected []int

	c.SelectClient = func(championID, skinID int) { selected = append(selected, skinID) }

	state := &SharedState{OwnedSkinIDs: map[int]struct{}{99001: {}}}

	intent := SkinIntent{ChampionID: 99, SkinID: 99001}

	result, err := c.Inject(context.Background(), intent, state)
	if result != ResultSkippedOwned {
		t.Errorf("result = %v, want ResultSkippedOwned", result)
	}

	if err != nil {
		t.Errorf("err = %v, want nil", err)
	}

	if len(selected) != 1 || selected[0] != 99001 {
		t.Errorf("SelectClient calls = %v, want [99001]", selected)
	}
}

func TestControllerCooldown(t *testing.T) {
	c := readyTestController(t)
	c.cfg.InjectionThreshold = 10
	c.lastInjection = time.Now()

	intent := SkinIntent{ChampionID: 99, SkinID: BaseSkinID(99)}

	result, err := c.Inject(context.Background(), intent, &SharedState{})
	if result != ResultCooldown {
		t.Errorf("result = %v, want ResultCooldown", result)
	}

	var cooldownErr *CooldownError
	if !errors.As(err, &cooldownErr) {
		t.Fatalf("err = %v, want *CooldownError", err)
	}

	if cooldownErr.Remaining <= 0 || cooldownErr.Remaining > 10*time.Second {
		t.Errorf("Remaining = %v, want in (0, 10s]", cooldownErr.Remaining)
	}
}

func TestControllerBusy(t *testing.T) {
	c := readyTestController(t)
	c.writeLock <- struct{}{} // simulate another in-flight inject holding the lock

	intent := SkinIntent{ChampionID: 99, SkinID: BaseSkinID(99)}

	result, err := c.Inject(context.Background(), intent, &SharedState{})
	if result != ResultBusy {
		t.Errorf("result = %v, want ResultBusy", result)
	}

	if !errors.Is(err, ErrBusy) {
		t.Errorf("err = %v, want ErrBusy", err)
	}
}

func TestControllerUnownedSkinForcesBaseThenQueues(t *testing.T) {
	c := readyTestController(t)

	var forced []int

	c.SelectClient = func(championID, skinID int) { forced = append(forced, skinID) }

	state := &SharedState{OwnedSkinIDs: map[int]struct{}{}}
	intent := SkinIntent{ChampionID: 99, SkinID: 99005}

	// No archive for 99005 exists, so the pipeline will fail staging;
	// the assertion here is only about the forced base-skin selection
	// that must happen before staging is attempted.
	_, _ = c.Inject(context.Background(), intent, state)

	if len(forced) != 1 || forced[0] != BaseSkinID(99) {
		t.Errorf("forced selections = %v, want [%d]", forced, BaseSkinID(99))
	}
}

func TestControllerRecordsHistoricSkinOnSuccess(t *testing.T) {
	cfg := &Config{DataDir: t.TempDir(), ToolsDir: t.TempDir(), InjectionThreshold: 0, MonitorAutoResumeTimeout: 60}

	archiveRoot := cfg.ArchiveRoot()
	writeTestZip(t, filepath.Join(archiveRoot, "99", "99001", "99001.zip"), map[string]string{"WAD/99001.wad": "data"})

	c := NewController(cfg)
	c.ready = true
	c.gameDir = GameDirectory(t.TempDir())
	c.monitor = NewMonitor("definitely-not-a-real-process.exe", cfg.AutoResumeTimeout())

	if err := c.index.Build(archiveRoot, nil); err != nil {
		t.Fatalf("index.Build failed: %v", err)
	}

	toolsDir := t.TempDir()
	mk := filepath.Join(toolsDir, "mkoverlay")
	run := filepath.Join(toolsDir, "runoverlay")

	writeFakeTool(t, mk, `
mkdir -p "$2"
echo '{}' > "$2/cslol-config.json"
exit 0
`)
	writeFakeTool(t, run, `exit 0`)

	c.tools = ToolSet{MkOverlay: mk, RunOverlay: run}

	intent := SkinIntent{ChampionID: 99, SkinID: 99001}

	result, err := c.Inject(context.Background(), intent, &SharedState{OwnedSkinIDs: map[int]struct{}{}})
	if result != ResultOK {
		t.Fatalf("result = %v, want ResultOK", result)
	}

	if err != nil {
		t.Errorf("err = %v, want nil", err)
	}

	h := LoadHistoricSkins(cfg)
	if h.LastSkinByChampion[99] != 99001 {
		t.Errorf("LastSkinByChampion[99] = %d, want 99001", h.LastSkinByChampion[99])
	}
}

func TestControllerDoesNotRecordHistoricSkinOnFailure(t *testing.T) {
	c := readyTestController(t)

	intent := SkinIntent{ChampionID: 99, SkinID: 99005} // no archive present

	result, err := c.Inject(context.Background(), intent, &SharedState{})
	if result == ResultOK {
		t.Fatalf("expected a non-OK result for a missing archive")
	}

	if err == nil {
		t.Errorf("expected a non-nil error for a missing archive")
	}

	h := LoadHistoricSkins(c.cfg)
	if _, ok := h.LastSkinByChampion[99]; ok {
		t.Errorf("historic file should not be written on a failed injection")
	}
}

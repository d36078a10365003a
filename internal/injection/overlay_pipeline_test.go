package injection

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeFakeTool writes an executable shell script standing in for
// mkoverlay/runoverlay so the pipeline can be exercised without the
// real cslol binaries present.
func writeFakeTool(t *testing.T, path, body string) {
	t.Helper()

	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o0755); err != nil {
		t.Fatalf("writeFakeTool(%s): %v", path, err)
	}
}

func newTestPipeline(t *testing.T, mkBody, runBody string) *OverlayPipeline {
	t.Helper()

	toolsDir := t.TempDir()
	workspace := t.TempDir()
	gameDir := t.TempDir()

	mk := filepath.Join(toolsDir, "mkoverlay")
	run := filepath.Join(toolsDir, "runoverlay")

	writeFakeTool(t, mk, mkBody)
	writeFakeTool(t, run, runBody)

	tools := ToolSet{MkOverlay: mk, RunOverlay: run}

	return NewOverlayPipeline(Supervisor{}, tools, GameDirectory(gameDir), workspace, time.Second)
}

func TestOverlayPipelineSuccess(t *testing.T) {
	p := newTestPipeline(t, `
# second arg is the overlay dir; mkoverlay must produce its config there
mkdir -p "$2"
echo '{}' > "$2/cslol-config.json"
exit 0
`, `
exit 0
`)

	run, err := p.MkRunOverlay(context.Background(), []string{"a", "b"}, func() bool { return false }, nil)
	if err != nil {
		t.Fatalf("MkRunOverlay failed: %v", err)
	}

	if len(run.ModFolderNames) != 2 {
		t.Errorf("ModFolderNames = %v", run.ModFolderNames)
	}
}

func TestOverlayPipelineMkOverlayMissingOutput(t *testing.T) {
	p := newTestPipeline(t, `exit 0`, `exit 0`)

	_, err := p.MkRunOverlay(context.Background(), []string{"a"}, func() bool { return false }, nil)

	var tf *ToolFailure
	if !errors.As(err, &tf) || tf.Phase != ToolPhaseMkOverlay {
		t.Fatalf("err = %v, want ToolFailure{Phase: ToolPhaseMkOverlay}", err)
	}
}

func TestOverlayPipelineMkOverlayNonZeroExit(t *testing.T) {
	p := newTestPipeline(t, `exit 1`, `exit 0`)

	_, err := p.MkRunOverlay(context.Background(), []string{"a"}, func() bool { return false }, nil)

	var tf *ToolFailure
	if !errors.As(err, &tf) || tf.Phase != ToolPhaseMkOverlay || tf.ExitCode != 1 {
		t.Fatalf("err = %v, want ToolFailure{Phase: ToolPhaseMkOverlay, ExitCode: 1}", err)
	}
}

func TestOverlayPipelineResumesMonitorBeforeRunOverlayExits(t *testing.T) {
	p := newTestPipeline(t, `
mkdir -p "$2"
echo '{}' > "$2/cslol-config.json"
exit 0
`, `
sleep 0.2
exit 0
`)

	mon := NewMonitor("definitely-not-a-real-process.exe", time.Minute)

	_, err := p.MkRunOverlay(context.Background(), []string{"a"}, func() bool { return false }, mon)
	if err != nil {
		t.Fatalf("MkRunOverlay failed: %v", err)
	}

	if !mon.RunoverlayStarted() {
		t.Errorf("expected monitor to observe runoverlay start")
	}
}

func TestOverlayPipelineKilledOnGameEnded(t *testing.T) {
	p := newTestPipeline(t, `
mkdir -p "$2"
echo '{}' > "$2/cslol-config.json"
exit 0
`, `
sleep 5
exit 0
`)

	ended := false

	go func() {
		time.Sleep(150 * time.Millisecond)
		ended = true
	}()

	start := time.Now()

	_, err := p.MkRunOverlay(context.Background(), []string{"a"}, func() bool { return ended }, nil)
	if err != nil {
		t.Fatalf("MkRunOverlay failed: %v", err)
	}

	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("pipeline took %v, expected termination well before runoverlay's own sleep", elapsed)
	}
}

func TestOverlayPipelineToolsMissing(t *testing.T) {
	p := newTestPipeline(t, `exit 0`, `exit 0`)
	p.ToolSet.Missing = []string{p.ToolSet.MkOverlay}

	_, err := p.MkRunOverlay(context.Background(), []string{"a"}, func() bool { return false }, nil)
	if !errors.Is(err, ErrToolsMissing) {
		t.Errorf("err = %v, want ErrToolsMissing", err)
	}
}

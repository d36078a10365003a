package injection

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// ExitKind classifies how a supervised child finished.
type ExitKind int

const (
	ExitExited ExitKind = iota
	ExitTimedOut
	ExitKilled
)

// ExitResult is the outcome of Supervisor.Wait.
type ExitResult struct {
	Kind ExitKind
	Code int
}

// SpawnOptions controls how a child's output and scheduling priority
// are handled.
type SpawnOptions struct {
	// CaptureOutput routes stdout/stderr into a bounded buffer read by
	// a dedicated goroutine per stream. When false, output is
	// discarded. Either way the OS pipe is always drained, never left
	// connected unread (spec.md §4.4's deadlock rationale).
	CaptureOutput bool

	// PriorityBoost raises the child's scheduling priority via
	// syscall.Setpriority. Failure is logged at Warn, never fatal.
	PriorityBoost bool
}

// Child is a supervised external process, grounded on the
// exec.Command + SysProcAttr{Setsid: true} pattern builder/util.go uses
// for ChrootExec and StartSccache.
type Child struct {
	cmd    *exec.Cmd
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	mu     sync.Mutex
	done   chan struct{}
	werr   error
}

// PID returns the child's process id, or 0 if it never started.
func (c *Child) PID() int {
	if c.cmd.Process == nil {
		return 0
	}

	return c.cmd.Process.Pid
}

// maxCapturedOutput bounds each captured stream; once a stream exceeds
// it, the oldest bytes are dropped.
const maxCapturedOutput = 64 * 1024

// Stdout returns what has been captured on stdout so far (at most the
// last maxCapturedOutput bytes). Empty unless SpawnOptions.CaptureOutput
// was set.
func (c *Child) Stdout() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stdout.String()
}

// Stderr returns what has been captured on stderr so far (at most the
// last maxCapturedOutput bytes).
func (c *Child) Stderr() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stderr.String()
}

// Supervisor is the Process Supervisor (component E): it spawns
// external tools, captures their output, enforces wait timeouts, and
// kills them on cancellation.
type Supervisor struct{}

// Spawn starts name with args under opts. The process is placed in its
// own session (Setsid) so its entire process group can be signalled on
// timeout/cancel.
func (Supervisor) Spawn(ctx context.Context, name string, args []string, opts SpawnOptions) (*Child, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	child := &Child{cmd: cmd, stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}, done: make(chan struct{})}

	if opts.CaptureOutput {
		stdoutPipe, err := cmd.StdoutPipe()
		if err != nil {
			return nil, err
		}

		stderrPipe, err := cmd.StderrPipe()
		if err != nil {
			return nil, err
		}

		if err := cmd.Start(); err != nil {
			return nil, err
		}

		go drainInto(child, &child.stdout, stdoutPipe)
		go drainInto(child, &child.stderr, stderrPipe)
	} else {
		if err := cmd.Start(); err != nil {
			return nil, err
		}
	}

	if opts.PriorityBoost {
		if err := syscall.Setpriority(syscall.PRIO_PROCESS, cmd.Process.Pid, -5); err != nil {
			slog.Warn("Failed to raise child priority, continuing without boost", "pid", cmd.Process.Pid, "err", err)
		}
	}

	go func() {
		child.werr = cmd.Wait()
		close(child.done)
	}()

	return child, nil
}

func drainInto(c *Child, bufField **bytes.Buffer, r interface{ Read([]byte) (int, error) }) {
	buf := make([]byte, 4096)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			c.mu.Lock()
			(*bufField).Write(buf[:n])

			if over := (*bufField).Len() - maxCapturedOutput; over > 0 {
				(*bufField).Next(over)
			}
			c.mu.Unlock()
		}

		if err != nil {
			return
		}
	}
}

// Wait blocks until child exits, timeout elapses, or it is killed. On
// timeout, the child (and its process group) is terminated and its
// output drained before returning.
func (s Supervisor) Wait(child *Child, timeout time.Duration) (ExitResult, error) {
	var timer *time.Timer

	var timeoutCh <-chan time.Time

	if timeout > 0 {
		timer = time.NewTimer(timeout)
		timeoutCh = timer.C

		defer timer.Stop()
	}

	select {
	case <-child.done:
		if child.werr == nil {
			return ExitResult{Kind: ExitExited, Code: 0}, nil
		}

		if exitErr, ok := child.werr.(*exec.ExitError); ok {
			return ExitResult{Kind: ExitExited, Code: exitErr.ExitCode()}, nil
		}

		return ExitResult{Kind: ExitExited, Code: -1}, child.werr
	case <-timeoutCh:
		_ = s.Kill(child)
		<-child.done

		return ExitResult{Kind: ExitTimedOut}, nil
	}
}

// Kill terminates the child's process group: SIGTERM first, then
// SIGKILL after a short grace period, mirroring builder/util.go's
// MurderDeathKill two-stage termination.
func (Supervisor) Kill(child *Child) error {
	if child.cmd.Process == nil {
		return nil
	}

	pgid := child.cmd.Process.Pid

	if err := syscall.Kill(-pgid, syscall.SIGTERM); err != nil {
		return err
	}

	select {
	case <-child.done:
		return nil
	case <-time.After(2 * time.Second):
	}

	return syscall.Kill(-pgid, syscall.SIGKILL)
}

//
// Copyright © 2016-2021 Solus Project <copyright@getsol.us>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

// Package injection implements the skin injection engine: the monitor,
// stager, overlay pipeline and controller that coordinate suspending the
// game process long enough for an external overlay tool to hook in.
package injection

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoGameDir is returned when the game directory could not be
	// resolved from configuration or process discovery.
	ErrNoGameDir = errors.New("game directory could not be resolved")

	// ErrToolsMissing is returned when one or more required overlay tool
	// files are absent.
	ErrToolsMissing = errors.New("required overlay tool files are missing")

	// ErrArchiveNotFound is returned when the archive resolver cannot
	// locate an archive for the requested logical id.
	ErrArchiveNotFound = errors.New("archive not found for requested id")

	// ErrNoModsStaged is returned when every requested mod failed to
	// stage and the pipeline has nothing to build.
	ErrNoModsStaged = errors.New("no mods could be staged")

	// ErrBusy is returned when another injection already holds the
	// single-writer lock.
	ErrBusy = errors.New("another injection is already in progress")

	// ErrLogindUnavailable is returned when no systemd-logind dbus
	// connection could be established for the sleep inhibitor lock.
	ErrLogindUnavailable = errors.New("systemd-logind dbus connection unavailable")
)

// CooldownError reports that the injection cooldown threshold has not yet
// elapsed. Remaining is how much longer the caller must wait.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active, %s remaining", e.Remaining.Round(time.Millisecond))
}

// ToolPhase identifies which half of the overlay pipeline failed.
type ToolPhase string

const (
	ToolPhaseMkOverlay  ToolPhase = "mkoverlay"
	ToolPhaseRunOverlay ToolPhase = "runoverlay"
)

// ToolFailure reports that an external tool invocation failed or timed
// out. Exactly one of ExitCode/TimedOut is meaningful.
type ToolFailure struct {
	Phase    ToolPhase
	ExitCode int
	TimedOut bool
}

func (e *ToolFailure) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("%s timed out", e.Phase)
	}

	return fmt.Sprintf("%s exited with code %d", e.Phase, e.ExitCode)
}

// StagingError records a single mod's extraction/copy failure. It is
// recovered locally by the stager and reported, not propagated.
type StagingError struct {
	ArchivePath string
	Err         error
}

func (e *StagingError) Error() string {
	return fmt.Sprintf("failed to stage %s: %v", e.ArchivePath, e.Err)
}

func (e *StagingError) Unwrap() error { return e.Err }

// MonitorError reports that the platform denied process suspension.
// Injection continues without suspension; this is informational.
type MonitorError struct {
	Err error
}

func (e *MonitorError) Error() string {
	return fmt.Sprintf("monitor: suspension unavailable: %v", e.Err)
}

func (e *MonitorError) Unwrap() error { return e.Err }

// Result is the informational outcome of a call to Controller.Inject.
// Skipped* values are not failures.
type Result string

const (
	ResultOK              Result = "ok"
	ResultSkippedBaseSkin Result = "skipped_base_skin"
	ResultSkippedOwned    Result = "skipped_owned"
	ResultBusy            Result = "busy"
	ResultCooldown        Result = "cooldown"
	ResultConfigError     Result = "config_error"
	ResultNoModsStaged    Result = "no_mods_staged"
	ResultToolFailure     Result = "tool_failure"
)

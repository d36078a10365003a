package injection

import (
	"context"
	"log/slog"
)

// Router is the State/Event Router (component I): it translates
// external gameflow phase/lock events into Controller calls, per
// spec.md §4.8. It owns no filesystem or process state of its own.
type Router struct {
	Controller *Controller

	// previousPhase tracks the last phase seen, so on_phase_change can
	// tell a genuine InProgress entry from a repeated callback, and the
	// game-ended predicate can de-bounce transient GameStart/Reconnect
	// states the way spec.md §4.6 requires.
	previousPhase         Phase
	everEnteredInProgress bool
	endedLatched          bool
}

// NewRouter returns a Router driving ctrl.
func NewRouter(ctrl *Controller) *Router {
	return &Router{Controller: ctrl}
}

// OnPhaseChange handles a gameflow phase transition: ChampSelect entry
// resets per-game tracking, InProgress entry starts tracking for the
// game-ended predicate, and leaving InProgress after having entered it
// latches "ended" so a pending overlay pipeline can terminate.
func (r *Router) OnPhaseChange(newPhase Phase) {
	prev := r.previousPhase
	r.previousPhase = newPhase

	switch newPhase {
	case PhaseChampSelect:
		r.everEnteredInProgress = false
		r.endedLatched = false
	case PhaseInProgress:
		r.everEnteredInProgress = true
		r.endedLatched = false
	case PhaseNone:
		r.Controller.StopOverlay()
		r.everEnteredInProgress = false
		r.endedLatched = false
	default:
		if r.everEnteredInProgress && newPhase != PhaseGameStart && newPhase != PhaseReconnect {
			r.endedLatched = true
		}
	}

	if newPhase != PhaseInProgress && prev == PhaseInProgress {
		slog.Debug("Game left InProgress, overlay pipeline may terminate", "from", prev, "to", newPhase)
	}
}

// GameEndedPredicate returns a closure suitable for
// OverlayPipeline.MkRunOverlay's gameEnded parameter: true once the
// phase has left InProgress after having entered it, de-bounced against
// the transient GameStart/Reconnect states that precede a genuine
// InProgress entry.
func (r *Router) GameEndedPredicate() func() bool {
	return func() bool {
		return r.endedLatched
	}
}

// OnOwnChampionLocked handles a first-time or exchange champion lock: it
// records the champion and clears all per-game selection state, so the
// next TriggerInjection builds its intent from selections made after the
// lock.
func (r *Router) OnOwnChampionLocked(championID int, state *SharedState) {
	if state == nil {
		return
	}

	state.LockedChampionID = championID
	state.LastHoveredSkinID = 0
	state.SelectedChromaID = 0
	state.SelectedCustomMod = nil
	state.SelectedMapMod = nil
	state.SelectedFontMod = nil
	state.SelectedAnnouncer = nil
	state.SelectedOtherMod = nil
	state.HistoricModeActive = false
	state.HistoricSkinID = 0
	state.RandomModeActive = false
	state.RandomSkinID = 0
}

// OnLoadoutTick is a hook for future policies keyed on the loadout
// countdown; it does not currently trigger monitor start per spec.md
// §4.8.
func (r *Router) OnLoadoutTick(secondsRemaining int, state *SharedState) {
	_ = secondsRemaining
	_ = state
}

// TriggerInjection builds an InjectionIntent from the current
// SharedState and the external collaborator's selections, then calls
// Controller.Inject. This is the bridge between the router's event
// inputs and the controller's single write surface.
func (r *Router) TriggerInjection(ctx context.Context, state *SharedState) (Result, error) {
	if state == nil {
		return ResultConfigError, nil
	}

	intent := buildIntent(state)

	return r.Controller.Inject(ctx, intent, state)
}

// buildIntent assembles the appropriate InjectionIntent variant from
// SharedState, preferring a custom skin mod over a plain skin/chroma
// selection. Category mod selections are folded into the skin/chroma
// intent only; a custom skin mod intent carries none of them.
func buildIntent(state *SharedState) InjectionIntent {
	var selections []ExtraMod

	for _, sel := range []*ModSelection{
		state.SelectedMapMod, state.SelectedFontMod, state.SelectedAnnouncer, state.SelectedOtherMod,
	} {
		if sel != nil {
			selections = append(selections, ExtraMod{Category: sel.Category, ArchivePath: sel.Path})
		}
	}

	if state.SelectedCustomMod != nil {
		return CustomSkinModIntent{
			Descriptor:        state.SelectedCustomMod.Path,
			BaseSkinIfUnowned: true,
			ChampionID:        state.LockedChampionID,
		}
	}

	skinID := state.LastHoveredSkinID
	if state.HistoricModeActive {
		skinID = state.HistoricSkinID
	} else if state.RandomModeActive {
		skinID = state.RandomSkinID
	}

	var chroma *int
	if state.SelectedChromaID != 0 {
		chroma = &state.SelectedChromaID
	}

	skin := &SkinIntent{ChampionID: state.LockedChampionID, SkinID: skinID, ChromaID: chroma}

	if len(selections) > 0 {
		return ModsIntent{Skin: skin, Selections: selections}
	}

	return *skin
}

package injection

// Category identifies which slot of the overlay a staged mod occupies.
type Category string

const (
	CategoryMap           Category = "map"
	CategoryFont          Category = "font"
	CategoryAnnouncer     Category = "announcer"
	CategoryOther         Category = "other"
	CategoryCustomSkinMod Category = "custom"
)

// ExtraMod is one category mod to stage alongside (or instead of) a skin.
type ExtraMod struct {
	Category    Category
	ArchivePath string
}

// ModRequest describes one overlay build: an optional base skin archive
// plus zero or more category extras, staged in the order the overlay
// tool expects them.
type ModRequest struct {
	Skin   *string
	Extras []ExtraMod
}

// SkinRequest resolves to a champion's skin archive, or its chroma if
// ChromaID is set.
type SkinRequest struct {
	ChampionID int
	SkinID     int
	ChromaID   *int
}

// ChromaRequest resolves directly to a chroma archive.
type ChromaRequest struct {
	ChampionID int
	ChromaID   int
}

// NamedRequest resolves a hard-coded "form"/variant archive by searching
// the archive tree for an exact filename.
type NamedRequest struct {
	Folder           string
	FilenamePatterns []string
}

// Request is the sum type consumed by Resolve. Only SkinRequest,
// ChromaRequest and NamedRequest implement it.
type Request interface {
	isRequest()
}

func (SkinRequest) isRequest()   {}
func (ChromaRequest) isRequest() {}
func (NamedRequest) isRequest()  {}

// InjectionIntent is the sum type accepted by Controller.Inject.
type InjectionIntent interface {
	isIntent()
}

// SkinIntent requests a specific champion/skin/chroma combination, with
// no explicit category mods.
type SkinIntent struct {
	ChampionID int
	SkinID     int
	ChromaID   *int
}

// ModsIntent requests a set of category mods, with an optional base skin.
type ModsIntent struct {
	Skin       *SkinIntent
	Selections []ExtraMod
}

// CustomSkinModIntent requests a custom skin mod directory/archive,
// falling back to the champion's base skin if the player does not own
// the currently selected skin.
type CustomSkinModIntent struct {
	Descriptor        string
	BaseSkinIfUnowned bool
	ChampionID        int
}

func (SkinIntent) isIntent()          {}
func (ModsIntent) isIntent()          {}
func (CustomSkinModIntent) isIntent() {}

// Phase mirrors the gameflow phases the state router consumes. Only the
// subset relevant to injection timing is modeled.
type Phase string

const (
	PhaseNone            Phase = ""
	PhaseChampSelect     Phase = "ChampSelect"
	PhaseGameStart       Phase = "GameStart"
	PhaseInProgress      Phase = "InProgress"
	PhaseReconnect       Phase = "Reconnect"
	PhaseWaitingForStats Phase = "WaitingForStats"
	PhaseEndOfGame       Phase = "EndOfGame"
	PhaseLobby           Phase = "Lobby"
)

// ModSelection is a single category's chosen descriptor, as surfaced by
// external collaborators (the UI layer).
type ModSelection struct {
	Category Category
	Path     string
}

// SharedState is the subset of external application state the router
// consumes. It is owned by external collaborators; the core only reads
// it, save for the narrow mutation points documented in SPEC_FULL.md.
type SharedState struct {
	Phase              Phase
	LockedChampionID   int
	LastHoveredSkinID  int
	SelectedChromaID   int
	OwnedSkinIDs       map[int]struct{}
	SelectedCustomMod  *ModSelection
	SelectedMapMod     *ModSelection
	SelectedFontMod    *ModSelection
	SelectedAnnouncer  *ModSelection
	SelectedOtherMod   *ModSelection
	HistoricModeActive bool
	HistoricSkinID     int
	RandomModeActive   bool
	RandomSkinID       int
}

// OwnsSkin implements the single ownership predicate mandated by
// SPEC_FULL.md §5: every ownership check in this module goes through
// this method, never a bespoke variant.
func (s *SharedState) OwnsSkin(skinID int) bool {
	if s.OwnedSkinIDs == nil {
		return false
	}

	_, ok := s.OwnedSkinIDs[skinID]

	return ok
}

// BaseSkinID returns the base skin id for a champion, per SPEC_FULL.md's
// decided convention (champion_id * 1000).
func BaseSkinID(championID int) int {
	return championID * 1000
}

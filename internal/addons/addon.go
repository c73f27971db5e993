package addons

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Game identifies a supported Build engine game
type Game string

const (
	GameDuke3D     Game = "duke3d"
	GameBlood      Game = "blood"
	GameWang       Game = "wang"
	GameRedneck    Game = "redneck"
	GameFury       Game = "fury"
	GameSlave      Game = "slave"
	GameNam        Game = "nam"
	GameWW2GI      Game = "ww2gi"
	GameTekWar     Game = "tekwar"
	GameWitchaven  Game = "witchaven"
	GameStandalone Game = "standalone"
)

var knownGames = map[Game]bool{
	GameDuke3D: true, GameBlood: true, GameWang: true, GameRedneck: true,
	GameFury: true, GameSlave: true, GameNam: true, GameWW2GI: true,
	GameTekWar: true, GameWitchaven: true, GameStandalone: true,
}

// ParseGame returns the Game for a manifest game name
func ParseGame(name string) (Game, bool) {
	g := Game(strings.ToLower(strings.TrimSpace(name)))
	return g, knownGames[g]
}

// UsesCon reports whether the game is scripted with CON files (Duke family)
func (g Game) UsesCon() bool {
	switch g {
	case GameDuke3D, GameRedneck, GameFury, GameNam, GameWW2GI:
		return true
	}
	return false
}

// Engine version tags for SupportedGame.Version
const (
	DukeVersion13D    = "1.3d"
	DukeVersionAtomic = "atomic"
	DukeVersionWT     = "wt"
)

// Kind is the catalog an addon belongs to
type Kind int

const (
	KindConversion Kind = iota
	KindMap
	KindMod
)

// Kinds lists every catalog kind in scan order
var Kinds = []Kind{KindConversion, KindMap, KindMod}

func (k Kind) String() string {
	switch k {
	case KindConversion:
		return "tc"
	case KindMap:
		return "map"
	case KindMod:
		return "mod"
	default:
		return "unknown"
	}
}

// ParseKind parses manifest type values and their long forms
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tc", "conversion", "conversions":
		return KindConversion, nil
	case "map", "maps":
		return KindMap, nil
	case "mod", "mods":
		return KindMod, nil
	}
	return 0, fmt.Errorf("unknown addon type %q", s)
}

// Variant is the concrete addon shape. Construction goes through the
// manifest factory, the loose map builder or the legacy descriptor matcher.
type Variant int

const (
	VariantOfficialCampaign Variant = iota
	VariantCustomConversion
	VariantSingleMap
	VariantAutoloadMod
	VariantStandalone
)

func (v Variant) String() string {
	switch v {
	case VariantOfficialCampaign:
		return "official"
	case VariantCustomConversion:
		return "conversion"
	case VariantSingleMap:
		return "map"
	case VariantAutoloadMod:
		return "mod"
	case VariantStandalone:
		return "standalone"
	default:
		return "unknown"
	}
}

// Kind returns the catalog the variant is stored in
func (v Variant) Kind() Kind {
	switch v {
	case VariantSingleMap:
		return KindMap
	case VariantAutoloadMod:
		return KindMod
	default:
		return KindConversion
	}
}

// Identity addresses one catalog entry. IDs compare case-insensitively;
// an empty Version means unversioned.
type Identity struct {
	ID      string
	Version string
}

// Key returns the normalized form used as a map key
func (i Identity) Key() Identity {
	return Identity{ID: strings.ToLower(i.ID), Version: i.Version}
}

// SameID reports whether both identities name the same addon
func (i Identity) SameID(o Identity) bool {
	return strings.EqualFold(i.ID, o.ID)
}

// Equal compares identities with case-insensitive IDs
func (i Identity) Equal(o Identity) bool {
	return i.SameID(o) && i.Version == o.Version
}

// String renders "id" or "id@version"
func (i Identity) String() string {
	if i.Version == "" {
		return i.ID
	}
	return i.ID + "@" + i.Version
}

// ParseIdentity parses "id" or "id@version"
func ParseIdentity(s string) Identity {
	s = strings.TrimSpace(s)
	if idx := strings.LastIndex(s, "@"); idx > 0 {
		return Identity{ID: s[:idx], Version: s[idx+1:]}
	}
	return Identity{ID: s}
}

// SupportedGame is the game an addon targets
type SupportedGame struct {
	Game    Game
	Version string // Engine version tag, e.g. DukeVersionAtomic
	CRC     string // Required content CRC
}

// StartMap is either a file name or an episode/level slot
type StartMap struct {
	File    string
	Episode int
	Level   int
}

// IsSlot reports whether the start map is an episode/level pair
func (s StartMap) IsSlot() bool {
	return s.File == ""
}

func (s StartMap) String() string {
	if s.IsSlot() {
		return fmt.Sprintf("E%dL%d", s.Episode, s.Level)
	}
	return s.File
}

// Option is a user-selectable parameter group
type Option struct {
	Name       string
	Parameters map[string]string
}

// Addon is a single installable unit. Records are built once and only the
// Enabled flag of mods changes afterwards; the maps and slices are shared
// between clones and must be treated as read-only.
type Addon struct {
	Identity
	Variant     Variant
	Title       string
	Author      string
	Description string
	Game        SupportedGame

	Path       string // Backing file or folder
	IsUnpacked bool
	IsFavorite bool

	GridImageHash    uint64 // Zero when the package has no grid image
	PreviewImageHash uint64

	// Addon id (lowercase) -> version constraint, "" for any version
	Dependencies     map[string]string
	Incompatibles    map[string]string
	RequiredFeatures []string
	StartMap         *StartMap

	MainCon        string
	AdditionalCons []string
	MainDef        string
	AdditionalDefs []string
	RTS            string
	INI            string
	RFF            string
	SND            string

	Executables map[string]string // OS -> path relative to the addon folder
	Options     []Option

	Enabled bool
}

// Kind returns the catalog this addon lives in
func (a *Addon) Kind() Kind {
	return a.Variant.Kind()
}

// IsMod reports whether the addon is an autoload mod
func (a *Addon) IsMod() bool {
	return a.Variant == VariantAutoloadMod
}

// IsLooseMap reports whether the addon is a bare .map file without manifest
func (a *Addon) IsLooseMap() bool {
	return a.Variant == VariantSingleMap && strings.EqualFold(filepath.Ext(a.Path), ".map")
}

// DisplayName returns the title, falling back to the id
func (a *Addon) DisplayName() string {
	if a.Title != "" {
		return a.Title
	}
	return a.ID
}

// DependsOn reports whether the addon declares a dependency on id
func (a *Addon) DependsOn(id string) bool {
	_, ok := a.Dependencies[strings.ToLower(id)]
	return ok
}

// Clone returns a shallow copy
func (a *Addon) Clone() *Addon {
	c := *a
	return &c
}

// SortedDependencies returns dependency ids in a stable order
func (a *Addon) SortedDependencies() []string {
	return sortedKeys(a.Dependencies)
}

// SortedIncompatibles returns incompatible ids in a stable order
func (a *Addon) SortedIncompatibles() []string {
	return sortedKeys(a.Incompatibles)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package addons

import (
	"fmt"
	"sort"
	"strings"
)

// Source describes where a manifest was read from
type Source struct {
	Path             string
	IsUnpacked       bool
	GridImageHash    uint64
	PreviewImageHash uint64
}

// NewFromManifest builds the addon variant for a validated manifest. The
// declared type selects the variant; the target game selects which of the
// engine-specific fields are carried over.
func NewFromManifest(m *Manifest, src Source) (*Addon, error) {
	game, ok := ParseGame(m.Game.Name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown game %q", ErrMalformedManifest, m.Game.Name)
	}

	a := &Addon{
		Identity:         Identity{ID: m.ID, Version: m.Version},
		Title:            m.Title,
		Author:           m.Author,
		Description:      m.Description,
		Game:             SupportedGame{Game: game, Version: m.Game.Version, CRC: m.Game.CRC},
		Path:             src.Path,
		IsUnpacked:       src.IsUnpacked,
		GridImageHash:    src.GridImageHash,
		PreviewImageHash: src.PreviewImageHash,
		MainDef:          m.DefMain,
		AdditionalDefs:   m.DefModules,
		StartMap:         startMapFrom(m.StartMap),
		Options:          optionsFrom(m.Options),
	}

	if m.Dependencies != nil {
		a.Dependencies = refsToMap(m.Dependencies.Addons)
		a.RequiredFeatures = normalizeFeatures(m.Dependencies.Features)
	}
	if m.Incompatibles != nil {
		a.Incompatibles = refsToMap(m.Incompatibles.Addons)
	}
	if len(m.Executables) > 0 {
		a.Executables = make(map[string]string, len(m.Executables))
		for osName, p := range m.Executables {
			a.Executables[strings.ToLower(osName)] = p
		}
	}

	switch {
	case game.UsesCon():
		a.MainCon = m.ConMain
		a.AdditionalCons = m.ConModules
		a.RTS = m.RTS
	case game == GameBlood:
		a.INI = m.INI
		a.RFF = m.RFFMain
		a.SND = m.RFFSound
		a.RTS = m.RTS
	}

	switch strings.ToLower(m.Type) {
	case "tc":
		if game == GameStandalone {
			a.Variant = VariantStandalone
		} else {
			a.Variant = VariantCustomConversion
		}
	case "map":
		a.Variant = VariantSingleMap
	case "mod":
		if m.DefMain != "" {
			return nil, fmt.Errorf("%w: %s", ErrInvalidModDefinition, m.ID)
		}
		a.Variant = VariantAutoloadMod
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedManifest, m.Type)
	}

	return a, nil
}

func startMapFrom(sm *ManifestStartMap) *StartMap {
	if sm == nil {
		return nil
	}
	if sm.File != "" {
		return &StartMap{File: sm.File}
	}

	s := &StartMap{}
	switch {
	case sm.Episode != nil:
		s.Episode = *sm.Episode
	case sm.Volume != nil:
		s.Episode = *sm.Volume
	}
	if sm.Level != nil {
		s.Level = *sm.Level
	}
	return s
}

func optionsFrom(in []ManifestOption) []Option {
	if len(in) == 0 {
		return nil
	}
	out := make([]Option, 0, len(in))
	for _, o := range in {
		out = append(out, Option{Name: o.Name, Parameters: o.Parameters})
	}
	return out
}

func refsToMap(refs []ManifestAddonRef) map[string]string {
	if len(refs) == 0 {
		return nil
	}
	m := make(map[string]string, len(refs))
	for _, ref := range refs {
		m[strings.ToLower(strings.TrimSpace(ref.ID))] = strings.TrimSpace(ref.Version)
	}
	return m
}

func normalizeFeatures(features []string) []string {
	if len(features) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(features))
	out := make([]string, 0, len(features))
	for _, f := range features {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

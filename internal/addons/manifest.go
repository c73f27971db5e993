package addons

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrMalformedManifest    = errors.New("malformed addon manifest")
	ErrInvalidModDefinition = errors.New("mod manifests cannot declare def_main")
)

var knownOS = map[string]bool{"windows": true, "linux": true, "macos": true}

// Manifest is the addon.json schema
type Manifest struct {
	ID            string                 `json:"id"`
	Type          string                 `json:"type"`
	Game          ManifestGame           `json:"game"`
	Title         string                 `json:"title"`
	Version       string                 `json:"version"`
	Author        string                 `json:"author,omitempty"`
	Description   string                 `json:"description,omitempty"`
	ConMain       string                 `json:"con_main,omitempty"`
	ConModules    []string               `json:"con_modules,omitempty"`
	DefMain       string                 `json:"def_main,omitempty"`
	DefModules    []string               `json:"def_modules,omitempty"`
	RTS           string                 `json:"rts,omitempty"`
	INI           string                 `json:"ini,omitempty"`
	RFFMain       string                 `json:"rff_main,omitempty"`
	RFFSound      string                 `json:"rff_sound,omitempty"`
	StartMap      *ManifestStartMap      `json:"startmap,omitempty"`
	Dependencies  *ManifestDependencies  `json:"dependencies,omitempty"`
	Incompatibles *ManifestIncompatibles `json:"incompatibles,omitempty"`
	Executables   map[string]string      `json:"executables,omitempty"`
	Options       []ManifestOption       `json:"options,omitempty"`
}

// ManifestGame is the "game" object
type ManifestGame struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	CRC     string `json:"crc,omitempty"`
}

// ManifestStartMap is either {"file"} or {"episode"/"volume", "level"}
type ManifestStartMap struct {
	File    string `json:"file,omitempty"`
	Episode *int   `json:"episode,omitempty"`
	Volume  *int   `json:"volume,omitempty"`
	Level   *int   `json:"level,omitempty"`
}

// ManifestAddonRef references another addon with an optional version constraint
type ManifestAddonRef struct {
	ID      string `json:"id"`
	Version string `json:"version,omitempty"`
}

// ManifestDependencies is the "dependencies" object
type ManifestDependencies struct {
	Addons   []ManifestAddonRef `json:"addons,omitempty"`
	Features []string           `json:"features,omitempty"`
}

// ManifestIncompatibles is the "incompatibles" object
type ManifestIncompatibles struct {
	Addons []ManifestAddonRef `json:"addons,omitempty"`
}

// ManifestOption is one entry of "options"
type ManifestOption struct {
	Name       string            `json:"name"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// ParseManifest decodes and validates a manifest. Unknown fields are
// rejected at every nesting level.
func ParseManifest(r io.Reader) (*Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedManifest, err)
	}

	// Strip a UTF-8 BOM, common in manifests saved by Windows editors
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedManifest, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after manifest", ErrMalformedManifest)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks required fields and enumerations
func (m *Manifest) Validate() error {
	var missing []string
	if strings.TrimSpace(m.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(m.Type) == "" {
		missing = append(missing, "type")
	}
	if strings.TrimSpace(m.Game.Name) == "" {
		missing = append(missing, "game.name")
	}
	if strings.TrimSpace(m.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(m.Version) == "" {
		missing = append(missing, "version")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrMalformedManifest, strings.Join(missing, ", "))
	}

	switch strings.ToLower(m.Type) {
	case "tc", "map", "mod":
	default:
		return fmt.Errorf("%w: unknown type %q", ErrMalformedManifest, m.Type)
	}

	if _, ok := ParseGame(m.Game.Name); !ok {
		return fmt.Errorf("%w: unknown game %q", ErrMalformedManifest, m.Game.Name)
	}

	for osName := range m.Executables {
		if !knownOS[strings.ToLower(osName)] {
			return fmt.Errorf("%w: unknown executable platform %q", ErrMalformedManifest, osName)
		}
	}

	if sm := m.StartMap; sm != nil {
		hasSlot := sm.Level != nil || sm.Episode != nil || sm.Volume != nil
		if sm.File != "" && hasSlot {
			return fmt.Errorf("%w: startmap mixes file and slot", ErrMalformedManifest)
		}
		if sm.File == "" && sm.Level == nil {
			return fmt.Errorf("%w: startmap needs file or level", ErrMalformedManifest)
		}
	}

	if m.Dependencies != nil {
		for _, ref := range m.Dependencies.Addons {
			if strings.TrimSpace(ref.ID) == "" {
				return fmt.Errorf("%w: dependency without id", ErrMalformedManifest)
			}
		}
	}
	if m.Incompatibles != nil {
		for _, ref := range m.Incompatibles.Addons {
			if strings.TrimSpace(ref.ID) == "" {
				return fmt.Errorf("%w: incompatible addon without id", ErrMalformedManifest)
			}
		}
	}

	return nil
}

// NeedsUnpacking reports whether the addon references side files the engine
// cannot read from inside an archive.
func (m *Manifest) NeedsUnpacking() bool {
	return m.RFFMain != "" || m.RFFSound != "" || len(m.Executables) > 0
}

package catalog

import (
	"strings"

	"github.com/bnema/buildctl/internal/addons"
	"github.com/bnema/buildctl/internal/vercmp"
)

// Snapshot is an immutable view of one catalog. The addons it hands out are
// shared with other readers and must not be modified.
type Snapshot struct {
	byKey  map[addons.Identity]*addons.Addon
	sorted []*addons.Addon
}

var emptySnapshot = &Snapshot{byKey: map[addons.Identity]*addons.Addon{}}

func newSnapshot(entries map[addons.Identity]*addons.Addon) *Snapshot {
	s := &Snapshot{
		byKey:  entries,
		sorted: make([]*addons.Addon, 0, len(entries)),
	}
	for _, a := range entries {
		s.sorted = append(s.sorted, a)
	}
	sortAddons(s.sorted)
	return s
}

// Len returns the number of entries
func (s *Snapshot) Len() int {
	return len(s.sorted)
}

// All returns every entry ordered by id, then version
func (s *Snapshot) All() []*addons.Addon {
	out := make([]*addons.Addon, len(s.sorted))
	copy(out, s.sorted)
	return out
}

// Get returns the entry for an exact identity
func (s *Snapshot) Get(id addons.Identity) (*addons.Addon, bool) {
	a, ok := s.byKey[id.Key()]
	return a, ok
}

// Versions returns every entry with the given id, oldest first
func (s *Snapshot) Versions(id string) []*addons.Addon {
	id = strings.ToLower(id)
	var out []*addons.Addon
	for _, a := range s.sorted {
		if a.Key().ID == id {
			out = append(out, a)
		}
	}
	return out
}

// Lookup resolves "id" or "id@version". A bare id matches an unversioned
// entry first, then the highest installed version.
func (s *Snapshot) Lookup(ref string) (*addons.Addon, bool) {
	id := addons.ParseIdentity(ref)
	if a, ok := s.Get(id); ok {
		return a, true
	}
	if id.Version != "" {
		return nil, false
	}

	var best *addons.Addon
	for _, a := range s.Versions(id.ID) {
		if best == nil || vercmp.Newer(a.Version, best.Version) {
			best = a
		}
	}
	return best, best != nil
}

// Enabled returns the enabled mods
func (s *Snapshot) Enabled() []*addons.Addon {
	var out []*addons.Addon
	for _, a := range s.sorted {
		if a.IsMod() && a.Enabled {
			out = append(out, a)
		}
	}
	return out
}

// clone copies the entries so a mutation can work on them without
// affecting readers of s
func (s *Snapshot) clone() map[addons.Identity]*addons.Addon {
	out := make(map[addons.Identity]*addons.Addon, len(s.byKey))
	for k, a := range s.byKey {
		out[k] = a.Clone()
	}
	return out
}

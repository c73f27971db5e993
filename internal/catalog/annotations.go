package catalog

import (
	"strings"

	"github.com/bnema/buildctl/internal/addons"
	"github.com/bnema/buildctl/internal/vercmp"
)

// versionsOf collects installed entries with id across every kind
func (c *Cache) versionsOf(id string) []*addons.Addon {
	var out []*addons.Addon
	for _, kind := range addons.Kinds {
		out = append(out, c.Get(kind).Versions(id)...)
	}
	return out
}

// HasNewerVersion reports whether another installed package of the same id
// carries a strictly newer version
func (c *Cache) HasNewerVersion(id addons.Identity) bool {
	for _, a := range c.versionsOf(id.ID) {
		if vercmp.Newer(a.Version, id.Version) {
			return true
		}
	}
	return false
}

// IsInstalled reports whether id is installed, at the given version when
// version is not empty
func (c *Cache) IsInstalled(id, version string) bool {
	for _, a := range c.versionsOf(id) {
		if version == "" || a.Version == version {
			return true
		}
	}
	return false
}

// NewerThanInstalled reports whether a remote version of an installed addon
// is newer than every installed copy
func (c *Cache) NewerThanInstalled(id, version string) bool {
	installed := c.versionsOf(id)
	if len(installed) == 0 {
		return false
	}
	for _, a := range installed {
		if !vercmp.Newer(version, a.Version) {
			return false
		}
	}
	return true
}

// UnmetDependency is a declared dependency that no installed version meets
type UnmetDependency struct {
	ID         string
	Constraint string
	Installed  []string // Installed versions of ID, empty when missing
}

// DependencyReport evaluates an addon's declared constraints against the
// installed and enabled mods. The cascade itself never consults it.
type DependencyReport struct {
	Addon            addons.Identity
	Missing          []string
	Unsatisfied      []UnmetDependency
	Conflicts        []addons.Identity
	RequiredFeatures []string
}

// OK reports whether nothing is missing, unmet or conflicting
func (r DependencyReport) OK() bool {
	return len(r.Missing) == 0 && len(r.Unsatisfied) == 0 && len(r.Conflicts) == 0
}

// CheckDependencies reports unmet dependency constraints and active
// incompatibilities for an installed addon
func (c *Cache) CheckDependencies(id addons.Identity) (DependencyReport, error) {
	var target *addons.Addon
	for _, kind := range addons.Kinds {
		if a, ok := c.Get(kind).Get(id); ok {
			target = a
			break
		}
	}
	if target == nil {
		return DependencyReport{}, ErrAddonNotFound
	}

	report := DependencyReport{
		Addon:            target.Identity,
		RequiredFeatures: target.RequiredFeatures,
	}

	for _, depID := range target.SortedDependencies() {
		constraint := target.Dependencies[depID]
		installed := c.versionsOf(depID)
		if len(installed) == 0 {
			report.Missing = append(report.Missing, depID)
			continue
		}

		satisfied := false
		versions := make([]string, 0, len(installed))
		for _, a := range installed {
			versions = append(versions, a.Version)
			if vercmp.Satisfies(a.Version, constraint) {
				satisfied = true
			}
		}
		if !satisfied {
			report.Unsatisfied = append(report.Unsatisfied, UnmetDependency{
				ID:         depID,
				Constraint: constraint,
				Installed:  versions,
			})
		}
	}

	for _, mod := range c.Get(addons.KindMod).Enabled() {
		if mod.Key() == target.Key() {
			continue
		}
		if conflicts(target, mod) || conflicts(mod, target) {
			report.Conflicts = append(report.Conflicts, mod.Identity)
		}
	}

	return report, nil
}

// conflicts reports whether a declares other incompatible
func conflicts(a, other *addons.Addon) bool {
	constraint, ok := a.Incompatibles[strings.ToLower(other.ID)]
	return ok && vercmp.Satisfies(other.Version, constraint)
}

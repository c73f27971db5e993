package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bnema/buildctl/internal/addons"
	"github.com/bnema/buildctl/internal/vercmp"
)

// cascade walks dependency and incompatibility edges over a working copy of
// the mod catalog. The already-enabled/already-disabled guards are what
// terminate the walk on cyclic graphs.
type cascade struct {
	mods    map[addons.Identity]*addons.Addon
	persist func(id addons.Identity, enabled bool) error
	changed bool
	errs    []error

	// recorded holds the last state persisted per identity
	recorded map[addons.Identity]bool
}

func newCascade(mods map[addons.Identity]*addons.Addon, persist func(addons.Identity, bool) error) *cascade {
	return &cascade{mods: mods, persist: persist, recorded: make(map[addons.Identity]bool)}
}

func (c *cascade) lookup(id addons.Identity) (*addons.Addon, bool) {
	a, ok := c.mods[id.Key()]
	if !ok || !a.IsMod() {
		return nil, false
	}
	return a, true
}

// enable turns a mod on, pulls in its dependencies, and turns off its
// incompatibilities and every other installed version of the same id.
func (c *cascade) enable(id addons.Identity) {
	a, ok := c.lookup(id)
	if !ok || a.Enabled {
		return
	}

	a.Enabled = true
	c.changed = true

	// Dependencies are pulled in regardless of their version constraint
	for _, depID := range a.SortedDependencies() {
		if dep := c.highestVersion(depID); dep != nil {
			c.enable(dep.Identity)
		}
	}

	for _, incID := range a.SortedIncompatibles() {
		for _, inc := range c.versionsOf(incID) {
			c.disable(inc.Identity)
		}
	}

	for _, other := range c.versionsOf(a.ID) {
		if other.Version != a.Version {
			c.disable(other.Identity)
		}
	}

	c.record(a)
}

// disable turns a mod off together with every mod that depends on its id
func (c *cascade) disable(id addons.Identity) {
	a, ok := c.lookup(id)
	if !ok || !a.Enabled {
		return
	}

	a.Enabled = false
	c.changed = true

	for _, dependent := range c.sorted() {
		if dependent.DependsOn(a.ID) {
			c.disable(dependent.Identity)
		}
	}

	c.record(a)
}

// record persists the mod's current state, which a nested step may have
// flipped since this step changed it. A state already recorded during this
// walk is not written again.
func (c *cascade) record(a *addons.Addon) {
	if c.persist == nil {
		return
	}
	key := a.Key()
	if last, ok := c.recorded[key]; ok && last == a.Enabled {
		return
	}
	c.recorded[key] = a.Enabled
	if err := c.persist(a.Identity, a.Enabled); err != nil {
		c.errs = append(c.errs, fmt.Errorf("persist %s: %w", a.Identity, err))
	}
}

// versionsOf returns every installed mod with the given id, ordered
func (c *cascade) versionsOf(id string) []*addons.Addon {
	id = strings.ToLower(id)
	var out []*addons.Addon
	for key, a := range c.mods {
		if key.ID == id && a.IsMod() {
			out = append(out, a)
		}
	}
	sortAddons(out)
	return out
}

// highestVersion picks the dependency target among installed versions
func (c *cascade) highestVersion(id string) *addons.Addon {
	var best *addons.Addon
	for _, a := range c.versionsOf(id) {
		if best == nil || vercmp.Newer(a.Version, best.Version) {
			best = a
		}
	}
	return best
}

func (c *cascade) sorted() []*addons.Addon {
	out := make([]*addons.Addon, 0, len(c.mods))
	for _, a := range c.mods {
		if a.IsMod() {
			out = append(out, a)
		}
	}
	sortAddons(out)
	return out
}

// sortAddons orders by lowercase id, then by version, oldest first
func sortAddons(list []*addons.Addon) {
	sort.SliceStable(list, func(i, j int) bool {
		ki, kj := list[i].Key(), list[j].Key()
		if ki.ID != kj.ID {
			return ki.ID < kj.ID
		}
		if c, ok := vercmp.Cmp(ki.Version, kj.Version); ok && c != 0 {
			return c < 0
		}
		return ki.Version < kj.Version
	})
}

// Package catalog keeps the per-game addon catalogs (conversions, maps and
// mods) built from the addon directories, and the enable/disable cascade
// that keeps the mod set consistent.
//
// Every mutation of one game's catalogs is serialized behind a single lock.
// Readers never block: they get the last published Snapshot, which is never
// modified after publication.
package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/bnema/buildctl/internal/addons"
	"github.com/bnema/buildctl/internal/vercmp"
)

var (
	ErrAddonNotFound = errors.New("addon not found")
	ErrNotAnAddon    = errors.New("path does not contain an addon")
	ErrWrongGame     = errors.New("addon targets another game")
	ErrReadOnly      = errors.New("official campaigns cannot be removed")
	ErrUnknownKind   = errors.New("unknown addon kind")
	ErrLooseManifest = errors.New("addon manifest must live in its own folder")
	ErrUnsafeDelete  = errors.New("refusing to remove an addon directory")
)

// Resolver turns a path into addon records
type Resolver interface {
	Resolve(path string) ([]*addons.Addon, error)
}

// Settings persists mod enablement
type Settings interface {
	DisabledMods(game addons.Game) map[string]bool
	Persist(game addons.Game, id addons.Identity, enabled bool) error
	Forget(game addons.Game, id addons.Identity) error
}

// Campaigns lists the built-in official campaigns of a game
type Campaigns interface {
	Campaigns(game addons.Game) []*addons.Addon
}

// Backups copies an addon package aside before it is deleted
type Backups interface {
	CreateBackup(a *addons.Addon) (string, error)
}

// Dirs locates the directory of each addon kind
type Dirs interface {
	Dir(kind addons.Kind) string
}

// Options configures a Cache. Settings, Campaigns, Backups and Logger are
// optional.
type Options struct {
	Game      addons.Game
	Dirs      Dirs
	Resolver  Resolver
	Settings  Settings
	Campaigns Campaigns
	Backups   Backups
	Logger    *log.Logger
}

// RescanResult summarizes one catalog rebuild. Errors holds the files that
// were skipped; they never abort the rescan.
type RescanResult struct {
	Kind   addons.Kind
	Count  int
	Reused int
	Errors []error
}

// Cache holds the catalogs of one game
type Cache struct {
	game      addons.Game
	dirs      Dirs
	resolver  Resolver
	settings  Settings
	campaigns Campaigns
	backups   Backups
	log       *log.Logger

	mu       sync.Mutex
	stale    atomic.Bool
	catalogs [3]atomic.Pointer[Snapshot]

	observers observers
}

// New creates an empty cache. Use Registry.For to share one per game.
func New(opts Options) *Cache {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Cache{
		game:      opts.Game,
		dirs:      opts.Dirs,
		resolver:  opts.Resolver,
		settings:  opts.Settings,
		campaigns: opts.Campaigns,
		backups:   opts.Backups,
		log:       logger,
	}
}

// Game returns the game this cache serves
func (c *Cache) Game() addons.Game {
	return c.game
}

// IsStale reports whether a rescan is in progress
func (c *Cache) IsStale() bool {
	return c.stale.Load()
}

// Subscribe registers fn for catalog-changed events and returns a function
// that removes it. Events fire after the mutation is published.
func (c *Cache) Subscribe(fn func(Event)) func() {
	return c.observers.subscribe(fn)
}

// Get returns the current catalog of kind. Before the first conversion scan
// the official campaigns are served.
func (c *Cache) Get(kind addons.Kind) *Snapshot {
	slot := c.slot(kind)
	if slot == nil {
		return emptySnapshot
	}
	if s := slot.Load(); s != nil {
		return s
	}
	if kind == addons.KindConversion && c.campaigns != nil {
		m := make(map[addons.Identity]*addons.Addon)
		for _, a := range c.campaigns.Campaigns(c.game) {
			insertFirst(m, a)
		}
		return newSnapshot(m)
	}
	return emptySnapshot
}

func (c *Cache) slot(kind addons.Kind) *atomic.Pointer[Snapshot] {
	if kind < 0 || int(kind) >= len(c.catalogs) {
		return nil
	}
	return &c.catalogs[kind]
}

// current returns the published snapshot without the official fallback
func (c *Cache) current(kind addons.Kind) *Snapshot {
	if s := c.slot(kind).Load(); s != nil {
		return s
	}
	return emptySnapshot
}

func (c *Cache) publish(kind addons.Kind, entries map[addons.Identity]*addons.Addon) {
	c.slot(kind).Store(newSnapshot(entries))
}

func (c *Cache) notify(kinds ...addons.Kind) {
	for _, k := range kinds {
		c.observers.notify(Event{Game: c.game, Kind: k})
	}
}

func (c *Cache) persistFunc() func(addons.Identity, bool) error {
	if c.settings == nil {
		return nil
	}
	return func(id addons.Identity, enabled bool) error {
		return c.settings.Persist(c.game, id, enabled)
	}
}

func (c *Cache) disabledMods() map[string]bool {
	if c.settings == nil {
		return map[string]bool{}
	}
	return c.settings.DisabledMods(c.game)
}

// RescanAll rescans every kind in order
func (c *Cache) RescanAll(forceFull bool) ([]*RescanResult, error) {
	results := make([]*RescanResult, 0, len(addons.Kinds))
	for _, kind := range addons.Kinds {
		r, err := c.Rescan(forceFull, kind)
		if err != nil {
			return results, err
		}
		results = append(results, r)
	}
	return results, nil
}

// Rescan rebuilds the catalog of kind from its directory. An incremental
// rescan reuses the records of directory entries it already knows; a full
// one resolves everything again. Mods get their persisted state re-applied
// through the cascade.
func (c *Cache) Rescan(forceFull bool, kind addons.Kind) (*RescanResult, error) {
	if c.slot(kind) == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, kind)
	}

	result, err := c.rescan(forceFull, kind)
	if err != nil {
		return nil, err
	}
	c.notify(kind)
	return result, nil
}

func (c *Cache) rescan(forceFull bool, kind addons.Kind) (*RescanResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stale.Store(true)
	defer c.stale.Store(false)

	dir := c.dirs.Dir(kind)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read %s: %w", dir, err)
		}
		entries = nil
	}

	c.log.Debug("Rescanning catalog", "game", c.game, "kind", kind, "dir", dir, "full", forceFull)

	reusable := make(map[string][]*addons.Addon)
	if !forceFull {
		for _, a := range c.current(kind).sorted {
			if src := sourceOf(dir, a.Path); src != "" {
				reusable[src] = append(reusable[src], a)
			}
		}
	}

	result := &RescanResult{Kind: kind}
	catalog := make(map[addons.Identity]*addons.Addon)

	if kind == addons.KindConversion && c.campaigns != nil {
		for _, a := range c.campaigns.Campaigns(c.game) {
			insertFirst(catalog, a)
		}
	}

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		p := filepath.Join(dir, name)

		var found []*addons.Addon
		if known, ok := reusable[name]; ok {
			for _, a := range known {
				found = append(found, a.Clone())
			}
			result.Reused += len(known)
		} else {
			found, err = c.resolver.Resolve(p)
			if err != nil {
				c.log.Warn("Skipping addon", "path", p, "error", err)
				result.Errors = append(result.Errors, err)
				continue
			}
		}

		for _, a := range found {
			if c.isKindDir(a.Path) {
				err := fmt.Errorf("%w: %s", ErrLooseManifest, p)
				c.log.Warn("Skipping addon", "path", p, "error", err)
				result.Errors = append(result.Errors, err)
				continue
			}
			if a.Game.Game != c.game {
				c.log.Debug("Skipping addon for another game", "path", p, "game", a.Game.Game)
				continue
			}
			if a.Kind() != kind {
				c.log.Warn("Addon kind does not match its directory", "path", p, "kind", a.Kind(), "dir", kind)
				continue
			}
			a.Enabled = false
			if kind == addons.KindMod {
				insertNewest(catalog, a)
			} else {
				insertFirst(catalog, a)
			}
		}
	}

	if kind == addons.KindMod {
		result.Errors = append(result.Errors, c.restoreState(catalog)...)
	}

	c.publish(kind, catalog)
	result.Count = len(catalog)

	c.log.Info("Catalog rescanned",
		"game", c.game,
		"kind", kind,
		"count", result.Count,
		"reused", result.Reused,
		"errors", len(result.Errors))

	return result, nil
}

// restoreState replays the persisted state of every mod through the cascade,
// which also heals inconsistencies introduced by newly found mods
func (c *Cache) restoreState(mods map[addons.Identity]*addons.Addon) []error {
	disabled := c.disabledMods()
	cas := newCascade(mods, c.persistFunc())
	for _, a := range cas.sorted() {
		if disabled[addons.StateKey(a.Identity)] {
			cas.disable(a.Identity)
		} else {
			cas.enable(a.Identity)
		}
	}
	return cas.errs
}

// insertFirst keeps the first entry seen for an identity
func insertFirst(m map[addons.Identity]*addons.Addon, a *addons.Addon) {
	if _, ok := m[a.Key()]; !ok {
		m[a.Key()] = a
	}
}

// insertNewest keeps one entry per id: a versioned or strictly newer
// package replaces the existing one, otherwise the first seen wins
func insertNewest(m map[addons.Identity]*addons.Addon, a *addons.Addon) {
	id := a.Key().ID
	for key, existing := range m {
		if key.ID != id {
			continue
		}
		if vercmp.Newer(a.Version, existing.Version) {
			delete(m, key)
			m[a.Key()] = a
		}
		return
	}
	m[a.Key()] = a
}

// isKindDir reports whether p is one of the game's addon directories
func (c *Cache) isKindDir(p string) bool {
	p = filepath.Clean(p)
	for _, kind := range addons.Kinds {
		if filepath.Clean(c.dirs.Dir(kind)) == p {
			return true
		}
	}
	return false
}

// sourceOf returns the directory entry of dir that p lives in
func sourceOf(dir, p string) string {
	rel, err := filepath.Rel(dir, p)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}
	return strings.Split(filepath.ToSlash(rel), "/")[0]
}

// Enable turns a mod on and cascades. Unknown identities, non-mods and
// already enabled mods are left alone.
func (c *Cache) Enable(id addons.Identity) error {
	return c.toggle(id, true)
}

// Disable turns a mod off together with its dependents
func (c *Cache) Disable(id addons.Identity) error {
	return c.toggle(id, false)
}

func (c *Cache) toggle(id addons.Identity, enable bool) error {
	changed, err := c.toggleLocked(id, enable)
	if changed {
		c.notify(addons.KindMod)
	}
	return err
}

func (c *Cache) toggleLocked(id addons.Identity, enable bool) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	working := c.current(addons.KindMod).clone()
	cas := newCascade(working, c.persistFunc())
	if enable {
		cas.enable(id)
	} else {
		cas.disable(id)
	}

	if cas.changed {
		c.publish(addons.KindMod, working)
		c.log.Info("Mod state changed", "game", c.game, "mod", id, "enabled", enable)
	}
	return cas.changed, errors.Join(cas.errs...)
}

// Add resolves a package that is already in place and inserts its addons.
// Entries with the same identity are replaced; other versions of the same id
// are kept and reconciled by the cascade. New mods are enabled unless their
// identity is persisted as disabled.
func (c *Cache) Add(p string) ([]*addons.Addon, error) {
	added, kinds, err := c.add(p)
	c.notify(kinds...)
	return added, err
}

func (c *Cache) add(p string) ([]*addons.Addon, []addons.Kind, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	found, err := c.resolver.Resolve(p)
	if err != nil {
		return nil, nil, err
	}
	if len(found) == 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotAnAddon, p)
	}

	working := make(map[addons.Kind]map[addons.Identity]*addons.Addon)
	var (
		added    []*addons.Addon
		rejected error
	)
	for _, a := range found {
		if c.isKindDir(a.Path) {
			rejected = fmt.Errorf("%w: %s", ErrLooseManifest, p)
			c.log.Warn("Ignoring addon", "path", p, "error", rejected)
			continue
		}
		if a.Game.Game != c.game {
			c.log.Warn("Ignoring addon for another game", "path", p, "id", a.ID, "game", a.Game.Game)
			continue
		}
		kind := a.Kind()
		w, ok := working[kind]
		if !ok {
			w = c.current(kind).clone()
			working[kind] = w
		}
		a.Enabled = false
		w[a.Key()] = a
		added = append(added, a)
	}
	if len(added) == 0 {
		if rejected != nil {
			return nil, nil, rejected
		}
		return nil, nil, fmt.Errorf("%w: %s", ErrWrongGame, p)
	}

	var errs []error
	if mods, ok := working[addons.KindMod]; ok {
		disabled := c.disabledMods()
		cas := newCascade(mods, c.persistFunc())
		for _, a := range added {
			if a.IsMod() && !disabled[addons.StateKey(a.Identity)] {
				cas.enable(a.Identity)
			}
		}
		errs = cas.errs
	}

	var kinds []addons.Kind
	for _, kind := range addons.Kinds {
		if w, ok := working[kind]; ok {
			c.publish(kind, w)
			kinds = append(kinds, kind)
		}
	}

	result := make([]*addons.Addon, 0, len(added))
	for _, a := range added {
		c.log.Info("Addon added", "game", c.game, "addon", a.Identity, "path", a.Path)
		result = append(result, a.Clone())
	}
	return result, kinds, errors.Join(errs...)
}

// Delete removes an addon's backing file or folder, loose map siblings,
// and every catalog entry backed by the same path. Mods are disabled first
// so their dependents follow.
func (c *Cache) Delete(kind addons.Kind, id addons.Identity, backup bool) error {
	if c.slot(kind) == nil {
		return fmt.Errorf("%w: %d", ErrUnknownKind, kind)
	}
	changed, err := c.delete(kind, id, backup)
	if changed {
		c.notify(kind)
	}
	return err
}

func (c *Cache) delete(kind addons.Kind, id addons.Identity, backup bool) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.current(kind)
	target, ok := snap.Get(id)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrAddonNotFound, id)
	}
	if target.Variant == addons.VariantOfficialCampaign {
		return false, fmt.Errorf("%w: %s", ErrReadOnly, id)
	}
	if c.isKindDir(target.Path) {
		return false, fmt.Errorf("%w: %s", ErrUnsafeDelete, target.Path)
	}

	if backup && c.backups != nil {
		backupPath, err := c.backups.CreateBackup(target)
		if err != nil {
			return false, fmt.Errorf("failed to backup %s: %w", id, err)
		}
		c.log.Info("Addon backed up", "addon", id, "backup", backupPath)
	}

	if err := removeBacking(target); err != nil {
		return false, fmt.Errorf("failed to remove %s: %w", target.Path, err)
	}

	working := snap.clone()
	var removed []*addons.Addon
	for _, a := range cascadeOrder(working) {
		if a.Path == target.Path {
			removed = append(removed, a)
		}
	}

	var errs []error
	if kind == addons.KindMod {
		cas := newCascade(working, c.persistFunc())
		for _, a := range removed {
			cas.disable(a.Identity)
		}
		errs = cas.errs
	}

	for _, a := range removed {
		delete(working, a.Key())
		if c.settings != nil && a.IsMod() {
			if err := c.settings.Forget(c.game, a.Identity); err != nil {
				errs = append(errs, err)
			}
		}
		c.log.Info("Addon deleted", "game", c.game, "addon", a.Identity, "path", a.Path)
	}

	c.publish(kind, working)
	return true, errors.Join(errs...)
}

func cascadeOrder(m map[addons.Identity]*addons.Addon) []*addons.Addon {
	out := make([]*addons.Addon, 0, len(m))
	for _, a := range m {
		out = append(out, a)
	}
	sortAddons(out)
	return out
}

func removeBacking(a *addons.Addon) error {
	if err := os.RemoveAll(a.Path); err != nil {
		return err
	}
	if !a.IsLooseMap() {
		return nil
	}

	// Loose maps ship with side files sharing their base name (.txt, .art, ...)
	dir := filepath.Dir(a.Path)
	base := filepath.Base(a.Path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.EqualFold(strings.TrimSuffix(name, filepath.Ext(name)), stem) {
			if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
	}
	return nil
}

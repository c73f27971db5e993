package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/bnema/buildctl/internal/addons"
)

type testDirs struct {
	root string
}

func (d testDirs) Dir(kind addons.Kind) string {
	return filepath.Join(d.root, kind.String())
}

// fakeResolver serves preset addons by file name
type fakeResolver struct {
	mu      sync.Mutex
	entries map[string][]*addons.Addon
	errs    map[string]error
	calls   int
	hook    func(path string)
}

func (f *fakeResolver) Resolve(p string) ([]*addons.Addon, error) {
	f.mu.Lock()
	f.calls++
	hook := f.hook
	f.mu.Unlock()

	if hook != nil {
		hook(p)
	}

	name := filepath.Base(p)
	if err := f.errs[name]; err != nil {
		return nil, err
	}
	var out []*addons.Addon
	for _, a := range f.entries[name] {
		c := a.Clone()
		c.Path = p
		out = append(out, c)
	}
	return out, nil
}

type persistCall struct {
	key     string
	enabled bool
}

type memSettings struct {
	disabled  map[string]bool
	persisted []persistCall
	forgotten []string
}

func newMemSettings(disabled ...string) *memSettings {
	m := &memSettings{disabled: make(map[string]bool)}
	for _, k := range disabled {
		m.disabled[k] = true
	}
	return m
}

func (m *memSettings) DisabledMods(addons.Game) map[string]bool {
	out := make(map[string]bool, len(m.disabled))
	for k, v := range m.disabled {
		out[k] = v
	}
	return out
}

func (m *memSettings) Persist(_ addons.Game, id addons.Identity, enabled bool) error {
	key := addons.StateKey(id)
	m.persisted = append(m.persisted, persistCall{key, enabled})
	if enabled {
		delete(m.disabled, key)
	} else {
		m.disabled[key] = true
	}
	return nil
}

func (m *memSettings) Forget(_ addons.Game, id addons.Identity) error {
	key := addons.StateKey(id)
	m.forgotten = append(m.forgotten, key)
	delete(m.disabled, key)
	return nil
}

func (m *memSettings) IsFavorite(addons.Game, string) bool {
	return false
}

type testEnv struct {
	t        *testing.T
	dirs     testDirs
	resolver *fakeResolver
	settings *memSettings
	cache    *Cache
}

func newTestEnv(t *testing.T, settings *memSettings) *testEnv {
	t.Helper()

	dirs := testDirs{root: t.TempDir()}
	for _, kind := range addons.Kinds {
		if err := os.MkdirAll(dirs.Dir(kind), 0755); err != nil {
			t.Fatal(err)
		}
	}

	resolver := &fakeResolver{
		entries: make(map[string][]*addons.Addon),
		errs:    make(map[string]error),
	}
	opts := Options{
		Game:     addons.GameDuke3D,
		Dirs:     dirs,
		Resolver: resolver,
	}
	if settings != nil {
		opts.Settings = settings
	}
	return &testEnv{
		t:        t,
		dirs:     dirs,
		resolver: resolver,
		settings: settings,
		cache:    New(opts),
	}
}

// put creates a file in the kind directory that resolves to list
func (e *testEnv) put(kind addons.Kind, name string, list ...*addons.Addon) string {
	e.t.Helper()
	p := filepath.Join(e.dirs.Dir(kind), name)
	if err := os.WriteFile(p, []byte(name), 0644); err != nil {
		e.t.Fatal(err)
	}
	e.resolver.entries[name] = list
	return p
}

func (e *testEnv) rescan(kind addons.Kind) *RescanResult {
	e.t.Helper()
	r, err := e.cache.Rescan(true, kind)
	if err != nil {
		e.t.Fatalf("Rescan() error: %v", err)
	}
	return r
}

func (e *testEnv) enabled(id, version string) bool {
	e.t.Helper()
	a, ok := e.cache.Get(addons.KindMod).Get(addons.Identity{ID: id, Version: version})
	if !ok {
		e.t.Fatalf("mod %s@%s not in catalog", id, version)
	}
	return a.Enabled
}

func mod(id, version string) *addons.Addon {
	return &addons.Addon{
		Identity: addons.Identity{ID: id, Version: version},
		Variant:  addons.VariantAutoloadMod,
		Title:    id,
		Game:     addons.SupportedGame{Game: addons.GameDuke3D},
	}
}

func dependsOn(a *addons.Addon, ids ...string) *addons.Addon {
	if a.Dependencies == nil {
		a.Dependencies = make(map[string]string)
	}
	for _, id := range ids {
		a.Dependencies[id] = ""
	}
	return a
}

func incompatibleWith(a *addons.Addon, ids ...string) *addons.Addon {
	if a.Incompatibles == nil {
		a.Incompatibles = make(map[string]string)
	}
	for _, id := range ids {
		a.Incompatibles[id] = ""
	}
	return a
}

func TestRescanDedupByVersion(t *testing.T) {
	tests := []struct {
		name  string
		files [][2]string // file name, version
		want  string
	}{
		{"versioned replaces unversioned", [][2]string{{"1", ""}, {"2", "2.0"}}, "2.0"},
		{"unversioned does not replace versioned", [][2]string{{"1", "2.0"}, {"2", ""}}, "2.0"},
		{"higher replaces lower", [][2]string{{"1", "1.0"}, {"2", "2.0"}}, "2.0"},
		{"lower does not replace higher", [][2]string{{"1", "2.0"}, {"2", "1.0"}}, "2.0"},
		{"equal keeps first seen", [][2]string{{"1", "1.0"}, {"2", "1.0"}}, "1.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t, newMemSettings())
			for _, f := range tt.files {
				e.put(addons.KindMod, f[0], mod("A", f[1]))
			}

			e.rescan(addons.KindMod)

			versions := e.cache.Get(addons.KindMod).Versions("a")
			if len(versions) != 1 {
				t.Fatalf("expected one entry for id a, got %d", len(versions))
			}
			if versions[0].Version != tt.want {
				t.Fatalf("expected version %q, got %q", tt.want, versions[0].Version)
			}
			if tt.name == "equal keeps first seen" && filepath.Base(versions[0].Path) != "1" {
				t.Fatalf("expected first-seen package, got %s", versions[0].Path)
			}
		})
	}
}

func TestRescanRestoresPersistedState(t *testing.T) {
	e := newTestEnv(t, newMemSettings("c"))
	e.put(addons.KindMod, "a.zip", mod("a", ""))
	e.put(addons.KindMod, "b.zip", mod("b", ""))
	e.put(addons.KindMod, "c.zip", mod("c", ""))

	e.rescan(addons.KindMod)

	if !e.enabled("a", "") || !e.enabled("b", "") {
		t.Error("mods without persisted state should be enabled")
	}
	if e.enabled("c", "") {
		t.Error("persisted disabled mod should stay disabled")
	}
}

func TestEnableCascade(t *testing.T) {
	e := newTestEnv(t, newMemSettings("a@1.0", "a@2.0", "b"))
	e.put(addons.KindMod, "a1", incompatibleWith(dependsOn(mod("a", "1.0"), "b"), "c"))
	e.put(addons.KindMod, "b", mod("b", ""))
	e.put(addons.KindMod, "c", mod("c", ""))
	e.rescan(addons.KindMod)

	if e.enabled("a", "1.0") || e.enabled("b", "") || !e.enabled("c", "") {
		t.Fatal("unexpected initial state")
	}

	// A second installed version of a, added next to the first
	a2 := e.put(addons.KindMod, "a2", incompatibleWith(dependsOn(mod("a", "2.0"), "b"), "c"))
	if _, err := e.cache.Add(a2); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if e.enabled("a", "2.0") {
		t.Fatal("persisted disabled identity must not be enabled by Add")
	}

	if err := e.cache.Enable(addons.Identity{ID: "a", Version: "2.0"}); err != nil {
		t.Fatalf("Enable() error: %v", err)
	}
	if !e.enabled("a", "2.0") || !e.enabled("b", "") {
		t.Error("expected a@2.0 and its dependency b enabled")
	}
	if e.enabled("c", "") {
		t.Error("expected incompatible c disabled")
	}

	if err := e.cache.Enable(addons.Identity{ID: "A", Version: "1.0"}); err != nil {
		t.Fatalf("Enable() error: %v", err)
	}
	if !e.enabled("a", "1.0") {
		t.Error("expected a@1.0 enabled")
	}
	if e.enabled("a", "2.0") {
		t.Error("expected other version a@2.0 disabled")
	}

	if !e.settings.disabled["a@2.0"] || e.settings.disabled["a@1.0"] || !e.settings.disabled["c"] {
		t.Errorf("persisted state out of sync: %v", e.settings.disabled)
	}
}

func TestEnableHighestDependencyVersion(t *testing.T) {
	e := newTestEnv(t, newMemSettings("x", "lib@1.0", "lib@3.0"))
	e.put(addons.KindMod, "x", dependsOn(mod("x", ""), "lib"))
	e.put(addons.KindMod, "lib1", mod("lib", "1.0"))
	e.rescan(addons.KindMod)

	lib3 := e.put(addons.KindMod, "lib3", mod("lib", "3.0"))
	if _, err := e.cache.Add(lib3); err != nil {
		t.Fatal(err)
	}

	if err := e.cache.Enable(addons.Identity{ID: "x"}); err != nil {
		t.Fatal(err)
	}
	if !e.enabled("lib", "3.0") || e.enabled("lib", "1.0") {
		t.Error("expected the highest installed version of the dependency to be enabled")
	}
}

func TestDisableCascade(t *testing.T) {
	e := newTestEnv(t, newMemSettings())
	e.put(addons.KindMod, "a", dependsOn(mod("a", ""), "b"))
	e.put(addons.KindMod, "b", mod("b", "1.0"))
	e.put(addons.KindMod, "c", dependsOn(mod("c", ""), "a"))
	e.put(addons.KindMod, "d", mod("d", ""))
	e.rescan(addons.KindMod)

	if !e.enabled("a", "") || !e.enabled("b", "1.0") || !e.enabled("c", "") {
		t.Fatal("expected all mods enabled after rescan")
	}

	if err := e.cache.Disable(addons.Identity{ID: "b", Version: "1.0"}); err != nil {
		t.Fatalf("Disable() error: %v", err)
	}

	if e.enabled("b", "1.0") || e.enabled("a", "") || e.enabled("c", "") {
		t.Error("expected b and its transitive dependents disabled")
	}
	if !e.enabled("d", "") {
		t.Error("unrelated mod must stay enabled")
	}
	for _, key := range []string{"a", "b@1.0", "c"} {
		if !e.settings.disabled[key] {
			t.Errorf("expected %s persisted as disabled", key)
		}
	}
}

func TestCascadeIdempotentWithCycles(t *testing.T) {
	e := newTestEnv(t, newMemSettings("a", "b", "x", "y"))
	e.put(addons.KindMod, "a", dependsOn(mod("a", ""), "b"))
	e.put(addons.KindMod, "b", dependsOn(mod("b", ""), "a"))
	e.put(addons.KindMod, "x", incompatibleWith(mod("x", ""), "y"))
	e.put(addons.KindMod, "y", incompatibleWith(mod("y", ""), "x"))
	e.rescan(addons.KindMod)

	if len(e.settings.persisted) != 0 {
		t.Fatalf("restoring already disabled mods should not persist, got %v", e.settings.persisted)
	}

	if err := e.cache.Enable(addons.Identity{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	if !e.enabled("a", "") || !e.enabled("b", "") {
		t.Fatal("expected dependency cycle to be enabled")
	}
	calls := len(e.settings.persisted)
	if calls != 2 {
		t.Fatalf("expected 2 persist calls, got %d", calls)
	}

	if err := e.cache.Enable(addons.Identity{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	if len(e.settings.persisted) != calls {
		t.Fatal("enabling an enabled mod must not persist again")
	}

	if err := e.cache.Disable(addons.Identity{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	if e.enabled("a", "") || e.enabled("b", "") {
		t.Fatal("expected dependency cycle to be disabled")
	}
	calls = len(e.settings.persisted)
	if err := e.cache.Disable(addons.Identity{ID: "b"}); err != nil {
		t.Fatal(err)
	}
	if len(e.settings.persisted) != calls {
		t.Fatal("disabling a disabled mod must not persist again")
	}

	if err := e.cache.Enable(addons.Identity{ID: "x"}); err != nil {
		t.Fatal(err)
	}
	if err := e.cache.Enable(addons.Identity{ID: "y"}); err != nil {
		t.Fatal(err)
	}
	if e.enabled("x", "") || !e.enabled("y", "") {
		t.Fatal("mutually incompatible mods: the last enabled should win")
	}
}

func TestCascadePersistsEachStateOnce(t *testing.T) {
	e := newTestEnv(t, newMemSettings("a", "b"))
	e.put(addons.KindMod, "a", dependsOn(mod("a", ""), "b"))
	e.put(addons.KindMod, "b", incompatibleWith(mod("b", ""), "a"))
	e.rescan(addons.KindMod)

	if err := e.cache.Enable(addons.Identity{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	if e.enabled("a", "") || !e.enabled("b", "") {
		t.Fatal("expected b to switch its incompatible dependent a back off")
	}

	want := []persistCall{{"a", false}, {"b", true}}
	got := e.settings.persisted
	if len(got) != len(want) {
		t.Fatalf("expected persist calls %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("persist call %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestEnableIgnoresUnknownAndNonMods(t *testing.T) {
	e := newTestEnv(t, newMemSettings())
	events := 0
	unsubscribe := e.cache.Subscribe(func(Event) { events++ })
	defer unsubscribe()

	if err := e.cache.Enable(addons.Identity{ID: "ghost"}); err != nil {
		t.Fatal(err)
	}
	if events != 0 || len(e.settings.persisted) != 0 {
		t.Fatal("enabling an unknown mod must be a no-op")
	}
}

func TestGetDuringRescanServesLastSnapshot(t *testing.T) {
	e := newTestEnv(t, newMemSettings())
	e.put(addons.KindMod, "a", mod("a", ""))
	e.rescan(addons.KindMod)

	e.put(addons.KindMod, "b", mod("b", ""))

	var sawStale bool
	var seen int
	e.resolver.hook = func(string) {
		sawStale = e.cache.IsStale()
		seen = e.cache.Get(addons.KindMod).Len()
	}
	e.rescan(addons.KindMod)

	if !sawStale {
		t.Error("expected stale flag during rescan")
	}
	if seen != 1 {
		t.Errorf("expected readers to see the previous snapshot (1 entry), saw %d", seen)
	}
	if e.cache.IsStale() {
		t.Error("stale flag must be cleared after rescan")
	}
	if e.cache.Get(addons.KindMod).Len() != 2 {
		t.Error("expected new snapshot after rescan")
	}
}

type fakeCampaigns []*addons.Addon

func (f fakeCampaigns) Campaigns(addons.Game) []*addons.Addon {
	return f
}

func TestConversionsIncludeOfficialCampaigns(t *testing.T) {
	e := newTestEnv(t, nil)
	e.cache.campaigns = fakeCampaigns{{
		Identity: addons.Identity{ID: "duke3d"},
		Variant:  addons.VariantOfficialCampaign,
		Game:     addons.SupportedGame{Game: addons.GameDuke3D},
		Path:     "/games/duke3d/DUKE3D.GRP",
	}}

	if got := e.cache.Get(addons.KindConversion).Len(); got != 1 {
		t.Fatalf("expected official campaign before first scan, got %d entries", got)
	}

	tc := &addons.Addon{
		Identity: addons.Identity{ID: "dc", Version: "1.0"},
		Variant:  addons.VariantCustomConversion,
		Game:     addons.SupportedGame{Game: addons.GameDuke3D},
	}
	e.put(addons.KindConversion, "dc", tc)
	e.rescan(addons.KindConversion)

	snap := e.cache.Get(addons.KindConversion)
	if snap.Len() != 2 {
		t.Fatalf("expected official and custom conversion, got %d", snap.Len())
	}

	err := e.cache.Delete(addons.KindConversion, addons.Identity{ID: "duke3d"}, false)
	if !errors.Is(err, ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
}

func TestRescanSkipsBrokenAndForeignFiles(t *testing.T) {
	e := newTestEnv(t, newMemSettings())
	e.put(addons.KindMod, "good", mod("good", ""))
	e.put(addons.KindMod, "broken")
	e.resolver.errs["broken"] = addons.ErrMalformedManifest

	blood := mod("bloodmod", "")
	blood.Game.Game = addons.GameBlood
	e.put(addons.KindMod, "blood", blood)

	r := e.rescan(addons.KindMod)
	if r.Count != 1 {
		t.Errorf("expected 1 mod, got %d", r.Count)
	}
	if len(r.Errors) != 1 || !errors.Is(r.Errors[0], addons.ErrMalformedManifest) {
		t.Errorf("expected one malformed manifest error, got %v", r.Errors)
	}
}

func TestIncrementalRescanReusesKnownEntries(t *testing.T) {
	e := newTestEnv(t, newMemSettings())
	e.put(addons.KindMod, "a", mod("a", ""))
	e.put(addons.KindMod, "b", mod("b", ""))
	e.rescan(addons.KindMod)

	calls := e.resolver.calls
	e.put(addons.KindMod, "c", mod("c", ""))

	r, err := e.cache.Rescan(false, addons.KindMod)
	if err != nil {
		t.Fatal(err)
	}
	if r.Reused != 2 || e.resolver.calls != calls+1 {
		t.Errorf("expected 2 reused and 1 resolved, got reused=%d resolved=%d", r.Reused, e.resolver.calls-calls)
	}
	if r.Count != 3 {
		t.Errorf("expected 3 mods, got %d", r.Count)
	}

	if err := os.Remove(filepath.Join(e.dirs.Dir(addons.KindMod), "a")); err != nil {
		t.Fatal(err)
	}
	r, err = e.cache.Rescan(false, addons.KindMod)
	if err != nil {
		t.Fatal(err)
	}
	if r.Count != 2 {
		t.Errorf("expected removed package to drop out, got %d", r.Count)
	}
}

func TestDeleteLooseMapRemovesSiblings(t *testing.T) {
	e := newTestEnv(t, nil)
	loose := &addons.Addon{
		Identity: addons.Identity{ID: "roch.map"},
		Variant:  addons.VariantSingleMap,
		Game:     addons.SupportedGame{Game: addons.GameDuke3D},
	}
	other := &addons.Addon{
		Identity: addons.Identity{ID: "other.map"},
		Variant:  addons.VariantSingleMap,
		Game:     addons.SupportedGame{Game: addons.GameDuke3D},
	}
	e.put(addons.KindMap, "roch.map", loose)
	e.put(addons.KindMap, "ROCH.txt")
	e.put(addons.KindMap, "other.map", other)
	e.rescan(addons.KindMap)

	var got []Event
	defer e.cache.Subscribe(func(ev Event) { got = append(got, ev) })()

	if err := e.cache.Delete(addons.KindMap, addons.Identity{ID: "roch.map"}, false); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	dir := e.dirs.Dir(addons.KindMap)
	for _, name := range []string{"roch.map", "ROCH.txt"} {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Errorf("expected %s to be removed", name)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "other.map")); err != nil {
		t.Error("unrelated map must be kept")
	}

	snap := e.cache.Get(addons.KindMap)
	if _, ok := snap.Get(addons.Identity{ID: "roch.map"}); ok || snap.Len() != 1 {
		t.Error("expected entry to be removed from the catalog")
	}
	if len(got) != 1 || got[0] != (Event{Game: addons.GameDuke3D, Kind: addons.KindMap}) {
		t.Errorf("expected one map event, got %v", got)
	}

	if err := e.cache.Delete(addons.KindMap, addons.Identity{ID: "roch.map"}, false); !errors.Is(err, ErrAddonNotFound) {
		t.Errorf("expected ErrAddonNotFound, got %v", err)
	}
}

func TestDeleteRefusesKindDirectory(t *testing.T) {
	e := newTestEnv(t, newMemSettings())
	dir := e.dirs.Dir(addons.KindMod)
	keep := e.put(addons.KindMod, "keep", mod("keep", ""))
	e.rescan(addons.KindMod)

	stray := mod("stray", "")
	stray.Path = dir
	working := e.cache.Get(addons.KindMod).clone()
	working[stray.Key()] = stray
	e.cache.publish(addons.KindMod, working)

	err := e.cache.Delete(addons.KindMod, stray.Identity, false)
	if !errors.Is(err, ErrUnsafeDelete) {
		t.Fatalf("expected ErrUnsafeDelete, got %v", err)
	}
	if _, err := os.Stat(keep); err != nil {
		t.Errorf("sibling addon must survive: %v", err)
	}
	if _, ok := e.cache.Get(addons.KindMod).Get(stray.Identity); !ok {
		t.Error("refused delete must leave the catalog unchanged")
	}
}

type fakeBackups struct {
	backed []string
}

func (f *fakeBackups) CreateBackup(a *addons.Addon) (string, error) {
	f.backed = append(f.backed, a.ID)
	return "/backups/" + a.ID, nil
}

func TestDeleteModDisablesDependents(t *testing.T) {
	e := newTestEnv(t, newMemSettings())
	backups := &fakeBackups{}
	e.cache.backups = backups

	e.put(addons.KindMod, "a", dependsOn(mod("a", ""), "b"))
	e.put(addons.KindMod, "b", mod("b", ""))
	e.rescan(addons.KindMod)

	if err := e.cache.Delete(addons.KindMod, addons.Identity{ID: "b"}, true); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	if e.enabled("a", "") {
		t.Error("dependent of a deleted mod must be disabled")
	}
	if _, ok := e.cache.Get(addons.KindMod).Get(addons.Identity{ID: "b"}); ok {
		t.Error("deleted mod still in catalog")
	}
	if len(backups.backed) != 1 || backups.backed[0] != "b" {
		t.Errorf("expected backup of b, got %v", backups.backed)
	}
	if len(e.settings.forgotten) != 1 || e.settings.forgotten[0] != "b" {
		t.Errorf("expected state of b to be forgotten, got %v", e.settings.forgotten)
	}
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	e := newTestEnv(t, newMemSettings("a"))
	e.put(addons.KindMod, "a", mod("a", ""))
	e.rescan(addons.KindMod)

	var got []Event
	unsubscribe := e.cache.Subscribe(func(ev Event) { got = append(got, ev) })

	if err := e.cache.Enable(addons.Identity{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Kind != addons.KindMod || got[0].Game != addons.GameDuke3D {
		t.Fatalf("expected one mod event, got %v", got)
	}

	unsubscribe()
	unsubscribe()
	if err := e.cache.Disable(addons.Identity{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected no events after unsubscribe, got %v", got)
	}
}

func TestAnnotations(t *testing.T) {
	e := newTestEnv(t, newMemSettings())
	e.put(addons.KindMod, "a1", mod("a", "1.0"))
	e.rescan(addons.KindMod)
	a2 := e.put(addons.KindMod, "a2", mod("a", "2.0"))
	if _, err := e.cache.Add(a2); err != nil {
		t.Fatal(err)
	}

	if !e.cache.HasNewerVersion(addons.Identity{ID: "a", Version: "1.0"}) {
		t.Error("a@1.0 should have a newer version installed")
	}
	if e.cache.HasNewerVersion(addons.Identity{ID: "a", Version: "2.0"}) {
		t.Error("a@2.0 is the newest")
	}
	if !e.cache.IsInstalled("A", "") || !e.cache.IsInstalled("a", "1.0") || e.cache.IsInstalled("a", "3.0") {
		t.Error("unexpected IsInstalled results")
	}
	if !e.cache.NewerThanInstalled("a", "2.1") || e.cache.NewerThanInstalled("a", "1.5") {
		t.Error("unexpected NewerThanInstalled results")
	}
	if e.cache.NewerThanInstalled("missing", "1.0") {
		t.Error("a missing addon has nothing to update")
	}
}

func TestCheckDependencies(t *testing.T) {
	e := newTestEnv(t, newMemSettings())

	top := mod("top", "1.0")
	top.Dependencies = map[string]string{"lib": ">=2.0", "gone": ""}
	top.Incompatibles = map[string]string{"rival": "<3"}
	e.put(addons.KindMod, "top", top)
	e.put(addons.KindMod, "lib", mod("lib", "1.5"))
	e.put(addons.KindMod, "rival", mod("rival", "2.0"))
	e.rescan(addons.KindMod)

	// Enabling top pulled in lib despite its version and disabled rival
	if !e.enabled("lib", "1.5") || e.enabled("rival", "2.0") {
		t.Fatal("unexpected cascade result")
	}
	if err := e.cache.Enable(addons.Identity{ID: "rival", Version: "2.0"}); err != nil {
		t.Fatal(err)
	}

	report, err := e.cache.CheckDependencies(addons.Identity{ID: "top", Version: "1.0"})
	if err != nil {
		t.Fatalf("CheckDependencies() error: %v", err)
	}
	if report.OK() {
		t.Fatal("expected problems in report")
	}
	if len(report.Missing) != 1 || report.Missing[0] != "gone" {
		t.Errorf("unexpected missing %v", report.Missing)
	}
	if len(report.Unsatisfied) != 1 || report.Unsatisfied[0].ID != "lib" || report.Unsatisfied[0].Installed[0] != "1.5" {
		t.Errorf("unexpected unsatisfied %+v", report.Unsatisfied)
	}
	if len(report.Conflicts) != 1 || report.Conflicts[0].ID != "rival" {
		t.Errorf("unexpected conflicts %v", report.Conflicts)
	}

	if _, err := e.cache.CheckDependencies(addons.Identity{ID: "nope"}); !errors.Is(err, ErrAddonNotFound) {
		t.Errorf("expected ErrAddonNotFound, got %v", err)
	}
}

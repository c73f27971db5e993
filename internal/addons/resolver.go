package addons

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/log"

	"github.com/bnema/buildctl/internal/archive"
)

var ErrUnreadableArchive = errors.New("unreadable addon archive")

// ImageCache stores cover images by content hash
type ImageCache interface {
	Add(hash uint64, r io.Reader) error
}

// Settings exposes the user preferences the resolver seeds addons with
type Settings interface {
	IsFavorite(game Game, id string) bool
}

// Resolver turns a path found in an addon directory into addon records
type Resolver struct {
	game     Game
	archives archive.Opener
	images   ImageCache
	settings Settings
	logger   *log.Logger
}

// NewResolver creates a resolver for one game. images and settings may be nil.
func NewResolver(game Game, archives archive.Opener, images ImageCache, settings Settings, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Resolver{
		game:     game,
		archives: archives,
		images:   images,
		settings: settings,
		logger:   logger,
	}
}

// Resolve returns the addons contained in p, or nil when p is not an addon
// container. Unreadable archives are logged and yield nil. Manifest errors are
// returned so the caller can skip the file; a partial list is never returned.
//
// Archives that need loose side files (legacy descriptors, RFF resources or
// executables) are extracted next to themselves and deleted.
func (r *Resolver) Resolve(p string) ([]*Addon, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return r.resolveDir(p)
	}

	switch strings.ToLower(filepath.Ext(p)) {
	case ".json":
		a, err := r.resolveManifestFile(p)
		if err != nil {
			return nil, err
		}
		return []*Addon{a}, nil
	case ".map":
		return []*Addon{r.looseMap(p)}, nil
	case ".grp":
		return nil, nil
	}

	if r.archives != nil && r.archives.IsArchive(p) {
		return r.resolveArchive(p)
	}
	return nil, nil
}

func (r *Resolver) resolveDir(dir string) ([]*Addon, error) {
	if _, err := os.Stat(filepath.Join(dir, GrpInfoFile)); err == nil {
		return r.seed(ReadGrpInfo(dir))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var result []*Addon
	for _, entry := range entries {
		if entry.IsDir() || !isManifestName(entry.Name()) {
			continue
		}
		a, err := r.resolveManifestFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, nil
}

func (r *Resolver) resolveManifestFile(p string) (*Addon, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	m, err := ParseManifest(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}

	dir := filepath.Dir(p)
	grid, preview := r.hashDirImages(dir)

	a, err := NewFromManifest(m, Source{
		Path:             dir,
		IsUnpacked:       true,
		GridImageHash:    grid,
		PreviewImageHash: preview,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	r.applySettings(a)
	return a, nil
}

func (r *Resolver) looseMap(p string) *Addon {
	name := filepath.Base(p)
	a := &Addon{
		Identity: Identity{ID: name},
		Variant:  VariantSingleMap,
		Title:    strings.TrimSuffix(name, filepath.Ext(name)),
		Game:     SupportedGame{Game: r.game},
		Path:     p,
		StartMap: &StartMap{File: name},
	}
	r.applySettings(a)
	return a
}

func (r *Resolver) resolveArchive(p string) ([]*Addon, error) {
	ar, err := r.archives.Open(p)
	if err != nil {
		r.logger.Error("Failed to open addon archive", "path", p, "error", err)
		return nil, nil
	}

	entries := ar.Entries()

	if descriptor, ok := findEntry(entries, func(e archive.Entry) bool {
		return strings.EqualFold(e.Base(), GrpInfoFile)
	}); ok {
		dest, ok := r.unpack(ar, p)
		if !ok {
			return nil, nil
		}
		return r.resolveDir(filepath.Join(dest, filepath.FromSlash(path.Dir(descriptor.Name))))
	}

	var (
		manifests []*Manifest
		needs     bool
	)
	for _, e := range entries {
		if e.IsDir || strings.Contains(strings.Trim(e.Name, "/"), "/") || !isManifestName(e.Name) {
			continue
		}
		m, err := readArchiveManifest(ar, e.Name)
		if err != nil {
			_ = ar.Close()
			if errors.Is(err, ErrUnreadableArchive) {
				r.logger.Error("Failed to read addon archive", "path", p, "error", err)
				return nil, nil
			}
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		manifests = append(manifests, m)
		needs = needs || m.NeedsUnpacking()
	}

	if len(manifests) == 0 {
		_ = ar.Close()
		r.logger.Debug("Archive has no addon manifest", "path", p)
		return nil, nil
	}

	if needs {
		dest, ok := r.unpack(ar, p)
		if !ok {
			return nil, nil
		}
		return r.resolveDir(dest)
	}

	defer func() { _ = ar.Close() }()

	grid, preview := r.hashArchiveImages(ar, entries)
	result := make([]*Addon, 0, len(manifests))
	for _, m := range manifests {
		a, err := NewFromManifest(m, Source{
			Path:             p,
			GridImageHash:    grid,
			PreviewImageHash: preview,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		r.applySettings(a)
		result = append(result, a)
	}
	return result, nil
}

// unpack extracts ar into a folder named after the archive and removes the
// archive. It always closes ar.
func (r *Resolver) unpack(ar archive.Reader, p string) (string, bool) {
	dest := strings.TrimSuffix(p, filepath.Ext(p))
	if dest == p {
		dest = p + ".d"
	}

	if err := ar.ExtractTo(dest); err != nil {
		_ = ar.Close()
		r.logger.Error("Failed to extract addon archive", "path", p, "error", err)
		return "", false
	}
	if err := ar.Close(); err != nil {
		r.logger.Warn("Failed to close addon archive", "path", p, "error", err)
	}
	if err := os.Remove(p); err != nil {
		r.logger.Warn("Failed to remove extracted archive", "path", p, "error", err)
	}

	r.logger.Info("Extracted addon archive", "path", p, "dest", dest)
	return dest, true
}

func (r *Resolver) seed(addons []*Addon, err error) ([]*Addon, error) {
	if err != nil {
		return nil, err
	}
	for _, a := range addons {
		r.applySettings(a)
	}
	return addons, nil
}

func (r *Resolver) applySettings(a *Addon) {
	if r.settings != nil {
		a.IsFavorite = r.settings.IsFavorite(r.game, a.ID)
	}
}

func (r *Resolver) hashDirImages(dir string) (grid, preview uint64) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		kind := imageKind(entry.Name())
		if kind == "" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			r.logger.Warn("Failed to read addon image", "path", entry.Name(), "error", err)
			continue
		}
		h := r.registerImage(data)
		if kind == "grid" && grid == 0 {
			grid = h
		} else if kind == "preview" && preview == 0 {
			preview = h
		}
	}
	return grid, preview
}

func (r *Resolver) hashArchiveImages(ar archive.Reader, entries []archive.Entry) (grid, preview uint64) {
	for _, e := range entries {
		if e.IsDir || strings.Contains(strings.Trim(e.Name, "/"), "/") {
			continue
		}
		kind := imageKind(e.Name)
		if kind == "" {
			continue
		}

		rc, err := ar.Open(e.Name)
		if err != nil {
			continue
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			r.logger.Warn("Failed to read addon image", "entry", e.Name, "error", err)
			continue
		}

		h := r.registerImage(data)
		if kind == "grid" && grid == 0 {
			grid = h
		} else if kind == "preview" && preview == 0 {
			preview = h
		}
	}
	return grid, preview
}

func (r *Resolver) registerImage(data []byte) uint64 {
	h := xxhash.Sum64(data)
	if r.images != nil {
		if err := r.images.Add(h, bytes.NewReader(data)); err != nil {
			r.logger.Warn("Failed to cache addon image", "hash", h, "error", err)
		}
	}
	return h
}

func readArchiveManifest(ar archive.Reader, name string) (*Manifest, error) {
	rc, err := ar.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableArchive, err)
	}
	defer func() { _ = rc.Close() }()
	return ParseManifest(rc)
}

func findEntry(entries []archive.Entry, match func(archive.Entry) bool) (archive.Entry, bool) {
	sorted := make([]archive.Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	for _, e := range sorted {
		if !e.IsDir && match(e) {
			return e, true
		}
	}
	return archive.Entry{}, false
}

// isManifestName matches addon.json, addon_2.json, addons-extra.json, ...
func isManifestName(name string) bool {
	base := strings.ToLower(path.Base(filepath.ToSlash(name)))
	return strings.HasPrefix(base, "addon") && strings.HasSuffix(base, ".json")
}

func imageKind(name string) string {
	base := strings.ToLower(path.Base(filepath.ToSlash(name)))
	stem := strings.TrimSuffix(base, path.Ext(base))
	switch stem {
	case "grid", "preview":
		return stem
	}
	return ""
}

package catalog

import (
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/bnema/buildctl/internal/addons"
	"github.com/bnema/buildctl/internal/archive"
	"github.com/bnema/buildctl/internal/games"
)

// Store is the persisted user state shared by every game
type Store interface {
	Settings
	IsFavorite(game addons.Game, id string) bool
}

// RegistryConfig holds what every per-game cache is built from
type RegistryConfig struct {
	AddonsDir string
	Archives  archive.Opener
	Images    addons.ImageCache
	Store     Store
	Campaigns Campaigns
	Backups   Backups
	Logger    *log.Logger
}

// Registry hands out one Cache per game
type Registry struct {
	cfg    RegistryConfig
	mu     sync.Mutex
	caches map[addons.Game]*Cache
}

// NewRegistry creates a registry
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	if cfg.Archives == nil {
		cfg.Archives = archive.NewZipOpener()
	}
	return &Registry{
		cfg:    cfg,
		caches: make(map[addons.Game]*Cache),
	}
}

// For returns the cache of game, creating it on first use
func (r *Registry) For(game addons.Game) *Cache {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.caches[game]; ok {
		return c
	}

	logger := r.cfg.Logger.With("game", game)

	var settings addons.Settings
	opts := Options{
		Game:      game,
		Dirs:      games.NewLayout(r.cfg.AddonsDir, game, logger),
		Campaigns: r.cfg.Campaigns,
		Backups:   r.cfg.Backups,
		Logger:    logger,
	}
	if r.cfg.Store != nil {
		settings = r.cfg.Store
		opts.Settings = r.cfg.Store
	}
	opts.Resolver = addons.NewResolver(game, r.cfg.Archives, r.cfg.Images, settings, logger)

	c := New(opts)
	r.caches[game] = c
	return c
}

// Layout returns the directory layout used for game
func (r *Registry) Layout(game addons.Game) *games.Layout {
	return games.NewLayout(r.cfg.AddonsDir, game, r.cfg.Logger)
}

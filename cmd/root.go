package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bnema/buildctl/internal/addons"
	"github.com/bnema/buildctl/internal/catalog"
	"github.com/bnema/buildctl/internal/config"
	"github.com/bnema/buildctl/internal/games"
	"github.com/bnema/buildctl/internal/imagecache"
	"github.com/bnema/buildctl/internal/logger"
)

// Version info set via ldflags at build time
var (
	version = "dev"
	commit  = "unknown"
)

var (
	verbose    bool
	configPath string
	gameFlag   string

	cfg      *config.Config
	store    *addons.StateStore
	backups  *addons.BackupManager
	images   *imagecache.Cache
	registry *catalog.Registry
)

var rootCmd = &cobra.Command{
	Use:     "buildctl",
	Short:   "Addon manager for Build engine games",
	Version: version + " (" + commit + ")",
	Long: `A Go CLI tool to manage addons of Build engine games
(Duke Nukem 3D, Blood, Shadow Warrior, Redneck Rampage, ...).

Addons live in <addons_dir>/<game>/{Conversions,Maps,Mods}.

Quick start:
  buildctl addons              Browse the catalog interactively
  buildctl addons list         List installed addons
  buildctl addons add hrp.zip  Add a mod package`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Init(verbose); err != nil {
			return err
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger.Debug("Configuration loaded", "file", cfg.File, "addons_dir", cfg.AddonsDir)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Close()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ./buildctl.yaml or $XDG_CONFIG_HOME/buildctl/buildctl.yaml)")
	rootCmd.PersistentFlags().StringVarP(&gameFlag, "game", "g", "", "Game to manage (default: default_game from config)")
}

// currentGame returns the game selected by --game or the config
func currentGame() (addons.Game, error) {
	name := gameFlag
	if name == "" {
		name = cfg.DefaultGame
	}
	game, ok := addons.ParseGame(name)
	if !ok {
		return "", fmt.Errorf("unknown game %q", name)
	}
	return game, nil
}

// getRegistry wires the state store, image cache, official campaigns and
// backups into the per-game catalog registry
func getRegistry() *catalog.Registry {
	if registry != nil {
		return registry
	}

	store = addons.NewStateStore(cfg.DataDir)
	if err := store.Load(); err != nil {
		logger.Warn("Failed to load addon state", "path", store.Path(), "error", err)
	}
	backups = addons.NewBackupManager(cfg.DataDir)
	images = imagecache.New(cfg.ImageCacheDir())

	installDirs := make(map[addons.Game]string)
	for name := range cfg.Games {
		if game, ok := addons.ParseGame(name); ok {
			installDirs[game] = cfg.InstallDir(name)
		} else {
			logger.Warn("Ignoring config for unknown game", "game", name)
		}
	}

	registry = catalog.NewRegistry(catalog.RegistryConfig{
		AddonsDir: cfg.AddonsDir,
		Images:    images,
		Store:     store,
		Campaigns: games.NewOfficial(installDirs),
		Backups:   backups,
		Logger:    logger.Named("catalog"),
	})
	return registry
}

// getCache returns the scanned catalog of the selected game together with
// its directory layout
func getCache() (*catalog.Cache, *games.Layout, error) {
	game, err := currentGame()
	if err != nil {
		return nil, nil, err
	}

	r := getRegistry()
	layout := r.Layout(game)
	if err := layout.EnsureDirs(); err != nil {
		return nil, nil, err
	}

	cache := r.For(game)
	results, err := cache.RescanAll(false)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan addons: %w", err)
	}
	for _, res := range results {
		for _, e := range res.Errors {
			logger.Warn("Skipped addon", "kind", res.Kind, "error", e)
		}
	}
	return cache, layout, nil
}

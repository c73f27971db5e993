// Package games describes where each game's addons live on disk and which
// retail campaigns an install directory provides.
package games

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/bnema/buildctl/internal/addons"
)

var kindDirs = map[addons.Kind]string{
	addons.KindConversion: "Conversions",
	addons.KindMap:        "Maps",
	addons.KindMod:        "Mods",
}

// Layout is the addon directory tree of one game:
// <root>/<game>/{Conversions,Maps,Mods}
type Layout struct {
	log  *log.Logger
	Game addons.Game
	Root string
}

// NewLayout returns the layout of game below addonsDir
func NewLayout(addonsDir string, game addons.Game, logger *log.Logger) *Layout {
	l := &Layout{
		log:  logger,
		Game: game,
		Root: filepath.Join(addonsDir, string(game)),
	}

	l.log.Debug("Addon layout initialized",
		"game", game,
		"conversions", l.Dir(addons.KindConversion),
		"maps", l.Dir(addons.KindMap),
		"mods", l.Dir(addons.KindMod),
	)
	return l
}

// Dir returns the directory holding addons of kind
func (l *Layout) Dir(kind addons.Kind) string {
	return filepath.Join(l.Root, kindDirs[kind])
}

// EnsureDirs creates every kind directory
func (l *Layout) EnsureDirs() error {
	for _, kind := range addons.Kinds {
		dir := l.Dir(kind)
		if err := os.MkdirAll(dir, 0755); err != nil {
			if os.IsPermission(err) {
				l.log.Error("Permission denied creating addon directory", "path", dir)
				l.log.Warn("Fix with: sudo chown $USER:$USER " + filepath.Dir(dir))
				return fmt.Errorf("permission denied: %w", err)
			}
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

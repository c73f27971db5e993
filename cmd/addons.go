package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/bnema/buildctl/internal/addons"
	"github.com/bnema/buildctl/internal/catalog"
	"github.com/bnema/buildctl/internal/ui/mods"
)

var addonsCmd = &cobra.Command{
	Use:   "addons",
	Short: "Manage game addons",
	Long: `Manage total conversions, user maps and autoload mods.

When run without subcommands, opens an interactive catalog browser.

Examples:
  buildctl addons                           # Interactive browser
  buildctl addons list --kind mod           # List installed mods
  buildctl addons info hrp                  # Show addon details
  buildctl addons enable hrp@5.4            # Enable a mod and its dependencies
  buildctl addons disable hrp               # Disable a mod and its dependents
  buildctl addons add ~/dl/roch.zip -k map  # Copy a package into the catalog
  buildctl addons install <git-url>         # Clone an addon from git
  buildctl addons remove hrp                # Delete an addon (with backup)
  buildctl addons rescan --full             # Rebuild the catalogs`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, _, err := getCache()
		if err != nil {
			return err
		}

		p := tea.NewProgram(mods.NewModel(cache), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("error running TUI: %w", err)
		}
		return nil
	},
}

// findAddon resolves "id" or "id@version" in the given kinds, all when empty
func findAddon(cache *catalog.Cache, ref string, kinds ...addons.Kind) (*addons.Addon, error) {
	if len(kinds) == 0 {
		kinds = addons.Kinds
	}
	for _, kind := range kinds {
		if a, ok := cache.Get(kind).Lookup(ref); ok {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", catalog.ErrAddonNotFound, ref)
}

func init() {
	rootCmd.AddCommand(addonsCmd)
}

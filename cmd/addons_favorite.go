package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/buildctl/internal/ui/progress"
)

var favoriteOff bool

var addonsFavoriteCmd = &cobra.Command{
	Use:   "favorite <id>",
	Short: "Mark an addon as favorite",
	Long: `Mark or unmark an addon as favorite. Favorites are starred in listings.

Examples:
  buildctl addons favorite dukeplus
  buildctl addons favorite dukeplus --off`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, _, err := getCache()
		if err != nil {
			return err
		}

		a, err := findAddon(cache, args[0])
		if err != nil {
			return err
		}

		if err := store.SetFavorite(cache.Game(), a.ID, !favoriteOff); err != nil {
			return fmt.Errorf("failed to save favorite: %w", err)
		}

		// The flag is seeded when a package is resolved
		if _, err := cache.Rescan(true, a.Kind()); err != nil {
			return err
		}

		if favoriteOff {
			progress.PrintSuccess(fmt.Sprintf("%s removed from favorites", a.DisplayName()))
		} else {
			progress.PrintSuccess(fmt.Sprintf("%s added to favorites", a.DisplayName()))
		}
		return nil
	},
}

func init() {
	addonsFavoriteCmd.Flags().BoolVar(&favoriteOff, "off", false, "Remove from favorites")
	addonsCmd.AddCommand(addonsFavoriteCmd)
}

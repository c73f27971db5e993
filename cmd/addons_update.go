package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/buildctl/internal/addons"
	"github.com/bnema/buildctl/internal/catalog"
	"github.com/bnema/buildctl/internal/ui/progress"
)

var updateCheckOnly bool

var addonsUpdateCmd = &cobra.Command{
	Use:   "update [id[@version]]",
	Short: "Update addons installed from git",
	Long: `Fast-forward addons that were installed with "buildctl addons install".
Without an argument every git-backed addon is updated. Local modifications
abort the update of that addon.

Examples:
  buildctl addons update
  buildctl addons update dukeplus
  buildctl addons update --check`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, _, err := getCache()
		if err != nil {
			return err
		}

		var targets []*addons.Addon
		if len(args) == 1 {
			a, err := findAddon(cache, args[0])
			if err != nil {
				return err
			}
			if !addons.IsGitRepo(a.Path) {
				return fmt.Errorf("%w: %s", addons.ErrNotGitRepo, a.Path)
			}
			targets = append(targets, a)
		} else {
			targets = gitAddons(cache)
		}

		if len(targets) == 0 {
			fmt.Println("No addons installed from git")
			return nil
		}

		ctx := context.Background()
		updated := make(map[addons.Kind]bool)
		failed := 0
		for _, a := range targets {
			hasUpdate, err := addons.CheckForUpdates(ctx, a.Path)
			switch {
			case err != nil:
				progress.PrintError(fmt.Sprintf("%s: %v", a.Identity, err))
				failed++
				continue
			case !hasUpdate:
				progress.PrintStep(progress.StatePending, fmt.Sprintf("%s is up to date", a.Identity))
				continue
			case updateCheckOnly:
				progress.PrintWarning(fmt.Sprintf("%s has an update available", a.Identity))
				continue
			}

			err = addons.UpdateFromGit(ctx, a.Path, nil)
			switch {
			case errors.Is(err, addons.ErrAlreadyUpToDate):
				progress.PrintStep(progress.StatePending, fmt.Sprintf("%s is up to date", a.Identity))
			case err != nil:
				progress.PrintError(fmt.Sprintf("%s: %v", a.Identity, err))
				failed++
			default:
				progress.PrintSuccess(fmt.Sprintf("Updated %s", a.Identity))
				updated[a.Kind()] = true
			}
		}

		// Updated folders carry new manifests; resolve their kinds again
		for _, kind := range addons.Kinds {
			if updated[kind] {
				if _, err := cache.Rescan(true, kind); err != nil {
					return err
				}
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d addon(s) failed to update", failed)
		}
		return nil
	},
}

// gitAddons lists every cataloged addon backed by a git clone, once per folder
func gitAddons(cache *catalog.Cache) []*addons.Addon {
	seen := make(map[string]bool)
	var out []*addons.Addon
	for _, kind := range addons.Kinds {
		for _, a := range cache.Get(kind).All() {
			if seen[a.Path] || !addons.IsGitRepo(a.Path) {
				continue
			}
			seen[a.Path] = true
			out = append(out, a)
		}
	}
	return out
}

func init() {
	addonsUpdateCmd.Flags().BoolVar(&updateCheckOnly, "check", false, "Only report available updates")
	addonsCmd.AddCommand(addonsUpdateCmd)
}

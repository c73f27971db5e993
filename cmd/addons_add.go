package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bnema/buildctl/internal/addons"
	"github.com/bnema/buildctl/internal/logger"
	"github.com/bnema/buildctl/internal/ui/progress"
)

var addKind string

var addonsAddCmd = &cobra.Command{
	Use:   "add <file-or-folder>",
	Short: "Add an addon package",
	Long: `Copy an addon package (zip archive, folder, loose .map file) into the
directory of its kind and register it. Other installed versions of the
same addon are kept; enabling one disables the others.

Examples:
  buildctl addons add ~/Downloads/hrp.zip
  buildctl addons add ~/Downloads/roch.map --kind map
  buildctl addons add ~/Downloads/dukeplus --kind tc`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := addons.ParseKind(addKind)
		if err != nil {
			return err
		}

		cache, layout, err := getCache()
		if err != nil {
			return err
		}

		dest, copied, err := addons.CopyPackage(args[0], layout.Dir(kind))
		if err != nil {
			return fmt.Errorf("failed to copy package: %w", err)
		}

		added, err := cache.Add(dest)
		if len(added) == 0 {
			if copied {
				if rmErr := os.RemoveAll(dest); rmErr != nil {
					logger.Warn("Failed to remove rejected package", "path", dest, "error", rmErr)
				}
			}
			return fmt.Errorf("failed to add %s: %w", args[0], err)
		}
		if err != nil {
			progress.PrintWarning(err.Error())
		}

		for _, a := range added {
			if a.Kind() != kind {
				progress.PrintWarning(fmt.Sprintf("%s is a %s addon; rerun with --kind %s or the next scan skips it", a.Identity, a.Kind(), a.Kind()))
			}
			progress.PrintSuccess(fmt.Sprintf("Added %s (%s)", a.DisplayName(), a.Identity))
			if a.IsMod() {
				current, _ := cache.Get(addons.KindMod).Get(a.Identity)
				if current != nil && !current.Enabled {
					progress.PrintDetail("disabled, previously turned off")
				}
			}
		}
		return nil
	},
}

func init() {
	addonsAddCmd.Flags().StringVarP(&addKind, "kind", "k", "mod", "Addon kind (tc, map, mod)")
	addonsCmd.AddCommand(addonsAddCmd)
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/buildctl/internal/addons"
	"github.com/bnema/buildctl/internal/ui/progress"
)

var restoreKind string

var addonsRestoreCmd = &cobra.Command{
	Use:   "restore <id[@version]> [timestamp]",
	Short: "Restore a removed addon from backup",
	Long: `Copy a backup made by "buildctl addons remove" back into the directory
of its kind and register it. Without a timestamp the latest backup is used.

Examples:
  buildctl addons restore hrp@5.4
  buildctl addons restore roch.map 20260101-120000 --kind map`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := addons.ParseKind(restoreKind)
		if err != nil {
			return err
		}

		cache, layout, err := getCache()
		if err != nil {
			return err
		}

		target := &addons.Addon{
			Identity: addons.ParseIdentity(args[0]),
			Game:     addons.SupportedGame{Game: cache.Game()},
		}

		list, err := backups.ListBackups(target)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			return fmt.Errorf("no backup found for %s", target.Identity)
		}

		timestamp := list[0]
		if len(args) == 2 {
			timestamp = args[1]
		}

		dest, err := backups.RestoreBackup(target, timestamp, layout.Dir(kind))
		if err != nil {
			return err
		}

		added, err := cache.Add(dest)
		if len(added) == 0 {
			return fmt.Errorf("restored %s but it does not resolve to an addon: %w", dest, err)
		}
		if err != nil {
			progress.PrintWarning(err.Error())
		}
		for _, a := range added {
			progress.PrintSuccess(fmt.Sprintf("Restored %s from %s", a.Identity, timestamp))
		}
		return nil
	},
}

func init() {
	addonsRestoreCmd.Flags().StringVarP(&restoreKind, "kind", "k", "mod", "Addon kind (tc, map, mod)")
	addonsCmd.AddCommand(addonsRestoreCmd)
}

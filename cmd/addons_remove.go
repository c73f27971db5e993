package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/buildctl/internal/ui/styles"
)

var (
	removeForce    bool
	removeNoBackup bool
)

var addonsRemoveCmd = &cobra.Command{
	Use:     "remove <id[@version]>",
	Aliases: []string{"rm", "delete"},
	Short:   "Delete an installed addon",
	Long: `Delete an addon's file or folder and drop it from the catalog.
Mods depending on a deleted mod are disabled. Loose maps are removed with
their side files (same base name).

By default, a backup is created before removal.
Use --no-backup to skip backup creation.
Use --force to skip confirmation prompt.

Examples:
  buildctl addons remove hrp
  buildctl addons remove roch.map --force
  buildctl addons remove hrp@5.4 --no-backup`,
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

		if !removeForce {
			fmt.Printf("Remove %s?\n", styles.Highlighted.Render(a.DisplayName()+" ("+a.Identity.String()+")"))
			fmt.Printf("  Path: %s\n", a.Path)
			if !removeNoBackup {
				fmt.Println("  A backup will be created.")
			} else {
				fmt.Println(styles.FormatWarning("No backup will be created!"))
			}

			fmt.Print("\nConfirm? [y/N] ")
			reader := bufio.NewReader(os.Stdin)
			response, _ := reader.ReadString('\n')
			response = strings.TrimSpace(strings.ToLower(response))

			if response != "y" && response != "yes" {
				fmt.Println("Cancelled.")
				return nil
			}
		}

		createBackup := !removeNoBackup
		if err := cache.Delete(a.Kind(), a.Identity, createBackup); err != nil {
			return fmt.Errorf("failed to remove addon: %w", err)
		}

		if createBackup {
			fmt.Println(styles.FormatSuccess(fmt.Sprintf("Removed %s (backup in %s)", a.Identity, backups.Dir())))
		} else {
			fmt.Println(styles.FormatSuccess(fmt.Sprintf("Removed %s", a.Identity)))
		}
		return nil
	},
}

func init() {
	addonsRemoveCmd.Flags().BoolVarP(&removeForce, "force", "f", false, "Skip confirmation prompt")
	addonsRemoveCmd.Flags().BoolVar(&removeNoBackup, "no-backup", false, "Skip backup creation")
	addonsCmd.AddCommand(addonsRemoveCmd)
}

package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bnema/buildctl/internal/addons"
	"github.com/bnema/buildctl/internal/ui/styles"
)

var (
	listKind        string
	listEnabledOnly bool
)

var addonsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List installed addons",
	Long: `List the addons of the selected game, grouped by kind.

Examples:
  buildctl addons list
  buildctl addons list --kind mod --enabled
  buildctl addons list --game blood`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, layout, err := getCache()
		if err != nil {
			return err
		}

		kinds := addons.Kinds
		if listKind != "" {
			kind, err := addons.ParseKind(listKind)
			if err != nil {
				return err
			}
			kinds = []addons.Kind{kind}
		}

		total := 0
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			styles.Title.Render("ID"),
			styles.Title.Render("VERSION"),
			styles.Title.Render("TITLE"),
			styles.Title.Render("TYPE"),
			styles.Title.Render("STATUS"),
		)

		for _, kind := range kinds {
			for _, a := range cache.Get(kind).All() {
				if listEnabledOnly && !a.Enabled {
					continue
				}
				total++

				version := a.Version
				if version == "" {
					version = "-"
				}

				status := ""
				if a.IsMod() {
					status = styles.FormatModState(a.Enabled)
				}
				if cache.HasNewerVersion(a.Identity) {
					status += " " + styles.FormatNewerInstalled()
				}
				if a.IsFavorite {
					status += " " + styles.FormatFavorite(true)
				}

				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.ID, version, a.DisplayName(), styles.FormatVariant(a.Variant), status)
			}
		}
		_ = w.Flush()

		if total == 0 {
			fmt.Println("\nNo addons found")
			fmt.Println("\nAdd one with: buildctl addons add <file> --kind mod")
			return nil
		}

		fmt.Printf("\n%d addon(s) for %s\n", total, cache.Game())
		fmt.Printf("Addons directory: %s\n", layout.Root)
		return nil
	},
}

func init() {
	addonsListCmd.Flags().StringVarP(&listKind, "kind", "k", "", "Only list one kind (tc, map, mod)")
	addonsListCmd.Flags().BoolVar(&listEnabledOnly, "enabled", false, "Only list enabled mods")
	addonsCmd.AddCommand(addonsListCmd)
}

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/buildctl/internal/addons"
	"github.com/bnema/buildctl/internal/catalog"
	"github.com/bnema/buildctl/internal/ui/progress"
)

var (
	rescanFull bool
	rescanKind string
)

var addonsRescanCmd = &cobra.Command{
	Use:   "rescan",
	Short: "Rebuild the addon catalogs",
	Long: `Scan the addon directories again. Archives carrying sound resources
are unpacked in place. Files that cannot be read are reported and skipped.

Examples:
  buildctl addons rescan
  buildctl addons rescan --full --kind mod`,
	RunE: func(cmd *cobra.Command, args []string) error {
		game, err := currentGame()
		if err != nil {
			return err
		}
		r := getRegistry()
		if err := r.Layout(game).EnsureDirs(); err != nil {
			return err
		}
		cache := r.For(game)

		kinds := addons.Kinds
		if rescanKind != "" {
			kind, err := addons.ParseKind(rescanKind)
			if err != nil {
				return err
			}
			kinds = []addons.Kind{kind}
		}

		start := time.Now()
		for _, kind := range kinds {
			res, err := cache.Rescan(rescanFull, kind)
			if err != nil {
				return err
			}
			printRescanResult(res)
		}
		progress.PrintSummary("Scanned %s in %s", game, time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func printRescanResult(r *catalog.RescanResult) {
	msg := fmt.Sprintf("%s: %d addon(s)", r.Kind, r.Count)
	if r.Reused > 0 {
		msg += fmt.Sprintf(", %d unchanged", r.Reused)
	}
	if len(r.Errors) == 0 {
		progress.PrintSuccess(msg)
		return
	}
	progress.PrintWarning(fmt.Sprintf("%s, %d skipped", msg, len(r.Errors)))
	for _, e := range r.Errors {
		progress.PrintDetail(e.Error())
	}
}

func init() {
	addonsRescanCmd.Flags().BoolVar(&rescanFull, "full", false, "Resolve every package again")
	addonsRescanCmd.Flags().StringVarP(&rescanKind, "kind", "k", "", "Only rescan one kind (tc, map, mod)")
	addonsCmd.AddCommand(addonsRescanCmd)
}

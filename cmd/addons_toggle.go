package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/buildctl/internal/addons"
	"github.com/bnema/buildctl/internal/catalog"
	"github.com/bnema/buildctl/internal/ui/progress"
)

var addonsEnableCmd = &cobra.Command{
	Use:   "enable <id[@version]>",
	Short: "Enable a mod",
	Long: `Enable an autoload mod. Its dependencies are enabled too, while its
incompatibilities and other installed versions of the same mod are disabled.

Examples:
  buildctl addons enable hrp
  buildctl addons enable hrp@5.4`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return toggleMod(args[0], true)
	},
}

var addonsDisableCmd = &cobra.Command{
	Use:   "disable <id[@version]>",
	Short: "Disable a mod",
	Long: `Disable an autoload mod together with every mod depending on it.

Examples:
  buildctl addons disable hrp`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return toggleMod(args[0], false)
	},
}

func toggleMod(ref string, enable bool) error {
	cache, _, err := getCache()
	if err != nil {
		return err
	}

	a, err := findAddon(cache, ref, addons.KindMod)
	if err != nil {
		return err
	}

	before := enabledMods(cache)
	if enable {
		err = cache.Enable(a.Identity)
	} else {
		err = cache.Disable(a.Identity)
	}
	after := enabledMods(cache)

	for _, m := range cache.Get(addons.KindMod).All() {
		key := m.Key()
		switch {
		case !before[key] && after[key]:
			progress.PrintSuccess(fmt.Sprintf("Enabled %s", m.Identity))
		case before[key] && !after[key]:
			progress.PrintStep(progress.StateError, fmt.Sprintf("Disabled %s", m.Identity))
		}
	}
	if len(before) == len(after) && sameKeys(before, after) {
		progress.PrintDetail(fmt.Sprintf("%s unchanged", a.Identity))
	}

	if err != nil {
		return fmt.Errorf("failed to save mod state: %w", err)
	}

	if enable {
		if report, rerr := cache.CheckDependencies(a.Identity); rerr == nil {
			printDependencyReport(report)
		}
	}
	return nil
}

func enabledMods(cache *catalog.Cache) map[addons.Identity]bool {
	out := make(map[addons.Identity]bool)
	for _, m := range cache.Get(addons.KindMod).Enabled() {
		out[m.Key()] = true
	}
	return out
}

func sameKeys(a, b map[addons.Identity]bool) bool {
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func init() {
	addonsCmd.AddCommand(addonsEnableCmd)
	addonsCmd.AddCommand(addonsDisableCmd)
}

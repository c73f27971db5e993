package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/buildctl/internal/addons"
	"github.com/bnema/buildctl/internal/catalog"
	"github.com/bnema/buildctl/internal/ui/styles"
)

var addonsInfoCmd = &cobra.Command{
	Use:   "info <id[@version]>",
	Short: "Show addon details",
	Long: `Show details of an installed addon, including the state of its
declared dependencies and incompatibilities.

Examples:
  buildctl addons info hrp
  buildctl addons info hrp@5.4`,
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

		printAddonInfo(a)

		for _, img := range []struct {
			label string
			hash  uint64
		}{{"Cover", a.GridImageHash}, {"Preview", a.PreviewImageHash}} {
			if img.hash != 0 && images.Has(img.hash) {
				printField(img.label, images.Path(img.hash))
			}
		}

		if cache.HasNewerVersion(a.Identity) {
			fmt.Println(styles.FormatNewerInstalled())
		}

		report, err := cache.CheckDependencies(a.Identity)
		if err == nil {
			printDependencyReport(report)
		}

		if list, err := backups.ListBackups(a); err == nil && len(list) > 0 {
			fmt.Printf("\nBackups: %d available (latest: %s)\n", len(list), list[0])
		}

		if addons.IsGitRepo(a.Path) {
			if commit, err := addons.CurrentCommit(a.Path); err == nil {
				printField("Commit", commit)
			}
		}
		return nil
	},
}

func printAddonInfo(a *addons.Addon) {
	fmt.Println(styles.Title.Render(a.DisplayName()))
	if a.Description != "" {
		fmt.Println(styles.MutedText.Render(a.Description))
	}
	fmt.Println()

	printField("ID", a.ID)
	if a.Version != "" {
		printField("Version", a.Version)
	}
	printField("Type", a.Variant.String())
	if a.Game.Version != "" {
		printField("Game", string(a.Game.Game)+" ("+a.Game.Version+")")
	} else {
		printField("Game", string(a.Game.Game))
	}
	if a.Author != "" {
		printField("Author", a.Author)
	}
	printField("Path", a.Path)
	if !a.IsUnpacked {
		printField("Packed", "yes")
	}
	if a.IsMod() {
		printField("State", styles.FormatModState(a.Enabled))
	}
	if a.StartMap != nil {
		printField("Start map", a.StartMap.String())
	}
	if a.MainCon != "" {
		printField("CON", strings.Join(append([]string{a.MainCon}, a.AdditionalCons...), ", "))
	}
	if a.MainDef != "" || len(a.AdditionalDefs) > 0 {
		defs := a.AdditionalDefs
		if a.MainDef != "" {
			defs = append([]string{a.MainDef}, defs...)
		}
		printField("DEF", strings.Join(defs, ", "))
	}
	for _, f := range []struct{ label, value string }{
		{"RTS", a.RTS}, {"INI", a.INI}, {"RFF", a.RFF}, {"SND", a.SND},
	} {
		if f.value != "" {
			printField(f.label, f.value)
		}
	}
	if len(a.RequiredFeatures) > 0 {
		printField("Features", strings.Join(a.RequiredFeatures, ", "))
	}
	for _, o := range a.Options {
		printField("Option", o.Name)
	}
}

func printDependencyReport(r catalog.DependencyReport) {
	if r.OK() {
		return
	}
	fmt.Println()
	for _, id := range r.Missing {
		fmt.Println(styles.FormatWarning("missing dependency " + id))
	}
	for _, u := range r.Unsatisfied {
		fmt.Println(styles.FormatWarning(fmt.Sprintf("requires %s %s, installed: %s",
			u.ID, u.Constraint, strings.Join(u.Installed, ", "))))
	}
	for _, c := range r.Conflicts {
		fmt.Println(styles.FormatWarning("incompatible with enabled " + c.String()))
	}
}

func printField(label, value string) {
	fmt.Printf("%-10s %s\n", label+":", value)
}

func init() {
	addonsCmd.AddCommand(addonsInfoCmd)
}

package cmd

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/bnema/buildctl/internal/addons"
	"github.com/bnema/buildctl/internal/catalog"
	"github.com/bnema/buildctl/internal/logger"
	"github.com/bnema/buildctl/internal/ui/progress"
)

var installKind string

var addonsInstallCmd = &cobra.Command{
	Use:   "install <git-url>",
	Short: "Install an addon from a git repository",
	Long: `Clone an addon folder from a git repository into the directory of its
kind and register it. The repository must contain an addon manifest
(addon.json) at its root.

Examples:
  buildctl addons install https://github.com/user/dukeplus --kind tc
  buildctl addons install git@github.com:user/hrp.git`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := args[0]
		if err := addons.ValidateGitURL(url); err != nil {
			return err
		}
		kind, err := addons.ParseKind(installKind)
		if err != nil {
			return err
		}

		cache, layout, err := getCache()
		if err != nil {
			return err
		}

		model := progress.NewModel("Installing "+addons.RepoName(url),
			"Cloning repository",
			"Registering addon",
		)
		p := tea.NewProgram(model)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		type result struct {
			added []*addons.Addon
			err   error
		}
		done := make(chan result, 1)
		go func() {
			added, err := installFromGit(ctx, p, cache, url, layout.Dir(kind))
			done <- result{added, err}
			p.Send(progress.DoneMsg{Err: err})
		}()

		if _, err := p.Run(); err != nil {
			cancel()
			<-done
			return err
		}
		// ctrl+c quits the view; stop the clone and wait for cleanup
		cancel()
		res := <-done
		if res.err != nil {
			return res.err
		}

		added := res.added
		for _, a := range added {
			progress.PrintSuccess(fmt.Sprintf("Installed %s (%s)", a.DisplayName(), a.Identity))
		}
		return nil
	},
}

func installFromGit(ctx context.Context, p *tea.Program, cache *catalog.Cache, url, dir string) ([]*addons.Addon, error) {
	p.Send(progress.StartStepMsg{})
	dest, err := addons.InstallFromGit(ctx, url, dir, progress.NewGitWriter(p))
	if err != nil {
		p.Send(progress.FailStepMsg{Err: err})
		return nil, err
	}
	p.Send(progress.CompleteStepMsg{})

	p.Send(progress.StartStepMsg{})
	added, err := cache.Add(dest)
	if len(added) == 0 {
		if rmErr := os.RemoveAll(dest); rmErr != nil {
			logger.Warn("Failed to remove clone", "path", dest, "error", rmErr)
		}
		err = fmt.Errorf("repository is not an addon: %w", err)
		p.Send(progress.FailStepMsg{Err: err})
		return nil, err
	}
	if err != nil {
		logger.Warn("Addon installed with state errors", "path", dest, "error", err)
	}
	p.Send(progress.CompleteStepMsg{})
	return added, nil
}

func init() {
	addonsInstallCmd.Flags().StringVarP(&installKind, "kind", "k", "mod", "Addon kind (tc, map, mod)")
	addonsCmd.AddCommand(addonsInstallCmd)
}

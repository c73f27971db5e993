package addons

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

var (
	ErrNotGitRepo      = errors.New("not a git repository")
	ErrLocalChanges    = errors.New("fast-forward not possible, local changes exist")
	ErrAlreadyUpToDate = errors.New("already up to date")
	ErrInvalidGitURL   = errors.New("invalid git URL: must start with https://, git@, or git://")
	ErrAlreadyPresent  = errors.New("addon folder already exists")
)

// InstallFromGit clones url into a folder of dir named after the repository
// and returns that folder. progress can be nil.
func InstallFromGit(ctx context.Context, url, dir string, progress io.Writer) (string, error) {
	if err := ValidateGitURL(url); err != nil {
		return "", err
	}

	dest := filepath.Join(dir, RepoName(url))
	if _, err := os.Stat(dest); err == nil {
		return "", fmt.Errorf("%w: %s", ErrAlreadyPresent, dest)
	}

	_, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{
		URL:      normalizeGitURL(url),
		Progress: progress,
	})
	if err != nil {
		// dest did not exist before the clone
		_ = os.RemoveAll(dest)
		return "", fmt.Errorf("failed to clone repository: %w", err)
	}

	return dest, nil
}

// UpdateFromGit fast-forwards a cloned addon folder to its remote branch
func UpdateFromGit(ctx context.Context, repoPath string, progress io.Writer) error {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotGitRepo, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	if !status.IsClean() {
		return ErrLocalChanges
	}

	head, remote, err := fetchRemoteHead(ctx, repo, progress)
	if err != nil {
		return err
	}
	if head.Hash() == remote.Hash() {
		return ErrAlreadyUpToDate
	}

	err = worktree.Reset(&git.ResetOptions{
		Commit: remote.Hash(),
		Mode:   git.HardReset,
	})
	if err != nil {
		return fmt.Errorf("failed to fast-forward: %w", err)
	}
	return nil
}

// CheckForUpdates fetches without touching the worktree and reports whether
// the remote branch moved
func CheckForUpdates(ctx context.Context, repoPath string) (bool, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrNotGitRepo, err)
	}

	head, remote, err := fetchRemoteHead(ctx, repo, nil)
	if err != nil {
		return false, err
	}
	return head.Hash() != remote.Hash(), nil
}

func fetchRemoteHead(ctx context.Context, repo *git.Repository, progress io.Writer) (*plumbing.Reference, *plumbing.Reference, error) {
	err := repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: "origin",
		Progress:   progress,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil, nil, fmt.Errorf("failed to fetch: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get HEAD: %w", err)
	}

	// Prefer the tracking branch, then the usual defaults
	candidates := []string{head.Name().Short(), "main", "master"}
	for _, branch := range candidates {
		ref, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
		if err == nil {
			return head, ref, nil
		}
	}
	return nil, nil, fmt.Errorf("failed to find remote branch for %s", head.Name().Short())
}

// IsGitRepo checks if a directory is a git repository
func IsGitRepo(path string) bool {
	_, err := git.PlainOpen(path)
	return err == nil
}

// CurrentCommit returns the short HEAD hash
func CurrentCommit(repoPath string) (string, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return "", ErrNotGitRepo
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	return head.Hash().String()[:8], nil
}

// RepoName extracts the folder name for a git URL
func RepoName(gitURL string) string {
	name := strings.TrimSuffix(strings.TrimRight(gitURL, "/"), ".git")
	if idx := strings.LastIndexAny(name, "/:"); idx >= 0 {
		name = name[idx+1:]
	}
	for _, suffix := range []string{"-master", "-main", "-trunk"} {
		name = strings.TrimSuffix(name, suffix)
	}
	return name
}

// ValidateGitURL checks if a string looks like a git URL
func ValidateGitURL(url string) error {
	url = strings.ToLower(url)
	if strings.HasPrefix(url, "https://") || strings.HasPrefix(url, "git@") || strings.HasPrefix(url, "git://") {
		return nil
	}
	return ErrInvalidGitURL
}

func normalizeGitURL(url string) string {
	if strings.HasPrefix(strings.ToLower(url), "https://") && !strings.HasSuffix(url, ".git") {
		return url + ".git"
	}
	return url
}

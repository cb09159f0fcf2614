// Package gitrepo implements the RepoLocator port against the local checkout
// using go-git.
package gitrepo

import (
	"fmt"
	"strings"

	git "github.com/go-git/go-git/v5"

	"github.com/dcwalker/prchecks/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RepoLocator = (*Locator)(nil)

// Locator resolves the current checkout's slug and branch from its git
// metadata. The repository is opened once and reused.
type Locator struct {
	repo *git.Repository
	root string
}

// Open locates the enclosing git repository starting from dir, walking up
// like git itself does.
func Open(dir string) (*Locator, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("not inside a git repository (set PRCHECKS_REPO to run elsewhere): %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("resolving worktree: %w", err)
	}

	return &Locator{repo: repo, root: wt.Filesystem.Root()}, nil
}

// Root returns the worktree root directory.
func (l *Locator) Root() (string, error) {
	return l.root, nil
}

// Slug returns the "owner/repo" slug derived from the origin remote URL.
func (l *Locator) Slug() (string, error) {
	remote, err := l.repo.Remote("origin")
	if err != nil {
		return "", fmt.Errorf("no origin remote (set PRCHECKS_REPO to override): %w", err)
	}

	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("origin remote has no URL")
	}

	slug, err := ParseSlug(urls[0])
	if err != nil {
		return "", err
	}
	return slug, nil
}

// CurrentBranch returns the short name of the checked-out branch.
func (l *Locator) CurrentBranch() (string, error) {
	head, err := l.repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolving HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", fmt.Errorf("HEAD is detached; pass --pull-request")
	}
	return head.Name().Short(), nil
}

// ParseSlug extracts "owner/repo" from a git remote URL. Handles ssh
// (git@host:owner/repo.git), ssh-scheme and https forms.
func ParseSlug(remoteURL string) (string, error) {
	u := remoteURL

	switch {
	case strings.HasPrefix(u, "git@"):
		// git@github.com:owner/repo.git
		if i := strings.Index(u, ":"); i >= 0 {
			u = u[i+1:]
		}
	case strings.Contains(u, "://"):
		// https://github.com/owner/repo.git, ssh://git@github.com/owner/repo.git
		u = u[strings.Index(u, "://")+3:]
		if i := strings.Index(u, "/"); i >= 0 {
			u = u[i+1:]
		} else {
			u = ""
		}
	}

	u = strings.TrimSuffix(u, ".git")
	u = strings.Trim(u, "/")

	parts := strings.Split(u, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("cannot derive owner/repo from remote URL %q", remoteURL)
	}
	return parts[0] + "/" + parts[1], nil
}

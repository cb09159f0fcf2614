package driven

// RepoLocator resolves the local checkout's identity: its owner/repo slug on
// the source-control host and the branch currently checked out.
type RepoLocator interface {
	// Slug returns the "owner/repo" slug derived from the origin remote.
	Slug() (string, error)

	// CurrentBranch returns the short name of the checked-out branch.
	CurrentBranch() (string, error)

	// Root returns the worktree root directory, used to locate the project
	// manifest.
	Root() (string, error)
}

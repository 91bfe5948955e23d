// Package git provides repository access for sqlbundle.
package git

import (
	"context"
)

// CommitRef identifies a resolved commit by its full hash.
// Refs are only produced by Service lookups, never constructed by callers.
type CommitRef struct {
	// Hash is the full commit hash.
	Hash string
}

// IsZero reports whether the ref has not been resolved.
func (c CommitRef) IsZero() bool {
	return c.Hash == ""
}

// String returns the full hash.
func (c CommitRef) String() string {
	return c.Hash
}

// Equal reports whether two refs identify the same commit.
func (c CommitRef) Equal(other CommitRef) bool {
	return c.Hash == other.Hash
}

// PathChange is one entry of a tree diff between two commits.
// For a rename both paths are set; for an add or delete only one is.
type PathChange struct {
	// OldPath is the pre-image path, empty for additions.
	OldPath string
	// NewPath is the post-image path, empty for deletions.
	NewPath string
}

// Service defines the repository operations the bundle pipeline needs.
type Service interface {
	// ResolveCommit resolves a reference (hash, tag, branch) to a commit.
	ResolveCommit(ctx context.Context, ref string) (CommitRef, error)

	// ShortHash returns a fixed-length prefix form of a commit hash.
	ShortHash(ctx context.Context, ref CommitRef, length int) (string, error)

	// EarliestCommit returns the first commit reachable from the current branch tip.
	EarliestCommit(ctx context.Context) (CommitRef, error)

	// HeadCommit returns the current branch tip.
	HeadCommit(ctx context.Context) (CommitRef, error)

	// DiffPaths returns the paths touched between two commits, both the
	// pre-image and post-image side of every change.
	DiffPaths(ctx context.Context, from, to CommitRef) ([]PathChange, error)

	// ReadFileAt returns the raw content of a file as of the given commit.
	// Returns an error matching ErrFileNotAtCommit when the path does not
	// exist in that commit's tree.
	ReadFileAt(ctx context.Context, at CommitRef, relPath string) ([]byte, error)
}

// ServiceConfig configures the git service.
type ServiceConfig struct {
	// RepoPath is the path to the repository working copy.
	RepoPath string
}

// DefaultServiceConfig returns the default service configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		RepoPath: ".",
	}
}

// ServiceOption configures the git service.
type ServiceOption func(*ServiceConfig)

// WithRepoPath sets the repository path.
func WithRepoPath(path string) ServiceOption {
	return func(cfg *ServiceConfig) {
		cfg.RepoPath = path
	}
}

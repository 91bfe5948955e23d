// Package git provides repository access for sqlbundle.
package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	sberrors "github.com/dbforge/sqlbundle/internal/errors"
)

// ErrFileNotAtCommit matches errors returned by ReadFileAt when the path
// is not present in the commit's tree. Callers treat this as a recoverable
// condition: a file deleted inside the range is expected to be missing.
var ErrFileNotAtCommit = sberrors.New(sberrors.KindNotFound, "file not present at commit")

// Ensure ServiceImpl implements Service.
var _ Service = (*ServiceImpl)(nil)

// ServiceImpl is the go-git implementation of the git service.
type ServiceImpl struct {
	cfg  ServiceConfig
	repo *gogit.Repository
}

// NewService opens the repository at the configured path.
func NewService(opts ...ServiceOption) (*ServiceImpl, error) {
	const op = "git.NewService"

	cfg := DefaultServiceConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	absPath, err := filepath.Abs(cfg.RepoPath)
	if err != nil {
		return nil, sberrors.GitWrap(err, op, "failed to get absolute path")
	}

	repo, err := gogit.PlainOpen(absPath)
	if err != nil {
		return nil, sberrors.GitWrap(err, op, fmt.Sprintf("failed to open repository at %s", absPath))
	}

	return &ServiceImpl{
		cfg:  cfg,
		repo: repo,
	}, nil
}

// ResolveCommit resolves a reference (hash, short hash, tag, branch) to a commit.
func (s *ServiceImpl) ResolveCommit(_ context.Context, ref string) (CommitRef, error) {
	const op = "git.ResolveCommit"

	if ref == "" {
		return CommitRef{}, sberrors.Git(op, "empty reference")
	}

	if plumbing.IsHash(ref) {
		hash := plumbing.NewHash(ref)
		if _, err := s.repo.CommitObject(hash); err != nil {
			return CommitRef{}, sberrors.GitWrap(err, op, fmt.Sprintf("no commit for hash %s", ref))
		}
		return CommitRef{Hash: hash.String()}, nil
	}

	resolved, err := s.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return CommitRef{}, sberrors.GitWrap(err, op, fmt.Sprintf("failed to resolve reference %s", ref))
	}

	return CommitRef{Hash: resolved.String()}, nil
}

// ShortHash returns a fixed-length prefix form of the commit hash.
func (s *ServiceImpl) ShortHash(_ context.Context, ref CommitRef, length int) (string, error) {
	const op = "git.ShortHash"

	if ref.IsZero() {
		return "", sberrors.Git(op, "unresolved commit ref")
	}
	if length <= 0 || length > len(ref.Hash) {
		return "", sberrors.Git(op, fmt.Sprintf("invalid short hash length %d", length))
	}

	return strings.ToLower(ref.Hash[:length]), nil
}

// HeadCommit returns the current branch tip.
func (s *ServiceImpl) HeadCommit(_ context.Context) (CommitRef, error) {
	const op = "git.HeadCommit"

	head, err := s.repo.Head()
	if err != nil {
		return CommitRef{}, sberrors.GitWrap(err, op, "failed to get HEAD")
	}

	return CommitRef{Hash: head.Hash().String()}, nil
}

// EarliestCommit walks the full history from the current branch tip and
// returns the root commit.
func (s *ServiceImpl) EarliestCommit(ctx context.Context) (CommitRef, error) {
	const op = "git.EarliestCommit"

	head, err := s.repo.Head()
	if err != nil {
		return CommitRef{}, sberrors.GitWrap(err, op, "failed to get HEAD")
	}

	iter, err := s.repo.Log(&gogit.LogOptions{From: head.Hash()})
	if err != nil {
		return CommitRef{}, sberrors.GitWrap(err, op, "failed to get log iterator")
	}
	defer iter.Close()

	var last plumbing.Hash
	err = iter.ForEach(func(c *object.Commit) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		last = c.Hash
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return CommitRef{}, sberrors.GitWrap(ctx.Err(), op, "operation canceled")
		}
		return CommitRef{}, sberrors.GitWrap(err, op, "failed to iterate commits")
	}

	if last.IsZero() {
		return CommitRef{}, sberrors.Git(op, "repository has no commits")
	}

	return CommitRef{Hash: last.String()}, nil
}

// DiffPaths returns the paths touched between two commits. Both sides of
// every change are reported so that renames surface the old and the new
// name; the caller decides which of them still exist.
func (s *ServiceImpl) DiffPaths(ctx context.Context, from, to CommitRef) ([]PathChange, error) {
	const op = "git.DiffPaths"

	fromTree, err := s.commitTree(from)
	if err != nil {
		return nil, sberrors.GitWrap(err, op, fmt.Sprintf("failed to get tree for %s", from))
	}

	toTree, err := s.commitTree(to)
	if err != nil {
		return nil, sberrors.GitWrap(err, op, fmt.Sprintf("failed to get tree for %s", to))
	}

	changes, err := fromTree.DiffContext(ctx, toTree)
	if err != nil {
		return nil, sberrors.GitWrap(err, op, "failed to compute diff")
	}

	result := make([]PathChange, 0, len(changes))
	for _, change := range changes {
		result = append(result, PathChange{
			OldPath: change.From.Name,
			NewPath: change.To.Name,
		})
	}

	return result, nil
}

// ReadFileAt returns the raw bytes of a file as of the given commit.
func (s *ServiceImpl) ReadFileAt(_ context.Context, at CommitRef, relPath string) ([]byte, error) {
	const op = "git.ReadFileAt"

	commit, err := s.repo.CommitObject(plumbing.NewHash(at.Hash))
	if err != nil {
		return nil, sberrors.GitWrap(err, op, fmt.Sprintf("failed to get commit %s", at))
	}

	file, err := commit.File(relPath)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, sberrors.NotFoundWrap(err, op, fmt.Sprintf("%s not present at %s", relPath, at))
		}
		return nil, sberrors.GitWrap(err, op, fmt.Sprintf("failed to look up %s at %s", relPath, at))
	}

	reader, err := file.Reader()
	if err != nil {
		return nil, sberrors.GitWrap(err, op, fmt.Sprintf("failed to open %s at %s", relPath, at))
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, sberrors.GitWrap(err, op, fmt.Sprintf("failed to read %s at %s", relPath, at))
	}

	return data, nil
}

// commitTree resolves a commit ref to its tree.
func (s *ServiceImpl) commitTree(ref CommitRef) (*object.Tree, error) {
	commit, err := s.repo.CommitObject(plumbing.NewHash(ref.Hash))
	if err != nil {
		return nil, err
	}
	return commit.Tree()
}

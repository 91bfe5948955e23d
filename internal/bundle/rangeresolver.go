package bundle

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	sberrors "github.com/dbforge/sqlbundle/internal/errors"
	"github.com/dbforge/sqlbundle/internal/service/git"
	"github.com/dbforge/sqlbundle/internal/service/ledger"
)

// CommitRange is the ordered pair of commits bounding the changes to
// include. From and To are never equal; an equal pair is rejected during
// resolution rather than producing an empty bundle.
type CommitRange struct {
	From git.CommitRef
	To   git.CommitRef
}

// RangeResolver determines the commit pair for a bundle run.
//
// The from commit is taken from the first of these that yields a value:
// an explicit reference, the ledger's last recorded bundle, the root of
// the current branch history. The to commit is the explicit reference or
// the branch tip.
type RangeResolver struct {
	repo        git.Service
	ledger      ledger.Service
	releaseType string
	logger      *log.Logger
}

// NewRangeResolver creates a range resolver.
func NewRangeResolver(repo git.Service, ldg ledger.Service, releaseType string, logger *log.Logger) *RangeResolver {
	return &RangeResolver{
		repo:        repo,
		ledger:      ldg,
		releaseType: releaseType,
		logger:      logger,
	}
}

// fromStrategy is one rule in the from-commit priority chain. It reports
// whether it produced a commit; an error from a strategy that applies
// aborts resolution.
type fromStrategy struct {
	name    string
	resolve func(ctx context.Context) (git.CommitRef, bool, error)
}

// Resolve determines the commit range, failing when from and to resolve
// to the same commit.
func (r *RangeResolver) Resolve(ctx context.Context, explicitFrom, explicitTo string) (CommitRange, error) {
	const op = "bundle.ResolveRange"

	from, source, err := r.resolveFrom(ctx, explicitFrom)
	if err != nil {
		return CommitRange{}, err
	}
	r.logger.Debug("resolved from commit", "commit", from, "source", source)

	to, err := r.resolveTo(ctx, explicitTo)
	if err != nil {
		return CommitRange{}, err
	}
	r.logger.Debug("resolved to commit", "commit", to)

	if from.Equal(to) {
		return CommitRange{}, sberrors.Range(op, fmt.Sprintf("no changes in range: from and to both resolve to %s", to))
	}

	return CommitRange{From: from, To: to}, nil
}

// resolveFrom walks the from-commit strategy chain.
func (r *RangeResolver) resolveFrom(ctx context.Context, explicit string) (git.CommitRef, string, error) {
	strategies := []fromStrategy{
		{name: "explicit", resolve: func(ctx context.Context) (git.CommitRef, bool, error) {
			if explicit == "" {
				return git.CommitRef{}, false, nil
			}
			ref, err := r.repo.ResolveCommit(ctx, explicit)
			return ref, err == nil, err
		}},
		{name: "ledger", resolve: r.fromLedger},
		{name: "history-root", resolve: func(ctx context.Context) (git.CommitRef, bool, error) {
			ref, err := r.repo.EarliestCommit(ctx)
			return ref, err == nil, err
		}},
	}

	for _, strategy := range strategies {
		ref, ok, err := strategy.resolve(ctx)
		if err != nil {
			return git.CommitRef{}, "", err
		}
		if ok {
			return ref, strategy.name, nil
		}
	}

	// Unreachable: the history-root strategy either yields or errors.
	return git.CommitRef{}, "", sberrors.Internal("bundle.resolveFrom", "no strategy produced a from commit")
}

// fromLedger derives the from commit from the last bundle recorded for
// the release type. An absent or unparsable ledger entry is not an
// error: it is logged and resolution falls through to the next rule.
func (r *RangeResolver) fromLedger(ctx context.Context) (git.CommitRef, bool, error) {
	last, err := r.ledger.LastBundleName(ctx, r.releaseType)
	if err != nil {
		return git.CommitRef{}, false, err
	}
	if last == "" {
		r.logger.Debug("ledger has no bundle recorded", "release_type", r.releaseType)
		return git.CommitRef{}, false, nil
	}

	parsed, err := ParseBundleName(last)
	if err != nil {
		r.logger.Warn("unable to extract a commit from the recorded bundle name", "bundle", last, "release_type", r.releaseType)
		return git.CommitRef{}, false, nil
	}

	r.logger.Debug("found recorded bundle", "bundle", last, "release_type", r.releaseType)
	ref, err := r.repo.ResolveCommit(ctx, parsed.ToShort)
	if err != nil {
		return git.CommitRef{}, false, err
	}
	return ref, true, nil
}

// resolveTo returns the explicit to commit, or the current branch tip.
func (r *RangeResolver) resolveTo(ctx context.Context, explicit string) (git.CommitRef, error) {
	if explicit != "" {
		return r.repo.ResolveCommit(ctx, explicit)
	}
	return r.repo.HeadCommit(ctx)
}

// Package bundle implements the release-bundle assembly pipeline.
package bundle

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	sberrors "github.com/dbforge/sqlbundle/internal/errors"
	"github.com/dbforge/sqlbundle/internal/service/git"
)

// testLogger returns a logger that discards output.
func testLogger() *log.Logger {
	return log.New(io.Discard)
}

// mockRepo is a mock implementation of git.Service for testing.
type mockRepo struct {
	refs     map[string]git.CommitRef
	head     git.CommitRef
	earliest git.CommitRef
	changes  []git.PathChange
	files    map[string][]byte
	err      error
}

func (m *mockRepo) ResolveCommit(_ context.Context, ref string) (git.CommitRef, error) {
	if m.err != nil {
		return git.CommitRef{}, m.err
	}
	if resolved, ok := m.refs[ref]; ok {
		return resolved, nil
	}
	// Short prefixes of known hashes resolve like git abbreviations.
	for _, resolved := range m.refs {
		if strings.HasPrefix(resolved.Hash, ref) {
			return resolved, nil
		}
	}
	return git.CommitRef{}, sberrors.Git("mock.ResolveCommit", fmt.Sprintf("unknown reference %s", ref))
}

func (m *mockRepo) ShortHash(_ context.Context, ref git.CommitRef, length int) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if length <= 0 || length > len(ref.Hash) {
		return "", sberrors.Git("mock.ShortHash", "invalid length")
	}
	return ref.Hash[:length], nil
}

func (m *mockRepo) EarliestCommit(_ context.Context) (git.CommitRef, error) {
	if m.err != nil {
		return git.CommitRef{}, m.err
	}
	return m.earliest, nil
}

func (m *mockRepo) HeadCommit(_ context.Context) (git.CommitRef, error) {
	if m.err != nil {
		return git.CommitRef{}, m.err
	}
	return m.head, nil
}

func (m *mockRepo) DiffPaths(_ context.Context, _, _ git.CommitRef) ([]git.PathChange, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.changes, nil
}

func (m *mockRepo) ReadFileAt(_ context.Context, _ git.CommitRef, relPath string) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	data, ok := m.files[relPath]
	if !ok {
		return nil, sberrors.NotFound("mock.ReadFileAt", fmt.Sprintf("%s not present", relPath))
	}
	return data, nil
}

// mockLedger is a mock implementation of ledger.Service for testing.
type mockLedger struct {
	last  string
	err   error
	calls []string
}

func (m *mockLedger) LastBundleName(_ context.Context, releaseType string) (string, error) {
	m.calls = append(m.calls, releaseType)
	if m.err != nil {
		return "", m.err
	}
	return m.last, nil
}

package bundle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sberrors "github.com/dbforge/sqlbundle/internal/errors"
	"github.com/dbforge/sqlbundle/internal/service/git"
)

const (
	hashA = "aaaa1111aaaa1111aaaa1111aaaa1111aaaa1111"
	hashB = "bbbb2222bbbb2222bbbb2222bbbb2222bbbb2222"
	hashC = "cccc3333cccc3333cccc3333cccc3333cccc3333"
)

func rangeTestRepo() *mockRepo {
	return &mockRepo{
		refs: map[string]git.CommitRef{
			"v1.0":   {Hash: hashA},
			"v2.0":   {Hash: hashB},
			"HEAD~1": {Hash: hashB},
		},
		head:     git.CommitRef{Hash: hashC},
		earliest: git.CommitRef{Hash: hashA},
	}
}

func TestResolveExplicitRange(t *testing.T) {
	resolver := NewRangeResolver(rangeTestRepo(), &mockLedger{}, "default", testLogger())

	rng, err := resolver.Resolve(context.Background(), "v1.0", "v2.0")
	require.NoError(t, err)
	assert.Equal(t, hashA, rng.From.Hash)
	assert.Equal(t, hashB, rng.To.Hash)
}

func TestResolveFromLedger(t *testing.T) {
	ldg := &mockLedger{last: "1.0-deadbeef-" + hashB[:8]}
	resolver := NewRangeResolver(rangeTestRepo(), ldg, "hotfix", testLogger())

	rng, err := resolver.Resolve(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, hashB, rng.From.Hash, "from should resolve to the recorded bundle's to commit")
	assert.Equal(t, hashC, rng.To.Hash, "to should default to the branch tip")
	assert.Equal(t, []string{"hotfix"}, ldg.calls)
}

func TestResolveFallsBackToHistoryRoot(t *testing.T) {
	tests := []struct {
		name   string
		ledger *mockLedger
	}{
		{name: "empty ledger", ledger: &mockLedger{}},
		{name: "unparsable recorded name", ledger: &mockLedger{last: "not-a-bundle"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := NewRangeResolver(rangeTestRepo(), tt.ledger, "default", testLogger())

			rng, err := resolver.Resolve(context.Background(), "", "")
			require.NoError(t, err)
			assert.Equal(t, hashA, rng.From.Hash)
			assert.Equal(t, hashC, rng.To.Hash)
		})
	}
}

func TestResolveExplicitFromSkipsLedger(t *testing.T) {
	ldg := &mockLedger{last: "1.0-deadbeef-" + hashB[:8]}
	resolver := NewRangeResolver(rangeTestRepo(), ldg, "default", testLogger())

	rng, err := resolver.Resolve(context.Background(), "v1.0", "")
	require.NoError(t, err)
	assert.Equal(t, hashA, rng.From.Hash)
	assert.Empty(t, ldg.calls, "an explicit from commit should not consult the ledger")
}

func TestResolveIdenticalEndpoints(t *testing.T) {
	resolver := NewRangeResolver(rangeTestRepo(), &mockLedger{}, "default", testLogger())

	_, err := resolver.Resolve(context.Background(), "v2.0", "HEAD~1")
	require.Error(t, err)
	assert.True(t, sberrors.IsKind(err, sberrors.KindRange))
}

func TestResolveLedgerErrorAborts(t *testing.T) {
	ldg := &mockLedger{err: sberrors.Ledger("test", "connection refused")}
	resolver := NewRangeResolver(rangeTestRepo(), ldg, "default", testLogger())

	_, err := resolver.Resolve(context.Background(), "", "")
	require.Error(t, err)
	assert.True(t, sberrors.IsKind(err, sberrors.KindLedger))
}

func TestResolveUnknownExplicitRef(t *testing.T) {
	resolver := NewRangeResolver(rangeTestRepo(), &mockLedger{}, "default", testLogger())

	_, err := resolver.Resolve(context.Background(), "no-such-ref", "")
	require.Error(t, err)
	assert.True(t, sberrors.IsKind(err, sberrors.KindGit))
}

package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLedgerMissingFile(t *testing.T) {
	ldg := NewFileLedger(filepath.Join(t.TempDir(), "ledger.yaml"))

	name, err := ldg.LastBundleName(context.Background(), "default")
	require.NoError(t, err)
	assert.Empty(t, name)
}

func TestFileLedgerRecordAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	ldg := NewFileLedger(path)
	ctx := context.Background()

	require.NoError(t, ldg.Record(ctx, "default", "1.4.0-a1b2c3d4-e5f6a7b8"))
	require.NoError(t, ldg.Record(ctx, "hotfix", "1.4.1-e5f6a7b8-09876543"))

	name, err := ldg.LastBundleName(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, "1.4.0-a1b2c3d4-e5f6a7b8", name)

	name, err = ldg.LastBundleName(ctx, "hotfix")
	require.NoError(t, err)
	assert.Equal(t, "1.4.1-e5f6a7b8-09876543", name)

	name, err = ldg.LastBundleName(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, name)
}

func TestFileLedgerRecordOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	ldg := NewFileLedger(path)
	ctx := context.Background()

	require.NoError(t, ldg.Record(ctx, "default", "1.0.0-aaaaaaaa-bbbbbbbb"))
	require.NoError(t, ldg.Record(ctx, "default", "1.1.0-bbbbbbbb-cccccccc"))

	name, err := ldg.LastBundleName(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, "1.1.0-bbbbbbbb-cccccccc", name)
}

func TestFileLedgerCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\n  - not a mapping\n"), 0o644))

	ldg := NewFileLedger(path)
	_, err := ldg.LastBundleName(context.Background(), "default")
	require.Error(t, err)
}

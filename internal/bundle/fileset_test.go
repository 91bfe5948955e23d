package bundle

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbforge/sqlbundle/internal/service/git"
)

func TestFileSetResolveFromDiff(t *testing.T) {
	repo := &mockRepo{
		changes: []git.PathChange{
			{OldPath: "", NewPath: "views/v_orders.sql"},
			{OldPath: "procs/pr_load.sql", NewPath: "procs/pr_load.sql"},
			{OldPath: "procs/pr_old.sql", NewPath: ""},
			{OldPath: "", NewPath: "README.md"},
		},
	}
	resolver := NewFileSetResolver(repo, testLogger())

	paths, err := resolver.Resolve(context.Background(), CommitRange{}, nil, "*.sql")
	require.NoError(t, err)

	// Filtered by pattern, sorted lexicographically.
	assert.Equal(t, []string{"procs/pr_load.sql", "procs/pr_old.sql", "views/v_orders.sql"}, paths)
}

func TestFileSetResolveRenameKeepsBothSides(t *testing.T) {
	repo := &mockRepo{
		changes: []git.PathChange{
			{OldPath: "procs/pr_load.sql", NewPath: "procs/pr_load_v2.sql"},
		},
	}
	resolver := NewFileSetResolver(repo, testLogger())

	paths, err := resolver.Resolve(context.Background(), CommitRange{}, nil, "*.sql")
	require.NoError(t, err)

	assert.Equal(t, []string{"procs/pr_load.sql", "procs/pr_load_v2.sql"}, paths)
}

func TestFileSetResolveExplicitList(t *testing.T) {
	repo := &mockRepo{
		changes: []git.PathChange{
			{OldPath: "", NewPath: "never/used.sql"},
		},
	}
	resolver := NewFileSetResolver(repo, testLogger())

	// The explicit list keeps its order, drops duplicates, and is not
	// filtered by the pattern.
	explicit := []string{"z.sql", "a.txt", "z.sql", "m.sql"}
	paths, err := resolver.Resolve(context.Background(), CommitRange{}, explicit, "*.sql")
	require.NoError(t, err)

	assert.Equal(t, []string{"z.sql", "a.txt", "m.sql"}, paths)
}

func TestFileSetResolveEmptyDiff(t *testing.T) {
	resolver := NewFileSetResolver(&mockRepo{}, testLogger())

	paths, err := resolver.Resolve(context.Background(), CommitRange{}, nil, "*.sql")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestCompileGlob(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		path    string
		match   bool
	}{
		{name: "star crosses separators", pattern: "*.sql", path: "deep/nested/file.sql", match: true},
		{name: "suffix mismatch", pattern: "*.sql", path: "file.sqlx", match: false},
		{name: "question mark", pattern: "v?.sql", path: "v1.sql", match: true},
		{name: "question mark needs a character", pattern: "v?.sql", path: "v.sql", match: false},
		{name: "character class", pattern: "v[12].sql", path: "v2.sql", match: true},
		{name: "negated class", pattern: "v[!12].sql", path: "v3.sql", match: true},
		{name: "negated class excludes", pattern: "v[!12].sql", path: "v1.sql", match: false},
		{name: "prefix anchor", pattern: "procs/*", path: "procs/pr_load.sql", match: true},
		{name: "whole-path match", pattern: "procs/*", path: "views/procs/x.sql", match: false},
		{name: "literal dots escaped", pattern: "a.sql", path: "axsql", match: false},
		{name: "unclosed class is literal", pattern: "a[.sql", path: "a[.sql", match: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re, err := compileGlob(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.match, re.MatchString(tt.path))
		})
	}
}

func TestLoadFileList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "files.txt")
	content := "procs/pr_load.sql\n\n  views/v_orders.sql  \n\t\nfuncs/fn_total.sql"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	paths, err := LoadFileList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"procs/pr_load.sql", "views/v_orders.sql", "funcs/fn_total.sql"}, paths)
}

func TestLoadFileListMissingFile(t *testing.T) {
	_, err := LoadFileList(filepath.Join(t.TempDir(), "absent.txt"))
	require.Error(t, err)
}

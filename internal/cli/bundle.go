package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dbforge/sqlbundle/internal/bundle"
	"github.com/dbforge/sqlbundle/internal/service/git"
	"github.com/dbforge/sqlbundle/internal/service/ledger"
)

var (
	bundleRepoPath    string
	bundleTag         string
	bundleFromCommit  string
	bundleToCommit    string
	bundleFilesPath   string
	bundlePattern     string
	bundleReleasesDir string
	bundleReleaseType string
	bundleDBURI       string
)

func init() {
	bundleCmd.Flags().StringVar(&bundleRepoPath, "repo", "", "root of a working copy of the repo (default: current directory)")
	bundleCmd.Flags().StringVar(&bundleTag, "tag", "", "prefix for the bundle name, typically a release version (default: a generated timestamp)")
	bundleCmd.Flags().StringVar(&bundleFromCommit, "from", "", "first commit of the range (default: last applied commit from the ledger, else the history root)")
	bundleCmd.Flags().StringVar(&bundleToCommit, "to", "", "last commit of the range (default: the current branch tip)")
	bundleCmd.Flags().StringVar(&bundleFilesPath, "files", "", "file listing repo-relative paths to bundle, one per line (default: the commit-range diff)")
	bundleCmd.Flags().StringVar(&bundlePattern, "pattern", "", "shell-style pattern selecting files from the diff (default: *.sql)")
	bundleCmd.Flags().StringVar(&bundleReleasesDir, "releases-dir", "", "directory, relative to the repo root, where bundles are written")
	bundleCmd.Flags().StringVar(&bundleReleaseType, "release-type", "", "ledger key this release stream is tracked under")
	bundleCmd.Flags().StringVar(&bundleDBURI, "dburi", "", "database URI, eg tim:5ecret@svr-db1/tdi (default: no database access)")
}

// bundleCmd builds one release bundle.
var bundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Build a release bundle from a commit range",
	RunE:  runBundle,
}

// runBundle implements the bundle command.
func runBundle(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	applyBundleFlags()

	repo, err := git.NewService(git.WithRepoPath(cfg.Repo.Path))
	if err != nil {
		return err
	}

	ldg, databaseName, closeLedger, err := openLedger()
	if err != nil {
		return err
	}
	defer closeLedger()

	pipeline := bundle.NewPipeline(repo, ldg, bundle.PipelineConfig{
		Tag:          bundleTag,
		ReleaseType:  cfg.Bundle.ReleaseType,
		DatabaseName: databaseName,
		ExplicitFrom: bundleFromCommit,
		ExplicitTo:   bundleToCommit,
		FileListPath: bundleFilesPath,
		Pattern:      cfg.Bundle.Pattern,
		ReleasesDir:  filepath.Join(cfg.Repo.Path, cfg.Bundle.ReleasesDir),
	}, logger)

	result, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}

	printTitle("Release Bundle")
	fmt.Printf("  %s %s\n", styles.Success.Render("name:"), result.BundleName)
	fmt.Printf("  %s %s\n", styles.Success.Render("path:"), result.Path)
	fmt.Printf("  %s %s..%s\n", styles.Subtle.Render("range:"), result.Range.From, result.Range.To)
	fmt.Printf("  %s %d\n", styles.Subtle.Render("files:"), len(result.Files))

	return nil
}

// applyBundleFlags folds command-line flags into the loaded config.
func applyBundleFlags() {
	if bundleRepoPath != "" {
		cfg.Repo.Path = bundleRepoPath
	}
	if bundlePattern != "" {
		cfg.Bundle.Pattern = bundlePattern
	}
	if bundleReleasesDir != "" {
		cfg.Bundle.ReleasesDir = bundleReleasesDir
	}
	if bundleReleaseType != "" {
		cfg.Bundle.ReleaseType = bundleReleaseType
	}
	if bundleDBURI != "" {
		cfg.Ledger.DBURI = bundleDBURI
		cfg.Ledger.File = ""
	}
}

// openLedger builds the ledger service the config names, returning the
// target database name when one is known and a close function.
func openLedger() (ledger.Service, string, func(), error) {
	switch {
	case cfg.Ledger.DBURI != "":
		sqlLedger, err := ledger.OpenSQLServer(cfg.Ledger.DBURI)
		if err != nil {
			return nil, "", nil, err
		}
		databaseName := cfg.Bundle.Database
		if databaseName == "" {
			databaseName = sqlLedger.Database()
		}
		return sqlLedger, databaseName, func() {
			if err := sqlLedger.Close(); err != nil {
				logger.Warn("failed to close database connection", "error", err)
			}
		}, nil
	case cfg.Ledger.File != "":
		return ledger.NewFileLedger(cfg.Ledger.File), cfg.Bundle.Database, func() {}, nil
	default:
		return ledger.None{}, cfg.Bundle.Database, func() {}, nil
	}
}

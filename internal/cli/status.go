package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbforge/sqlbundle/internal/bundle"
)

var statusReleaseType string

func init() {
	statusCmd.Flags().StringVar(&statusReleaseType, "release-type", "", "ledger key this release stream is tracked under")
	statusCmd.Flags().StringVar(&bundleDBURI, "dburi", "", "database URI, eg tim:5ecret@svr-db1/tdi (default: no database access)")
}

// statusCmd reports the last bundle the ledger has recorded.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last recorded release bundle",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if statusReleaseType != "" {
		cfg.Bundle.ReleaseType = statusReleaseType
	}
	if bundleDBURI != "" {
		cfg.Ledger.DBURI = bundleDBURI
		cfg.Ledger.File = ""
	}

	ldg, _, closeLedger, err := openLedger()
	if err != nil {
		return err
	}
	defer closeLedger()

	printTitle("Ledger Status")

	name, err := ldg.LastBundleName(ctx, cfg.Bundle.ReleaseType)
	if err != nil {
		return err
	}
	if name == "" {
		fmt.Printf("  %s\n", styles.Subtle.Render("no bundle recorded for release type "+cfg.Bundle.ReleaseType))
		return nil
	}

	fmt.Printf("  %s %s\n", styles.Success.Render("bundle:"), name)
	fmt.Printf("  %s %s\n", styles.Subtle.Render("release type:"), cfg.Bundle.ReleaseType)

	parsed, err := bundle.ParseBundleName(name)
	if err != nil {
		fmt.Printf("  %s\n", styles.Warning.Render("recorded name does not follow the <tag>-<from>-<to> convention"))
		return nil
	}
	fmt.Printf("  %s %s\n", styles.Subtle.Render("tag:"), parsed.Tag)
	fmt.Printf("  %s %s..%s\n", styles.Subtle.Render("range:"), parsed.FromShort, parsed.ToShort)

	return nil
}

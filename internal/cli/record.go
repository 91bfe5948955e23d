package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbforge/sqlbundle/internal/bundle"
	sberrors "github.com/dbforge/sqlbundle/internal/errors"
	"github.com/dbforge/sqlbundle/internal/service/ledger"
)

var recordReleaseType string

func init() {
	recordCmd.Flags().StringVar(&recordReleaseType, "release-type", "", "ledger key this release stream is tracked under")
}

// recordCmd marks a bundle as applied in the file ledger. Database
// ledgers are updated by the bundle itself when it runs, so they have
// nothing to record here.
var recordCmd = &cobra.Command{
	Use:   "record <bundle-name>",
	Short: "Record a bundle as applied in the file ledger",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecord,
}

func runRecord(cmd *cobra.Command, args []string) error {
	const op = "cli.runRecord"

	ctx := cmd.Context()
	name := args[0]

	if recordReleaseType != "" {
		cfg.Bundle.ReleaseType = recordReleaseType
	}
	if cfg.Ledger.File == "" {
		return sberrors.Config(op, "recording requires a file ledger (set ledger.file)")
	}

	if _, err := bundle.ParseBundleName(name); err != nil {
		return err
	}

	if err := ledger.NewFileLedger(cfg.Ledger.File).Record(ctx, cfg.Bundle.ReleaseType, name); err != nil {
		return err
	}

	fmt.Printf("%s %s\n", styles.Success.Render("recorded"), name)
	return nil
}

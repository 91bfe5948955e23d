package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// Registers the "sqlserver" database/sql driver.
	_ "github.com/microsoft/go-mssqldb"

	sberrors "github.com/dbforge/sqlbundle/internal/errors"
)

// Ensure SQLServerLedger implements Service.
var _ Service = (*SQLServerLedger)(nil)

// SQLServerLedger reads the release ledger held on a SQL Server target.
// The ledger row itself is written by the bundle epilogue at apply time,
// never by this process.
type SQLServerLedger struct {
	db  *sql.DB
	uri DBURI
}

// OpenSQLServer connects to the database named by the URI-style
// connection string (see ParseDBURI).
func OpenSQLServer(dburi string) (*SQLServerLedger, error) {
	const op = "ledger.OpenSQLServer"

	uri, err := ParseDBURI(dburi)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlserver", uri.DSN())
	if err != nil {
		return nil, sberrors.LedgerWrap(err, op, fmt.Sprintf("failed to open connection to %s/%s", uri.Server, uri.Database))
	}

	return &SQLServerLedger{db: db, uri: uri}, nil
}

// Database returns the target database name from the connection URI.
func (l *SQLServerLedger) Database() string {
	return l.uri.Database
}

// LastBundleName returns the last bundle recorded for the release type,
// or an empty string when none has been applied yet.
func (l *SQLServerLedger) LastBundleName(ctx context.Context, releaseType string) (string, error) {
	const op = "ledger.LastBundleName"

	var name sql.NullString
	row := l.db.QueryRowContext(ctx, "SELECT release.fn_release_bundle(@p1)", releaseType)
	if err := row.Scan(&name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", sberrors.LedgerWrap(err, op, fmt.Sprintf("failed to query last bundle for release type %q", releaseType))
	}

	if !name.Valid {
		return "", nil
	}
	return name.String, nil
}

// Close releases the database connection.
func (l *SQLServerLedger) Close() error {
	return l.db.Close()
}

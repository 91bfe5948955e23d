package ledger

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	sberrors "github.com/dbforge/sqlbundle/internal/errors"
)

// schemePattern matches an explicit URI scheme prefix.
var schemePattern = regexp.MustCompile(`^[^:]+://`)

// DBURI is a parsed URI-style database connection string.
//
// The most common form is simply <server>/<database> (eg SVR09/TDI).
// Credentials can be included following the URI convention, eg
// tim:secret@SVR09/TDI, and a scheme can name the database type, eg
// mssql://svr-db-cas-dev/TDI_DEV. Only SQL Server ("mssql") is supported.
type DBURI struct {
	Scheme   string
	Server   string
	Database string
	Username string
	Password string
}

// ParseDBURI breaks a URI-style connection string into its parts.
// A missing scheme is treated as mssql.
func ParseDBURI(dburi string) (DBURI, error) {
	const op = "ledger.ParseDBURI"

	if !schemePattern.MatchString(dburi) {
		dburi = "mssql://" + dburi
	}

	parsed, err := url.Parse(dburi)
	if err != nil {
		return DBURI{}, sberrors.ConfigWrap(err, op, "invalid database URI")
	}

	scheme := parsed.Scheme
	if scheme == "" {
		scheme = "mssql"
	}
	if !strings.EqualFold(scheme, "mssql") {
		return DBURI{}, sberrors.Config(op, fmt.Sprintf("unsupported database scheme %q: only mssql connections are allowed", scheme))
	}

	password, _ := parsed.User.Password()

	return DBURI{
		Scheme:   "mssql",
		Server:   parsed.Hostname(),
		Database: strings.TrimPrefix(parsed.Path, "/"),
		Username: parsed.User.Username(),
		Password: password,
	}, nil
}

// DSN renders the URI as a go-mssqldb connection string. Without
// credentials the driver falls back to integrated authentication.
func (u DBURI) DSN() string {
	dsn := url.URL{
		Scheme:   "sqlserver",
		Host:     u.Server,
		RawQuery: url.Values{"database": []string{u.Database}}.Encode(),
	}
	if u.Username != "" {
		dsn.User = url.UserPassword(u.Username, u.Password)
	}
	return dsn.String()
}

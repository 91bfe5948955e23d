package ledger

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	sberrors "github.com/dbforge/sqlbundle/internal/errors"
	"github.com/dbforge/sqlbundle/internal/fileutil"
)

// maxLedgerFileSize bounds the ledger file read. The file holds one line
// per release stream; anything larger is corrupt.
const maxLedgerFileSize = 1 << 20

// Ensure FileLedger implements both Service and Recorder.
var (
	_ Service  = (*FileLedger)(nil)
	_ Recorder = (*FileLedger)(nil)
)

// FileLedger keeps the ledger in a YAML file mapping release type to the
// last bundle name applied. It serves release streams that are applied
// without database connectivity; since no epilogue stamp reaches this
// file on apply, entries are written explicitly via Record.
type FileLedger struct {
	path string
}

// NewFileLedger creates a file-backed ledger at the given path.
// The file does not have to exist yet.
func NewFileLedger(path string) *FileLedger {
	return &FileLedger{path: path}
}

// LastBundleName returns the bundle recorded for the release type, or an
// empty string when the file or the entry is absent.
func (l *FileLedger) LastBundleName(_ context.Context, releaseType string) (string, error) {
	entries, err := l.load()
	if err != nil {
		return "", err
	}
	return entries[releaseType], nil
}

// Record stores the bundle name as the last one applied for the release type.
func (l *FileLedger) Record(_ context.Context, releaseType, bundleName string) error {
	const op = "ledger.Record"

	entries, err := l.load()
	if err != nil {
		return err
	}
	if entries == nil {
		entries = make(map[string]string)
	}
	entries[releaseType] = bundleName

	data, err := yaml.Marshal(entries)
	if err != nil {
		return sberrors.LedgerWrap(err, op, "failed to marshal ledger")
	}
	if err := fileutil.AtomicWriteFile(l.path, data, 0o644); err != nil {
		return sberrors.LedgerWrap(err, op, fmt.Sprintf("failed to write ledger file %s", l.path))
	}

	return nil
}

// load reads the ledger file, tolerating a missing file.
func (l *FileLedger) load() (map[string]string, error) {
	const op = "ledger.load"

	data, err := fileutil.ReadFileLimited(l.path, maxLedgerFileSize)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, sberrors.LedgerWrap(err, op, fmt.Sprintf("failed to read ledger file %s", l.path))
	}

	entries := make(map[string]string)
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, sberrors.LedgerWrap(err, op, fmt.Sprintf("failed to parse ledger file %s", l.path))
	}

	return entries, nil
}

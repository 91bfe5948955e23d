// Package ledger provides access to the release ledger: the external
// record of the last bundle name applied for a release type.
package ledger

import (
	"context"
)

// Service defines read access to the release ledger.
type Service interface {
	// LastBundleName returns the bundle name last recorded for the release
	// type, or an empty string when no entry exists.
	LastBundleName(ctx context.Context, releaseType string) (string, error)
}

// Recorder is implemented by ledgers that can be stamped directly.
// The SQL Server ledger is stamped by the bundle's own epilogue when the
// bundle is applied, so it does not implement Recorder.
type Recorder interface {
	// Record stores the bundle name as the last one applied for the release type.
	Record(ctx context.Context, releaseType, bundleName string) error
}

// None is a ledger with no backing store. Every lookup reports no entry,
// which makes commit-range resolution fall back to the history root.
type None struct{}

// LastBundleName always reports no entry.
func (None) LastBundleName(_ context.Context, _ string) (string, error) {
	return "", nil
}

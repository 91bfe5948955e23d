// Package bundle implements the release-bundle assembly pipeline:
// commit-range resolution, file-set resolution, text normalization and
// deterministic bundle rendering.
package bundle

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	sberrors "github.com/dbforge/sqlbundle/internal/errors"
)

// ShortHashLength is the fixed length of the commit-hash prefixes used in
// bundle names.
const ShortHashLength = 8

// bundleNamePattern is the grammar a bundle name must satisfy so that the
// ledger entry round-trips back into its three components.
var bundleNamePattern = regexp.MustCompile(`^[^-]*-[0-9a-f]{8}-[0-9a-f]{8}$`)

// BundleName builds the bundle identifier from the release tag and the
// short forms of the range commits. The tag must not itself contain a
// hyphen, or the name stops splitting into exactly three fields; that
// constraint is documented rather than enforced here.
func BundleName(tag, fromShort, toShort string) string {
	return tag + "-" + fromShort + "-" + toShort
}

// ParsedBundleName is a bundle name split back into its components.
type ParsedBundleName struct {
	Tag       string
	FromShort string
	ToShort   string
}

// ParseBundleName splits a bundle name into tag and short commit hashes.
func ParseBundleName(name string) (ParsedBundleName, error) {
	const op = "bundle.ParseBundleName"

	if !bundleNamePattern.MatchString(name) {
		return ParsedBundleName{}, sberrors.Validation(op, fmt.Sprintf("bundle name %q does not split into <tag>-<from>-<to>", name))
	}

	parts := strings.Split(name, "-")
	return ParsedBundleName{
		Tag:       parts[0],
		FromShort: parts[1],
		ToShort:   parts[2],
	}, nil
}

// GeneratedTag returns the default release tag for runs without an
// explicit one. The format is deliberately hyphen-free so the generated
// name still parses as three fields when read back from the ledger.
func GeneratedTag(now time.Time) string {
	return now.Format("20060102T150405")
}

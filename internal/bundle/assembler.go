package bundle

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	sberrors "github.com/dbforge/sqlbundle/internal/errors"
	"github.com/dbforge/sqlbundle/internal/service/git"
)

// useDirectivePattern matches a USE <database> / GO directive pair
// anchored at the start of a line. Member files must not override the
// bundle's own database context, so these pairs are stripped from file
// bodies before concatenation.
var useDirectivePattern = regexp.MustCompile(`(?i)(\n|^)USE[ \t]+[^\n]*\nGO[ \t]*\n`)

// BundleSpec describes one bundle to assemble.
type BundleSpec struct {
	// Tag is the release tag prefixing the bundle name.
	Tag string
	// ReleaseType is the ledger namespace the bundle is tracked under.
	ReleaseType string
	// DatabaseName, when set, emits a USE directive in the prologue.
	DatabaseName string
	// Range is the resolved commit range.
	Range CommitRange
	// Paths is the ordered set of relative paths to include.
	Paths []string
}

// Bundle is the fully rendered release script.
type Bundle struct {
	// Name is the deterministic bundle identifier.
	Name string
	// Content is the rendered script.
	Content []byte
	// Files are the relative paths actually included, in render order.
	Files []string
}

// Assembler composes the prologue, per-file sections and epilogue into a
// single release script. Given the same commit range and file contents
// two runs produce byte-identical output: the name, the section order
// and the normalized content are all deterministic.
type Assembler struct {
	repo       git.Service
	normalizer *Normalizer
	logger     *log.Logger
}

// NewAssembler creates an assembler.
func NewAssembler(repo git.Service, normalizer *Normalizer, logger *log.Logger) *Assembler {
	return &Assembler{
		repo:       repo,
		normalizer: normalizer,
		logger:     logger,
	}
}

// Assemble renders the bundle for the spec. A file missing at the range
// head is skipped with a warning; a file that cannot be decoded aborts
// the whole assembly so no partial bundle is ever produced.
func (a *Assembler) Assemble(ctx context.Context, spec BundleSpec) (*Bundle, error) {
	const op = "bundle.Assemble"

	fromShort, err := a.repo.ShortHash(ctx, spec.Range.From, ShortHashLength)
	if err != nil {
		return nil, err
	}
	toShort, err := a.repo.ShortHash(ctx, spec.Range.To, ShortHashLength)
	if err != nil {
		return nil, err
	}
	name := BundleName(spec.Tag, fromShort, toShort)

	var b strings.Builder
	writePrologue(&b, spec.DatabaseName, spec.ReleaseType, name)
	writeSeparator(&b)

	included := make([]string, 0, len(spec.Paths))
	for _, relPath := range spec.Paths {
		raw, err := a.repo.ReadFileAt(ctx, spec.Range.To, relPath)
		if err != nil {
			if errors.Is(err, git.ErrFileNotAtCommit) {
				a.logger.Warn("skipping file: no longer present at range head", "path", relPath)
				continue
			}
			return nil, err
		}

		a.logger.Info("using file", "path", relPath)
		text, err := a.normalizer.Normalize(raw)
		if err != nil {
			return nil, sberrors.Wrapf(err, sberrors.KindDecode, op, "failed to decode %s", relPath)
		}

		writeFileSection(&b, relPath, text)
		writeSeparator(&b)
		included = append(included, relPath)
	}

	writeEpilogue(&b, spec.ReleaseType, name)
	writeSeparator(&b)

	return &Bundle{
		Name:    name,
		Content: []byte(b.String()),
		Files:   included,
	}, nil
}

// writePrologue emits the database context and the monotonicity guard.
// The current-bundle variable is an expression the engine evaluates at
// apply time, so the check holds even when a newer bundle lands between
// build and apply. The comparison is plain string ordering on bundle
// names, not a semantic version comparison; see Pipeline.Run for the
// advisory logged when the two orderings disagree.
func writePrologue(b *strings.Builder, databaseName, releaseType, name string) {
	if databaseName != "" {
		fmt.Fprintf(b, "USE %s\nGO\n\n", databaseName)
	}
	fmt.Fprintf(b, "DECLARE @v_release_bundle VARCHAR(60) = '%s';\n", name)
	fmt.Fprintf(b, "DECLARE @v_current_bundle VARCHAR(60) = release.fn_release_bundle('%s');\n", releaseType)
	b.WriteString("IF @v_release_bundle <= @v_current_bundle THROW 51000, 'The incoming release bundle is not newer than the last one applied.', 1;\n\n")
}

// writeFileSection emits the path banner and the normalized body, ending
// with exactly one trailing newline.
func writeFileSection(b *strings.Builder, relPath, text string) {
	fmt.Fprintf(b, "--\n-- %s\n--\n", relPath)
	body := useDirectivePattern.ReplaceAllString(text, "$1")
	b.WriteString(strings.TrimRight(body, "\n"))
	b.WriteString("\n")
}

// writeEpilogue emits the directive that records the bundle against the
// release type when the bundle is applied.
func writeEpilogue(b *strings.Builder, releaseType, name string) {
	fmt.Fprintf(b, "EXEC release.pr_tag_release_bundle @i_release_type = '%s', @i_release_bundle = '%s';\n", releaseType, name)
}

// writeSeparator emits a standalone statement separator.
func writeSeparator(b *strings.Builder) {
	b.WriteString("GO\n\n")
}

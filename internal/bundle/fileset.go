package bundle

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"regexp"
	"runtime"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	sberrors "github.com/dbforge/sqlbundle/internal/errors"
	"github.com/dbforge/sqlbundle/internal/service/git"
)

// FileSetResolver determines the ordered set of relative paths in scope
// for a bundle.
type FileSetResolver struct {
	repo   git.Service
	logger *log.Logger
}

// NewFileSetResolver creates a file-set resolver.
func NewFileSetResolver(repo git.Service, logger *log.Logger) *FileSetResolver {
	return &FileSetResolver{repo: repo, logger: logger}
}

// Resolve returns the relative paths to bundle.
//
// An explicit list is used verbatim: its order is kept, duplicates are
// dropped, and it is deliberately NOT filtered by the pattern or checked
// for existence. The caller supplying a list is trusted to mean it.
//
// Without a list, the candidate set is the union of paths touched on
// either side of every change in the range. A rename contributes both
// names; existence-checking during assembly skips the one that is gone.
// Candidates are filtered by the pattern and sorted lexicographically;
// the ordering is a determinism requirement, not cosmetics.
func (f *FileSetResolver) Resolve(ctx context.Context, rng CommitRange, explicit []string, pattern string) ([]string, error) {
	if len(explicit) > 0 {
		return dedupe(explicit), nil
	}

	changes, err := f.repo.DiffPaths(ctx, rng.From, rng.To)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, change := range changes {
		for _, p := range []string{change.OldPath, change.NewPath} {
			if p != "" {
				seen[p] = struct{}{}
			}
		}
	}

	matcher, err := compileGlob(pattern)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		if matcher.MatchString(p) {
			paths = append(paths, p)
		} else {
			f.logger.Debug("skipping path: does not match code pattern", "path", p, "pattern", pattern)
		}
	}
	sort.Strings(paths)

	return paths, nil
}

// dedupe removes duplicate entries while preserving first-seen order.
func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// LoadFileList reads an explicit file list, one relative path per line.
// Whitespace is trimmed and blank lines dropped.
func LoadFileList(path string) ([]string, error) {
	const op = "bundle.LoadFileList"

	f, err := os.Open(path) // #nosec G304 -- path comes from the invoking user
	if err != nil {
		return nil, sberrors.IOWrap(err, op, fmt.Sprintf("failed to open file list %s", path))
	}
	defer f.Close()

	var paths []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		paths = append(paths, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, sberrors.IOWrap(err, op, fmt.Sprintf("failed to read file list %s", path))
	}

	return paths, nil
}

// compileGlob translates a shell-style glob into a regular expression
// matched against the whole relative path. As with fnmatch-style
// globbing, * and ? cross directory separators. Case sensitivity follows
// the host filesystem's default.
func compileGlob(pattern string) (*regexp.Regexp, error) {
	const op = "bundle.compileGlob"

	var sb strings.Builder
	if caseInsensitiveFS() {
		sb.WriteString("(?i)")
	}
	sb.WriteString("^")
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteString(".")
		case '[':
			end := strings.IndexByte(pattern[i+1:], ']')
			if end < 0 {
				sb.WriteString(regexp.QuoteMeta(string(c)))
				continue
			}
			set := pattern[i+1 : i+1+end]
			i += end + 1
			if strings.HasPrefix(set, "!") {
				set = "^" + set[1:]
			}
			sb.WriteString("[" + set + "]")
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	sb.WriteString("$")

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, sberrors.ConfigWrap(err, op, fmt.Sprintf("invalid code pattern %q", pattern))
	}
	return re, nil
}

// caseInsensitiveFS reports whether the host's default filesystem
// compares names case-insensitively.
func caseInsensitiveFS() bool {
	return runtime.GOOS == "windows" || runtime.GOOS == "darwin"
}

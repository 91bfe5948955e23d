package bundle

import (
	"bytes"
	"fmt"
	"regexp"
	"runtime"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	sberrors "github.com/dbforge/sqlbundle/internal/errors"
)

// Byte-order marks checked against the start of a file, in order.
var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}
)

// encodingCookiePattern matches a comment-style encoding declaration near
// the start of a file, in the manner of a language encoding cookie.
var encodingCookiePattern = regexp.MustCompile(`^[ \t\v]*(?:--|#).*?coding[:=][ \t]*([-_.a-zA-Z0-9]+)`)

// Normalizer decodes a file's raw bytes and unifies its line endings.
// The output convention is always LF; newline detection exists to report
// what the file used, and to keep the rewrite honest on mixed input.
type Normalizer struct {
	logger *log.Logger

	// platformNewline is the host convention used to break detection ties.
	platformNewline string
	// platformEncoding is the host's preferred encoding, tried after UTF-8.
	platformEncoding encoding.Encoding
	// platformEncodingName names platformEncoding for logging.
	platformEncodingName string
}

// NewNormalizer creates a normalizer with the host platform's defaults.
func NewNormalizer(logger *log.Logger) *Normalizer {
	n := &Normalizer{
		logger:               logger,
		platformNewline:      "\n",
		platformEncoding:     unicode.UTF8,
		platformEncodingName: "utf-8",
	}
	if runtime.GOOS == "windows" {
		n.platformNewline = "\r\n"
		n.platformEncoding = charmap.Windows1252
		n.platformEncodingName = "windows-1252"
	}
	return n
}

// candidateEncoding is one encoding to attempt, with a name for logging.
type candidateEncoding struct {
	name string
	enc  encoding.Encoding
}

// Normalize decodes raw bytes and rewrites every CRLF to a single LF.
// It fails with a decode error when no candidate encoding accepts the
// content; that failure is fatal for the whole bundle build.
func (n *Normalizer) Normalize(raw []byte) (string, error) {
	const op = "bundle.Normalize"

	candidates := n.sniffEncoding(raw)

	var text string
	decoded := false
	for _, candidate := range candidates {
		out, err := decodeStrict(raw, candidate.enc)
		if err != nil {
			n.logger.Debug("decode attempt failed", "encoding", candidate.name, "error", err)
			continue
		}
		n.logger.Debug("decoded file content", "encoding", candidate.name)
		text = out
		decoded = true
		break
	}
	if !decoded {
		return "", sberrors.Decode(op, "unable to decode content with any candidate encoding")
	}

	convention := n.sniffNewlineConvention(text)
	n.logger.Debug("detected newline convention", "newline", fmt.Sprintf("%q", convention))

	return strings.ReplaceAll(text, "\r\n", "\n"), nil
}

// sniffEncoding determines the candidate encodings for a file:
//
//   - a byte-order mark pins the encoding outright;
//   - otherwise an encoding cookie on the first line pins it, when the
//     declared codec name is recognized;
//   - otherwise a fixed fallback list is tried: UTF-8, then the
//     platform's preferred encoding.
func (n *Normalizer) sniffEncoding(raw []byte) []candidateEncoding {
	switch {
	case bytes.HasPrefix(raw, bomUTF8):
		return []candidateEncoding{{name: "utf-8-sig", enc: unicode.UTF8BOM}}
	case bytes.HasPrefix(raw, bomUTF16BE):
		return []candidateEncoding{{name: "utf-16be", enc: unicode.UTF16(unicode.BigEndian, unicode.UseBOM)}}
	case bytes.HasPrefix(raw, bomUTF16LE):
		return []candidateEncoding{{name: "utf-16le", enc: unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)}}
	}

	if cookie := n.sniffCookie(raw); cookie != nil {
		return []candidateEncoding{*cookie}
	}

	return []candidateEncoding{
		{name: "utf-8", enc: unicode.UTF8},
		{name: n.platformEncodingName, enc: n.platformEncoding},
	}
}

// sniffCookie looks for an encoding declaration on the first line.
// An unrecognized codec name is logged and ignored rather than failing.
func (n *Normalizer) sniffCookie(raw []byte) *candidateEncoding {
	firstLine := raw
	if idx := bytes.IndexByte(raw, '\n'); idx >= 0 {
		firstLine = raw[:idx+1]
	}

	// The line is decoded with the platform's preferred encoding just to
	// match the cookie; the declared codec then decodes the full content.
	decodedLine, err := decodeStrict(firstLine, n.platformEncoding)
	if err != nil {
		return nil
	}

	match := encodingCookiePattern.FindStringSubmatch(decodedLine)
	if match == nil {
		return nil
	}

	codec := match[1]
	enc, err := ianaindex.IANA.Encoding(codec)
	if err != nil || enc == nil {
		n.logger.Warn("encoding cookie has invalid codec name", "codec", codec)
		return nil
	}

	return &candidateEncoding{name: codec, enc: enc}
}

// decodeStrict decodes raw with the given encoding, treating any input
// the decoder cannot represent as a hard failure rather than replacing
// it, so the fallback chain can move on to the next candidate.
func decodeStrict(raw []byte, enc encoding.Encoding) (string, error) {
	if enc == unicode.UTF8 || enc == unicode.UTF8BOM {
		data := bytes.TrimPrefix(raw, bomUTF8)
		if !utf8.Valid(data) {
			return "", fmt.Errorf("invalid UTF-8 byte sequence")
		}
		return string(data), nil
	}

	out, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		return "", err
	}
	// x/text decoders substitute U+FFFD for undecodable input instead of
	// failing; surface that as an error unless the source itself carried
	// a replacement character.
	if bytes.ContainsRune(out, utf8.RuneError) && !bytes.Contains(raw, replacementRune) {
		return "", fmt.Errorf("undecodable byte sequence")
	}
	return string(out), nil
}

// replacementRune is U+FFFD encoded as UTF-8, used to detect replacement
// characters that were already present in the source.
var replacementRune = []byte("�")

// sniffNewlineConvention determines which line-ending convention
// predominates in the text. Editors can produce either convention on
// either platform, and a file that has been copied around might carry
// both. Candidates are ranked by occurrence count, then by whether the
// candidate is the platform default, then by the candidate itself; a
// file with no line endings at all ranks the platform default first.
func (n *Normalizer) sniffNewlineConvention(text string) string {
	type ranked struct {
		count      int
		isPlatform bool
		candidate  string
	}

	crlf := 0
	loneLF := 0
	for i := 0; i < len(text); i++ {
		if text[i] != '\n' {
			continue
		}
		if i > 0 && text[i-1] == '\r' {
			crlf++
		} else {
			loneLF++
		}
	}

	conventions := []ranked{
		{count: 0, isPlatform: true, candidate: n.platformNewline},
		{count: crlf, isPlatform: n.platformNewline == "\r\n", candidate: "\r\n"},
		{count: loneLF, isPlatform: n.platformNewline == "\n", candidate: "\n"},
	}

	best := conventions[0]
	for _, c := range conventions[1:] {
		if c.count != best.count {
			if c.count > best.count {
				best = c
			}
			continue
		}
		if c.isPlatform != best.isPlatform {
			if c.isPlatform {
				best = c
			}
			continue
		}
		if c.candidate > best.candidate {
			best = c
		}
	}

	return best.candidate
}

package bundle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sberrors "github.com/dbforge/sqlbundle/internal/errors"
)

func TestBundleName(t *testing.T) {
	assert.Equal(t, "1.4.0-a1b2c3d4-e5f6a7b8", BundleName("1.4.0", "a1b2c3d4", "e5f6a7b8"))
}

func TestParseBundleName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ParsedBundleName
		wantErr bool
	}{
		{
			name:  "release tag",
			input: "1.4.0-a1b2c3d4-e5f6a7b8",
			want:  ParsedBundleName{Tag: "1.4.0", FromShort: "a1b2c3d4", ToShort: "e5f6a7b8"},
		},
		{
			name:  "generated tag",
			input: "20260831T120000-00000000-ffffffff",
			want:  ParsedBundleName{Tag: "20260831T120000", FromShort: "00000000", ToShort: "ffffffff"},
		},
		{
			name:  "empty tag",
			input: "-a1b2c3d4-e5f6a7b8",
			want:  ParsedBundleName{Tag: "", FromShort: "a1b2c3d4", ToShort: "e5f6a7b8"},
		},
		{
			name:    "hyphenated tag does not round-trip",
			input:   "1.4.0-rc1-a1b2c3d4-e5f6a7b8",
			wantErr: true,
		},
		{
			name:    "short hash too short",
			input:   "1.4.0-a1b2c3-e5f6a7b8",
			wantErr: true,
		},
		{
			name:    "uppercase hash rejected",
			input:   "1.4.0-A1B2C3D4-e5f6a7b8",
			wantErr: true,
		},
		{
			name:    "missing fields",
			input:   "1.4.0",
			wantErr: true,
		},
		{
			name:    "empty name",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBundleName(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, sberrors.IsKind(err, sberrors.KindValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGeneratedTag(t *testing.T) {
	now := time.Date(2026, 8, 31, 14, 30, 5, 0, time.UTC)
	tag := GeneratedTag(now)

	assert.Equal(t, "20260831T143005", tag)
	assert.NotContains(t, tag, "-")

	// A generated name must survive the trip through the ledger.
	name := BundleName(tag, "a1b2c3d4", "e5f6a7b8")
	parsed, err := ParseBundleName(name)
	require.NoError(t, err)
	assert.Equal(t, tag, parsed.Tag)
}

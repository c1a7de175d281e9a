package audiofile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onetagger/autotagger-core/internal/model"
	"github.com/onetagger/autotagger-core/internal/utils"
)

// TestBuildFilenameRegex tests template compilation and named-group capture.
func TestBuildFilenameRegex(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		filename string
		title    string
		artists  string
	}{
		{
			name:     "artists dash title",
			template: "%artists% - %title%",
			filename: "Daft Punk - One More Time.mp3",
			title:    "One More Time",
			artists:  "Daft Punk",
		},
		{
			name:     "track number wildcard",
			template: "%track% %artist% - %title%",
			filename: "03 Daft Punk - Around The World.flac",
			title:    "Around The World",
			artists:  "Daft Punk",
		},
		{
			name:     "regex metacharacters in literal parts are escaped",
			template: "[%artists%] (%title%)",
			filename: "[ACME] (Thing).ogg",
			title:    "Thing",
			artists:  "ACME",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			re, err := BuildFilenameRegex(tt.template)
			require.NoError(t, err)

			assert.Equal(t, tt.title, utils.ExtractNamedGroup(re, "title", tt.filename))
			assert.Equal(t, tt.artists, utils.ExtractNamedGroup(re, "artists", tt.filename))
		})
	}
}

// TestBuildFilenameRegexNoMatch tests that a filename not shaped like the
// template captures nothing.
func TestBuildFilenameRegexNoMatch(t *testing.T) {
	t.Parallel()

	re, err := BuildFilenameRegex("%artists% - %title%")
	require.NoError(t, err)

	assert.Empty(t, utils.ExtractNamedGroup(re, "title", "no separator here.mp3"))
	assert.Empty(t, utils.ExtractNamedGroup(re, "title", "Artist - Title without extension"))
}

// TestSplitArtists tests the separator priority order.
func TestSplitArtists(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "semicolon wins over comma",
			input:    "A, B; C",
			expected: []string{"A, B", "C"},
		},
		{
			name:     "comma wins over slash",
			input:    "A/B, C",
			expected: []string{"A/B", "C"},
		},
		{
			name:     "slash as last resort",
			input:    "A/B",
			expected: []string{"A", "B"},
		},
		{
			name:     "single artist untouched",
			input:    " Solo Artist ",
			expected: []string{"Solo Artist"},
		},
		{
			name:     "empty pieces dropped",
			input:    "A;;B; ",
			expected: []string{"A", "B"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, splitArtists(tt.input))
		})
	}
}

// TestBackfillFromFilename tests that the template only fills fields the
// container left empty.
func TestBackfillFromFilename(t *testing.T) {
	t.Parallel()

	existing := "Tagged Title"
	info := &model.AudioFileInfo{ //nolint:exhaustruct // only the backfilled fields matter here.
		Path:   "/music/Daft Punk - One More Time.mp3",
		Format: model.FormatMP3,
		Title:  &existing,
	}

	backfillFromFilename(info, info.Path, "%artists% - %title%")

	require.NotNil(t, info.Title)
	assert.Equal(t, "Tagged Title", *info.Title, "existing title is kept")
	assert.Equal(t, []string{"Daft Punk"}, info.Artists)
}

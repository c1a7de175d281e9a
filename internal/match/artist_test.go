package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestMatchArtist tests the three acceptance branches of artist matching.
func TestMatchArtist(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		a          []string
		b          []string
		strictness float64
		expected   bool
	}{
		{
			name:       "exact element match",
			a:          []string{"Artist", "Lyricist"},
			b:          []string{"artist"},
			strictness: 1,
			expected:   true,
		},
		{
			name:       "substring of joined list",
			a:          []string{"Artist", "Lyricist"},
			b:          []string{"Lyrici"},
			strictness: 1,
			expected:   true,
		},
		{
			name:       "fuzzy within strictness",
			a:          []string{"Daft Punk"},
			b:          []string{"Daft Punkk"},
			strictness: 0.8,
			expected:   true,
		},
		{
			name:       "unrelated artists rejected",
			a:          []string{"Daft Punk"},
			b:          []string{"Radiohead"},
			strictness: 0.8,
			expected:   false,
		},
		{
			name:       "case and punctuation ignored",
			a:          []string{"A$AP Rocky"},
			b:          []string{"a$ap rocky"},
			strictness: 1,
			expected:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, MatchArtist(tt.a, tt.b, tt.strictness))
		})
	}
}

// TestMatchArtistSymmetric tests that swapping the argument order never
// changes the outcome.
func TestMatchArtistSymmetric(t *testing.T) {
	t.Parallel()

	pairs := [][2][]string{
		{{"Artist", "Lyricist"}, {"Lyrici", "Artist"}},
		{{"Daft Punk"}, {"Daft Punkk"}},
		{{"Daft Punk"}, {"Radiohead"}},
		{{"Some Artist"}, {}},
		{{}, {}},
	}

	for _, strictness := range []float64{0, 0.5, 0.8, 1} {
		for _, p := range pairs {
			assert.Equal(t,
				MatchArtist(p[0], p[1], strictness),
				MatchArtist(p[1], p[0], strictness),
				"pair %v strictness %v", p, strictness)
		}
	}
}

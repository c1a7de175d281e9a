package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestCleanTitle tests the CleanTitle function (steps 1 through 5).
func TestCleanTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "lowercase dash collapse trim",
			input:    "  Some - Randm   Title ",
			expected: "some randm title",
		},
		{
			name:     "article survives a trimmed string",
			input:    "The Chain",
			expected: "the chain",
		},
		{
			name:     "trailing original mix removed",
			input:    "Levels (Original Mix)",
			expected: "levels",
		},
		{
			name:     "promotional attribute removed",
			input:    "Track Name (radio edit)",
			expected: "track name",
		},
		{
			name:     "feat expression removed",
			input:    "One More Time (feat. Somebody)",
			expected: "one more time",
		},
		{
			name:     "ft without parentheses removed",
			input:    "One More Time ft. Somebody",
			expected: "one more time",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, CleanTitle(tt.input))
		})
	}
}

// TestCleanTitleIdempotent tests that CleanTitle is idempotent: cleaning an
// already-clean title changes nothing.
func TestCleanTitleIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"The Chain (Original Mix)",
		"Some - Randm   Title",
		"One More Time (feat. Somebody)",
		"A Day In The Life (radio edit)",
		"plain title",
		"",
	}

	for _, input := range inputs {
		once := CleanTitle(input)
		assert.Equal(t, once, CleanTitle(once), "input %q", input)
	}
}

// TestCleanTitleMatching tests the full 1-7 cascade used by the fuzzy pass.
func TestCleanTitleMatching(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "special characters stripped",
			input:    "Don't Stop (Believin')",
			expected: "dont stop believin",
		},
		{
			name:     "bare edit removed",
			input:    "Track Edit",
			expected: "track",
		},
		{
			name:     "diacritics transliterated",
			input:    "Béla Bártok",
			expected: "bela bartok",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, CleanTitleMatching(tt.input))
		})
	}
}

// TestCleanToStep tests that CleanToStep applies only the first n stages.
func TestCleanToStep(t *testing.T) {
	t.Parallel()

	input := "The Track (Original Mix)"

	// Step 1 only lowercases and collapses; the article and suffix survive.
	assert.Equal(t, "the track (original mix)", CleanToStep(1, input))

	// Step 3 strips the original-mix suffix but does not re-trim; the space
	// that preceded the parenthesis stays.
	assert.Equal(t, "the track ", CleanToStep(3, input))
}

// TestCleanArtists tests the lowercase/strip/sort normalization used by
// artist matching.
func TestCleanArtists(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[]string{"artist", "lyricist"},
		CleanArtists([]string{"Lyricist", " Artist "}))
}

// TestRemoveSpecial tests special-character stripping and transliteration.
func TestRemoveSpecial(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ab cd", RemoveSpecial("a.b c&d"))
	assert.Equal(t, "uber", RemoveSpecial("über"))
}

// TestNormalizedLevenshtein tests the similarity score bounds and exact
// cases.
func TestNormalizedLevenshtein(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, NormalizedLevenshtein("same", "same"), 1e-9)
	assert.InDelta(t, 1.0, NormalizedLevenshtein("", ""), 1e-9)
	assert.InDelta(t, 0.0, NormalizedLevenshtein("abc", ""), 1e-9)
	assert.InDelta(t, 0.75, NormalizedLevenshtein("abcd", "abcx"), 1e-9)
}

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestFullTitle tests version handling in full-title construction.
func TestFullTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		title    string
		version  string
		expected string
	}{
		{name: "no version", title: "Levels", version: "", expected: "Levels"},
		{name: "with version", title: "Levels", version: "Extended Mix", expected: "Levels (Extended Mix)"},
		{name: "blank version ignored", title: "Levels", version: "   ", expected: "Levels"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			track := &Track{Title: tt.title, Version: tt.version} //nolint:exhaustruct // test fixture.
			assert.Equal(t, tt.expected, track.FullTitle())
		})
	}

	assert.Empty(t, (*Track)(nil).FullTitle())
}

// TestTrackNumberIsCustom tests custom vs numeric track numbers.
func TestTrackNumberIsCustom(t *testing.T) {
	t.Parallel()

	assert.False(t, TrackNumber{Number: 3, Custom: ""}.IsCustom())
	assert.True(t, TrackNumber{Number: 0, Custom: "A1"}.IsCustom())
}

// TestMatchConstructors tests the fast-path match constructors.
func TestMatchConstructors(t *testing.T) {
	t.Parallel()

	track := &Track{Title: "t"} //nolint:exhaustruct // test fixture.

	id := NewIDMatch(track)
	assert.InDelta(t, 1.0, id.Accuracy, 1e-9)
	assert.Equal(t, MatchReasonID, id.Reason)

	isrc := NewISRCMatch(track)
	assert.Equal(t, MatchReasonISRC, isrc.Reason)

	exact := NewExactMatch(track)
	assert.Equal(t, MatchReasonFuzzy, exact.Reason)
	assert.InDelta(t, 1.0, exact.Accuracy, 1e-9)
}

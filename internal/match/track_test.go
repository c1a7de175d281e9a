package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onetagger/autotagger-core/internal/model"
)

func infoWith(title string, artists []string, duration time.Duration) *model.AudioFileInfo {
	info := &model.AudioFileInfo{ //nolint:exhaustruct // only the matching-relevant fields matter here.
		Path:    "/music/test.mp3",
		Format:  model.FormatMP3,
		Title:   &title,
		Artists: artists,
	}

	if duration > 0 {
		info.Duration = &duration
	}

	return info
}

func candidate(track *model.Track) CandidateTitle {
	return CandidateTitle{
		Title:    track.FullTitle(),
		Artists:  track.Artists,
		Duration: track.Duration,
		Track:    track,
	}
}

// TestExactFallbackCascadeHit tests the exact-match cascade accepting a
// candidate that only differs in casing, returning it exactly once.
func TestExactFallbackCascadeHit(t *testing.T) {
	t.Parallel()

	info := infoWith("Some Randm Title", []string{"Artist", "Lyricist"}, 0)
	track := &model.Track{ //nolint:exhaustruct // test fixture.
		Platform: "test",
		Title:    "Some randm title",
		Artists:  []string{"Lyrici", "Artist"},
	}
	gates := Gates{Strictness: 0.5, MatchDuration: false, MaxDurationDifference: 0}

	matches := MatchTrack(info, *info.Title, []CandidateTitle{candidate(track)}, gates, false)

	require.Len(t, matches, 1)
	assert.InDelta(t, 1.0, matches[0].Accuracy, 1e-9)
	assert.Equal(t, model.MatchReasonFuzzy, matches[0].Reason)
	assert.Same(t, track, matches[0].Track)
}

// TestExactFallbackArtistGate tests that a title-identical candidate with
// unrelated artists is rejected.
func TestExactFallbackArtistGate(t *testing.T) {
	t.Parallel()

	info := infoWith("Some Title", []string{"Daft Punk"}, 0)
	track := &model.Track{ //nolint:exhaustruct // test fixture.
		Platform: "test",
		Title:    "Some Title",
		Artists:  []string{"Radiohead"},
	}
	gates := Gates{Strictness: 0.9, MatchDuration: false, MaxDurationDifference: 0}

	assert.Empty(t, ExactFallback(info, *info.Title, []CandidateTitle{candidate(track)}, gates))
}

// TestDurationGate tests the duration gate excluding a candidate from both
// the exact cascade and the fuzzy pass.
func TestDurationGate(t *testing.T) {
	t.Parallel()

	info := infoWith("Some Title", []string{"Artist"}, 180*time.Second)
	track := &model.Track{ //nolint:exhaustruct // test fixture.
		Platform: "test",
		Title:    "Some Title",
		Artists:  []string{"Artist"},
		Duration: 240 * time.Second,
	}
	gates := Gates{Strictness: 0.5, MatchDuration: true, MaxDurationDifference: 30 * time.Second}

	matches := MatchTrack(info, *info.Title, []CandidateTitle{candidate(track)}, gates, true)
	assert.Empty(t, matches)

	// Widening the allowed difference lets the same candidate through.
	gates.MaxDurationDifference = 60 * time.Second
	matches = MatchTrack(info, *info.Title, []CandidateTitle{candidate(track)}, gates, false)
	assert.Len(t, matches, 1)
}

// TestMatchDuration tests the standalone duration gate edge cases.
func TestMatchDuration(t *testing.T) {
	t.Parallel()

	info := infoWith("t", nil, 180*time.Second)

	assert.True(t, MatchDuration(info, 500*time.Second, false, 0), "disabled gate passes everything")
	assert.True(t, MatchDuration(infoWith("t", nil, 0), 500*time.Second, true, time.Second), "missing info duration passes")
	assert.True(t, MatchDuration(info, 0, true, time.Second), "missing candidate duration passes")
	assert.True(t, MatchDuration(info, 200*time.Second, true, 30*time.Second))
	assert.False(t, MatchDuration(info, 211*time.Second, true, 30*time.Second))
}

// TestMatchTrackStrictness tests that every returned match scores at least
// the configured strictness or is an exact hit at 1.0.
func TestMatchTrackStrictness(t *testing.T) {
	t.Parallel()

	info := infoWith("Around The World", []string{"Daft Punk"}, 0)

	tracks := []*model.Track{
		{Platform: "test", Title: "Around The World", Artists: []string{"Daft Punk"}},         //nolint:exhaustruct // test fixture.
		{Platform: "test", Title: "Around The Worlds", Artists: []string{"Daft Punk"}},        //nolint:exhaustruct // test fixture.
		{Platform: "test", Title: "Completely Different", Artists: []string{"Daft Punk"}},     //nolint:exhaustruct // test fixture.
		{Platform: "test", Title: "Around The World (Remix)", Artists: []string{"Daft Punk"}}, //nolint:exhaustruct // test fixture.
	}

	candidates := make([]CandidateTitle, 0, len(tracks))
	for _, track := range tracks {
		candidates = append(candidates, candidate(track))
	}

	const strictness = 0.8

	gates := Gates{Strictness: strictness, MatchDuration: false, MaxDurationDifference: 0}

	matches := MatchTrack(info, *info.Title, candidates, gates, true)
	require.NotEmpty(t, matches)

	for _, m := range matches {
		assert.GreaterOrEqual(t, m.Accuracy, strictness)
	}
}

// TestMatchTrackFetchAllResults tests that fetch_all_results appends the
// fuzzy pass even when the exact cascade already produced hits.
func TestMatchTrackFetchAllResults(t *testing.T) {
	t.Parallel()

	info := infoWith("Some Title", []string{"Artist"}, 0)
	exact := &model.Track{Platform: "test", Title: "Some Title", Artists: []string{"Artist"}}        //nolint:exhaustruct // test fixture.
	near := &model.Track{Platform: "test", Title: "Some Titles Here", Artists: []string{"Artist"}}   //nolint:exhaustruct // test fixture.
	far := &model.Track{Platform: "test", Title: "Unrelated Thing", Artists: []string{"Somebody"}}   //nolint:exhaustruct // test fixture.
	candidates := []CandidateTitle{candidate(exact), candidate(near), candidate(far)}

	gates := Gates{Strictness: 0.5, MatchDuration: false, MaxDurationDifference: 0}

	onlyExact := MatchTrack(info, *info.Title, candidates, gates, false)
	require.Len(t, onlyExact, 1)
	assert.Same(t, exact, onlyExact[0].Track)

	all := MatchTrack(info, *info.Title, candidates, gates, true)
	assert.Greater(t, len(all), 1)
}

// TestSortTracks tests the three sort policies, including nil release dates
// comparing as equal.
func TestSortTracks(t *testing.T) {
	t.Parallel()

	date := func(year int) *time.Time {
		d := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
		return &d
	}

	oldTrack := &model.Track{Platform: "test", Title: "old", ReleaseDate: date(1999)} //nolint:exhaustruct // test fixture.
	newTrack := &model.Track{Platform: "test", Title: "new", ReleaseDate: date(2020)} //nolint:exhaustruct // test fixture.
	undated := &model.Track{Platform: "test", Title: "undated"}                      //nolint:exhaustruct // test fixture.

	t.Run("accuracy descending", func(t *testing.T) {
		t.Parallel()

		matches := []model.TrackMatch{
			{Accuracy: 0.6, Track: oldTrack, Reason: model.MatchReasonFuzzy},
			{Accuracy: 1.0, Track: newTrack, Reason: model.MatchReasonFuzzy},
			{Accuracy: 0.8, Track: undated, Reason: model.MatchReasonFuzzy},
		}

		SortTracks(matches, SortAccuracy)

		assert.InDelta(t, 1.0, matches[0].Accuracy, 1e-9)
		assert.InDelta(t, 0.8, matches[1].Accuracy, 1e-9)
		assert.InDelta(t, 0.6, matches[2].Accuracy, 1e-9)
	})

	t.Run("oldest first", func(t *testing.T) {
		t.Parallel()

		matches := []model.TrackMatch{
			{Accuracy: 1, Track: newTrack, Reason: model.MatchReasonFuzzy},
			{Accuracy: 1, Track: oldTrack, Reason: model.MatchReasonFuzzy},
		}

		SortTracks(matches, SortOldest)

		assert.Same(t, oldTrack, matches[0].Track)
	})

	t.Run("newest first keeps undated in place", func(t *testing.T) {
		t.Parallel()

		matches := []model.TrackMatch{
			{Accuracy: 1, Track: undated, Reason: model.MatchReasonFuzzy},
			{Accuracy: 1, Track: oldTrack, Reason: model.MatchReasonFuzzy},
			{Accuracy: 1, Track: newTrack, Reason: model.MatchReasonFuzzy},
		}

		SortTracks(matches, SortNewest)

		assert.Same(t, undated, matches[0].Track)
		assert.Same(t, newTrack, matches[1].Track)
		assert.Same(t, oldTrack, matches[2].Track)
	})
}

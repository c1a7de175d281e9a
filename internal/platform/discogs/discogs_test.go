package discogs

import (
	"context"
	"strconv"
	"testing"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onetagger/autotagger-core/internal/model"
)

func TestRateLimitFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		residualFiles int
		want          int
	}{
		{name: "above every band applies no override", residualFiles: 100, want: 0},
		{name: "at the wider band", residualFiles: 35, want: 150},
		{name: "between bands keeps the wider one", residualFiles: 21, want: 150},
		{name: "at the narrower band overrides further", residualFiles: 20, want: 1000},
		{name: "single file", residualFiles: 1, want: 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, RateLimitFor(tt.residualFiles))
		})
	}
}

func TestBuilder_Info(t *testing.T) {
	t.Parallel()

	info := builder{}.Info()

	assert.Equal(t, PlatformID, info.ID)
	assert.True(t, info.RequiresAuth)
	assert.Equal(t, 2, info.MaxThreads)
}

func TestBuilder_GetSource_RequiresToken(t *testing.T) {
	t.Parallel()

	_, err := (builder{}).GetSource(&model.Configuration{})
	assert.Error(t, err)
}

func TestMatchByIDFastPath(t *testing.T) {
	t.Parallel()

	cache, err := lru.New[int, *release](8)
	require.NoError(t, err)

	rel := &release{} //nolint:exhaustruct // only the fields the fast path reads.
	rel.ID = 123456
	rel.Title = "Some Album"

	for i := range 12 {
		rel.Tracklist = append(rel.Tracklist, struct {
			Position string `json:"position"`
			Title    string `json:"title"`
			Duration string `json:"duration"`
		}{Position: strconv.Itoa(i + 1), Title: "Track " + strconv.Itoa(i+1), Duration: "3:30"})
	}

	cache.Add(rel.ID, rel)

	src := &source{releases: cache} //nolint:exhaustruct // no network clients needed for the cached path.

	trackNumber := 3
	info := &model.AudioFileInfo{ //nolint:exhaustruct // only the fast-path inputs.
		Path:        "/music/a.mp3",
		Tags:        map[string][]string{"DISCOGS_RELEASE_ID": {"123456"}},
		TrackNumber: &trackNumber,
	}

	matched, ok := src.matchByID(context.Background(), info)
	require.True(t, ok)
	assert.InDelta(t, 1.0, matched.Accuracy, 1e-9)
	assert.Equal(t, model.MatchReasonID, matched.Reason)
	assert.Equal(t, "Track 3", matched.Track.Title)
	assert.Equal(t, "123456", matched.Track.ReleaseID)
}

func TestMatchByIDOutOfRangeFallsThrough(t *testing.T) {
	t.Parallel()

	cache, err := lru.New[int, *release](8)
	require.NoError(t, err)

	rel := &release{} //nolint:exhaustruct // only the fields the fast path reads.
	rel.ID = 7
	cache.Add(rel.ID, rel)

	src := &source{releases: cache} //nolint:exhaustruct // no network clients needed for the cached path.

	info := &model.AudioFileInfo{ //nolint:exhaustruct // only the fast-path inputs.
		Path: "/music/a.mp3",
		Tags: map[string][]string{"DISCOGS_RELEASE_ID": {"7"}},
	}

	_, ok := src.matchByID(context.Background(), info)
	assert.False(t, ok, "missing track-number hint logs and falls through to search")
}

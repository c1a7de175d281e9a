package musicbrainz

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onetagger/autotagger-core/internal/model"
)

const sampleSearchResponse = `{
	"recordings": [
		{
			"id": "abc-123",
			"title": "Strobe",
			"length": 547000,
			"artist-credit": [{"name": "deadmau5"}],
			"isrcs": ["CAA123456789"],
			"releases": [
				{
					"title": "For Lack of a Better Name",
					"label-info": [{"catalog-number": "MAU5001", "label": {"name": "mau5trap"}}]
				}
			]
		}
	]
}`

func TestSource_MatchTrack(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/recording", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleSearchResponse))
	}))
	defer server.Close()

	src, err := (builder{}).GetSource(&model.Configuration{})
	require.NoError(t, err)

	s, ok := src.(*source)
	require.True(t, ok)
	s.client.SetBaseURL(server.URL)

	title := "Strobe"
	info := &model.AudioFileInfo{Title: &title, Artists: []string{"deadmau5"}}

	config := &model.Configuration{Strictness: 0.5, FetchAllResults: false}

	matches, err := src.MatchTrack(context.Background(), info, config)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Strobe", matches[0].Track.Title)
	assert.Equal(t, "mau5trap", matches[0].Track.Label)
	assert.Equal(t, "MAU5001", matches[0].Track.CatalogNumber)
}

func TestBuildQuery(t *testing.T) {
	t.Parallel()

	isrc := "CAA123456789"
	query := buildQuery("Strobe", []string{"deadmau5"}, &isrc)

	assert.Contains(t, query, "isrc:CAA123456789")
	assert.Contains(t, query, "recording:")
	assert.Contains(t, query, "artist:")
}

func TestBuilder_Info(t *testing.T) {
	t.Parallel()

	info := (builder{}).Info()

	assert.Equal(t, PlatformID, info.ID)
	assert.False(t, info.RequiresAuth)
}

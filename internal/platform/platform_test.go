package platform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onetagger/autotagger-core/internal/model"
)

type stubSource struct{}

func (stubSource) MatchTrack(context.Context, *model.AudioFileInfo, *model.Configuration) ([]model.TrackMatch, error) {
	return nil, nil
}

func (stubSource) ExtendTrack(context.Context, *model.Track, *model.Configuration) error {
	return nil
}

type stubBuilder struct{}

func (stubBuilder) Info() PlatformInfo {
	return PlatformInfo{ID: "stub", DisplayName: "Stub"}
}

func (stubBuilder) GetSource(*model.Configuration) (Source, error) {
	return stubSource{}, nil
}

func TestRegisterAndGet(t *testing.T) {
	Register("stub-test-platform", func() SourceBuilder { return stubBuilder{} })

	builder, err := Get("stub-test-platform")
	require.NoError(t, err)

	source, err := builder.GetSource(&model.Configuration{})
	require.NoError(t, err)
	assert.Implements(t, (*Source)(nil), source)

	assert.Contains(t, IDs(), "stub-test-platform")
}

func TestGetUnknownPlatform(t *testing.T) {
	_, err := Get("does-not-exist")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownPlatform)
}

func TestPlatformInfo_EffectiveThreads(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		maxThreads int
		requested  int
		want       int
	}{
		{name: "unlimited adapter keeps requested", maxThreads: 0, requested: 8, want: 8},
		{name: "adapter cap below requested wins", maxThreads: 2, requested: 8, want: 2},
		{name: "requested below cap wins", maxThreads: 8, requested: 2, want: 2},
		{name: "zero requested floors to one", maxThreads: 0, requested: 0, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			info := PlatformInfo{MaxThreads: tt.maxThreads}
			assert.Equal(t, tt.want, info.EffectiveThreads(tt.requested))
		})
	}
}

func TestPlatformInfo_SupportsTag(t *testing.T) {
	t.Parallel()

	info := PlatformInfo{SupportedTags: []model.Field{model.FieldTitle, model.FieldArtist}}

	assert.True(t, info.SupportsTag(model.FieldTitle))
	assert.False(t, info.SupportsTag(model.FieldAlbum))
}

func TestTokenCache_RefreshesOnlyWhenExpired(t *testing.T) {
	t.Parallel()

	cache := &TokenCache{}
	calls := 0

	refresh := func() (Token, error) {
		calls++
		return Token{AccessToken: "tok", ExpiresAtMS: 9999999999999}, nil
	}

	first, err := cache.Get(refresh)
	require.NoError(t, err)
	assert.Equal(t, "tok", first.AccessToken)

	second, err := cache.Get(refresh)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestTokenCache_RefreshesWhenExpired(t *testing.T) {
	t.Parallel()

	cache := &TokenCache{token: Token{AccessToken: "stale", ExpiresAtMS: 1}}
	calls := 0

	_, err := cache.Get(func() (Token, error) {
		calls++
		return Token{AccessToken: "fresh", ExpiresAtMS: 9999999999999}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

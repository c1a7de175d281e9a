package scheduler_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onetagger/autotagger-core/internal/model"
	"github.com/onetagger/autotagger-core/internal/platform"
	"github.com/onetagger/autotagger-core/internal/scheduler"
	"github.com/onetagger/autotagger-core/internal/writer"
)

// fakeSource is a platform.Source test double whose MatchTrack/ExtendTrack
// behavior is driven entirely by the function fields, letting tests drive
// the scheduler's fan-out/fallback logic without a real catalog adapter.
type fakeSource struct {
	match  func(ctx context.Context, info *model.AudioFileInfo, cfg *model.Configuration) ([]model.TrackMatch, error)
	extend func(ctx context.Context, track *model.Track, cfg *model.Configuration) error
}

func (f *fakeSource) MatchTrack(ctx context.Context, info *model.AudioFileInfo, cfg *model.Configuration) ([]model.TrackMatch, error) {
	return f.match(ctx, info, cfg)
}

func (f *fakeSource) ExtendTrack(ctx context.Context, track *model.Track, cfg *model.Configuration) error {
	if f.extend == nil {
		return nil
	}

	return f.extend(ctx, track, cfg)
}

type fakeBuilder struct {
	info       platform.PlatformInfo
	newSource  func() (platform.Source, error)
}

func (b *fakeBuilder) Info() platform.PlatformInfo { return b.info }

func (b *fakeBuilder) GetSource(_ *model.Configuration) (platform.Source, error) {
	return b.newSource()
}

// registerFakePlatform registers a uniquely-named platform (so parallel
// subtests never race on the shared Registry) and returns its id.
func registerFakePlatform(tb testing.TB, build func() (platform.Source, error)) string {
	tb.Helper()

	id := "fakeplatform-" + tb.Name()

	platform.Register(id, func() platform.SourceBuilder {
		return &fakeBuilder{
			info: platform.PlatformInfo{ //nolint:exhaustruct // threads/tags irrelevant to these tests.
				ID:         id,
				MaxThreads: 4,
			},
			newSource: build,
		}
	})

	return id
}

func newMatchResult(title string) []model.TrackMatch {
	return []model.TrackMatch{model.NewExactMatch(&model.Track{Title: title})} //nolint:exhaustruct // only Title under test.
}

func TestSchedulerRunWritesMatchedFilesAndPlaylists(t *testing.T) {
	t.Parallel()

	id := registerFakePlatform(t, func() (platform.Source, error) {
		return &fakeSource{
			match: func(_ context.Context, info *model.AudioFileInfo, _ *model.Configuration) ([]model.TrackMatch, error) {
				return newMatchResult(*info.Title), nil
			},
		}, nil
	})

	var (
		writtenMu sync.Mutex
		written   []string
	)

	sched := &scheduler.Scheduler{
		Config: &model.Configuration{ //nolint:exhaustruct // only fields under test set.
			Platforms: []string{id},
			Threads:   2,
		},
		RunsDir: t.TempDir(),
		LoadInfo: func(path, _ string) (*model.AudioFileInfo, error) {
			title := filepath.Base(path)
			return &model.AudioFileInfo{Path: path, Title: &title, Artists: []string{"Artist"}}, nil //nolint:exhaustruct
		},
		WriteTrack: func(_ context.Context, path string, _ *model.Track, _ *model.Configuration, _ writer.HTTPClient) error {
			writtenMu.Lock()
			defer writtenMu.Unlock()

			written = append(written, path)

			return nil
		},
	}

	files := []string{"a.mp3", "b.mp3", "c.mp3"}

	err := sched.Run(context.Background(), files)
	require.NoError(t, err)
	assert.ElementsMatch(t, files, written)

	entries, readErr := os.ReadDir(sched.RunsDir)
	require.NoError(t, readErr)

	var sawSuccess bool

	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".m3u" {
			sawSuccess = sawSuccess || (len(e.Name()) > 8 && e.Name()[:8] == "success-")
		}
	}

	assert.True(t, sawSuccess, "expected a success-*.m3u playlist to be written")
}

func TestSchedulerRunFallsThroughToNextPlatform(t *testing.T) {
	t.Parallel()

	firstID := registerFakePlatform(t, func() (platform.Source, error) {
		return &fakeSource{
			match: func(_ context.Context, _ *model.AudioFileInfo, _ *model.Configuration) ([]model.TrackMatch, error) {
				return nil, nil
			},
		}, nil
	})

	secondPlatformID := "fakeplatform2-" + t.Name()

	platform.Register(secondPlatformID, func() platform.SourceBuilder {
		return &fakeBuilder{
			info: platform.PlatformInfo{ID: secondPlatformID, MaxThreads: 1}, //nolint:exhaustruct
			newSource: func() (platform.Source, error) {
				return &fakeSource{
					match: func(_ context.Context, info *model.AudioFileInfo, _ *model.Configuration) ([]model.TrackMatch, error) {
						return newMatchResult(*info.Title), nil
					},
				}, nil
			},
		}
	})

	var written []string

	sched := &scheduler.Scheduler{
		Config: &model.Configuration{ //nolint:exhaustruct
			Platforms: []string{firstID, secondPlatformID},
			Threads:   1,
		},
		LoadInfo: func(path, _ string) (*model.AudioFileInfo, error) {
			title := filepath.Base(path)
			return &model.AudioFileInfo{Path: path, Title: &title, Artists: []string{"Artist"}}, nil //nolint:exhaustruct
		},
		WriteTrack: func(_ context.Context, path string, _ *model.Track, _ *model.Configuration, _ writer.HTTPClient) error {
			written = append(written, path)
			return nil
		},
	}

	err := sched.Run(context.Background(), []string{"only.mp3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"only.mp3"}, written)
}

func TestSchedulerRunStopsWhenStopFlagSet(t *testing.T) {
	t.Parallel()

	id := registerFakePlatform(t, func() (platform.Source, error) {
		return &fakeSource{
			match: func(_ context.Context, info *model.AudioFileInfo, _ *model.Configuration) ([]model.TrackMatch, error) {
				return newMatchResult(*info.Title), nil
			},
		}, nil
	})

	stop := &atomic.Bool{}
	stop.Store(true)

	var written []string

	sched := &scheduler.Scheduler{
		Config: &model.Configuration{Platforms: []string{id}, Threads: 1}, //nolint:exhaustruct
		Stop:   stop,
		LoadInfo: func(path, _ string) (*model.AudioFileInfo, error) {
			title := "t"
			return &model.AudioFileInfo{Path: path, Title: &title, Artists: []string{"Artist"}}, nil //nolint:exhaustruct
		},
		WriteTrack: func(_ context.Context, path string, _ *model.Track, _ *model.Configuration, _ writer.HTTPClient) error {
			written = append(written, path)
			return nil
		},
	}

	err := sched.Run(context.Background(), []string{"x.mp3"})
	require.NoError(t, err)
	assert.Empty(t, written)
}

func TestSchedulerSkipsAlreadyTaggedFiles(t *testing.T) {
	t.Parallel()

	id := registerFakePlatform(t, func() (platform.Source, error) {
		return &fakeSource{
			match: func(_ context.Context, info *model.AudioFileInfo, _ *model.Configuration) ([]model.TrackMatch, error) {
				return newMatchResult(*info.Title), nil
			},
		}, nil
	})

	var written []string

	sched := &scheduler.Scheduler{
		Config: &model.Configuration{ //nolint:exhaustruct
			Platforms:  []string{id},
			Threads:    1,
			SkipTagged: true,
		},
		LoadInfo: func(path, _ string) (*model.AudioFileInfo, error) {
			title := "t"
			return &model.AudioFileInfo{ //nolint:exhaustruct
				Path: path, Title: &title, Artists: []string{"Artist"},
				Tagged: model.FileTaggedStatusAutoTagger,
			}, nil
		},
		WriteTrack: func(_ context.Context, path string, _ *model.Track, _ *model.Configuration, _ writer.HTTPClient) error {
			written = append(written, path)
			return nil
		},
	}

	err := sched.Run(context.Background(), []string{"tagged.mp3"})
	require.NoError(t, err)
	assert.Empty(t, written)
}

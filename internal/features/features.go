// Package features implements the Audio Features Sub-pipeline: a
// single-platform, single-threaded pass that matches each file against
// Spotify with the same cleaning cascade the Auto-Tagger uses, fetches the
// track's audio-feature vector, scales each enabled dimension into a
// numeric tag, and classifies configured dimensions into a combined
// "main" mood tag.
package features

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/onetagger/autotagger-core/internal/audiofile"
	"github.com/onetagger/autotagger-core/internal/logger"
	"github.com/onetagger/autotagger-core/internal/match"
	"github.com/onetagger/autotagger-core/internal/model"
	"github.com/onetagger/autotagger-core/internal/platform/spotify"
	"github.com/onetagger/autotagger-core/internal/tag"
	"github.com/onetagger/autotagger-core/internal/writer"
)

// Dimension names one of the eight scaled feature values.
type Dimension string

// The closed dimension set, popularity included so one code path scales
// and classifies all eight.
const (
	DimensionAcousticness     Dimension = "acousticness"
	DimensionDanceability     Dimension = "danceability"
	DimensionEnergy           Dimension = "energy"
	DimensionInstrumentalness Dimension = "instrumentalness"
	DimensionLiveness         Dimension = "liveness"
	DimensionSpeechiness      Dimension = "speechiness"
	DimensionValence          Dimension = "valence"
	DimensionPopularity       Dimension = "popularity"
)

// Order is the fixed dimension iteration order, keeping the combined main
// tag deterministic.
var Order = []Dimension{ //nolint:gochecknoglobals // immutable ordering.
	DimensionAcousticness, DimensionDanceability, DimensionEnergy, DimensionInstrumentalness,
	DimensionLiveness, DimensionSpeechiness, DimensionValence, DimensionPopularity,
}

// Range classifies a 0-1 value into one of three labeled buckets: under
// Min, over Max, or the middle between them.
type Range struct {
	Min    float64
	Max    float64
	Under  string
	Middle string
	Over   string
}

// Label buckets value against the range bounds.
func (r *Range) Label(value float64) string {
	switch {
	case value < r.Min:
		return r.Under
	case value > r.Max:
		return r.Over
	default:
		return r.Middle
	}
}

// DimensionConfig is one dimension's write target and optional
// classification range.
type DimensionConfig struct {
	Enabled  bool
	Frame    model.FrameName
	Classify *Range
}

// Config is the Audio Features Sub-pipeline's user configuration.
type Config struct {
	Dimensions map[Dimension]DimensionConfig
	MainFrame  model.FrameName
	Market     string
}

// Status is the per-file outcome.
type Status uint8

const (
	// StatusOk means features were fetched and written.
	StatusOk Status = iota
	// StatusError means search, feature fetch, or write failed.
	StatusError
	// StatusSkipped means the file was not attempted.
	StatusSkipped
)

// Result is one file's outcome.
type Result struct {
	Status  Status
	Path    string
	Message string
}

// SpotifyClient is the three-method surface this pipeline needs from
// internal/platform/spotify's Client, kept as an interface so tests drive
// matching and scaling without a live connection.
type SpotifyClient interface {
	SearchByISRC(ctx context.Context, isrc, market string) ([]spotify.Track, error)
	SearchByTitle(ctx context.Context, artists []string, title, market string) ([]spotify.Track, error)
	AudioFeaturesFor(ctx context.Context, trackID string) (*spotify.AudioFeatures, error)
}

// Runner executes the pipeline over a file list, sequentially on the
// calling goroutine. LoadInfo and OpenContainer default to the real
// audiofile/tag implementations.
type Runner struct {
	Client   SpotifyClient
	Features Config
	Matching *model.Configuration

	LoadInfo      func(path string) (*model.AudioFileInfo, error)
	OpenContainer func(path string) (tag.Container, error)
}

func (r *Runner) loadInfo(path string) (*model.AudioFileInfo, error) {
	if r.LoadInfo != nil {
		return r.LoadInfo(path)
	}

	template := ""
	if r.Matching.ParseFilename {
		template = r.Matching.FilenameTemplate
	}

	return audiofile.LoadFile(path, template)
}

func (r *Runner) openContainer(path string) (tag.Container, error) {
	if r.OpenContainer != nil {
		return r.OpenContainer(path)
	}

	return tag.LoadFile(path, true)
}

// Run processes files in order, checking the stop flag between files.
func (r *Runner) Run(ctx context.Context, files []string, stop *atomic.Bool) []Result {
	var results []Result

	for _, path := range files {
		if stop != nil && stop.Load() {
			break
		}

		results = append(results, r.tagFile(ctx, path))
	}

	return results
}

func (r *Runner) tagFile(ctx context.Context, path string) Result {
	info, err := r.loadInfo(path)
	if err != nil {
		return Result{Status: StatusSkipped, Path: path, Message: err.Error()}
	}

	if info.Title == nil {
		return Result{Status: StatusSkipped, Path: path, Message: "file has no title to search by"}
	}

	track, err := r.findTrack(ctx, info)
	if err != nil {
		return Result{Status: StatusError, Path: path, Message: err.Error()}
	}

	audioFeatures, err := r.Client.AudioFeaturesFor(ctx, track.ID)
	if err != nil {
		return Result{Status: StatusError, Path: path, Message: err.Error()}
	}

	container, err := r.openContainer(path)
	if err != nil {
		return Result{Status: StatusError, Path: path, Message: err.Error()}
	}

	r.writeFeatures(container, track, audioFeatures)
	writer.StampTaggedDate(container, "_AF")

	if err := container.SaveFile(path); err != nil {
		return Result{Status: StatusError, Path: path, Message: err.Error()}
	}

	return Result{Status: StatusOk, Path: path, Message: ""}
}

// findTrack searches by ISRC when the file carries one, else by artist and
// cleaned title, and scores the results through the shared matching
// cascade.
func (r *Runner) findTrack(ctx context.Context, info *model.AudioFileInfo) (*spotify.Track, error) {
	var (
		tracks []spotify.Track
		err    error
	)

	if info.ISRC != nil && *info.ISRC != "" {
		tracks, err = r.Client.SearchByISRC(ctx, *info.ISRC, r.Features.Market)
		if err != nil {
			logger.Warnf(ctx, "audio features: isrc search for %s failed: %v", info.Path, err)
		}

		if len(tracks) > 0 {
			return &tracks[0], nil
		}
	}

	title := strings.TrimSpace(*info.Title)

	tracks, err = r.Client.SearchByTitle(ctx, info.Artists, title, r.Features.Market)
	if err != nil {
		return nil, err
	}

	candidates := make([]match.CandidateTitle, 0, len(tracks))

	for i := range tracks {
		st := &tracks[i]

		var artists []string
		for _, a := range st.Artists {
			artists = append(artists, a.Name)
		}

		candidates = append(candidates, match.CandidateTitle{
			Title:    st.Name,
			Artists:  artists,
			Duration: 0,
			Track:    &model.Track{Platform: spotify.PlatformID, Title: st.Name, TrackID: st.ID, Artists: artists}, //nolint:exhaustruct
		})
	}

	gates := match.Gates{
		Strictness:            r.Matching.Strictness,
		MatchDuration:         false,
		MaxDurationDifference: 0,
	}

	matches := match.MatchTrack(info, title, candidates, gates, r.Matching.FetchAllResults)
	if len(matches) == 0 {
		return nil, errors.New("audio features: no match")
	}

	match.SortTracks(matches, match.SortAccuracy)

	for i := range tracks {
		if tracks[i].ID == matches[0].Track.TrackID {
			return &tracks[i], nil
		}
	}

	return nil, errors.New("audio features: no match")
}

// writeFeatures scales each enabled dimension to a 0-100 integer tag and
// combines the classified labels into the main tag. Popularity arrives as
// 0-100 and is folded onto the same 0-1 scale first so one path handles
// all eight dimensions.
func (r *Runner) writeFeatures(container tag.Container, track *spotify.Track, audioFeatures *spotify.AudioFeatures) {
	values := map[Dimension]float64{
		DimensionAcousticness:     audioFeatures.Acousticness,
		DimensionDanceability:     audioFeatures.Danceability,
		DimensionEnergy:           audioFeatures.Energy,
		DimensionInstrumentalness: audioFeatures.Instrumentalness,
		DimensionLiveness:         audioFeatures.Liveness,
		DimensionSpeechiness:      audioFeatures.Speechiness,
		DimensionValence:          audioFeatures.Valence,
		DimensionPopularity:       float64(track.Popularity) / 100, //nolint:mnd // popularity arrives as 0-100.
	}

	var labels []string

	for _, dimension := range Order {
		config, ok := r.Features.Dimensions[dimension]
		if !ok || !config.Enabled {
			continue
		}

		value := values[dimension]

		scaled := int8(math.Round(value * 100)) //nolint:mnd,gosec // scaled to 0-100, which always fits int8.
		container.SetRaw(config.Frame.ByFormat(container.Format()), []string{strconv.Itoa(int(scaled))}, true)

		if config.Classify != nil {
			if label := config.Classify.Label(value); label != "" {
				labels = append(labels, label)
			}
		}
	}

	if len(labels) > 0 {
		container.SetRaw(r.Features.MainFrame.ByFormat(container.Format()), []string{strings.Join(labels, ", ")}, true)
	}
}

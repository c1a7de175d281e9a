// Package musicbrainz implements the MusicBrainz Platform Adapter: a plain
// REST client over the public /ws/2 API, no authentication, with the
// shared title/artist/duration matching cascade scoring its results.
package musicbrainz

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/onetagger/autotagger-core/internal/match"
	"github.com/onetagger/autotagger-core/internal/model"
	"github.com/onetagger/autotagger-core/internal/platform"
	http_transport "github.com/onetagger/autotagger-core/internal/transport/http"
	"github.com/onetagger/autotagger-core/internal/utils"
)

// PlatformID is this adapter's registry id.
const PlatformID = "musicbrainz"

const (
	baseURL     = "https://musicbrainz.org/ws/2"
	searchLimit = 25
)

var errNoTitle = errors.New("musicbrainz: file has no title to search by")

//nolint:gochecknoinits // database/sql-style adapter self-registration.
func init() {
	platform.Register(PlatformID, func() platform.SourceBuilder { return builder{} })
}

type builder struct{}

func (builder) Info() platform.PlatformInfo {
	return platform.PlatformInfo{ //nolint:exhaustruct // icon omitted.
		ID:          PlatformID,
		DisplayName: "MusicBrainz",
		Description: "Open music encyclopedia with ISRC-aware recording search",
		Version:     "1.0.0",
		MaxThreads:  4, //nolint:mnd // MusicBrainz asks anonymous clients to stay near one request per second.
		SupportedTags: []model.Field{
			model.FieldTitle, model.FieldArtist, model.FieldAlbum, model.FieldDuration,
			model.FieldISRC, model.FieldLabel, model.FieldCatalogNumber,
			model.FieldTrackID, model.FieldURL,
		},
		RequiresAuth: false,
	}
}

func (builder) GetSource(_ *model.Configuration) (platform.Source, error) {
	transport := http_transport.NewUserAgentInjector(
		http_transport.NewLogTransport(http.DefaultTransport, 0),
		utils.NewSimpleUserAgentProvider(http_transport.DefaultUserAgent),
	)

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(http_transport.DefaultTimeout).
		SetTransport(transport).
		SetQueryParam("fmt", "json")

	return &source{client: client}, nil
}

type source struct {
	client *resty.Client
}

type recording struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Length int    `json:"length"`

	ArtistCredit []struct {
		Name string `json:"name"`
	} `json:"artist-credit"`

	ISRCs []string `json:"isrcs"`

	Releases []release `json:"releases"`
}

type release struct {
	Title string `json:"title"`
	Date  string `json:"date"`

	LabelInfo []struct {
		CatalogNumber string `json:"catalog-number"`

		Label struct {
			Name string `json:"name"`
		} `json:"label"`
	} `json:"label-info"`
}

type searchResponse struct {
	Recordings []recording `json:"recordings"`
}

// buildQuery assembles a Lucene query over the recording index: a title term
// always, an artist term for the first artist when the file has any, and an
// exact isrc clause when the file carries one.
func buildQuery(title string, artists []string, isrc *string) string {
	var terms []string

	if isrc != nil && *isrc != "" {
		terms = append(terms, "isrc:"+*isrc)
	}

	terms = append(terms, fmt.Sprintf("recording:%q", match.CleanTitle(title)))

	if len(artists) > 0 {
		terms = append(terms, fmt.Sprintf("artist:%q", match.CleanArtistSearching(artists[0])))
	}

	return strings.Join(terms, " AND ")
}

func recordingToTrack(rec *recording) *model.Track {
	track := &model.Track{ //nolint:exhaustruct // fields MusicBrainz doesn't carry stay zero.
		Platform: PlatformID,
		Title:    rec.Title,
		Duration: time.Duration(rec.Length) * time.Millisecond,
		TrackID:  rec.ID,
		URL:      "https://musicbrainz.org/recording/" + rec.ID,
	}

	for _, credit := range rec.ArtistCredit {
		track.Artists = append(track.Artists, credit.Name)
	}

	if len(rec.ISRCs) > 0 {
		track.ISRC = rec.ISRCs[0]
	}

	if len(rec.Releases) > 0 {
		first := rec.Releases[0]
		track.Album = first.Title

		if len(first.LabelInfo) > 0 {
			track.Label = first.LabelInfo[0].Label.Name
			track.CatalogNumber = first.LabelInfo[0].CatalogNumber
		}

		if date, err := time.Parse("2006-01-02", first.Date); err == nil {
			track.ReleaseDate = &date
			track.ReleaseYear = date.Year()
		}
	}

	return track
}

func (s *source) MatchTrack(ctx context.Context, info *model.AudioFileInfo, config *model.Configuration) ([]model.TrackMatch, error) {
	if info.Title == nil {
		return nil, errNoTitle
	}

	title := strings.TrimSpace(*info.Title)

	var result searchResponse

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query": buildQuery(title, info.Artists, info.ISRC),
			"limit": fmt.Sprint(searchLimit),
		}).
		SetResult(&result).
		Get("/recording")
	if err != nil {
		return nil, fmt.Errorf("musicbrainz: search: %w", err)
	}

	if resp.StatusCode() == http.StatusServiceUnavailable {
		// MusicBrainz signals rate limiting with 503; back off briefly and
		// retry once before giving up on the file.
		utils.RandomPause(1*time.Second, 3*time.Second) //nolint:mnd // jittered so workers don't retry in lockstep.

		resp, err = s.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"query": buildQuery(title, info.Artists, info.ISRC),
				"limit": fmt.Sprint(searchLimit),
			}).
			SetResult(&result).
			Get("/recording")
		if err != nil {
			return nil, fmt.Errorf("musicbrainz: search: %w", err)
		}
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("musicbrainz: unexpected status %d", resp.StatusCode())
	}

	candidates := make([]match.CandidateTitle, 0, len(result.Recordings))

	for i := range result.Recordings {
		rec := &result.Recordings[i]
		track := recordingToTrack(rec)
		candidates = append(candidates, match.CandidateTitle{
			Title:    rec.Title,
			Artists:  track.Artists,
			Duration: track.Duration,
			Track:    track,
		})
	}

	gates := match.Gates{
		Strictness:            config.Strictness,
		MatchDuration:         config.MatchDuration,
		MaxDurationDifference: config.MaxDurationDifference,
	}

	matches := match.MatchTrack(info, title, candidates, gates, config.FetchAllResults)

	return matches, nil
}

// ExtendTrack fills label and catalog number from the recording's release
// list when the search response didn't carry them.
func (s *source) ExtendTrack(ctx context.Context, track *model.Track, config *model.Configuration) error {
	if !config.AnyTagEnabled(model.FieldLabel, model.FieldCatalogNumber) || track.TrackID == "" {
		return nil
	}

	if track.Label != "" && track.CatalogNumber != "" {
		return nil
	}

	var rec recording

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("inc", "releases+labels").
		SetResult(&rec).
		Get("/recording/" + track.TrackID)
	if err != nil {
		return fmt.Errorf("musicbrainz: extend: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("musicbrainz: extend failed with status %d", resp.StatusCode())
	}

	if len(rec.Releases) == 0 || len(rec.Releases[0].LabelInfo) == 0 {
		return nil
	}

	info := rec.Releases[0].LabelInfo[0]

	if track.Label == "" {
		track.Label = info.Label.Name
	}

	if track.CatalogNumber == "" {
		track.CatalogNumber = info.CatalogNumber
	}

	return nil
}

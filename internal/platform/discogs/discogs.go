// Package discogs implements the Discogs Platform Adapter: token-
// authenticated REST search, a GraphQL release-detail lookup, a per-source
// LRU release cache, the DISCOGS_RELEASE_ID fast path, and the empirical
// residual-file rate-limit table the scheduler injects between platforms.
package discogs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/machinebox/graphql"

	"github.com/onetagger/autotagger-core/internal/logger"
	"github.com/onetagger/autotagger-core/internal/match"
	"github.com/onetagger/autotagger-core/internal/model"
	"github.com/onetagger/autotagger-core/internal/platform"
	http_transport "github.com/onetagger/autotagger-core/internal/transport/http"
	"github.com/onetagger/autotagger-core/internal/utils"
)

// PlatformID is this adapter's registry id.
const PlatformID = "discogs"

// releaseIDFrame is the raw tag the ID fast path reads an existing release
// id from.
const releaseIDFrame = "DISCOGS_RELEASE_ID"

const (
	apiBaseURL  = "https://api.discogs.com"
	graphqlURL  = "https://api.discogs.com/graphql"
	searchLimit = 25

	releaseCacheSize  = 128
	maxReleaseFetches = 4
)

var errMissingToken = errors.New("discogs: personal access token is required")

// RateLimitThresholds is the empirical residual-files -> requests-per-
// minute override table the scheduler applies between platforms: the
// smaller the remaining batch, the harder the adapter may push. The
// numbers are carried verbatim from the system this was ported from.
var RateLimitThresholds = []struct { //nolint:gochecknoglobals // immutable literal table.
	MaxResidualFiles int
	RateLimit        int
}{
	{MaxResidualFiles: 20, RateLimit: 1000},
	{MaxResidualFiles: 35, RateLimit: 150},
}

// RateLimitFor returns the "_rate_limit" custom-option value for a
// residual file count, or 0 when no band applies.
func RateLimitFor(residualFiles int) int {
	for _, band := range RateLimitThresholds {
		if residualFiles <= band.MaxResidualFiles {
			return band.RateLimit
		}
	}

	return 0
}

//nolint:gochecknoinits // database/sql-style adapter self-registration.
func init() {
	platform.Register(PlatformID, func() platform.SourceBuilder { return builder{} })
}

type builder struct{}

func (builder) Info() platform.PlatformInfo {
	return platform.PlatformInfo{ //nolint:exhaustruct // icon omitted.
		ID:          PlatformID,
		DisplayName: "Discogs",
		Description: "Community release database with deep genre/style and label data",
		Version:     "1.0.0",
		MaxThreads:  2, //nolint:mnd // Discogs enforces a strict per-token request budget.
		SupportedTags: []model.Field{
			model.FieldTitle, model.FieldArtist, model.FieldAlbum, model.FieldAlbumArtist,
			model.FieldGenre, model.FieldStyle, model.FieldLabel, model.FieldCatalogNumber,
			model.FieldTrackNumber, model.FieldTrackTotal, model.FieldReleaseDate,
			model.FieldURL, model.FieldAlbumArt, model.FieldTrackID, model.FieldReleaseID,
		},
		CustomOptions: []platform.OptionSchema{
			{Key: "_rate_limit", Label: "Requests per minute", Type: platform.OptionNumber, Min: 0, Max: 1000, Step: 1}, //nolint:exhaustruct
		},
		RequiresAuth: true,
	}
}

func (builder) GetSource(config *model.Configuration) (platform.Source, error) {
	token := config.Auth[PlatformID].Token
	if token == "" {
		return nil, errMissingToken
	}

	httpClient := &http.Client{ //nolint:exhaustruct // only transport and timeout configured, as in the REST client.
		Transport: http_transport.NewUserAgentInjector(
			http_transport.NewLogTransport(http.DefaultTransport, 0),
			utils.NewSimpleUserAgentProvider(http_transport.DefaultUserAgent),
		),
		Timeout: http_transport.DefaultTimeout,
	}

	rest := resty.New().
		SetBaseURL(apiBaseURL).
		SetTimeout(http_transport.DefaultTimeout).
		SetTransport(httpClient.Transport).
		SetHeader("Authorization", "Discogs token="+token)

	cache, err := lru.New[int, *release](releaseCacheSize)
	if err != nil {
		return nil, fmt.Errorf("discogs: %w", err)
	}

	rateLimit := 0
	if raw, ok := config.GetCustom(PlatformID)["_rate_limit"]; ok {
		switch v := raw.(type) {
		case int:
			rateLimit = v
		case float64:
			rateLimit = int(v)
		}
	}

	return &source{
		rest:      rest,
		gql:       graphql.NewClient(graphqlURL, graphql.WithHTTPClient(httpClient)),
		token:     token,
		releases:  cache,
		rateLimit: rateLimit,
	}, nil
}

type source struct {
	rest  *resty.Client
	gql   *graphql.Client
	token string

	// releases is this source's private release cache; sources are never
	// shared across workers, so no locking is needed.
	releases *lru.Cache[int, *release]

	// rateLimit is the injected requests-per-minute budget; zero disables
	// pacing between calls.
	rateLimit int
	lastCall  time.Time
}

type release struct {
	ID       int      `json:"id"`
	Title    string   `json:"title"`
	Year     int      `json:"year"`
	Released string   `json:"released"`
	Genres   []string `json:"genres"`
	Styles   []string `json:"styles"`

	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`

	Labels []struct {
		Name  string `json:"name"`
		CatNo string `json:"catno"`
	} `json:"labels"`

	Tracklist []struct {
		Position string `json:"position"`
		Title    string `json:"title"`
		Duration string `json:"duration"`
	} `json:"tracklist"`

	Images []struct {
		URI string `json:"uri"`
	} `json:"images"`
}

type searchResponse struct {
	Results []struct {
		ID int `json:"id"`
	} `json:"results"`
}

// pace enforces the injected requests-per-minute budget between calls.
func (s *source) pace(ctx context.Context) {
	if s.rateLimit <= 0 {
		return
	}

	interval := time.Minute / time.Duration(s.rateLimit)

	elapsed := time.Since(s.lastCall)
	if elapsed < interval {
		select {
		case <-ctx.Done():
		case <-time.After(interval - elapsed):
		}
	}

	s.lastCall = time.Now()
}

func (s *source) MatchTrack(ctx context.Context, info *model.AudioFileInfo, config *model.Configuration) ([]model.TrackMatch, error) {
	if config.MatchByID {
		if tagMatch, ok := s.matchByID(ctx, info); ok {
			return []model.TrackMatch{tagMatch}, nil
		}
	}

	if info.Title == nil {
		return nil, errors.New("discogs: file has no title to search by")
	}

	title := strings.TrimSpace(*info.Title)

	releaseIDs, err := s.searchReleases(ctx, title, info.Artists)
	if err != nil {
		return nil, err
	}

	var candidates []match.CandidateTitle

	fetched := 0

	for _, id := range releaseIDs {
		if fetched >= maxReleaseFetches {
			break
		}

		rel, relErr := s.getRelease(ctx, id)
		if relErr != nil {
			logger.Warnf(ctx, "discogs: release %d: %v", id, relErr)
			continue
		}

		fetched++

		for i := range rel.Tracklist {
			track := trackFromRelease(rel, i)
			candidates = append(candidates, match.CandidateTitle{
				Title:    track.Title,
				Artists:  track.Artists,
				Duration: track.Duration,
				Track:    track,
			})
		}
	}

	gates := match.Gates{
		Strictness:            config.Strictness,
		MatchDuration:         config.MatchDuration,
		MaxDurationDifference: config.MaxDurationDifference,
	}

	return match.MatchTrack(info, title, candidates, gates, config.FetchAllResults), nil
}

// matchByID implements the DISCOGS_RELEASE_ID fast path: a release id in
// the file's existing tags plus a track-number hint in range yields an
// accuracy-1.0 ID match. A present id that doesn't resolve is logged and
// the adapter falls through to normal search.
func (s *source) matchByID(ctx context.Context, info *model.AudioFileInfo) (model.TrackMatch, bool) {
	values := info.Tags[releaseIDFrame]
	if len(values) == 0 {
		return model.TrackMatch{}, false
	}

	releaseID, err := strconv.Atoi(strings.TrimSpace(values[0]))
	if err != nil {
		return model.TrackMatch{}, false
	}

	rel, err := s.getRelease(ctx, releaseID)
	if err != nil {
		logger.Warnf(ctx, "discogs: release id %d from tags did not resolve: %v", releaseID, err)
		return model.TrackMatch{}, false
	}

	if info.TrackNumber == nil || *info.TrackNumber < 1 || *info.TrackNumber > len(rel.Tracklist) {
		logger.Warnf(ctx, "discogs: release %d matched but track number hint is missing or out of range", releaseID)
		return model.TrackMatch{}, false
	}

	return model.NewIDMatch(trackFromRelease(rel, *info.TrackNumber-1)), true
}

// ExtendTrack is a no-op: the release lookups MatchTrack makes already carry
// every field this adapter supports.
func (s *source) ExtendTrack(_ context.Context, _ *model.Track, _ *model.Configuration) error {
	return nil
}

func (s *source) searchReleases(ctx context.Context, title string, artists []string) ([]int, error) {
	s.pace(ctx)

	query := match.CleanTitle(title)
	if len(artists) > 0 {
		query = match.CleanArtistSearching(artists[0]) + " " + query
	}

	var result searchResponse

	resp, err := s.rest.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":        query,
			"type":     "release",
			"per_page": fmt.Sprint(searchLimit),
		}).
		SetResult(&result).
		Get("/database/search")
	if err != nil {
		return nil, fmt.Errorf("discogs: search: %w", err)
	}

	if resp.StatusCode() == http.StatusTooManyRequests {
		utils.RandomPause(2*time.Second, 4*time.Second) //nolint:mnd // jittered so workers don't retry in lockstep.

		return s.searchReleases(ctx, title, artists)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("discogs: search failed with status %d", resp.StatusCode())
	}

	ids := make([]int, 0, len(result.Results))
	for _, r := range result.Results {
		ids = append(ids, r.ID)
	}

	return ids, nil
}

// releaseQuery is the GraphQL release-detail lookup, one round trip for
// the tracklist, labels, genres, styles, and artwork of a release.
const releaseQuery = `
query Release($id: Int!) {
	release(id: $id) {
		id
		title
		year
		released
		genres
		styles
		artists { name }
		labels { name catno }
		tracklist { position title duration }
		images { uri }
	}
}`

func (s *source) getRelease(ctx context.Context, id int) (*release, error) {
	if cached, ok := s.releases.Get(id); ok {
		return cached, nil
	}

	s.pace(ctx)

	req := graphql.NewRequest(releaseQuery)
	req.Header.Add("Authorization", "Discogs token="+s.token)
	req.Var("id", id)

	var resp struct {
		Release *release `json:"release"`
	}

	if err := s.gql.Run(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("discogs: release %d: %w", id, err)
	}

	if resp.Release == nil {
		return nil, fmt.Errorf("discogs: release %d not found", id)
	}

	s.releases.Add(id, resp.Release)

	return resp.Release, nil
}

func trackFromRelease(rel *release, index int) *model.Track {
	entry := rel.Tracklist[index]

	track := &model.Track{ //nolint:exhaustruct // fields Discogs doesn't carry stay zero.
		Platform:  PlatformID,
		Title:     entry.Title,
		Album:     rel.Title,
		Genres:    append([]string{}, rel.Genres...),
		Styles:    append([]string{}, rel.Styles...),
		Duration:  parseMinuteSeconds(entry.Duration),
		ReleaseID: strconv.Itoa(rel.ID),
		URL:       "https://www.discogs.com/release/" + strconv.Itoa(rel.ID),
	}

	for _, a := range rel.Artists {
		track.Artists = append(track.Artists, a.Name)
	}

	track.AlbumArtists = append([]string{}, track.Artists...)

	if len(rel.Labels) > 0 {
		track.Label = rel.Labels[0].Name
		track.CatalogNumber = rel.Labels[0].CatNo
	}

	if len(rel.Images) > 0 {
		track.ArtworkURL = rel.Images[0].URI
	}

	if number, err := strconv.Atoi(entry.Position); err == nil {
		track.TrackNumber = &model.TrackNumber{Number: number, Custom: ""}
	} else if entry.Position != "" {
		track.TrackNumber = &model.TrackNumber{Number: 0, Custom: entry.Position}
	}

	total := len(rel.Tracklist)
	track.TrackTotal = &total

	if date, err := time.Parse("2006-01-02", rel.Released); err == nil {
		track.ReleaseDate = &date
		track.ReleaseYear = date.Year()
	} else if rel.Year > 0 {
		track.ReleaseYear = rel.Year
	}

	return track
}

func parseMinuteSeconds(raw string) time.Duration {
	minutesText, secondsText, found := strings.Cut(raw, ":")
	if !found {
		return 0
	}

	minutes, err := strconv.Atoi(minutesText)
	if err != nil {
		return 0
	}

	seconds, err := strconv.Atoi(secondsText)
	if err != nil {
		return 0
	}

	return time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second
}

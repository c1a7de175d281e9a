// Package beatport implements the Beatport Platform Adapter: an OAuth
// client-credentials REST adapter over the v4 catalog API, sharing one
// token cache across every Source its builder constructs.
package beatport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
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
const PlatformID = "beatport"

const (
	apiBaseURL  = "https://api.beatport.com/v4"
	tokenPath   = "/auth/o/token/"
	searchLimit = 25

	tokenExpirySlackMS = 5_000
)

var errMissingCredentials = errors.New("beatport: client_id and client_secret are required")

//nolint:gochecknoinits // database/sql-style adapter self-registration.
func init() {
	platform.Register(PlatformID, func() platform.SourceBuilder { return &builder{} })
}

type builder struct {
	tokens platform.TokenCache
}

func (b *builder) Info() platform.PlatformInfo {
	return platform.PlatformInfo{ //nolint:exhaustruct // icon omitted.
		ID:          PlatformID,
		DisplayName: "Beatport",
		Description: "Electronic music store with key/BPM/label-rich track metadata",
		Version:     "1.0.0",
		MaxThreads:  4, //nolint:mnd // conservative cap against Beatport rate limits.
		SupportedTags: []model.Field{
			model.FieldTitle, model.FieldVersion, model.FieldArtist, model.FieldAlbum,
			model.FieldKey, model.FieldBPM, model.FieldGenre, model.FieldLabel,
			model.FieldCatalogNumber, model.FieldDuration, model.FieldReleaseDate,
			model.FieldURL, model.FieldAlbumArt, model.FieldTrackID, model.FieldReleaseID,
		},
		CustomOptions: []platform.OptionSchema{
			{Key: "client_id", Label: "Client ID", Type: platform.OptionString},         //nolint:exhaustruct
			{Key: "client_secret", Label: "Client secret", Type: platform.OptionString}, //nolint:exhaustruct
		},
		RequiresAuth: true,
	}
}

func (b *builder) GetSource(config *model.Configuration) (platform.Source, error) {
	options := config.GetCustom(PlatformID)

	clientID, _ := options["client_id"].(string)
	clientSecret, _ := options["client_secret"].(string)

	if clientID == "" || clientSecret == "" {
		return nil, errMissingCredentials
	}

	transport := http_transport.NewUserAgentInjector(
		http_transport.NewLogTransport(http.DefaultTransport, 0),
		utils.NewSimpleUserAgentProvider(http_transport.DefaultUserAgent),
	)

	client := resty.New().
		SetBaseURL(apiBaseURL).
		SetTimeout(http_transport.DefaultTimeout).
		SetTransport(transport)

	return &source{
		client:       client,
		tokens:       &b.tokens,
		clientID:     clientID,
		clientSecret: clientSecret,
	}, nil
}

type source struct {
	client       *resty.Client
	tokens       *platform.TokenCache
	clientID     string
	clientSecret string
}

type named struct {
	Name string `json:"name"`
}

type keyInfo struct {
	Name string `json:"name"`
}

// searchTrack is the wire shape of one Beatport catalog track.
type searchTrack struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	MixName   string  `json:"mix_name"`
	Artists   []named `json:"artists"`
	Label     named   `json:"label"`
	Genre     named   `json:"genre"`
	Key       keyInfo `json:"key"`
	BPM       int     `json:"bpm"`
	Length    string  `json:"length"`
	ISRC      string  `json:"isrc"`
	CatalogNo string  `json:"catalog_number"`
	Slug      string  `json:"slug"`

	Release struct {
		ID    int    `json:"id"`
		Name  string `json:"name"`
		Image struct {
			URI string `json:"uri"`
		} `json:"image"`
	} `json:"release"`

	PublishDate string `json:"publish_date"`
}

type searchResponse struct {
	Tracks []searchTrack `json:"tracks"`
}

// parseMinuteSeconds reads Beatport's "m:ss" length strings; malformed
// input degrades to zero (which the duration gate treats as missing).
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

func beatportTrackToTrack(st *searchTrack) *model.Track {
	track := &model.Track{ //nolint:exhaustruct // fields Beatport doesn't carry stay zero.
		Platform:      PlatformID,
		Title:         st.Name,
		Version:       st.MixName,
		Label:         st.Label.Name,
		Key:           st.Key.Name,
		BPM:           float64(st.BPM),
		Duration:      parseMinuteSeconds(st.Length),
		ISRC:          st.ISRC,
		CatalogNumber: st.CatalogNo,
		Album:         st.Release.Name,
		ArtworkURL:    st.Release.Image.URI,
		TrackID:       strconv.Itoa(st.ID),
		URL:           fmt.Sprintf("https://www.beatport.com/track/%s/%d", st.Slug, st.ID),
	}

	for _, a := range st.Artists {
		track.Artists = append(track.Artists, a.Name)
	}

	if st.Genre.Name != "" {
		track.Genres = []string{st.Genre.Name}
	}

	if st.Release.ID > 0 {
		track.ReleaseID = strconv.Itoa(st.Release.ID)
	}

	if date, err := time.Parse("2006-01-02", st.PublishDate); err == nil {
		track.PublishDate = &date
		track.PublishYear = date.Year()
		track.ReleaseDate = &date
		track.ReleaseYear = date.Year()
	}

	return track
}

func (s *source) token() (string, error) {
	tok, err := s.tokens.Get(func() (platform.Token, error) {
		var result struct {
			AccessToken string `json:"access_token"`
			ExpiresIn   int64  `json:"expires_in"`
		}

		resp, err := s.client.R().
			SetBasicAuth(s.clientID, s.clientSecret).
			SetHeader("Content-Type", "application/x-www-form-urlencoded").
			SetBody("grant_type=client_credentials").
			SetResult(&result).
			Post(tokenPath)
		if err != nil {
			return platform.Token{}, fmt.Errorf("beatport: token request: %w", err)
		}

		if resp.StatusCode() != http.StatusOK || result.AccessToken == "" {
			return platform.Token{}, fmt.Errorf("beatport: token request failed with status %d", resp.StatusCode())
		}

		expires := time.Now().UnixMilli() + result.ExpiresIn*1000 - tokenExpirySlackMS

		return platform.Token{AccessToken: result.AccessToken, ExpiresAtMS: expires}, nil
	})
	if err != nil {
		return "", err
	}

	return tok.AccessToken, nil
}

func (s *source) MatchTrack(ctx context.Context, info *model.AudioFileInfo, config *model.Configuration) ([]model.TrackMatch, error) {
	if info.Title == nil {
		return nil, errors.New("beatport: file has no title to search by")
	}

	token, err := s.token()
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(*info.Title)

	query := match.CleanTitle(title)
	if len(info.Artists) > 0 {
		query = match.CleanArtistSearching(info.Artists[0]) + " " + query
	}

	var result searchResponse

	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(map[string]string{
			"q":        query,
			"per_page": fmt.Sprint(searchLimit),
		}).
		SetResult(&result).
		Get("/catalog/search/")
	if err != nil {
		return nil, fmt.Errorf("beatport: search: %w", err)
	}

	if resp.StatusCode() == http.StatusTooManyRequests {
		utils.RandomPause(2*time.Second, 4*time.Second) //nolint:mnd // jittered so workers don't retry in lockstep.

		return s.MatchTrack(ctx, info, config)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("beatport: search failed with status %d", resp.StatusCode())
	}

	candidates := make([]match.CandidateTitle, 0, len(result.Tracks))

	for i := range result.Tracks {
		track := beatportTrackToTrack(&result.Tracks[i])
		candidates = append(candidates, match.CandidateTitle{
			Title:    track.FullTitle(),
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

	return match.MatchTrack(info, title, candidates, gates, config.FetchAllResults), nil
}

// ExtendTrack is a no-op: the search response already carries every field
// this adapter supports.
func (s *source) ExtendTrack(_ context.Context, _ *model.Track, _ *model.Configuration) error {
	return nil
}

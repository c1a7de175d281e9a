// Package spotify implements the Spotify Platform Adapter and the REST
// client the Audio Features Sub-pipeline reuses directly. Authentication
// is the OAuth client-credentials flow, with the access token shared
// across every Source through the builder's token cache.
package spotify

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
const PlatformID = "spotify"

const (
	apiBaseURL  = "https://api.spotify.com/v1"
	tokenURL    = "https://accounts.spotify.com/api/token"
	searchLimit = 20

	tokenExpirySlackMS = 5_000
)

var errMissingCredentials = errors.New("spotify: client_id and client_secret are required")

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
		DisplayName: "Spotify",
		Description: "Spotify catalog search with ISRC fast path and audio features",
		Version:     "1.0.0",
		MaxThreads:  4, //nolint:mnd // conservative cap against Spotify rate limits.
		SupportedTags: []model.Field{
			model.FieldTitle, model.FieldArtist, model.FieldAlbum, model.FieldTrackNumber,
			model.FieldTrackTotal, model.FieldDiscNumber, model.FieldDuration, model.FieldISRC,
			model.FieldReleaseDate, model.FieldURL, model.FieldAlbumArt, model.FieldExplicit,
			model.FieldTrackID, model.FieldReleaseID,
		},
		CustomOptions: []platform.OptionSchema{
			{Key: "client_id", Label: "Client ID", Type: platform.OptionString},         //nolint:exhaustruct
			{Key: "client_secret", Label: "Client secret", Type: platform.OptionString}, //nolint:exhaustruct
			{Key: "market", Label: "Market", Type: platform.OptionString, Default: "US"}, //nolint:exhaustruct
		},
		RequiresAuth: true,
	}
}

func (b *builder) GetSource(config *model.Configuration) (platform.Source, error) {
	client, err := NewClient(config.GetCustom(PlatformID), &b.tokens)
	if err != nil {
		return nil, err
	}

	return &source{client: client}, nil
}

// Client is the authenticated Spotify REST surface, exported so the Audio
// Features Sub-pipeline can reuse it without re-implementing the token
// flow.
type Client struct {
	api    *resty.Client
	auth   *resty.Client
	tokens *platform.TokenCache

	clientID     string
	clientSecret string
	market       string
}

// NewClient builds a Client from the adapter's custom-option bag. tokens
// may be shared between clients; nil gets a private cache.
func NewClient(options model.PlatformCustomOptions, tokens *platform.TokenCache) (*Client, error) {
	clientID, _ := options["client_id"].(string)
	clientSecret, _ := options["client_secret"].(string)

	if clientID == "" || clientSecret == "" {
		return nil, errMissingCredentials
	}

	market, _ := options["market"].(string)
	if market == "" {
		market = "US"
	}

	if tokens == nil {
		tokens = &platform.TokenCache{}
	}

	transport := http_transport.NewUserAgentInjector(
		http_transport.NewLogTransport(http.DefaultTransport, 0),
		utils.NewSimpleUserAgentProvider(http_transport.DefaultUserAgent),
	)

	api := resty.New().
		SetBaseURL(apiBaseURL).
		SetTimeout(http_transport.DefaultTimeout).
		SetTransport(transport)

	auth := resty.New().
		SetTimeout(http_transport.DefaultTimeout).
		SetTransport(transport)

	return &Client{
		api:          api,
		auth:         auth,
		tokens:       tokens,
		clientID:     clientID,
		clientSecret: clientSecret,
		market:       market,
	}, nil
}

// Market returns the configured storefront country code.
func (c *Client) Market() string { return c.market }

func (c *Client) token() (string, error) {
	tok, err := c.tokens.Get(func() (platform.Token, error) {
		var result struct {
			AccessToken string `json:"access_token"`
			ExpiresIn   int64  `json:"expires_in"`
		}

		resp, err := c.auth.R().
			SetBasicAuth(c.clientID, c.clientSecret).
			SetHeader("Content-Type", "application/x-www-form-urlencoded").
			SetBody("grant_type=client_credentials").
			SetResult(&result).
			Post(tokenURL)
		if err != nil {
			return platform.Token{}, fmt.Errorf("spotify: token request: %w", err)
		}

		if resp.StatusCode() != http.StatusOK || result.AccessToken == "" {
			return platform.Token{}, fmt.Errorf("spotify: token request failed with status %d", resp.StatusCode())
		}

		expires := time.Now().UnixMilli() + result.ExpiresIn*1000 - tokenExpirySlackMS

		return platform.Token{AccessToken: result.AccessToken, ExpiresAtMS: expires}, nil
	})
	if err != nil {
		return "", err
	}

	return tok.AccessToken, nil
}

// artist is one entry of a track's artist credit.
type artist struct {
	Name string `json:"name"`
}

// Track is the wire shape of one Spotify catalog track, kept close to the
// API's JSON so search responses decode directly into it.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	DurationMS int      `json:"duration_ms"`
	TrackNum   int      `json:"track_number"`
	DiscNum    int      `json:"disc_number"`
	Popularity int      `json:"popularity"`
	Explicit   bool     `json:"explicit"`
	Artists    []artist `json:"artists"`

	Album struct {
		Name        string `json:"name"`
		TotalTracks int    `json:"total_tracks"`
		ReleaseDate string `json:"release_date"`

		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`

	ExternalID struct {
		ISRC string `json:"isrc"`
	} `json:"external_ids"`

	ExternalURL struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
}

type searchResponse struct {
	Tracks struct {
		Items []Track `json:"items"`
	} `json:"tracks"`
}

// AudioFeatures is the numeric feature vector the Audio Features
// Sub-pipeline scales into tags.
type AudioFeatures struct {
	Acousticness     float64 `json:"acousticness"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Speechiness      float64 `json:"speechiness"`
	Valence          float64 `json:"valence"`
}

func (c *Client) search(ctx context.Context, query, market string) ([]Track, error) {
	token, err := c.token()
	if err != nil {
		return nil, err
	}

	if market == "" {
		market = c.market
	}

	var result searchResponse

	resp, err := c.api.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(map[string]string{
			"q":      query,
			"type":   "track",
			"limit":  fmt.Sprint(searchLimit),
			"market": market,
		}).
		SetResult(&result).
		Get("/search")
	if err != nil {
		return nil, fmt.Errorf("spotify: search: %w", err)
	}

	if resp.StatusCode() == http.StatusTooManyRequests {
		sleepRetryAfter(ctx, resp)

		return c.search(ctx, query, market)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("spotify: search failed with status %d", resp.StatusCode())
	}

	return result.Tracks.Items, nil
}

// sleepRetryAfter honors the Retry-After header when present; otherwise it
// sleeps a jittered couple of seconds so a burst of workers that tripped
// the limit together doesn't retry in lockstep.
func sleepRetryAfter(ctx context.Context, resp *resty.Response) {
	if retryAfter := resp.Header().Get("Retry-After"); retryAfter != "" {
		if parsed, err := time.ParseDuration(retryAfter + "s"); err == nil {
			select {
			case <-ctx.Done():
			case <-time.After(parsed):
			}

			return
		}
	}

	utils.RandomPause(2*time.Second, 4*time.Second) //nolint:mnd // vendor-recommended backoff window.
}

// SearchByISRC looks a track up by its exact ISRC.
func (c *Client) SearchByISRC(ctx context.Context, isrc, market string) ([]Track, error) {
	return c.search(ctx, "isrc:"+isrc, market)
}

// SearchByTitle searches by "artist cleaned-title".
func (c *Client) SearchByTitle(ctx context.Context, artists []string, title, market string) ([]Track, error) {
	query := match.CleanTitle(title)
	if len(artists) > 0 {
		query = match.CleanArtistSearching(artists[0]) + " " + query
	}

	return c.search(ctx, query, market)
}

// AudioFeaturesFor fetches the audio-features vector for a track id.
func (c *Client) AudioFeaturesFor(ctx context.Context, trackID string) (*AudioFeatures, error) {
	token, err := c.token()
	if err != nil {
		return nil, err
	}

	var result AudioFeatures

	resp, err := c.api.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&result).
		Get("/audio-features/" + trackID)
	if err != nil {
		return nil, fmt.Errorf("spotify: audio features: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("spotify: audio features failed with status %d", resp.StatusCode())
	}

	return &result, nil
}

func trackToModel(st *Track) *model.Track {
	track := &model.Track{ //nolint:exhaustruct // fields Spotify doesn't carry stay zero.
		Platform: PlatformID,
		Title:    st.Name,
		Album:    st.Album.Name,
		ISRC:     st.ExternalID.ISRC,
		Duration: time.Duration(st.DurationMS) * time.Millisecond,
		TrackID:  st.ID,
		URL:      st.ExternalURL.Spotify,
	}

	for _, a := range st.Artists {
		track.Artists = append(track.Artists, a.Name)
	}

	if st.TrackNum > 0 {
		track.TrackNumber = &model.TrackNumber{Number: st.TrackNum, Custom: ""}
	}

	if st.DiscNum > 0 {
		disc := st.DiscNum
		track.DiscNumber = &disc
	}

	if st.Album.TotalTracks > 0 {
		total := st.Album.TotalTracks
		track.TrackTotal = &total
	}

	if len(st.Album.Images) > 0 {
		track.ArtworkURL = st.Album.Images[0].URL
	}

	explicit := st.Explicit
	track.Explicit = &explicit

	if date, ok := parseReleaseDate(st.Album.ReleaseDate); ok {
		track.ReleaseDate = &date
		track.ReleaseYear = date.Year()
	} else if len(st.Album.ReleaseDate) >= 4 {
		if year, err := parseYear(st.Album.ReleaseDate[:4]); err == nil {
			track.ReleaseYear = year
		}
	}

	return track
}

func parseReleaseDate(raw string) (time.Time, bool) {
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}

	return date, true
}

func parseYear(raw string) (int, error) {
	var year int

	_, err := fmt.Sscanf(raw, "%d", &year)

	return year, err
}

type source struct {
	client *Client
}

func (s *source) MatchTrack(ctx context.Context, info *model.AudioFileInfo, config *model.Configuration) ([]model.TrackMatch, error) {
	if info.ISRC != nil && *info.ISRC != "" {
		tracks, err := s.client.SearchByISRC(ctx, *info.ISRC, "")
		if err == nil && len(tracks) > 0 {
			return []model.TrackMatch{model.NewISRCMatch(trackToModel(&tracks[0]))}, nil
		}
	}

	if info.Title == nil {
		return nil, errors.New("spotify: file has no title to search by")
	}

	title := strings.TrimSpace(*info.Title)

	tracks, err := s.client.SearchByTitle(ctx, info.Artists, title, "")
	if err != nil {
		return nil, err
	}

	candidates := make([]match.CandidateTitle, 0, len(tracks))

	for i := range tracks {
		track := trackToModel(&tracks[i])
		candidates = append(candidates, match.CandidateTitle{
			Title:    track.Title,
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

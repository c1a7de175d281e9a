// Package writer implements the Track Writer: applying a matched Track
// onto a file's tag container, gated per field by the configuration's
// enable and overwrite flags, with the title/key/genre-style/date/
// track-number/album-art transform rules in between. Split into Write
// (open, apply, save) and WriteContainer (pure field application) so the
// transform logic is testable against an in-memory container.
package writer

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/onetagger/autotagger-core/internal/constants"
	"github.com/onetagger/autotagger-core/internal/logger"
	"github.com/onetagger/autotagger-core/internal/model"
	"github.com/onetagger/autotagger-core/internal/tag"
	"github.com/onetagger/autotagger-core/internal/tag/id3"
	"github.com/onetagger/autotagger-core/internal/utils"
)

// minArtSize is the smallest Content-Length accepted for downloaded
// artwork; anything under this is a placeholder or an error page.
const minArtSize = 2048

// urlFrame is the track-URL frame triple; WWWAUDIOFILE is ID3's native
// frame, the other formats take the same name as a raw field.
var urlFrame = model.FrameName{ //nolint:gochecknoglobals // immutable constant value.
	ID3:    "WWWAUDIOFILE",
	Vorbis: "WWWAUDIOFILE",
	MP4:    "----:com.apple.iTunes:WWWAUDIOFILE",
}

// HTTPClient is the narrow GET surface the album-art download needs,
// satisfied by RestyClient in production and by fakes in tests.
type HTTPClient interface {
	Get(ctx context.Context, url string) (status int, header http.Header, body []byte, err error)
}

// RestyClient adapts a *resty.Client to HTTPClient.
type RestyClient struct {
	Client *resty.Client
}

// Get performs a plain GET with no auth.
func (r RestyClient) Get(ctx context.Context, url string) (int, http.Header, []byte, error) {
	resp, err := r.Client.R().SetContext(ctx).Get(url)
	if err != nil {
		return 0, nil, nil, err
	}

	return resp.StatusCode(), resp.Header(), resp.Body(), nil
}

// Write opens path's tag container, applies track per config, and saves.
func Write(ctx context.Context, path string, track *model.Track, config *model.Configuration, client HTTPClient) error {
	container, err := tag.LoadFile(path, true)
	if err != nil {
		return fmt.Errorf("writer: %w", err)
	}

	if id3Container, ok := container.(*id3.Container); ok {
		id3Container.SetID3v24(config.ID3v24)
	}

	applySeparators(container, config)
	WriteContainer(ctx, container, path, track, config, client)

	if err := container.SaveFile(path); err != nil {
		return fmt.Errorf("writer: %w", err)
	}

	return nil
}

func applySeparators(container tag.Container, config *model.Configuration) {
	separators := tag.DefaultSeparators()

	if config.Separators.Value != "" {
		separators.ID3 = config.Separators.Value
		separators.MP4 = config.Separators.Value
		separators.Vorbis = config.Separators.Value
	}

	separators.VorbisJoin = config.Separators.VorbisJoin

	tag.ApplySeparators(container, separators)
}

// WriteContainer applies every enabled field of track to an already-open
// container. Failures on individual optional fields (artwork download,
// malformed values) degrade to logged warnings; the caller decides whether
// to save.
//
//nolint:cyclop,funlen,gocognit // sequential per-field application, one block per field.
func WriteContainer(
	ctx context.Context,
	container tag.Container,
	path string,
	track *model.Track,
	config *model.Configuration,
	client HTTPClient,
) {
	writeField := func(field model.Field, values ...string) {
		if len(values) == 0 || (len(values) == 1 && values[0] == "") {
			return
		}

		if !config.TagEnabled(field) {
			return
		}

		container.SetField(field, values, fieldWritable(container, config, field))
	}

	title := track.FullTitle()
	if config.ShortTitle {
		title = track.Title
	}

	writeField(model.FieldTitle, title)
	writeField(model.FieldVersion, track.Version)
	writeField(model.FieldArtist, track.Artists...)
	writeField(model.FieldAlbumArtist, track.AlbumArtists...)
	writeField(model.FieldAlbum, track.Album)
	writeField(model.FieldRemixer, track.Remixers...)
	writeField(model.FieldLabel, track.Label)
	writeField(model.FieldCatalogNumber, track.CatalogNumber)
	writeField(model.FieldISRC, track.ISRC)
	writeField(model.FieldMood, track.Mood)

	if track.Key != "" {
		key := track.Key
		if config.Camelot {
			if code, ok := model.CamelotKey(key); ok {
				key = code
			}
		}

		writeField(model.FieldKey, key)
	}

	if track.BPM > 0 {
		writeField(model.FieldBPM, strconv.Itoa(int(math.Round(track.BPM))))
	}

	writeGenresAndStyles(container, track, config)
	writeDates(container, track, config)

	if config.TagEnabled(model.FieldURL) && track.URL != "" {
		container.SetRaw(urlFrame.ByFormat(container.Format()), []string{track.URL}, fieldWritable(container, config, model.FieldURL))
	}

	writeIDs(container, track, config)
	writeTrackNumbers(container, track, config)

	if config.TagEnabled(model.FieldDuration) && track.Duration > 0 {
		writeField(model.FieldDuration, strconv.FormatInt(track.Duration.Milliseconds(), 10))
	}

	if config.TagEnabled(model.FieldExplicit) && track.Explicit != nil {
		container.SetExplicit(*track.Explicit)
	}

	if config.TagEnabled(model.FieldLyrics) && track.Lyrics != nil {
		container.SetLyrics(track.Lyrics, track.Lyrics.Synced(), config.OverwriteTag(model.FieldLyrics))
	}

	if config.TagEnabled(model.FieldAlbumArt) && track.ArtworkURL != "" {
		writeAlbumArt(ctx, container, path, track, config, client)
	}

	if config.TagEnabled(model.FieldOtherTags) {
		for _, other := range track.Other {
			container.SetRaw(other.Name.ByFormat(container.Format()), other.Values, config.OverwriteTag(model.FieldOtherTags))
		}
	}

	if config.TagEnabled(model.FieldMetaTags) {
		StampTaggedDate(container, "_AT")
	}
}

// fieldWritable combines the per-field overwrite policy with the existing
// tag state: a disabled overwrite still writes into an empty frame.
func fieldWritable(container tag.Container, config *model.Configuration, field model.Field) bool {
	if config.OverwriteTag(field) {
		return true
	}

	values, ok := container.GetField(field)

	return !ok || len(values) == 0
}

//nolint:cyclop // one case per styles_options variant.
func writeGenresAndStyles(container tag.Container, track *model.Track, config *model.Configuration) {
	genres := append([]string{}, track.Genres...)
	styles := append([]string{}, track.Styles...)

	var redirect bool

	switch config.StylesOptions {
	case model.StylesOptionsOnlyGenres:
		styles = nil
	case model.StylesOptionsOnlyStyles:
		genres = nil
	case model.StylesOptionsMergeToGenres:
		genres = mergeValues(genres, styles)
		styles = nil
	case model.StylesOptionsMergeToStyles:
		styles = mergeValues(styles, genres)
		genres = nil
	case model.StylesOptionsStylesToGenre:
		genres = styles
		styles = nil
	case model.StylesOptionsGenresToStyle:
		styles = genres
		genres = nil
	case model.StylesOptionsCustomTag:
		redirect = true
	case model.StylesOptionsDefault:
	}

	if config.CapitalizeGenres {
		caser := cases.Title(language.Und)
		for i, g := range genres {
			genres[i] = caser.String(g)
		}

		for i, s := range styles {
			styles[i] = caser.String(s)
		}
	}

	if config.TagEnabled(model.FieldGenre) && len(genres) > 0 {
		if config.MergeGenres {
			if existing, ok := container.GetField(model.FieldGenre); ok {
				genres = mergeValues(existing, genres)
			}
		}

		container.SetField(model.FieldGenre, genres, fieldWritable(container, config, model.FieldGenre))
	}

	if len(styles) == 0 {
		return
	}

	if redirect {
		if config.StylesCustomTag == nil {
			logger.Warnf(context.Background(), "styles_options custom_tag set without styles_custom_tag; styles dropped for %s", track.Title)
			return
		}

		container.SetRaw(config.StylesCustomTag.ByFormat(container.Format()), styles, config.OverwriteTag(model.FieldStyle))

		return
	}

	if config.TagEnabled(model.FieldStyle) {
		if config.MergeGenres {
			if existing, ok := container.GetField(model.FieldStyle); ok {
				styles = mergeValues(existing, styles)
			}
		}

		container.SetField(model.FieldStyle, styles, fieldWritable(container, config, model.FieldStyle))
	}
}

// mergeValues unions extra into base case-insensitively, keeping base's
// order and casing.
func mergeValues(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base))

	out := make([]string, 0, len(base)+len(extra))

	for _, v := range base {
		if v == "" {
			continue
		}

		key := strings.ToLower(v)
		if _, dup := seen[key]; dup {
			continue
		}

		seen[key] = struct{}{}

		out = append(out, v)
	}

	for _, v := range extra {
		if v == "" {
			continue
		}

		key := strings.ToLower(v)
		if _, dup := seen[key]; dup {
			continue
		}

		seen[key] = struct{}{}

		out = append(out, v)
	}

	return out
}

func writeDates(container tag.Container, track *model.Track, config *model.Configuration) {
	if config.TagEnabled(model.FieldReleaseDate) {
		if date, ok := tagDate(track.ReleaseDate, track.ReleaseYear, config.OnlyYear); ok {
			container.SetDate(date, config.OverwriteTag(model.FieldReleaseDate))
		}
	}

	if config.TagEnabled(model.FieldPublishDate) {
		if date, ok := tagDate(track.PublishDate, track.PublishYear, config.OnlyYear); ok {
			container.SetPublishDate(date, config.OverwriteTag(model.FieldPublishDate))
		}
	}
}

// tagDate prefers the full date over the bare year; only_year strips the
// month/day granularity.
func tagDate(full *time.Time, year int, onlyYear bool) (model.TagDate, bool) {
	if full != nil {
		if onlyYear {
			return model.TagDate{Year: full.Year()}, true
		}

		month := int(full.Month())
		day := full.Day()

		return model.TagDate{Year: full.Year(), Month: &month, Day: &day}, true
	}

	if year > 0 {
		return model.TagDate{Year: year}, true
	}

	return model.TagDate{}, false
}

func writeIDs(container tag.Container, track *model.Track, config *model.Configuration) {
	prefix := strings.ToUpper(track.Platform)

	if config.TagEnabled(model.FieldTrackID) && track.TrackID != "" {
		container.SetRaw(prefix+"_TRACK_ID", []string{track.TrackID}, config.OverwriteTag(model.FieldTrackID))
	}

	if config.TagEnabled(model.FieldReleaseID) && track.ReleaseID != "" {
		container.SetRaw(prefix+"_RELEASE_ID", []string{track.ReleaseID}, config.OverwriteTag(model.FieldReleaseID))
	}
}

func writeTrackNumbers(container tag.Container, track *model.Track, config *model.Configuration) {
	if !config.TagEnabled(model.FieldTrackNumber) || track.TrackNumber == nil {
		return
	}

	number := track.TrackNumber.Custom
	if !track.TrackNumber.IsCustom() {
		number = padTrackNumber(track.TrackNumber.Number, config.TrackNumberLeadingZeroes)
	}

	var total *int
	if config.TagEnabled(model.FieldTrackTotal) {
		total = track.TrackTotal
	}

	container.SetTrackNumber(number, total, config.OverwriteTag(model.FieldTrackNumber))

	if config.TagEnabled(model.FieldDiscNumber) && track.DiscNumber != nil {
		container.SetField(model.FieldDiscNumber, []string{strconv.Itoa(*track.DiscNumber)},
			fieldWritable(container, config, model.FieldDiscNumber))
	}
}

// padTrackNumber zero-pads n to at least width digits.
func padTrackNumber(n, width int) string {
	if width <= 0 {
		return strconv.Itoa(n)
	}

	return fmt.Sprintf("%0*d", width, n)
}

// writeAlbumArt downloads track.ArtworkURL and embeds it as the front
// cover, requiring a 200 status, an image content type, and a payload
// larger than a placeholder. Optionally also writes a sibling cover.jpg
// when none exists yet.
func writeAlbumArt(
	ctx context.Context,
	container tag.Container,
	path string,
	track *model.Track,
	config *model.Configuration,
	client HTTPClient,
) {
	if client == nil {
		return
	}

	if container.HasArt() && !config.OverwriteTag(model.FieldAlbumArt) {
		return
	}

	status, header, body, err := client.Get(ctx, track.ArtworkURL)
	if err != nil {
		logger.Warnf(ctx, "album art download failed for %s: %v", path, err)
		return
	}

	mime := header.Get("Content-Type")

	switch {
	case status != http.StatusOK:
		logger.Warnf(ctx, "album art download for %s: unexpected status %d", path, status)
		return
	case len(body) < minArtSize:
		logger.Warnf(ctx, "album art download for %s: payload too small (%d bytes)", path, len(body))
		return
	case !strings.Contains(mime, "image"):
		logger.Warnf(ctx, "album art download for %s: unexpected content type %q", path, mime)
		return
	case config.MaxArtSize > 0 && int64(len(body)) > config.MaxArtSize:
		logger.Warnf(ctx, "album art download for %s: payload exceeds configured cap", path)
		return
	}

	container.SetArt(model.CoverTypeFront, mime, "", body)

	if config.AlbumArtFile {
		writeCoverFile(ctx, path, body)
	}
}

func writeCoverFile(ctx context.Context, path string, data []byte) {
	coverPath := filepath.Join(filepath.Dir(path), "cover.jpg")

	exists, err := utils.IsFileExist(coverPath)
	if err != nil || exists {
		return
	}

	if err := os.WriteFile(coverPath, data, constants.DefaultFilePermissions); err != nil {
		logger.Warnf(ctx, "writing %s: %v", coverPath, err)
	}
}

// StampTaggedDate records the machine-tagging marker: a local timestamp
// plus the pipeline suffix ("_AT" auto-tagger, "_AF" audio features).
func StampTaggedDate(container tag.Container, suffix string) {
	value := time.Now().Local().Format("2006-01-02 15:04:05") + suffix
	container.SetRaw(model.TaggedDateFrame.ByFormat(container.Format()), []string{value}, true)
}

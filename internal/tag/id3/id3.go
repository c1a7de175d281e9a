// Package id3 implements the Tag Container contract for ID3-tagged files
// (MP3, AIFF, WAV) on top of github.com/oshokin/id3v2/v2: text frames,
// TXXX user frames, POPM rating with the "RATING WMP" mirror, APIC
// artwork, COMM comments, and USLT/SYLT lyrics, with selectable
// ID3v2.3/v2.4 output.
package id3

import (
	"fmt"
	"math/big"
	"path/filepath"
	"strconv"
	"strings"

	id3v2 "github.com/oshokin/id3v2/v2"

	"github.com/onetagger/autotagger-core/internal/model"
	"github.com/onetagger/autotagger-core/internal/utils"
)

// popmEmail is the Popularimeter owner identifier written alongside the
// rating byte.
const popmEmail = "no@email"

// wmpRatings maps a 1-5 star rating to the value Windows Media Player
// expects in its "RATING WMP" mirror tag.
var wmpRatings = map[uint8]int{1: 1, 2: 64, 3: 128, 4: 192, 5: 255} //nolint:gochecknoglobals,mnd // fixed WMP rating scale.

// coverTypes pairs every CoverType except CoverTypeUndefined with its ID3
// picture-type byte, in the shared fixed order.
var coverTypes = []struct { //nolint:gochecknoglobals // immutable lookup table.
	kind model.CoverType
	pt   byte
}{
	{model.CoverTypeFront, id3v2.PTFrontCover},
	{model.CoverTypeBack, id3v2.PTBackCover},
	{model.CoverTypeOther, id3v2.PTOther},
	{model.CoverTypeArtist, id3v2.PTArtistPerformer},
	{model.CoverTypeIcon, id3v2.PTFileIcon},
	{model.CoverTypeOtherIcon, id3v2.PTOtherFileIcon},
	{model.CoverTypeLeaflet, id3v2.PTLeafletPage},
	{model.CoverTypeMedia, id3v2.PTMedia},
	{model.CoverTypeLeadArtist, id3v2.PTLeadArtistSoloist},
	{model.CoverTypeConductor, id3v2.PTConductor},
	{model.CoverTypeBand, id3v2.PTBandOrchestra},
	{model.CoverTypeComposer, id3v2.PTComposer},
	{model.CoverTypeLyricist, id3v2.PTLyricistTextWriter},
	{model.CoverTypeRecordingLocation, id3v2.PTRecordingLocation},
	{model.CoverTypeDuringRecording, id3v2.PTDuringRecording},
	{model.CoverTypeDuringPerformance, id3v2.PTDuringPerformance},
	{model.CoverTypeScreenCapture, id3v2.PTMovieScreenCapture},
	{model.CoverTypeBrightColoredFish, id3v2.PTBrightColouredFish},
	{model.CoverTypeIllustration, id3v2.PTIllustration},
	{model.CoverTypeBandLogo, id3v2.PTBandArtistLogotype},
	{model.CoverTypePublisherLogo, id3v2.PTPublisherStudioLogotype},
}

func pictureTypeFor(kind model.CoverType) byte {
	for _, entry := range coverTypes {
		if entry.kind == kind {
			return entry.pt
		}
	}

	return id3v2.PTOther
}

func coverTypeFor(pt byte) model.CoverType {
	for _, entry := range coverTypes {
		if entry.pt == pt {
			return entry.kind
		}
	}

	return model.CoverTypeUndefined
}

// Container implements tag.Container for ID3-tagged files.
type Container struct {
	tag       *id3v2.Tag
	path      string
	format    model.AudioFileFormat
	id3v24    bool
	separator string
}

// Load opens path's ID3 tag. A file without an existing tag gets a fresh
// in-memory one, written out on the first save; allowNew is accepted for
// contract parity (the library already handles the tagless case).
func Load(path string, _ bool) (*Container, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true}) //nolint:exhaustruct // ParseFrames omitted parses everything.
	if err != nil {
		return nil, fmt.Errorf("id3: opening %s: %w", path, err)
	}

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)

	c := &Container{
		tag:       tag,
		path:      path,
		format:    formatFromExtension(path),
		id3v24:    tag.Version() == 4, //nolint:mnd // ID3v2.4 major version byte.
		separator: ", ",
	}

	return c, nil
}

func formatFromExtension(path string) model.AudioFileFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".aif", ".aiff":
		return model.FormatAIFF
	case ".wav":
		return model.FormatWAV
	default:
		return model.FormatMP3
	}
}

// SetID3v24 selects ID3v2.4 (true) or v2.3 (false) output on save.
func (c *Container) SetID3v24(v24 bool) {
	c.id3v24 = v24
}

func (c *Container) Format() model.AudioFileFormat { return c.format }

// SetSeparator sets the multi-value join string; the literal `\0` escape
// becomes a NUL byte, enabling native ID3v2.4 multi-value encoding.
func (c *Container) SetSeparator(separator string) {
	c.separator = strings.ReplaceAll(separator, `\0`, "\x00")
}

func (c *Container) Separator() (string, bool) { return c.separator, true }

// AllTags returns every text, TXXX, and comment frame as a raw multi-map.
func (c *Container) AllTags() map[string][]string {
	out := make(map[string][]string)

	for id, frames := range c.tag.AllFrames() {
		for _, frame := range frames {
			switch f := frame.(type) {
			case id3v2.TextFrame:
				out[id] = append(out[id], c.splitValues(f.Text)...)
			case id3v2.UserDefinedTextFrame:
				out[f.Description] = append(out[f.Description], c.splitValues(f.Value)...)
			case id3v2.CommentFrame:
				out[id] = append(out[id], f.Text)
			}
		}
	}

	return out
}

func (c *Container) splitValues(raw string) []string {
	if c.separator == "" {
		return []string{raw}
	}

	return strings.Split(raw, c.separator)
}

// GetDate reads TDRC (v2.4) or TYER+TDAT (v2.3), whichever is present.
func (c *Container) GetDate() (model.TagDate, bool) {
	if text := c.textFrame("TDRC"); text != "" {
		return parseTimestamp(text)
	}

	yearText := c.textFrame("TYER")
	if yearText == "" {
		return model.TagDate{}, false
	}

	year, err := strconv.Atoi(yearText)
	if err != nil {
		return model.TagDate{}, false
	}

	date := model.TagDate{Year: year}

	// TDAT is DDMM.
	if ddmm := c.textFrame("TDAT"); len(ddmm) == 4 {
		if day, dayErr := strconv.Atoi(ddmm[:2]); dayErr == nil {
			if month, monthErr := strconv.Atoi(ddmm[2:]); monthErr == nil {
				date.Day = &day
				date.Month = &month
			}
		}
	}

	return date, true
}

// SetDate writes the release date: TDRC timestamp on v2.4, TYER plus a
// DDMM TDAT on v2.3.
func (c *Container) SetDate(date model.TagDate, overwrite bool) {
	if !overwrite && c.hasDate() {
		return
	}

	if c.id3v24 {
		c.tag.DeleteFrames("TYER")
		c.tag.DeleteFrames("TDAT")
		c.setTextFrame("TDRC", formatTimestamp(date))

		return
	}

	c.tag.DeleteFrames("TDRC")
	c.setTextFrame("TYER", strconv.Itoa(date.Year))

	if date.HasMonthDay() {
		c.setTextFrame("TDAT", fmt.Sprintf("%02d%02d", *date.Day, *date.Month))
	}
}

// SetPublishDate writes the TDRL (release time) timestamp frame.
func (c *Container) SetPublishDate(date model.TagDate, overwrite bool) {
	if !overwrite && c.textFrame("TDRL") != "" {
		return
	}

	c.setTextFrame("TDRL", formatTimestamp(date))
}

func (c *Container) hasDate() bool {
	return c.textFrame("TDRC") != "" || c.textFrame("TYER") != ""
}

// GetRating reads the POPM frame back as a 1-5 star rating.
func (c *Container) GetRating() (uint8, bool) {
	for _, frame := range c.tag.GetFrames("POPM") {
		popm, ok := frame.(id3v2.PopularimeterFrame)
		if !ok {
			continue
		}

		if popm.Rating == 0 {
			return 0, false
		}

		const step = 51 // 255 / 5 stars.

		stars := (int(popm.Rating) + step/2) / step
		if stars < 1 {
			stars = 1
		} else if stars > 5 {
			stars = 5
		}

		return utils.SafeIntToUint8(stars), true
	}

	return 0, false
}

// SetRating writes POPM with rating*51 plus the "RATING WMP" TXXX mirror;
// rating 0 removes both.
func (c *Container) SetRating(rating uint8, overwrite bool) {
	if !overwrite {
		if _, ok := c.GetRating(); ok {
			return
		}
	}

	c.tag.DeleteFrames("POPM")
	c.removeTXXX("RATING WMP")

	if rating == 0 {
		return
	}

	if rating > 5 {
		rating = 5
	}

	const step = 51 // 255 / 5 stars.

	c.tag.AddFrame("POPM", id3v2.PopularimeterFrame{
		Email:   popmEmail,
		Rating:  rating * step,
		Counter: big.NewInt(0),
	})

	c.setTXXX("RATING WMP", []string{strconv.Itoa(wmpRatings[rating])}, true)
}

// SetArt embeds artwork as an APIC frame. ID3v2.3 output re-encodes the
// frame header text as Latin-1 for Serato compatibility.
func (c *Container) SetArt(kind model.CoverType, mime, description string, data []byte) {
	c.RemoveArt(kind)

	encoding := id3v2.EncodingUTF8
	if !c.id3v24 {
		encoding = id3v2.EncodingISO
	}

	c.tag.AddAttachedPicture(id3v2.PictureFrame{
		Encoding:    encoding,
		MimeType:    mime,
		PictureType: pictureTypeFor(kind),
		Description: description,
		Picture:     data,
	})
}

func (c *Container) HasArt() bool {
	return len(c.tag.GetFrames("APIC")) > 0
}

func (c *Container) GetArt() []model.Cover {
	var covers []model.Cover

	for _, frame := range c.tag.GetFrames("APIC") {
		picture, ok := frame.(id3v2.PictureFrame)
		if !ok {
			continue
		}

		covers = append(covers, model.Cover{
			Kind:        coverTypeFor(picture.PictureType),
			MIME:        picture.MimeType,
			Description: picture.Description,
			Data:        picture.Picture,
		})
	}

	return covers
}

func (c *Container) RemoveArt(kind model.CoverType) {
	c.removePicturesByType(pictureTypeFor(kind))
}

func (c *Container) removePicturesByType(pt byte) {
	frames := c.tag.GetFrames("APIC")
	c.tag.DeleteFrames("APIC")

	for _, frame := range frames {
		picture, ok := frame.(id3v2.PictureFrame)
		if !ok || picture.PictureType == pt {
			continue
		}

		c.tag.AddAttachedPicture(picture)
	}
}

func (c *Container) SetField(field model.Field, values []string, overwrite bool) {
	c.SetRaw(model.FrameNameFor(field).ID3, values, overwrite)
}

//nolint:cyclop // per-field frame dispatch.
func (c *Container) GetField(field model.Field) ([]string, bool) {
	switch field {
	case model.FieldTrackNumber:
		return c.trackPart(0)
	case model.FieldTrackTotal:
		return c.trackPart(1)
	case model.FieldDiscNumber:
		return c.discPart(0)
	case model.FieldTitle, model.FieldVersion, model.FieldArtist, model.FieldAlbumArtist,
		model.FieldAlbum, model.FieldKey, model.FieldBPM, model.FieldLabel, model.FieldGenre,
		model.FieldStyle, model.FieldCatalogNumber, model.FieldDuration, model.FieldRemixer,
		model.FieldISRC, model.FieldMood, model.FieldReleaseDate, model.FieldPublishDate,
		model.FieldURL, model.FieldAlbumArt, model.FieldLyrics, model.FieldExplicit,
		model.FieldOtherTags, model.FieldMetaTags, model.FieldTrackID, model.FieldReleaseID:
		return c.GetRaw(model.FrameNameFor(field).ID3)
	default:
		return nil, false
	}
}

// trackPart returns one side of the "n" / "n/total" TRCK frame.
func (c *Container) trackPart(index int) ([]string, bool) {
	text := c.textFrame("TRCK")
	if text == "" {
		return nil, false
	}

	parts := strings.SplitN(text, "/", 2)
	if index >= len(parts) || parts[index] == "" {
		return nil, false
	}

	return []string{parts[index]}, true
}

func (c *Container) discPart(index int) ([]string, bool) {
	text := c.textFrame("TPOS")
	if text == "" {
		return nil, false
	}

	parts := strings.SplitN(text, "/", 2)
	if index >= len(parts) || parts[index] == "" {
		return nil, false
	}

	return []string{parts[index]}, true
}

// SetRaw writes values under name: a four-character name is a native text
// frame ("COMM" and "USLT" get their dedicated frame shapes), a
// "TXXX:"-prefixed or non-four-character name routes to a TXXX user frame
// keyed by description.
func (c *Container) SetRaw(name string, values []string, overwrite bool) {
	if len(values) == 0 {
		return
	}

	switch {
	case strings.HasPrefix(name, "TXXX:"):
		c.setTXXX(strings.TrimPrefix(name, "TXXX:"), values, overwrite)
	case name == "COMM":
		c.setComment(values, overwrite)
	case name == "USLT":
		c.setUnsyncLyrics(values, overwrite)
	case len(name) == 4: //nolint:mnd // native ID3 frame ids are four characters.
		if !overwrite && c.textFrame(name) != "" {
			return
		}

		c.setTextFrame(name, strings.Join(values, c.separator))
	default:
		c.setTXXX(name, values, overwrite)
	}
}

func (c *Container) setTXXX(description string, values []string, overwrite bool) {
	if !overwrite {
		if existing, ok := c.getTXXX(description); ok && len(existing) > 0 {
			return
		}
	}

	c.removeTXXX(description)

	c.tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
		Encoding:    id3v2.EncodingUTF8,
		Description: description,
		Value:       strings.Join(values, c.separator),
	})
}

func (c *Container) setComment(values []string, overwrite bool) {
	if !overwrite && len(c.tag.GetFrames("COMM")) > 0 {
		return
	}

	c.tag.DeleteFrames("COMM")

	c.tag.AddCommentFrame(id3v2.CommentFrame{
		Encoding:    id3v2.EncodingUTF8,
		Language:    id3v2.EnglishISO6392Code,
		Description: "",
		Text:        strings.Join(values, c.separator),
	})
}

func (c *Container) setUnsyncLyrics(values []string, overwrite bool) {
	if !overwrite && len(c.tag.GetFrames("USLT")) > 0 {
		return
	}

	c.tag.DeleteFrames("USLT")

	c.tag.AddUnsynchronisedLyricsFrame(id3v2.UnsynchronisedLyricsFrame{
		Encoding:          id3v2.EncodingUTF8,
		Language:          id3v2.EnglishISO6392Code,
		ContentDescriptor: "",
		Lyrics:            strings.Join(values, "\n"),
	})
}

func (c *Container) GetRaw(name string) ([]string, bool) {
	switch {
	case strings.HasPrefix(name, "TXXX:"):
		return c.getTXXX(strings.TrimPrefix(name, "TXXX:"))
	case len(name) == 4: //nolint:mnd // native ID3 frame ids are four characters.
		text := c.textFrame(name)
		if text == "" {
			return nil, false
		}

		return c.splitValues(text), true
	default:
		return c.getTXXX(name)
	}
}

func (c *Container) getTXXX(description string) ([]string, bool) {
	for _, frame := range c.tag.GetFrames("TXXX") {
		user, ok := frame.(id3v2.UserDefinedTextFrame)
		if ok && user.Description == description {
			return c.splitValues(user.Value), true
		}
	}

	return nil, false
}

func (c *Container) removeTXXX(description string) {
	frames := c.tag.GetFrames("TXXX")
	c.tag.DeleteFrames("TXXX")

	for _, frame := range frames {
		user, ok := frame.(id3v2.UserDefinedTextFrame)
		if ok && user.Description == description {
			continue
		}

		c.tag.AddFrame("TXXX", frame)
	}
}

func (c *Container) RemoveRaw(name string) {
	switch {
	case strings.HasPrefix(name, "TXXX:"):
		c.removeTXXX(strings.TrimPrefix(name, "TXXX:"))
	case len(name) == 4: //nolint:mnd // native ID3 frame ids are four characters.
		c.tag.DeleteFrames(name)
	default:
		c.removeTXXX(name)
	}
}

// SetLyrics writes SYLT when the lyrics are synced and synced output is
// requested, USLT otherwise.
func (c *Container) SetLyrics(lyrics *model.Lyrics, synced bool, overwrite bool) {
	if lyrics == nil {
		return
	}

	if synced && lyrics.Synced() {
		c.setSyncedLyrics(lyrics, overwrite)
		return
	}

	c.setUnsyncLyrics([]string{lyrics.PlainText()}, overwrite)
}

func (c *Container) setSyncedLyrics(lyrics *model.Lyrics, overwrite bool) {
	if !overwrite && len(c.tag.GetFrames("SYLT")) > 0 {
		return
	}

	c.tag.DeleteFrames("SYLT")

	texts := make([]id3v2.SynchronizedText, 0, len(lyrics.Lines))

	for _, line := range lyrics.Lines {
		if line.Start == nil {
			continue
		}

		texts = append(texts, id3v2.SynchronizedText{
			Text:      line.Text,
			Timestamp: uint32(line.Start.Milliseconds()), //nolint:gosec // lyric timestamps fit well inside uint32 ms.
		})
	}

	c.tag.AddSynchronisedLyricsFrame(id3v2.SynchronisedLyricsFrame{
		Encoding:          id3v2.EncodingUTF8,
		Language:          id3v2.EnglishISO6392Code,
		TimestampFormat:   id3v2.SYLTAbsoluteMillisecondsTimestampFormat,
		ContentType:       id3v2.SYLTLyricsContentType,
		ContentDescriptor: "",
		SynchronizedTexts: texts,
	})
}

// SetTrackNumber writes TRCK as "n" or "n/total".
func (c *Container) SetTrackNumber(trackNumber string, trackTotal *int, overwrite bool) {
	if !overwrite && c.textFrame("TRCK") != "" {
		return
	}

	text := trackNumber
	if trackTotal != nil {
		text += "/" + strconv.Itoa(*trackTotal)
	}

	c.setTextFrame("TRCK", text)
}

// SetExplicit writes the ITUNESADVISORY TXXX flag: "1" explicit, "2" clean.
func (c *Container) SetExplicit(explicit bool) {
	value := "2"
	if explicit {
		value = "1"
	}

	c.setTXXX("ITUNESADVISORY", []string{value}, true)
}

// SaveFile writes the tag back to the opened file and closes it. The
// library saves through a temp file, so a failed save leaves the original
// bytes untouched.
func (c *Container) SaveFile(_ string) error {
	version := byte(3)
	if c.id3v24 {
		version = 4
	}

	c.tag.SetVersion(version)

	if err := c.tag.Save(); err != nil {
		_ = c.tag.Close()

		return fmt.Errorf("id3: saving %s: %w", c.path, err)
	}

	if err := c.tag.Close(); err != nil {
		return fmt.Errorf("id3: closing %s: %w", c.path, err)
	}

	return nil
}

func (c *Container) textFrame(id string) string {
	return strings.TrimSpace(c.tag.GetTextFrame(id).Text)
}

func (c *Container) setTextFrame(id, text string) {
	c.tag.AddTextFrame(id, c.tag.DefaultEncoding(), text)
}

// parseTimestamp reads an ID3v2.4 timestamp ("2020", "2020-05",
// "2020-05-14", optionally with a time part).
func parseTimestamp(raw string) (model.TagDate, bool) {
	raw = strings.SplitN(raw, "T", 2)[0]
	parts := strings.SplitN(raw, "-", 3)

	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return model.TagDate{}, false
	}

	date := model.TagDate{Year: year}

	if len(parts) >= 2 {
		if month, monthErr := strconv.Atoi(parts[1]); monthErr == nil {
			date.Month = &month
		}
	}

	if len(parts) >= 3 {
		if day, dayErr := strconv.Atoi(parts[2]); dayErr == nil {
			date.Day = &day
		}
	}

	return date, true
}

func formatTimestamp(date model.TagDate) string {
	if !date.HasMonthDay() {
		return strconv.Itoa(date.Year)
	}

	return fmt.Sprintf("%04d-%02d-%02d", date.Year, *date.Month, *date.Day)
}

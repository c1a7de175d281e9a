// Package flac implements the Tag Container contract for FLAC files:
// Vorbis comments plus METADATA_BLOCK_PICTURE, built on go-flac,
// flacvorbis, and flacpicture the same way tag writing already works for
// Vorbis-comment-bearing formats in this module.
package flac

import (
	"strconv"
	"strings"

	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	goflac "github.com/go-flac/go-flac"

	"github.com/onetagger/autotagger-core/internal/model"
	"github.com/onetagger/autotagger-core/internal/utils"
)

// Container implements tag.Container for FLAC files.
type Container struct {
	file          *goflac.File
	path          string
	comment       *flacvorbis.MetaDataBlockVorbisComment
	commentIndex  int
	separator     string
	joinSeparator bool
}

// Load parses the FLAC file at path and locates its Vorbis comment block,
// creating an empty one if none exists yet.
func Load(path string) (*Container, error) {
	f, err := goflac.ParseFile(path)
	if err != nil {
		return nil, err
	}

	comment, index := extractComment(f)
	if comment == nil {
		comment = flacvorbis.New()
		index = -1
	}

	return &Container{file: f, path: path, comment: comment, commentIndex: index, separator: ""}, nil
}

func extractComment(f *goflac.File) (*flacvorbis.MetaDataBlockVorbisComment, int) {
	for idx, meta := range f.Meta {
		if meta.Type != goflac.VorbisComment {
			continue
		}

		if comment, err := flacvorbis.ParseFromMetaDataBlock(*meta); err == nil {
			return comment, idx
		}
	}

	return nil, -1
}

func (c *Container) Format() model.AudioFileFormat { return model.FormatFLAC }

// SetSeparator sets the join string for multi-valued fields written as a
// single comment entry. An empty separator means "use repeated comment
// entries" instead, which the set/get helpers below fall back to.
func (c *Container) SetSeparator(separator string) {
	c.separator = separator
	c.joinSeparator = separator != ""
}

func (c *Container) Separator() (string, bool) { return c.separator, c.joinSeparator }

func (c *Container) AllTags() map[string][]string {
	out := make(map[string][]string)

	for _, kv := range c.comment.Comments {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}

		key = strings.ToUpper(key)
		out[key] = append(out[key], value)
	}

	return out
}

func (c *Container) GetDate() (model.TagDate, bool) {
	values, ok := c.GetRaw("DATE")
	if !ok || len(values) == 0 {
		return model.TagDate{}, false
	}

	return parseDate(values[0])
}

func (c *Container) SetDate(date model.TagDate, overwrite bool) {
	c.SetRaw("DATE", []string{formatDate(date)}, overwrite)
}

func (c *Container) SetPublishDate(date model.TagDate, overwrite bool) {
	c.SetRaw("PUBLISHDATE", []string{formatDate(date)}, overwrite)
}

// wmpRatings maps a 1-5 star rating to the value Windows Media Player
// expects in its "RATING WMP" mirror tag.
var wmpRatings = map[uint8]int{1: 1, 2: 64, 3: 128, 4: 192, 5: 255} //nolint:gochecknoglobals,mnd // fixed WMP rating scale.

func (c *Container) GetRating() (uint8, bool) {
	values, ok := c.GetRaw("RATING")
	if !ok || len(values) == 0 {
		return 0, false
	}

	n := atoiSafe(values[0])
	if n <= 0 {
		return 0, false
	}

	// Values 1-5 are legacy star-scale writes; everything else is the
	// 0-100 scale this container writes (stars * 20).
	if n <= 5 {
		return utils.SafeIntToUint8(n), true
	}

	const step = 20 // stars scale to 0-100.

	stars := (n + step/2) / step
	if stars > 5 {
		stars = 5
	}

	return utils.SafeIntToUint8(stars), true
}

func (c *Container) SetRating(rating uint8, overwrite bool) {
	if !overwrite {
		if _, ok := c.GetRating(); ok {
			return
		}
	}

	c.RemoveRaw("RATING")
	c.RemoveRaw("RATING WMP")

	if rating == 0 {
		return
	}

	if rating > 5 {
		rating = 5
	}

	const step = 20 // stars scale to 0-100.

	c.SetRaw("RATING", []string{itoa(int(rating) * step)}, true)
	c.SetRaw("RATING WMP", []string{itoa(wmpRatings[rating])}, true)
}

func (c *Container) SetArt(kind model.CoverType, mime, description string, data []byte) {
	c.RemoveArt(kind)

	pictureType := flacpicture.PictureTypeFrontCover
	if kind == model.CoverTypeBack {
		pictureType = flacpicture.PictureTypeBackCover
	}

	picture, err := flacpicture.NewFromImageData(pictureType, description, data, mime)
	if err != nil {
		return
	}

	if len(data) > model.MaxFLACCoverSize {
		return
	}

	block := picture.Marshal()
	c.file.Meta = append(c.file.Meta, &block)
}

func (c *Container) HasArt() bool {
	return len(c.pictureBlocks()) > 0
}

func (c *Container) GetArt() []model.Cover {
	var covers []model.Cover

	for _, meta := range c.pictureBlocks() {
		picture, err := flacpicture.ParseFromMetaDataBlock(*meta)
		if err != nil {
			continue
		}

		covers = append(covers, model.Cover{
			Kind:        coverTypeFromPictureType(picture.PictureType),
			MIME:        picture.MIME,
			Description: picture.Description,
			Data:        picture.ImageData,
		})
	}

	return covers
}

func (c *Container) RemoveArt(kind model.CoverType) {
	wanted := flacpicture.PictureTypeFrontCover
	if kind == model.CoverTypeBack {
		wanted = flacpicture.PictureTypeBackCover
	}

	remaining := c.file.Meta[:0]

	for _, meta := range c.file.Meta {
		if meta.Type != goflac.Picture {
			remaining = append(remaining, meta)
			continue
		}

		picture, err := flacpicture.ParseFromMetaDataBlock(*meta)
		if err == nil && picture.PictureType == wanted {
			continue
		}

		remaining = append(remaining, meta)
	}

	c.file.Meta = remaining
}

func (c *Container) pictureBlocks() []*goflac.MetaDataBlock {
	var blocks []*goflac.MetaDataBlock

	for _, meta := range c.file.Meta {
		if meta.Type == goflac.Picture {
			blocks = append(blocks, meta)
		}
	}

	return blocks
}

func (c *Container) SetField(field model.Field, values []string, overwrite bool) {
	c.SetRaw(model.FrameNameFor(field).Vorbis, values, overwrite)
}

func (c *Container) GetField(field model.Field) ([]string, bool) {
	return c.GetRaw(model.FrameNameFor(field).Vorbis)
}

func (c *Container) SetRaw(name string, values []string, overwrite bool) {
	key := strings.ToUpper(name)

	if !overwrite && len(c.get(key)) > 0 {
		return
	}

	c.comment.Comments = removeKey(c.comment.Comments, key)

	if len(values) == 0 {
		return
	}

	if c.joinSeparator {
		_ = c.comment.Add(key, strings.Join(values, c.separator))
		return
	}

	for _, v := range values {
		_ = c.comment.Add(key, v)
	}
}

func (c *Container) GetRaw(name string) ([]string, bool) {
	values := c.get(strings.ToUpper(name))
	if len(values) == 0 {
		return nil, false
	}

	return values, true
}

// get wraps the comment block's error-returning lookup; a malformed block
// reads as an absent key.
func (c *Container) get(key string) []string {
	values, err := c.comment.Get(key)
	if err != nil {
		return nil
	}

	return values
}

func (c *Container) RemoveRaw(name string) {
	c.comment.Comments = removeKey(c.comment.Comments, strings.ToUpper(name))
}

func (c *Container) SetLyrics(lyrics *model.Lyrics, synced bool, overwrite bool) {
	if lyrics == nil {
		return
	}

	text := lyrics.PlainText()
	if synced && lyrics.Synced() {
		text = lyrics.GenerateLRC()
	}

	c.SetRaw("LYRICS", []string{text}, overwrite)
}

func (c *Container) SetTrackNumber(trackNumber string, trackTotal *int, overwrite bool) {
	c.SetRaw("TRACKNUMBER", []string{trackNumber}, overwrite)

	if trackTotal != nil {
		c.SetRaw("TRACKTOTAL", []string{itoa(*trackTotal)}, overwrite)
	}
}

func (c *Container) SetExplicit(explicit bool) {
	value := "0"
	if explicit {
		value = "1"
	}

	c.SetRaw("ITUNESADVISORY", []string{value}, true)
}

func (c *Container) SaveFile(path string) error {
	block := c.comment.Marshal()

	if c.commentIndex >= 0 {
		c.file.Meta[c.commentIndex] = &block
	} else {
		c.file.Meta = append(c.file.Meta, &block)
	}

	return c.file.Save(path)
}

func removeKey(comments []string, key string) []string {
	out := comments[:0]

	for _, kv := range comments {
		k, _, ok := strings.Cut(kv, "=")
		if ok && strings.EqualFold(k, key) {
			continue
		}

		out = append(out, kv)
	}

	return out
}

func coverTypeFromPictureType(pt flacpicture.PictureType) model.CoverType {
	switch pt {
	case flacpicture.PictureTypeFrontCover:
		return model.CoverTypeFront
	case flacpicture.PictureTypeBackCover:
		return model.CoverTypeBack
	default:
		return model.CoverTypeOther
	}
}

func parseDate(raw string) (model.TagDate, bool) {
	parts := strings.SplitN(raw, "-", 3)

	year := atoiSafe(parts[0])
	if year == 0 && parts[0] != "0" {
		return model.TagDate{}, false
	}

	date := model.TagDate{Year: year}

	if len(parts) >= 2 {
		if m := atoiSafe(parts[1]); m > 0 {
			date.Month = &m
		}
	}

	if len(parts) >= 3 {
		if d := atoiSafe(parts[2]); d > 0 {
			date.Day = &d
		}
	}

	return date, true
}

func formatDate(date model.TagDate) string {
	out := itoa(date.Year)

	if date.Month != nil {
		out += "-" + itoa(*date.Month)

		if date.Day != nil {
			out += "-" + itoa(*date.Day)
		}
	}

	return out
}

func itoa(n int) string { return strconv.Itoa(n) }

func atoiSafe(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}

	return n
}

// Package vorbis implements the Tag Container contract for bare
// Vorbis-comment-in-Ogg files (.ogg/.opus/.oga/.spx): the same Vorbis
// comment model FLAC embeds, without FLAC's own container.
package vorbis

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/go-flac/flacpicture"
	goflac "github.com/go-flac/go-flac"

	"github.com/onetagger/autotagger-core/internal/model"
	"github.com/onetagger/autotagger-core/internal/utils"
)

var errNoCommentPacket = errors.New("vorbis: file has fewer than two packets (missing comment header)")

// pictureKey is the standard comment key carrying a base64-encoded FLAC
// picture block, the Ogg convention for embedded artwork.
const pictureKey = "METADATA_BLOCK_PICTURE"

// Container implements tag.Container for bare Ogg/Vorbis-comment files.
// Only the comment (packet 1) is decoded; every other packet is carried
// through unmodified on save.
type Container struct {
	path          string
	packets       [][]byte
	granules      []uint64
	serial        uint32
	comments      []string // "KEY=VALUE", insertion order preserved
	vendor        string
	separator     string
	joinSeparator bool
}

// Load reads and de-multiplexes path, decoding its Vorbis comment packet.
func Load(path string) (*Container, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // path is operator-supplied, not user-controlled web input.
	if err != nil {
		return nil, err
	}

	pages, err := parsePages(raw)
	if err != nil {
		return nil, err
	}

	if len(pages) == 0 {
		return nil, errNoCommentPacket
	}

	packets := packetsFromPages(pages)
	if len(packets) < 2 {
		return nil, errNoCommentPacket
	}

	vendor, comments := decodeCommentPacket(packets[1])

	granules := make([]uint64, len(pages))
	for i, p := range pages {
		granules[i] = p.granulePos
	}

	return &Container{
		path:     path,
		packets:  packets,
		granules: granules,
		serial:   pages[0].serial,
		comments: comments,
		vendor:   vendor,
	}, nil
}

func decodeCommentPacket(packet []byte) (vendor string, comments []string) {
	if len(packet) < 7 {
		return "", nil
	}

	buf := packet[7:] // skip packet type byte + "vorbis"

	if len(buf) < 4 {
		return "", nil
	}

	vendorLen := binary.LittleEndian.Uint32(buf[:4])
	buf = buf[4:]

	if uint32(len(buf)) < vendorLen {
		return "", nil
	}

	vendor = string(buf[:vendorLen])
	buf = buf[vendorLen:]

	if len(buf) < 4 {
		return vendor, nil
	}

	count := binary.LittleEndian.Uint32(buf[:4])
	buf = buf[4:]

	for range count {
		if len(buf) < 4 {
			break
		}

		l := binary.LittleEndian.Uint32(buf[:4])
		buf = buf[4:]

		if uint32(len(buf)) < l {
			break
		}

		comments = append(comments, string(buf[:l]))
		buf = buf[l:]
	}

	return vendor, comments
}

func encodeCommentPacket(vendor string, comments []string) []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(3) // packet type: comment header
	buf.WriteString("vorbis")

	writeLenPrefixed(buf, vendor)

	var count [4]byte
	binary.LittleEndian.PutUint32(count[:], uint32(len(comments))) //nolint:gosec // comment count never approaches uint32 overflow.
	buf.Write(count[:])

	for _, c := range comments {
		writeLenPrefixed(buf, c)
	}

	buf.WriteByte(1) // framing bit

	return buf.Bytes()
}

func writeLenPrefixed(buf *bytes.Buffer, s string) {
	var l [4]byte
	binary.LittleEndian.PutUint32(l[:], uint32(len(s))) //nolint:gosec // comment values are never anywhere near uint32 overflow.
	buf.Write(l[:])
	buf.WriteString(s)
}

func (c *Container) Format() model.AudioFileFormat { return model.FormatOGG }

func (c *Container) SetSeparator(separator string) {
	c.separator = separator
	c.joinSeparator = separator != ""
}

func (c *Container) Separator() (string, bool) { return c.separator, c.joinSeparator }

func (c *Container) AllTags() map[string][]string {
	out := make(map[string][]string)

	for _, kv := range c.comments {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}

		key = strings.ToUpper(key)
		out[key] = append(out[key], value)
	}

	return out
}

func (c *Container) get(key string) []string {
	key = strings.ToUpper(key)

	var values []string

	for _, kv := range c.comments {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.EqualFold(k, key) {
			values = append(values, v)
		}
	}

	return values
}

func (c *Container) removeKey(key string) {
	key = strings.ToUpper(key)

	out := c.comments[:0]

	for _, kv := range c.comments {
		k, _, ok := strings.Cut(kv, "=")
		if ok && strings.EqualFold(k, key) {
			continue
		}

		out = append(out, kv)
	}

	c.comments = out
}

func (c *Container) GetDate() (model.TagDate, bool) {
	values := c.get("DATE")
	if len(values) == 0 {
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
	values := c.get("RATING")
	if len(values) == 0 {
		return 0, false
	}

	n, err := strconv.Atoi(values[0])
	if err != nil || n <= 0 {
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

	c.removeKey("RATING")
	c.removeKey("RATING WMP")

	if rating == 0 {
		return
	}

	if rating > 5 {
		rating = 5
	}

	const step = 20 // stars scale to 0-100.

	c.SetRaw("RATING", []string{strconv.Itoa(int(rating) * step)}, true)
	c.SetRaw("RATING WMP", []string{strconv.Itoa(wmpRatings[rating])}, true)
}

// SetArt embeds artwork as a base64 METADATA_BLOCK_PICTURE comment, the
// same FLAC picture block FLAC files carry natively.
func (c *Container) SetArt(kind model.CoverType, mime, description string, data []byte) {
	c.RemoveArt(kind)

	pictureType := flacpicture.PictureTypeFrontCover
	if kind == model.CoverTypeBack {
		pictureType = flacpicture.PictureTypeBackCover
	}

	picture, err := flacpicture.NewFromImageData(pictureType, description, data, mime)
	if err != nil {
		// The image header could not be decoded for its dimensions; the
		// payload is still embedded, with width/height/depth left at zero.
		picture = &flacpicture.MetadataBlockPicture{ //nolint:exhaustruct // dimension fields unknown.
			PictureType: pictureType,
			MIME:        mime,
			Description: description,
			ImageData:   data,
		}
	}

	block := picture.Marshal()
	c.comments = append(c.comments, pictureKey+"="+base64.StdEncoding.EncodeToString(block.Data))
}

func (c *Container) HasArt() bool {
	return len(c.get(pictureKey)) > 0
}

func (c *Container) GetArt() []model.Cover {
	var covers []model.Cover

	for _, picture := range c.pictures() {
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

	out := c.comments[:0]

	for _, kv := range c.comments {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.EqualFold(k, pictureKey) {
			if picture := decodePicture(v); picture != nil && picture.PictureType == wanted {
				continue
			}
		}

		out = append(out, kv)
	}

	c.comments = out
}

func (c *Container) pictures() []*flacpicture.MetadataBlockPicture {
	var pictures []*flacpicture.MetadataBlockPicture

	for _, v := range c.get(pictureKey) {
		if picture := decodePicture(v); picture != nil {
			pictures = append(pictures, picture)
		}
	}

	return pictures
}

func decodePicture(encoded string) *flacpicture.MetadataBlockPicture {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil
	}

	picture, err := flacpicture.ParseFromMetaDataBlock(goflac.MetaDataBlock{Type: goflac.Picture, Data: raw})
	if err != nil {
		return nil
	}

	return picture
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

func (c *Container) SetField(field model.Field, values []string, overwrite bool) {
	c.SetRaw(model.FrameNameFor(field).Vorbis, values, overwrite)
}

func (c *Container) GetField(field model.Field) ([]string, bool) {
	return c.GetRaw(model.FrameNameFor(field).Vorbis)
}

func (c *Container) SetRaw(name string, values []string, overwrite bool) {
	if !overwrite && len(c.get(name)) > 0 {
		return
	}

	c.removeKey(name)

	if len(values) == 0 {
		return
	}

	key := strings.ToUpper(name)

	if c.joinSeparator {
		c.comments = append(c.comments, key+"="+strings.Join(values, c.separator))
		return
	}

	for _, v := range values {
		c.comments = append(c.comments, key+"="+v)
	}
}

func (c *Container) GetRaw(name string) ([]string, bool) {
	values := c.get(name)
	if len(values) == 0 {
		return nil, false
	}

	return values, true
}

func (c *Container) RemoveRaw(name string) { c.removeKey(name) }

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
		c.SetRaw("TRACKTOTAL", []string{strconv.Itoa(*trackTotal)}, overwrite)
	}
}

func (c *Container) SetExplicit(explicit bool) {
	value := "0"
	if explicit {
		value = "1"
	}

	c.SetRaw("ITUNESADVISORY", []string{value}, true)
}

// SaveFile re-muxes every packet (identification header and audio data
// passed through verbatim, comment header rebuilt from the edited
// key/value list) into a fresh page sequence and overwrites path.
func (c *Container) SaveFile(path string) error {
	c.packets[1] = encodeCommentPacket(c.vendor, c.comments)

	buf := new(bytes.Buffer)

	for i, packet := range c.packets {
		headerType := byte(0)
		if i == 0 {
			headerType = 0x02 // beginning-of-stream
		}

		if i == len(c.packets)-1 {
			headerType |= 0x04 // end-of-stream
		}

		granule := uint64(0)
		if i < len(c.granules) {
			granule = c.granules[i]
		} else if len(c.granules) > 0 {
			granule = c.granules[len(c.granules)-1]
		}

		segTable := segmentTableFor(len(packet))
		buf.Write(renderPage(c.serial, uint32(i), headerType, granule, segTable, packet)) //nolint:gosec // page sequence never approaches uint32 overflow.
	}

	return os.WriteFile(path, buf.Bytes(), 0o644) //nolint:gosec // matches the source file's existing permissions intent.
}

func parseDate(raw string) (model.TagDate, bool) {
	parts := strings.SplitN(raw, "-", 3)

	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return model.TagDate{}, false
	}

	date := model.TagDate{Year: year}

	if len(parts) >= 2 {
		if m, errMonth := strconv.Atoi(parts[1]); errMonth == nil {
			date.Month = &m
		}
	}

	if len(parts) >= 3 {
		if d, errDay := strconv.Atoi(parts[2]); errDay == nil {
			date.Day = &d
		}
	}

	return date, true
}

func formatDate(date model.TagDate) string {
	out := strconv.Itoa(date.Year)

	if date.Month != nil {
		out += "-" + strconv.Itoa(*date.Month)

		if date.Day != nil {
			out += "-" + strconv.Itoa(*date.Day)
		}
	}

	return out
}

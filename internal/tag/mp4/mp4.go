// Package mp4 implements the Tag Container contract for MP4/M4A files by
// editing iTunes-style metadata atoms (moov/udta/meta/ilst) directly at
// the ISO-BMFF box level, patching stco/co64 chunk offsets when the
// metadata atom changes size.
package mp4

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/onetagger/autotagger-core/internal/logger"
	"github.com/onetagger/autotagger-core/internal/model"
	"github.com/onetagger/autotagger-core/internal/utils"
)

var errNoMoov = errors.New("mp4: file has no moov box")

// Well-known data-atom type codes.
const (
	dataTypeImplicit = 0  // binary payloads (trkn, disk).
	dataTypeUTF8     = 1  // UTF-8 text.
	dataTypeJPEG     = 13 // covr JPEG payload.
	dataTypePNG      = 14 // covr PNG payload.
	dataTypeInt      = 21 // big-endian signed integer.
)

// freeformPrefix marks the "----:mean:name" naming convention for
// non-standard iTunes atoms.
const freeformPrefix = "----:"

// wmpRatings maps a 1-5 star rating to the value Windows Media Player
// expects in its "RATING WMP" mirror tag.
var wmpRatings = map[uint8]int{1: 1, 2: 64, 3: 128, 4: 192, 5: 255} //nolint:gochecknoglobals,mnd // fixed WMP rating scale.

// item is one decoded ilst child: a standard four-character atom or a
// freeform "----:mean:name" atom, with its data payloads in file order.
type item struct {
	// name is the atom's four-character code, or "----:mean:name" for
	// freeform atoms.
	name string
	// dataType is the data atom type code shared by all values.
	dataType uint32
	// values holds each data atom's payload in order; text atoms usually
	// carry one, covr may carry several.
	values [][]byte
}

func (it *item) text(separator string) []string {
	if len(it.values) == 0 {
		return nil
	}

	joined := make([]string, 0, len(it.values))
	for _, v := range it.values {
		joined = append(joined, string(v))
	}

	if separator == "" {
		return joined
	}

	var split []string
	for _, v := range joined {
		split = append(split, strings.Split(v, separator)...)
	}

	return split
}

// Container implements tag.Container for MP4/M4A files.
type Container struct {
	path      string
	top       []box // file-level boxes, moov kept at its original index.
	moovIndex int
	items     []*item // decoded ilst children, order preserved.
	covers    [][]byte
	separator string
}

// Load parses path down to the ilst atom. A file without the
// udta/meta/ilst chain gets an empty item list; the chain is created on
// save.
func Load(path string) (*Container, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // path is operator-supplied, not user-controlled web input.
	if err != nil {
		return nil, fmt.Errorf("mp4: %w", err)
	}

	top, err := parseBoxes(raw)
	if err != nil {
		return nil, err
	}

	moovIndex := findBox(top, "moov")
	if moovIndex < 0 {
		return nil, errNoMoov
	}

	c := &Container{
		path:      path,
		top:       top,
		moovIndex: moovIndex,
		separator: ", ",
	}

	if ilst, found := c.locateIlst(); found {
		c.decodeIlst(ilst)
	}

	return c, nil
}

// locateIlst walks moov/udta/meta/ilst and returns the ilst payload.
func (c *Container) locateIlst() ([]byte, bool) {
	moov, err := parseBoxes(c.top[c.moovIndex].payload())
	if err != nil {
		return nil, false
	}

	udtaIndex := findBox(moov, "udta")
	if udtaIndex < 0 {
		return nil, false
	}

	udta, err := parseBoxes(moov[udtaIndex].payload())
	if err != nil {
		return nil, false
	}

	metaIndex := findBox(udta, "meta")
	if metaIndex < 0 || len(udta[metaIndex].Raw) < 12 {
		return nil, false
	}

	// meta is a full box: 4 bytes of version/flags before its children.
	meta, err := parseBoxes(udta[metaIndex].Raw[12:])
	if err != nil {
		return nil, false
	}

	ilstIndex := findBox(meta, "ilst")
	if ilstIndex < 0 {
		return nil, false
	}

	return meta[ilstIndex].payload(), true
}

func (c *Container) decodeIlst(payload []byte) {
	children, err := parseBoxes(payload)
	if err != nil {
		return
	}

	for _, child := range children {
		if child.Type == "covr" {
			c.decodeCovr(child.payload())
			continue
		}

		if it := decodeItem(child); it != nil {
			c.items = append(c.items, it)
		}
	}
}

func (c *Container) decodeCovr(payload []byte) {
	datas, err := parseBoxes(payload)
	if err != nil {
		return
	}

	for _, d := range datas {
		if d.Type == "data" && len(d.Raw) >= 16 {
			c.covers = append(c.covers, d.Raw[16:])
		}
	}
}

func decodeItem(child box) *item {
	inner, err := parseBoxes(child.payload())
	if err != nil {
		return nil
	}

	name := child.Type

	if child.Type == "----" {
		mean, sub := "", ""

		for _, b := range inner {
			if len(b.Raw) < 12 {
				continue
			}

			switch b.Type {
			case "mean":
				mean = string(b.Raw[12:])
			case "name":
				sub = string(b.Raw[12:])
			}
		}

		name = freeformPrefix + mean + ":" + sub
	}

	it := &item{name: name, dataType: dataTypeUTF8, values: nil}

	for _, b := range inner {
		if b.Type != "data" || len(b.Raw) < 16 {
			continue
		}

		it.dataType = binary.BigEndian.Uint32(b.Raw[8:12])
		it.values = append(it.values, b.Raw[16:])
	}

	if len(it.values) == 0 {
		return nil
	}

	return it
}

func (c *Container) Format() model.AudioFileFormat { return model.FormatMP4 }

func (c *Container) SetSeparator(separator string) { c.separator = separator }

func (c *Container) Separator() (string, bool) { return c.separator, true }

func (c *Container) AllTags() map[string][]string {
	out := make(map[string][]string)

	for _, it := range c.items {
		if it.dataType == dataTypeUTF8 {
			out[it.name] = append(out[it.name], it.text(c.separator)...)
		}
	}

	return out
}

func (c *Container) find(name string) *item {
	for _, it := range c.items {
		if it.name == name {
			return it
		}
	}

	return nil
}

func (c *Container) remove(name string) {
	out := c.items[:0]

	for _, it := range c.items {
		if it.name != name {
			out = append(out, it)
		}
	}

	c.items = out
}

// GetDate reads the ©day atom's ISO-8601 (or year-only) value.
func (c *Container) GetDate() (model.TagDate, bool) {
	it := c.find("\xa9day")
	if it == nil || len(it.values) == 0 {
		return model.TagDate{}, false
	}

	return parseISODate(string(it.values[0]))
}

func (c *Container) SetDate(date model.TagDate, overwrite bool) {
	c.setText("\xa9day", []string{formatISODate(date)}, overwrite)
}

// SetPublishDate is a warn-and-skip no-op: the MP4 atom vocabulary has no
// publish-date equivalent.
func (c *Container) SetPublishDate(_ model.TagDate, _ bool) {
	logger.Warnf(context.Background(), "mp4: no publish-date atom; publish date not written to %s", c.path)
}

// GetRating reads the "rate" atom back as 1-5 stars (stored as n*20).
func (c *Container) GetRating() (uint8, bool) {
	it := c.find("rate")
	if it == nil || len(it.values) == 0 {
		return 0, false
	}

	n, err := strconv.Atoi(string(it.values[0]))
	if err != nil || n <= 0 {
		return 0, false
	}

	const step = 20 // stars scale to 0-100.

	stars := (n + step/2) / step
	if stars < 1 {
		stars = 1
	} else if stars > 5 {
		stars = 5
	}

	return utils.SafeIntToUint8(stars), true
}

// SetRating writes rate=n*20 plus the "RATING WMP" freeform mirror; rating
// 0 removes both.
func (c *Container) SetRating(rating uint8, overwrite bool) {
	if !overwrite {
		if _, ok := c.GetRating(); ok {
			return
		}
	}

	c.remove("rate")
	c.remove(freeformPrefix + "com.apple.iTunes:RATING WMP")

	if rating == 0 {
		return
	}

	if rating > 5 {
		rating = 5
	}

	const step = 20 // stars scale to 0-100.

	c.setText("rate", []string{strconv.Itoa(int(rating) * step)}, true)
	c.setText(freeformPrefix+"com.apple.iTunes:RATING WMP", []string{strconv.Itoa(wmpRatings[rating])}, true)
}

// SetArt stores data at kind's position in the fixed cover-type ordering:
// MP4 has no per-cover type byte, so position in the covr atom is the only
// kind signal. The list stays dense; a kind beyond the current tail is
// appended.
func (c *Container) SetArt(kind model.CoverType, _, _ string, data []byte) {
	position := coverPosition(kind)

	if position < len(c.covers) {
		c.covers[position] = data
		return
	}

	c.covers = append(c.covers, data)
}

func (c *Container) HasArt() bool { return len(c.covers) > 0 }

func (c *Container) GetArt() []model.Cover {
	kinds := model.CoverTypes()

	covers := make([]model.Cover, 0, len(c.covers))

	for i, data := range c.covers {
		kind := model.CoverTypeUndefined
		if i < len(kinds) {
			kind = kinds[i]
		}

		covers = append(covers, model.Cover{
			Kind:        kind,
			MIME:        sniffImageMIME(data),
			Description: "",
			Data:        data,
		})
	}

	return covers
}

// RemoveArt removes the cover at kind's position, compacting the list so
// position and kind stay in lockstep.
func (c *Container) RemoveArt(kind model.CoverType) {
	position := coverPosition(kind)
	if position >= len(c.covers) {
		return
	}

	c.covers = append(c.covers[:position], c.covers[position+1:]...)
}

func coverPosition(kind model.CoverType) int {
	for i, k := range model.CoverTypes() {
		if k == kind {
			return i
		}
	}

	return len(model.CoverTypes()) - 1
}

func sniffImageMIME(data []byte) string {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8:
		return utils.ImageJPEGMimeType
	case len(data) >= 4 && data[0] == 0x89 && string(data[1:4]) == "PNG":
		return utils.ImagePNGMimeType
	default:
		return "application/octet-stream"
	}
}

func (c *Container) SetField(field model.Field, values []string, overwrite bool) {
	switch field {
	case model.FieldBPM:
		c.setBPM(values, overwrite)
	case model.FieldTrackNumber, model.FieldTrackTotal, model.FieldDiscNumber:
		// trkn/disk are binary pair atoms; use SetTrackNumber or SetRaw
		// with the numeric pair semantics instead of raw text.
		c.setPair(model.FrameNameFor(field).MP4, values, overwrite)
	default:
		c.SetRaw(model.FrameNameFor(field).MP4, values, overwrite)
	}
}

func (c *Container) GetField(field model.Field) ([]string, bool) {
	switch field {
	case model.FieldBPM:
		return c.intValue("tmpo")
	case model.FieldTrackNumber:
		return c.pairPart("trkn", 0)
	case model.FieldTrackTotal:
		return c.pairPart("trkn", 1)
	case model.FieldDiscNumber:
		return c.pairPart("disk", 0)
	default:
		return c.GetRaw(model.FrameNameFor(field).MP4)
	}
}

func (c *Container) SetRaw(name string, values []string, overwrite bool) {
	c.setText(name, values, overwrite)
}

func (c *Container) GetRaw(name string) ([]string, bool) {
	it := c.find(name)
	if it == nil {
		return nil, false
	}

	values := it.text(c.separator)
	if len(values) == 0 {
		return nil, false
	}

	return values, true
}

func (c *Container) RemoveRaw(name string) { c.remove(name) }

func (c *Container) setText(name string, values []string, overwrite bool) {
	if len(values) == 0 {
		return
	}

	if !overwrite && c.find(name) != nil {
		return
	}

	c.remove(name)

	joined := strings.Join(values, c.separator)
	c.items = append(c.items, &item{name: name, dataType: dataTypeUTF8, values: [][]byte{[]byte(joined)}})
}

func (c *Container) setBPM(values []string, overwrite bool) {
	if len(values) == 0 {
		return
	}

	if !overwrite && c.find("tmpo") != nil {
		return
	}

	bpm, err := strconv.Atoi(values[0])
	if err != nil {
		return
	}

	payload := make([]byte, 2)
	binary.BigEndian.PutUint16(payload, uint16(bpm)) //nolint:gosec // BPM values are small positive integers.

	c.remove("tmpo")
	c.items = append(c.items, &item{name: "tmpo", dataType: dataTypeInt, values: [][]byte{payload}})
}

func (c *Container) setPair(name string, values []string, overwrite bool) {
	if len(values) == 0 {
		return
	}

	number, err := strconv.Atoi(values[0])
	if err != nil {
		return
	}

	c.writePair(name, number, nil, overwrite)
}

// writePair encodes the binary (number, total) payload trkn and disk use.
func (c *Container) writePair(name string, number int, total *int, overwrite bool) {
	if !overwrite && c.find(name) != nil {
		return
	}

	size := 6
	if name == "trkn" {
		size = 8
	}

	payload := make([]byte, size)
	binary.BigEndian.PutUint16(payload[2:4], uint16(number)) //nolint:gosec // track numbers are small positive integers.

	if total != nil {
		binary.BigEndian.PutUint16(payload[4:6], uint16(*total)) //nolint:gosec // track totals are small positive integers.
	}

	c.remove(name)
	c.items = append(c.items, &item{name: name, dataType: dataTypeImplicit, values: [][]byte{payload}})
}

func (c *Container) pairPart(name string, index int) ([]string, bool) {
	it := c.find(name)
	if it == nil || len(it.values) == 0 || len(it.values[0]) < 6 {
		return nil, false
	}

	value := int(binary.BigEndian.Uint16(it.values[0][2+index*2 : 4+index*2]))
	if value == 0 {
		return nil, false
	}

	return []string{strconv.Itoa(value)}, true
}

func (c *Container) intValue(name string) ([]string, bool) {
	it := c.find(name)
	if it == nil || len(it.values) == 0 || len(it.values[0]) < 2 {
		return nil, false
	}

	return []string{strconv.Itoa(int(binary.BigEndian.Uint16(it.values[0][:2])))}, true
}

// SetLyrics writes unsynced lyrics to ©lyr; synced lyrics have no MP4 atom
// and degrade to their plain text.
func (c *Container) SetLyrics(lyrics *model.Lyrics, _ bool, overwrite bool) {
	if lyrics == nil {
		return
	}

	c.setText("\xa9lyr", []string{lyrics.PlainText()}, overwrite)
}

func (c *Container) SetTrackNumber(trackNumber string, trackTotal *int, overwrite bool) {
	number, err := strconv.Atoi(trackNumber)
	if err != nil {
		// Custom track-number strings have no binary trkn form; store the
		// text verbatim in a freeform atom instead of dropping it.
		c.setText(freeformPrefix+"com.apple.iTunes:TRACKNUMBER", []string{trackNumber}, overwrite)
		return
	}

	c.writePair("trkn", number, trackTotal, overwrite)
}

// SetExplicit writes the native advisory-rating byte: 1 explicit, 2 clean.
func (c *Container) SetExplicit(explicit bool) {
	value := byte(2)
	if explicit {
		value = 1
	}

	c.remove("rtng")
	c.items = append(c.items, &item{name: "rtng", dataType: dataTypeInt, values: [][]byte{{value}}})
}

// SaveFile re-encodes the ilst atom, rebuilds the moov chain around it,
// patches stco/co64 chunk offsets by the size delta, and atomically
// replaces path.
func (c *Container) SaveFile(path string) error {
	if path == "" {
		path = c.path
	}

	oldMoov := c.top[c.moovIndex]

	newMoov, err := c.rebuildMoov(oldMoov)
	if err != nil {
		return err
	}

	delta := int64(len(newMoov.Raw)) - int64(len(oldMoov.Raw))

	// Chunk offsets are absolute file positions; they only shift when the
	// media data sits after the resized moov.
	if c.mdatAfterMoov() && delta != 0 {
		newMoov = box{Type: "moov", Raw: adjustChunkOffsets(encodeBoxes([]box{newMoov}), delta)}
	}

	out := make([]box, len(c.top))
	copy(out, c.top)
	out[c.moovIndex] = newMoov

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, encodeBoxes(out), 0o644); err != nil { //nolint:gosec // matches the source file's permissions intent.
		return fmt.Errorf("mp4: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)

		return fmt.Errorf("mp4: %w", err)
	}

	return nil
}

func (c *Container) mdatAfterMoov() bool {
	mdatIndex := findBox(c.top, "mdat")

	return mdatIndex > c.moovIndex
}

// rebuildMoov swaps a freshly-encoded ilst into the moov/udta/meta chain,
// creating the chain when the file never carried one.
func (c *Container) rebuildMoov(moov box) (box, error) {
	children, err := parseBoxes(moov.payload())
	if err != nil {
		return box{}, err
	}

	ilst := c.encodeIlst()

	udtaIndex := findBox(children, "udta")
	if udtaIndex < 0 {
		meta := buildMeta(ilst)
		udta := rebuild("udta", meta.Raw)
		children = append(children, udta)

		return rebuild("moov", encodeBoxes(children)), nil
	}

	udtaChildren, err := parseBoxes(children[udtaIndex].payload())
	if err != nil {
		return box{}, err
	}

	metaIndex := findBox(udtaChildren, "meta")
	if metaIndex < 0 {
		udtaChildren = append(udtaChildren, buildMeta(ilst))
	} else {
		newMeta, metaErr := replaceIlst(udtaChildren[metaIndex], ilst)
		if metaErr != nil {
			return box{}, metaErr
		}

		udtaChildren[metaIndex] = newMeta
	}

	children[udtaIndex] = rebuild("udta", encodeBoxes(udtaChildren))

	return rebuild("moov", encodeBoxes(children)), nil
}

// buildMeta wraps an ilst in a minimal meta full box with the standard
// mdir handler.
func buildMeta(ilst box) box {
	hdlr := buildHdlr()

	payload := make([]byte, 4, 4+len(hdlr.Raw)+len(ilst.Raw))
	payload = append(payload, hdlr.Raw...)
	payload = append(payload, ilst.Raw...)

	return rebuild("meta", payload)
}

func buildHdlr() box {
	// version/flags, predefined, handler "mdir", reserved "appl" + 8 zero
	// bytes + null terminator.
	payload := make([]byte, 0, 25)
	payload = append(payload, 0, 0, 0, 0)
	payload = append(payload, 0, 0, 0, 0)
	payload = append(payload, "mdir"...)
	payload = append(payload, "appl"...)
	payload = append(payload, 0, 0, 0, 0, 0, 0, 0, 0, 0)

	return rebuild("hdlr", payload)
}

func replaceIlst(meta box, ilst box) (box, error) {
	if len(meta.Raw) < 12 {
		return buildMeta(ilst), nil
	}

	flags := meta.Raw[8:12]

	children, err := parseBoxes(meta.Raw[12:])
	if err != nil {
		return box{}, err
	}

	ilstIndex := findBox(children, "ilst")
	if ilstIndex < 0 {
		children = append(children, ilst)
	} else {
		children[ilstIndex] = ilst
	}

	payload := append(append([]byte{}, flags...), encodeBoxes(children)...)

	return rebuild("meta", payload), nil
}

func (c *Container) encodeIlst() box {
	var payload []byte

	for _, it := range c.items {
		payload = append(payload, encodeItem(it)...)
	}

	if len(c.covers) > 0 {
		var covr []byte

		for _, data := range c.covers {
			covr = append(covr, encodeData(coverDataType(data), data)...)
		}

		payload = append(payload, rebuild("covr", covr).Raw...)
	}

	return rebuild("ilst", payload)
}

func coverDataType(data []byte) uint32 {
	if sniffImageMIME(data) == utils.ImagePNGMimeType {
		return dataTypePNG
	}

	return dataTypeJPEG
}

func encodeItem(it *item) []byte {
	var inner []byte

	if strings.HasPrefix(it.name, freeformPrefix) {
		mean, sub, _ := strings.Cut(strings.TrimPrefix(it.name, freeformPrefix), ":")
		inner = append(inner, encodeFullString("mean", mean)...)
		inner = append(inner, encodeFullString("name", sub)...)
	}

	for _, value := range it.values {
		inner = append(inner, encodeData(it.dataType, value)...)
	}

	name := it.name
	if strings.HasPrefix(it.name, freeformPrefix) {
		name = "----"
	}

	return rebuild(name, inner).Raw
}

// encodeFullString renders the 4-byte-flags-plus-string form mean/name use.
func encodeFullString(typ, value string) []byte {
	payload := make([]byte, 4, 4+len(value))
	payload = append(payload, value...)

	return rebuild(typ, payload).Raw
}

// encodeData renders one "data" atom: type code, locale, payload.
func encodeData(dataType uint32, payload []byte) []byte {
	body := make([]byte, 8, 8+len(payload))
	binary.BigEndian.PutUint32(body[0:4], dataType)
	body = append(body, payload...)

	return rebuild("data", body).Raw
}

func parseISODate(raw string) (model.TagDate, bool) {
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

func formatISODate(date model.TagDate) string {
	if !date.HasMonthDay() {
		return strconv.Itoa(date.Year)
	}

	return fmt.Sprintf("%04d-%02d-%02d", date.Year, *date.Month, *date.Day)
}

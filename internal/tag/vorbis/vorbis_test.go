package vorbis

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onetagger/autotagger-core/internal/model"
)

func TestCommentPacketRoundTrip(t *testing.T) {
	t.Parallel()

	comments := []string{"TITLE=Strobe", "ARTIST=deadmau5", "ARTIST=Kaskade"}

	vendor, decoded := decodeCommentPacket(encodeCommentPacket("test vendor", comments))

	assert.Equal(t, "test vendor", vendor)
	assert.Equal(t, comments, decoded)
}

func TestSegmentTableFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []byte{0}, segmentTableFor(0))
	assert.Equal(t, []byte{200}, segmentTableFor(200))
	assert.Equal(t, []byte{255, 0}, segmentTableFor(255))
	assert.Equal(t, []byte{255, 255, 10}, segmentTableFor(520))
}

func TestPageRoundTrip(t *testing.T) {
	t.Parallel()

	packetA := []byte("\x01vorbisident")
	packetB := encodeCommentPacket("vendor", []string{"TITLE=One"})

	raw := append([]byte{}, renderPage(7, 0, 0x02, 0, segmentTableFor(len(packetA)), packetA)...)
	raw = append(raw, renderPage(7, 1, 0, 42, segmentTableFor(len(packetB)), packetB)...)

	pages, err := parsePages(raw)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, uint32(7), pages[0].serial)
	assert.Equal(t, uint64(42), pages[1].granulePos)

	packets := packetsFromPages(pages)
	require.Len(t, packets, 2)
	assert.Equal(t, packetA, packets[0])
	assert.Equal(t, packetB, packets[1])
}

func TestParsePagesRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := parsePages([]byte("definitely not an ogg stream"))
	require.Error(t, err)
}

// writeTestOgg builds a minimal three-packet Ogg stream: a fake
// identification header, a real comment header, and a dummy audio packet.
func writeTestOgg(t *testing.T, comments []string) string {
	t.Helper()

	packets := [][]byte{
		[]byte("\x01vorbis-fake-ident"),
		encodeCommentPacket("test vendor", comments),
		[]byte("fake audio payload"),
	}

	var raw []byte

	for i, packet := range packets {
		headerType := byte(0)
		if i == 0 {
			headerType = 0x02
		}

		if i == len(packets)-1 {
			headerType |= 0x04
		}

		raw = append(raw, renderPage(99, uint32(i), headerType, 0, segmentTableFor(len(packet)), packet)...) //nolint:gosec // tiny test index.
	}

	path := filepath.Join(t.TempDir(), "test.ogg")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	return path
}

func TestLoadReadsExistingComments(t *testing.T) {
	t.Parallel()

	path := writeTestOgg(t, []string{"TITLE=Original", "ARTIST=Somebody"})

	c, err := Load(path)
	require.NoError(t, err)

	values, ok := c.GetField(model.FieldTitle)
	require.True(t, ok)
	assert.Equal(t, []string{"Original"}, values)
}

func TestSaveFileRoundTrip(t *testing.T) {
	t.Parallel()

	path := writeTestOgg(t, []string{"TITLE=Original"})

	c, err := Load(path)
	require.NoError(t, err)

	c.SetField(model.FieldTitle, []string{"Replaced"}, true)
	c.SetField(model.FieldArtist, []string{"One", "Two"}, true)
	c.SetRating(3, true)
	require.NoError(t, c.SaveFile(path))

	reloaded, err := Load(path)
	require.NoError(t, err)

	title, ok := reloaded.GetField(model.FieldTitle)
	require.True(t, ok)
	assert.Equal(t, []string{"Replaced"}, title)

	artists, ok := reloaded.GetField(model.FieldArtist)
	require.True(t, ok)
	assert.Equal(t, []string{"One", "Two"}, artists, "each value becomes its own repeated comment by default")

	rating, ok := reloaded.GetRating()
	require.True(t, ok)
	assert.Equal(t, uint8(3), rating)
}

func TestSeparatorJoinsValues(t *testing.T) {
	t.Parallel()

	c := &Container{} //nolint:exhaustruct // zero container is a valid in-memory comment list.
	c.SetSeparator("; ")
	c.SetRaw("GENRE", []string{"House", "Techno"}, true)

	values, ok := c.GetRaw("GENRE")
	require.True(t, ok)
	assert.Equal(t, []string{"House; Techno"}, values)
}

func TestOverwriteFlagPreservesExisting(t *testing.T) {
	t.Parallel()

	c := &Container{} //nolint:exhaustruct // zero container is a valid in-memory comment list.
	c.SetRaw("TITLE", []string{"Original"}, true)
	c.SetRaw("TITLE", []string{"Replacement"}, false)

	values, ok := c.GetRaw("TITLE")
	require.True(t, ok)
	assert.Equal(t, []string{"Original"}, values)
}

func TestArtRoundTrip(t *testing.T) {
	t.Parallel()

	c := &Container{} //nolint:exhaustruct // zero container is a valid in-memory comment list.

	data := []byte{0xFF, 0xD8, 0xFF, 0xE0, 1, 2, 3, 4}
	c.SetArt(model.CoverTypeFront, "image/jpeg", "front", data)

	require.True(t, c.HasArt())

	covers := c.GetArt()
	require.Len(t, covers, 1)
	assert.Equal(t, model.CoverTypeFront, covers[0].Kind)
	assert.Equal(t, "image/jpeg", covers[0].MIME)
	assert.Equal(t, data, covers[0].Data)

	c.RemoveArt(model.CoverTypeFront)
	assert.False(t, c.HasArt())
}

func TestDateRoundTrip(t *testing.T) {
	t.Parallel()

	c := &Container{} //nolint:exhaustruct // zero container is a valid in-memory comment list.

	month, day := 5, 14
	c.SetDate(model.TagDate{Year: 2020, Month: &month, Day: &day}, true)

	date, ok := c.GetDate()
	require.True(t, ok)
	assert.Equal(t, 2020, date.Year)
	require.NotNil(t, date.Month)
	assert.Equal(t, 5, *date.Month)
}

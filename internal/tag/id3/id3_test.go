package id3

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onetagger/autotagger-core/internal/model"
)

// writeTestMP3 writes a tagless file with a few junk audio bytes; the
// library creates the ID3 tag in memory and prepends it on save.
func writeTestMP3(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.mp3")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0xFF}, 256), 0o600))

	return path
}

func TestCoverTypeMappingIsInverse(t *testing.T) {
	t.Parallel()

	for _, entry := range coverTypes {
		assert.Equal(t, entry.kind, coverTypeFor(pictureTypeFor(entry.kind)), "kind %v", entry.kind)
	}
}

func TestFormatFromExtension(t *testing.T) {
	t.Parallel()

	assert.Equal(t, model.FormatMP3, formatFromExtension("/music/a.mp3"))
	assert.Equal(t, model.FormatAIFF, formatFromExtension("/music/a.aiff"))
	assert.Equal(t, model.FormatAIFF, formatFromExtension("/music/a.AIF"))
	assert.Equal(t, model.FormatWAV, formatFromExtension("/music/a.wav"))
}

func TestTimestampRoundTrip(t *testing.T) {
	t.Parallel()

	month, day := 5, 14
	date := model.TagDate{Year: 2020, Month: &month, Day: &day}

	assert.Equal(t, "2020-05-14", formatTimestamp(date))

	parsed, ok := parseTimestamp("2020-05-14")
	require.True(t, ok)
	assert.Equal(t, 2020, parsed.Year)
	require.NotNil(t, parsed.Month)
	assert.Equal(t, 5, *parsed.Month)
	require.NotNil(t, parsed.Day)
	assert.Equal(t, 14, *parsed.Day)

	yearOnly, ok := parseTimestamp("1999")
	require.True(t, ok)
	assert.Equal(t, 1999, yearOnly.Year)
	assert.Nil(t, yearOnly.Month)
}

func TestDateSplitID3v23(t *testing.T) {
	t.Parallel()

	c, err := Load(writeTestMP3(t), true)
	require.NoError(t, err)

	c.SetID3v24(false)

	month, day := 5, 14
	c.SetDate(model.TagDate{Year: 2020, Month: &month, Day: &day}, true)

	year, ok := c.GetRaw("TYER")
	require.True(t, ok)
	assert.Equal(t, []string{"2020"}, year)

	ddmm, ok := c.GetRaw("TDAT")
	require.True(t, ok)
	assert.Equal(t, []string{"1405"}, ddmm)
}

func TestDateTimestampID3v24(t *testing.T) {
	t.Parallel()

	c, err := Load(writeTestMP3(t), true)
	require.NoError(t, err)

	c.SetID3v24(true)

	month, day := 5, 14
	c.SetDate(model.TagDate{Year: 2020, Month: &month, Day: &day}, true)

	timestamp, ok := c.GetRaw("TDRC")
	require.True(t, ok)
	assert.Equal(t, []string{"2020-05-14"}, timestamp)

	date, ok := c.GetDate()
	require.True(t, ok)
	assert.Equal(t, 2020, date.Year)
}

func TestRatingRoundTrip(t *testing.T) {
	t.Parallel()

	path := writeTestMP3(t)

	c, err := Load(path, true)
	require.NoError(t, err)

	c.SetRating(3, true)
	require.NoError(t, c.SaveFile(path))

	reloaded, err := Load(path, false)
	require.NoError(t, err)

	rating, ok := reloaded.GetRating()
	require.True(t, ok)
	assert.Equal(t, uint8(3), rating)

	mirror, ok := reloaded.GetRaw("RATING WMP")
	require.True(t, ok)
	assert.Equal(t, []string{"128"}, mirror)
}

func TestRatingZeroRemoves(t *testing.T) {
	t.Parallel()

	c, err := Load(writeTestMP3(t), true)
	require.NoError(t, err)

	c.SetRating(4, true)

	_, ok := c.GetRating()
	require.True(t, ok)

	c.SetRating(0, true)

	_, ok = c.GetRating()
	assert.False(t, ok)

	_, ok = c.GetRaw("RATING WMP")
	assert.False(t, ok)
}

func TestTrackNumberFrame(t *testing.T) {
	t.Parallel()

	c, err := Load(writeTestMP3(t), true)
	require.NoError(t, err)

	total := 12
	c.SetTrackNumber("3", &total, true)

	number, ok := c.GetField(model.FieldTrackNumber)
	require.True(t, ok)
	assert.Equal(t, []string{"3"}, number)

	totalValues, ok := c.GetField(model.FieldTrackTotal)
	require.True(t, ok)
	assert.Equal(t, []string{"12"}, totalValues)
}

func TestFieldRoundTripThroughSave(t *testing.T) {
	t.Parallel()

	path := writeTestMP3(t)

	c, err := Load(path, true)
	require.NoError(t, err)

	c.SetField(model.FieldTitle, []string{"Strobe"}, true)
	c.SetField(model.FieldArtist, []string{"deadmau5"}, true)
	c.SetRaw("CUSTOMTAG", []string{"value"}, true)
	require.NoError(t, c.SaveFile(path))

	reloaded, err := Load(path, false)
	require.NoError(t, err)

	title, ok := reloaded.GetField(model.FieldTitle)
	require.True(t, ok)
	assert.Equal(t, []string{"Strobe"}, title)

	custom, ok := reloaded.GetRaw("CUSTOMTAG")
	require.True(t, ok)
	assert.Equal(t, []string{"value"}, custom, "non-four-character names route through TXXX")
}

func TestOverwriteFlagPreservesExisting(t *testing.T) {
	t.Parallel()

	c, err := Load(writeTestMP3(t), true)
	require.NoError(t, err)

	c.SetField(model.FieldTitle, []string{"Original"}, true)
	c.SetField(model.FieldTitle, []string{"Replacement"}, false)

	values, ok := c.GetField(model.FieldTitle)
	require.True(t, ok)
	assert.Equal(t, []string{"Original"}, values)
}

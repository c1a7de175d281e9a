package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestFrameNameByFormat tests the per-format projection of a frame-name
// triple.
func TestFrameNameByFormat(t *testing.T) {
	t.Parallel()

	title := FrameNameFor(FieldTitle)

	assert.Equal(t, "TIT2", title.ByFormat(FormatMP3))
	assert.Equal(t, "TIT2", title.ByFormat(FormatAIFF))
	assert.Equal(t, "TIT2", title.ByFormat(FormatWAV))
	assert.Equal(t, "TITLE", title.ByFormat(FormatFLAC))
	assert.Equal(t, "TITLE", title.ByFormat(FormatOGG))
	assert.Equal(t, "\xa9nam", title.ByFormat(FormatMP4))
}

// TestSame tests the shared-name constructor used for bookkeeping tags.
func TestSame(t *testing.T) {
	t.Parallel()

	frame := Same("1T_TAGGEDDATE")

	for _, format := range []AudioFileFormat{FormatMP3, FormatFLAC, FormatOGG, FormatMP4} {
		assert.Equal(t, "1T_TAGGEDDATE", frame.ByFormat(format))
	}
}

// TestFormatFromExtension tests extension-to-format resolution.
func TestFormatFromExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ext      string
		expected AudioFileFormat
		ok       bool
	}{
		{ext: ".mp3", expected: FormatMP3, ok: true},
		{ext: "MP3", expected: FormatMP3, ok: true},
		{ext: ".aiff", expected: FormatAIFF, ok: true},
		{ext: "wav", expected: FormatWAV, ok: true},
		{ext: ".flac", expected: FormatFLAC, ok: true},
		{ext: ".m4a", expected: FormatMP4, ok: true},
		{ext: ".opus", expected: FormatOGG, ok: true},
		{ext: ".oga", expected: FormatOGG, ok: true},
		{ext: ".txt", expected: FormatUnknown, ok: false},
		{ext: "", expected: FormatUnknown, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			t.Parallel()

			format, ok := FormatFromExtension(tt.ext)
			assert.Equal(t, tt.ok, ok)

			if tt.ok {
				assert.Equal(t, tt.expected, format)
			}
		})
	}
}

// TestSupportedExtensionsResolve tests that every advertised extension
// resolves to a concrete format.
func TestSupportedExtensionsResolve(t *testing.T) {
	t.Parallel()

	for _, ext := range SupportedExtensions {
		_, ok := FormatFromExtension(ext)
		assert.True(t, ok, "extension %q", ext)
	}
}

// TestFieldByName tests config-name to field resolution.
func TestFieldByName(t *testing.T) {
	t.Parallel()

	field, ok := FieldByName("catalog_number")
	assert.True(t, ok)
	assert.Equal(t, FieldCatalogNumber, field)

	_, ok = FieldByName("no_such_field")
	assert.False(t, ok)
}

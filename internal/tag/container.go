// Package tag defines the Tag Container contract: a uniform get/set surface
// over ID3 (MP3/AIFF/WAV), Vorbis comments (OGG), FLAC, and MP4 tags, plus
// the format dispatcher that loads the right implementation from a file
// extension.
package tag

import (
	"strings"

	"github.com/onetagger/autotagger-core/internal/model"
	"github.com/onetagger/autotagger-core/internal/tag/flac"
	"github.com/onetagger/autotagger-core/internal/tag/id3"
	"github.com/onetagger/autotagger-core/internal/tag/mp4"
	"github.com/onetagger/autotagger-core/internal/tag/vorbis"
)

// Container is the uniform surface every concrete tag format implements.
// All methods it has in common with the reference contract keep the same
// names, translated to Go idiom (ok-returning getters instead of Option).
type Container interface {
	Format() model.AudioFileFormat
	SetSeparator(separator string)
	Separator() (string, bool)

	AllTags() map[string][]string

	GetDate() (model.TagDate, bool)
	SetDate(date model.TagDate, overwrite bool)
	SetPublishDate(date model.TagDate, overwrite bool)

	GetRating() (uint8, bool)
	SetRating(rating uint8, overwrite bool)

	SetArt(kind model.CoverType, mime, description string, data []byte)
	HasArt() bool
	GetArt() []model.Cover
	RemoveArt(kind model.CoverType)

	SetField(field model.Field, values []string, overwrite bool)
	GetField(field model.Field) ([]string, bool)

	SetRaw(name string, values []string, overwrite bool)
	GetRaw(name string) ([]string, bool)
	RemoveRaw(name string)

	SetLyrics(lyrics *model.Lyrics, synced, overwrite bool)

	SetTrackNumber(trackNumber string, trackTotal *int, overwrite bool)

	SetExplicit(explicit bool)

	SaveFile(path string) error
}

// Separators carries the per-format join string used when a multi-valued
// field (artists, genres, ...) is written to a single-valued tag frame.
// Vorbis's Join is a bool because Vorbis comments natively support repeated
// keys: when Join is false, each value becomes its own repeated comment
// entry instead of being joined with Value.
type Separators struct {
	ID3    string
	MP4    string
	Vorbis string
	// VorbisJoin, when false, disables joining for Vorbis/FLAC comments in
	// favor of repeated entries (the OneTagger default).
	VorbisJoin bool
}

// DefaultSeparators matches the reference implementation's TagSeparators
// default: ", " for ID3/MP4, repeated entries (no join) for Vorbis/FLAC.
func DefaultSeparators() Separators {
	return Separators{ID3: ", ", MP4: ", ", Vorbis: "", VorbisJoin: false}
}

// LoadFile opens the tag container appropriate for path's extension.
// allowNew is passed to id3.Load, which ignores it: an MP3/AIFF/WAV file
// with no ID3 tag yet always gets a fresh in-memory one, whether allowNew is
// true or false.
func LoadFile(path string, allowNew bool) (Container, error) {
	lower := strings.ToLower(path)

	switch {
	case strings.HasSuffix(lower, ".flac"):
		return flac.Load(path)
	case strings.HasSuffix(lower, ".m4a"), strings.HasSuffix(lower, ".mp4"):
		return mp4.Load(path)
	case strings.HasSuffix(lower, ".ogg"), strings.HasSuffix(lower, ".opus"),
		strings.HasSuffix(lower, ".oga"), strings.HasSuffix(lower, ".spx"):
		return vorbis.Load(path)
	default:
		return id3.Load(path, allowNew)
	}
}

// ApplySeparators pushes the per-format separator selection into a loaded
// container, mirroring Tag::set_separators.
func ApplySeparators(c Container, s Separators) {
	switch c.Format() {
	case model.FormatFLAC, model.FormatOGG:
		if s.VorbisJoin {
			c.SetSeparator(s.Vorbis)
		} else {
			c.SetSeparator("")
		}
	case model.FormatMP4:
		c.SetSeparator(s.MP4)
	default:
		c.SetSeparator(s.ID3)
	}
}

package model

// AudioFileFormat identifies the physical container format of an audio
// file, independent of the logical tag model it exposes.
type AudioFileFormat uint8

const (
	// FormatUnknown is the zero value for an unrecognized container.
	FormatUnknown AudioFileFormat = iota
	// FormatMP3 is an MPEG audio file carrying an ID3 tag.
	FormatMP3
	// FormatAIFF is an Audio Interchange File Format file carrying an ID3 tag.
	FormatAIFF
	// FormatWAV is a RIFF/WAVE file carrying an ID3 tag.
	FormatWAV
	// FormatFLAC is a Free Lossless Audio Codec file with Vorbis comments and picture blocks.
	FormatFLAC
	// FormatMP4 is an MPEG-4 container (M4A/MP4) using iTunes-style atoms.
	FormatMP4
	// FormatOGG is an Ogg container (OGG/OPUS/SPX/OGA) carrying Vorbis comments.
	FormatOGG
)

// String returns a human-readable name for the format.
func (f AudioFileFormat) String() string {
	switch f {
	case FormatMP3:
		return "MP3"
	case FormatAIFF:
		return "AIFF"
	case FormatWAV:
		return "WAV"
	case FormatFLAC:
		return "FLAC"
	case FormatMP4:
		return "MP4"
	case FormatOGG:
		return "OGG"
	default:
		return "Unknown"
	}
}

// extensionFormats maps a lowercase file extension (without the dot) to its
// container format. Extensions not present here are unsupported.
var extensionFormats = map[string]AudioFileFormat{ //nolint:gochecknoglobals // immutable lookup table.
	"mp3":  FormatMP3,
	"aif":  FormatAIFF,
	"aiff": FormatAIFF,
	"wav":  FormatWAV,
	"flac": FormatFLAC,
	"m4a":  FormatMP4,
	"mp4":  FormatMP4,
	"ogg":  FormatOGG,
	"opus": FormatOGG,
	"spx":  FormatOGG,
	"oga":  FormatOGG,
}

// FormatFromExtension resolves a file extension (with or without the
// leading dot, any case) to its AudioFileFormat. The second return value is
// false when the extension is not one of the supported containers.
func FormatFromExtension(ext string) (AudioFileFormat, bool) {
	for len(ext) > 0 && ext[0] == '.' {
		ext = ext[1:]
	}

	f, ok := extensionFormats[lower(ext)]

	return f, ok
}

// SupportedExtensions is the closed set of file extensions the scheduler
// enumerates when walking a root path.
var SupportedExtensions = []string{ //nolint:gochecknoglobals // immutable list mirrored from extensionFormats.
	"mp3", "flac", "aif", "aiff", "m4a", "mp4", "wav", "ogg", "opus", "spx", "oga",
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}

	return string(b)
}

// Field is a logical tag field name, independent of container format.
type Field uint8

// The closed set of logical fields the Tag Container and Track Writer
// operate on.
const (
	FieldTitle Field = iota
	FieldVersion
	FieldArtist
	FieldAlbumArtist
	FieldAlbum
	FieldKey
	FieldBPM
	FieldLabel
	FieldGenre
	FieldStyle
	FieldCatalogNumber
	FieldTrackNumber
	FieldTrackTotal
	FieldDiscNumber
	FieldDuration
	FieldRemixer
	FieldISRC
	FieldMood
	FieldReleaseDate
	FieldPublishDate
	FieldURL
	FieldAlbumArt
	FieldLyrics
	FieldExplicit
	FieldOtherTags
	FieldMetaTags
	FieldTrackID
	FieldReleaseID
)

// FrameName is the three-format projection of one logical tag name: the raw
// frame/field identifier to use on ID3, Vorbis (also used for FLAC), and
// MP4 containers respectively.
type FrameName struct {
	ID3    string
	Vorbis string
	MP4    string
}

// Same builds a FrameName that uses the identical raw name on every format,
// the common case for "1T_"-prefixed bookkeeping tags and vendor TXXX names.
func Same(name string) FrameName {
	return FrameName{ID3: name, Vorbis: name, MP4: name}
}

// ByFormat returns the frame identifier appropriate for the given container
// format.
func (n FrameName) ByFormat(format AudioFileFormat) string {
	switch format {
	case FormatMP4:
		return n.MP4
	case FormatFLAC, FormatOGG:
		return n.Vorbis
	case FormatMP3, FormatAIFF, FormatWAV:
		return n.ID3
	default:
		return n.ID3
	}
}

// fieldFrameNames is the static logical-field -> frame-name-triple table.
var fieldFrameNames = map[Field]FrameName{ //nolint:gochecknoglobals // immutable lookup table.
	FieldTitle:         {ID3: "TIT2", Vorbis: "TITLE", MP4: "\xa9nam"},
	FieldVersion:       {ID3: "TIT3", Vorbis: "VERSION", MP4: "----:com.apple.iTunes:VERSION"},
	FieldArtist:        {ID3: "TPE1", Vorbis: "ARTIST", MP4: "\xa9ART"},
	FieldAlbumArtist:   {ID3: "TPE2", Vorbis: "ALBUMARTIST", MP4: "aART"},
	FieldAlbum:         {ID3: "TALB", Vorbis: "ALBUM", MP4: "\xa9alb"},
	FieldKey:           {ID3: "TKEY", Vorbis: "INITIALKEY", MP4: "----:com.apple.iTunes:initialkey"},
	FieldBPM:           {ID3: "TBPM", Vorbis: "BPM", MP4: "tmpo"},
	FieldLabel:         {ID3: "TPUB", Vorbis: "LABEL", MP4: "----:com.apple.iTunes:LABEL"},
	FieldGenre:         {ID3: "TCON", Vorbis: "GENRE", MP4: "\xa9gen"},
	FieldStyle:         {ID3: "TXXX:STYLE", Vorbis: "STYLE", MP4: "----:com.apple.iTunes:STYLE"},
	FieldCatalogNumber: {ID3: "TXXX:CATALOGNUMBER", Vorbis: "CATALOGNUMBER", MP4: "----:com.apple.iTunes:CATALOGNUMBER"},
	FieldTrackNumber:   {ID3: "TRCK", Vorbis: "TRACKNUMBER", MP4: "trkn"},
	FieldTrackTotal:    {ID3: "TRCK", Vorbis: "TRACKTOTAL", MP4: "trkn"},
	FieldDiscNumber:    {ID3: "TPOS", Vorbis: "DISCNUMBER", MP4: "disk"},
	FieldDuration:      {ID3: "TLEN", Vorbis: "LENGTH", MP4: "----:com.apple.iTunes:LENGTH"},
	FieldRemixer:       {ID3: "TPE4", Vorbis: "REMIXER", MP4: "----:com.apple.iTunes:REMIXER"},
	FieldISRC:          {ID3: "TSRC", Vorbis: "ISRC", MP4: "----:com.apple.iTunes:ISRC"},
	FieldMood:          {ID3: "TMOO", Vorbis: "MOOD", MP4: "----:com.apple.iTunes:MOOD"},
}

// FrameNameFor returns the frame-name triple for a logical field.
func FrameNameFor(f Field) FrameName {
	return fieldFrameNames[f]
}

// TaggedDateFrame is the raw field recording when a file was last
// machine-tagged.
var TaggedDateFrame = Same("1T_TAGGEDDATE") //nolint:gochecknoglobals // immutable constant value.

// fieldNames maps a field's config/YAML name to its Field value, the
// inverse of the enable-flag struct tags the Configuration loader decodes:
// the per-field overwrite set needs a name -> Field lookup since YAML keys
// are strings, not the typed enum.
var fieldNames = map[string]Field{ //nolint:gochecknoglobals // immutable lookup table.
	"title":          FieldTitle,
	"version":        FieldVersion,
	"artist":         FieldArtist,
	"album_artist":   FieldAlbumArtist,
	"album":          FieldAlbum,
	"key":            FieldKey,
	"bpm":            FieldBPM,
	"label":          FieldLabel,
	"genre":          FieldGenre,
	"style":          FieldStyle,
	"catalog_number": FieldCatalogNumber,
	"track_number":   FieldTrackNumber,
	"track_total":    FieldTrackTotal,
	"disc_number":    FieldDiscNumber,
	"duration":       FieldDuration,
	"remixer":        FieldRemixer,
	"isrc":           FieldISRC,
	"mood":           FieldMood,
	"release_date":   FieldReleaseDate,
	"publish_date":   FieldPublishDate,
	"url":            FieldURL,
	"album_art":      FieldAlbumArt,
	"lyrics":         FieldLyrics,
	"explicit":       FieldExplicit,
	"other_tags":     FieldOtherTags,
	"meta_tags":      FieldMetaTags,
	"track_id":       FieldTrackID,
	"release_id":     FieldReleaseID,
}

// FieldByName resolves a config-file field name (snake_case, as used in
// the per-field enable/overwrite maps) to its Field value.
func FieldByName(name string) (Field, bool) {
	f, ok := fieldNames[name]

	return f, ok
}

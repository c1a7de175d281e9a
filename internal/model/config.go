package model

import "time"

// MultipleMatchesPolicy controls the tie-break sort applied after accuracy
// scoring.
type MultipleMatchesPolicy uint8

const (
	// MultipleMatchesDefault keeps candidates in accuracy-descending,
	// as-provided order.
	MultipleMatchesDefault MultipleMatchesPolicy = iota
	// MultipleMatchesOldest sorts by release date ascending.
	MultipleMatchesOldest
	// MultipleMatchesNewest sorts by release date descending.
	MultipleMatchesNewest
)

// StylesOptions controls how the Track Writer reconciles genre/style pairs
// before writing.
type StylesOptions uint8

const (
	// StylesOptionsDefault writes genres and styles to their own fields unchanged.
	StylesOptionsDefault StylesOptions = iota
	// StylesOptionsOnlyGenres drops styles, writes only genres.
	StylesOptionsOnlyGenres
	// StylesOptionsOnlyStyles drops genres, writes only styles.
	StylesOptionsOnlyStyles
	// StylesOptionsMergeToGenres merges styles into the genre field.
	StylesOptionsMergeToGenres
	// StylesOptionsMergeToStyles merges genres into the style field.
	StylesOptionsMergeToStyles
	// StylesOptionsStylesToGenre writes styles into the genre field instead of styles.
	StylesOptionsStylesToGenre
	// StylesOptionsGenresToStyle writes genres into the style field instead of genres.
	StylesOptionsGenresToStyle
	// StylesOptionsCustomTag redirects styles to StylesCustomTag.
	StylesOptionsCustomTag
)

// FieldFlags is the set of per-field enable flags Configuration carries.
type FieldFlags struct {
	Title         bool
	Artist        bool
	Album         bool
	AlbumArtist   bool
	Genre         bool
	Style         bool
	Label         bool
	Key           bool
	BPM           bool
	ReleaseDate   bool
	PublishDate   bool
	CatalogNumber bool
	ISRC          bool
	TrackNumber   bool
	TrackTotal    bool
	DiscNumber    bool
	Duration      bool
	Remixer       bool
	URL           bool
	AlbumArt      bool
	Lyrics        bool
	Explicit      bool
	OtherTags     bool
	MetaTags      bool
	TrackID       bool
	ReleaseID     bool
	Version       bool
}

// OverwritePolicy controls, per field, whether an existing non-empty value
// is replaced.
type OverwritePolicy struct {
	OverwriteAll bool
	PerField     map[Field]bool
}

// Allows reports whether writing is allowed for the given field: either the
// blanket overwrite flag is set, or the field has its own overwrite entry.
func (p OverwritePolicy) Allows(f Field) bool {
	if p.OverwriteAll {
		return true
	}

	return p.PerField[f]
}

// PlatformCustomOptions is the opaque, adapter-declared custom-option bag
// for one platform.
type PlatformCustomOptions map[string]any

// Configuration is the single immutable record per run.
type Configuration struct {
	Platforms []string
	RootPath  string
	Fields    FieldFlags
	Overwrite OverwritePolicy

	Strictness            float64
	MatchDuration         bool
	MaxDurationDifference time.Duration
	MatchByID             bool
	MultipleMatches       MultipleMatchesPolicy
	FetchAllResults       bool

	ParseFilename            bool
	FilenameTemplate         string
	ShortTitle               bool
	MergeGenres              bool
	CapitalizeGenres         bool
	Camelot                  bool
	SkipTagged               bool
	IncludeSubfolders        bool
	OnlyYear                 bool
	TrackNumberLeadingZeroes int
	StylesOptions            StylesOptions
	StylesCustomTag          *FrameName
	ID3v24                   bool
	Separators               Separators
	AlbumArtFile             bool
	MaxArtSize               int64
	EnableShazam             bool
	ForceShazam              bool
	Threads                  int
	PostCommand              string

	Custom map[string]PlatformCustomOptions

	Auth map[string]AuthMaterial
}

// Separators controls multi-value encoding for each container format.
type Separators struct {
	// Value is the literal separator string; "\0" escapes to a NUL byte to
	// enable native ID3v2.4 multi-value encoding.
	Value string
	// VorbisJoin, when true, joins multi-values into a single comment
	// instead of writing one comment per value (Vorbis default is false).
	VorbisJoin bool
}

// AuthMaterial is the opaque authentication payload a Platform Adapter
// needs (OAuth tokens, API keys); its shape is adapter-specific.
type AuthMaterial struct {
	Token        string
	RefreshToken string
	ExpiresAtMS  int64
}

// TagEnabled reports whether a logical field is enabled for writing.
func (c *Configuration) TagEnabled(f Field) bool { //nolint:cyclop // straightforward flag dispatch table.
	switch f {
	case FieldTitle:
		return c.Fields.Title
	case FieldVersion:
		return c.Fields.Version
	case FieldArtist:
		return c.Fields.Artist
	case FieldAlbumArtist:
		return c.Fields.AlbumArtist
	case FieldAlbum:
		return c.Fields.Album
	case FieldKey:
		return c.Fields.Key
	case FieldBPM:
		return c.Fields.BPM
	case FieldLabel:
		return c.Fields.Label
	case FieldGenre:
		return c.Fields.Genre
	case FieldStyle:
		return c.Fields.Style
	case FieldCatalogNumber:
		return c.Fields.CatalogNumber
	case FieldTrackNumber:
		return c.Fields.TrackNumber
	case FieldTrackTotal:
		return c.Fields.TrackTotal
	case FieldDiscNumber:
		return c.Fields.DiscNumber
	case FieldDuration:
		return c.Fields.Duration
	case FieldRemixer:
		return c.Fields.Remixer
	case FieldISRC:
		return c.Fields.ISRC
	case FieldReleaseDate:
		return c.Fields.ReleaseDate
	case FieldPublishDate:
		return c.Fields.PublishDate
	case FieldURL:
		return c.Fields.URL
	case FieldAlbumArt:
		return c.Fields.AlbumArt
	case FieldLyrics:
		return c.Fields.Lyrics
	case FieldExplicit:
		return c.Fields.Explicit
	case FieldOtherTags:
		return c.Fields.OtherTags
	case FieldMetaTags:
		return c.Fields.MetaTags
	case FieldTrackID:
		return c.Fields.TrackID
	case FieldReleaseID:
		return c.Fields.ReleaseID
	default:
		return false
	}
}

// OverwriteTag reports whether an enabled field may overwrite an existing value.
func (c *Configuration) OverwriteTag(f Field) bool {
	return c.Overwrite.Allows(f)
}

// AnyTagEnabled reports whether any field in the set is enabled, used by
// adapters to decide whether ExtendTrack is worth calling.
func (c *Configuration) AnyTagEnabled(fields ...Field) bool {
	for _, f := range fields {
		if c.TagEnabled(f) {
			return true
		}
	}

	return false
}

// GetCustom returns the opaque custom-option bag for a platform. The bag
// is already a decoded PlatformCustomOptions map in this implementation
// (not wire JSON), so adapters type-assert the individual entries they
// declared in their option schema.
func (c *Configuration) GetCustom(platformID string) PlatformCustomOptions {
	if c.Custom == nil {
		return nil
	}

	return c.Custom[platformID]
}

// Package config loads and validates the YAML run configuration: a raw
// viper/mapstructure decode into File, then a Validate pass that applies
// defaults, checks cross-field invariants, and produces the typed
// model.Configuration plus the parsed ambient settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/onetagger/autotagger-core/internal/constants"
	"github.com/onetagger/autotagger-core/internal/features"
	"github.com/onetagger/autotagger-core/internal/logger"
	"github.com/onetagger/autotagger-core/internal/model"
	"github.com/onetagger/autotagger-core/internal/utils"
)

const (
	// DefaultConfigFilename is the default name of the configuration file.
	DefaultConfigFilename = ".autotagger.yaml"

	// DefaultThreads is used when the config omits "threads".
	DefaultThreads = 16

	// DefaultMaxDurationDifference is used when matching.match_duration is
	// on but max_duration_difference is omitted.
	DefaultMaxDurationDifference = 30 * time.Second

	// DefaultStrictness is the fuzzy-match threshold used when
	// matching.strictness is omitted.
	DefaultStrictness = 0.7

	// DefaultMaxArtSize caps downloaded artwork when max_art_size is
	// omitted.
	DefaultMaxArtSize = "16 MB"
)

// Static error definitions for better error handling.
var (
	// ErrNoPlatforms indicates that the platforms list is missing or empty.
	ErrNoPlatforms = errors.New("platforms must list at least one platform id")
	// ErrInvalidStrictness indicates a strictness outside [0, 1].
	ErrInvalidStrictness = errors.New("strictness must be between 0 and 1")
	// ErrUnknownLogLevel indicates an unparseable log level name.
	ErrUnknownLogLevel = errors.New("unknown log level")
	// ErrInvalidMultipleMatches indicates an unknown multiple_matches value.
	ErrInvalidMultipleMatches = errors.New("multiple_matches must be one of: default, oldest, newest")
	// ErrInvalidStylesOptions indicates an unknown styles_options value.
	ErrInvalidStylesOptions = errors.New("unknown styles_options value")
	// ErrMissingStylesCustomTag indicates styles_options custom_tag without
	// a frame-name triple to redirect to.
	ErrMissingStylesCustomTag = errors.New("styles_options custom_tag requires styles_custom_tag")
	// ErrUnknownField indicates an unrecognized field name in the fields or
	// overwrite maps.
	ErrUnknownField = errors.New("unknown field name")
)

// frameNameFile mirrors model.FrameName with mapstructure tags.
type frameNameFile struct {
	ID3    string `mapstructure:"id3"`
	Vorbis string `mapstructure:"vorbis"`
	MP4    string `mapstructure:"mp4"`
}

func (f *frameNameFile) toModel() model.FrameName {
	return model.FrameName{ID3: f.ID3, Vorbis: f.Vorbis, MP4: f.MP4}
}

// matchingFile groups the matching parameters.
type matchingFile struct {
	Strictness            *float64 `mapstructure:"strictness"`
	MatchDuration         bool     `mapstructure:"match_duration"`
	MaxDurationDifference string   `mapstructure:"max_duration_difference"`
	MatchByID             bool     `mapstructure:"match_by_id"`
	MultipleMatches       string   `mapstructure:"multiple_matches"`
	FetchAllResults       bool     `mapstructure:"fetch_all_results"`
}

// overwriteFile mirrors model.OverwritePolicy.
type overwriteFile struct {
	All    bool            `mapstructure:"all"`
	Fields map[string]bool `mapstructure:"fields"`
}

// authFile mirrors model.AuthMaterial.
type authFile struct {
	Token        string `mapstructure:"token"`
	RefreshToken string `mapstructure:"refresh_token"`
	ExpiresAtMS  int64  `mapstructure:"expires_at_ms"`
}

// separatorsFile mirrors model.Separators.
type separatorsFile struct {
	Value      string `mapstructure:"value"`
	VorbisJoin bool   `mapstructure:"vorbis_join"`
}

// dimensionFile is one audio-features dimension entry.
type dimensionFile struct {
	Enabled  bool           `mapstructure:"enabled"`
	Frame    *frameNameFile `mapstructure:"frame"`
	Classify bool           `mapstructure:"classify"`
	Min      float64        `mapstructure:"min"`
	Max      float64        `mapstructure:"max"`
	Under    string         `mapstructure:"under"`
	Middle   string         `mapstructure:"middle"`
	Over     string         `mapstructure:"over"`
}

// featuresFile mirrors features.Config plus its enable switch.
type featuresFile struct {
	Enabled    bool                     `mapstructure:"enabled"`
	Market     string                   `mapstructure:"market"`
	MainFrame  *frameNameFile           `mapstructure:"main_frame"`
	Dimensions map[string]dimensionFile `mapstructure:"dimensions"`
}

// File is the raw decode target for the YAML configuration file; Validate
// turns it into a Loaded.
type File struct {
	Platforms []string        `mapstructure:"platforms"`
	RootPath  string          `mapstructure:"root_path"`
	Fields    map[string]bool `mapstructure:"fields"`
	Overwrite overwriteFile   `mapstructure:"overwrite"`
	Matching  matchingFile    `mapstructure:"matching"`

	ParseFilename            bool           `mapstructure:"parse_filename"`
	FilenameTemplate         string         `mapstructure:"filename_template"`
	ShortTitle               bool           `mapstructure:"short_title"`
	MergeGenres              bool           `mapstructure:"merge_genres"`
	CapitalizeGenres         bool           `mapstructure:"capitalize_genres"`
	Camelot                  bool           `mapstructure:"camelot"`
	SkipTagged               bool           `mapstructure:"skip_tagged"`
	IncludeSubfolders        bool           `mapstructure:"include_subfolders"`
	OnlyYear                 bool           `mapstructure:"only_year"`
	TrackNumberLeadingZeroes int            `mapstructure:"track_number_leading_zeroes"`
	StylesOptions            string         `mapstructure:"styles_options"`
	StylesCustomTag          *frameNameFile `mapstructure:"styles_custom_tag"`
	ID3v24                   bool           `mapstructure:"id3v24"`
	Separators               separatorsFile `mapstructure:"separators"`
	AlbumArtFile             bool           `mapstructure:"album_art_file"`
	MaxArtSize               string         `mapstructure:"max_art_size"`
	EnableShazam             bool           `mapstructure:"enable_shazam"`
	ForceShazam              bool           `mapstructure:"force_shazam"`
	Threads                  int            `mapstructure:"threads"`
	PostCommand              string         `mapstructure:"post_command"`
	LogLevel                 string         `mapstructure:"log_level"`

	Custom map[string]map[string]any `mapstructure:"custom"`
	Auth   map[string]authFile       `mapstructure:"auth"`

	AudioFeatures featuresFile `mapstructure:"audio_features"`
}

// Loaded is the validated, typed run configuration.
type Loaded struct {
	Configuration model.Configuration

	ParsedLogLevel zapcore.Level

	AudioFeaturesOn bool
	AudioFeatures   features.Config
}

// LoadConfig reads and validates the YAML configuration file.
func LoadConfig(configFilename string) (*Loaded, error) {
	if configFilename == "" {
		configFilename = DefaultConfigFilename
	}

	v := viper.New()
	v.SetConfigFile(configFilename)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config from file: %w", err)
	}

	var file File
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return Validate(&file)
}

// Validate applies defaults, checks cross-field invariants, and converts a
// raw File into a Loaded.
//
//nolint:funlen,cyclop // validation runs as one sequential check list.
func Validate(file *File) (*Loaded, error) {
	if len(file.Platforms) == 0 {
		return nil, ErrNoPlatforms
	}

	strictness := DefaultStrictness
	if file.Matching.Strictness != nil {
		strictness = *file.Matching.Strictness
	}

	if strictness < 0 || strictness > 1 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidStrictness, strictness)
	}

	maxDurationDifference := DefaultMaxDurationDifference

	if raw := strings.TrimSpace(file.Matching.MaxDurationDifference); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse max_duration_difference: %w", err)
		}

		maxDurationDifference = parsed
	}

	multipleMatches, err := parseMultipleMatches(file.Matching.MultipleMatches)
	if err != nil {
		return nil, err
	}

	stylesOptions, err := parseStylesOptions(file.StylesOptions)
	if err != nil {
		return nil, err
	}

	var stylesCustomTag *model.FrameName

	if file.StylesCustomTag != nil {
		frame := file.StylesCustomTag.toModel()
		stylesCustomTag = &frame
	}

	if stylesOptions == model.StylesOptionsCustomTag && stylesCustomTag == nil {
		return nil, ErrMissingStylesCustomTag
	}

	parsedLogLevel, levelOK := zapcore.InfoLevel, true
	if strings.TrimSpace(file.LogLevel) != "" {
		parsedLogLevel, levelOK = logger.ParseLogLevel(file.LogLevel)
	}

	if !levelOK {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownLogLevel, file.LogLevel)
	}

	fields, err := parseFieldFlags(file.Fields)
	if err != nil {
		return nil, err
	}

	perFieldOverwrite, err := parseOverwriteFields(file.Overwrite.Fields)
	if err != nil {
		return nil, err
	}

	maxArtSizeRaw := strings.TrimSpace(file.MaxArtSize)
	if maxArtSizeRaw == "" {
		maxArtSizeRaw = DefaultMaxArtSize
	}

	maxArtSize, err := humanize.ParseBytes(maxArtSizeRaw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse max_art_size: %w", err)
	}

	threads := file.Threads
	if threads <= 0 {
		threads = DefaultThreads
	}

	custom := make(map[string]model.PlatformCustomOptions, len(file.Custom))
	for platformID, options := range file.Custom {
		custom[platformID] = model.PlatformCustomOptions(options)
	}

	auth := make(map[string]model.AuthMaterial, len(file.Auth))
	for platformID, material := range file.Auth {
		auth[platformID] = model.AuthMaterial{
			Token:        material.Token,
			RefreshToken: material.RefreshToken,
			ExpiresAtMS:  material.ExpiresAtMS,
		}
	}

	loaded := &Loaded{
		Configuration: model.Configuration{
			Platforms: file.Platforms,
			RootPath:  file.RootPath,
			Fields:    fields,
			Overwrite: model.OverwritePolicy{OverwriteAll: file.Overwrite.All, PerField: perFieldOverwrite},

			Strictness:            strictness,
			MatchDuration:         file.Matching.MatchDuration,
			MaxDurationDifference: maxDurationDifference,
			MatchByID:             file.Matching.MatchByID,
			MultipleMatches:       multipleMatches,
			FetchAllResults:       file.Matching.FetchAllResults,

			ParseFilename:            file.ParseFilename,
			FilenameTemplate:         file.FilenameTemplate,
			ShortTitle:               file.ShortTitle,
			MergeGenres:              file.MergeGenres,
			CapitalizeGenres:         file.CapitalizeGenres,
			Camelot:                  file.Camelot,
			SkipTagged:               file.SkipTagged,
			IncludeSubfolders:        file.IncludeSubfolders,
			OnlyYear:                 file.OnlyYear,
			TrackNumberLeadingZeroes: file.TrackNumberLeadingZeroes,
			StylesOptions:            stylesOptions,
			StylesCustomTag:          stylesCustomTag,
			ID3v24:                   file.ID3v24,
			Separators:               model.Separators{Value: file.Separators.Value, VorbisJoin: file.Separators.VorbisJoin},
			AlbumArtFile:             file.AlbumArtFile,
			MaxArtSize:               utils.SafeUint64ToInt64(maxArtSize),
			EnableShazam:             file.EnableShazam,
			ForceShazam:              file.ForceShazam,
			Threads:                  threads,
			PostCommand:              file.PostCommand,

			Custom: custom,
			Auth:   auth,
		},
		ParsedLogLevel:  parsedLogLevel,
		AudioFeaturesOn: file.AudioFeatures.Enabled,
		AudioFeatures:   parseAudioFeatures(&file.AudioFeatures),
	}

	return loaded, nil
}

func parseMultipleMatches(raw string) (model.MultipleMatchesPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "default":
		return model.MultipleMatchesDefault, nil
	case "oldest":
		return model.MultipleMatchesOldest, nil
	case "newest":
		return model.MultipleMatchesNewest, nil
	default:
		return model.MultipleMatchesDefault, fmt.Errorf("%w: got %q", ErrInvalidMultipleMatches, raw)
	}
}

func parseStylesOptions(raw string) (model.StylesOptions, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "default":
		return model.StylesOptionsDefault, nil
	case "only_genres":
		return model.StylesOptionsOnlyGenres, nil
	case "only_styles":
		return model.StylesOptionsOnlyStyles, nil
	case "merge_to_genres":
		return model.StylesOptionsMergeToGenres, nil
	case "merge_to_styles":
		return model.StylesOptionsMergeToStyles, nil
	case "styles_to_genre":
		return model.StylesOptionsStylesToGenre, nil
	case "genres_to_style":
		return model.StylesOptionsGenresToStyle, nil
	case "custom_tag":
		return model.StylesOptionsCustomTag, nil
	default:
		return model.StylesOptionsDefault, fmt.Errorf("%w: got %q", ErrInvalidStylesOptions, raw)
	}
}

func parseFieldFlags(raw map[string]bool) (model.FieldFlags, error) {
	var flags model.FieldFlags

	for name, enabled := range raw {
		field, ok := model.FieldByName(name)
		if !ok {
			return flags, fmt.Errorf("%w: %q in fields", ErrUnknownField, name)
		}

		setFieldFlag(&flags, field, enabled)
	}

	return flags, nil
}

func parseOverwriteFields(raw map[string]bool) (map[model.Field]bool, error) {
	out := make(map[model.Field]bool, len(raw))

	for name, enabled := range raw {
		field, ok := model.FieldByName(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q in overwrite.fields", ErrUnknownField, name)
		}

		out[field] = enabled
	}

	return out, nil
}

//nolint:cyclop // straightforward flag dispatch table, the write-side twin of TagEnabled.
func setFieldFlag(flags *model.FieldFlags, field model.Field, enabled bool) {
	switch field {
	case model.FieldTitle:
		flags.Title = enabled
	case model.FieldVersion:
		flags.Version = enabled
	case model.FieldArtist:
		flags.Artist = enabled
	case model.FieldAlbumArtist:
		flags.AlbumArtist = enabled
	case model.FieldAlbum:
		flags.Album = enabled
	case model.FieldKey:
		flags.Key = enabled
	case model.FieldBPM:
		flags.BPM = enabled
	case model.FieldLabel:
		flags.Label = enabled
	case model.FieldGenre:
		flags.Genre = enabled
	case model.FieldStyle:
		flags.Style = enabled
	case model.FieldCatalogNumber:
		flags.CatalogNumber = enabled
	case model.FieldTrackNumber:
		flags.TrackNumber = enabled
	case model.FieldTrackTotal:
		flags.TrackTotal = enabled
	case model.FieldDiscNumber:
		flags.DiscNumber = enabled
	case model.FieldDuration:
		flags.Duration = enabled
	case model.FieldRemixer:
		flags.Remixer = enabled
	case model.FieldISRC:
		flags.ISRC = enabled
	case model.FieldMood:
		// Mood rides on OtherTags; it has no dedicated enable flag.
	case model.FieldReleaseDate:
		flags.ReleaseDate = enabled
	case model.FieldPublishDate:
		flags.PublishDate = enabled
	case model.FieldURL:
		flags.URL = enabled
	case model.FieldAlbumArt:
		flags.AlbumArt = enabled
	case model.FieldLyrics:
		flags.Lyrics = enabled
	case model.FieldExplicit:
		flags.Explicit = enabled
	case model.FieldOtherTags:
		flags.OtherTags = enabled
	case model.FieldMetaTags:
		flags.MetaTags = enabled
	case model.FieldTrackID:
		flags.TrackID = enabled
	case model.FieldReleaseID:
		flags.ReleaseID = enabled
	}
}

func parseAudioFeatures(file *featuresFile) features.Config {
	config := features.Config{
		Dimensions: make(map[features.Dimension]features.DimensionConfig, len(file.Dimensions)),
		MainFrame:  model.FrameName{ID3: "", Vorbis: "", MP4: ""},
		Market:     file.Market,
	}

	if file.MainFrame != nil {
		config.MainFrame = file.MainFrame.toModel()
	}

	for name, dimension := range file.Dimensions {
		entry := features.DimensionConfig{
			Enabled:  dimension.Enabled,
			Frame:    model.FrameName{ID3: "", Vorbis: "", MP4: ""},
			Classify: nil,
		}

		if dimension.Frame != nil {
			entry.Frame = dimension.Frame.toModel()
		}

		if dimension.Classify {
			entry.Classify = &features.Range{
				Min:    dimension.Min,
				Max:    dimension.Max,
				Under:  dimension.Under,
				Middle: dimension.Middle,
				Over:   dimension.Over,
			}
		}

		config.Dimensions[features.Dimension(name)] = entry
	}

	return config
}

// SaveConfig writes updated authentication material back into the
// configuration file while preserving its original key order and
// formatting, so cached OAuth tokens survive restarts without rewriting
// the operator's file layout.
func SaveConfig(configFilename string, auth map[string]model.AuthMaterial) error {
	if configFilename == "" {
		configFilename = DefaultConfigFilename
	}

	originalContent, err := os.ReadFile(configFilename) //nolint:gosec // config path is operator-supplied.
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var node yaml.Node
	if err = yaml.Unmarshal(originalContent, &node); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	updateAuthInNode(&node, auth)

	newContent, err := yaml.Marshal(&node)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err = os.WriteFile(configFilename, newContent, constants.DefaultFilePermissions); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// updateAuthInNode rewrites auth.<platform>.token values in the YAML node
// tree, preserving every other node untouched.
func updateAuthInNode(node *yaml.Node, auth map[string]model.AuthMaterial) {
	if len(node.Content) == 0 || node.Content[0].Kind != yaml.MappingNode {
		return
	}

	root := node.Content[0]

	authNode := mappingValue(root, "auth")
	if authNode == nil || authNode.Kind != yaml.MappingNode {
		return
	}

	for platformID, material := range auth {
		platformNode := mappingValue(authNode, platformID)
		if platformNode == nil || platformNode.Kind != yaml.MappingNode {
			continue
		}

		if tokenNode := mappingValue(platformNode, "token"); tokenNode != nil {
			tokenNode.Value = material.Token

			if tokenNode.Style == 0 {
				tokenNode.Style = yaml.DoubleQuotedStyle
			}
		}
	}
}

// mappingValue finds the value node for key in a YAML mapping (stored as
// alternating key/value nodes).
func mappingValue(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}

	return nil
}

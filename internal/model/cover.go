package model

// CoverType is the semantic role of an embedded image, shared across
// ID3/Vorbis/FLAC; MP4 has no native type discriminator.
type CoverType uint8

// The cover kinds modeled, declared in the fixed order MP4's positional
// encoding relies on.
const (
	CoverTypeFront CoverType = iota
	CoverTypeBack
	CoverTypeOther
	CoverTypeArtist
	CoverTypeIcon
	CoverTypeOtherIcon
	CoverTypeLeaflet
	CoverTypeMedia
	CoverTypeLeadArtist
	CoverTypeConductor
	CoverTypeBand
	CoverTypeComposer
	CoverTypeLyricist
	CoverTypeRecordingLocation
	CoverTypeDuringRecording
	CoverTypeDuringPerformance
	CoverTypeScreenCapture
	CoverTypeBrightColoredFish
	CoverTypeIllustration
	CoverTypeBandLogo
	CoverTypePublisherLogo
	CoverTypeUndefined
)

// CoverTypes returns the fixed ordering used to project MP4's
// type-less artwork list onto the semantic CoverType enumeration: index
// == position in this slice == position in the MP4 atom's artwork list.
func CoverTypes() []CoverType {
	return []CoverType{
		CoverTypeFront, CoverTypeBack, CoverTypeOther, CoverTypeArtist,
		CoverTypeIcon, CoverTypeOtherIcon, CoverTypeLeaflet, CoverTypeMedia, CoverTypeLeadArtist,
		CoverTypeConductor, CoverTypeBand, CoverTypeComposer, CoverTypeLyricist,
		CoverTypeRecordingLocation, CoverTypeDuringRecording, CoverTypeDuringPerformance,
		CoverTypeScreenCapture, CoverTypeBrightColoredFish, CoverTypeIllustration, CoverTypeBandLogo,
		CoverTypePublisherLogo, CoverTypeUndefined,
	}
}

// Cover is an embedded artwork image.
type Cover struct {
	Kind        CoverType
	MIME        string
	Description string
	Data        []byte
}

// MaxFLACCoverSize is the FLAC metadata block size limit a cover payload
// must stay under. The odd literal (16_000_000, not 2^24) is carried
// verbatim from the system this was ported from.
const MaxFLACCoverSize = 16_000_000

package downloader

import (
	"fmt"
	"slices"
	"strings"
)

// Codec is the audio encoding family of a variant
type Codec int

const (
	CodecUnknown Codec = iota
	CodecAAC
	CodecVorbis
	CodecMP3
)

// String returns the string representation of the codec
func (c Codec) String() string {
	switch c {
	case CodecAAC:
		return "AAC"
	case CodecVorbis:
		return "VORBIS"
	case CodecMP3:
		return "MP3"
	default:
		return "UNKNOWN"
	}
}

// Extension returns the file extension written for the codec, including the dot
func (c Codec) Extension() string {
	switch c {
	case CodecAAC:
		return ".aac"
	case CodecVorbis:
		return ".ogg"
	case CodecMP3:
		return ".mp3"
	default:
		return ""
	}
}

// QualityTier ranks variants from Normal to VeryHigh
type QualityTier int

const (
	TierNormal QualityTier = iota
	TierHigh
	TierVeryHigh
)

// String returns the string representation of the tier
func (t QualityTier) String() string {
	switch t {
	case TierNormal:
		return "NORMAL"
	case TierHigh:
		return "HIGH"
	case TierVeryHigh:
		return "VERY_HIGH"
	default:
		return "UNKNOWN"
	}
}

// QualityVariant is one encoded rendition of a track
type QualityVariant struct {
	FileID string      `json:"file_id"`
	Format string      `json:"format"`
	Codec  Codec       `json:"codec"`
	Tier   QualityTier `json:"tier"`
}

// Known reports whether the variant's format was recognized
func (v QualityVariant) Known() bool {
	return v.Codec != CodecUnknown
}

type formatInfo struct {
	codec Codec
	tier  QualityTier
}

var knownFormats = map[string]formatInfo{
	"OGG_VORBIS_96":  {CodecVorbis, TierNormal},
	"OGG_VORBIS_160": {CodecVorbis, TierHigh},
	"OGG_VORBIS_320": {CodecVorbis, TierVeryHigh},
	"MP3_96":         {CodecMP3, TierNormal},
	"MP3_160":        {CodecMP3, TierHigh},
	"MP3_160_ENC":    {CodecMP3, TierHigh},
	"MP3_256":        {CodecMP3, TierVeryHigh},
	"MP3_320":        {CodecMP3, TierVeryHigh},
	"AAC_24_NORM":    {CodecAAC, TierNormal},
	"AAC_24":         {CodecAAC, TierHigh},
	"AAC_48":         {CodecAAC, TierVeryHigh},
}

// NewQualityVariant classifies a catalog file by its format name.
// Unrecognized formats yield a variant with CodecUnknown.
func NewQualityVariant(fileID, format string) QualityVariant {
	v := QualityVariant{FileID: fileID, Format: format}
	if info, ok := knownFormats[strings.ToUpper(format)]; ok {
		v.Codec = info.codec
		v.Tier = info.tier
	}
	return v
}

// QualityPreference selects the highest or lowest tier
type QualityPreference int

const (
	PreferBest QualityPreference = iota
	PreferWorst
)

// String returns the CLI spelling of the preference
func (p QualityPreference) String() string {
	if p == PreferWorst {
		return "WORST"
	}
	return "BEST"
}

// ParseQualityPreference accepts BEST or WORST
func ParseQualityPreference(s string) (QualityPreference, error) {
	switch strings.ToUpper(s) {
	case "BEST":
		return PreferBest, nil
	case "WORST":
		return PreferWorst, nil
	default:
		return PreferBest, fmt.Errorf("invalid quality %q. Valid values are: BEST, WORST", s)
	}
}

// QualitySelector implements VariantSelector for a fixed preference
type QualitySelector struct {
	Preference QualityPreference
}

// NewQualitySelector creates a selector for preference
func NewQualitySelector(preference QualityPreference) *QualitySelector {
	return &QualitySelector{Preference: preference}
}

// Select drops unrecognized variants, stable-sorts the rest by tier and returns
// the last element for PreferBest or the first for PreferWorst.
func (s *QualitySelector) Select(variants []QualityVariant) (QualityVariant, error) {
	usable := make([]QualityVariant, 0, len(variants))
	for _, v := range variants {
		if v.Known() {
			usable = append(usable, v)
		}
	}
	if len(usable) == 0 {
		return QualityVariant{}, NewDownloadError(ErrorNoUsableVariant, "no variant with a recognized format").
			WithContext("variants", len(variants))
	}

	slices.SortStableFunc(usable, func(a, b QualityVariant) int {
		return int(a.Tier) - int(b.Tier)
	})

	if s.Preference == PreferWorst {
		return usable[0], nil
	}
	return usable[len(usable)-1], nil
}

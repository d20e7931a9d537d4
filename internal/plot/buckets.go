// Package plot builds and renders the box versus dome scatter figure.
package plot

import "math"

// GainBucket groups gains for marker selection.
type GainBucket int

const (
	GainZero GainBucket = iota + 1
	GainLow
	GainMid
	GainHigh
)

// GainBucketFor maps a gain to its bucket: 0, up to 50, up to 200, above 200.
func GainBucketFor(gain float64) GainBucket {
	switch {
	case gain == 0:
		return GainZero
	case gain <= 50:
		return GainLow
	case gain <= 200:
		return GainMid
	default:
		return GainHigh
	}
}

// Marker returns the glyph drawn for the bucket.
func (b GainBucket) Marker() rune {
	switch b {
	case GainZero:
		return '*'
	case GainLow:
		return 'o'
	case GainMid:
		return '^'
	default:
		return 'x'
	}
}

// Label describes the bucket range.
func (b GainBucket) Label() string {
	switch b {
	case GainZero:
		return "gain 0"
	case GainLow:
		return "gain <=50"
	case GainMid:
		return "gain <=200"
	default:
		return "gain >200"
	}
}

// dotWidth is the PNG dot radius; go-chart draws circles only.
func (b GainBucket) dotWidth() float64 {
	return 2 + float64(b)*1.5
}

// ExposureBucket groups exposure times for color selection.
type ExposureBucket int

const (
	ExposureOther ExposureBucket = iota
	ExposureShort
	ExposureMedium
	ExposureLong
	ExposureVeryLong
)

// ExposureBucketFor maps an exposure in seconds to its bucket. Values that
// fit no range (NaN) fall into ExposureOther.
func ExposureBucketFor(exposure float64) ExposureBucket {
	switch {
	case math.IsNaN(exposure):
		return ExposureOther
	case exposure <= 1:
		return ExposureShort
	case exposure <= 5:
		return ExposureMedium
	case exposure <= 15:
		return ExposureLong
	case exposure > 15:
		return ExposureVeryLong
	default:
		return ExposureOther
	}
}

// Color describes one exposure color for the text and PNG renderers.
type Color struct {
	Name string
	Hex  string
	ANSI string
}

var exposureColors = map[ExposureBucket]Color{
	ExposureShort:    {Name: "blue", Hex: "0000FF", ANSI: "\x1b[34m"},
	ExposureMedium:   {Name: "teal", Hex: "008080", ANSI: "\x1b[36m"},
	ExposureLong:     {Name: "orange", Hex: "FFA500", ANSI: "\x1b[38;5;208m"},
	ExposureVeryLong: {Name: "red", Hex: "FF0000", ANSI: "\x1b[31m"},
	ExposureOther:    {Name: "black", Hex: "000000", ANSI: ""},
}

// Color returns the bucket color.
func (b ExposureBucket) Color() Color {
	if c, ok := exposureColors[b]; ok {
		return c
	}
	return exposureColors[ExposureOther]
}

// Label describes the bucket range.
func (b ExposureBucket) Label() string {
	switch b {
	case ExposureShort:
		return "exp <=1s"
	case ExposureMedium:
		return "exp <=5s"
	case ExposureLong:
		return "exp <=15s"
	case ExposureVeryLong:
		return "exp >15s"
	default:
		return "exp ?"
	}
}

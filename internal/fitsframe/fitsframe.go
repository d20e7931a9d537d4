// Package fitsframe reads dark frames stored in FITS containers.
package fitsframe

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/astrogo/fitsio"
)

// Header keywords read from the primary HDU.
const (
	KeyWidth      = "NAXIS1"
	KeyHeight     = "NAXIS2"
	KeyObject     = "OBJECT"
	KeyInstrument = "INSTRUME"
	KeyGain       = "GAIN"
	KeyExposure   = "EXPTIME"
	KeyBZero      = "BZERO"
	KeyBScale     = "BSCALE"
)

var (
	// ErrMissingKeyword is returned when a required header card is absent.
	ErrMissingKeyword = errors.New("missing header keyword")
	// ErrUnsupportedBitpix is returned for BITPIX values outside the FITS standard.
	ErrUnsupportedBitpix = errors.New("unsupported BITPIX")
	// ErrNotImage is returned when the primary HDU carries no image.
	ErrNotImage = errors.New("primary HDU is not an image")
)

// Header holds the metadata needed to classify and reduce a frame.
type Header struct {
	Width      int
	Height     int
	HasObject  bool
	Object     string
	Instrument string
	Gain       float64
	Exposure   float64
	Bitpix     int
	BZero      float64
	BScale     float64
}

// Frame is a decoded primary image. Pixels are row-major, Width values per row.
type Frame struct {
	Header
	Pixels []float64
}

// Open reads the FITS file at path.
func Open(path string) (Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return Frame{}, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only frame.
			_ = cerr
		}
	}()
	frame, err := Decode(file)
	if err != nil {
		return Frame{}, fmt.Errorf("%s: %w", path, err)
	}
	return frame, nil
}

// Decode reads the primary HDU header and pixel payload from r.
func Decode(r io.Reader) (Frame, error) {
	fit, err := fitsio.Open(r)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to open FITS: %w", err)
	}
	defer func() {
		if cerr := fit.Close(); cerr != nil {
			_ = cerr
		}
	}()

	hdu := fit.HDU(0)
	hdr, err := ParseHeader(hdu.Header())
	if err != nil {
		return Frame{}, err
	}
	img, ok := hdu.(fitsio.Image)
	if !ok {
		return Frame{}, ErrNotImage
	}
	pixels, err := DecodePixels(img.Raw(), hdr)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Header: hdr, Pixels: pixels}, nil
}

// ParseHeader extracts the required and optional keywords from hdr.
func ParseHeader(hdr *fitsio.Header) (Header, error) {
	var out Header
	var err error
	if out.Width, err = axisLength(hdr, KeyWidth, 0); err != nil {
		return Header{}, err
	}
	if out.Height, err = axisLength(hdr, KeyHeight, 1); err != nil {
		return Header{}, err
	}
	if out.Instrument, err = stringCard(hdr, KeyInstrument); err != nil {
		return Header{}, err
	}
	if out.Gain, err = floatCard(hdr, KeyGain); err != nil {
		return Header{}, err
	}
	if out.Exposure, err = floatCard(hdr, KeyExposure); err != nil {
		return Header{}, err
	}
	if card := hdr.Get(KeyObject); card != nil {
		out.HasObject = true
		out.Object = strings.TrimSpace(fmt.Sprint(card.Value))
	}
	out.Bitpix = hdr.Bitpix()
	out.BZero = optionalFloat(hdr, KeyBZero, 0)
	out.BScale = optionalFloat(hdr, KeyBScale, 1)
	return out, nil
}

// DecodePixels converts a big-endian FITS payload to physical values
// (raw*BSCALE + BZERO).
func DecodePixels(raw []byte, hdr Header) ([]float64, error) {
	if hdr.Width <= 0 || hdr.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", hdr.Width, hdr.Height)
	}
	size, err := bytesPerPixel(hdr.Bitpix)
	if err != nil {
		return nil, err
	}
	n := hdr.Width * hdr.Height
	if len(raw) < n*size {
		return nil, fmt.Errorf("pixel payload truncated: have %d bytes, want %d", len(raw), n*size)
	}
	scale := hdr.BScale
	if scale == 0 {
		scale = 1
	}
	out := make([]float64, n)
	be := binary.BigEndian
	for i := 0; i < n; i++ {
		b := raw[i*size : (i+1)*size]
		var v float64
		switch hdr.Bitpix {
		case 8:
			v = float64(b[0])
		case 16:
			v = float64(int16(be.Uint16(b)))
		case 32:
			v = float64(int32(be.Uint32(b)))
		case 64:
			v = float64(int64(be.Uint64(b)))
		case -32:
			v = float64(math.Float32frombits(be.Uint32(b)))
		case -64:
			v = math.Float64frombits(be.Uint64(b))
		}
		out[i] = v*scale + hdr.BZero
	}
	return out, nil
}

func bytesPerPixel(bitpix int) (int, error) {
	switch bitpix {
	case 8, 16, 32, 64, -32, -64:
		if bitpix < 0 {
			return -bitpix / 8, nil
		}
		return bitpix / 8, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedBitpix, bitpix)
	}
}

func requireCard(hdr *fitsio.Header, key string) (*fitsio.Card, error) {
	card := hdr.Get(key)
	if card == nil {
		return nil, fmt.Errorf("%w %s", ErrMissingKeyword, key)
	}
	return card, nil
}

// axisLength reads NAXISn, falling back to the axes the decoder parsed
// when the mandatory card was consumed instead of kept.
func axisLength(hdr *fitsio.Header, key string, axis int) (int, error) {
	if hdr.Get(key) == nil {
		if axes := hdr.Axes(); len(axes) > axis {
			return axes[axis], nil
		}
	}
	return intCard(hdr, key)
}

func intCard(hdr *fitsio.Header, key string) (int, error) {
	v, err := floatCard(hdr, key)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("header keyword %s: %v is not an integer", key, v)
	}
	return int(v), nil
}

func stringCard(hdr *fitsio.Header, key string) (string, error) {
	card, err := requireCard(hdr, key)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(fmt.Sprint(card.Value)), nil
}

func floatCard(hdr *fitsio.Header, key string) (float64, error) {
	card, err := requireCard(hdr, key)
	if err != nil {
		return 0, err
	}
	v, ok := toFloat(card.Value)
	if !ok {
		return 0, fmt.Errorf("header keyword %s: %v is not numeric", key, card.Value)
	}
	return v, nil
}

func optionalFloat(hdr *fitsio.Header, key string, fallback float64) float64 {
	card := hdr.Get(key)
	if card == nil {
		return fallback
	}
	if v, ok := toFloat(card.Value); ok {
		return v
	}
	return fallback
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case *big.Int:
		f, _ := new(big.Float).SetInt(x).Float64()
		return f, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

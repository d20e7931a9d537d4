// Package fitstest writes small FITS fixtures for tests.
package fitstest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	blockSize = 2880
	cardSize  = 80
)

// Card is one header keyword. Value must be a string, bool, int, or float64.
type Card struct {
	Key   string
	Value interface{}
}

// Frame describes an image fixture. Float32, when set, replaces Pixels and
// the frame is written with BITPIX -32.
type Frame struct {
	Width   int
	Height  int
	Pixels  []int16
	Float32 []float32
	Cards   []Card
}

// DarkFrame returns a width x height fixture filled by fill(x, y) with the
// usual dark-frame keywords. object is written only when non-empty.
func DarkFrame(width, height int, camera string, gain, exposure float64, object string, fill func(x, y int) int16) Frame {
	pixels := make([]int16, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			pixels[y*width+x] = fill(x, y)
		}
	}
	cards := []Card{}
	if object != "" {
		cards = append(cards, Card{Key: "OBJECT", Value: object})
	}
	cards = append(cards,
		Card{Key: "INSTRUME", Value: camera},
		Card{Key: "GAIN", Value: gain},
		Card{Key: "EXPTIME", Value: exposure},
	)
	return Frame{Width: width, Height: height, Pixels: pixels, Cards: cards}
}

// FloatDarkFrame is DarkFrame for a 32-bit float image.
func FloatDarkFrame(width, height int, camera string, gain, exposure float64, object string, fill func(x, y int) float32) Frame {
	f := DarkFrame(width, height, camera, gain, exposure, object, func(int, int) int16 { return 0 })
	f.Pixels = nil
	f.Float32 = make([]float32, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			f.Float32[y*width+x] = fill(x, y)
		}
	}
	return f
}

// Encode renders the frame as a single-HDU FITS file.
func Encode(f Frame) []byte {
	var hdr strings.Builder
	hdr.WriteString(card("SIMPLE", true))
	bitpix := 16
	if f.Float32 != nil {
		bitpix = -32
	}
	hdr.WriteString(card("BITPIX", bitpix))
	hdr.WriteString(card("NAXIS", 2))
	hdr.WriteString(card("NAXIS1", f.Width))
	hdr.WriteString(card("NAXIS2", f.Height))
	for _, c := range f.Cards {
		hdr.WriteString(card(c.Key, c.Value))
	}
	hdr.WriteString(fmt.Sprintf("%-80s", "END"))

	var buf bytes.Buffer
	buf.WriteString(pad(hdr.String(), ' '))
	var data bytes.Buffer
	if f.Float32 != nil {
		for _, v := range f.Float32 {
			_ = binary.Write(&data, binary.BigEndian, math.Float32bits(v))
		}
	} else {
		for _, v := range f.Pixels {
			_ = binary.Write(&data, binary.BigEndian, v)
		}
	}
	buf.WriteString(pad(data.String(), 0))
	return buf.Bytes()
}

// Write stores the frame under dir/name, creating parent directories.
func Write(t testing.TB, dir, name string, f Frame) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, Encode(f), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func card(key string, value interface{}) string {
	var v string
	switch x := value.(type) {
	case bool:
		s := "F"
		if x {
			s = "T"
		}
		v = fmt.Sprintf("%20s", s)
	case int:
		v = fmt.Sprintf("%20d", x)
	case float64:
		v = fmt.Sprintf("%20s", formatFloat(x))
	case string:
		v = fmt.Sprintf("'%-8s'", strings.ReplaceAll(x, "'", "''"))
	default:
		panic(fmt.Sprintf("fitstest: unsupported card value %T", value))
	}
	return fmt.Sprintf("%-80s", fmt.Sprintf("%-8s= %s", key, v))[:cardSize]
}

func formatFloat(v float64) string {
	s := fmt.Sprintf("%g", v)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func pad(s string, fill byte) string {
	rem := len(s) % blockSize
	if rem == 0 {
		return s
	}
	return s + strings.Repeat(string([]byte{fill}), blockSize-rem)
}

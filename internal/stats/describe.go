// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"math"
	"sort"
)

// DefaultCropFraction is the border trimmed from each edge before reducing a frame.
const DefaultCropFraction = 0.1

// Summary holds the reduced statistics of a pixel region.
type Summary struct {
	Mean   float64
	Median float64
	StdDev float64
}

// CropMargins returns the number of columns and rows removed from each side.
func CropMargins(width, height int, fraction float64) (marginX, marginY int) {
	return int(float64(width) * fraction), int(float64(height) * fraction)
}

// Crop returns the central region of a row-major frame after trimming
// floor(width*fraction) columns and floor(height*fraction) rows from each side.
func Crop(pixels []float64, width, height int, fraction float64) ([]float64, int, int, error) {
	if width <= 0 || height <= 0 {
		return nil, 0, 0, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	if len(pixels) != width*height {
		return nil, 0, 0, fmt.Errorf("pixel count %d does not match %dx%d", len(pixels), width, height)
	}
	if fraction < 0 || fraction >= 0.5 {
		return nil, 0, 0, fmt.Errorf("crop fraction %v outside [0, 0.5)", fraction)
	}
	mx, my := CropMargins(width, height, fraction)
	cw := width - 2*mx
	ch := height - 2*my
	out := make([]float64, 0, cw*ch)
	for y := my; y < height-my; y++ {
		row := pixels[y*width : (y+1)*width]
		out = append(out, row[mx:width-mx]...)
	}
	return out, cw, ch, nil
}

// Describe computes mean, median, and population standard deviation.
// An empty input yields NaN for every field.
func Describe(values []float64) Summary {
	return Summary{
		Mean:   Mean(values),
		Median: Median(values),
		StdDev: StdDev(values),
	}
}

// Mean returns the arithmetic mean.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Median returns the middle value, averaging the two middle values for even
// counts. Any NaN input yields NaN.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if math.IsNaN(sorted[0]) {
		return math.NaN()
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// StdDev returns the population standard deviation (divisor n).
func StdDev(values []float64) float64 {
	return stdDev(values, 0)
}

// SampleStdDev returns the sample standard deviation (divisor n-1).
// Fewer than two values yield 0.
func SampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stdDev(values, 1)
}

func stdDev(values []float64, ddof int) float64 {
	n := len(values)
	if n == 0 || n-ddof <= 0 {
		return math.NaN()
	}
	mean := Mean(values)
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-ddof))
}

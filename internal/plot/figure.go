package plot

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/verte-zerg/darkcmp/internal/model"
)

// Point is one matched (exposure, gain) group placed on the figure.
type Point struct {
	Key      model.GroupKey
	X        float64
	Y        float64
	XErr     float64
	YErr     float64
	Gain     GainBucket
	Exposure ExposureBucket
}

// Figure is a fully described scatter ready for rendering.
type Figure struct {
	Title   string
	XLabel  string
	YLabel  string
	Stat    model.StatType
	Points  []Point
	Skipped int
	RefMin  float64
	RefMax  float64
}

// NewFigure places every joined pair with positive values on the figure.
// Pairs that cannot sit on a log axis are counted in Skipped.
func NewFigure(cmp model.Comparison, cameras []string) Figure {
	label := cmp.Stat.Label()
	fig := Figure{
		Title:  fmt.Sprintf("Dome vs Box Dark %s Frame Count Comparison", label),
		XLabel: fmt.Sprintf("Box Dark %s Frame count", label),
		YLabel: fmt.Sprintf("Dome Dark %s Frame count", label),
		Stat:   cmp.Stat,
	}
	if len(cameras) > 0 {
		fig.Title += " (" + strings.Join(cameras, ", ") + ")"
	}

	fig.RefMin = math.Inf(1)
	fig.RefMax = math.Inf(-1)
	for _, p := range cmp.Pairs {
		if !(p.Box.Value > 0) || !(p.Dome.Value > 0) || math.IsInf(p.Box.Value, 0) || math.IsInf(p.Dome.Value, 0) {
			fig.Skipped++
			continue
		}
		fig.Points = append(fig.Points, Point{
			Key:      p.Key,
			X:        p.Box.Value,
			Y:        p.Dome.Value,
			XErr:     p.Box.Error,
			YErr:     p.Dome.Error,
			Gain:     GainBucketFor(p.Key.Gain),
			Exposure: ExposureBucketFor(p.Key.Exposure),
		})
		fig.RefMin = math.Min(fig.RefMin, math.Min(p.Box.Value, p.Dome.Value))
		fig.RefMax = math.Max(fig.RefMax, math.Max(p.Box.Value, p.Dome.Value))
	}
	if len(fig.Points) == 0 {
		fig.RefMin, fig.RefMax = 0, 0
	}
	return fig
}

// Empty reports whether nothing can be drawn.
func (f Figure) Empty() bool {
	return len(f.Points) == 0
}

// Decades returns the log10 bounds shared by both axes. The range always
// spans at least one decade.
func (f Figure) Decades() (lo, hi int) {
	if f.Empty() {
		return 0, 1
	}
	lo = int(math.Floor(math.Log10(f.RefMin)))
	hi = int(math.Ceil(math.Log10(f.RefMax)))
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}

// legendEntry is a (gain, exposure) combination present in the figure.
type legendEntry struct {
	Gain     GainBucket
	Exposure ExposureBucket
}

func (f Figure) legendEntries() []legendEntry {
	seen := map[legendEntry]struct{}{}
	var out []legendEntry
	for _, p := range f.Points {
		e := legendEntry{Gain: p.Gain, Exposure: p.Exposure}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Gain != out[j].Gain {
			return out[i].Gain < out[j].Gain
		}
		return out[i].Exposure < out[j].Exposure
	})
	return out
}

func (e legendEntry) label() string {
	return e.Gain.Label() + ", " + e.Exposure.Label()
}

// decadeLabel formats 10^d compactly.
func decadeLabel(d int) string {
	if d >= -2 && d <= 4 {
		return fmt.Sprintf("%g", math.Pow10(d))
	}
	return fmt.Sprintf("1e%d", d)
}

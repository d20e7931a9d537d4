package plot

import (
	"errors"
	"fmt"
	"io"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	DefaultPNGWidth  = 1000
	DefaultPNGHeight = 800
)

// ErrEmptyFigure is returned when a figure has no points to draw.
var ErrEmptyFigure = errors.New("no matched groups to plot")

// RenderPNG draws the figure as a PNG image. Axes are log10 of the values;
// gain bucket is shown by dot size and exposure bucket by color.
func RenderPNG(w io.Writer, fig Figure, width, height int) error {
	if fig.Empty() {
		return ErrEmptyFigure
	}
	if width <= 0 {
		width = DefaultPNGWidth
	}
	if height <= 0 {
		height = DefaultPNGHeight
	}
	lo, hi := fig.Decades()

	series := make([]chart.Series, 0, len(fig.legendEntries())+1)
	for _, e := range fig.legendEntries() {
		var xs, ys []float64
		for _, p := range fig.Points {
			if p.Gain != e.Gain || p.Exposure != e.Exposure {
				continue
			}
			xs = append(xs, math.Log10(p.X))
			ys = append(ys, math.Log10(p.Y))
		}
		series = append(series, chart.ContinuousSeries{
			Name:    e.label(),
			XValues: xs,
			YValues: ys,
			Style:   pointStyle(drawing.ColorFromHex(e.Exposure.Color().Hex), e.Gain.dotWidth()),
		})
	}
	series = append(series, chart.ContinuousSeries{
		Name:    "1:1",
		XValues: []float64{math.Log10(fig.RefMin), math.Log10(fig.RefMax)},
		YValues: []float64{math.Log10(fig.RefMin), math.Log10(fig.RefMax)},
		Style: chart.Style{
			StrokeWidth:     1,
			StrokeColor:     drawing.ColorFromHex("555555"),
			StrokeDashArray: []float64{5, 5},
		},
	})

	ticks, grid := decadeTicks(lo, hi)
	axisRange := &chart.ContinuousRange{Min: float64(lo), Max: float64(hi)}
	gridStyle := chart.Style{StrokeWidth: 1, StrokeColor: drawing.ColorFromHex("DDDDDD")}
	graph := chart.Chart{
		Title:      fig.Title,
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20}},
		XAxis: chart.XAxis{
			Name:           fig.XLabel,
			Range:          axisRange,
			Ticks:          ticks,
			GridLines:      grid,
			GridMajorStyle: gridStyle,
		},
		YAxis: chart.YAxis{
			Name:           fig.YLabel,
			Range:          axisRange,
			Ticks:          ticks,
			GridLines:      grid,
			GridMajorStyle: gridStyle,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

func pointStyle(col drawing.Color, dotWidth float64) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    dotWidth,
		DotColor:    col,
	}
}

func decadeTicks(lo, hi int) ([]chart.Tick, []chart.GridLine) {
	ticks := make([]chart.Tick, 0, hi-lo+1)
	grid := make([]chart.GridLine, 0, hi-lo+1)
	for d := lo; d <= hi; d++ {
		ticks = append(ticks, chart.Tick{Value: float64(d), Label: decadeLabel(d)})
		grid = append(grid, chart.GridLine{Value: float64(d)})
	}
	return ticks, grid
}

package plot

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

const (
	defaultPlotHeight   = 20
	minPlotWidth        = 20
	minPlotHeight       = 6
	axisLabelWidth      = 6
	axisSeparator       = " │"
	colorReset          = "\x1b[0m"
	colorDim            = "\x1b[2m"
	terminalWidthBackup = 80
)

type lineStyle struct {
	period int
	on     int
}

var (
	refStyle  = lineStyle{period: 1, on: 1}
	gridStyle = lineStyle{period: 4, on: 1}
)

// PlotWidthFor computes a plot width that fits within the total available width.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	axisWidth := axisLabelWidth + utf8.RuneCountInString(axisSeparator)
	plotWidth := totalWidth - axisWidth - 1
	if plotWidth < minPlotWidth {
		plotWidth = minPlotWidth
	}
	return plotWidth
}

// RenderText draws the figure as a character scatter. width and height are
// the plot area in cells; zero picks defaults from the terminal.
func RenderText(w io.Writer, fig Figure, width, height int, forceColor bool) error {
	if fig.Title != "" {
		if _, err := fmt.Fprintln(w, fig.Title); err != nil {
			return err
		}
	}
	if fig.Empty() {
		if _, err := fmt.Fprintln(w, "No matched groups to plot."); err != nil {
			return err
		}
		return writeSkipped(w, fig)
	}

	if width <= 0 {
		width = PlotWidthFor(terminalWidth())
	}
	if width < minPlotWidth {
		width = minPlotWidth
	}
	if height <= 0 {
		height = defaultPlotHeight
	}
	if height < minPlotHeight {
		height = minPlotHeight
	}

	c := newCanvas(fig, width, height)
	c.drawGrid()
	c.drawReference(fig.RefMin, fig.RefMax)
	for _, p := range fig.Points {
		c.drawPoint(p)
	}

	useColor := shouldUseColor(w, forceColor)
	if _, err := fmt.Fprintf(w, "%*s %s\n", axisLabelWidth, "", fig.YLabel); err != nil {
		return err
	}
	for _, line := range c.lines(useColor) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "%*s %s\n", axisLabelWidth, "", fig.XLabel); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, renderLegend(fig, useColor)); err != nil {
		return err
	}
	return writeSkipped(w, fig)
}

func writeSkipped(w io.Writer, fig Figure) error {
	if fig.Skipped == 0 {
		return nil
	}
	_, err := fmt.Fprintf(w, "%d group(s) with non-positive values not shown on log axes.\n", fig.Skipped)
	return err
}

type glyph struct {
	r     rune
	color string
}

// canvas holds three layers: decade grid and 1:1 line as braille dots,
// and point markers as whole cells on top.
type canvas struct {
	width   int
	height  int
	lo      int
	hi      int
	grid    [][]uint8
	ref     [][]uint8
	markers [][]glyph
}

func newCanvas(fig Figure, width, height int) *canvas {
	lo, hi := fig.Decades()
	markers := make([][]glyph, height)
	for y := range markers {
		markers[y] = make([]glyph, width)
	}
	return &canvas{
		width:   width,
		height:  height,
		lo:      lo,
		hi:      hi,
		grid:    makeCells(height, width),
		ref:     makeCells(height, width),
		markers: markers,
	}
}

// frac maps a positive value onto [0, 1] along the shared log axis.
func (c *canvas) frac(v float64) float64 {
	return (math.Log10(v) - float64(c.lo)) / float64(c.hi-c.lo)
}

func (c *canvas) dotX(v float64) int {
	return clamp(int(math.Round(c.frac(v)*float64(c.width*2-1))), 0, c.width*2-1)
}

func (c *canvas) dotY(v float64) int {
	return clamp(int(math.Round((1-c.frac(v))*float64(c.height*4-1))), 0, c.height*4-1)
}

func (c *canvas) drawGrid() {
	for d := c.lo; d <= c.hi; d++ {
		v := math.Pow10(d)
		x, y := c.dotX(v), c.dotY(v)
		for py := 0; py < c.height*4; py++ {
			if gridStyle.shouldPlot(py) {
				setBrailleDot(c.grid, x, py)
			}
		}
		for px := 0; px < c.width*2; px++ {
			if gridStyle.shouldPlot(px) {
				setBrailleDot(c.grid, px, y)
			}
		}
	}
}

func (c *canvas) drawReference(minVal, maxVal float64) {
	drawLine(c.dotX(minVal), c.dotY(minVal), c.dotX(maxVal), c.dotY(maxVal), func(x, y int) {
		if refStyle.shouldPlot(x) {
			setBrailleDot(c.ref, x, y)
		}
	})
}

func (c *canvas) drawPoint(p Point) {
	col := c.dotX(p.X) / 2
	row := c.dotY(p.Y) / 4
	c.markers[row][col] = glyph{r: p.Gain.Marker(), color: p.Exposure.Color().ANSI}
}

func (c *canvas) rowLabels() []string {
	labels := make([]string, c.height)
	for d := c.lo; d <= c.hi; d++ {
		labels[c.dotY(math.Pow10(d))/4] = decadeLabel(d)
	}
	return labels
}

func (c *canvas) lines(useColor bool) []string {
	labels := c.rowLabels()
	out := make([]string, 0, c.height+2)
	for y := 0; y < c.height; y++ {
		var row strings.Builder
		fmt.Fprintf(&row, "%*s%s", axisLabelWidth, labels[y], axisSeparator)
		for x := 0; x < c.width; x++ {
			g := c.markers[y][x]
			switch {
			case g.r != 0:
				if useColor && g.color != "" {
					row.WriteString(g.color)
					row.WriteRune(g.r)
					row.WriteString(colorReset)
				} else {
					row.WriteRune(g.r)
				}
			case c.ref[y][x] != 0:
				row.WriteRune(brailleFromMask(c.ref[y][x] | c.grid[y][x]))
			case c.grid[y][x] != 0:
				if useColor {
					row.WriteString(colorDim)
					row.WriteRune(brailleFromMask(c.grid[y][x]))
					row.WriteString(colorReset)
				} else {
					row.WriteRune(brailleFromMask(c.grid[y][x]))
				}
			default:
				row.WriteByte(' ')
			}
		}
		out = append(out, strings.TrimRight(row.String(), " "))
	}
	out = append(out, strings.Repeat(" ", axisLabelWidth)+" └"+strings.Repeat("─", c.width))
	out = append(out, c.tickLine())
	return out
}

// tickLine places decade labels under their grid columns, dropping any
// label that would overlap its left neighbour.
func (c *canvas) tickLine() string {
	offset := axisLabelWidth + utf8.RuneCountInString(axisSeparator)
	buf := []rune(strings.Repeat(" ", offset+c.width+axisLabelWidth))
	nextFree := 0
	for d := c.lo; d <= c.hi; d++ {
		label := decadeLabel(d)
		n := utf8.RuneCountInString(label)
		start := offset + c.dotX(math.Pow10(d))/2 - n/2
		if start < nextFree {
			continue
		}
		copy(buf[start:], []rune(label))
		nextFree = start + n + 1
	}
	return strings.TrimRight(string(buf), " ")
}

func renderLegend(fig Figure, useColor bool) string {
	entries := fig.legendEntries()
	parts := make([]string, 0, len(entries)+1)
	for _, e := range entries {
		label := fmt.Sprintf("%c %s", e.Gain.Marker(), e.label())
		if color := e.Exposure.Color(); useColor && color.ANSI != "" {
			label = color.ANSI + label + colorReset
		}
		parts = append(parts, label)
	}
	parts = append(parts, fmt.Sprintf("%c 1:1", brailleFromMask(0x09)))
	return "Legend: " + strings.Join(parts, "  ")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

func makeCells(height, width int) [][]uint8 {
	cells := make([][]uint8, height)
	for y := 0; y < height; y++ {
		cells[y] = make([]uint8, width)
	}
	return cells
}

func (ls lineStyle) shouldPlot(x int) bool {
	if ls.period <= 1 {
		return true
	}
	if x < 0 {
		x = -x
	}
	return x%ls.period < ls.on
}

func drawLine(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := int(math.Abs(float64(x1 - x0)))
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -int(math.Abs(float64(y1 - y0)))
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			if x0 == x1 {
				break
			}
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			if y0 == y1 {
				break
			}
			err += dx
			y0 += sy
		}
	}
}

func setBrailleDot(cells [][]uint8, x, y int) {
	if y < 0 || x < 0 {
		return
	}
	cellY := y / 4
	cellX := x / 2
	if cellY >= len(cells) || cellX >= len(cells[cellY]) {
		return
	}
	cells[cellY][cellX] |= brailleDotMask(x%2, y%4)
}

func brailleDotMask(x, y int) uint8 {
	switch {
	case x == 0 && y == 0:
		return 0x01
	case x == 0 && y == 1:
		return 0x02
	case x == 0 && y == 2:
		return 0x04
	case x == 0 && y == 3:
		return 0x40
	case x == 1 && y == 0:
		return 0x08
	case x == 1 && y == 1:
		return 0x10
	case x == 1 && y == 2:
		return 0x20
	case x == 1 && y == 3:
		return 0x80
	default:
		return 0
	}
}

func brailleFromMask(mask uint8) rune {
	return rune(0x2800 + int(mask))
}

package stats

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// textTable lays out aligned plain-text columns.
type textTable struct {
	headers    []string
	rows       [][]string
	rightAlign map[int]bool
	// maxCell truncates wider cells with an ellipsis; zero disables truncation.
	maxCell int
	rule    bool
}

func (t textTable) lines() []string {
	colCount := len(t.headers)
	for _, row := range t.rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}
	if colCount == 0 {
		return nil
	}

	widths := make([]int, colCount)
	for i, header := range t.headers {
		widths[i] = displayWidth(t.fit(header))
	}
	for _, row := range t.rows {
		for i := 0; i < colCount; i++ {
			if w := displayWidth(t.fit(cellAt(row, i))); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, 0, len(t.rows)+2)
	if len(t.headers) > 0 {
		lines = append(lines, t.formatRow(t.headers, widths))
		if t.rule {
			total := 0
			for _, w := range widths {
				total += w
			}
			lines = append(lines, strings.Repeat("-", total+len(widths)-1))
		}
	}
	for _, row := range t.rows {
		lines = append(lines, t.formatRow(row, widths))
	}
	return lines
}

func (t textTable) fit(cell string) string {
	if t.maxCell <= 0 || displayWidth(cell) <= t.maxCell {
		return cell
	}
	return runewidth.Truncate(cell, t.maxCell, "…")
}

func (t textTable) formatRow(row []string, widths []int) string {
	var b strings.Builder
	for i := 0; i < len(widths); i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(padCell(t.fit(cellAt(row, i)), widths[i], t.rightAlign[i]))
	}
	return strings.TrimRight(b.String(), " ")
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func padCell(value string, width int, rightAlign bool) string {
	valueWidth := displayWidth(value)
	if valueWidth >= width {
		return value
	}
	padding := width - valueWidth
	if rightAlign {
		return strings.Repeat(" ", padding) + value
	}
	return value + strings.Repeat(" ", padding)
}

func displayWidth(value string) int {
	return runewidth.StringWidth(value)
}

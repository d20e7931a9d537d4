package stats

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/verte-zerg/darkcmp/internal/model"
)

// GroupTableRows formats the joined pairs followed by unmatched groups.
func GroupTableRows(cmp model.Comparison) (headers []string, rows [][]string) {
	headers = []string{"Exposure (s)", "Gain", "Box " + cmp.Stat.Label(), "Box ±", "N", "Dome " + cmp.Stat.Label(), "Dome ±", "N"}
	for _, p := range cmp.Pairs {
		rows = append(rows, []string{
			FormatNumber(p.Key.Exposure),
			FormatNumber(p.Key.Gain),
			fmt.Sprintf("%.2f", p.Box.Value),
			fmt.Sprintf("%.2f", p.Box.Error),
			strconv.Itoa(p.Box.Count),
			fmt.Sprintf("%.2f", p.Dome.Value),
			fmt.Sprintf("%.2f", p.Dome.Error),
			strconv.Itoa(p.Dome.Count),
		})
	}
	for _, b := range cmp.UnmatchedBox {
		rows = append(rows, []string{
			FormatNumber(b.Key.Exposure), FormatNumber(b.Key.Gain),
			fmt.Sprintf("%.2f", b.Value), fmt.Sprintf("%.2f", b.Error), strconv.Itoa(b.Count),
			"-", "-", "0",
		})
	}
	for _, d := range cmp.UnmatchedDome {
		rows = append(rows, []string{
			FormatNumber(d.Key.Exposure), FormatNumber(d.Key.Gain),
			"-", "-", "0",
			fmt.Sprintf("%.2f", d.Value), fmt.Sprintf("%.2f", d.Error), strconv.Itoa(d.Count),
		})
	}
	return headers, rows
}

// FrameTableRows formats one row per image record.
func FrameTableRows(table *model.StatsTable) (headers []string, rows [][]string) {
	headers = []string{"File", "Type", "Camera", "Gain", "Exposure (s)", "Mean", "Median", "Std Dev", "Size"}
	for i := 0; i < table.Len(); i++ {
		r := table.At(i)
		rows = append(rows, []string{
			filepath.Base(r.Path),
			string(r.Category),
			r.Camera,
			FormatNumber(r.Gain),
			FormatNumber(r.Exposure),
			fmt.Sprintf("%.2f", r.Mean),
			fmt.Sprintf("%.2f", r.Median),
			fmt.Sprintf("%.2f", r.StdDev),
			humanize.Bytes(uint64(r.Size)),
		})
	}
	return headers, rows
}

// RenderGroupTable prints the per-group aggregates for both categories.
func RenderGroupTable(w io.Writer, cmp model.Comparison) error {
	if len(cmp.Pairs) == 0 && len(cmp.UnmatchedBox) == 0 && len(cmp.UnmatchedDome) == 0 {
		_, err := fmt.Fprintln(w, "No groups found.")
		return err
	}
	if _, err := fmt.Fprintf(w, "Groups (%s, error = std/scale)\n", cmp.Stat.Label()); err != nil {
		return err
	}
	headers, rows := GroupTableRows(cmp)
	tbl := textTable{
		headers:    headers,
		rows:       rows,
		rightAlign: map[int]bool{0: true, 1: true, 2: true, 3: true, 4: true, 5: true, 6: true, 7: true},
		rule:       true,
	}
	if err := writeLines(w, tbl.lines()); err != nil {
		return err
	}
	if n := len(cmp.UnmatchedBox) + len(cmp.UnmatchedDome); n > 0 {
		if _, err := fmt.Fprintf(w, "%d group(s) have no counterpart and are not plotted.\n", n); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderFrameTable prints the per-file statistics.
func RenderFrameTable(w io.Writer, table *model.StatsTable) error {
	if table.Len() == 0 {
		_, err := fmt.Fprintln(w, "No frames found.")
		return err
	}
	headers, rows := FrameTableRows(table)
	tbl := textTable{
		headers:    headers,
		rows:       rows,
		rightAlign: map[int]bool{3: true, 4: true, 5: true, 6: true, 7: true, 8: true},
		maxCell:    40,
		rule:       true,
	}
	if err := writeLines(w, tbl.lines()); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// FormatNumber prints integral values without a fraction.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

package stats

import "testing"

func TestTextTableAlignsColumns(t *testing.T) {
	tbl := textTable{
		headers:    []string{"File", "Gain", "Mean"},
		rows:       [][]string{{"a.fits", "0", "97.50"}, {"dark_0001.fits", "120", "8.00"}},
		rightAlign: map[int]bool{1: true, 2: true},
	}
	lines := tbl.lines()
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "File           Gain  Mean" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "a.fits            0 97.50" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "dark_0001.fits  120  8.00" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestTextTableTruncatesAndRules(t *testing.T) {
	tbl := textTable{
		headers: []string{"File"},
		rows:    [][]string{{"a_very_long_file_name.fits"}},
		maxCell: 8,
		rule:    true,
	}
	lines := tbl.lines()
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[1] != "--------" {
		t.Fatalf("unexpected rule %q", lines[1])
	}
	if displayWidth(lines[2]) != 8 {
		t.Fatalf("expected truncated cell of width 8, got %q", lines[2])
	}
}

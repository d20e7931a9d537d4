package model

import (
	"errors"
	"math"
	"testing"
)

func TestCategoryFor(t *testing.T) {
	if got := CategoryFor(true); got != CategoryDome {
		t.Fatalf("expected %s, got %s", CategoryDome, got)
	}
	if got := CategoryFor(false); got != CategoryBox {
		t.Fatalf("expected %s, got %s", CategoryBox, got)
	}
}

func TestParseStatType(t *testing.T) {
	cases := map[string]StatType{
		"mean":   StatMean,
		"MEAN":   StatMean,
		"Mean":   StatMean,
		" mean":  StatMedian,
		"median": StatMedian,
		"avg":    StatMedian,
		"":       StatMedian,
	}
	for in, want := range cases {
		if got := ParseStatType(in); got != want {
			t.Fatalf("ParseStatType(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestStatsTableAppendValidates(t *testing.T) {
	table := &StatsTable{}
	good := ImageRecord{Path: "a.fits", Category: CategoryBox, Camera: "cam", Width: 10, Height: 10, Mean: 1, Median: 1}
	if err := table.Append(good); err != nil {
		t.Fatalf("append valid record: %v", err)
	}

	bad := []ImageRecord{
		{Category: CategoryBox, Camera: "cam", Width: 1, Height: 1},
		{Path: "b", Category: "Other", Camera: "cam", Width: 1, Height: 1},
		{Path: "c", Category: CategoryDome, Camera: "cam", Width: 0, Height: 1},
		{Path: "d", Category: CategoryDome, Camera: "cam", Width: 1, Height: 1, Gain: math.NaN()},
		{Path: "e", Category: CategoryDome, Camera: "cam", Width: 1, Height: 1, Mean: math.Inf(1)},
		{Path: "f", Category: CategoryDome, Width: 1, Height: 1},
		{Path: "g", Category: CategoryDome, Camera: "cam", Width: 1, Height: 1, Exposure: math.Inf(-1)},
	}
	for _, r := range bad {
		if err := table.Append(r); !errors.Is(err, ErrInvalidRecord) {
			t.Fatalf("expected ErrInvalidRecord for %+v, got %v", r, err)
		}
	}
	if table.Len() != 1 {
		t.Fatalf("expected 1 row, got %d", table.Len())
	}
}

func TestStatsTableAcceptsNaNPixelStatistics(t *testing.T) {
	table := &StatsTable{}
	rec := ImageRecord{
		Path: "blank.fits", Category: CategoryDome, Camera: "cam", Width: 10, Height: 10,
		Gain: 120, Exposure: 5, Mean: math.NaN(), Median: 101, StdDev: math.NaN(),
	}
	if err := table.Append(rec); err != nil {
		t.Fatalf("expected NaN statistics to be accepted, got %v", err)
	}
	if got := table.At(0).Mean; !math.IsNaN(got) {
		t.Fatalf("expected NaN mean, got %v", got)
	}
}

func TestStatsTableColumns(t *testing.T) {
	table, err := NewStatsTable(
		ImageRecord{Path: "a", Category: CategoryBox, Camera: "ZWO", Width: 1, Height: 1, Mean: 1, Median: 2},
		ImageRecord{Path: "b", Category: CategoryDome, Camera: "ZWO", Width: 1, Height: 1, Mean: 3, Median: 4},
		ImageRecord{Path: "c", Category: CategoryDome, Camera: "QHY", Width: 1, Height: 1, Mean: 5, Median: 6},
	)
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	medians := table.Values(StatMedian)
	if len(medians) != 3 || medians[0] != 2 || medians[2] != 6 {
		t.Fatalf("unexpected medians: %v", medians)
	}
	cams := table.Cameras()
	if len(cams) != 2 || cams[0] != "QHY" || cams[1] != "ZWO" {
		t.Fatalf("unexpected cameras: %v", cams)
	}
	cats := table.Categories()
	if cats[0] != CategoryBox || cats[1] != CategoryDome {
		t.Fatalf("unexpected categories: %v", cats)
	}
}

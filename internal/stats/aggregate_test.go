package stats

import (
	"math"
	"reflect"
	"testing"

	"github.com/verte-zerg/darkcmp/internal/model"
)

func record(path string, cat model.Category, exposure, gain, mean, median float64) model.ImageRecord {
	return model.ImageRecord{
		Path:     path,
		Category: cat,
		Camera:   "ZWO ASI432MM",
		Exposure: exposure,
		Gain:     gain,
		Width:    10,
		Height:   10,
		Mean:     mean,
		Median:   median,
	}
}

func sampleRecords() []model.ImageRecord {
	return []model.ImageRecord{
		record("b1", model.CategoryBox, 1, 0, 100.1, 100),
		record("b2", model.CategoryBox, 1, 0, 100.3, 102),
		record("b3", model.CategoryBox, 5, 120, 210.7, 211),
		record("d1", model.CategoryDome, 1, 0, 101.9, 101),
		record("d2", model.CategoryDome, 5, 120, 230.2, 230),
		record("d3", model.CategoryDome, 5, 120, 229.4, 228),
		record("d4", model.CategoryDome, 20, 300, 900, 900),
	}
}

func mustTable(t *testing.T, records []model.ImageRecord) *model.StatsTable {
	t.Helper()
	table, err := model.NewStatsTable(records...)
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	return table
}

func TestAggregateGroupsByKey(t *testing.T) {
	groups := Aggregate(mustTable(t, sampleRecords()), model.StatMedian, 10)
	if len(groups.Box) != 2 || len(groups.Dome) != 3 {
		t.Fatalf("unexpected group counts box=%d dome=%d", len(groups.Box), len(groups.Dome))
	}
	first := groups.Box[0]
	if first.Key != (model.GroupKey{Exposure: 1, Gain: 0}) || first.Count != 2 || first.Value != 101 {
		t.Fatalf("unexpected first box group %+v", first)
	}
	if want := math.Sqrt2 / 10; math.Abs(first.Error-want) > 1e-12 {
		t.Fatalf("expected error %v, got %v", want, first.Error)
	}
	if groups.Box[1].Error != 0 {
		t.Fatalf("expected zero error for single-member group, got %v", groups.Box[1].Error)
	}
}

func TestAggregateIsOrderIndependent(t *testing.T) {
	records := sampleRecords()
	reversed := make([]model.ImageRecord, len(records))
	for i, r := range records {
		reversed[len(records)-1-i] = r
	}
	shuffled := []model.ImageRecord{records[3], records[0], records[6], records[2], records[5], records[1], records[4]}

	want := Aggregate(mustTable(t, records), model.StatMean, 10)
	for _, variant := range [][]model.ImageRecord{reversed, shuffled} {
		got := Aggregate(mustTable(t, variant), model.StatMean, 10)
		if !reflect.DeepEqual(want, got) {
			t.Fatalf("aggregation depends on row order:\nwant %+v\ngot  %+v", want, got)
		}
	}
}

func TestAggregateSkipsNaNStatistics(t *testing.T) {
	table := mustTable(t, []model.ImageRecord{
		record("a", model.CategoryBox, 5, 120, 100, 100),
		record("b", model.CategoryBox, 5, 120, math.NaN(), 102),
		record("c", model.CategoryBox, 5, 120, 104, 104),
		record("d", model.CategoryDome, 5, 120, math.NaN(), math.NaN()),
	})
	groups := Aggregate(table, model.StatMean, 10)
	box := groups.Box[0]
	if box.Count != 2 || box.Value != 102 {
		t.Fatalf("expected NaN mean to be skipped, got %+v", box)
	}
	if want := math.Sqrt(8) / 10; math.Abs(box.Error-want) > 1e-12 {
		t.Fatalf("expected error %v, got %v", want, box.Error)
	}
	dome := groups.Dome[0]
	if dome.Count != 0 || !math.IsNaN(dome.Value) || !math.IsNaN(dome.Error) {
		t.Fatalf("expected all-NaN group to be NaN, got %+v", dome)
	}

	cmp := Join(model.StatMean, groups.Box, groups.Dome)
	if len(cmp.Pairs) != 1 {
		t.Fatalf("expected NaN group to stay joined, got %+v", cmp)
	}
}

func TestAggregateEmptyTable(t *testing.T) {
	groups := Aggregate(&model.StatsTable{}, model.StatMean, 10)
	if len(groups.Box) != 0 || len(groups.Dome) != 0 {
		t.Fatalf("expected no groups, got %+v", groups)
	}
	cmp := Compare(&model.StatsTable{}, model.StatMean, 10)
	if len(cmp.Pairs) != 0 || len(cmp.UnmatchedBox) != 0 || len(cmp.UnmatchedDome) != 0 {
		t.Fatalf("expected empty comparison, got %+v", cmp)
	}
}

func TestJoinPairsOnKey(t *testing.T) {
	cmp := Compare(mustTable(t, sampleRecords()), model.StatMedian, 10)
	if cmp.Stat != model.StatMedian {
		t.Fatalf("unexpected stat %s", cmp.Stat)
	}
	if len(cmp.Pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(cmp.Pairs))
	}
	p := cmp.Pairs[1]
	if p.Key != (model.GroupKey{Exposure: 5, Gain: 120}) || p.Box.Value != 211 || p.Dome.Value != 229 {
		t.Fatalf("unexpected pair %+v", p)
	}
	if len(cmp.UnmatchedBox) != 0 {
		t.Fatalf("expected no unmatched box groups, got %+v", cmp.UnmatchedBox)
	}
	if len(cmp.UnmatchedDome) != 1 || cmp.UnmatchedDome[0].Key.Exposure != 20 {
		t.Fatalf("expected dome 20s group unmatched, got %+v", cmp.UnmatchedDome)
	}
}

func TestJoinDoesNotPairPositionally(t *testing.T) {
	box := []model.GroupAggregate{
		{Category: model.CategoryBox, Key: model.GroupKey{Exposure: 1, Gain: 0}, Value: 1},
		{Category: model.CategoryBox, Key: model.GroupKey{Exposure: 2, Gain: 0}, Value: 2},
	}
	dome := []model.GroupAggregate{
		{Category: model.CategoryDome, Key: model.GroupKey{Exposure: 2, Gain: 0}, Value: 20},
	}
	cmp := Join(model.StatMean, box, dome)
	if len(cmp.Pairs) != 1 || cmp.Pairs[0].Box.Value != 2 || cmp.Pairs[0].Dome.Value != 20 {
		t.Fatalf("unexpected pairs %+v", cmp.Pairs)
	}
	if len(cmp.UnmatchedBox) != 1 || cmp.UnmatchedBox[0].Value != 1 {
		t.Fatalf("unexpected unmatched box %+v", cmp.UnmatchedBox)
	}
}

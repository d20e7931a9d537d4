package stats

import (
	"math"
	"sort"

	"github.com/verte-zerg/darkcmp/internal/model"
)

// DefaultErrorScale divides the group standard deviation to size error bars.
const DefaultErrorScale = 10.0

// Groups holds per-category aggregates, each sorted by key.
type Groups struct {
	Box  []model.GroupAggregate
	Dome []model.GroupAggregate
}

// Aggregate partitions the table by category, groups rows by
// (exposure, gain), and averages the selected statistic per group.
// Group values are sorted before reduction so the result does not depend
// on row order.
func Aggregate(table *model.StatsTable, stat model.StatType, errScale float64) Groups {
	if errScale <= 0 {
		errScale = DefaultErrorScale
	}
	buckets := map[model.Category]map[model.GroupKey][]float64{
		model.CategoryBox:  {},
		model.CategoryDome: {},
	}
	for i := 0; i < table.Len(); i++ {
		r := table.At(i)
		byKey, ok := buckets[r.Category]
		if !ok {
			continue
		}
		byKey[r.Key()] = append(byKey[r.Key()], r.Stat(stat))
	}
	return Groups{
		Box:  reduceGroups(model.CategoryBox, buckets[model.CategoryBox], errScale),
		Dome: reduceGroups(model.CategoryDome, buckets[model.CategoryDome], errScale),
	}
}

func reduceGroups(cat model.Category, byKey map[model.GroupKey][]float64, errScale float64) []model.GroupAggregate {
	out := make([]model.GroupAggregate, 0, len(byKey))
	for key, values := range byKey {
		// NaN statistics come from frames with blank pixels and are skipped.
		sorted := make([]float64, 0, len(values))
		for _, v := range values {
			if !math.IsNaN(v) {
				sorted = append(sorted, v)
			}
		}
		sort.Float64s(sorted)
		agg := model.GroupAggregate{
			Category: cat,
			Key:      key,
			Count:    len(sorted),
			Value:    Mean(sorted),
			Error:    SampleStdDev(sorted) / errScale,
		}
		if len(sorted) == 0 {
			agg.Error = math.NaN()
		}
		out = append(out, agg)
	}
	sortAggregates(out)
	return out
}

func sortAggregates(aggs []model.GroupAggregate) {
	sort.Slice(aggs, func(i, j int) bool {
		return aggs[i].Key.Less(aggs[j].Key)
	})
}

// Join pairs box and dome aggregates on their (exposure, gain) key.
// Keys present in only one category are returned as unmatched.
func Join(stat model.StatType, box, dome []model.GroupAggregate) model.Comparison {
	domeByKey := make(map[model.GroupKey]model.GroupAggregate, len(dome))
	for _, d := range dome {
		domeByKey[d.Key] = d
	}
	cmp := model.Comparison{Stat: stat}
	matched := make(map[model.GroupKey]struct{}, len(box))
	for _, b := range box {
		d, ok := domeByKey[b.Key]
		if !ok {
			cmp.UnmatchedBox = append(cmp.UnmatchedBox, b)
			continue
		}
		matched[b.Key] = struct{}{}
		cmp.Pairs = append(cmp.Pairs, model.Pair{Key: b.Key, Box: b, Dome: d})
	}
	for _, d := range dome {
		if _, ok := matched[d.Key]; !ok {
			cmp.UnmatchedDome = append(cmp.UnmatchedDome, d)
		}
	}
	sort.Slice(cmp.Pairs, func(i, j int) bool {
		return cmp.Pairs[i].Key.Less(cmp.Pairs[j].Key)
	})
	sortAggregates(cmp.UnmatchedBox)
	sortAggregates(cmp.UnmatchedDome)
	return cmp
}

// Compare aggregates the table and joins the two categories.
func Compare(table *model.StatsTable, stat model.StatType, errScale float64) model.Comparison {
	groups := Aggregate(table, stat, errScale)
	return Join(stat, groups.Box, groups.Dome)
}

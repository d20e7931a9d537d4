package stats

import (
	"github.com/verte-zerg/darkcmp/internal/model"
)

// Report contains precomputed data for rendering a comparison.
type Report struct {
	All        *model.StatsTable
	Table      *model.StatsTable
	Excluded   int
	Cameras    []string
	Comparison model.Comparison
}

// BuildReport filters the table and compares the two categories.
func BuildReport(table *model.StatsTable, cfg model.Config) (Report, error) {
	filter, err := CompileFilter(cfg.Filter)
	if err != nil {
		return Report{}, err
	}
	filtered, err := filter.Apply(table)
	if err != nil {
		return Report{}, err
	}
	return Report{
		All:        table,
		Table:      filtered,
		Excluded:   table.Len() - filtered.Len(),
		Cameras:    filtered.Cameras(),
		Comparison: Compare(filtered, cfg.Stat, cfg.ErrorScale),
	}, nil
}

// Matched returns the number of joined (exposure, gain) pairs.
func (r Report) Matched() int {
	return len(r.Comparison.Pairs)
}

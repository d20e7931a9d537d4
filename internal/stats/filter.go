package stats

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/verte-zerg/darkcmp/internal/model"
)

// filterEnv exposes record fields to filter expressions.
type filterEnv struct {
	Path     string
	Category string
	Object   string
	Camera   string
	Gain     float64
	Exposure float64
	Width    int
	Height   int
	Mean     float64
	Median   float64
	StdDev   float64
}

// Filter is a compiled boolean expression over record fields, for example
// `Camera == "ZWO ASI432MM" && Exposure >= 1`.
type Filter struct {
	source  string
	program *vm.Program
}

// CompileFilter compiles source. An empty source yields a nil filter that keeps every row.
func CompileFilter(source string) (*Filter, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, nil
	}
	program, err := expr.Compile(source, expr.Env(filterEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", source, err)
	}
	return &Filter{source: source, program: program}, nil
}

// String returns the expression source.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.source
}

// Match evaluates the filter against one record.
func (f *Filter) Match(r model.ImageRecord) (bool, error) {
	if f == nil {
		return true, nil
	}
	out, err := expr.Run(f.program, envFor(r))
	if err != nil {
		return false, fmt.Errorf("filter %q on %s: %w", f.source, r.Path, err)
	}
	keep, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("filter %q returned %T", f.source, out)
	}
	return keep, nil
}

// Apply returns a new table holding the matching rows, in order.
func (f *Filter) Apply(table *model.StatsTable) (*model.StatsTable, error) {
	if f == nil {
		return table, nil
	}
	out := &model.StatsTable{}
	for i := 0; i < table.Len(); i++ {
		r := table.At(i)
		keep, err := f.Match(r)
		if err != nil {
			return nil, err
		}
		if !keep {
			continue
		}
		if err := out.Append(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func envFor(r model.ImageRecord) filterEnv {
	return filterEnv{
		Path:     r.Path,
		Category: string(r.Category),
		Object:   r.Object,
		Camera:   r.Camera,
		Gain:     r.Gain,
		Exposure: r.Exposure,
		Width:    r.Width,
		Height:   r.Height,
		Mean:     r.Mean,
		Median:   r.Median,
		StdDev:   r.StdDev,
	}
}

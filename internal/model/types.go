// Package model defines shared data structures.
package model

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Category identifies how a dark frame was acquired.
type Category string

const (
	// CategoryDome marks frames taken in the dome; their header carries OBJECT.
	CategoryDome Category = "DomeDarks"
	// CategoryBox marks frames taken with the camera capped in a box.
	CategoryBox Category = "BoxDarks"
)

// CategoryFor classifies a frame by the presence of an OBJECT header card.
func CategoryFor(hasObject bool) Category {
	if hasObject {
		return CategoryDome
	}
	return CategoryBox
}

// Valid reports whether c is one of the two known categories.
func (c Category) Valid() bool {
	return c == CategoryDome || c == CategoryBox
}

// StatType selects the per-frame statistic being compared.
type StatType string

const (
	StatMean   StatType = "mean"
	StatMedian StatType = "median"
)

// ParseStatType maps "mean" (any case) to StatMean and everything else to StatMedian.
func ParseStatType(s string) StatType {
	if strings.EqualFold(s, string(StatMean)) {
		return StatMean
	}
	return StatMedian
}

// Label returns the capitalized name used in titles and headers.
func (s StatType) Label() string {
	if s == StatMean {
		return "Mean"
	}
	return "Median"
}

// Toggle returns the other statistic.
func (s StatType) Toggle() StatType {
	if s == StatMean {
		return StatMedian
	}
	return StatMean
}

// Config defines a comparison run.
type Config struct {
	Stat         StatType
	Folder       string
	Extensions   []string
	CropFraction float64
	ErrorScale   float64
	Filter       string
	PNGPath      string
	PNGWidth     int
	PNGHeight    int
	PlotHeight   int
	NoTUI        bool
	Cache        bool
	CachePath    string
	Watch        bool
}

// ErrInvalidRecord is returned when a record fails validation on insert.
var ErrInvalidRecord = errors.New("invalid image record")

// ImageRecord holds the statistics extracted from one dark frame.
type ImageRecord struct {
	Path     string
	Size     int64
	ModTime  time.Time
	Category Category
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

// Stat returns the statistic selected by s.
func (r ImageRecord) Stat(s StatType) float64 {
	if s == StatMean {
		return r.Mean
	}
	return r.Median
}

// Key returns the grouping key of the record.
func (r ImageRecord) Key() GroupKey {
	return GroupKey{Exposure: r.Exposure, Gain: r.Gain}
}

// Validate checks the fields required for grouping. Pixel statistics may be
// NaN when a float frame carries blank pixels.
func (r ImageRecord) Validate() error {
	switch {
	case r.Path == "":
		return fmt.Errorf("%w: empty path", ErrInvalidRecord)
	case !r.Category.Valid():
		return fmt.Errorf("%w: %s: unknown category %q", ErrInvalidRecord, r.Path, r.Category)
	case r.Camera == "":
		return fmt.Errorf("%w: %s: empty camera", ErrInvalidRecord, r.Path)
	case r.Width <= 0 || r.Height <= 0:
		return fmt.Errorf("%w: %s: frame size %dx%d", ErrInvalidRecord, r.Path, r.Width, r.Height)
	case !isFinite(r.Exposure):
		return fmt.Errorf("%w: %s: exposure is not finite", ErrInvalidRecord, r.Path)
	case !isFinite(r.Gain):
		return fmt.Errorf("%w: %s: gain is not finite", ErrInvalidRecord, r.Path)
	case math.IsInf(r.Mean, 0) || math.IsInf(r.Median, 0) || math.IsInf(r.StdDev, 0):
		return fmt.Errorf("%w: %s: pixel statistics are infinite", ErrInvalidRecord, r.Path)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// StatsTable is an append-only, ordered collection of image records.
type StatsTable struct {
	records []ImageRecord
}

// NewStatsTable builds a table from records, validating each one.
func NewStatsTable(records ...ImageRecord) (*StatsTable, error) {
	t := &StatsTable{records: make([]ImageRecord, 0, len(records))}
	for _, r := range records {
		if err := t.Append(r); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Append validates r and adds it to the end of the table.
func (t *StatsTable) Append(r ImageRecord) error {
	if err := r.Validate(); err != nil {
		return err
	}
	t.records = append(t.records, r)
	return nil
}

// Len returns the number of rows.
func (t *StatsTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// At returns row i.
func (t *StatsTable) At(i int) ImageRecord {
	return t.records[i]
}

// Records returns a copy of all rows in insertion order.
func (t *StatsTable) Records() []ImageRecord {
	if t == nil {
		return nil
	}
	return append([]ImageRecord(nil), t.records...)
}

// Values returns the column for the selected statistic.
func (t *StatsTable) Values(s StatType) []float64 {
	out := make([]float64, t.Len())
	for i := range out {
		out[i] = t.records[i].Stat(s)
	}
	return out
}

// Categories returns the category column.
func (t *StatsTable) Categories() []Category {
	out := make([]Category, t.Len())
	for i := range out {
		out[i] = t.records[i].Category
	}
	return out
}

// Cameras returns the distinct non-empty camera names, sorted.
func (t *StatsTable) Cameras() []string {
	seen := map[string]struct{}{}
	for i := 0; i < t.Len(); i++ {
		name := strings.TrimSpace(t.records[i].Camera)
		if name == "" {
			continue
		}
		seen[name] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// GroupKey identifies an (exposure, gain) setting.
type GroupKey struct {
	Exposure float64
	Gain     float64
}

// Less orders keys by exposure, then gain.
func (k GroupKey) Less(o GroupKey) bool {
	if k.Exposure == o.Exposure {
		return k.Gain < o.Gain
	}
	return k.Exposure < o.Exposure
}

// GroupAggregate summarizes one (category, exposure, gain) group.
type GroupAggregate struct {
	Category Category
	Key      GroupKey
	Count    int
	Value    float64
	Error    float64
}

// Pair joins the box and dome aggregates that share a key.
type Pair struct {
	Key  GroupKey
	Box  GroupAggregate
	Dome GroupAggregate
}

// Comparison is the joined result of both categories for one statistic.
type Comparison struct {
	Stat          StatType
	Pairs         []Pair
	UnmatchedBox  []GroupAggregate
	UnmatchedDome []GroupAggregate
}

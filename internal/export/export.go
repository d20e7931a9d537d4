// Package export writes a stats table in machine-readable formats.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/darkcmp/internal/model"
)

// Format selects an output encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts csv, json, yaml, or yml in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv", "":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown export format %q (use csv, json, or yaml)", s)
	}
}

// Row is the exported shape of one image record. NaN statistics are nil.
type Row struct {
	Path     string   `json:"path" yaml:"path"`
	Category string   `json:"category" yaml:"category"`
	Object   string   `json:"object,omitempty" yaml:"object,omitempty"`
	Camera   string   `json:"camera" yaml:"camera"`
	Gain     float64  `json:"gain" yaml:"gain"`
	Exposure float64  `json:"exposure" yaml:"exposure"`
	Width    int      `json:"width" yaml:"width"`
	Height   int      `json:"height" yaml:"height"`
	Mean     *float64 `json:"mean" yaml:"mean"`
	Median   *float64 `json:"median" yaml:"median"`
	StdDev   *float64 `json:"std_dev" yaml:"std_dev"`
	Size     int64    `json:"size" yaml:"size"`
	ModTime  string   `json:"mod_time,omitempty" yaml:"mod_time,omitempty"`
}

var csvHeader = []string{
	"path", "category", "object", "camera", "gain", "exposure",
	"width", "height", "mean", "median", "std_dev", "size", "mod_time",
}

// Rows converts the table in order.
func Rows(table *model.StatsTable) []Row {
	rows := make([]Row, 0, table.Len())
	for _, r := range table.Records() {
		row := Row{
			Path:     r.Path,
			Category: string(r.Category),
			Object:   r.Object,
			Camera:   r.Camera,
			Gain:     r.Gain,
			Exposure: r.Exposure,
			Width:    r.Width,
			Height:   r.Height,
			Mean:     optional(r.Mean),
			Median:   optional(r.Median),
			StdDev:   optional(r.StdDev),
			Size:     r.Size,
		}
		if !r.ModTime.IsZero() {
			row.ModTime = r.ModTime.UTC().Format(time.RFC3339)
		}
		rows = append(rows, row)
	}
	return rows
}

// Write encodes the table to w.
func Write(w io.Writer, table *model.StatsTable, format Format) error {
	rows := Rows(table)
	switch format {
	case FormatCSV:
		return writeCSV(w, rows)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rows); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

func writeCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.Path,
			r.Category,
			r.Object,
			r.Camera,
			formatFloat(r.Gain),
			formatFloat(r.Exposure),
			strconv.Itoa(r.Width),
			strconv.Itoa(r.Height),
			formatOptional(r.Mean),
			formatOptional(r.Median),
			formatOptional(r.StdDev),
			strconv.FormatInt(r.Size, 10),
			r.ModTime,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func optional(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

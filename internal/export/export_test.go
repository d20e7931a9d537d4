package export

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/darkcmp/internal/model"
)

func sampleTable(t *testing.T) *model.StatsTable {
	t.Helper()
	tbl, err := model.NewStatsTable(
		model.ImageRecord{
			Path: "/d/box.fits", Size: 5760, Category: model.CategoryBox, Camera: "cam, mono",
			Gain: 120, Exposure: 0.5, Width: 32, Height: 24, Mean: 101.25, Median: 100, StdDev: 3.5,
		},
		model.ImageRecord{
			Path: "/d/dome.fits", Size: 5760, ModTime: time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC),
			Category: model.CategoryDome, Object: "M42", Camera: "cam",
			Gain: 0, Exposure: 30, Width: 32, Height: 24, Mean: 98, Median: 97.5, StdDev: 2,
		},
	)
	if err != nil {
		t.Fatalf("build table: %v", err)
	}
	return tbl
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleTable(t), FormatCSV); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	want := strings.Join([]string{
		"path,category,object,camera,gain,exposure,width,height,mean,median,std_dev,size,mod_time",
		`/d/box.fits,BoxDarks,,"cam, mono",120,0.5,32,24,101.25,100,3.5,5760,`,
		"/d/dome.fits,DomeDarks,M42,cam,0,30,32,24,98,97.5,2,5760,2024-03-01T22:00:00Z",
		"",
	}, "\n")
	if buf.String() != want {
		t.Fatalf("unexpected csv:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleTable(t), FormatJSON); err != nil {
		t.Fatalf("write json: %v", err)
	}
	var rows []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if _, ok := rows[0]["object"]; ok {
		t.Fatalf("expected empty object to be omitted: %v", rows[0])
	}
	if rows[1]["category"] != "DomeDarks" || rows[1]["std_dev"] != 2.0 {
		t.Fatalf("unexpected dome row %v", rows[1])
	}
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleTable(t), FormatYAML); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"- path: /d/box.fits", "  category: BoxDarks", "  object: M42"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in yaml:\n%s", want, out)
		}
	}
}

func TestWriteNaNStatistics(t *testing.T) {
	tbl, err := model.NewStatsTable(model.ImageRecord{
		Path: "/d/blank.fits", Size: 5760, Category: model.CategoryDome, Object: "M42", Camera: "cam",
		Gain: 120, Exposure: 5, Width: 32, Height: 24, Mean: math.NaN(), Median: 97.5, StdDev: math.NaN(),
	})
	if err != nil {
		t.Fatalf("build table: %v", err)
	}

	var csvOut bytes.Buffer
	if err := Write(&csvOut, tbl, FormatCSV); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if !strings.Contains(csvOut.String(), "/d/blank.fits,DomeDarks,M42,cam,120,5,32,24,,97.5,,5760,") {
		t.Fatalf("expected empty NaN cells:\n%s", csvOut.String())
	}

	var jsonOut bytes.Buffer
	if err := Write(&jsonOut, tbl, FormatJSON); err != nil {
		t.Fatalf("write json: %v", err)
	}
	var rows []map[string]any
	if err := json.Unmarshal(jsonOut.Bytes(), &rows); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if rows[0]["mean"] != nil || rows[0]["median"] != 97.5 {
		t.Fatalf("unexpected row %v", rows[0])
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{"CSV": FormatCSV, "json": FormatJSON, "yml": FormatYAML, " yaml ": FormatYAML}
	for in, want := range cases {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Fatalf("expected error for xml")
	}
}

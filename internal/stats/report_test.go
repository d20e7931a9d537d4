package stats

import (
	"bytes"
	"strings"
	"testing"

	"github.com/verte-zerg/darkcmp/internal/model"
)

func TestBuildReport(t *testing.T) {
	table := mustTable(t, sampleRecords())
	cfg := model.Config{
		Stat:       model.StatMean,
		ErrorScale: 10,
		Filter:     `Gain < 300`,
	}
	report, err := BuildReport(table, cfg)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if report.Excluded != 1 {
		t.Fatalf("expected 1 excluded row, got %d", report.Excluded)
	}
	if report.All.Len() != 7 || report.Table.Len() != 6 {
		t.Fatalf("unexpected table sizes all=%d filtered=%d", report.All.Len(), report.Table.Len())
	}
	if report.Matched() != 2 {
		t.Fatalf("expected 2 matched pairs, got %d", report.Matched())
	}
	if len(report.Comparison.UnmatchedDome) != 0 {
		t.Fatalf("expected filtered-out group to vanish, got %+v", report.Comparison.UnmatchedDome)
	}
	if len(report.Cameras) != 1 || report.Cameras[0] != "ZWO ASI432MM" {
		t.Fatalf("unexpected cameras %v", report.Cameras)
	}
}

func TestBuildReportBadFilter(t *testing.T) {
	if _, err := BuildReport(mustTable(t, sampleRecords()), model.Config{Filter: "Gain >"}); err == nil {
		t.Fatalf("expected filter error")
	}
}

func TestRenderGroupTable(t *testing.T) {
	var buf bytes.Buffer
	cmp := Compare(mustTable(t, sampleRecords()), model.StatMedian, 10)
	if err := RenderGroupTable(&buf, cmp); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Groups (Median", "Box Median", "Dome Median", "229.00", "1 group(s) have no counterpart"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestRenderFrameTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderFrameTable(&buf, &model.StatsTable{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "No frames found." {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

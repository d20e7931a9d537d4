package stats

import (
	"testing"

	"github.com/verte-zerg/darkcmp/internal/model"
)

func TestCompileFilterEmpty(t *testing.T) {
	f, err := CompileFilter("  ")
	if err != nil || f != nil {
		t.Fatalf("expected nil filter, got %v %v", f, err)
	}
	table := mustTable(t, sampleRecords())
	out, err := f.Apply(table)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if out.Len() != table.Len() {
		t.Fatalf("nil filter dropped rows")
	}
}

func TestFilterApply(t *testing.T) {
	f, err := CompileFilter(`Category == "DomeDarks" && Exposure >= 5`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	out, err := f.Apply(mustTable(t, sampleRecords()))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if out.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", out.Len())
	}
	for _, r := range out.Records() {
		if r.Category != model.CategoryDome || r.Exposure < 5 {
			t.Fatalf("unexpected row %+v", r)
		}
	}
}

func TestCompileFilterErrors(t *testing.T) {
	for _, src := range []string{"Gain +", "Gain * 2", "Unknown == 1"} {
		if _, err := CompileFilter(src); err == nil {
			t.Fatalf("expected compile error for %q", src)
		}
	}
}

package workflow

import (
	"reflect"
	"sort"
	"testing"

	"github.com/mmdatafocus/adaudit_backend/models"
)

func systemSet(gids ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(gids))
	for _, g := range gids {
		set[g] = struct{}{}
	}
	return set
}

func TestReconcile_SetDifference(t *testing.T) {
	records := []GidRecord{
		{Gid: "G1", SourceFile: "a.xlsx"},
		{Gid: "G2", SourceFile: "a.xlsx"},
		{Gid: "G2", SourceFile: "b.xlsx"}, // duplicate across files
		{Gid: "G3", SourceFile: "b.xlsx"},
	}
	result := Reconcile(records, systemSet("G1", "G3", "G9"))

	if result.TotalInSource != 4 {
		t.Errorf("TotalInSource = %d, want 4", result.TotalInSource)
	}
	if result.TotalInSystem != 3 {
		t.Errorf("TotalInSystem = %d, want 3", result.TotalInSystem)
	}
	if !reflect.DeepEqual(result.UniqueGids, []string{"G1", "G2", "G3"}) {
		t.Errorf("UniqueGids = %v", result.UniqueGids)
	}
	if result.MatchedCount != 2 {
		t.Errorf("MatchedCount = %d, want 2", result.MatchedCount)
	}
	if result.MissingCount != 1 || result.Missing[0].Gid != "G2" {
		t.Fatalf("Missing = %+v, want only G2", result.Missing)
	}
	if !reflect.DeepEqual(result.Missing[0].SourceFiles, []string{"a.xlsx", "b.xlsx"}) {
		t.Errorf("SourceFiles = %v", result.Missing[0].SourceFiles)
	}
}

func TestReconcile_MatchedPlusMissingEqualsUnique(t *testing.T) {
	records := []GidRecord{
		{Gid: "A", SourceFile: "f"},
		{Gid: "B", SourceFile: "f"},
		{Gid: "C", SourceFile: "f"},
		{Gid: "A", SourceFile: "g"},
	}
	result := Reconcile(records, systemSet("B"))
	if result.MatchedCount+result.MissingCount != len(result.UniqueGids) {
		t.Errorf("matched(%d) + missing(%d) != unique(%d)",
			result.MatchedCount, result.MissingCount, len(result.UniqueGids))
	}
}

func TestReconcile_EmptySystemSet(t *testing.T) {
	records := []GidRecord{
		{Gid: "A", SourceFile: "f"},
		{Gid: "B", SourceFile: "f"},
	}
	result := Reconcile(records, systemSet())
	if result.MissingCount != 2 || result.MatchedCount != 0 {
		t.Errorf("missing=%d matched=%d, want 2/0", result.MissingCount, result.MatchedCount)
	}
}

func TestReconcile_NoRecords(t *testing.T) {
	result := Reconcile(nil, systemSet("A", "B"))
	if result.MissingCount != 0 || result.MatchedCount != 0 || len(result.UniqueGids) != 0 {
		t.Errorf("empty input should produce empty result: %+v", result)
	}
}

func TestReconcile_Deterministic(t *testing.T) {
	records := []GidRecord{
		{Gid: "Z", SourceFile: "b.xlsx"},
		{Gid: "A", SourceFile: "a.xlsx"},
		{Gid: "M", SourceFile: "c.xlsx"},
		{Gid: "Z", SourceFile: "a.xlsx"},
	}
	set := systemSet("M")
	first := Reconcile(records, set)
	second := Reconcile(records, set)
	if !reflect.DeepEqual(first, second) {
		t.Error("reconcile is not deterministic for identical input")
	}
	if !sort.StringsAreSorted(first.UniqueGids) {
		t.Errorf("UniqueGids not sorted: %v", first.UniqueGids)
	}
	for _, m := range first.Missing {
		if !sort.StringsAreSorted(m.SourceFiles) {
			t.Errorf("SourceFiles not sorted for %s: %v", m.Gid, m.SourceFiles)
		}
	}
}

func TestDiscrepancyRows(t *testing.T) {
	result := Reconcile([]GidRecord{
		{Gid: "G1", SourceFile: "a.xlsx"},
		{Gid: "G1", SourceFile: "b.xlsx"},
	}, systemSet())

	rows := DiscrepancyRows(7, result)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	row := rows[0]
	if row.AnalysisId != 7 || row.Gid != "G1" {
		t.Errorf("row = %+v", row)
	}
	if row.DiscrepancyType != models.DiscrepancyMissingInSystem {
		t.Errorf("DiscrepancyType = %q", row.DiscrepancyType)
	}
	if row.SourceFile != "a.xlsx,b.xlsx" {
		t.Errorf("SourceFile = %q", row.SourceFile)
	}
}

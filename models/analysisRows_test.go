package models

import (
	"errors"
	"testing"
)

// fakeGidStore records rows across several analyses so a replacement
// can be checked against rows it must not touch.
type fakeGidStore struct {
	rows      []GidDiscrepancy
	deleteErr error
	insertErr error
	inserts   int
}

func (s *fakeGidStore) deleteForAnalysis(analysisId int) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	var kept []GidDiscrepancy
	for _, r := range s.rows {
		if r.AnalysisId != analysisId {
			kept = append(kept, r)
		}
	}
	s.rows = kept
	return nil
}

func (s *fakeGidStore) insertBatch(rows []GidDiscrepancy) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserts++
	s.rows = append(s.rows, rows...)
	return nil
}

func gidsFor(t *testing.T, store *fakeGidStore, analysisId int) []string {
	t.Helper()
	var gids []string
	for _, r := range store.rows {
		if r.AnalysisId == analysisId {
			gids = append(gids, r.Gid)
		}
	}
	return gids
}

func stampDiscrepancy(r *GidDiscrepancy, id int) { r.AnalysisId = id }

func TestReplaceAnalysisRows_SecondGenerationWinsOutright(t *testing.T) {
	store := &fakeGidStore{rows: []GidDiscrepancy{
		{AnalysisId: 7, Gid: "G100"},
		{AnalysisId: 7, Gid: "G200"},
		{AnalysisId: 9, Gid: "G900"},
	}}

	next := []GidDiscrepancy{{Gid: "G200"}, {Gid: "G300"}}
	if err := replaceAnalysisRows[GidDiscrepancy](store, 7, next, stampDiscrepancy); err != nil {
		t.Fatal(err)
	}

	got := gidsFor(t, store, 7)
	want := []string{"G200", "G300"}
	if len(got) != len(want) {
		t.Fatalf("analysis 7 rows = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("analysis 7 rows = %v, want %v", got, want)
		}
	}
	if other := gidsFor(t, store, 9); len(other) != 1 || other[0] != "G900" {
		t.Errorf("analysis 9 rows disturbed: %v", other)
	}
	for _, r := range store.rows {
		if r.AnalysisId == 7 && r.Gid == "G100" {
			t.Error("stale row G100 survived the replacement")
		}
	}
}

func TestReplaceAnalysisRows_EmptyGenerationClears(t *testing.T) {
	store := &fakeGidStore{rows: []GidDiscrepancy{
		{AnalysisId: 7, Gid: "G100"},
	}}
	if err := replaceAnalysisRows[GidDiscrepancy](store, 7, nil, stampDiscrepancy); err != nil {
		t.Fatal(err)
	}
	if got := gidsFor(t, store, 7); len(got) != 0 {
		t.Errorf("expected no rows after empty replacement, got %v", got)
	}
	if store.inserts != 0 {
		t.Errorf("expected no insert for an empty generation, got %d", store.inserts)
	}
}

func TestReplaceAnalysisRows_StampsAnalysisId(t *testing.T) {
	store := &fakeGidStore{}
	rows := []GidDiscrepancy{{Gid: "G1"}, {Gid: "G2", AnalysisId: 42}}
	if err := replaceAnalysisRows[GidDiscrepancy](store, 7, rows, stampDiscrepancy); err != nil {
		t.Fatal(err)
	}
	for _, r := range store.rows {
		if r.AnalysisId != 7 {
			t.Errorf("row %s stamped with analysis %d, want 7", r.Gid, r.AnalysisId)
		}
	}
}

func TestReplaceAnalysisRows_DeleteFailureSkipsInsert(t *testing.T) {
	boom := errors.New("deadlock")
	store := &fakeGidStore{deleteErr: boom}
	err := replaceAnalysisRows[GidDiscrepancy](store, 7, []GidDiscrepancy{{Gid: "G1"}}, stampDiscrepancy)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if store.inserts != 0 {
		t.Error("insert attempted after failed delete")
	}
}

func TestReplaceAnalysisRows_InsertFailurePropagates(t *testing.T) {
	boom := errors.New("duplicate key")
	store := &fakeGidStore{insertErr: boom}
	err := replaceAnalysisRows[GidDiscrepancy](store, 7, []GidDiscrepancy{{Gid: "G1"}}, stampDiscrepancy)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

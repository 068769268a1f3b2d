package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestSaveAndGetLookup(t *testing.T) {
	s := openTestStore(t)

	l := Lookup{
		ID:         uuid.New().String(),
		CaseNumber: "2:23-cv-11111",
		Courts:     `["mied","miwd"]`,
		DocketID:   "12345",
		OK:         true,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.SaveLookup(l); err != nil {
		t.Fatalf("SaveLookup failed: %v", err)
	}

	got, err := s.GetLookup(l.ID)
	if err != nil {
		t.Fatalf("GetLookup failed: %v", err)
	}
	if got.CaseNumber != l.CaseNumber || got.DocketID != l.DocketID || !got.OK {
		t.Errorf("got %+v, want %+v", got, l)
	}
	if got.Courts != l.Courts {
		t.Errorf("Courts = %q, want %q", got.Courts, l.Courts)
	}
}

func TestSaveLookup_EmptyCourtsDefaults(t *testing.T) {
	s := openTestStore(t)

	id := uuid.New().String()
	if err := s.SaveLookup(Lookup{ID: id, CaseNumber: "x"}); err != nil {
		t.Fatalf("SaveLookup failed: %v", err)
	}
	got, err := s.GetLookup(id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Courts != "[]" {
		t.Errorf("Courts = %q, want %q", got.Courts, "[]")
	}
}

func TestGetLookup_NotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetLookup("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListLookups_OrderAndLimit(t *testing.T) {
	s := openTestStore(t)

	base := time.Now().UTC().Add(-time.Hour)
	for i := range 5 {
		err := s.SaveLookup(Lookup{
			ID:         uuid.New().String(),
			CaseNumber: "case",
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.ListLookups(3)
	if err != nil {
		t.Fatalf("ListLookups failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d lookups, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].CreatedAt.After(got[i-1].CreatedAt) {
			t.Error("lookups not in descending created_at order")
		}
	}
}

func TestDeleteLookup(t *testing.T) {
	s := openTestStore(t)

	id := uuid.New().String()
	if err := s.SaveLookup(Lookup{ID: id, CaseNumber: "x"}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteLookup(id); err != nil {
		t.Fatalf("DeleteLookup failed: %v", err)
	}
	if _, err := s.GetLookup(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("lookup still present after delete")
	}
	if err := s.DeleteLookup(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestSaveAndListPipelineRuns(t *testing.T) {
	s := openTestStore(t)

	runs := []PipelineRun{
		{ID: uuid.New().String(), AnalysisID: "an-1", Stage: "executed"},
		{ID: uuid.New().String(), Stage: "failed", WhereFailed: "audit/execute"},
	}
	for _, r := range runs {
		if err := s.SavePipelineRun(r); err != nil {
			t.Fatalf("SavePipelineRun failed: %v", err)
		}
	}

	got, err := s.ListPipelineRuns(10)
	if err != nil {
		t.Fatalf("ListPipelineRuns failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d runs, want 2", len(got))
	}
}

func TestPruneBefore(t *testing.T) {
	s := openTestStore(t)

	old := time.Now().UTC().Add(-48 * time.Hour)
	recent := time.Now().UTC()

	s.SaveLookup(Lookup{ID: "old-lookup", CaseNumber: "x", CreatedAt: old})
	s.SaveLookup(Lookup{ID: "new-lookup", CaseNumber: "y", CreatedAt: recent})
	s.SavePipelineRun(PipelineRun{ID: "old-run", Stage: "executed", CreatedAt: old})
	s.SavePipelineRun(PipelineRun{ID: "new-run", Stage: "executed", CreatedAt: recent})

	n, err := s.PruneBefore(time.Now().UTC().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("PruneBefore failed: %v", err)
	}
	if n != 2 {
		t.Errorf("pruned %d rows, want 2", n)
	}

	if _, err := s.GetLookup("old-lookup"); !errors.Is(err, ErrNotFound) {
		t.Error("old lookup survived prune")
	}
	if _, err := s.GetLookup("new-lookup"); err != nil {
		t.Errorf("recent lookup pruned: %v", err)
	}
}

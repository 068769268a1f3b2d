package authority

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScore_SeedTable(t *testing.T) {
	s := New()

	tests := []struct {
		courtID string
		want    CourtAuthority
	}{
		{"mich", CourtAuthority{Score: 95, Binding: true, Level: LevelSupreme}},
		{"michctapp", CourtAuthority{Score: 85, Binding: true, Level: LevelAppellate}},
		{"mied", CourtAuthority{Score: 75, Binding: false, Level: LevelFederalDistrict}},
		{"miwd", CourtAuthority{Score: 75, Binding: false, Level: LevelFederalDistrict}},
		{"ca6", CourtAuthority{Score: 80, Binding: false, Level: LevelFederalAppellate}},
	}
	for _, tt := range tests {
		if got := s.Score(tt.courtID); got != tt.want {
			t.Errorf("Score(%q) = %+v, want %+v", tt.courtID, got, tt.want)
		}
	}
}

func TestScore_CaseInsensitive(t *testing.T) {
	s := New()
	for _, id := range []string{"MICH", "Mich", " mich ", "MichCtApp"} {
		got := s.Score(id)
		if got == Unclassified {
			t.Errorf("Score(%q) = Unclassified, want a table entry", id)
		}
	}
}

func TestScore_UnknownDefaults(t *testing.T) {
	s := New()
	for _, id := range []string{"", "ca9", "scotus", "nonsense-court"} {
		got := s.Score(id)
		if got != Unclassified {
			t.Errorf("Score(%q) = %+v, want %+v", id, got, Unclassified)
		}
	}
}

func TestScore_Deterministic(t *testing.T) {
	s := New()
	first := s.Score("ca6")
	for range 10 {
		if got := s.Score("ca6"); got != first {
			t.Fatalf("Score not deterministic: %+v then %+v", first, got)
		}
	}
}

func TestLoad_ExtendsSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.json")
	content := `{"ca9": {"score": 80, "binding": false, "level": "federal_appellate"},
		"mich": {"score": 99, "binding": true, "level": "supreme"}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// New entry added.
	if got := s.Score("ca9"); got.Level != LevelFederalAppellate {
		t.Errorf("Score(ca9).Level = %q, want %q", got.Level, LevelFederalAppellate)
	}
	// Override wins over seed.
	if got := s.Score("mich"); got.Score != 99 {
		t.Errorf("Score(mich).Score = %d, want 99", got.Score)
	}
	// Untouched seed entries survive.
	if got := s.Score("mied"); got.Level != LevelFederalDistrict {
		t.Errorf("Score(mied).Level = %q, want %q", got.Level, LevelFederalDistrict)
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	s, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}
	if got := s.Score("mich"); got.Score != 95 {
		t.Errorf("Score(mich).Score = %d, want 95", got.Score)
	}
}

func TestLoad_BadFile(t *testing.T) {
	if _, err := Load("/nonexistent/table.json"); err == nil {
		t.Error("Load of missing file succeeded, want error")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte("{not json"), 0o644)
	if _, err := Load(path); err == nil {
		t.Error("Load of malformed file succeeded, want error")
	}
}

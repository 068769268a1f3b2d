// Package authority ranks courts by precedential weight. Scores are a
// relative ordering within a jurisdiction family, not an absolute measure:
// state supreme > state appellate > federal circuit > federal district >
// unclassified.
package authority

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Level classifies where a court sits in the hierarchy.
type Level string

const (
	LevelSupreme          Level = "supreme"
	LevelAppellate        Level = "appellate"
	LevelFederalDistrict  Level = "federal_district"
	LevelFederalAppellate Level = "federal_appellate"
	LevelUnknown          Level = "unknown"
)

// CourtAuthority describes how much weight a court's rulings carry.
// Binding is true only for courts whose rulings bind the jurisdiction
// being queried.
type CourtAuthority struct {
	Score   int   `json:"score"`
	Binding bool  `json:"binding"`
	Level   Level `json:"level"`
}

// Unclassified is returned for any court the table does not know about.
var Unclassified = CourtAuthority{Score: 50, Binding: false, Level: LevelUnknown}

//go:embed table.json
var seedTable []byte

// Scorer maps CourtListener court identifiers to authority records.
// The zero value is not usable; construct with New or Load.
type Scorer struct {
	table map[string]CourtAuthority
}

// New returns a Scorer backed by the embedded seed table.
func New() *Scorer {
	s, err := newFromJSON(seedTable)
	if err != nil {
		// The seed table is embedded and validated by tests; a parse
		// failure here is a build defect.
		panic(fmt.Sprintf("authority: invalid embedded table: %v", err))
	}
	return s
}

// Load returns a Scorer whose seed table is extended by entries from the
// JSON file at path. File entries override seed entries with the same
// court identifier. An empty path returns the plain seed Scorer.
func Load(path string) (*Scorer, error) {
	s := New()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading authority table: %w", err)
	}
	extra, err := newFromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("parsing authority table %s: %w", path, err)
	}
	for id, a := range extra.table {
		s.table[id] = a
	}
	return s, nil
}

func newFromJSON(data []byte) (*Scorer, error) {
	var raw map[string]CourtAuthority
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	table := make(map[string]CourtAuthority, len(raw))
	for id, a := range raw {
		table[strings.ToLower(strings.TrimSpace(id))] = a
	}
	return &Scorer{table: table}, nil
}

// Score returns the authority record for a court identifier. Matching is
// case-insensitive. Unknown identifiers map to Unclassified; Score never
// fails.
func (s *Scorer) Score(courtID string) CourtAuthority {
	if a, ok := s.table[strings.ToLower(strings.TrimSpace(courtID))]; ok {
		return a
	}
	return Unclassified
}

// Known reports whether the table has an explicit entry for courtID.
func (s *Scorer) Known(courtID string) bool {
	_, ok := s.table[strings.ToLower(strings.TrimSpace(courtID))]
	return ok
}

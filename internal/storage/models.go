package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Lookup is one recorded case resolution. Courts holds the requested
// court filter as a JSON array stored as text.
type Lookup struct {
	ID         string    `json:"id"`
	CaseNumber string    `json:"caseNumber"`
	Courts     string    `json:"courts"`
	DocketID   string    `json:"docketId,omitempty"`
	OK         bool      `json:"ok"`
	ErrorKind  string    `json:"errorKind,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// PipelineRun is one recorded report pipeline execution. WhereFailed is
// empty unless Stage is "failed".
type PipelineRun struct {
	ID          string    `json:"id"`
	AnalysisID  string    `json:"analysisId,omitempty"`
	Stage       string    `json:"stage"`
	WhereFailed string    `json:"whereFailed,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

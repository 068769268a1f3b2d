// Package report sequences the two dependent report-generation stages:
// materialize-and-run produces an analysis identifier, execute consumes
// it. The stages are strictly chained; stage 2 is never attempted without
// stage 1's identifier.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultTimeout = 30 * time.Second

	materializePath = "/report/materialize-and-run"
	executePath     = "/audit/execute"

	// Stage names used in error tags.
	StageMaterialize = "report/materialize-and-run"
	StageExecute     = "audit/execute"

	maxErrorBody = 2000
)

// DefaultAnalysisIDKeys is the accepted alias list for the stage-1
// analysis identifier, in precedence order. The backend's response shape
// is not contractually fixed; the first non-empty alias wins.
var DefaultAnalysisIDKeys = []string{"analysisId", "id", "runId", "uuid", "analysis_id"}

// Stage is a pipeline run's position in its state machine.
type Stage string

const (
	StagePendingMaterialize Stage = "pending_materialize"
	StageMaterialized       Stage = "materialized"
	StageExecuted           Stage = "executed"
	StageFailed             Stage = "failed"
)

// StageError is a stage rejection: the backend answered with a non-2xx
// status. Where names the failing stage; Body holds a truncated raw body.
type StageError struct {
	Where  string
	Status int
	Body   string
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s returned HTTP %d", e.Where, e.Status)
}

// ContractError means stage 1 reported success but no recognized
// identifier alias was present. Proceeding with an empty identifier would
// propagate corrupted state into stage 2, so this is fatal.
type ContractError struct {
	Keys []string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("materialize response has none of the identifier keys %v", e.Keys)
}

// Run is one pipeline execution. AnalysisID is immutable once set.
type Run struct {
	ID         string
	Stage      Stage
	AnalysisID string
}

// Result is the merged final output of a completed run.
type Result struct {
	AnalysisID        string          `json:"analysisId"`
	Audit             json.RawMessage `json:"audit,omitempty"`
	Markdown          string          `json:"markdown"`
	Report            json.RawMessage `json:"report,omitempty"`
	EducationalReport json.RawMessage `json:"educationalReport,omitempty"`
}

// Orchestrator drives the two-stage pipeline against the report backend.
type Orchestrator struct {
	baseURL    string
	idKeys     []string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates an Orchestrator for the backend at baseURL. idKeys is the
// ordered identifier alias list; nil selects DefaultAnalysisIDKeys.
func New(baseURL string, idKeys []string) *Orchestrator {
	if len(idKeys) == 0 {
		idKeys = DefaultAnalysisIDKeys
	}
	return &Orchestrator{
		baseURL: strings.TrimRight(baseURL, "/"),
		idKeys:  idKeys,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: slog.Default(),
	}
}

// Run executes both stages. body is forwarded to stage 1 as-is and to
// stage 2 merged with the analysis identifier. session is the caller's
// credential, forwarded unchanged to both stages so upstream authorization
// decisions are preserved.
func (o *Orchestrator) Run(ctx context.Context, body json.RawMessage, session string) (Result, error) {
	run := Run{ID: uuid.New().String(), Stage: StagePendingMaterialize}
	o.logger.Debug("pipeline run starting", "run_id", run.ID)

	stage1, err := o.post(ctx, materializePath, StageMaterialize, body, session)
	if err != nil {
		run.Stage = StageFailed
		return Result{}, err
	}

	analysisID := firstAlias(stage1, o.idKeys)
	if analysisID == "" {
		run.Stage = StageFailed
		return Result{}, &ContractError{Keys: o.idKeys}
	}
	run.AnalysisID = analysisID
	run.Stage = StageMaterialized

	stage2Body, err := mergeAnalysisID(body, analysisID)
	if err != nil {
		run.Stage = StageFailed
		return Result{}, fmt.Errorf("merging analysis id into request body: %w", err)
	}

	stage2, err := o.post(ctx, executePath, StageExecute, stage2Body, session)
	if err != nil {
		run.Stage = StageFailed
		return Result{}, err
	}
	run.Stage = StageExecuted

	o.logger.Info("pipeline run complete", "run_id", run.ID, "analysis_id", analysisID)
	return assembleResult(analysisID, stage2), nil
}

// post sends one stage request and returns the decoded response object.
// Non-2xx responses become *StageError tagged with the stage name.
func (o *Orchestrator) post(ctx context.Context, path, where string, body json.RawMessage, session string) (map[string]json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", where, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set("Cookie", session)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, &StageError{Where: where, Status: http.StatusBadGateway, Body: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StageError{Where: where, Status: resp.StatusCode, Body: string(raw)}
	}

	var decoded map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &StageError{Where: where, Status: http.StatusBadGateway, Body: fmt.Sprintf("invalid JSON from backend: %v", err)}
	}
	return decoded, nil
}

// firstAlias returns the first non-empty string value among keys.
func firstAlias(obj map[string]json.RawMessage, keys []string) string {
	for _, key := range keys {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
		// Numeric identifiers count too.
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil && n.String() != "" {
			return n.String()
		}
	}
	return ""
}

// mergeAnalysisID returns body with analysisId set, preserving all other
// fields. A nil or empty body becomes a fresh object.
func mergeAnalysisID(body json.RawMessage, analysisID string) (json.RawMessage, error) {
	merged := map[string]json.RawMessage{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &merged); err != nil {
			return nil, err
		}
	}
	idJSON, _ := json.Marshal(analysisID)
	merged["analysisId"] = idJSON
	return json.Marshal(merged)
}

// assembleResult extracts the display artifact and passes report fields
// through opportunistically; absence is not an error.
func assembleResult(analysisID string, stage2 map[string]json.RawMessage) Result {
	res := Result{
		AnalysisID: analysisID,
	}

	if raw, err := json.Marshal(stage2); err == nil {
		res.Audit = raw
	}

	for _, key := range []string{"markdown", "reportMarkdown", "educationMarkdown"} {
		var s string
		if raw, ok := stage2[key]; ok && json.Unmarshal(raw, &s) == nil && s != "" {
			res.Markdown = s
			break
		}
	}

	if raw, ok := stage2["report"]; ok {
		res.Report = raw
	} else if raw, ok := stage2["result"]; ok {
		res.Report = raw
	}
	if raw, ok := stage2["educationalReport"]; ok {
		res.EducationalReport = raw
	}
	return res
}

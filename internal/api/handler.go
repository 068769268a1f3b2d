package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kalambet/courtlens/internal/authority"
	"github.com/kalambet/courtlens/internal/report"
	"github.com/kalambet/courtlens/internal/resolve"
	"github.com/kalambet/courtlens/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// AppDeps holds the collaborators the HTTP surface is assembled from.
type AppDeps struct {
	Store        *storage.Store
	Resolver     *resolve.Resolver
	Pipeline     *report.Orchestrator
	Authority    *authority.Scorer
	Token        string
	DefaultLimit int // fallback page size when the request carries none
	Logger       *slog.Logger
}

func NewAppHandler(deps AppDeps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.DefaultLimit <= 0 {
		deps.DefaultLimit = resolve.DefaultLimit
	}

	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/v1/cases/resolve", handleResolve(deps))
		r.Post("/v1/cases/resolve/batch", handleResolveBatch(deps))
		r.Post("/v1/research", handleResearch(deps))
		r.Get("/v1/courts/{id}/authority", handleCourtAuthority(deps))
		r.Get("/v1/lookups", handleListLookups(deps))
		r.Get("/v1/lookups/{id}", handleGetLookup(deps))
		r.Delete("/v1/lookups/{id}", handleDeleteLookup(deps))
	})

	return r
}

// resolvePayload matches the resolve request body. Limit is kept raw so a
// numeric string, a number, or garbage all decode; anything unusable
// falls back to the configured default instead of failing the request.
type resolvePayload struct {
	CaseNumber string          `json:"caseNumber"`
	Courts     []string        `json:"courts"`
	Limit      json.RawMessage `json:"limit"`
}

func (p resolvePayload) request(defaultLimit int) resolve.Request {
	return resolve.Request{
		CaseNumber: p.CaseNumber,
		Courts:     p.Courts,
		Limit:      parseLimit(p.Limit, defaultLimit),
	}
}

func parseLimit(raw json.RawMessage, defaultLimit int) int {
	if len(raw) == 0 {
		return defaultLimit
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n
		}
	}
	return defaultLimit
}

type resolveResponse struct {
	OK bool `json:"ok"`
	resolve.Result
}

func handleResolve(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var payload resolvePayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			httpError(w, http.StatusBadRequest, resolve.KindInput, "invalid request body: %v", err)
			return
		}

		result, err := deps.Resolver.Resolve(r.Context(), payload.request(deps.DefaultLimit))
		recordLookup(deps, payload.CaseNumber, payload.Courts, result, err)
		if err != nil {
			writeResolveError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, resolveResponse{OK: true, Result: result})
	}
}

type batchEntryResponse struct {
	OK     bool            `json:"ok"`
	Result *resolve.Result `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
	Kind   string          `json:"kind,omitempty"`
}

func handleResolveBatch(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var payload struct {
			Cases []resolvePayload `json:"cases"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			httpError(w, http.StatusBadRequest, resolve.KindInput, "invalid request body: %v", err)
			return
		}
		if len(payload.Cases) == 0 {
			httpError(w, http.StatusBadRequest, resolve.KindInput, "cases is required and must not be empty")
			return
		}

		reqs := make([]resolve.Request, len(payload.Cases))
		for i, c := range payload.Cases {
			reqs[i] = c.request(deps.DefaultLimit)
		}

		entries := deps.Resolver.ResolveBatch(r.Context(), reqs)

		results := make([]batchEntryResponse, len(entries))
		for i, e := range entries {
			recordLookup(deps, e.Request.CaseNumber, e.Request.Courts, e.Result, e.Err)
			if e.Err != nil {
				results[i] = batchEntryResponse{Error: e.Err.Error(), Kind: resolveErrorKind(e.Err)}
				continue
			}
			res := e.Result
			results[i] = batchEntryResponse{OK: true, Result: &res}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"results": results,
		})
	}
}

func resolveErrorKind(err error) string {
	var re *resolve.ResolveError
	if errors.As(err, &re) {
		return re.Kind
	}
	return "api_error"
}

// recordLookup appends an audit row for a resolution attempt. Failures
// here never affect the response.
func recordLookup(deps AppDeps, caseNumber string, courts []string, result resolve.Result, resolveErr error) {
	if deps.Store == nil {
		return
	}

	courtsJSON := "[]"
	if len(courts) > 0 {
		if b, err := json.Marshal(courts); err == nil {
			courtsJSON = string(b)
		}
	}

	l := storage.Lookup{
		ID:         uuid.New().String(),
		CaseNumber: caseNumber,
		Courts:     courtsJSON,
		OK:         resolveErr == nil,
		CreatedAt:  time.Now().UTC(),
	}
	if resolveErr != nil {
		l.ErrorKind = resolveErrorKind(resolveErr)
	} else if result.Docket != nil {
		l.DocketID = result.Docket.ID
	}

	if err := deps.Store.SaveLookup(l); err != nil {
		deps.Logger.Warn("recording lookup failed", "error", err)
	}
}

type researchResponse struct {
	OK bool `json:"ok"`
	report.Result
}

func handleResearch(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		body, err := io.ReadAll(r.Body)
		if err != nil {
			httpError(w, http.StatusBadRequest, resolve.KindInput, "reading request body: %v", err)
			return
		}
		if len(body) == 0 {
			body = []byte("{}")
		}
		if !json.Valid(body) {
			httpError(w, http.StatusBadRequest, resolve.KindInput, "request body must be valid JSON")
			return
		}

		result, err := deps.Pipeline.Run(r.Context(), body, r.Header.Get("Cookie"))
		recordPipelineRun(deps, result, err)
		if err != nil {
			writePipelineError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, researchResponse{OK: true, Result: result})
	}
}

// recordPipelineRun appends an audit row for a pipeline run, best-effort.
func recordPipelineRun(deps AppDeps, result report.Result, runErr error) {
	if deps.Store == nil {
		return
	}

	run := storage.PipelineRun{
		ID:         uuid.New().String(),
		AnalysisID: result.AnalysisID,
		Stage:      string(report.StageExecuted),
		CreatedAt:  time.Now().UTC(),
	}
	if runErr != nil {
		run.Stage = string(report.StageFailed)
		var se *report.StageError
		if errors.As(runErr, &se) {
			run.WhereFailed = se.Where
		} else {
			run.WhereFailed = report.StageMaterialize
		}
	}

	if err := deps.Store.SavePipelineRun(run); err != nil {
		deps.Logger.Warn("recording pipeline run failed", "error", err)
	}
}

type authorityResponse struct {
	OK      bool   `json:"ok"`
	CourtID string `json:"courtId"`
	Known   bool   `json:"known"`
	authority.CourtAuthority
}

func handleCourtAuthority(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		writeJSON(w, http.StatusOK, authorityResponse{
			OK:             true,
			CourtID:        id,
			Known:          deps.Authority.Known(id),
			CourtAuthority: deps.Authority.Score(id),
		})
	}
}

func handleListLookups(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)

		lookups, err := deps.Store.ListLookups(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing lookups: %v", err)
			return
		}
		if lookups == nil {
			lookups = []storage.Lookup{}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"lookups": lookups,
		})
	}
}

func handleGetLookup(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		l, err := deps.Store.GetLookup(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "lookup not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "getting lookup: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"ok":     true,
			"lookup": l,
		})
	}
}

func handleDeleteLookup(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		err := deps.Store.DeleteLookup(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "lookup not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "deleting lookup: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"ok":     true,
			"status": "deleted",
		})
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

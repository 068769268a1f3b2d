package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/kalambet/courtlens/internal/report"
	"github.com/kalambet/courtlens/internal/resolve"
)

// httpError writes the failure envelope. kind classifies the failure for
// programmatic callers.
func httpError(w http.ResponseWriter, code int, kind string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"ok":    false,
		"error": fmt.Sprintf(format, args...),
		"kind":  kind,
	})
}

// httpStageError is the failure envelope for pipeline stage rejections.
// where names the failing stage instead of a kind.
func httpStageError(w http.ResponseWriter, code int, where, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"ok":    false,
		"error": message,
		"where": where,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// writeResolveError maps a resolution failure onto the envelope. Upstream
// rejections mirror the upstream status so callers can distinguish a 404
// docket from a 429 throttle.
func writeResolveError(w http.ResponseWriter, err error) {
	var re *resolve.ResolveError
	if !errors.As(err, &re) {
		httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
		return
	}

	switch re.Kind {
	case resolve.KindInput:
		httpError(w, http.StatusBadRequest, re.Kind, "%s", re.Message)
	default:
		status := re.Status
		if status == 0 {
			status = http.StatusBadGateway
		}
		httpError(w, status, re.Kind, "%s", re.Message)
	}
}

// writePipelineError maps a pipeline failure onto the envelope.
func writePipelineError(w http.ResponseWriter, err error) {
	var se *report.StageError
	if errors.As(err, &se) {
		status := se.Status
		if status < 400 {
			status = http.StatusBadGateway
		}
		httpStageError(w, status, se.Where, se.Error())
		return
	}

	var ce *report.ContractError
	if errors.As(err, &ce) {
		httpStageError(w, http.StatusBadGateway, report.StageMaterialize, ce.Error())
		return
	}

	httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
}

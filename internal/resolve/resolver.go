// Package resolve turns a user-supplied case number into a canonical
// docket plus its filed documents, annotated with court authority and
// provenance.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/courtlens/internal/authority"
	"github.com/kalambet/courtlens/internal/courtlistener"
)

const (
	// DefaultLimit is substituted when the caller supplies no page size
	// at all. A supplied value, zero included, is clamped instead.
	DefaultLimit = 10
	// MaxLimit caps the upstream page size.
	MaxLimit = 50

	recapSourceTag = "courtlistener_recap"
)

// Error kinds for ResolveError.
const (
	KindInput        = "invalid_input"
	KindDocketLookup = "docket_lookup"
)

// ResolveError is a resolution failure with enough context for the caller
// to diagnose without re-querying upstream. Status is the upstream HTTP
// status when Kind is KindDocketLookup (0 when the failure was local).
type ResolveError struct {
	Kind    string
	Status  int
	Message string
	Details string
}

func (e *ResolveError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (HTTP %d)", e.Kind, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Request is one resolution request.
type Request struct {
	CaseNumber string   `json:"caseNumber"`
	Courts     []string `json:"courts,omitempty"`
	Limit      int      `json:"limit,omitempty"`
}

// Docket is the canonical case record included in a Result.
type Docket struct {
	ID           string `json:"id"`
	CaseName     string `json:"caseName,omitempty"`
	CourtID      string `json:"courtId,omitempty"`
	DocketNumber string `json:"docketNumber,omitempty"`
	DateFiled    string `json:"dateFiled,omitempty"`
	URL          string `json:"url,omitempty"`
}

// Document is a normalized RECAP document.
type Document struct {
	ID               string `json:"id"`
	Description      string `json:"description,omitempty"`
	DocumentNumber   string `json:"documentNumber,omitempty"`
	AttachmentNumber int    `json:"attachmentNumber,omitempty"`
	DateFiled        string `json:"dateFiled,omitempty"`
	URL              string `json:"url,omitempty"`
	DownloadURL      string `json:"downloadUrl,omitempty"`
	Source           string `json:"source"`
}

// Provenance records which upstream endpoints produced the result and
// when it was assembled. FetchedAt is assembly time, not upstream fetch
// time; callers use it for cache-age reasoning.
type Provenance struct {
	DocketSource string    `json:"docketSource"`
	RecapSource  string    `json:"recapSource"`
	FetchedAt    time.Time `json:"fetchedAt"`
}

// Result is a completed resolution. Docket is nil when upstream returned
// zero dockets; that is a valid outcome, not an error.
type Result struct {
	CaseNumber string                    `json:"caseNumber"`
	Docket     *Docket                   `json:"docket"`
	Authority  *authority.CourtAuthority `json:"authority,omitempty"`
	Recap      []Document                `json:"recap"`
	Provenance Provenance                `json:"provenance"`
}

// Resolver performs case resolution against CourtListener.
type Resolver struct {
	client *courtlistener.Client
	scorer *authority.Scorer
	logger *slog.Logger
}

// New creates a Resolver. Both collaborators are required.
func New(client *courtlistener.Client, scorer *authority.Scorer) *Resolver {
	return &Resolver{
		client: client,
		scorer: scorer,
		logger: slog.Default(),
	}
}

// ClampLimit bounds a page size into [1, MaxLimit]. An explicit zero or
// negative limit clamps to 1; callers that allow the limit to be omitted
// substitute DefaultLimit before resolving.
func ClampLimit(limit int) int {
	switch {
	case limit < 1:
		return 1
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// Resolve looks up the canonical docket for req.CaseNumber and enriches
// it with filed documents and court authority. The docket lookup is
// authoritative: its failure fails the resolution. The document lookup is
// best-effort: its failure degrades to an empty list.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Result, error) {
	caseNumber := strings.TrimSpace(req.CaseNumber)
	if caseNumber == "" {
		return Result{}, &ResolveError{Kind: KindInput, Message: "caseNumber is required"}
	}
	limit := ClampLimit(req.Limit)

	dockets, err := r.client.SearchDockets(ctx, caseNumber, req.Courts, limit)
	if err != nil {
		return Result{}, docketLookupError(err)
	}

	result := Result{
		CaseNumber: caseNumber,
		Recap:      []Document{},
		Provenance: Provenance{
			DocketSource: r.client.BaseURL() + courtlistener.DocketsPath,
			RecapSource:  r.client.BaseURL() + courtlistener.RecapDocumentsPath,
			FetchedAt:    time.Now().UTC(),
		},
	}

	if len(dockets) == 0 {
		return result, nil
	}

	// First result in upstream order is canonical; no local re-ranking.
	canonical := dockets[0]
	result.Docket = &Docket{
		ID:           string(canonical.ID),
		CaseName:     canonical.CaseName,
		CourtID:      canonical.CourtID,
		DocketNumber: canonical.DocketNumber,
		DateFiled:    canonical.DateFiled,
		URL:          r.absoluteURL(canonical.AbsoluteURL),
	}
	if canonical.CourtID != "" {
		a := r.scorer.Score(canonical.CourtID)
		result.Authority = &a
	}

	if canonical.ID == "" {
		return result, nil
	}

	docs, err := r.client.SearchRecapDocuments(ctx, string(canonical.ID), limit)
	if err != nil {
		// Document enrichment is best-effort; partial data beats no data.
		r.logger.Warn("recap document lookup failed",
			"case_number", caseNumber,
			"docket_id", canonical.ID,
			"error", err,
		)
		return result, nil
	}

	for _, d := range docs {
		result.Recap = append(result.Recap, r.normalizeDocument(d))
	}
	return result, nil
}

// normalizeDocument maps an upstream RECAP document to the response
// shape, picking the first non-empty download location and making
// relative paths absolute.
func (r *Resolver) normalizeDocument(d courtlistener.RecapDocument) Document {
	download := d.FilepathLocal
	if download == "" {
		download = d.FilepathIA
	}
	return Document{
		ID:               string(d.ID),
		Description:      d.Description,
		DocumentNumber:   d.DocumentNumber,
		AttachmentNumber: d.AttachmentNumber,
		DateFiled:        d.DateFiled,
		URL:              r.absoluteURL(d.AbsoluteURL),
		DownloadURL:      r.absoluteURL(download),
		Source:           recapSourceTag,
	}
}

// absoluteURL prefixes the upstream base URL onto relative paths.
func (r *Resolver) absoluteURL(path string) string {
	if path == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return r.client.BaseURL() + path
}

// docketLookupError maps a client failure onto a ResolveError preserving
// the upstream status. Decode failures get a fixed internal status so
// callers can tell "upstream rejected us" from "upstream lied about its
// content type".
func docketLookupError(err error) *ResolveError {
	re := &ResolveError{Kind: KindDocketLookup, Message: err.Error()}
	switch e := err.(type) {
	case *courtlistener.APIError:
		re.Status = e.Status
		re.Details = e.Body
	case *courtlistener.DecodeError:
		re.Status = 500
	default:
		// Transport failure (timeout, refused connection).
		re.Status = 502
	}
	return re
}

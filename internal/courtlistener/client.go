// Package courtlistener is a thin client for the CourtListener REST API.
// It performs no retries and keeps no state; retry policy belongs to
// callers.
package courtlistener

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://www.courtlistener.com"
	defaultTimeout = 8 * time.Second

	// DocketsPath and RecapDocumentsPath are the two read endpoints this
	// client uses; exported so callers can tag provenance.
	DocketsPath        = "/api/rest/v4/dockets/"
	RecapDocumentsPath = "/api/rest/v4/recap-documents/"

	// maxErrorBody bounds how much of an upstream error body is kept for
	// diagnostics.
	maxErrorBody = 2000
)

// APIError is returned when the upstream responds with a non-2xx status.
// Body holds at most maxErrorBody bytes of the raw response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("courtlistener returned HTTP %d", e.Status)
}

// DecodeError is returned when the upstream reports success but the body
// is not valid JSON. Callers can distinguish it from an upstream
// rejection.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding courtlistener response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Client issues authenticated requests to CourtListener.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a Client with the given API token.
func New(token string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// NewWithBaseURL creates a Client pointing at a custom base URL (for
// testing or a mirror).
func NewWithBaseURL(token, baseURL string) *Client {
	c := New(token)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// BaseURL returns the base URL requests are issued against.
func (c *Client) BaseURL() string { return c.baseURL }

// SearchDockets looks up dockets by exact docket number. Zero or more
// court identifiers narrow the search (OR semantics upstream, repeated
// `court` parameters).
func (c *Client) SearchDockets(ctx context.Context, docketNumber string, courts []string, pageSize int) ([]Docket, error) {
	params := url.Values{
		"docket_number": {docketNumber},
		"page_size":     {strconv.Itoa(pageSize)},
	}
	for _, court := range courts {
		params.Add("court", court)
	}

	raw, err := c.getPage(ctx, DocketsPath, params)
	if err != nil {
		return nil, err
	}
	dockets := make([]Docket, 0, len(raw))
	for _, item := range raw {
		var d Docket
		// Malformed per-item fields are treated as absent, not fatal;
		// whatever decoded before the error is kept.
		_ = json.Unmarshal(item, &d)
		dockets = append(dockets, d)
	}
	return dockets, nil
}

// SearchRecapDocuments lists RECAP documents filed under a docket.
func (c *Client) SearchRecapDocuments(ctx context.Context, docketID string, pageSize int) ([]RecapDocument, error) {
	params := url.Values{
		"docket":    {docketID},
		"page_size": {strconv.Itoa(pageSize)},
	}

	raw, err := c.getPage(ctx, RecapDocumentsPath, params)
	if err != nil {
		return nil, err
	}
	docs := make([]RecapDocument, 0, len(raw))
	for _, item := range raw {
		var d RecapDocument
		_ = json.Unmarshal(item, &d)
		docs = append(docs, d)
	}
	return docs, nil
}

// getPage issues one GET and returns the raw items of the `results`
// array. Non-2xx statuses become *APIError, unparsable success bodies
// become *DecodeError; the response body is closed on every path.
func (c *Client) getPage(ctx context.Context, path string, params url.Values) ([]json.RawMessage, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept", "application/json")
	// Always revalidate; docket state moves under us.
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	var page struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return page.Results, nil
}

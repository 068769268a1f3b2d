package api

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/courtlens/internal/authority"
	"github.com/kalambet/courtlens/internal/resolve"
	"github.com/kalambet/courtlens/internal/storage"
)

// --- mocks ---

type mockResolver struct {
	result  resolve.Result
	err     error
	lastReq resolve.Request
}

func (m *mockResolver) Resolve(_ context.Context, req resolve.Request) (resolve.Result, error) {
	m.lastReq = req
	return m.result, m.err
}

// --- helpers ---

func newTestMCPDeps(t *testing.T) (MCPDeps, *mockResolver, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	resolver := &mockResolver{}
	return MCPDeps{
		Resolver:  resolver,
		Authority: authority.New(),
		Store:     store,
	}, resolver, store
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// --- tests ---

func TestMCPResolveCase(t *testing.T) {
	deps, resolver, _ := newTestMCPDeps(t)
	resolver.result = resolve.Result{
		CaseNumber: "2:23-cv-11111",
		Docket:     &resolve.Docket{ID: "12345", CourtID: "mied"},
		Recap:      []resolve.Document{},
	}

	handler := mcpResolveCase(deps)
	result, err := handler(context.Background(), makeCallToolRequest("resolve_case", map[string]interface{}{
		"case_number": "2:23-cv-11111",
		"courts":      []interface{}{"mied"},
		"limit":       float64(5),
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}

	if resolver.lastReq.CaseNumber != "2:23-cv-11111" || resolver.lastReq.Limit != 5 {
		t.Errorf("request = %+v", resolver.lastReq)
	}
	if len(resolver.lastReq.Courts) != 1 || resolver.lastReq.Courts[0] != "mied" {
		t.Errorf("courts = %v", resolver.lastReq.Courts)
	}

	var decoded resolve.Result
	if err := json.Unmarshal([]byte(toolText(t, result)), &decoded); err != nil {
		t.Fatalf("tool output is not JSON: %v", err)
	}
	if decoded.Docket == nil || decoded.Docket.ID != "12345" {
		t.Errorf("docket = %+v", decoded.Docket)
	}
}

func TestMCPResolveCase_MissingCaseNumber(t *testing.T) {
	deps, _, _ := newTestMCPDeps(t)

	handler := mcpResolveCase(deps)
	result, err := handler(context.Background(), makeCallToolRequest("resolve_case", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error for missing case_number")
	}
}

func TestMCPResolveCase_ResolutionFailure(t *testing.T) {
	deps, resolver, _ := newTestMCPDeps(t)
	resolver.err = errors.New("upstream unreachable")

	handler := mcpResolveCase(deps)
	result, _ := handler(context.Background(), makeCallToolRequest("resolve_case", map[string]interface{}{
		"case_number": "x",
	}))
	if !result.IsError {
		t.Error("expected tool error when resolution fails")
	}
}

func TestMCPScoreCourt(t *testing.T) {
	deps, _, _ := newTestMCPDeps(t)

	handler := mcpScoreCourt(deps)
	result, err := handler(context.Background(), makeCallToolRequest("score_court", map[string]interface{}{
		"court_id": "mich",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}

	var resp struct {
		CourtID string `json:"courtId"`
		Known   bool   `json:"known"`
		Score   int    `json:"score"`
		Binding bool   `json:"binding"`
	}
	if err := json.Unmarshal([]byte(toolText(t, result)), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.CourtID != "mich" || !resp.Known || resp.Score != 95 || !resp.Binding {
		t.Errorf("resp = %+v", resp)
	}
}

func TestMCPListLookups(t *testing.T) {
	deps, _, store := newTestMCPDeps(t)

	if err := store.SaveLookup(storage.Lookup{ID: "lk-1", CaseNumber: "x", OK: true}); err != nil {
		t.Fatal(err)
	}

	handler := mcpListLookups(deps)
	result, err := handler(context.Background(), makeCallToolRequest("list_lookups", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}

	var lookups []storage.Lookup
	if err := json.Unmarshal([]byte(toolText(t, result)), &lookups); err != nil {
		t.Fatal(err)
	}
	if len(lookups) != 1 || lookups[0].ID != "lk-1" {
		t.Errorf("lookups = %+v", lookups)
	}
}

func TestMCPListLookups_NoStore(t *testing.T) {
	deps, _, _ := newTestMCPDeps(t)
	deps.Store = nil

	handler := mcpListLookups(deps)
	result, _ := handler(context.Background(), makeCallToolRequest("list_lookups", map[string]interface{}{}))
	if !result.IsError {
		t.Error("expected tool error when store is unavailable")
	}
}

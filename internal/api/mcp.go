package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/courtlens/internal/authority"
	"github.com/kalambet/courtlens/internal/resolve"
	"github.com/kalambet/courtlens/internal/storage"
)

// MCPResolver abstracts case resolution for the MCP layer.
type MCPResolver interface {
	Resolve(ctx context.Context, req resolve.Request) (resolve.Result, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Resolver  MCPResolver
	Authority *authority.Scorer
	Store     *storage.Store // optional; if nil, list_lookups reports an error
}

// NewMCPServer creates an MCP server with all courtlens tools registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"courtlens",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("courtlens — resolve court cases against CourtListener and score court authority."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("resolve_case",
			mcp.WithDescription("Resolve a case number to its canonical docket, filed documents, and court authority."),
			mcp.WithString("case_number", mcp.Description("Docket number to resolve, e.g. 2:23-cv-11111"), mcp.Required()),
			mcp.WithArray("courts", mcp.Description("Optional CourtListener court IDs to restrict the search")),
			mcp.WithNumber("limit", mcp.Description("Maximum candidates per upstream query (default 10, max 50)")),
		),
		mcpResolveCase(deps),
	)

	s.AddTool(
		mcp.NewTool("score_court",
			mcp.WithDescription("Return the authority record (score, binding, level) for a CourtListener court ID."),
			mcp.WithString("court_id", mcp.Description("CourtListener court identifier, e.g. mied"), mcp.Required()),
		),
		mcpScoreCourt(deps),
	)

	s.AddTool(
		mcp.NewTool("list_lookups",
			mcp.WithDescription("List recent case resolution history entries."),
			mcp.WithNumber("limit", mcp.Description("Maximum entries to return (default 20)")),
		),
		mcpListLookups(deps),
	)

	return s
}

func mcpResolveCase(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		caseNumber, err := req.RequireString("case_number")
		if err != nil {
			return mcpError("case_number is required"), nil
		}

		courts := req.GetStringSlice("courts", nil)
		limit := req.GetInt("limit", resolve.DefaultLimit)

		result, err := deps.Resolver.Resolve(ctx, resolve.Request{
			CaseNumber: caseNumber,
			Courts:     courts,
			Limit:      limit,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("resolution failed: %v", err)), nil
		}

		b, err := json.Marshal(result)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpScoreCourt(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		courtID, err := req.RequireString("court_id")
		if err != nil {
			return mcpError("court_id is required"), nil
		}

		b, err := json.Marshal(authorityResponse{
			OK:             true,
			CourtID:        courtID,
			Known:          deps.Authority.Known(courtID),
			CourtAuthority: deps.Authority.Score(courtID),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal record: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListLookups(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Store == nil {
			return mcpError("lookup history not available"), nil
		}

		limit := req.GetInt("limit", 20)
		if limit <= 0 {
			limit = 20
		}
		if limit > 100 {
			limit = 100
		}

		lookups, err := deps.Store.ListLookups(limit)
		if err != nil {
			return mcpError(fmt.Sprintf("listing lookups failed: %v", err)), nil
		}
		if lookups == nil {
			lookups = []storage.Lookup{}
		}

		b, err := json.Marshal(lookups)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal lookups: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

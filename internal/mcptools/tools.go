// Package mcptools exposes supportdesk to operator AI assistants over MCP.
//
// Each tool is a struct with its dependency injected through the constructor,
// a Definition that returns the mcp.Tool schema, and a Handle method.
package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/MikeSquared-Agency/supportdesk/internal/conversations"
	"github.com/MikeSquared-Agency/supportdesk/internal/livecalls"
	"github.com/MikeSquared-Agency/supportdesk/internal/support"
)

type Searcher interface {
	Search(ctx context.Context, namespace, query string, limit int) ([]support.SearchEntry, error)
}

type ConversationLister interface {
	List(ctx context.Context, orgID string, status support.ConversationStatus, page support.PageRequest) (support.Page[conversations.Entry], error)
}

type CallBoard interface {
	List(ctx context.Context, orgID string) (*livecalls.Board, error)
}

// SearchTool handles search_knowledge_base.
type SearchTool struct {
	searcher Searcher
}

func NewSearchTool(s Searcher) *SearchTool { return &SearchTool{searcher: s} }

func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("search_knowledge_base",
		mcp.WithDescription("Search an organization's uploaded support documents."),
		mcp.WithString("organization_id", mcp.Required(), mcp.Description("Organization whose knowledge base to search")),
		mcp.WithString("query", mcp.Required(), mcp.Description("Natural language query")),
		mcp.WithNumber("limit", mcp.Description("Max results (default: 5, max: 20)")),
	)
}

func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	org := req.GetString("organization_id", "")
	query := strings.TrimSpace(req.GetString("query", ""))
	if org == "" || query == "" {
		return mcp.NewToolResultError("'organization_id' and 'query' are required"), nil
	}
	limit := clamp(intArg(req, "limit", 5), 1, 20)

	entries, err := t.searcher.Search(ctx, org, query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("No matching documents."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d results:\n\n", len(entries))
	for i, e := range entries {
		fmt.Fprintf(&b, "[%d] %s (score %.2f)\n    %s\n\n", i+1, e.Title, e.Score, truncate(e.Text, 400))
	}
	return mcp.NewToolResultText(b.String()), nil
}

// ConversationsTool handles list_conversations.
type ConversationsTool struct {
	convs ConversationLister
}

func NewConversationsTool(c ConversationLister) *ConversationsTool {
	return &ConversationsTool{convs: c}
}

func (t *ConversationsTool) Definition() mcp.Tool {
	return mcp.NewTool("list_conversations",
		mcp.WithDescription("List an organization's most recent support conversations with their last message."),
		mcp.WithString("organization_id", mcp.Required(), mcp.Description("Organization to list")),
		mcp.WithString("status", mcp.Description("Filter: unresolved, escalated or resolved")),
		mcp.WithNumber("limit", mcp.Description("Max results (default: 10, max: 100)")),
	)
}

func (t *ConversationsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	org := req.GetString("organization_id", "")
	if org == "" {
		return mcp.NewToolResultError("'organization_id' is required"), nil
	}
	status := support.ConversationStatus(req.GetString("status", ""))
	if status != "" {
		if _, err := support.ParseConversationStatus(string(status)); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	page, err := t.convs.List(ctx, org, status, support.PageRequest{Limit: intArg(req, "limit", 10)}.Normalize())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	if len(page.Page) == 0 {
		return mcp.NewToolResultText("No conversations."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d conversations:\n\n", len(page.Page))
	for _, e := range page.Page {
		contact := "unknown contact"
		if e.ContactSession != nil {
			contact = e.ContactSession.Name + " <" + e.ContactSession.Email + ">"
		}
		last := "(no messages)"
		if e.LastMessage != nil {
			last = truncate(e.LastMessage.Content, 200)
		}
		fmt.Fprintf(&b, "- %s [%s] %s\n    %s\n", e.ID, e.Status, contact, last)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// CallMetricsTool handles live_call_metrics.
type CallMetricsTool struct {
	board CallBoard
}

func NewCallMetricsTool(b CallBoard) *CallMetricsTool { return &CallMetricsTool{board: b} }

func (t *CallMetricsTool) Definition() mcp.Tool {
	return mcp.NewTool("live_call_metrics",
		mcp.WithDescription("Summarize an organization's active voice calls and dashboard KPIs."),
		mcp.WithString("organization_id", mcp.Required(), mcp.Description("Organization to summarize")),
	)
}

func (t *CallMetricsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	org := req.GetString("organization_id", "")
	if org == "" {
		return mcp.NewToolResultError("'organization_id' is required"), nil
	}
	board, err := t.board.List(ctx, org)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("metrics failed: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Live calls: %d\nIntervention rate: %d%%\nAvg resolution: %.0fs\n",
		board.KPI.LiveConcurrentCalls, board.KPI.InterventionRate, board.KPI.AvgResolutionMs/1000)
	for _, c := range board.Calls {
		fmt.Fprintf(&b, "- %s %s (%s) sentiment %.2f %s alert=%s\n",
			c.Customer, c.Intent, c.Status, c.SentimentScore, livecalls.SentimentBand(c.SentimentScore), c.AlertLevel)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// intArg reads a numeric argument. JSON numbers arrive as float64.
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

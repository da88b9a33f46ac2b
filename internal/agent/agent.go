package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/supportdesk/internal/support"
)

// ThreadStore persists threads and their messages.
type ThreadStore interface {
	InsertThread(ctx context.Context, t support.Thread) error
	InsertMessage(ctx context.Context, m support.Message) error
	ListMessages(ctx context.Context, threadID uuid.UUID, page support.PageRequest) (support.Page[support.Message], error)
	RecentMessages(ctx context.Context, threadID uuid.UUID, n int) ([]support.Message, error)
}

// Tool is a capability the agent can invoke on a thread.
type Tool interface {
	Spec() ToolSpec
	Call(ctx context.Context, threadID uuid.UUID, call ToolCall) (string, error)
}

// Options configures an Agent.
type Options struct {
	Name         string
	Instructions string
	MaxSteps     int
	HistoryLimit int
}

// Agent runs a model over a thread, executing tool calls until it produces text.
type Agent struct {
	opts    Options
	model   Model
	threads ThreadStore
	tools   map[string]Tool
	order   []string
	logger  *slog.Logger
	now     func() time.Time
}

func New(model Model, threads ThreadStore, opts Options, logger *slog.Logger) *Agent {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = 5
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 50
	}
	return &Agent{
		opts:    opts,
		model:   model,
		threads: threads,
		tools:   make(map[string]Tool),
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Name is the display name used on messages the agent writes.
func (a *Agent) Name() string { return a.opts.Name }

// Model returns the underlying model, for tools that need a side completion.
func (a *Agent) Model() Model { return a.model }

// Register adds tools. A later tool with the same name replaces an earlier one.
func (a *Agent) Register(tools ...Tool) {
	for _, t := range tools {
		name := t.Spec().Name
		if _, exists := a.tools[name]; !exists {
			a.order = append(a.order, name)
		}
		a.tools[name] = t
	}
}

// CreateThread starts a new thread owned by userID.
func (a *Agent) CreateThread(ctx context.Context, userID string) (uuid.UUID, error) {
	t := support.Thread{ID: uuid.New(), UserID: userID, CreatedAt: a.now()}
	if err := a.threads.InsertThread(ctx, t); err != nil {
		return uuid.Nil, err
	}
	return t.ID, nil
}

// SaveMessage appends a message to a thread and returns it as stored.
func (a *Agent) SaveMessage(ctx context.Context, threadID uuid.UUID, role, content, agentName string) (support.Message, error) {
	m := support.Message{
		ID:        uuid.New(),
		ThreadID:  threadID,
		Role:      role,
		Content:   content,
		AgentName: agentName,
		CreatedAt: a.now(),
	}
	if err := a.threads.InsertMessage(ctx, m); err != nil {
		return support.Message{}, err
	}
	return m, nil
}

// ListMessages returns a page of a thread's messages, newest first.
func (a *Agent) ListMessages(ctx context.Context, threadID uuid.UUID, page support.PageRequest) (support.Page[support.Message], error) {
	return a.threads.ListMessages(ctx, threadID, page)
}

// LastMessage returns the newest message on a thread, or nil for an empty thread.
func (a *Agent) LastMessage(ctx context.Context, threadID uuid.UUID) (*support.Message, error) {
	page, err := a.threads.ListMessages(ctx, threadID, support.PageRequest{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(page.Page) == 0 {
		return nil, nil
	}
	m := page.Page[0]
	return &m, nil
}

// GenerateText records the user's prompt, runs the model with tools over the
// thread history, and saves the final reply. It returns the saved reply, which
// is empty when the model ends on a tool call without text.
func (a *Agent) GenerateText(ctx context.Context, threadID uuid.UUID, prompt string) (string, error) {
	if _, err := a.SaveMessage(ctx, threadID, support.RoleUser, prompt, ""); err != nil {
		return "", fmt.Errorf("save prompt: %w", err)
	}

	history, err := a.threads.RecentMessages(ctx, threadID, a.opts.HistoryLimit)
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}

	turns := historyTurns(history)
	specs := a.toolSpecs()

	var reply string
	for step := 0; step < a.opts.MaxSteps; step++ {
		resp, err := a.model.Generate(ctx, Request{
			System:   a.opts.Instructions,
			Messages: turns,
			Tools:    specs,
		})
		if err != nil {
			return "", fmt.Errorf("model generate: %w", err)
		}

		reply = strings.TrimSpace(resp.Text)
		if len(resp.ToolCalls) == 0 {
			break
		}

		turns = append(turns, Turn{Role: TurnAssistant, Text: resp.Text, ToolCalls: resp.ToolCalls})
		results := make([]ToolResult, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			results = append(results, a.runTool(ctx, threadID, call))
		}
		turns = append(turns, Turn{Role: TurnUser, ToolResults: results})

		if step == a.opts.MaxSteps-1 {
			a.logger.Warn("agent step limit reached", "thread_id", threadID, "steps", a.opts.MaxSteps)
		}
	}

	if reply == "" {
		return "", nil
	}
	if _, err := a.SaveMessage(ctx, threadID, support.RoleAssistant, reply, a.opts.Name); err != nil {
		return "", fmt.Errorf("save reply: %w", err)
	}
	return reply, nil
}

func (a *Agent) runTool(ctx context.Context, threadID uuid.UUID, call ToolCall) ToolResult {
	res := ToolResult{CallID: call.ID, Name: call.Name}

	tool, ok := a.tools[call.Name]
	if !ok {
		res.Content = "Unknown tool: " + call.Name
		a.logger.Warn("model called unknown tool", "tool", call.Name, "thread_id", threadID)
		return res
	}

	out, err := tool.Call(ctx, threadID, call)
	if err != nil {
		a.logger.Error("tool failed", "tool", call.Name, "thread_id", threadID, "error", err)
		res.Content = "Tool failed: " + err.Error()
		return res
	}

	a.logger.Info("tool called", "tool", call.Name, "thread_id", threadID)
	res.Content = out
	return res
}

func (a *Agent) toolSpecs() []ToolSpec {
	specs := make([]ToolSpec, 0, len(a.order))
	for _, name := range a.order {
		specs = append(specs, a.tools[name].Spec())
	}
	return specs
}

// historyTurns converts stored messages into model turns, merging consecutive
// messages from the same side.
func historyTurns(msgs []support.Message) []Turn {
	var turns []Turn
	for _, m := range msgs {
		role := TurnUser
		if m.Role == support.RoleAssistant {
			role = TurnAssistant
		}
		if n := len(turns); n > 0 && turns[n-1].Role == role {
			turns[n-1].Text += "\n\n" + m.Content
			continue
		}
		turns = append(turns, Turn{Role: role, Text: m.Content})
	}
	return turns
}

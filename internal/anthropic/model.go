package anthropic

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/supportdesk/internal/agent"
	"github.com/MikeSquared-Agency/supportdesk/internal/extractor"
)

const defaultMaxTokens = 4096

// Model adapts the client to the agent runtime and the document extractor.
type Model struct {
	client    *Client
	maxTokens int
}

func NewModel(client *Client) *Model {
	return &Model{client: client, maxTokens: defaultMaxTokens}
}

// Generate runs one model step with tool use.
func (m *Model) Generate(ctx context.Context, req agent.Request) (*agent.Response, error) {
	msgs := toMessages(req.Messages)
	tools := make([]Tool, 0, len(req.Tools))
	for _, spec := range req.Tools {
		tools = append(tools, toTool(spec))
	}

	blocks, err := m.client.CompleteWithTools(ctx, req.System, msgs, tools, m.maxTokens)
	if err != nil {
		return nil, err
	}

	var out agent.Response
	var text []string
	for _, b := range blocks {
		switch b.Type {
		case "text":
			text = append(text, b.Text)
		case "tool_use":
			args, _ := b.Input.(map[string]any)
			out.ToolCalls = append(out.ToolCalls, agent.ToolCall{ID: b.ID, Name: b.Name, Args: args})
		}
	}
	out.Text = strings.Join(text, "")
	return &out, nil
}

// Transcribe turns a document into text. Images and PDFs are sent as base64
// blocks; anything else is sent inline as text.
func (m *Model) Transcribe(ctx context.Context, system string, doc extractor.Document, instruction string) (string, error) {
	var blocks []Block
	switch {
	case strings.HasPrefix(doc.MimeType, "image/"):
		blocks = append(blocks, Block{Type: "image", Source: base64Source(doc)})
	case strings.Contains(doc.MimeType, "pdf"):
		blocks = append(blocks, Block{Type: "document", Source: base64Source(doc)})
	default:
		blocks = append(blocks, Block{Type: "text", Text: string(doc.Bytes)})
	}
	if instruction != "" {
		blocks = append(blocks, Block{Type: "text", Text: instruction})
	}

	text, err := m.client.Complete(ctx, system, []Message{{Role: "user", Content: blocks}}, m.maxTokens)
	if err != nil {
		return "", fmt.Errorf("transcribe %s: %w", doc.FileName, err)
	}
	return text, nil
}

func base64Source(doc extractor.Document) *Source {
	return &Source{Type: "base64", MediaType: doc.MimeType, Data: base64.StdEncoding.EncodeToString(doc.Bytes)}
}

func toTool(spec agent.ToolSpec) Tool {
	schema := InputSchema{Type: "object", Properties: map[string]Property{}}
	for _, p := range spec.Params {
		schema.Properties[p.Name] = Property{Type: "string", Description: p.Description}
		if p.Required {
			schema.Required = append(schema.Required, p.Name)
		}
	}
	return Tool{Name: spec.Name, Description: spec.Description, InputSchema: schema}
}

// toMessages converts agent turns. The API requires the first turn to be from
// the user, so a leading assistant turn gets an empty-context user turn first.
func toMessages(turns []agent.Turn) []Message {
	msgs := make([]Message, 0, len(turns)+1)
	if len(turns) > 0 && turns[0].Role == agent.TurnAssistant {
		msgs = append(msgs, Message{Role: "user", Content: "(conversation started)"})
	}
	for _, t := range turns {
		var blocks []Block
		if t.Text != "" {
			blocks = append(blocks, Block{Type: "text", Text: t.Text})
		}
		for _, call := range t.ToolCalls {
			input := call.Args
			if input == nil {
				input = map[string]any{}
			}
			blocks = append(blocks, Block{Type: "tool_use", ID: call.ID, Name: call.Name, Input: input})
		}
		for _, res := range t.ToolResults {
			blocks = append(blocks, Block{Type: "tool_result", ToolUseID: res.CallID, Content: res.Content})
		}
		if len(blocks) == 0 {
			continue
		}
		role := "user"
		if t.Role == agent.TurnAssistant {
			role = "assistant"
		}
		msgs = append(msgs, Message{Role: role, Content: blocks})
	}
	return msgs
}

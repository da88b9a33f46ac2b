package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/MikeSquared-Agency/supportdesk/internal/agent"
	"github.com/MikeSquared-Agency/supportdesk/internal/extractor"
)

// Model runs agent steps and document transcription on a Gemini model.
type Model struct {
	client *genai.Client
	model  string
}

func NewModel(client *genai.Client, model string) *Model {
	return &Model{client: client, model: model}
}

// Generate runs one model step with function calling.
func (m *Model) Generate(ctx context.Context, req agent.Request) (*agent.Response, error) {
	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, spec := range req.Tools {
			decls = append(decls, toDeclaration(spec))
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.model, toContents(req.Messages), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	return fromResponse(resp), nil
}

// Transcribe sends a document inline with an instruction and returns the
// model's text. Images and PDFs go as bytes, everything else as text.
func (m *Model) Transcribe(ctx context.Context, system string, doc extractor.Document, instruction string) (string, error) {
	var parts []*genai.Part
	switch extractor.KindOf(doc.MimeType) {
	case extractor.KindImage, extractor.KindPDF:
		parts = append(parts, genai.NewPartFromBytes(doc.Bytes, doc.MimeType))
	default:
		parts = append(parts, genai.NewPartFromText(string(doc.Bytes)))
	}
	if instruction != "" {
		parts = append(parts, genai.NewPartFromText(instruction))
	}

	cfg := &genai.GenerateContentConfig{SystemInstruction: genai.NewContentFromText(system, genai.RoleUser)}
	resp, err := m.client.Models.GenerateContent(ctx, m.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, cfg)
	if err != nil {
		return "", fmt.Errorf("transcribe %s: %w", doc.FileName, err)
	}
	return fromResponse(resp).Text, nil
}

func toDeclaration(spec agent.ToolSpec) *genai.FunctionDeclaration {
	decl := &genai.FunctionDeclaration{Name: spec.Name, Description: spec.Description}
	if len(spec.Params) == 0 {
		return decl
	}
	schema := &genai.Schema{Type: genai.TypeObject, Properties: make(map[string]*genai.Schema, len(spec.Params))}
	for _, p := range spec.Params {
		schema.Properties[p.Name] = &genai.Schema{Type: genai.TypeString, Description: p.Description}
		schema.PropertyOrdering = append(schema.PropertyOrdering, p.Name)
		if p.Required {
			schema.Required = append(schema.Required, p.Name)
		}
	}
	decl.Parameters = schema
	return decl
}

func toContents(turns []agent.Turn) []*genai.Content {
	out := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		var parts []*genai.Part
		for _, r := range t.ToolResults {
			part := genai.NewPartFromFunctionResponse(r.Name, map[string]any{"output": r.Content})
			part.FunctionResponse.ID = r.CallID
			parts = append(parts, part)
		}
		if t.Text != "" {
			parts = append(parts, genai.NewPartFromText(t.Text))
		}
		for _, c := range t.ToolCalls {
			part := genai.NewPartFromFunctionCall(c.Name, c.Args)
			part.FunctionCall.ID = c.ID
			parts = append(parts, part)
		}
		if len(parts) == 0 {
			continue
		}
		role := genai.RoleUser
		if t.Role == agent.TurnAssistant {
			role = genai.RoleModel
		}
		out = append(out, genai.NewContentFromParts(parts, genai.Role(role)))
	}
	return out
}

// fromResponse reads the first candidate. Thought parts are skipped.
func fromResponse(resp *genai.GenerateContentResponse) *agent.Response {
	out := &agent.Response{}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out
	}
	var text strings.Builder
	for i, part := range resp.Candidates[0].Content.Parts {
		switch {
		case part.FunctionCall != nil:
			fc := part.FunctionCall
			id := fc.ID
			if id == "" {
				id = fmt.Sprintf("%s_%d", fc.Name, i)
			}
			out.ToolCalls = append(out.ToolCalls, agent.ToolCall{ID: id, Name: fc.Name, Args: fc.Args})
		case part.Text != "" && !part.Thought:
			text.WriteString(part.Text)
		}
	}
	out.Text = strings.TrimSpace(text.String())
	return out
}

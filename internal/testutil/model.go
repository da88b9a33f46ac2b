package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/MikeSquared-Agency/supportdesk/internal/agent"
)

// ScriptedModel replays canned responses in order and records each request.
// Once the script is exhausted it returns Fallback, or an error when Fallback is nil.
type ScriptedModel struct {
	mu        sync.Mutex
	Responses []agent.Response
	Fallback  *agent.Response
	Err       error
	Requests  []agent.Request
}

func NewScriptedModel(responses ...agent.Response) *ScriptedModel {
	return &ScriptedModel{Responses: responses}
}

func (m *ScriptedModel) Generate(_ context.Context, req agent.Request) (*agent.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) == 0 {
		if m.Fallback != nil {
			resp := *m.Fallback
			return &resp, nil
		}
		return nil, errors.New("scripted model: no response left")
	}
	resp := m.Responses[0]
	m.Responses = m.Responses[1:]
	return &resp, nil
}

// Calls reports how many requests the model has served.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// Text is a response that ends the turn with text.
func Text(s string) agent.Response {
	return agent.Response{Text: s}
}

// Call is a response that asks for a single tool call.
func Call(name string, args map[string]any) agent.Response {
	return agent.Response{ToolCalls: []agent.ToolCall{{ID: "call_" + name, Name: name, Args: args}}}
}

// Publisher records published events.
type Publisher struct {
	mu     sync.Mutex
	Events []Event
	Err    error
}

type Event struct {
	Subject string
	Data    any
}

func (p *Publisher) Publish(subject string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Events = append(p.Events, Event{Subject: subject, Data: data})
	return nil
}

// Subjects lists the subjects published so far.
func (p *Publisher) Subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.Events))
	for i, e := range p.Events {
		out[i] = e.Subject
	}
	return out
}

package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

// Escalation describes a conversation handed to a human operator.
type Escalation struct {
	OrganizationID string
	ConversationID uuid.UUID
	ContactName    string
	ContactEmail   string
	LastMessage    string
}

type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// PostEscalation notifies the operators' channel that a conversation needs a human.
// Returns the message timestamp.
func (p *Poster) PostEscalation(ctx context.Context, esc Escalation) (string, error) {
	text := formatEscalationMessage(esc)

	body, err := json.Marshal(map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": text,
				},
			},
			{
				"type": "context",
				"elements": []map[string]any{
					{
						"type": "mrkdwn",
						"text": "Open the inbox to reply. The AI agent has stepped back.",
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return "", fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return "", fmt.Errorf("slack error: %s", slackResp.Error)
	}

	p.logger.Info("posted escalation to slack", "ts", slackResp.TS, "conversation_id", esc.ConversationID)
	return slackResp.TS, nil
}

func formatEscalationMessage(esc Escalation) string {
	var sb strings.Builder

	sb.WriteString(":rotating_light: *Conversation escalated*\n")
	fmt.Fprintf(&sb, "*Organization:* %s\n", esc.OrganizationID)
	fmt.Fprintf(&sb, "*Conversation:* %s\n", esc.ConversationID)

	switch {
	case esc.ContactName != "" && esc.ContactEmail != "":
		fmt.Fprintf(&sb, "*Contact:* %s <%s>\n", esc.ContactName, esc.ContactEmail)
	case esc.ContactName != "":
		fmt.Fprintf(&sb, "*Contact:* %s\n", esc.ContactName)
	}

	if esc.LastMessage != "" {
		last := truncate(esc.LastMessage, maxQuoteRunes)
		fmt.Fprintf(&sb, "\n> %s", strings.ReplaceAll(last, "\n", "\n> "))
	} else {
		sb.WriteString("\n_No messages yet._")
	}

	return sb.String()
}

// maxQuoteRunes bounds the quoted last message.
const maxQuoteRunes = 280

// truncate cuts s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

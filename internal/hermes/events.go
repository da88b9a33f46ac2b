package hermes

import (
	"time"

	"github.com/google/uuid"
)

// NATS subjects published by supportdesk.
const (
	SubjectConversationCreated       = "supportdesk.conversation.created"
	SubjectConversationStatusChanged = "supportdesk.conversation.status_changed"
	SubjectConversationEscalated     = "supportdesk.conversation.escalated"
	SubjectLiveCallHandoff           = "supportdesk.livecall.handoff"
	SubjectFileAdded                 = "supportdesk.file.added"
	SubjectSecretsUpsert             = "supportdesk.secrets.upsert"
	SubjectAgentRegistered           = "supportdesk.agent.registered"
)

// ConversationEvent is published when a conversation is created or changes status.
type ConversationEvent struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	OrganizationID string    `json:"organization_id"`
	ThreadID       uuid.UUID `json:"thread_id"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	Actor          string    `json:"actor,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// LiveCallHandoff is published when an operator takes over a live call.
type LiveCallHandoff struct {
	CallID         uuid.UUID `json:"call_id"`
	OrganizationID string    `json:"organization_id"`
	Customer       string    `json:"customer"`
	Intent         string    `json:"intent"`
	SentimentScore float64   `json:"sentiment_score"`
	Timestamp      time.Time `json:"timestamp"`
}

// FileAdded is published once a knowledge-base file has been processed.
type FileAdded struct {
	FileID         uuid.UUID `json:"file_id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	MimeType       string    `json:"mime_type"`
	Status         string    `json:"status"`
	Chunks         int       `json:"chunks"`
}

// SecretUpsertJob asks a worker to connect a plugin to credentials that are
// already in the secret store. It never carries the credentials themselves.
type SecretUpsertJob struct {
	OrganizationID string `json:"organization_id"`
	Service        string `json:"service"`
	SecretName     string `json:"secret_name"`
}

// AgentRegistered is published at startup with the agent's name and tools.
type AgentRegistered struct {
	Name      string    `json:"name"`
	Model     string    `json:"model"`
	Tools     []string  `json:"tools"`
	Timestamp time.Time `json:"timestamp"`
}

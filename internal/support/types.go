package support

import (
	"time"

	"github.com/google/uuid"
)

// ConversationStatus is the lifecycle state of a conversation.
type ConversationStatus string

const (
	StatusUnresolved ConversationStatus = "unresolved"
	StatusEscalated  ConversationStatus = "escalated"
	StatusResolved   ConversationStatus = "resolved"
)

// ParseConversationStatus validates a status string.
func ParseConversationStatus(s string) (ConversationStatus, error) {
	switch ConversationStatus(s) {
	case StatusUnresolved, StatusEscalated, StatusResolved:
		return ConversationStatus(s), nil
	default:
		return "", BadRequest("invalid conversation status: " + s)
	}
}

// SessionMetadata is what the widget reports about the visitor's browser.
type SessionMetadata struct {
	UserAgent      string   `json:"user_agent,omitempty"`
	Language       string   `json:"language,omitempty"`
	Languages      []string `json:"languages,omitempty"`
	Timezone       string   `json:"timezone,omitempty"`
	TimezoneOffset *int     `json:"timezone_offset,omitempty"`
	CookieEnabled  *bool    `json:"cookie_enabled,omitempty"`
	ViewportSize   string   `json:"viewport_size,omitempty"`
	Referrer       string   `json:"referrer,omitempty"`
}

// ContactSession is the short-lived identity of an anonymous widget visitor.
type ContactSession struct {
	ID             uuid.UUID        `json:"id"`
	Name           string           `json:"name"`
	Email          string           `json:"email"`
	OrganizationID string           `json:"organization_id"`
	ExpiresAt      time.Time        `json:"expires_at"`
	Metadata       *SessionMetadata `json:"metadata,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// Expired reports whether the session expired strictly before now.
func (s *ContactSession) Expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}

// Conversation pairs a contact session with an agent thread.
type Conversation struct {
	ID               uuid.UUID          `json:"id"`
	OrganizationID   string             `json:"organization_id"`
	ContactSessionID uuid.UUID          `json:"contact_session_id"`
	ThreadID         uuid.UUID          `json:"thread_id"`
	Status           ConversationStatus `json:"status"`
	CreatedAt        time.Time          `json:"created_at"`
}

// Thread is an ordered message log owned by the agent runtime.
type Thread struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Message roles persisted on a thread.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single entry in a thread.
type Message struct {
	ID        uuid.UUID `json:"id"`
	ThreadID  uuid.UUID `json:"thread_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	AgentName string    `json:"agent_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// LiveCallStatus is the state of a voice-support session.
type LiveCallStatus string

const (
	CallAIHandling       LiveCallStatus = "ai_handling"
	CallQueued           LiveCallStatus = "queued"
	CallHandoffRequested LiveCallStatus = "handoff_requested"
	CallEnded            LiveCallStatus = "ended"
)

// AlertLevel flags calls that need operator attention.
type AlertLevel string

const (
	AlertNormal   AlertLevel = "normal"
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
)

// TranscriptLine is one utterance on a live call.
type TranscriptLine struct {
	Sender    string `json:"sender"` // ai | user
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// LiveCall is a voice-support session surfaced on the operator dashboard.
type LiveCall struct {
	ID              uuid.UUID        `json:"id"`
	OrganizationID  string           `json:"organization_id"`
	Customer        string           `json:"customer"`
	Intent          string           `json:"intent"`
	Status          LiveCallStatus   `json:"status"`
	SentimentScore  float64          `json:"sentiment_score"`
	AlertLevel      AlertLevel       `json:"alert_level"`
	StartedAt       time.Time        `json:"started_at"`
	EndedAt         *time.Time       `json:"ended_at,omitempty"`
	Plan            string           `json:"plan"`
	LastInteraction string           `json:"last_interaction"`
	Transcript      []TranscriptLine `json:"transcript"`
	CreatedAt       time.Time        `json:"created_at"`
}

// Plugin services. Only vapi is supported.
const ServiceVapi = "vapi"

// ParseService validates a plugin service name.
func ParseService(s string) (string, error) {
	if s != ServiceVapi {
		return "", BadRequest("unsupported plugin service: " + s)
	}
	return s, nil
}

// Plugin is a per-tenant integration whose credentials live in the secret manager.
type Plugin struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Service        string    `json:"service"`
	SecretName     string    `json:"secret_name"`
	CreatedAt      time.Time `json:"created_at"`
}

// File processing states.
const (
	FileProcessing = "processing"
	FileReady      = "ready"
	FileError      = "error"
)

// File is an uploaded knowledge-base document.
type File struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	MimeType       string    `json:"mime_type"`
	Size           int64     `json:"size"`
	Category       string    `json:"category,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// Chunk is an embedded slice of a file's extracted text.
type Chunk struct {
	ID        uuid.UUID `json:"id"`
	FileID    uuid.UUID `json:"file_id"`
	Namespace string    `json:"namespace"`
	Title     string    `json:"title"`
	Ordinal   int       `json:"ordinal"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"-"`
}

// SearchEntry is a single knowledge-base hit.
type SearchEntry struct {
	FileID uuid.UUID `json:"file_id"`
	Title  string    `json:"title"`
	Text   string    `json:"text"`
	Score  float64   `json:"score"`
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/supportdesk/internal/conversations"
	"github.com/MikeSquared-Agency/supportdesk/internal/knowledge"
	"github.com/MikeSquared-Agency/supportdesk/internal/livecalls"
	"github.com/MikeSquared-Agency/supportdesk/internal/sessions"
	"github.com/MikeSquared-Agency/supportdesk/internal/support"
	"github.com/MikeSquared-Agency/supportdesk/internal/vapi"
)

type Sessions interface {
	Create(ctx context.Context, in sessions.CreateInput) (uuid.UUID, error)
	Validate(ctx context.Context, id uuid.UUID) (sessions.Validation, error)
}

type Conversations interface {
	Create(ctx context.Context, orgID string, sessionID uuid.UUID) (uuid.UUID, error)
	GetOne(ctx context.Context, conversationID, sessionID uuid.UUID) (*conversations.PublicConversation, error)
	ListForSession(ctx context.Context, orgID string, sessionID uuid.UUID, page support.PageRequest) (support.Page[conversations.Entry], error)
	List(ctx context.Context, orgID string, status support.ConversationStatus, page support.PageRequest) (support.Page[conversations.Entry], error)
	Get(ctx context.Context, orgID string, conversationID uuid.UUID) (*conversations.Detail, error)
	UpdateStatus(ctx context.Context, orgID string, conversationID uuid.UUID, status, actor string) (*support.Conversation, error)
	SendFromContact(ctx context.Context, prompt string, threadID, sessionID uuid.UUID) (string, error)
	SendFromOperator(ctx context.Context, orgID, operatorName string, conversationID uuid.UUID, prompt string) (support.Message, error)
	ListMessages(ctx context.Context, orgID string, threadID uuid.UUID, page support.PageRequest) (support.Page[support.Message], error)
	ListMessagesForContact(ctx context.Context, threadID, sessionID uuid.UUID, page support.PageRequest) (support.Page[support.Message], error)
}

type Knowledge interface {
	AddFile(ctx context.Context, orgID string, in knowledge.AddFileInput) (*knowledge.PublicFile, error)
	ListFiles(ctx context.Context, orgID string, page support.PageRequest) (support.Page[knowledge.PublicFile], error)
	DeleteFile(ctx context.Context, orgID string, fileID uuid.UUID) error
	Download(ctx context.Context, orgID string, fileID uuid.UUID) (*support.File, []byte, error)
}

type LiveCalls interface {
	List(ctx context.Context, orgID string) (*livecalls.Board, error)
	Get(ctx context.Context, orgID string, callID uuid.UUID) (*support.LiveCall, error)
	Simulate(ctx context.Context, orgID string) (uuid.UUID, error)
	End(ctx context.Context, orgID string, callID uuid.UUID) error
	Intervene(ctx context.Context, orgID string, callID uuid.UUID) error
}

type Plugins interface {
	Get(ctx context.Context, orgID, service string) (*support.Plugin, error)
	Remove(ctx context.Context, orgID, service string) error
	UpsertSecret(ctx context.Context, orgID, service string, value map[string]string) error
	Assistants(ctx context.Context, orgID string) ([]vapi.Assistant, error)
	PhoneNumbers(ctx context.Context, orgID string) ([]vapi.PhoneNumber, error)
}

// Authenticator guards the operator routes.
type Authenticator interface {
	Middleware(fail func(w http.ResponseWriter, err error)) func(http.Handler) http.Handler
}

// Deps are the services behind the HTTP surface.
type Deps struct {
	Sessions      Sessions
	Conversations Conversations
	Knowledge     Knowledge
	LiveCalls     LiveCalls
	Plugins       Plugins
	Auth          Authenticator
}

type Server struct {
	router *chi.Mux
	deps   Deps
	logger *slog.Logger
	http   *http.Server
}

func NewServer(port int, deps Deps, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		deps:   deps,
		logger: logger,
	}
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/supportdesk/status", s.status)

	router.Route("/api/v1/public", func(r chi.Router) {
		r.Post("/contact-sessions", s.createContactSession)
		r.Post("/contact-sessions/{id}/validate", s.validateContactSession)
		r.Post("/conversations", s.createConversation)
		r.Get("/conversations", s.listContactConversations)
		r.Get("/conversations/{id}", s.getContactConversation)
		r.Post("/messages", s.sendContactMessage)
		r.Get("/messages", s.listContactMessages)
	})

	router.Route("/api/v1/private", func(r chi.Router) {
		r.Use(deps.Auth.Middleware(writeError))

		r.Get("/conversations", s.listConversations)
		r.Get("/conversations/{id}", s.getConversation)
		r.Patch("/conversations/{id}/status", s.updateConversationStatus)
		r.Post("/messages", s.sendOperatorMessage)
		r.Get("/messages", s.listMessages)

		r.Post("/files", s.uploadFile)
		r.Get("/files", s.listFiles)
		r.Get("/files/{id}/content", s.downloadFile)
		r.Delete("/files/{id}", s.deleteFile)

		r.Get("/live-calls", s.listLiveCalls)
		r.Post("/live-calls/simulate", s.simulateLiveCall)
		r.Get("/live-calls/{id}", s.getLiveCall)
		r.Post("/live-calls/{id}/end", s.endLiveCall)
		r.Post("/live-calls/{id}/intervene", s.interveneLiveCall)

		r.Get("/plugins/{service}", s.getPlugin)
		r.Delete("/plugins/{service}", s.removePlugin)
		r.Put("/plugins/{service}/secret", s.upsertPluginSecret)

		r.Get("/vapi/assistants", s.vapiAssistants)
		r.Get("/vapi/phone-numbers", s.vapiPhoneNumbers)
	})

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Start() error {
	s.logger.Info("API server starting", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"agent":  "supportdesk",
		"status": "serving",
	})
}

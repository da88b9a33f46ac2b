package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/supportdesk/internal/sessions"
	"github.com/MikeSquared-Agency/supportdesk/internal/support"
)

// Widget endpoints. Callers are anonymous and identified by their contact session.

func (s *Server) createContactSession(w http.ResponseWriter, r *http.Request) {
	var in sessions.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	id, err := s.deps.Sessions.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uuid.UUID{"id": id})
}

func (s *Server) validateContactSession(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeJSON(w, http.StatusOK, sessions.Validation{Reason: sessions.ReasonNotFound})
		return
	}
	v, err := s.deps.Sessions.Validate(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type createConversationRequest struct {
	OrganizationID   string    `json:"organization_id"`
	ContactSessionID uuid.UUID `json:"contact_session_id"`
}

func (s *Server) createConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id, err := s.deps.Conversations.Create(r.Context(), req.OrganizationID, req.ContactSessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uuid.UUID{"id": id})
}

func (s *Server) listContactConversations(w http.ResponseWriter, r *http.Request) {
	sessionID, err := queryID(r, "contact_session_id")
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := s.deps.Conversations.ListForSession(r.Context(), r.URL.Query().Get("organization_id"), sessionID, pageRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) getContactConversation(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	sessionID, err := queryID(r, "contact_session_id")
	if err != nil {
		writeError(w, err)
		return
	}
	conv, err := s.deps.Conversations.GetOne(r.Context(), id, sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

type contactMessageRequest struct {
	Prompt           string    `json:"prompt"`
	ThreadID         uuid.UUID `json:"thread_id"`
	ContactSessionID uuid.UUID `json:"contact_session_id"`
}

func (s *Server) sendContactMessage(w http.ResponseWriter, r *http.Request) {
	var req contactMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Prompt == "" {
		writeError(w, support.BadRequest("prompt is required"))
		return
	}
	reply, err := s.deps.Conversations.SendFromContact(r.Context(), req.Prompt, req.ThreadID, req.ContactSessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (s *Server) listContactMessages(w http.ResponseWriter, r *http.Request) {
	threadID, err := queryID(r, "thread_id")
	if err != nil {
		writeError(w, err)
		return
	}
	sessionID, err := queryID(r, "contact_session_id")
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := s.deps.Conversations.ListMessagesForContact(r.Context(), threadID, sessionID, pageRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

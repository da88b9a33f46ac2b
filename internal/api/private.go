package api

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/supportdesk/internal/auth"
	"github.com/MikeSquared-Agency/supportdesk/internal/knowledge"
	"github.com/MikeSquared-Agency/supportdesk/internal/support"
)

// Operator endpoints. The auth middleware has already put an identity on the context.

func identity(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}

func (s *Server) listConversations(w http.ResponseWriter, r *http.Request) {
	status := support.ConversationStatus(r.URL.Query().Get("status"))
	page, err := s.deps.Conversations.List(r.Context(), identity(r).OrganizationID, status, pageRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) getConversation(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	conv, err := s.deps.Conversations.Get(r.Context(), identity(r).OrganizationID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (s *Server) updateConversationStatus(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	who := identity(r)
	conv, err := s.deps.Conversations.UpdateStatus(r.Context(), who.OrganizationID, id, req.Status, who.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

type operatorMessageRequest struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	Prompt         string    `json:"prompt"`
}

func (s *Server) sendOperatorMessage(w http.ResponseWriter, r *http.Request) {
	var req operatorMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Prompt == "" {
		writeError(w, support.BadRequest("prompt is required"))
		return
	}
	who := identity(r)
	msg, err := s.deps.Conversations.SendFromOperator(r.Context(), who.OrganizationID, who.Name, req.ConversationID, req.Prompt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	threadID, err := queryID(r, "thread_id")
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := s.deps.Conversations.ListMessages(r.Context(), identity(r).OrganizationID, threadID, pageRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// multipart overhead allowed on top of the file itself
const uploadSlack = 1 << 20

func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, knowledge.MaxFileSize+uploadSlack)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeError(w, support.BadRequest("invalid upload: "+err.Error()))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, support.BadRequest("file is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, knowledge.MaxFileSize+1))
	if err != nil {
		writeError(w, support.BadRequest("read upload: "+err.Error()))
		return
	}

	pf, err := s.deps.Knowledge.AddFile(r.Context(), identity(r).OrganizationID, knowledge.AddFileInput{
		FileName: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Bytes:    data,
		Category: r.FormValue("category"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pf)
}

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	page, err := s.deps.Knowledge.ListFiles(r.Context(), identity(r).OrganizationID, pageRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) downloadFile(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	f, content, err := s.deps.Knowledge.Download(r.Context(), identity(r).OrganizationID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", f.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.Header().Set("Content-Disposition", "inline; filename="+strconv.Quote(f.Name))
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

func (s *Server) deleteFile(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.deps.Knowledge.DeleteFile(r.Context(), identity(r).OrganizationID, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listLiveCalls(w http.ResponseWriter, r *http.Request) {
	board, err := s.deps.LiveCalls.List(r.Context(), identity(r).OrganizationID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (s *Server) getLiveCall(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	call, err := s.deps.LiveCalls.Get(r.Context(), identity(r).OrganizationID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, call)
}

func (s *Server) simulateLiveCall(w http.ResponseWriter, r *http.Request) {
	id, err := s.deps.LiveCalls.Simulate(r.Context(), identity(r).OrganizationID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uuid.UUID{"id": id})
}

func (s *Server) endLiveCall(w http.ResponseWriter, r *http.Request) {
	s.callAction(w, r, s.deps.LiveCalls.End)
}

func (s *Server) interveneLiveCall(w http.ResponseWriter, r *http.Request) {
	s.callAction(w, r, s.deps.LiveCalls.Intervene)
}

func (s *Server) callAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, orgID string, id uuid.UUID) error) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := action(r.Context(), identity(r).OrganizationID, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) getPlugin(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Plugins.Get(r.Context(), identity(r).OrganizationID, chi.URLParam(r, "service"))
	if err != nil {
		writeError(w, err)
		return
	}
	// A missing plugin is a null body, not an error.
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) removePlugin(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Plugins.Remove(r.Context(), identity(r).OrganizationID, chi.URLParam(r, "service")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) upsertPluginSecret(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value map[string]string `json:"value"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.deps.Plugins.UpsertSecret(r.Context(), identity(r).OrganizationID, chi.URLParam(r, "service"), req.Value); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) vapiAssistants(w http.ResponseWriter, r *http.Request) {
	out, err := s.deps.Plugins.Assistants(r.Context(), identity(r).OrganizationID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) vapiPhoneNumbers(w http.ResponseWriter, r *http.Request) {
	out, err := s.deps.Plugins.PhoneNumbers(r.Context(), identity(r).OrganizationID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

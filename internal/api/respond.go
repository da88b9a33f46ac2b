package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/supportdesk/internal/support"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string       `json:"error"`
	Code  support.Code `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func statusFor(code support.Code) int {
	switch code {
	case support.CodeUnauthorized:
		return http.StatusUnauthorized
	case support.CodeNotFound, support.CodeConversationNotFound:
		return http.StatusNotFound
	case support.CodeBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps domain errors onto HTTP statuses. Anything else is a 500
// and is logged.
func writeError(w http.ResponseWriter, err error) {
	if e, ok := support.AsError(err); ok {
		writeJSON(w, statusFor(e.Code), errorBody{Error: e.Message, Code: e.Code})
		return
	}
	slog.Error("request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return support.BadRequest("invalid JSON: " + err.Error())
	}
	return nil
}

// pageRequest reads cursor and limit. A malformed limit falls back to the default.
func pageRequest(r *http.Request) support.PageRequest {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	return support.PageRequest{Cursor: q.Get("cursor"), Limit: limit}.Normalize()
}

func parseID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, support.BadRequest("invalid " + field)
	}
	return id, nil
}

func urlID(r *http.Request) (uuid.UUID, error) {
	return parseID(chi.URLParam(r, "id"), "id")
}

func queryID(r *http.Request, field string) (uuid.UUID, error) {
	return parseID(r.URL.Query().Get(field), field)
}

package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/neo-dm/internal/httpx/auth"
	"github.com/vadim/neo-dm/internal/httpx/response"
)

// TypingUsersResponse lists the other participants currently typing
type TypingUsersResponse struct {
	UserIDs []string `json:"user_ids"`
}

// StartTyping handles POST /conversations/{conversationId}/typing
func (h *MessagingHandler) StartTyping() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.policy.StartTyping(r.Context(), auth.CallerID(r.Context()), chi.URLParam(r, "conversationId")); err != nil {
			h.handleMessagingError(w, r, err)
			return
		}
		response.NoContent(w)
	}
}

// StopTyping handles DELETE /conversations/{conversationId}/typing
func (h *MessagingHandler) StopTyping() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.policy.StopTyping(r.Context(), auth.CallerID(r.Context()), chi.URLParam(r, "conversationId")); err != nil {
			h.handleMessagingError(w, r, err)
			return
		}
		response.NoContent(w)
	}
}

// TypingUsers handles GET /conversations/{conversationId}/typing
func (h *MessagingHandler) TypingUsers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := h.policy.TypingUsers(r.Context(), auth.CallerID(r.Context()), chi.URLParam(r, "conversationId"))
		if err != nil {
			h.handleMessagingError(w, r, err)
			return
		}
		response.OK(w, TypingUsersResponse{UserIDs: users})
	}
}

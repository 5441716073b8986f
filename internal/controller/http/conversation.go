package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/neo-dm/internal/domain/messaging/entity"
	"github.com/vadim/neo-dm/internal/domain/messaging/policy"
	"github.com/vadim/neo-dm/internal/httpx/auth"
	"github.com/vadim/neo-dm/internal/httpx/response"
)

// StartConversationRequest represents the request body for opening a conversation
type StartConversationRequest struct {
	ParticipantID string `json:"participant_id"`
}

// StartConversation handles POST /conversations
func (h *MessagingHandler) StartConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StartConversationRequest
		if err := decodeJSON(r, &req); err != nil {
			response.BadRequest(w, "invalid request body")
			return
		}
		if req.ParticipantID == "" {
			response.BadRequest(w, "participant_id is required")
			return
		}

		view, err := h.policy.StartConversation(r.Context(), auth.CallerID(r.Context()), req.ParticipantID)
		if err != nil {
			h.handleMessagingError(w, r, err)
			return
		}

		response.OK(w, view)
	}
}

// ListConversationsResponse represents the response for listing conversations
type ListConversationsResponse struct {
	Conversations []entity.ConversationView `json:"conversations"`
	Total         int64                     `json:"total"`
	HasMore       bool                      `json:"has_more"`
}

// ListConversations handles GET /conversations
func (h *MessagingHandler) ListConversations() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, limit, err := pageParams(r)
		if err != nil {
			h.handleMessagingError(w, r, err)
			return
		}

		result, err := h.policy.ListConversations(r.Context(), policy.ListInput{
			CallerID: auth.CallerID(r.Context()),
			Page:     page,
			Limit:    limit,
		})
		if err != nil {
			h.handleMessagingError(w, r, err)
			return
		}

		response.OK(w, ListConversationsResponse{
			Conversations: result.Conversations,
			Total:         result.Total,
			HasMore:       result.HasMore,
		})
	}
}

// UnreadCountResponse represents the caller's unread total
type UnreadCountResponse struct {
	Total int64 `json:"total"`
}

// UnreadCount handles GET /conversations/unread-count
func (h *MessagingHandler) UnreadCount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		total, err := h.policy.TotalUnread(r.Context(), auth.CallerID(r.Context()))
		if err != nil {
			h.handleMessagingError(w, r, err)
			return
		}
		response.OK(w, UnreadCountResponse{Total: total})
	}
}

// GetConversation handles GET /conversations/{conversationId}
func (h *MessagingHandler) GetConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := h.policy.GetConversation(r.Context(), auth.CallerID(r.Context()), chi.URLParam(r, "conversationId"))
		if err != nil {
			h.handleMessagingError(w, r, err)
			return
		}
		response.OK(w, view)
	}
}

// DeleteConversation handles DELETE /conversations/{conversationId}
func (h *MessagingHandler) DeleteConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.policy.DeleteConversation(r.Context(), auth.CallerID(r.Context()), chi.URLParam(r, "conversationId")); err != nil {
			h.handleMessagingError(w, r, err)
			return
		}
		response.NoContent(w)
	}
}

package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/neo-dm/internal/domain/messaging/entity"
	"github.com/vadim/neo-dm/internal/domain/messaging/policy"
	"github.com/vadim/neo-dm/internal/httpx/auth"
	"github.com/vadim/neo-dm/internal/httpx/response"
)

// ListMessagesResponse represents the response for listing messages
type ListMessagesResponse struct {
	Messages []entity.Message `json:"messages"`
	Total    int64            `json:"total"`
	HasMore  bool             `json:"has_more"`
}

// ListMessages handles GET /conversations/{conversationId}/messages
func (h *MessagingHandler) ListMessages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, limit, err := pageParams(r)
		if err != nil {
			h.handleMessagingError(w, r, err)
			return
		}

		result, err := h.policy.ListMessages(r.Context(), policy.ListInput{
			CallerID:       auth.CallerID(r.Context()),
			ConversationID: chi.URLParam(r, "conversationId"),
			Page:           page,
			Limit:          limit,
		})
		if err != nil {
			h.handleMessagingError(w, r, err)
			return
		}

		response.OK(w, ListMessagesResponse{
			Messages: result.Messages,
			Total:    result.Total,
			HasMore:  result.HasMore,
		})
	}
}

// SendMessageRequest represents the request body for sending a message
type SendMessageRequest struct {
	Content        string `json:"content"`
	AttachmentURL  string `json:"attachment_url"`
	AttachmentType string `json:"attachment_type"`
	ReplyTo        string `json:"reply_to"`
}

// SendMessage handles POST /conversations/{conversationId}/messages
func (h *MessagingHandler) SendMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SendMessageRequest
		if err := decodeJSON(r, &req); err != nil {
			response.BadRequest(w, "invalid request body")
			return
		}

		msg, err := h.policy.SendMessage(r.Context(), policy.SendMessageInput{
			CallerID:       auth.CallerID(r.Context()),
			ConversationID: chi.URLParam(r, "conversationId"),
			Content:        req.Content,
			AttachmentURL:  req.AttachmentURL,
			AttachmentType: req.AttachmentType,
			ReplyTo:        req.ReplyTo,
		})
		if err != nil {
			h.handleMessagingError(w, r, err)
			return
		}

		response.Created(w, msg)
	}
}

// MarkReadRequest represents the request body for marking a conversation read
type MarkReadRequest struct {
	ConversationID string `json:"conversation_id"`
}

// MarkReadResponse reports how many messages received a read receipt
type MarkReadResponse struct {
	MessagesUpdated int64 `json:"messages_updated"`
}

// MarkRead handles PUT /messages/read
func (h *MessagingHandler) MarkRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MarkReadRequest
		if err := decodeJSON(r, &req); err != nil {
			response.BadRequest(w, "invalid request body")
			return
		}
		if req.ConversationID == "" {
			response.BadRequest(w, "conversation_id is required")
			return
		}

		n, err := h.policy.MarkRead(r.Context(), auth.CallerID(r.Context()), req.ConversationID)
		if err != nil {
			h.handleMessagingError(w, r, err)
			return
		}

		response.OK(w, MarkReadResponse{MessagesUpdated: n})
	}
}

// EditMessageRequest represents the request body for editing a message
type EditMessageRequest struct {
	Content string `json:"content"`
}

// EditMessage handles PUT /messages/{messageId}
func (h *MessagingHandler) EditMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req EditMessageRequest
		if err := decodeJSON(r, &req); err != nil {
			response.BadRequest(w, "invalid request body")
			return
		}

		msg, err := h.policy.EditMessage(r.Context(), auth.CallerID(r.Context()), chi.URLParam(r, "messageId"), req.Content)
		if err != nil {
			h.handleMessagingError(w, r, err)
			return
		}

		response.OK(w, msg)
	}
}

// DeleteMessageRequest represents the optional request body for deleting a message
type DeleteMessageRequest struct {
	DeleteForEveryone bool `json:"delete_for_everyone"`
}

// DeleteMessageResponse reports which deletion was applied
type DeleteMessageResponse struct {
	Mode string `json:"mode"`
}

// DeleteMessage handles DELETE /messages/{messageId}
func (h *MessagingHandler) DeleteMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DeleteMessageRequest
		if err := decodeJSON(r, &req); err != nil {
			response.BadRequest(w, "invalid request body")
			return
		}

		mode, err := h.policy.DeleteMessage(r.Context(), auth.CallerID(r.Context()), chi.URLParam(r, "messageId"), req.DeleteForEveryone)
		if err != nil {
			h.handleMessagingError(w, r, err)
			return
		}

		response.OK(w, DeleteMessageResponse{Mode: string(mode)})
	}
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/neo-dm/internal/domain/messaging/entity"
	"github.com/vadim/neo-dm/internal/domain/messaging/policy"
	"github.com/vadim/neo-dm/internal/domain/messaging/service"
	"github.com/vadim/neo-dm/internal/domain/presence"
	"github.com/vadim/neo-dm/internal/httpx/response"
)

// MessagingPolicy defines the interface for direct messaging operations
type MessagingPolicy interface {
	StartConversation(ctx context.Context, callerID, participantID string) (*entity.ConversationView, error)
	ListConversations(ctx context.Context, in policy.ListInput) (*service.ListConversationsOutput, error)
	GetConversation(ctx context.Context, callerID, conversationID string) (*entity.ConversationView, error)
	DeleteConversation(ctx context.Context, callerID, conversationID string) error
	TotalUnread(ctx context.Context, callerID string) (int64, error)
	ListMessages(ctx context.Context, in policy.ListInput) (*service.ListMessagesOutput, error)
	SendMessage(ctx context.Context, in policy.SendMessageInput) (*entity.Message, error)
	MarkRead(ctx context.Context, callerID, conversationID string) (int64, error)
	EditMessage(ctx context.Context, callerID, messageID, content string) (*entity.Message, error)
	DeleteMessage(ctx context.Context, callerID, messageID string, forEveryone bool) (service.DeleteMode, error)
	StartTyping(ctx context.Context, callerID, conversationID string) error
	StopTyping(ctx context.Context, callerID, conversationID string) error
	TypingUsers(ctx context.Context, callerID, conversationID string) ([]string, error)
}

// MessagingHandler handles HTTP requests for conversations, messages and typing
type MessagingHandler struct {
	policy      MessagingPolicy
	typingLimit func(http.Handler) http.Handler
	logger      *slog.Logger
}

// NewMessagingHandler creates a new messaging handler. typingLimit wraps the
// typing signal route and may be nil.
func NewMessagingHandler(p MessagingPolicy, typingLimit func(http.Handler) http.Handler, logger *slog.Logger) *MessagingHandler {
	if typingLimit == nil {
		typingLimit = func(next http.Handler) http.Handler { return next }
	}
	return &MessagingHandler{policy: p, typingLimit: typingLimit, logger: logger}
}

// RegisterRoutes registers messaging routes. The router must already
// authenticate the caller.
func (h *MessagingHandler) RegisterRoutes(r chi.Router) {
	r.Route("/conversations", func(r chi.Router) {
		r.Post("/", h.StartConversation())
		r.Get("/", h.ListConversations())
		r.Get("/unread-count", h.UnreadCount())
		r.Get("/{conversationId}", h.GetConversation())
		r.Delete("/{conversationId}", h.DeleteConversation())

		r.Get("/{conversationId}/messages", h.ListMessages())
		r.Post("/{conversationId}/messages", h.SendMessage())

		r.With(h.typingLimit).Post("/{conversationId}/typing", h.StartTyping())
		r.Delete("/{conversationId}/typing", h.StopTyping())
		r.Get("/{conversationId}/typing", h.TypingUsers())
	})

	r.Route("/messages", func(r chi.Router) {
		r.Put("/read", h.MarkRead())
		r.Put("/{messageId}", h.EditMessage())
		r.Delete("/{messageId}", h.DeleteMessage())
	})
}

// decodeJSON decodes an optional JSON body; an empty body leaves dst untouched
func decodeJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// pageParams reads ?page and ?limit; absent values are zero
func pageParams(r *http.Request) (page, limit int, err error) {
	q := r.URL.Query()
	if v := q.Get("page"); v != "" {
		if page, err = strconv.Atoi(v); err != nil {
			return 0, 0, entity.ErrInvalidPagination
		}
	}
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			return 0, 0, entity.ErrInvalidPagination
		}
	}
	return page, limit, nil
}

// handleMessagingError maps domain errors to HTTP responses by kind
func (h *MessagingHandler) handleMessagingError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, entity.ErrValidation), errors.Is(err, presence.ErrEmptyKey):
		response.BadRequest(w, err.Error())
	case errors.Is(err, entity.ErrNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, entity.ErrForbidden):
		response.Forbidden(w, err.Error())
	case errors.Is(err, entity.ErrConflict):
		response.Conflict(w, err.Error())
	case errors.Is(err, entity.ErrInvalidState):
		response.UnprocessableEntity(w, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn("request timed out", "path", r.URL.Path, "error", err)
		response.ServiceUnavailable(w, "storage timeout, retry later")
	default:
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
		response.InternalError(w, "internal server error")
	}
}

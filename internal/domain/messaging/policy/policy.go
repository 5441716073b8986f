package policy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vadim/neo-dm/internal/domain/messaging/entity"
	"github.com/vadim/neo-dm/internal/domain/messaging/service"
	"github.com/vadim/neo-dm/internal/notify"
)

// MessagingService defines the interface for the messaging service
type MessagingService interface {
	GetOrCreateConversation(ctx context.Context, userA, userB string) (*entity.Conversation, error)
	ListConversations(ctx context.Context, in service.ListConversationsInput) (*service.ListConversationsOutput, error)
	GetConversation(ctx context.Context, conversationID, userID string) (*entity.ConversationView, error)
	DeleteConversation(ctx context.Context, conversationID, userID string) error
	TotalUnread(ctx context.Context, userID string) (int64, error)
	SendMessage(ctx context.Context, in service.SendMessageInput) (*entity.Message, error)
	ListMessages(ctx context.Context, in service.ListMessagesInput) (*service.ListMessagesOutput, error)
	MarkRead(ctx context.Context, conversationID, userID string) (int64, error)
	EditMessage(ctx context.Context, messageID, userID, content string) (*entity.Message, error)
	DeleteMessage(ctx context.Context, in service.DeleteMessageInput) (service.DeleteMode, error)
	IsParticipant(ctx context.Context, conversationID, userID string) error
}

// TypingStore defines the interface for typing presence
type TypingStore interface {
	SetTyping(ctx context.Context, conversationID, userID string) error
	RemoveTyping(ctx context.Context, conversationID, userID string) error
	GetTypingUsers(ctx context.Context, conversationID string) ([]string, error)
}

// Notifier delivers new-message events to recipients
type Notifier interface {
	Notify(ctx context.Context, recipientID string, ev notify.Event) error
}

// Recorder receives domain counters
type Recorder interface {
	MessageSent(kind string)
	MessageEdited()
	MessageDeleted(mode string)
	ReadReceipts(n int64)
	TypingEvent(action string)
	NotifyFailed()
	ConversationOpened()
}

// PageConfig holds pagination defaults
type PageConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// Policy handles caller-facing messaging operations: it resolves pages,
// guards typing by membership and runs best-effort side effects
type Policy struct {
	svc      MessagingService
	typing   TypingStore
	notifier Notifier
	recorder Recorder
	pages    PageConfig
	logger   *slog.Logger
}

// New creates a new messaging policy
func New(svc MessagingService, typing TypingStore, notifier Notifier, recorder Recorder, pages PageConfig, logger *slog.Logger) *Policy {
	if pages.DefaultLimit <= 0 {
		pages.DefaultLimit = 20
	}
	if pages.MaxLimit <= 0 {
		pages.MaxLimit = 100
	}
	return &Policy{
		svc:      svc,
		typing:   typing,
		notifier: notifier,
		recorder: recorder,
		pages:    pages,
		logger:   logger,
	}
}

// StartConversation returns the conversation between the caller and participantID
func (p *Policy) StartConversation(ctx context.Context, callerID, participantID string) (*entity.ConversationView, error) {
	conv, err := p.svc.GetOrCreateConversation(ctx, callerID, participantID)
	if err != nil {
		return nil, err
	}
	p.recorder.ConversationOpened()

	return p.svc.GetConversation(ctx, conv.ID, callerID)
}

// ListInput is a caller's page request over a collection
type ListInput struct {
	CallerID       string
	ConversationID string
	Page           int
	Limit          int
}

// ListConversations returns one page of the caller's conversations
func (p *Policy) ListConversations(ctx context.Context, in ListInput) (*service.ListConversationsOutput, error) {
	page, err := p.page(in)
	if err != nil {
		return nil, err
	}
	return p.svc.ListConversations(ctx, service.ListConversationsInput{
		UserID: in.CallerID,
		Page:   page,
	})
}

// GetConversation returns one conversation as seen by the caller
func (p *Policy) GetConversation(ctx context.Context, callerID, conversationID string) (*entity.ConversationView, error) {
	return p.svc.GetConversation(ctx, conversationID, callerID)
}

// DeleteConversation soft-deletes a conversation of the caller
func (p *Policy) DeleteConversation(ctx context.Context, callerID, conversationID string) error {
	if err := p.svc.DeleteConversation(ctx, conversationID, callerID); err != nil {
		return err
	}
	p.logger.Info("conversation deleted", "conversation_id", conversationID, "user_id", callerID)
	return nil
}

// TotalUnread returns the caller's unread total
func (p *Policy) TotalUnread(ctx context.Context, callerID string) (int64, error) {
	return p.svc.TotalUnread(ctx, callerID)
}

// ListMessages returns one page of messages visible to the caller
func (p *Policy) ListMessages(ctx context.Context, in ListInput) (*service.ListMessagesOutput, error) {
	page, err := p.page(in)
	if err != nil {
		return nil, err
	}
	return p.svc.ListMessages(ctx, service.ListMessagesInput{
		ConversationID: in.ConversationID,
		UserID:         in.CallerID,
		Page:           page,
	})
}

// SendMessageInput represents input for sending a message
type SendMessageInput struct {
	CallerID       string
	ConversationID string
	Content        string
	AttachmentURL  string
	AttachmentType string
	ReplyTo        string
}

// SendMessage stores a message, clears the sender's typing state and
// notifies the other participant
func (p *Policy) SendMessage(ctx context.Context, in SendMessageInput) (*entity.Message, error) {
	msg, err := p.svc.SendMessage(ctx, service.SendMessageInput{
		ConversationID: in.ConversationID,
		SenderID:       in.CallerID,
		Content:        in.Content,
		AttachmentURL:  in.AttachmentURL,
		AttachmentType: in.AttachmentType,
		ReplyTo:        in.ReplyTo,
	})
	if err != nil {
		return nil, err
	}

	kind := "text"
	if msg.HasAttachment() {
		kind = string(entity.ClassifyMIME(msg.AttachmentType))
	}
	p.recorder.MessageSent(kind)

	if err := p.typing.RemoveTyping(ctx, msg.ConversationID, msg.SenderID); err != nil {
		p.logger.Warn("failed to clear typing after send", "conversation_id", msg.ConversationID, "error", err)
	}

	p.notifyRecipients(ctx, msg)
	return msg, nil
}

func (p *Policy) notifyRecipients(ctx context.Context, msg *entity.Message) {
	view, err := p.svc.GetConversation(ctx, msg.ConversationID, msg.SenderID)
	if err != nil {
		p.logger.Warn("failed to resolve recipient", "conversation_id", msg.ConversationID, "error", err)
		return
	}

	ev := notify.Event{
		Type:           notify.EventMessageCreated,
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
		SenderID:       msg.SenderID,
		Preview:        msg.Content,
		HasAttachment:  msg.HasAttachment(),
		CreatedAt:      msg.CreatedAt,
	}
	if view.LastMessage != nil && view.LastMessage.ID == msg.ID {
		ev.Preview = view.LastMessage.Preview
	}

	recipientID := view.OtherParticipant.ID
	if err := p.notifier.Notify(ctx, recipientID, ev); err != nil {
		p.recorder.NotifyFailed()
		p.logger.Warn("failed to notify recipient",
			"recipient_id", recipientID,
			"message_id", msg.ID,
			"error", err,
		)
	}
}

// MarkRead marks the other participant's messages as read by the caller
func (p *Policy) MarkRead(ctx context.Context, callerID, conversationID string) (int64, error) {
	n, err := p.svc.MarkRead(ctx, conversationID, callerID)
	if err != nil {
		return 0, err
	}
	p.recorder.ReadReceipts(n)
	return n, nil
}

// EditMessage replaces the content of one of the caller's messages
func (p *Policy) EditMessage(ctx context.Context, callerID, messageID, content string) (*entity.Message, error) {
	msg, err := p.svc.EditMessage(ctx, messageID, callerID, content)
	if err != nil {
		return nil, err
	}
	p.recorder.MessageEdited()
	return msg, nil
}

// DeleteMessage deletes a message for the caller or for everyone
func (p *Policy) DeleteMessage(ctx context.Context, callerID, messageID string, forEveryone bool) (service.DeleteMode, error) {
	mode, err := p.svc.DeleteMessage(ctx, service.DeleteMessageInput{
		MessageID:   messageID,
		UserID:      callerID,
		ForEveryone: forEveryone,
	})
	if err != nil {
		return "", err
	}
	p.recorder.MessageDeleted(string(mode))
	return mode, nil
}

// StartTyping marks the caller as typing in a conversation they belong to
func (p *Policy) StartTyping(ctx context.Context, callerID, conversationID string) error {
	if err := p.svc.IsParticipant(ctx, conversationID, callerID); err != nil {
		return err
	}
	if err := p.typing.SetTyping(ctx, conversationID, callerID); err != nil {
		return fmt.Errorf("starting typing: %w", err)
	}
	p.recorder.TypingEvent("start")
	return nil
}

// StopTyping clears the caller's typing state
func (p *Policy) StopTyping(ctx context.Context, callerID, conversationID string) error {
	if err := p.svc.IsParticipant(ctx, conversationID, callerID); err != nil {
		return err
	}
	if err := p.typing.RemoveTyping(ctx, conversationID, callerID); err != nil {
		return fmt.Errorf("stopping typing: %w", err)
	}
	p.recorder.TypingEvent("stop")
	return nil
}

// TypingUsers returns who else is typing in the conversation
func (p *Policy) TypingUsers(ctx context.Context, callerID, conversationID string) ([]string, error) {
	if err := p.svc.IsParticipant(ctx, conversationID, callerID); err != nil {
		return nil, err
	}

	users, err := p.typing.GetTypingUsers(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("getting typing users: %w", err)
	}

	others := make([]string, 0, len(users))
	for _, id := range users {
		if id != callerID {
			others = append(others, id)
		}
	}
	return others, nil
}

func (p *Policy) page(in ListInput) (entity.Page, error) {
	return entity.NewPage(in.Page, in.Limit, p.pages.DefaultLimit, p.pages.MaxLimit)
}

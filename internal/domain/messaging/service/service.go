package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/vadim/neo-dm/internal/domain/messaging/entity"
)

// ConversationRepository defines the interface for conversation storage
type ConversationRepository interface {
	GetOrCreate(ctx context.Context, id string, pair [2]string, now time.Time) (*entity.Conversation, error)
	GetByID(ctx context.Context, id string) (*entity.Conversation, error)
	ListByParticipant(ctx context.Context, userID string, limit, offset int) ([]entity.Conversation, error)
	CountByParticipant(ctx context.Context, userID string) (int64, error)
	TotalUnread(ctx context.Context, userID string) (int64, error)
	TouchOnSend(ctx context.Context, conversationID, senderID, messageID string, sentAt time.Time) error
	ResetUnread(ctx context.Context, conversationID, userID string) error
	SoftDelete(ctx context.Context, conversationID string, at time.Time) error
}

// MessageRepository defines the interface for message storage
type MessageRepository interface {
	Create(ctx context.Context, msg *entity.Message) error
	GetByID(ctx context.Context, id string) (*entity.Message, error)
	GetByIDs(ctx context.Context, ids []string) ([]entity.Message, error)
	ListVisible(ctx context.Context, conversationID, viewerID string, limit, offset int) ([]entity.Message, error)
	CountVisible(ctx context.Context, conversationID, viewerID string) (int64, error)
	MarkRead(ctx context.Context, conversationID, userID string, at time.Time) (int64, error)
	UpdateContent(ctx context.Context, id, content string, editedAt time.Time) error
	DeleteForEveryone(ctx context.Context, id string, at time.Time) (bool, error)
	DeleteForViewer(ctx context.Context, id, viewerID string) error
}

// UserDirectory resolves platform users
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]entity.User, error)
}

// Rules holds the mutability limits of messages
type Rules struct {
	EditWindow       time.Duration
	DeleteWindow     time.Duration
	MaxMessageLength int
}

// DefaultRules returns the standard editing and deletion limits
func DefaultRules() Rules {
	return Rules{
		EditWindow:       entity.EditWindow,
		DeleteWindow:     entity.DeleteForEveryoneWindow,
		MaxMessageLength: entity.MaxMessageLength,
	}
}

// Option configures the Service
type Option func(*Service)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRules overrides the editing and deletion limits
func WithRules(rules Rules) Option {
	return func(s *Service) { s.rules = rules }
}

// WithPhotoBaseURL sets the prefix used to resolve relative profile photos
func WithPhotoBaseURL(baseURL string) Option {
	return func(s *Service) { s.projector.photoBaseURL = strings.TrimRight(baseURL, "/") }
}

// Service handles direct messaging business logic
type Service struct {
	convRepo  ConversationRepository
	msgRepo   MessageRepository
	users     UserDirectory
	projector *Projector
	rules     Rules
	now       func() time.Time

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// New creates a new messaging service
func New(convRepo ConversationRepository, msgRepo MessageRepository, users UserDirectory, opts ...Option) *Service {
	s := &Service{
		convRepo:  convRepo,
		msgRepo:   msgRepo,
		users:     users,
		projector: NewProjector(users, msgRepo, ""),
		rules:     DefaultRules(),
		now:       func() time.Time { return time.Now().UTC() },
		entropy:   ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreateConversation returns the conversation between two users,
// creating it on first use. The pair is unordered.
func (s *Service) GetOrCreateConversation(ctx context.Context, userA, userB string) (*entity.Conversation, error) {
	if userA == "" || userB == "" {
		return nil, entity.ErrMissingUserID
	}
	if userA == userB {
		return nil, entity.ErrSelfConversation
	}

	users, err := s.users.GetByIDs(ctx, []string{userA, userB})
	if err != nil {
		return nil, fmt.Errorf("resolving participants: %w", err)
	}
	if _, ok := users[userA]; !ok {
		return nil, entity.ErrUserNotFound
	}
	if _, ok := users[userB]; !ok {
		return nil, entity.ErrUserNotFound
	}

	conv, err := s.convRepo.GetOrCreate(ctx, uuid.NewString(), entity.NormalizePair(userA, userB), s.now())
	if err != nil {
		return nil, fmt.Errorf("getting or creating conversation: %w", err)
	}
	return conv, nil
}

// ListConversationsInput represents input for listing conversations
type ListConversationsInput struct {
	UserID string
	Page   entity.Page
}

// ListConversationsOutput represents output from listing conversations
type ListConversationsOutput struct {
	Conversations []entity.ConversationView
	Total         int64
	HasMore       bool
}

// ListConversations returns the caller's active conversations projected for the caller
func (s *Service) ListConversations(ctx context.Context, in ListConversationsInput) (*ListConversationsOutput, error) {
	if in.UserID == "" {
		return nil, entity.ErrMissingUserID
	}

	convs, err := s.convRepo.ListByParticipant(ctx, in.UserID, in.Page.Limit, in.Page.Offset())
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}

	total, err := s.convRepo.CountByParticipant(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("counting conversations: %w", err)
	}

	views, err := s.projector.Project(ctx, in.UserID, convs)
	if err != nil {
		return nil, fmt.Errorf("projecting conversations: %w", err)
	}

	return &ListConversationsOutput{
		Conversations: views,
		Total:         total,
		HasMore:       int64(in.Page.Offset()+len(convs)) < total,
	}, nil
}

// GetConversation returns a single conversation projected for userID
func (s *Service) GetConversation(ctx context.Context, conversationID, userID string) (*entity.ConversationView, error) {
	conv, err := s.participantConversation(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	views, err := s.projector.Project(ctx, userID, []entity.Conversation{*conv})
	if err != nil {
		return nil, fmt.Errorf("projecting conversation: %w", err)
	}
	return &views[0], nil
}

// DeleteConversation soft-deletes a conversation. The tombstone is
// conversation-wide: it disappears for both participants.
func (s *Service) DeleteConversation(ctx context.Context, conversationID, userID string) error {
	if _, err := s.participantConversation(ctx, conversationID, userID); err != nil {
		return err
	}

	if err := s.convRepo.SoftDelete(ctx, conversationID, s.now()); err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	return nil
}

// TotalUnread returns the caller's unread count across all active conversations
func (s *Service) TotalUnread(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, entity.ErrMissingUserID
	}

	total, err := s.convRepo.TotalUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("getting total unread: %w", err)
	}
	return total, nil
}

// SendMessageInput represents input for sending a message
type SendMessageInput struct {
	ConversationID string
	SenderID       string
	Content        string
	AttachmentURL  string
	AttachmentType string // MIME type; guessed from the URL when empty
	ReplyTo        string
}

// SendMessage stores a message and then touches the conversation.
// The two writes are independent; if the second fails the message exists
// without having moved the pointer or counters, and the next send repairs the pointer.
func (s *Service) SendMessage(ctx context.Context, in SendMessageInput) (*entity.Message, error) {
	if in.ConversationID == "" {
		return nil, entity.ErrMissingID
	}
	if in.SenderID == "" {
		return nil, entity.ErrMissingUserID
	}

	hasAttachment := in.AttachmentURL != ""
	if err := entity.ValidateContent(in.Content, hasAttachment, s.rules.MaxMessageLength); err != nil {
		return nil, err
	}

	msg := &entity.Message{
		ConversationID: in.ConversationID,
		SenderID:       in.SenderID,
		Content:        in.Content,
		ReadBy:         []string{in.SenderID},
	}

	if hasAttachment {
		if err := entity.ValidateAttachmentURL(in.AttachmentURL); err != nil {
			return nil, err
		}
		msg.AttachmentURL = in.AttachmentURL
		msg.AttachmentType = in.AttachmentType
		if msg.AttachmentType == "" {
			msg.AttachmentType = entity.MIMEFromURL(in.AttachmentURL)
		}
		if strings.TrimSpace(msg.Content) == "" {
			msg.Content = entity.ClassifyMIME(msg.AttachmentType).Placeholder()
		}
	}

	if _, err := s.participantConversation(ctx, in.ConversationID, in.SenderID); err != nil {
		return nil, err
	}

	if in.ReplyTo != "" {
		target, err := s.msgRepo.GetByID(ctx, in.ReplyTo)
		if err != nil {
			return nil, fmt.Errorf("getting reply target: %w", err)
		}
		if target == nil || target.IsDeleted() || target.ConversationID != in.ConversationID {
			return nil, entity.ErrReplyTargetNotFound
		}
		msg.ReplyTo = target.ID
		msg.ReplyPreview = replyPreview(target)
	}

	now := s.now()
	id, err := s.newMessageID(now)
	if err != nil {
		return nil, fmt.Errorf("generating message id: %w", err)
	}
	msg.ID = id
	msg.CreatedAt = now

	if err := s.msgRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}

	if err := s.convRepo.TouchOnSend(ctx, msg.ConversationID, msg.SenderID, msg.ID, msg.CreatedAt); err != nil {
		return nil, fmt.Errorf("updating conversation after send: %w", err)
	}

	return msg, nil
}

// ListMessagesInput represents input for listing messages
type ListMessagesInput struct {
	ConversationID string
	UserID         string
	Page           entity.Page
}

// ListMessagesOutput represents output from listing messages
type ListMessagesOutput struct {
	Messages []entity.Message
	Total    int64
	HasMore  bool
}

// ListMessages returns one page of the messages visible to the caller.
// Pages are counted from the newest message; each page is returned in
// chronological order.
func (s *Service) ListMessages(ctx context.Context, in ListMessagesInput) (*ListMessagesOutput, error) {
	if _, err := s.participantConversation(ctx, in.ConversationID, in.UserID); err != nil {
		return nil, err
	}

	msgs, err := s.msgRepo.ListVisible(ctx, in.ConversationID, in.UserID, in.Page.Limit, in.Page.Offset())
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	total, err := s.msgRepo.CountVisible(ctx, in.ConversationID, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("counting messages: %w", err)
	}

	// Storage returns newest first, delivery is oldest first
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	if err := s.attachReplyPreviews(ctx, in.UserID, msgs); err != nil {
		return nil, err
	}

	if msgs == nil {
		msgs = []entity.Message{}
	}

	return &ListMessagesOutput{
		Messages: msgs,
		Total:    total,
		HasMore:  int64(in.Page.Offset()+len(msgs)) < total,
	}, nil
}

// MarkRead adds the caller's read receipt to every unread message from the
// other participant and resets the caller's unread counter.
// Returns the number of messages that received a receipt.
func (s *Service) MarkRead(ctx context.Context, conversationID, userID string) (int64, error) {
	if _, err := s.participantConversation(ctx, conversationID, userID); err != nil {
		return 0, err
	}

	updated, err := s.msgRepo.MarkRead(ctx, conversationID, userID, s.now())
	if err != nil {
		return 0, fmt.Errorf("marking messages read: %w", err)
	}

	if err := s.convRepo.ResetUnread(ctx, conversationID, userID); err != nil {
		return 0, fmt.Errorf("resetting unread counter: %w", err)
	}

	return updated, nil
}

// EditMessage replaces the content of a text message within the edit window
func (s *Service) EditMessage(ctx context.Context, messageID, userID, content string) (*entity.Message, error) {
	if messageID == "" {
		return nil, entity.ErrMissingID
	}
	if userID == "" {
		return nil, entity.ErrMissingUserID
	}

	msg, err := s.msgRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("getting message: %w", err)
	}
	if msg == nil || !msg.VisibleTo(userID) {
		return nil, entity.ErrMessageNotFound
	}

	now := s.now()
	if err := msg.CheckEditable(userID, now, s.rules.EditWindow); err != nil {
		return nil, err
	}
	if err := entity.ValidateContent(content, false, s.rules.MaxMessageLength); err != nil {
		return nil, err
	}

	if err := s.msgRepo.UpdateContent(ctx, messageID, content, now); err != nil {
		return nil, fmt.Errorf("updating message: %w", err)
	}

	msg.Content = content
	msg.EditedAt = &now
	return msg, nil
}

// DeleteMode says which tombstone a delete request produced
type DeleteMode string

const (
	DeleteForMe       DeleteMode = "me"
	DeleteForEveryone DeleteMode = "everyone"
)

// DeleteMessageInput represents input for deleting a message
type DeleteMessageInput struct {
	MessageID   string
	UserID      string
	ForEveryone bool
}

// DeleteMessage hides a message for the caller or, for its sender within
// the delete window, for everyone. Unread counters are left untouched.
func (s *Service) DeleteMessage(ctx context.Context, in DeleteMessageInput) (DeleteMode, error) {
	if in.MessageID == "" {
		return "", entity.ErrMissingID
	}
	if in.UserID == "" {
		return "", entity.ErrMissingUserID
	}

	msg, err := s.msgRepo.GetByID(ctx, in.MessageID)
	if err != nil {
		return "", fmt.Errorf("getting message: %w", err)
	}
	if msg == nil {
		return "", entity.ErrMessageNotFound
	}

	conv, err := s.convRepo.GetByID(ctx, msg.ConversationID)
	if err != nil {
		return "", fmt.Errorf("getting conversation: %w", err)
	}
	if conv == nil {
		return "", entity.ErrMessageNotFound
	}
	if !conv.HasParticipant(in.UserID) {
		return "", entity.ErrNotParticipant
	}

	// Already gone for everyone: the request can only hide it for the caller
	if in.ForEveryone && !msg.IsDeleted() {
		if err := msg.CheckDeletableForEveryone(in.UserID, s.now(), s.rules.DeleteWindow); err != nil {
			return "", err
		}

		deleted, err := s.msgRepo.DeleteForEveryone(ctx, msg.ID, s.now())
		if err != nil {
			return "", fmt.Errorf("deleting message for everyone: %w", err)
		}
		if deleted {
			return DeleteForEveryone, nil
		}
	}

	if err := s.msgRepo.DeleteForViewer(ctx, msg.ID, in.UserID); err != nil {
		return "", fmt.Errorf("deleting message for viewer: %w", err)
	}
	return DeleteForMe, nil
}

// IsParticipant reports whether userID may act in an active conversation
func (s *Service) IsParticipant(ctx context.Context, conversationID, userID string) error {
	_, err := s.participantConversation(ctx, conversationID, userID)
	return err
}

// participantConversation loads an active conversation and checks membership
func (s *Service) participantConversation(ctx context.Context, conversationID, userID string) (*entity.Conversation, error) {
	if conversationID == "" {
		return nil, entity.ErrMissingID
	}
	if userID == "" {
		return nil, entity.ErrMissingUserID
	}

	conv, err := s.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("getting conversation: %w", err)
	}
	if conv == nil || conv.IsDeleted() {
		return nil, entity.ErrConversationNotFound
	}
	if !conv.HasParticipant(userID) {
		return nil, entity.ErrNotParticipant
	}
	return conv, nil
}

// attachReplyPreviews resolves reply targets in one batch. Targets hidden
// from the viewer keep the reference but get no preview.
func (s *Service) attachReplyPreviews(ctx context.Context, viewerID string, msgs []entity.Message) error {
	var ids []string
	for _, m := range msgs {
		if m.ReplyTo != "" {
			ids = append(ids, m.ReplyTo)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	targets, err := s.msgRepo.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("getting reply targets: %w", err)
	}

	byID := make(map[string]*entity.Message, len(targets))
	for i := range targets {
		byID[targets[i].ID] = &targets[i]
	}

	for i := range msgs {
		target, ok := byID[msgs[i].ReplyTo]
		if ok && target.VisibleTo(viewerID) {
			msgs[i].ReplyPreview = replyPreview(target)
		}
	}
	return nil
}

func replyPreview(m *entity.Message) *entity.ReplyPreview {
	return &entity.ReplyPreview{
		ID:       m.ID,
		SenderID: m.SenderID,
		Content:  truncate(m.Content, previewLength),
	}
}

// newMessageID returns a ULID so ids sort by creation time. Ids minted in
// the same millisecond increase monotonically.
func (s *Service) newMessageID(now time.Time) (string, error) {
	s.idMu.Lock()
	id, err := ulid.New(ulid.Timestamp(now), s.entropy)
	s.idMu.Unlock()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

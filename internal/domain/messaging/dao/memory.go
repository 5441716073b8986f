package dao

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vadim/neo-dm/internal/domain/messaging/entity"
)

// ConversationMemory is an in-process conversation store for development
// and tests. Every mutation happens under one mutex, which gives the same
// per-operation atomicity as the PostgreSQL statements.
type ConversationMemory struct {
	mu    sync.Mutex
	convs map[string]*entity.Conversation
}

// NewConversationMemory creates an empty in-memory conversation store
func NewConversationMemory() *ConversationMemory {
	return &ConversationMemory{convs: make(map[string]*entity.Conversation)}
}

// GetOrCreate returns the active conversation for the pair or creates it
func (s *ConversationMemory) GetOrCreate(ctx context.Context, id string, pair [2]string, now time.Time) (*entity.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.convs {
		if c.DeletedAt == nil && c.Participants[0] == pair[0] && c.Participants[1] == pair[1] {
			return cloneConversation(c), nil
		}
	}

	c := &entity.Conversation{
		ID:           id,
		Participants: []string{pair[0], pair[1]},
		UnreadCounts: map[string]int{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.convs[id] = c
	return cloneConversation(c), nil
}

// GetByID retrieves a conversation by ID
func (s *ConversationMemory) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convs[id]
	if !ok {
		return nil, nil
	}
	return cloneConversation(c), nil
}

// ListByParticipant returns active conversations of userID, most recent activity first
func (s *ConversationMemory) ListByParticipant(ctx context.Context, userID string, limit, offset int) ([]entity.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	var out []entity.Conversation
	for _, c := range s.convs {
		if c.DeletedAt == nil && c.HasParticipant(userID) {
			out = append(out, *cloneConversation(c))
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.LastMessageAt != nil && b.LastMessageAt == nil:
			return true
		case a.LastMessageAt == nil && b.LastMessageAt != nil:
			return false
		case a.LastMessageAt != nil && !a.LastMessageAt.Equal(*b.LastMessageAt):
			return a.LastMessageAt.After(*b.LastMessageAt)
		case !a.CreatedAt.Equal(b.CreatedAt):
			return a.CreatedAt.After(b.CreatedAt)
		default:
			return a.ID > b.ID
		}
	})

	return paginate(out, limit, offset), nil
}

// CountByParticipant returns the number of active conversations of userID
func (s *ConversationMemory) CountByParticipant(ctx context.Context, userID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, c := range s.convs {
		if c.DeletedAt == nil && c.HasParticipant(userID) {
			n++
		}
	}
	return n, nil
}

// TotalUnread sums the unread counters of userID over active conversations
func (s *ConversationMemory) TotalUnread(ctx context.Context, userID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, c := range s.convs {
		if c.DeletedAt == nil && c.HasParticipant(userID) {
			total += int64(c.UnreadFor(userID))
		}
	}
	return total, nil
}

// TouchOnSend moves the last-message pointer and increments non-sender counters
func (s *ConversationMemory) TouchOnSend(ctx context.Context, conversationID, senderID, messageID string, sentAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convs[conversationID]
	if !ok {
		return entity.ErrConversationNotFound
	}

	if c.LastMessageAt == nil || !c.LastMessageAt.After(sentAt) {
		at := sentAt
		c.LastMessageAt = &at
		c.LastMessageID = messageID
	}
	c.UpdatedAt = sentAt
	for _, p := range c.Participants {
		if p != senderID {
			c.UnreadCounts[p]++
		}
	}
	return nil
}

// ResetUnread sets the unread counter of userID to zero
func (s *ConversationMemory) ResetUnread(ctx context.Context, conversationID, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.convs[conversationID]; ok {
		c.UnreadCounts[userID] = 0
	}
	return nil
}

// SoftDelete marks a conversation as deleted
func (s *ConversationMemory) SoftDelete(ctx context.Context, conversationID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.convs[conversationID]; ok && c.DeletedAt == nil {
		c.DeletedAt = &at
		c.UpdatedAt = at
	}
	return nil
}

func cloneConversation(c *entity.Conversation) *entity.Conversation {
	cp := *c
	cp.Participants = append([]string(nil), c.Participants...)
	cp.UnreadCounts = make(map[string]int, len(c.UnreadCounts))
	for k, v := range c.UnreadCounts {
		cp.UnreadCounts[k] = v
	}
	return &cp
}

// MessageMemory is an in-process message store for development and tests
type MessageMemory struct {
	mu   sync.Mutex
	msgs map[string]*entity.Message
}

// NewMessageMemory creates an empty in-memory message store
func NewMessageMemory() *MessageMemory {
	return &MessageMemory{msgs: make(map[string]*entity.Message)}
}

// Create inserts a new message
func (s *MessageMemory) Create(ctx context.Context, msg *entity.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.msgs[msg.ID] = cloneMessage(msg)
	return nil
}

// GetByID retrieves a message by ID
func (s *MessageMemory) GetByID(ctx context.Context, id string) (*entity.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.msgs[id]
	if !ok {
		return nil, nil
	}
	return cloneMessage(m), nil
}

// GetByIDs retrieves messages by ID, skipping unknown ids
func (s *MessageMemory) GetByIDs(ctx context.Context, ids []string) ([]entity.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []entity.Message
	for _, id := range ids {
		if m, ok := s.msgs[id]; ok {
			out = append(out, *cloneMessage(m))
		}
	}
	return out, nil
}

// ListVisible returns the page of messages viewerID may see, newest first
func (s *MessageMemory) ListVisible(ctx context.Context, conversationID, viewerID string, limit, offset int) ([]entity.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return paginate(s.visible(conversationID, viewerID), limit, offset), nil
}

// CountVisible returns the number of messages viewerID may see
func (s *MessageMemory) CountVisible(ctx context.Context, conversationID, viewerID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return int64(len(s.visible(conversationID, viewerID))), nil
}

func (s *MessageMemory) visible(conversationID, viewerID string) []entity.Message {
	s.mu.Lock()
	var inConv []entity.Message
	for _, m := range s.msgs {
		if m.ConversationID == conversationID {
			inConv = append(inConv, *cloneMessage(m))
		}
	}
	s.mu.Unlock()

	out := entity.FilterVisible(inConv, viewerID)

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// MarkRead adds read receipts for userID on unread messages from others
func (s *MessageMemory) MarkRead(ctx context.Context, conversationID, userID string, at time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, m := range s.msgs {
		if m.ConversationID != conversationID || m.SenderID == userID || m.IsDeleted() || m.IsReadBy(userID) {
			continue
		}
		m.ReadBy = append(m.ReadBy, userID)
		readAt := at
		m.ReadAt = &readAt
		n++
	}
	return n, nil
}

// UpdateContent replaces the content of a message
func (s *MessageMemory) UpdateContent(ctx context.Context, id, content string, editedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.msgs[id]
	if !ok || m.IsDeleted() {
		return entity.ErrMessageNotFound
	}
	m.Content = content
	m.EditedAt = &editedAt
	return nil
}

// DeleteForEveryone sets the global tombstone; false when already set
func (s *MessageMemory) DeleteForEveryone(ctx context.Context, id string, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.msgs[id]
	if !ok || m.IsDeleted() {
		return false, nil
	}
	m.DeletedAt = &at
	m.DeletedFor = nil
	return true, nil
}

// DeleteForViewer hides a message from viewerID
func (s *MessageMemory) DeleteForViewer(ctx context.Context, id, viewerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.msgs[id]; ok && !m.IsDeletedFor(viewerID) {
		m.DeletedFor = append(m.DeletedFor, viewerID)
	}
	return nil
}

func cloneMessage(m *entity.Message) *entity.Message {
	cp := *m
	cp.ReadBy = append([]string(nil), m.ReadBy...)
	cp.DeletedFor = append([]string(nil), m.DeletedFor...)
	return &cp
}

// UserMemory is a static user directory for development and tests
type UserMemory struct {
	mu    sync.RWMutex
	users map[string]entity.User
}

// NewUserMemory creates a directory seeded with users
func NewUserMemory(users ...entity.User) *UserMemory {
	d := &UserMemory{users: make(map[string]entity.User, len(users))}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

// GetByID retrieves a user by ID
func (d *UserMemory) GetByID(ctx context.Context, id string) (*entity.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// GetByIDs retrieves users keyed by ID
func (d *UserMemory) GetByIDs(ctx context.Context, ids []string) (map[string]entity.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make(map[string]entity.User, len(ids))
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 || offset >= len(items) {
		return nil
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

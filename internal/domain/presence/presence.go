// Package presence tracks ephemeral "user is typing" state per conversation.
// Entries are never persisted; they expire after a fixed TTL unless renewed.
package presence

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultTTL is how long a typing signal stays visible without renewal
const DefaultTTL = 10 * time.Second

// ErrEmptyKey is returned when a conversation or user id is missing
var ErrEmptyKey = errors.New("presence: conversation id and user id are required")

// Backend stores typing entries with absolute expiry times
type Backend interface {
	Set(ctx context.Context, conversationID, userID string, expiresAt time.Time) error
	Remove(ctx context.Context, conversationID, userID string) error
	Active(ctx context.Context, conversationID string, now time.Time) ([]string, error)
	Sweep(ctx context.Context, now time.Time) (int, error)
	Ping(ctx context.Context) error
}

// Option configures the Store
type Option func(*Store)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is the typing presence store
type Store struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time
}

// NewStore creates a presence store. A non-positive ttl falls back to DefaultTTL.
func NewStore(backend Backend, ttl time.Duration, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{
		backend: backend,
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the configured expiry
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// SetTyping marks userID as typing in conversationID, refreshing the expiry
func (s *Store) SetTyping(ctx context.Context, conversationID, userID string) error {
	if conversationID == "" || userID == "" {
		return ErrEmptyKey
	}
	if err := s.backend.Set(ctx, conversationID, userID, s.now().Add(s.ttl)); err != nil {
		return fmt.Errorf("setting typing: %w", err)
	}
	return nil
}

// RemoveTyping clears the typing state of userID
func (s *Store) RemoveTyping(ctx context.Context, conversationID, userID string) error {
	if conversationID == "" || userID == "" {
		return ErrEmptyKey
	}
	if err := s.backend.Remove(ctx, conversationID, userID); err != nil {
		return fmt.Errorf("removing typing: %w", err)
	}
	return nil
}

// GetTypingUsers returns ids with a non-expired typing entry, sorted
func (s *Store) GetTypingUsers(ctx context.Context, conversationID string) ([]string, error) {
	if conversationID == "" {
		return nil, ErrEmptyKey
	}
	users, err := s.backend.Active(ctx, conversationID, s.now())
	if err != nil {
		return nil, fmt.Errorf("getting typing users: %w", err)
	}
	if users == nil {
		users = []string{}
	}
	return users, nil
}

// Sweep evicts every expired entry and returns how many were removed
func (s *Store) Sweep(ctx context.Context) (int, error) {
	n, err := s.backend.Sweep(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("sweeping typing entries: %w", err)
	}
	return n, nil
}

// Ping checks the backend
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

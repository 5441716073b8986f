package presence

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryBackend keeps typing entries in process memory.
// Entries are not shared between instances.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]map[string]time.Time // conversation -> user -> expiry
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]map[string]time.Time)}
}

// Set stores or refreshes an entry
func (b *MemoryBackend) Set(_ context.Context, conversationID, userID string, expiresAt time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	users, ok := b.entries[conversationID]
	if !ok {
		users = make(map[string]time.Time)
		b.entries[conversationID] = users
	}
	users[userID] = expiresAt
	return nil
}

// Remove deletes an entry
func (b *MemoryBackend) Remove(_ context.Context, conversationID, userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if users, ok := b.entries[conversationID]; ok {
		delete(users, userID)
		if len(users) == 0 {
			delete(b.entries, conversationID)
		}
	}
	return nil
}

// Active returns live entries, evicting expired ones of this conversation
func (b *MemoryBackend) Active(_ context.Context, conversationID string, now time.Time) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	users, ok := b.entries[conversationID]
	if !ok {
		return nil, nil
	}

	out := make([]string, 0, len(users))
	for userID, expiresAt := range users {
		if !now.Before(expiresAt) {
			delete(users, userID)
			continue
		}
		out = append(out, userID)
	}
	if len(users) == 0 {
		delete(b.entries, conversationID)
	}

	sort.Strings(out)
	return out, nil
}

// Sweep evicts expired entries across all conversations
func (b *MemoryBackend) Sweep(_ context.Context, now time.Time) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	evicted := 0
	for conversationID, users := range b.entries {
		for userID, expiresAt := range users {
			if !now.Before(expiresAt) {
				delete(users, userID)
				evicted++
			}
		}
		if len(users) == 0 {
			delete(b.entries, conversationID)
		}
	}
	return evicted, nil
}

// Ping always succeeds
func (b *MemoryBackend) Ping(context.Context) error {
	return nil
}

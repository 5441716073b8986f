package entity

import (
	"sort"
	"time"
)

// Conversation is a two-party messaging thread.
//
// Participants are stored in ascending order so an unordered pair always
// produces the same key. UnreadCounts is keyed by participant id; a missing
// key means zero.
type Conversation struct {
	ID            string         `json:"id"`
	Participants  []string       `json:"participants"`
	LastMessageID string         `json:"last_message_id,omitempty"`
	LastMessageAt *time.Time     `json:"last_message_at,omitempty"`
	UnreadCounts  map[string]int `json:"unread_counts"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     *time.Time     `json:"deleted_at,omitempty"`
}

// NormalizePair returns the two ids in canonical (ascending) order
func NormalizePair(a, b string) [2]string {
	pair := [2]string{a, b}
	sort.Strings(pair[:])
	return pair
}

// HasParticipant reports whether userID belongs to the conversation
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the participant that is not userID
func (c *Conversation) OtherParticipant(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

// UnreadFor returns the unread counter of userID, defaulting to zero
func (c *Conversation) UnreadFor(userID string) int {
	if c.UnreadCounts == nil {
		return 0
	}
	return c.UnreadCounts[userID]
}

// IsDeleted reports whether the conversation carries a tombstone
func (c *Conversation) IsDeleted() bool {
	return c.DeletedAt != nil
}

// Participant is the display projection of a conversation member
type Participant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Photo string `json:"photo,omitempty"`
	Role  string `json:"role,omitempty"`
}

// LastMessageSummary is the per-viewer preview of the most recent message
type LastMessageSummary struct {
	ID            string    `json:"id"`
	SenderID      string    `json:"sender_id"`
	Preview       string    `json:"preview"`
	IsFromMe      bool      `json:"is_from_me"`
	HasAttachment bool      `json:"has_attachment"`
	IsDeleted     bool      `json:"is_deleted"`
	CreatedAt     time.Time `json:"created_at"`
}

// ConversationView is a conversation as seen by one of its participants
type ConversationView struct {
	ID               string              `json:"id"`
	OtherParticipant Participant         `json:"other_participant"`
	UnreadCount      int                 `json:"unread_count"`
	LastMessage      *LastMessageSummary `json:"last_message,omitempty"`
	LastMessageAt    *time.Time          `json:"last_message_at,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// User is the subset of a platform user profile this subsystem reads
type User struct {
	ID    string
	Name  string
	Photo string
	Role  string
}

package entity

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// EditWindow is how long after creation the sender may edit a message
	EditWindow = 15 * time.Minute

	// DeleteForEveryoneWindow is how long after creation the sender may
	// delete a message for both participants
	DeleteForEveryoneWindow = 7 * 24 * time.Hour

	// MaxMessageLength is the maximum length of message content in runes
	MaxMessageLength = 5000
)

// Message is a single unit of content inside a conversation.
//
// DeletedAt and DeletedFor are independent tombstones: DeletedAt hides the
// message from everyone, DeletedFor hides it from the listed viewers only.
type Message struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversation_id"`
	SenderID       string        `json:"sender_id"`
	Content        string        `json:"content"`
	AttachmentURL  string        `json:"attachment_url,omitempty"`
	AttachmentType string        `json:"attachment_type,omitempty"`
	ReplyTo        string        `json:"reply_to,omitempty"`
	ReplyPreview   *ReplyPreview `json:"reply_preview,omitempty"`
	ReadBy         []string      `json:"read_by"`
	ReadAt         *time.Time    `json:"read_at,omitempty"`
	EditedAt       *time.Time    `json:"edited_at,omitempty"`
	DeletedAt      *time.Time    `json:"-"`
	DeletedFor     []string      `json:"-"`
	CreatedAt      time.Time     `json:"created_at"`
}

// ReplyPreview is a short rendering of the message being replied to
type ReplyPreview struct {
	ID       string `json:"id"`
	SenderID string `json:"sender_id"`
	Content  string `json:"content"`
}

// IsDeleted reports whether the message was deleted for everyone
func (m *Message) IsDeleted() bool {
	return m.DeletedAt != nil
}

// IsDeletedFor reports whether viewerID hid the message for themselves
func (m *Message) IsDeletedFor(viewerID string) bool {
	return containsID(m.DeletedFor, viewerID)
}

// VisibleTo reports whether viewerID may see the message.
// The global tombstone takes precedence over the per-viewer one.
func (m *Message) VisibleTo(viewerID string) bool {
	if m.IsDeleted() {
		return false
	}
	return !m.IsDeletedFor(viewerID)
}

// IsReadBy reports whether userID has a read receipt on the message
func (m *Message) IsReadBy(userID string) bool {
	return containsID(m.ReadBy, userID)
}

// HasAttachment reports whether the message carries an attachment
func (m *Message) HasAttachment() bool {
	return m.AttachmentURL != ""
}

// CheckEditable validates that userID may edit the message at now
func (m *Message) CheckEditable(userID string, now time.Time, window time.Duration) error {
	if m.SenderID != userID {
		return ErrNotMessageSender
	}
	if m.HasAttachment() {
		return ErrAttachmentNotEditable
	}
	if now.Sub(m.CreatedAt) > window {
		return ErrEditWindowExpired
	}
	return nil
}

// CheckDeletableForEveryone validates that userID may delete the message for
// both participants at now
func (m *Message) CheckDeletableForEveryone(userID string, now time.Time, window time.Duration) error {
	if m.SenderID != userID {
		return ErrNotMessageSender
	}
	if now.Sub(m.CreatedAt) > window {
		return ErrDeleteWindowExpired
	}
	return nil
}

// ValidateContent validates the text of a new or edited message.
// An empty text is only allowed when the message carries an attachment.
func ValidateContent(content string, hasAttachment bool, maxLength int) error {
	if strings.TrimSpace(content) == "" && !hasAttachment {
		return ErrEmptyMessage
	}
	if maxLength > 0 && utf8.RuneCountInString(content) > maxLength {
		return ErrMessageTooLong
	}
	return nil
}

// FilterVisible returns the messages viewerID may see, preserving order
func FilterVisible(msgs []Message, viewerID string) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.VisibleTo(viewerID) {
			out = append(out, m)
		}
	}
	return out
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/vadim/neo-dm/internal/domain/messaging/entity"
)

const (
	previewLength  = 100
	deletedPreview = "This message was deleted"
)

// MessageLookup loads messages by id in one round trip
type MessageLookup interface {
	GetByIDs(ctx context.Context, ids []string) ([]entity.Message, error)
}

// Projector renders conversations as seen by one participant
type Projector struct {
	users        UserDirectory
	messages     MessageLookup
	photoBaseURL string
}

// NewProjector creates a projector. Relative profile photos are prefixed with photoBaseURL.
func NewProjector(users UserDirectory, messages MessageLookup, photoBaseURL string) *Projector {
	return &Projector{
		users:        users,
		messages:     messages,
		photoBaseURL: strings.TrimRight(photoBaseURL, "/"),
	}
}

// Project builds one view per conversation for viewerID, preserving order.
// Participants and last messages are fetched in batches.
func (p *Projector) Project(ctx context.Context, viewerID string, convs []entity.Conversation) ([]entity.ConversationView, error) {
	views := make([]entity.ConversationView, 0, len(convs))
	if len(convs) == 0 {
		return views, nil
	}

	otherIDs := make([]string, 0, len(convs))
	lastIDs := make([]string, 0, len(convs))
	for i := range convs {
		otherIDs = append(otherIDs, convs[i].OtherParticipant(viewerID))
		if convs[i].LastMessageID != "" {
			lastIDs = append(lastIDs, convs[i].LastMessageID)
		}
	}

	users, err := p.users.GetByIDs(ctx, otherIDs)
	if err != nil {
		return nil, fmt.Errorf("getting participants: %w", err)
	}

	lastByID := map[string]*entity.Message{}
	if len(lastIDs) > 0 {
		msgs, err := p.messages.GetByIDs(ctx, lastIDs)
		if err != nil {
			return nil, fmt.Errorf("getting last messages: %w", err)
		}
		for i := range msgs {
			lastByID[msgs[i].ID] = &msgs[i]
		}
	}

	for i := range convs {
		c := &convs[i]
		otherID := c.OtherParticipant(viewerID)

		view := entity.ConversationView{
			ID:               c.ID,
			OtherParticipant: p.participant(otherID, users),
			UnreadCount:      c.UnreadFor(viewerID),
			LastMessageAt:    c.LastMessageAt,
			CreatedAt:        c.CreatedAt,
			UpdatedAt:        c.UpdatedAt,
		}
		if last, ok := lastByID[c.LastMessageID]; ok {
			view.LastMessage = summarize(last, viewerID)
		}
		views = append(views, view)
	}

	return views, nil
}

func (p *Projector) participant(id string, users map[string]entity.User) entity.Participant {
	u, ok := users[id]
	if !ok {
		return entity.Participant{ID: id}
	}
	return entity.Participant{
		ID:    u.ID,
		Name:  u.Name,
		Photo: p.ResolvePhoto(u.Photo),
		Role:  u.Role,
	}
}

// ResolvePhoto turns a stored photo reference into an absolute URL.
// Absolute URLs pass through; relative paths are joined to the base URL.
func (p *Projector) ResolvePhoto(photo string) string {
	if photo == "" {
		return ""
	}
	if strings.HasPrefix(photo, "http://") || strings.HasPrefix(photo, "https://") {
		return photo
	}
	if p.photoBaseURL == "" {
		return photo
	}
	return p.photoBaseURL + "/" + strings.TrimLeft(photo, "/")
}

func summarize(m *entity.Message, viewerID string) *entity.LastMessageSummary {
	s := &entity.LastMessageSummary{
		ID:            m.ID,
		SenderID:      m.SenderID,
		IsFromMe:      m.SenderID == viewerID,
		HasAttachment: m.HasAttachment(),
		CreatedAt:     m.CreatedAt,
	}
	if m.VisibleTo(viewerID) {
		s.Preview = truncate(m.Content, previewLength)
	} else {
		s.Preview = deletedPreview
		s.IsDeleted = true
	}
	return s
}

// truncate cuts s to at most n runes, marking the cut with an ellipsis
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadim/neo-dm/internal/domain/messaging/dao"
	"github.com/vadim/neo-dm/internal/domain/messaging/entity"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	svc   *Service
	convs *dao.ConversationMemory
	msgs  *dao.MessageMemory
	clock *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	convs := dao.NewConversationMemory()
	msgs := dao.NewMessageMemory()
	users := dao.NewUserMemory(
		entity.User{ID: "p1", Name: "Anna", Photo: "uploads/p1.jpg", Role: "patient"},
		entity.User{ID: "p2", Name: "Boris", Photo: "https://cdn.example.com/p2.jpg", Role: "doctor"},
		entity.User{ID: "p3", Name: "Vera"},
	)

	svc := New(convs, msgs, users,
		WithClock(clock.Now),
		WithPhotoBaseURL("https://api.example.com/"),
	)
	return &fixture{svc: svc, convs: convs, msgs: msgs, clock: clock}
}

func (f *fixture) conversation(t *testing.T, a, b string) *entity.Conversation {
	t.Helper()
	conv, err := f.svc.GetOrCreateConversation(context.Background(), a, b)
	require.NoError(t, err)
	return conv
}

func (f *fixture) send(t *testing.T, convID, sender, content string) *entity.Message {
	t.Helper()
	f.clock.Advance(time.Second)
	msg, err := f.svc.SendMessage(context.Background(), SendMessageInput{
		ConversationID: convID,
		SenderID:       sender,
		Content:        content,
	})
	require.NoError(t, err)
	return msg
}

func page(t *testing.T, number, limit int) entity.Page {
	t.Helper()
	p, err := entity.NewPage(number, limit, 20, 100)
	require.NoError(t, err)
	return p
}

func TestGetOrCreateConversation_PairIsUnordered(t *testing.T) {
	f := newFixture(t)

	first := f.conversation(t, "p1", "p2")
	second := f.conversation(t, "p2", "p1")

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, []string{"p1", "p2"}, second.Participants)
	assert.Equal(t, 0, first.UnreadFor("p1"))
	assert.Equal(t, 0, first.UnreadFor("p2"))
}

func TestGetOrCreateConversation_Concurrent(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	ids := make([]string, 10)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := "p1", "p2"
			if i%2 == 0 {
				a, b = b, a
			}
			conv, err := f.svc.GetOrCreateConversation(context.Background(), a, b)
			if assert.NoError(t, err) {
				ids[i] = conv.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestGetOrCreateConversation_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetOrCreateConversation(ctx, "p1", "p1")
	assert.ErrorIs(t, err, entity.ErrConflict)

	_, err = f.svc.GetOrCreateConversation(ctx, "p1", "")
	assert.ErrorIs(t, err, entity.ErrValidation)

	_, err = f.svc.GetOrCreateConversation(ctx, "p1", "ghost")
	assert.ErrorIs(t, err, entity.ErrUserNotFound)
}

func TestGetOrCreateConversation_AfterSoftDeleteStartsFresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old := f.conversation(t, "p1", "p2")
	require.NoError(t, f.svc.DeleteConversation(ctx, old.ID, "p1"))

	fresh := f.conversation(t, "p2", "p1")
	assert.NotEqual(t, old.ID, fresh.ID)
}

func TestSendMessage_UpdatesPointerAndUnread(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.conversation(t, "p1", "p2")

	m1 := f.send(t, conv.ID, "p1", "hello")
	m2 := f.send(t, conv.ID, "p1", "are you there?")

	assert.Equal(t, []string{"p1"}, m1.ReadBy)

	stored, err := f.convs.GetByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, m2.ID, stored.LastMessageID)
	assert.Equal(t, 2, stored.UnreadFor("p2"))
	assert.Equal(t, 0, stored.UnreadFor("p1"))

	total, err := f.svc.TotalUnread(ctx, "p2")
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}

func TestSendMessage_ConcurrentIncrementsAreNotLost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.conversation(t, "p1", "p2")

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.SendMessage(ctx, SendMessageInput{ConversationID: conv.ID, SenderID: "p1", Content: "ping"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := f.convs.GetByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, n, stored.UnreadFor("p2"))
}

func TestSendMessage_IDsIncreaseWithinOneMillisecond(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.conversation(t, "p1", "p2")

	// the clock stands still, so every message shares one timestamp
	var prev string
	for i := 0; i < 50; i++ {
		msg, err := f.svc.SendMessage(ctx, SendMessageInput{
			ConversationID: conv.ID,
			SenderID:       "p1",
			Content:        "burst",
		})
		require.NoError(t, err)
		if prev != "" {
			assert.Less(t, prev, msg.ID)
		}
		prev = msg.ID
	}
}

func TestSendMessage_AttachmentPlaceholder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.conversation(t, "p1", "p2")

	img, err := f.svc.SendMessage(ctx, SendMessageInput{
		ConversationID: conv.ID,
		SenderID:       "p1",
		AttachmentURL:  "https://cdn.example.com/2026/03/01/x.png",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.PlaceholderImage, img.Content)
	assert.Equal(t, "image/png", img.AttachmentType)

	vid, err := f.svc.SendMessage(ctx, SendMessageInput{
		ConversationID: conv.ID,
		SenderID:       "p1",
		AttachmentURL:  "https://cdn.example.com/clip",
		AttachmentType: "video/mp4",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.PlaceholderVideo, vid.Content)

	doc, err := f.svc.SendMessage(ctx, SendMessageInput{
		ConversationID: conv.ID,
		SenderID:       "p1",
		AttachmentURL:  "https://cdn.example.com/report.pdf",
		Content:        "see report",
	})
	require.NoError(t, err)
	assert.Equal(t, "see report", doc.Content)
}

func TestSendMessage_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.conversation(t, "p1", "p2")

	_, err := f.svc.SendMessage(ctx, SendMessageInput{ConversationID: conv.ID, SenderID: "p1", Content: "  "})
	assert.ErrorIs(t, err, entity.ErrEmptyMessage)

	_, err = f.svc.SendMessage(ctx, SendMessageInput{ConversationID: conv.ID, SenderID: "p1", AttachmentURL: "not a url"})
	assert.ErrorIs(t, err, entity.ErrInvalidAttachment)

	_, err = f.svc.SendMessage(ctx, SendMessageInput{ConversationID: conv.ID, SenderID: "p3", Content: "hi"})
	assert.ErrorIs(t, err, entity.ErrForbidden)

	_, err = f.svc.SendMessage(ctx, SendMessageInput{ConversationID: "missing", SenderID: "p1", Content: "hi"})
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestSendMessage_Reply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.conversation(t, "p1", "p2")
	other := f.conversation(t, "p1", "p3")

	original := f.send(t, conv.ID, "p2", "question?")

	reply, err := f.svc.SendMessage(ctx, SendMessageInput{ConversationID: conv.ID, SenderID: "p1", Content: "answer", ReplyTo: original.ID})
	require.NoError(t, err)
	require.NotNil(t, reply.ReplyPreview)
	assert.Equal(t, "question?", reply.ReplyPreview.Content)

	_, err = f.svc.SendMessage(ctx, SendMessageInput{ConversationID: other.ID, SenderID: "p1", Content: "x", ReplyTo: original.ID})
	assert.ErrorIs(t, err, entity.ErrReplyTargetNotFound)

	_, err = f.svc.DeleteMessage(ctx, DeleteMessageInput{MessageID: original.ID, UserID: "p2", ForEveryone: true})
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, SendMessageInput{ConversationID: conv.ID, SenderID: "p1", Content: "x", ReplyTo: original.ID})
	assert.ErrorIs(t, err, entity.ErrReplyTargetNotFound)
}

func TestMarkRead_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.conversation(t, "p1", "p2")

	f.send(t, conv.ID, "p1", "one")
	f.send(t, conv.ID, "p1", "two")
	f.send(t, conv.ID, "p2", "three")

	n, err := f.svc.MarkRead(ctx, conv.ID, "p2")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = f.svc.MarkRead(ctx, conv.ID, "p2")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	stored, err := f.convs.GetByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.UnreadFor("p2"))
	assert.Equal(t, 1, stored.UnreadFor("p1"))

	out, err := f.svc.ListMessages(ctx, ListMessagesInput{ConversationID: conv.ID, UserID: "p1", Page: page(t, 1, 20)})
	require.NoError(t, err)
	for _, m := range out.Messages {
		if m.SenderID == "p1" {
			assert.ElementsMatch(t, []string{"p1", "p2"}, m.ReadBy)
		}
	}
}

func TestListMessages_ChronologicalPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.conversation(t, "p1", "p2")

	var sent []*entity.Message
	for _, text := range []string{"m1", "m2", "m3", "m4", "m5"} {
		sent = append(sent, f.send(t, conv.ID, "p1", text))
	}

	first, err := f.svc.ListMessages(ctx, ListMessagesInput{ConversationID: conv.ID, UserID: "p2", Page: page(t, 1, 2)})
	require.NoError(t, err)
	require.Len(t, first.Messages, 2)
	assert.Equal(t, "m4", first.Messages[0].Content)
	assert.Equal(t, "m5", first.Messages[1].Content)
	assert.EqualValues(t, 5, first.Total)
	assert.True(t, first.HasMore)

	last, err := f.svc.ListMessages(ctx, ListMessagesInput{ConversationID: conv.ID, UserID: "p2", Page: page(t, 3, 2)})
	require.NoError(t, err)
	require.Len(t, last.Messages, 1)
	assert.Equal(t, sent[0].ID, last.Messages[0].ID)
	assert.False(t, last.HasMore)
}

func TestListMessages_PaginatesAfterFiltering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.conversation(t, "p1", "p2")

	f.send(t, conv.ID, "p1", "m1")
	hidden := f.send(t, conv.ID, "p1", "m2")
	f.send(t, conv.ID, "p1", "m3")

	_, err := f.svc.DeleteMessage(ctx, DeleteMessageInput{MessageID: hidden.ID, UserID: "p2"})
	require.NoError(t, err)

	out, err := f.svc.ListMessages(ctx, ListMessagesInput{ConversationID: conv.ID, UserID: "p2", Page: page(t, 1, 2)})
	require.NoError(t, err)
	require.Len(t, out.Messages, 2)
	assert.Equal(t, "m1", out.Messages[0].Content)
	assert.Equal(t, "m3", out.Messages[1].Content)
	assert.EqualValues(t, 2, out.Total)
	assert.False(t, out.HasMore)

	// the sender still sees it
	out, err = f.svc.ListMessages(ctx, ListMessagesInput{ConversationID: conv.ID, UserID: "p1", Page: page(t, 1, 20)})
	require.NoError(t, err)
	assert.Len(t, out.Messages, 3)
}

func TestListMessages_PageBeyondRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.conversation(t, "p1", "p2")
	f.send(t, conv.ID, "p1", "only one")

	_, err := entity.NewPage(92233720368547760, 100, 20, 100)
	require.ErrorIs(t, err, entity.ErrInvalidPagination)

	// a page whose offset wrapped negative yields nothing instead of panicking
	out, err := f.svc.ListMessages(ctx, ListMessagesInput{
		ConversationID: conv.ID,
		UserID:         "p2",
		Page:           entity.Page{Number: 92233720368547760, Limit: 100},
	})
	require.NoError(t, err)
	assert.Empty(t, out.Messages)
	assert.EqualValues(t, 1, out.Total)
}

func TestListMessages_Access(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.conversation(t, "p1", "p2")

	_, err := f.svc.ListMessages(ctx, ListMessagesInput{ConversationID: conv.ID, UserID: "p3", Page: page(t, 1, 20)})
	assert.ErrorIs(t, err, entity.ErrNotParticipant)

	_, err = f.svc.ListMessages(ctx, ListMessagesInput{ConversationID: "nope", UserID: "p1", Page: page(t, 1, 20)})
	assert.ErrorIs(t, err, entity.ErrConversationNotFound)

	out, err := f.svc.ListMessages(ctx, ListMessagesInput{ConversationID: conv.ID, UserID: "p1", Page: page(t, 1, 20)})
	require.NoError(t, err)
	assert.NotNil(t, out.Messages)
	assert.Empty(t, out.Messages)
}

func TestEditMessage_Window(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.conversation(t, "p1", "p2")
	msg := f.send(t, conv.ID, "p1", "typo")

	f.clock.Advance(14*time.Minute + 59*time.Second)
	edited, err := f.svc.EditMessage(ctx, msg.ID, "p1", "fixed")
	require.NoError(t, err)
	assert.Equal(t, "fixed", edited.Content)
	require.NotNil(t, edited.EditedAt)

	// exactly at the window edge
	f.clock.Advance(time.Second)
	_, err = f.svc.EditMessage(ctx, msg.ID, "p1", "fixed twice")
	require.NoError(t, err)

	f.clock.Advance(time.Second)
	_, err = f.svc.EditMessage(ctx, msg.ID, "p1", "again")
	assert.ErrorIs(t, err, entity.ErrEditWindowExpired)

	stored, err := f.msgs.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "fixed twice", stored.Content)
}

func TestEditMessage_Rules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.conversation(t, "p1", "p2")
	msg := f.send(t, conv.ID, "p1", "hello")

	_, err := f.svc.EditMessage(ctx, msg.ID, "p2", "hijack")
	assert.ErrorIs(t, err, entity.ErrNotMessageSender)

	_, err = f.svc.EditMessage(ctx, msg.ID, "p1", " ")
	assert.ErrorIs(t, err, entity.ErrEmptyMessage)

	_, err = f.svc.EditMessage(ctx, "missing", "p1", "x")
	assert.ErrorIs(t, err, entity.ErrMessageNotFound)

	att, err := f.svc.SendMessage(ctx, SendMessageInput{ConversationID: conv.ID, SenderID: "p1", AttachmentURL: "https://cdn.example.com/a.pdf"})
	require.NoError(t, err)
	_, err = f.svc.EditMessage(ctx, att.ID, "p1", "caption")
	assert.ErrorIs(t, err, entity.ErrAttachmentNotEditable)

	_, err = f.svc.DeleteMessage(ctx, DeleteMessageInput{MessageID: msg.ID, UserID: "p1", ForEveryone: true})
	require.NoError(t, err)
	_, err = f.svc.EditMessage(ctx, msg.ID, "p1", "after delete")
	assert.ErrorIs(t, err, entity.ErrMessageNotFound)
}

func TestDeleteMessage_Modes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.conversation(t, "p1", "p2")
	msg := f.send(t, conv.ID, "p1", "secret")

	_, err := f.svc.DeleteMessage(ctx, DeleteMessageInput{MessageID: msg.ID, UserID: "p2", ForEveryone: true})
	assert.ErrorIs(t, err, entity.ErrNotMessageSender)

	_, err = f.svc.DeleteMessage(ctx, DeleteMessageInput{MessageID: msg.ID, UserID: "p3"})
	assert.ErrorIs(t, err, entity.ErrNotParticipant)

	mode, err := f.svc.DeleteMessage(ctx, DeleteMessageInput{MessageID: msg.ID, UserID: "p1", ForEveryone: true})
	require.NoError(t, err)
	assert.Equal(t, DeleteForEveryone, mode)

	// repeating on a globally deleted message degrades to a personal delete
	mode, err = f.svc.DeleteMessage(ctx, DeleteMessageInput{MessageID: msg.ID, UserID: "p1", ForEveryone: true})
	require.NoError(t, err)
	assert.Equal(t, DeleteForMe, mode)

	_, err = f.svc.DeleteMessage(ctx, DeleteMessageInput{MessageID: "missing", UserID: "p1"})
	assert.ErrorIs(t, err, entity.ErrMessageNotFound)
}

func TestDeleteMessage_WindowExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.conversation(t, "p1", "p2")
	msg := f.send(t, conv.ID, "p1", "old")

	f.clock.Advance(7*24*time.Hour + time.Second)
	_, err := f.svc.DeleteMessage(ctx, DeleteMessageInput{MessageID: msg.ID, UserID: "p1", ForEveryone: true})
	assert.ErrorIs(t, err, entity.ErrDeleteWindowExpired)

	mode, err := f.svc.DeleteMessage(ctx, DeleteMessageInput{MessageID: msg.ID, UserID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, DeleteForMe, mode)
}

func TestDeleteMessage_ForEveryoneAtWindowEdge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.conversation(t, "p1", "p2")
	msg := f.send(t, conv.ID, "p1", "week old")

	f.clock.Advance(7 * 24 * time.Hour)
	mode, err := f.svc.DeleteMessage(ctx, DeleteMessageInput{MessageID: msg.ID, UserID: "p1", ForEveryone: true})
	require.NoError(t, err)
	assert.Equal(t, DeleteForEveryone, mode)
}

func TestDeleteMessage_LeavesUnreadCounters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.conversation(t, "p1", "p2")
	msg := f.send(t, conv.ID, "p1", "oops")

	_, err := f.svc.DeleteMessage(ctx, DeleteMessageInput{MessageID: msg.ID, UserID: "p1", ForEveryone: true})
	require.NoError(t, err)

	stored, err := f.convs.GetByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UnreadFor("p2"))
}

func TestListConversations_Projection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c12 := f.conversation(t, "p1", "p2")
	c13 := f.conversation(t, "p1", "p3")

	f.send(t, c12.ID, "p2", "from boris")
	last := f.send(t, c13.ID, "p1", "to vera")

	out, err := f.svc.ListConversations(ctx, ListConversationsInput{UserID: "p1", Page: page(t, 1, 20)})
	require.NoError(t, err)
	require.Len(t, out.Conversations, 2)
	assert.EqualValues(t, 2, out.Total)

	// most recent activity first
	first := out.Conversations[0]
	assert.Equal(t, c13.ID, first.ID)
	assert.Equal(t, "p3", first.OtherParticipant.ID)
	require.NotNil(t, first.LastMessage)
	assert.Equal(t, last.ID, first.LastMessage.ID)
	assert.True(t, first.LastMessage.IsFromMe)
	assert.Equal(t, 0, first.UnreadCount)

	second := out.Conversations[1]
	assert.Equal(t, "Boris", second.OtherParticipant.Name)
	assert.Equal(t, "https://cdn.example.com/p2.jpg", second.OtherParticipant.Photo)
	assert.Equal(t, 1, second.UnreadCount)
	assert.False(t, second.LastMessage.IsFromMe)

	out, err = f.svc.ListConversations(ctx, ListConversationsInput{UserID: "p2", Page: page(t, 1, 20)})
	require.NoError(t, err)
	require.Len(t, out.Conversations, 1)
	assert.Equal(t, "https://api.example.com/uploads/p1.jpg", out.Conversations[0].OtherParticipant.Photo)
}

func TestListConversations_HiddenLastMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.conversation(t, "p1", "p2")
	msg := f.send(t, conv.ID, "p1", "regret")

	_, err := f.svc.DeleteMessage(ctx, DeleteMessageInput{MessageID: msg.ID, UserID: "p2"})
	require.NoError(t, err)

	view, err := f.svc.GetConversation(ctx, conv.ID, "p2")
	require.NoError(t, err)
	require.NotNil(t, view.LastMessage)
	assert.True(t, view.LastMessage.IsDeleted)
	assert.Equal(t, deletedPreview, view.LastMessage.Preview)

	view, err = f.svc.GetConversation(ctx, conv.ID, "p1")
	require.NoError(t, err)
	assert.Equal(t, "regret", view.LastMessage.Preview)
}

func TestDeleteConversation_HidesForBoth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.conversation(t, "p1", "p2")
	f.send(t, conv.ID, "p1", "bye")

	require.ErrorIs(t, f.svc.DeleteConversation(ctx, conv.ID, "p3"), entity.ErrNotParticipant)
	require.NoError(t, f.svc.DeleteConversation(ctx, conv.ID, "p1"))

	for _, user := range []string{"p1", "p2"} {
		out, err := f.svc.ListConversations(ctx, ListConversationsInput{UserID: user, Page: page(t, 1, 20)})
		require.NoError(t, err)
		assert.Empty(t, out.Conversations)
	}

	total, err := f.svc.TotalUnread(ctx, "p2")
	require.NoError(t, err)
	assert.Zero(t, total)

	_, err = f.svc.GetConversation(ctx, conv.ID, "p1")
	assert.ErrorIs(t, err, entity.ErrConversationNotFound)
}

func TestEndToEndConversationFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conv := f.conversation(t, "p1", "p2")
	same := f.conversation(t, "p2", "p1")
	require.Equal(t, conv.ID, same.ID)

	hi := f.send(t, conv.ID, "p1", "Hi")
	total, err := f.svc.TotalUnread(ctx, "p2")
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	n, err := f.svc.MarkRead(ctx, conv.ID, "p2")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	out, err := f.svc.ListMessages(ctx, ListMessagesInput{ConversationID: conv.ID, UserID: "p1", Page: page(t, 1, 20)})
	require.NoError(t, err)
	require.Len(t, out.Messages, 1)
	assert.ElementsMatch(t, []string{"p1", "p2"}, out.Messages[0].ReadBy)

	f.clock.Advance(5 * time.Minute)
	edited, err := f.svc.EditMessage(ctx, hi.ID, "p1", "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Hello", edited.Content)

	mode, err := f.svc.DeleteMessage(ctx, DeleteMessageInput{MessageID: hi.ID, UserID: "p1", ForEveryone: true})
	require.NoError(t, err)
	assert.Equal(t, DeleteForEveryone, mode)

	for _, user := range []string{"p1", "p2"} {
		out, err := f.svc.ListMessages(ctx, ListMessagesInput{ConversationID: conv.ID, UserID: user, Page: page(t, 1, 20)})
		require.NoError(t, err)
		assert.Empty(t, out.Messages)
	}
}

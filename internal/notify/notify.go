// Package notify fans new-message events out to recipients.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventMessageCreated is published once per recipient of a new message
const EventMessageCreated = "message.created"

const defaultChannelPrefix = "dm:user:"

// Event is the payload delivered to a recipient channel
type Event struct {
	Type           string    `json:"type"`
	ConversationID string    `json:"conversation_id"`
	MessageID      string    `json:"message_id"`
	SenderID       string    `json:"sender_id"`
	Preview        string    `json:"preview"`
	HasAttachment  bool      `json:"has_attachment"`
	CreatedAt      time.Time `json:"created_at"`
}

// RedisNotifier publishes events on one pub/sub channel per recipient
type RedisNotifier struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisNotifier creates a Redis pub/sub notifier
func NewRedisNotifier(client redis.UniversalClient, prefix string) *RedisNotifier {
	if prefix == "" {
		prefix = defaultChannelPrefix
	}
	return &RedisNotifier{client: client, prefix: prefix}
}

// Channel returns the channel name of a recipient
func (n *RedisNotifier) Channel(recipientID string) string {
	return n.prefix + recipientID
}

// Notify publishes ev to the recipient's channel
func (n *RedisNotifier) Notify(ctx context.Context, recipientID string, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	if err := n.client.Publish(ctx, n.Channel(recipientID), payload).Err(); err != nil {
		return fmt.Errorf("publishing to %s: %w", n.Channel(recipientID), err)
	}
	return nil
}

// LogNotifier writes events to the log. Used when Redis is disabled.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs ev at debug level
func (n *LogNotifier) Notify(_ context.Context, recipientID string, ev Event) error {
	n.logger.Debug("message notification",
		"type", ev.Type,
		"recipient_id", recipientID,
		"conversation_id", ev.ConversationID,
		"message_id", ev.MessageID,
	)
	return nil
}

package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/neo-dm/internal/domain/messaging/entity"
)

const messageColumns = `
	id, conversation_id, sender_id, content, attachment_url, attachment_type,
	reply_to, read_by, read_at, edited_at, deleted_at, deleted_for, created_at`

// visibleTo is the SQL form of entity.Message.VisibleTo for viewer $2
const visibleTo = `deleted_at IS NULL AND NOT ($2::text = ANY(deleted_for))`

// MessagePostgres implements message repository for PostgreSQL
type MessagePostgres struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewMessagePostgres creates a new PostgreSQL message repository
func NewMessagePostgres(pool *pgxpool.Pool, timeout time.Duration) *MessagePostgres {
	return &MessagePostgres{pool: pool, timeout: timeout}
}

// Create inserts a new message
func (r *MessagePostgres) Create(ctx context.Context, msg *entity.Message) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO dm_messages (
			id, conversation_id, sender_id, content, attachment_url, attachment_type,
			reply_to, read_by, deleted_for, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, '{}', $9)
	`

	_, err := r.pool.Exec(ctx, query,
		msg.ID,
		msg.ConversationID,
		msg.SenderID,
		msg.Content,
		nullIfEmpty(msg.AttachmentURL),
		nullIfEmpty(msg.AttachmentType),
		nullIfEmpty(msg.ReplyTo),
		msg.ReadBy,
		msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	return nil
}

// GetByID retrieves a message by ID regardless of tombstones
func (r *MessagePostgres) GetByID(ctx context.Context, id string) (*entity.Message, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT` + messageColumns + ` FROM dm_messages WHERE id = $1`

	msg, err := scanMessageRow(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning message: %w", err)
	}
	return msg, nil
}

// GetByIDs retrieves messages by ID, silently skipping unknown ids
func (r *MessagePostgres) GetByIDs(ctx context.Context, ids []string) ([]entity.Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT` + messageColumns + ` FROM dm_messages WHERE id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("querying messages by id: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// ListVisible returns the page of messages viewerID may see, newest first.
// Tombstone filtering happens before LIMIT/OFFSET so page boundaries stay stable.
func (r *MessagePostgres) ListVisible(ctx context.Context, conversationID, viewerID string, limit, offset int) ([]entity.Message, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT` + messageColumns + `
		FROM dm_messages
		WHERE conversation_id = $1 AND ` + visibleTo + `
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.pool.Query(ctx, query, conversationID, viewerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// CountVisible returns the number of messages viewerID may see
func (r *MessagePostgres) CountVisible(ctx context.Context, conversationID, viewerID string) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM dm_messages WHERE conversation_id = $1 AND `+visibleTo,
		conversationID, viewerID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting messages: %w", err)
	}
	return count, nil
}

// MarkRead adds a read receipt for userID to every message from the other
// participant that is not yet read and not deleted for everyone.
// Returns the number of messages that received a receipt.
func (r *MessagePostgres) MarkRead(ctx context.Context, conversationID, userID string, at time.Time) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
		UPDATE dm_messages
		SET read_by = array_append(read_by, $2::text), read_at = $3
		WHERE conversation_id = $1
		  AND sender_id <> $2
		  AND deleted_at IS NULL
		  AND NOT ($2::text = ANY(read_by))
	`, conversationID, userID, at)
	if err != nil {
		return 0, fmt.Errorf("marking messages read: %w", err)
	}
	return tag.RowsAffected(), nil
}

// UpdateContent replaces the content of a message and stamps the edit time
func (r *MessagePostgres) UpdateContent(ctx context.Context, id, content string, editedAt time.Time) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
		UPDATE dm_messages SET content = $2, edited_at = $3
		WHERE id = $1 AND deleted_at IS NULL
	`, id, content, editedAt)
	if err != nil {
		return fmt.Errorf("updating message content: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrMessageNotFound
	}
	return nil
}

// DeleteForEveryone sets the global tombstone and clears per-viewer ones.
// Returns false when the message was already deleted for everyone.
func (r *MessagePostgres) DeleteForEveryone(ctx context.Context, id string, at time.Time) (bool, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
		UPDATE dm_messages SET deleted_at = $2, deleted_for = '{}'
		WHERE id = $1 AND deleted_at IS NULL
	`, id, at)
	if err != nil {
		return false, fmt.Errorf("deleting message for everyone: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteForViewer hides a message from viewerID; repeated calls are no-ops
func (r *MessagePostgres) DeleteForViewer(ctx context.Context, id, viewerID string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.pool.Exec(ctx, `
		UPDATE dm_messages SET deleted_for = array_append(deleted_for, $2::text)
		WHERE id = $1 AND NOT ($2::text = ANY(deleted_for))
	`, id, viewerID)
	if err != nil {
		return fmt.Errorf("deleting message for viewer: %w", err)
	}
	return nil
}

func scanMessages(rows pgx.Rows) ([]entity.Message, error) {
	var messages []entity.Message
	for rows.Next() {
		msg, err := scanMessageRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}
	return messages, nil
}

func scanMessageRow(row pgx.Row) (*entity.Message, error) {
	var (
		msg                                  entity.Message
		attachmentURL, attachmentType, reply *string
	)

	err := row.Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.SenderID,
		&msg.Content,
		&attachmentURL,
		&attachmentType,
		&reply,
		&msg.ReadBy,
		&msg.ReadAt,
		&msg.EditedAt,
		&msg.DeletedAt,
		&msg.DeletedFor,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	msg.AttachmentURL = derefString(attachmentURL)
	msg.AttachmentType = derefString(attachmentType)
	msg.ReplyTo = derefString(reply)
	return &msg, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

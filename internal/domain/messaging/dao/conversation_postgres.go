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

const conversationColumns = `
	id, participant_low, participant_high, last_message_id, last_message_at,
	unread_counts, created_at, updated_at, deleted_at`

// ConversationPostgres implements conversation repository for PostgreSQL
type ConversationPostgres struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewConversationPostgres creates a new PostgreSQL conversation repository
func NewConversationPostgres(pool *pgxpool.Pool, timeout time.Duration) *ConversationPostgres {
	return &ConversationPostgres{pool: pool, timeout: timeout}
}

// GetOrCreate returns the active conversation for the unordered pair,
// inserting a new one with the given id when none exists.
// The partial unique index on the pair makes concurrent creation converge.
func (r *ConversationPostgres) GetOrCreate(ctx context.Context, id string, pair [2]string, now time.Time) (*entity.Conversation, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	insert := `
		INSERT INTO dm_conversations (
			id, participant_low, participant_high, unread_counts, created_at, updated_at
		) VALUES ($1, $2, $3, '{}'::jsonb, $4, $4)
		ON CONFLICT (participant_low, participant_high) WHERE deleted_at IS NULL DO NOTHING
		RETURNING` + conversationColumns

	selectActive := `
		SELECT` + conversationColumns + `
		FROM dm_conversations
		WHERE participant_low = $1 AND participant_high = $2 AND deleted_at IS NULL
	`

	// The existing row may be soft-deleted between the insert and the select;
	// a couple of attempts are enough to settle on one row.
	for attempt := 0; attempt < 3; attempt++ {
		conv, err := r.scanConversation(r.pool.QueryRow(ctx, insert, id, pair[0], pair[1], now))
		if err != nil {
			return nil, fmt.Errorf("inserting conversation: %w", err)
		}
		if conv != nil {
			return conv, nil
		}

		conv, err = r.scanConversation(r.pool.QueryRow(ctx, selectActive, pair[0], pair[1]))
		if err != nil {
			return nil, fmt.Errorf("selecting conversation: %w", err)
		}
		if conv != nil {
			return conv, nil
		}
	}

	return nil, fmt.Errorf("resolving conversation for pair %s/%s: concurrent modification", pair[0], pair[1])
}

// GetByID retrieves a conversation by ID, including soft-deleted ones
func (r *ConversationPostgres) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT` + conversationColumns + ` FROM dm_conversations WHERE id = $1`

	return r.scanConversation(r.pool.QueryRow(ctx, query, id))
}

// ListByParticipant retrieves active conversations of a user, most recent activity first.
// Conversations without messages sort last, newest first.
func (r *ConversationPostgres) ListByParticipant(ctx context.Context, userID string, limit, offset int) ([]entity.Conversation, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT` + conversationColumns + `
		FROM dm_conversations
		WHERE deleted_at IS NULL
		  AND (participant_low = $1 OR participant_high = $1)
		ORDER BY last_message_at DESC NULLS LAST, created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	return r.scanConversations(rows)
}

// CountByParticipant returns the number of active conversations of a user
func (r *ConversationPostgres) CountByParticipant(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM dm_conversations
		WHERE deleted_at IS NULL AND (participant_low = $1 OR participant_high = $1)
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting conversations: %w", err)
	}
	return count, nil
}

// TotalUnread sums the unread counters of a user over active conversations
func (r *ConversationPostgres) TotalUnread(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var total int64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(COALESCE((unread_counts ->> $1::text)::bigint, 0)), 0)
		FROM dm_conversations
		WHERE deleted_at IS NULL AND (participant_low = $1 OR participant_high = $1)
	`, userID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("summing unread counters: %w", err)
	}
	return total, nil
}

// TouchOnSend moves the last-message pointer and increments the unread
// counter of every participant except the sender in a single statement.
// The increment is evaluated against the locked row, so concurrent senders
// never lose updates. The pointer only moves forward in time.
func (r *ConversationPostgres) TouchOnSend(ctx context.Context, conversationID, senderID, messageID string, sentAt time.Time) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		UPDATE dm_conversations c SET
			last_message_id = CASE
				WHEN c.last_message_at IS NULL OR c.last_message_at <= $3 THEN $2
				ELSE c.last_message_id END,
			last_message_at = GREATEST(COALESCE(c.last_message_at, $3), $3),
			updated_at = $3,
			unread_counts = c.unread_counts || (
				SELECT COALESCE(
					jsonb_object_agg(p, COALESCE((c.unread_counts ->> p)::int, 0) + 1),
					'{}'::jsonb)
				FROM unnest(ARRAY[c.participant_low, c.participant_high]) AS p
				WHERE p <> $4::text
			)
		WHERE c.id = $1
	`

	tag, err := r.pool.Exec(ctx, query, conversationID, messageID, sentAt, senderID)
	if err != nil {
		return fmt.Errorf("touching conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrConversationNotFound
	}
	return nil
}

// ResetUnread sets the unread counter of a user to zero
func (r *ConversationPostgres) ResetUnread(ctx context.Context, conversationID, userID string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.pool.Exec(ctx, `
		UPDATE dm_conversations
		SET unread_counts = unread_counts || jsonb_build_object($2::text, 0)
		WHERE id = $1
	`, conversationID, userID)
	if err != nil {
		return fmt.Errorf("resetting unread counter: %w", err)
	}
	return nil
}

// SoftDelete marks a conversation as deleted for both participants
func (r *ConversationPostgres) SoftDelete(ctx context.Context, conversationID string, at time.Time) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.pool.Exec(ctx, `
		UPDATE dm_conversations SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`, conversationID, at)
	if err != nil {
		return fmt.Errorf("soft-deleting conversation: %w", err)
	}
	return nil
}

// scanConversation scans a single conversation row
func (r *ConversationPostgres) scanConversation(row pgx.Row) (*entity.Conversation, error) {
	conv, err := scanConversationRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning conversation: %w", err)
	}
	return conv, nil
}

// scanConversations scans multiple conversation rows
func (r *ConversationPostgres) scanConversations(rows pgx.Rows) ([]entity.Conversation, error) {
	var conversations []entity.Conversation

	for rows.Next() {
		conv, err := scanConversationRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning conversation row: %w", err)
		}
		conversations = append(conversations, *conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversation rows: %w", err)
	}

	return conversations, nil
}

func scanConversationRow(row pgx.Row) (*entity.Conversation, error) {
	var (
		conv          entity.Conversation
		low, high     string
		lastMessageID *string
	)

	err := row.Scan(
		&conv.ID,
		&low,
		&high,
		&lastMessageID,
		&conv.LastMessageAt,
		&conv.UnreadCounts,
		&conv.CreatedAt,
		&conv.UpdatedAt,
		&conv.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	conv.Participants = []string{low, high}
	if lastMessageID != nil {
		conv.LastMessageID = *lastMessageID
	}
	if conv.UnreadCounts == nil {
		conv.UnreadCounts = map[string]int{}
	}
	return &conv, nil
}

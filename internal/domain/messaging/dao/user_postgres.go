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

// UserPostgres reads display fields from the platform users table
type UserPostgres struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewUserPostgres creates a new PostgreSQL user directory
func NewUserPostgres(pool *pgxpool.Pool, timeout time.Duration) *UserPostgres {
	return &UserPostgres{pool: pool, timeout: timeout}
}

// GetByID retrieves a user by ID
func (r *UserPostgres) GetByID(ctx context.Context, id string) (*entity.User, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var u entity.User
	err := r.pool.QueryRow(ctx,
		`SELECT id, COALESCE(name, ''), COALESCE(photo, ''), COALESCE(role, '') FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Name, &u.Photo, &u.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	return &u, nil
}

// GetByIDs retrieves users keyed by ID, skipping unknown ids
func (r *UserPostgres) GetByIDs(ctx context.Context, ids []string) (map[string]entity.User, error) {
	users := make(map[string]entity.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT id, COALESCE(name, ''), COALESCE(photo, ''), COALESCE(role, '') FROM users WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u entity.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Photo, &u.Role); err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		users[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user rows: %w", err)
	}

	return users, nil
}

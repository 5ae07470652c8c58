package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/errs"
	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/models"
)

// PgxPool is the subset of *pgxpool.Pool the store uses; pgxmock implements it too.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

type PostgresStore struct {
	pool PgxPool
}

// NewPostgresStore connects a pool to databaseURL and checks it with a ping.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresStoreWithPool wraps an existing pool.
func NewPostgresStoreWithPool(pool PgxPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Close releases the pool.
func (s *PostgresStore) Close() { s.pool.Close() }

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// SavePushSubscription upserts on (user_id, endpoint): re-subscribing the same
// endpoint refreshes its keys instead of adding a row.
func (s *PostgresStore) SavePushSubscription(ctx context.Context, sub models.PushSubscription) (models.PushSubscription, error) {
	if err := sub.Validate(); err != nil {
		return models.PushSubscription{}, err
	}

	const q = `
INSERT INTO push_subscriptions (id, user_id, endpoint, p256dh, auth)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id, endpoint) DO UPDATE
SET p256dh = EXCLUDED.p256dh, auth = EXCLUDED.auth, updated_at = NOW()
RETURNING id::text, created_at, updated_at`
	err := s.pool.QueryRow(ctx, q, uuid.NewString(), sub.UserID, sub.Endpoint, sub.P256dh, sub.Auth).
		Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return models.PushSubscription{}, fmt.Errorf("save push subscription: %w", err)
	}
	return sub, nil
}

// GetPushSubscriptions lists every subscription of userID, oldest first.
func (s *PostgresStore) GetPushSubscriptions(ctx context.Context, userID string) ([]models.PushSubscription, error) {
	const q = `
SELECT id::text, user_id, endpoint, p256dh, auth, created_at, updated_at
FROM push_subscriptions WHERE user_id = $1 ORDER BY created_at`
	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []models.PushSubscription
	for rows.Next() {
		var sub models.PushSubscription
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.Endpoint, &sub.P256dh, &sub.Auth, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// GetPushSubscription loads the row for (userID, endpoint).
func (s *PostgresStore) GetPushSubscription(ctx context.Context, userID, endpoint string) (models.PushSubscription, error) {
	const q = `
SELECT id::text, user_id, endpoint, p256dh, auth, created_at, updated_at
FROM push_subscriptions WHERE user_id = $1 AND endpoint = $2`
	var sub models.PushSubscription
	err := s.pool.QueryRow(ctx, q, userID, endpoint).
		Scan(&sub.ID, &sub.UserID, &sub.Endpoint, &sub.P256dh, &sub.Auth, &sub.CreatedAt, &sub.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.PushSubscription{}, errs.ErrNotFound
	}
	if err != nil {
		return models.PushSubscription{}, fmt.Errorf("get push subscription: %w", err)
	}
	return sub, nil
}

// DeletePushSubscription removes the row for (userID, endpoint).
func (s *PostgresStore) DeletePushSubscription(ctx context.Context, userID, endpoint string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM push_subscriptions WHERE user_id = $1 AND endpoint = $2`, userID, endpoint)
	if err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// DeletePushSubscriptionByID removes a single row; used to prune dead endpoints.
func (s *PostgresStore) DeletePushSubscriptionByID(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM push_subscriptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete push subscription %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

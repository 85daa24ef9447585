package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Uniqueness on email and the two enumerated sets are enforced at the
// store level, so concurrent writers race at the constraint rather than
// at application code.
const usersDDL = `
CREATE TABLE IF NOT EXISTS users (
	id              UUID PRIMARY KEY,
	email           TEXT NOT NULL UNIQUE,
	full_name       TEXT NOT NULL,
	password_hash   TEXT NOT NULL,
	location        TEXT NOT NULL,
	user_type       TEXT NOT NULL CHECK (user_type IN ('donor', 'receiver')),
	food_preference TEXT NOT NULL CHECK (food_preference IN ('vegetarian', 'non-vegetarian', 'both')),
	image           TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
)`

// EnsureSchema creates the users table on startup if it is missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, usersDDL)

	return err
}

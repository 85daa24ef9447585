package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/foodlink/userhub/internal/domain/user"
	"github.com/foodlink/userhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, full_name, password_hash, location, user_type, food_preference, image, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FullName,
		&u.PasswordHash,
		&u.Location,
		&u.UserType,
		&u.FoodPreference,
		&u.Image,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	err := r.observe("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users(`+userColumns+`)
			 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			u.ID, u.Email, u.FullName, u.PasswordHash, u.Location, u.UserType, u.FoodPreference, u.Image, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		var pgErr *pgconn.PgError

		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return user.User{}, user.ErrEmailTaken
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_id", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_email", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

// List returns every record. Ordering by creation time keeps responses
// stable across calls; the original store left this to insertion order.
func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	return r.queryMany(ctx, "users.list",
		`SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC`)
}

// FilterByName matches fullName by case-insensitive substring.
func (r *UsersRepo) FilterByName(ctx context.Context, name string) ([]user.User, error) {
	return r.queryMany(ctx, "users.filter_by_name",
		`SELECT `+userColumns+` FROM users
		 WHERE full_name ILIKE '%' || $1 || '%'
		 ORDER BY created_at ASC, id ASC`, name)
}

func (r *UsersRepo) queryMany(ctx context.Context, op, query string, args ...interface{}) ([]user.User, error) {
	var out []user.User

	err := r.observe(op, func() error {
		rows, err := r.pool.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		out = make([]user.User, 0)

		for rows.Next() {
			u, err := scanUser(rows)

			if err != nil {
				return err
			}

			out = append(out, u)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

// Update applies only the fields present in the request; COALESCE keeps
// everything else untouched in a single round trip. The password hash,
// if any, arrives already hashed.
func (r *UsersRepo) Update(ctx context.Context, id string, req user.UpdateRequest, passwordHash *string) (user.User, error) {
	var u user.User

	err := r.observe("users.update", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`UPDATE users
				SET email           = COALESCE($2, email),
					full_name       = COALESCE($3, full_name),
					password_hash   = COALESCE($4, password_hash),
					location        = COALESCE($5, location),
					user_type       = COALESCE($6, user_type),
					food_preference = COALESCE($7, food_preference),
					image           = COALESCE($8, image),
					updated_at      = $9
			WHERE id = $1
			RETURNING `+userColumns,
			id,
			req.Email,
			req.FullName,
			passwordHash,
			req.Location,
			req.UserType,
			req.FoodPreference,
			req.Image,
			time.Now().UTC(),
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		var pgErr *pgconn.PgError

		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return user.User{}, user.ErrEmailTaken
		}

		return user.User{}, err
	}

	return u, nil
}

// Delete removes the record permanently and reports the deleted user's
// full name for the confirmation message.
func (r *UsersRepo) Delete(ctx context.Context, id string) (string, error) {
	var fullName string

	err := r.observe("users.delete", func() error {
		return r.pool.QueryRow(ctx,
			`DELETE FROM users WHERE id = $1 RETURNING full_name`, id).Scan(&fullName)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", user.ErrNotFound
		}

		return "", err
	}

	return fullName, nil
}

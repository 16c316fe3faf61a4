package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Togather-Foundation/serendipity/internal/domain/users"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ users.Repository = (*UserRepository)(nil)

const uniqueViolation = "23505"

const userColumns = `id, first_name, last_name, email, password_hash, school, grade_level,
       gender, interests, bio, profile_picture, created_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func (r *UserRepository) Create(ctx context.Context, user *users.User) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO users (id, first_name, last_name, email, password_hash, school, grade_level,
                   gender, interests, bio, profile_picture, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		user.ID, user.FirstName, user.LastName, user.Email, user.PasswordHash, user.School,
		user.GradeLevel, user.Gender, nonNil(user.Interests), user.Bio, user.ProfilePicture, user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return users.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*users.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *UserRepository) UpdateBio(ctx context.Context, id string, bio string) (*users.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`UPDATE users SET bio = $2 WHERE id = $1 RETURNING `+userColumns, id, bio))
}

func (r *UserRepository) UpdateInterests(ctx context.Context, id string, interests []string) (*users.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`UPDATE users SET interests = $2 WHERE id = $1 RETURNING `+userColumns, id, nonNil(interests)))
}

func scanUser(row pgx.Row) (*users.User, error) {
	var u users.User
	err := row.Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.School, &u.GradeLevel,
		&u.Gender, &u.Interests, &u.Bio, &u.ProfilePicture, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, users.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

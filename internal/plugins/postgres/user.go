package postgres

import (
	"context"
	"database/sql"

	"amora/internal/core/domain"

	"github.com/pkg/errors"
)

/*
	CREATE TABLE users (
		username      TEXT PRIMARY KEY,
		known_as      TEXT NOT NULL,
		password_hash BYTEA NOT NULL,
		password_salt BYTEA NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	);
*/

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	if username == "" {
		return nil, domain.ErrUserNotFound
	}
	exec := getExecutor(ctx, r.db)
	user := &domain.User{Username: username}
	err := exec.QueryRowContext(ctx, `
		SELECT known_as, password_hash, password_salt, created_at
		FROM users
		WHERE username = $1
	`, username).Scan(&user.KnownAs, &user.PasswordHash, &user.PasswordSalt, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrUserNotFound
		}
		return nil, errors.Wrap(err, "select user")
	}
	return user, nil
}

func (r *UserRepo) CreateUser(ctx context.Context, u *domain.User) error {
	exec := getExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `
		INSERT INTO users (username, known_as, password_hash, password_salt)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO NOTHING
	`, u.Username, u.KnownAs, u.PasswordHash, u.PasswordSalt)
	if err != nil {
		return errors.Wrap(err, "insert user")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrUsernameTaken
	}
	return nil
}

package postgres

import (
	"context"
	"database/sql"

	"amora/internal/core/domain"

	"github.com/pkg/errors"
)

/*
	CREATE TABLE groups (
		name TEXT PRIMARY KEY
	);

	CREATE TABLE connections (
		id         TEXT PRIMARY KEY,
		group_name TEXT NOT NULL REFERENCES groups(name) ON DELETE CASCADE,
		username   TEXT NOT NULL
	);
*/

type GroupRepo struct {
	db *sql.DB
}

func NewGroupRepo(db *sql.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

func (r *GroupRepo) GetGroup(ctx context.Context, name string) (*domain.Group, error) {
	exec := getExecutor(ctx, r.db)
	var found string
	err := exec.QueryRowContext(ctx, `SELECT name FROM groups WHERE name = $1`, name).Scan(&found)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrGroupNotFound
		}
		return nil, errors.Wrap(err, "select group")
	}
	return r.loadGroup(ctx, exec, name)
}

func (r *GroupRepo) CreateGroup(ctx context.Context, name string) error {
	exec := getExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO groups (name)
		VALUES ($1)
		ON CONFLICT (name) DO NOTHING
	`, name)
	return errors.Wrap(err, "insert group")
}

func (r *GroupRepo) AddConnection(ctx context.Context, groupName string, conn domain.Connection) error {
	exec := getExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO connections (id, group_name, username)
		VALUES ($1, $2, $3)
	`, conn.ID, groupName, conn.Username)
	return errors.Wrap(err, "insert connection")
}

func (r *GroupRepo) RemoveConnection(ctx context.Context, connectionID string) error {
	exec := getExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `DELETE FROM connections WHERE id = $1`, connectionID)
	if err != nil {
		return errors.Wrap(err, "delete connection")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrConnectionNotFound
	}
	return nil
}

func (r *GroupRepo) GetGroupForConnection(ctx context.Context, connectionID string) (*domain.Group, error) {
	exec := getExecutor(ctx, r.db)
	var name string
	err := exec.QueryRowContext(ctx, `
		SELECT group_name FROM connections WHERE id = $1
	`, connectionID).Scan(&name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrGroupNotFound
		}
		return nil, errors.Wrap(err, "select group for connection")
	}
	return r.loadGroup(ctx, exec, name)
}

func (r *GroupRepo) loadGroup(ctx context.Context, exec execer, name string) (*domain.Group, error) {
	rows, err := exec.QueryContext(ctx, `
		SELECT id, username FROM connections WHERE group_name = $1
	`, name)
	if err != nil {
		return nil, errors.Wrap(err, "select group connections")
	}
	defer rows.Close()
	group := &domain.Group{Name: name}
	for rows.Next() {
		var c domain.Connection
		if err := rows.Scan(&c.ID, &c.Username); err != nil {
			return nil, err
		}
		group.Connections = append(group.Connections, c)
	}
	return group, rows.Err()
}

package postgres

import (
	"context"
	"database/sql"
	"time"

	"amora/internal/core/domain"
	"amora/internal/core/paging"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

/*
	CREATE TABLE messages (
		id                 UUID PRIMARY KEY,
		sender_username    TEXT NOT NULL REFERENCES users(username),
		recipient_username TEXT NOT NULL REFERENCES users(username),
		content            TEXT NOT NULL,
		sent_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
		read_at            TIMESTAMPTZ,
		sender_deleted     BOOLEAN NOT NULL DEFAULT false,
		recipient_deleted  BOOLEAN NOT NULL DEFAULT false
	);
*/

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, sender_username, recipient_username, content, sent_at, read_at, sender_deleted, recipient_deleted`

func (r *MessageRepo) AddMessage(ctx context.Context, m *domain.Message) error {
	exec := getExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO messages (
			id, sender_username, recipient_username, content, sent_at, read_at, sender_deleted, recipient_deleted
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		m.ID,
		m.SenderUsername,
		m.RecipientUsername,
		m.Content,
		m.SentAt,
		m.ReadAt,
		m.SenderDeleted,
		m.RecipientDeleted,
	)
	return errors.Wrap(err, "insert message")
}

func (r *MessageRepo) GetMessageByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	exec := getExecutor(ctx, r.db)
	row := exec.QueryRowContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE id = $1
	`, id)
	var m domain.Message
	if err := scanMessage(row.Scan, &m); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrMessageNotFound
		}
		return nil, errors.Wrap(err, "select message")
	}
	return &m, nil
}

func (r *MessageRepo) SetDeletedFlags(ctx context.Context, id uuid.UUID, senderDeleted, recipientDeleted bool) error {
	exec := getExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `
		UPDATE messages
		SET sender_deleted = $2, recipient_deleted = $3
		WHERE id = $1
	`, id, senderDeleted, recipientDeleted)
	if err != nil {
		return errors.Wrap(err, "update deletion flags")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

func (r *MessageRepo) DeleteMessage(ctx context.Context, id uuid.UUID) error {
	exec := getExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "delete message")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

// GetMessageThread returns the two-party history the current side can still
// see, in presentation order (oldest first).
func (r *MessageRepo) GetMessageThread(ctx context.Context, currentUsername, otherUsername string) ([]domain.Message, error) {
	exec := getExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE (recipient_username = $1 AND sender_username = $2 AND recipient_deleted = false)
		   OR (recipient_username = $2 AND sender_username = $1 AND sender_deleted = false)
		ORDER BY sent_at ASC
	`, currentUsername, otherUsername)
	if err != nil {
		return nil, errors.Wrap(err, "select thread")
	}
	defer rows.Close()
	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := scanMessage(rows.Scan, &m); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *MessageRepo) MarkThreadRead(ctx context.Context, currentUsername, otherUsername string, readAt time.Time) (int64, error) {
	exec := getExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `
		UPDATE messages
		SET read_at = $3
		WHERE recipient_username = $1
		  AND sender_username = $2
		  AND read_at IS NULL
	`, currentUsername, otherUsername, readAt)
	if err != nil {
		return 0, errors.Wrap(err, "mark thread read")
	}
	return result.RowsAffected()
}

// GetMessagesForUser filters by container, orders newest first and slices
// into the requested page. The count runs against the filtered set before
// slicing.
func (r *MessageRepo) GetMessagesForUser(ctx context.Context, params domain.MessageParams) (paging.PagedSlice[domain.Message], error) {
	var where string
	switch params.Container {
	case domain.ContainerInbox:
		where = `recipient_username = $1 AND recipient_deleted = false`
	case domain.ContainerOutbox:
		where = `sender_username = $1 AND sender_deleted = false`
	default:
		where = `recipient_username = $1 AND recipient_deleted = false AND read_at IS NULL`
	}
	exec := getExecutor(ctx, r.db)
	var empty paging.PagedSlice[domain.Message]

	var total int
	if err := exec.QueryRowContext(ctx,
		`SELECT count(*) FROM messages WHERE `+where, params.Username,
	).Scan(&total); err != nil {
		return empty, errors.Wrap(err, "count messages")
	}

	offset := (params.PageNumber - 1) * params.PageSize
	rows, err := exec.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE `+where+`
		ORDER BY sent_at DESC
		LIMIT $2 OFFSET $3
	`, params.Username, params.PageSize, offset)
	if err != nil {
		return empty, errors.Wrap(err, "select messages page")
	}
	defer rows.Close()
	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := scanMessage(rows.Scan, &m); err != nil {
			return empty, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return empty, err
	}
	return paging.New(msgs, params.PageNumber, params.PageSize, total), nil
}

func scanMessage(scan func(...any) error, m *domain.Message) error {
	return scan(
		&m.ID,
		&m.SenderUsername,
		&m.RecipientUsername,
		&m.Content,
		&m.SentAt,
		&m.ReadAt,
		&m.SenderDeleted,
		&m.RecipientDeleted,
	)
}

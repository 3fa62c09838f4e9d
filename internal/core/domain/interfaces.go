package domain

import (
	"context"
	"time"

	"amora/internal/core/paging"

	"github.com/google/uuid"
)

// UserRepository is the slice of the user directory the messaging core
// depends on.
type UserRepository interface {
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	CreateUser(ctx context.Context, u *User) error
}

// MessageRepository handles durable message CRUD plus the two query shapes
// the core needs: the two-party thread and the paged per-user listing.
type MessageRepository interface {
	AddMessage(ctx context.Context, m *Message) error
	GetMessageByID(ctx context.Context, id uuid.UUID) (*Message, error)
	// SetDeletedFlags updates both per-side deletion flags on a message.
	SetDeletedFlags(ctx context.Context, id uuid.UUID, senderDeleted, recipientDeleted bool) error
	DeleteMessage(ctx context.Context, id uuid.UUID) error
	// GetMessageThread returns every message between the two users that the
	// current side has not deleted for itself, oldest first.
	GetMessageThread(ctx context.Context, currentUsername, otherUsername string) ([]Message, error)
	// MarkThreadRead stamps readAt on every unread message sent by
	// otherUsername to currentUsername. Returns the number of rows touched.
	MarkThreadRead(ctx context.Context, currentUsername, otherUsername string, readAt time.Time) (int64, error)
	// GetMessagesForUser filters by the params' container, orders newest
	// first and slices into the requested page. TotalCount reflects the
	// filtered set, not the unfiltered table.
	GetMessagesForUser(ctx context.Context, params MessageParams) (paging.PagedSlice[Message], error)
}

// GroupRepository persists conversation groups and the connections joined
// to each.
type GroupRepository interface {
	GetGroup(ctx context.Context, name string) (*Group, error)
	CreateGroup(ctx context.Context, name string) error
	AddConnection(ctx context.Context, groupName string, conn Connection) error
	// RemoveConnection drops a connection row; an unknown id is
	// ErrConnectionNotFound, not a silent no-op.
	RemoveConnection(ctx context.Context, connectionID string) error
	GetGroupForConnection(ctx context.Context, connectionID string) (*Group, error)
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the account record the messaging core needs from the user
// directory. Usernames are stored lowercase; every comparison in the
// system relies on that.
type User struct {
	Username     string
	KnownAs      string
	PasswordHash []byte
	PasswordSalt []byte
	CreatedAt    time.Time
}

// Message is one chat entry between two users. Each side carries its own
// deletion flag; the row is hard-deleted only once both are set.
type Message struct {
	ID                uuid.UUID  `json:"id"`
	SenderUsername    string     `json:"sender_username"`
	RecipientUsername string     `json:"recipient_username"`
	Content           string     `json:"content"`
	SentAt            time.Time  `json:"sent_at"`
	ReadAt            *time.Time `json:"read_at,omitempty"`
	SenderDeleted     bool       `json:"-"`
	RecipientDeleted  bool       `json:"-"`
}

func NewMessage(sender, recipient, content string) *Message {
	return &Message{
		ID:                uuid.New(),
		SenderUsername:    sender,
		RecipientUsername: recipient,
		Content:           content,
		SentAt:            time.Now().UTC(),
	}
}

// Group is the canonical container for the live connections of a two-party
// conversation. Empty groups are retained, matching persisted history.
type Group struct {
	Name        string       `json:"name"`
	Connections []Connection `json:"connections"`
}

// HasConnectionFor reports whether any of the group's live connections
// belongs to the given user.
func (g *Group) HasConnectionFor(username string) bool {
	for _, c := range g.Connections {
		if c.Username == username {
			return true
		}
	}
	return false
}

// Connection identifies one live transport session. A connection belongs
// to at most one group; a user may hold several connections, each in a
// different group.
type Connection struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Container selects which predicate MessagesForUser applies before paging.
type Container string

const (
	ContainerInbox  Container = "Inbox"
	ContainerOutbox Container = "Outbox"
	ContainerUnread Container = "Unread"
)

// MessageParams carries the inbox query: whose messages, which container,
// and the requested page window.
type MessageParams struct {
	Username   string
	Container  Container
	PageNumber int
	PageSize   int
}

package domain

// Event types pushed over the hub connection.
const (
	TypeUpdatedGroup       = "updated_group"
	TypeMessageThread      = "receive_message_thread"
	TypeNewMessage         = "new_message"
	TypeUserTyping         = "user_is_typing"
	TypeNewMessageReceived = "new_message_received"
	TypeUserOnline         = "user_online"
	TypeUserOffline        = "user_offline"
	TypeOnlineUsers        = "online_users"
	TypeError              = "error"
)

// Inbound frame types.
const (
	FrameSendMessage = "send_message"
	FrameTyping      = "typing"
)

// InboundFrame is the envelope read off the wire. Only the fields relevant
// to the declared type are populated.
type InboundFrame struct {
	Type              string `json:"type"`
	RecipientUsername string `json:"recipient_username,omitempty"`
	Content           string `json:"content,omitempty"`
}

// GroupEvent announces the group's membership after a join or leave.
type GroupEvent struct {
	Type  string `json:"type"` // "updated_group"
	Group Group  `json:"group"`
}

// ThreadEvent carries the full conversation history, pushed to the caller
// only, oldest first.
type ThreadEvent struct {
	Type     string    `json:"type"` // "receive_message_thread"
	Messages []Message `json:"messages"`
}

// MessageEvent is broadcast to the group once a message is persisted.
type MessageEvent struct {
	Type    string  `json:"type"` // "new_message"
	Message Message `json:"message"`
}

// TypingEvent is the transient typing indicator. Never persisted.
type TypingEvent struct {
	Type     string `json:"type"` // "user_is_typing"
	Username string `json:"username"`
}

// MessageAlert is the out-of-band "new message" signal pushed to a
// recipient's connections outside the shared group.
type MessageAlert struct {
	Type     string `json:"type"` // "new_message_received"
	Username string `json:"username"`
	KnownAs  string `json:"known_as"`
}

// OnlineUsersEvent is the presence snapshot pushed to a caller right
// after it connects, so the client starts from a known state instead of
// replaying individual transitions.
type OnlineUsersEvent struct {
	Type      string   `json:"type"` // "online_users"
	Usernames []string `json:"usernames"`
}

// PresenceEvent signals a user coming online or going offline.
type PresenceEvent struct {
	Type     string `json:"type"` // "user_online" | "user_offline"
	Username string `json:"username"`
}

// ErrorEvent is a connection-safe error surfaced to the caller only.
type ErrorEvent struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

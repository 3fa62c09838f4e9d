package contracts

import "context"

// Broadcaster is the local fanout layer bridging hub events to the
// physical connections on this node.
type Broadcaster interface {
	// Register adds a client to the node's memory and joins it to its group.
	Register(c Client)
	// Unregister removes the client and cleans up its group membership.
	Unregister(c Client)
	// Broadcast sends an event to every connection currently in a group.
	Broadcast(ctx context.Context, groupName string, event any)
	// Push delivers an event to specific connections on this node.
	Push(ctx context.Context, connectionIDs []string, event any)
	// BroadcastAll delivers an event to every connection on this node
	// except those owned by exceptUsername.
	BroadcastAll(ctx context.Context, event any, exceptUsername string)
}

// Client is the minimal surface the fanout layer needs from one
// websocket connection.
type Client interface {
	ConnectionID() string
	Username() string
	GroupName() string
	Send(ctx context.Context, data []byte) error
	Close()
}

package contracts

import "context"

// Notifier is the out-of-band channel for presence-style events. Delivery
// is best effort: the hub never fails an operation because a notification
// could not be published.
type Notifier interface {
	// NotifyUser publishes an event addressed to every live connection a
	// user holds, on any node.
	NotifyUser(ctx context.Context, username string, event any) error
	// NotifyOthers publishes an event addressed to every connected user
	// except the named one. The subject of a presence transition already
	// knows about it.
	NotifyOthers(ctx context.Context, exceptUsername string, event any) error
	// Subscribe blocks consuming published events until ctx is done. An
	// empty username on a delivery means the event is addressed to all
	// but except's connections.
	Subscribe(ctx context.Context, handler func(ctx context.Context, username, except string, payload []byte)) error
}

// Package relay consumes out-of-band notifications published through the
// notifier and delivers them to the connections this node holds for the
// addressee.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"amora/internal/core/contracts"
	"amora/internal/core/presence"
	"amora/internal/platform/metrics"
)

type NotificationRelay struct {
	log      *slog.Logger
	notifier contracts.Notifier
	caster   contracts.Broadcaster
	tracker  *presence.Tracker
}

func NewNotificationRelay(
	log *slog.Logger,
	notifier contracts.Notifier,
	caster contracts.Broadcaster,
	tracker *presence.Tracker,
) *NotificationRelay {
	return &NotificationRelay{
		log:      log,
		notifier: notifier,
		caster:   caster,
		tracker:  tracker,
	}
}

// Run blocks consuming notifications until ctx is done.
func (w *NotificationRelay) Run(ctx context.Context) error {
	err := w.notifier.Subscribe(ctx, w.deliver)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// deliver pushes one notification to the addressee's local connections.
// An empty username addresses every connected user except the excluded
// one, whose connections already observed the transition firsthand.
func (w *NotificationRelay) deliver(ctx context.Context, username, except string, payload []byte) {
	raw := json.RawMessage(payload)
	if username == "" {
		w.caster.BroadcastAll(ctx, raw, except)
		metrics.NotificationsRelayed.Inc()
		return
	}
	conns := w.tracker.ConnectionsFor(username)
	if len(conns) == 0 {
		return
	}
	w.caster.Push(ctx, conns, raw)
	metrics.NotificationsRelayed.Inc()
	w.log.DebugContext(ctx, "relay - deliver - pushed", "username", username, "connections", len(conns))
}

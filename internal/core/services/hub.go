package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"amora/internal/core/contracts"
	"amora/internal/core/domain"
	"amora/internal/core/presence"
	"amora/internal/platform/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("messaging-hub")

// Session is the explicit per-connection state threaded through every hub
// callback: who the caller is, which peer they opened the chat with, and
// the canonical group the connection belongs to.
type Session struct {
	ConnectionID string
	Username     string
	Peer         string
	GroupName    string
}

// Hub drives the messaging protocol state machine. Each callback runs as
// an independent unit of work; the presence tracker is the only state
// shared between concurrent callbacks.
type Hub struct {
	users     domain.UserRepository
	msgRepo   domain.MessageRepository
	msgSvc    *MessageService
	groups    *GroupService
	tracker   *presence.Tracker
	caster    contracts.Broadcaster
	notifier  contracts.Notifier
	txManager contracts.TxRunner
	log       *slog.Logger
}

func NewHub(
	log *slog.Logger,
	users domain.UserRepository,
	msgRepo domain.MessageRepository,
	msgSvc *MessageService,
	groups *GroupService,
	tracker *presence.Tracker,
	caster contracts.Broadcaster,
	notifier contracts.Notifier,
	txManager contracts.TxRunner,
) *Hub {
	return &Hub{
		log:       log,
		users:     users,
		msgRepo:   msgRepo,
		msgSvc:    msgSvc,
		groups:    groups,
		tracker:   tracker,
		caster:    caster,
		notifier:  notifier,
		txManager: txManager,
	}
}

// Connect joins the caller's connection to the canonical group shared with
// the peer, records presence, announces the updated membership to the
// group and pushes the conversation thread to the caller only. A failed
// join is fatal to the connect attempt.
func (h *Hub) Connect(ctx context.Context, sess *Session) error {
	ctx, span := tracer.Start(ctx, "Hub.Connect", trace.WithAttributes(
		attribute.String("chat.username", sess.Username),
		attribute.String("chat.peer", sess.Peer),
	))
	defer span.End()

	sess.Username = strings.ToLower(strings.TrimSpace(sess.Username))
	sess.Peer = strings.ToLower(strings.TrimSpace(sess.Peer))
	sess.GroupName = GroupName(sess.Username, sess.Peer)
	var group *domain.Group
	if err := h.txManager.WithTx(ctx, func(txCtx context.Context) error {
		g, err := h.groups.GetOrCreate(txCtx, sess.GroupName)
		if err != nil {
			return err
		}
		conn := domain.Connection{ID: sess.ConnectionID, Username: sess.Username}
		if err := h.groups.Join(txCtx, g.Name, conn); err != nil {
			return err
		}
		g.Connections = append(g.Connections, conn)
		group = g
		return nil
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "join failed")
		h.log.ErrorContext(ctx, "hub - connect - join group failed", "group", sess.GroupName, "username", sess.Username, "err", err)
		return err
	}

	if first := h.tracker.Add(sess.Username, sess.ConnectionID); first {
		h.notifyOthers(ctx, sess.Username, domain.PresenceEvent{Type: domain.TypeUserOnline, Username: sess.Username})
	}

	h.caster.Broadcast(ctx, sess.GroupName, domain.GroupEvent{Type: domain.TypeUpdatedGroup, Group: *group})

	thread, err := h.msgSvc.MessageThread(ctx, sess.Username, sess.Peer)
	if err != nil {
		span.RecordError(err)
		h.log.ErrorContext(ctx, "hub - connect - load thread failed", "group", sess.GroupName, "username", sess.Username, "err", err)
		// The join already committed and presence was recorded; unwind both
		// so a failed connect leaves no trace behind.
		if derr := h.Disconnect(ctx, sess); derr != nil {
			h.log.ErrorContext(ctx, "hub - connect - unwind failed", "group", sess.GroupName, "username", sess.Username, "err", derr)
		}
		return err
	}
	h.caster.Push(ctx, []string{sess.ConnectionID}, domain.ThreadEvent{Type: domain.TypeMessageThread, Messages: thread})
	h.caster.Push(ctx, []string{sess.ConnectionID}, domain.OnlineUsersEvent{Type: domain.TypeOnlineUsers, Usernames: h.tracker.Online()})
	h.log.InfoContext(ctx, "hub - connect - joined", "group", sess.GroupName, "username", sess.Username, "connection_id", sess.ConnectionID)
	span.SetStatus(codes.Ok, "connected")
	return nil
}

// SendMessage persists a message and broadcasts it to the group once the
// commit succeeds. If the recipient already holds a connection in the
// shared group the read timestamp is stamped immediately; otherwise a
// best-effort "new message" alert goes to the recipient's other live
// connections.
func (h *Hub) SendMessage(ctx context.Context, sess *Session, recipientUsername, content string) error {
	ctx, span := tracer.Start(ctx, "Hub.SendMessage", trace.WithAttributes(
		attribute.String("chat.username", sess.Username),
		attribute.String("chat.recipient", recipientUsername),
	))
	defer span.End()

	recipientUsername = strings.ToLower(strings.TrimSpace(recipientUsername))
	if strings.EqualFold(sess.Username, recipientUsername) {
		metrics.MessagesFailed.Inc()
		return domain.ErrSelfMessage
	}
	if strings.TrimSpace(content) == "" {
		metrics.MessagesFailed.Inc()
		return domain.ErrEmptyContent
	}

	sender, err := h.users.GetUserByUsername(ctx, sess.Username)
	if err != nil {
		metrics.MessagesFailed.Inc()
		span.RecordError(err)
		return err
	}
	recipient, err := h.users.GetUserByUsername(ctx, recipientUsername)
	if err != nil {
		metrics.MessagesFailed.Inc()
		span.RecordError(err)
		return err
	}

	msg := domain.NewMessage(sender.Username, recipient.Username, content)
	groupName := GroupName(sender.Username, recipient.Username)

	var recipientInGroup bool
	if err := h.txManager.WithTx(ctx, func(txCtx context.Context) error {
		group, err := h.groups.Get(txCtx, groupName)
		if err != nil && !errors.Is(err, domain.ErrGroupNotFound) {
			return err
		}
		if group != nil && group.HasConnectionFor(recipient.Username) {
			// Recipient is co-present in the conversation: stamp the read
			// timestamp before the message ever leaves the store.
			now := time.Now().UTC()
			msg.ReadAt = &now
			recipientInGroup = true
		}
		return h.msgRepo.AddMessage(txCtx, msg)
	}); err != nil {
		metrics.MessagesFailed.Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		h.log.ErrorContext(ctx, "hub - send message - persist failed", "group", groupName, "username", sess.Username, "err", err)
		return err
	}

	if !recipientInGroup {
		if conns := h.tracker.ConnectionsFor(recipient.Username); len(conns) > 0 {
			h.notifyUser(ctx, recipient.Username, domain.MessageAlert{
				Type:     domain.TypeNewMessageReceived,
				Username: sender.Username,
				KnownAs:  sender.KnownAs,
			})
		}
	}

	metrics.MessagesSent.Inc()
	h.caster.Broadcast(ctx, groupName, domain.MessageEvent{Type: domain.TypeNewMessage, Message: *msg})
	h.log.InfoContext(ctx, "hub - send message - delivered", "group", groupName, "username", sess.Username, "message_id", msg.ID.String())
	return nil
}

// UserIsTyping broadcasts a transient typing indicator to the group. Never
// persisted, never retried.
func (h *Hub) UserIsTyping(ctx context.Context, sess *Session) {
	h.caster.Broadcast(ctx, sess.GroupName, domain.TypingEvent{Type: domain.TypeUserTyping, Username: sess.Username})
}

// Disconnect removes the connection from its group and from the presence
// tracker, then announces the remaining membership. A connection whose
// group is already gone is treated as cleaned up, not as an error.
func (h *Hub) Disconnect(ctx context.Context, sess *Session) error {
	ctx, span := tracer.Start(ctx, "Hub.Disconnect", trace.WithAttributes(
		attribute.String("chat.username", sess.Username),
	))
	defer span.End()

	if last := h.tracker.Remove(sess.Username, sess.ConnectionID); last {
		h.notifyOthers(ctx, sess.Username, domain.PresenceEvent{Type: domain.TypeUserOffline, Username: sess.Username})
	}

	var group *domain.Group
	if err := h.txManager.WithTx(ctx, func(txCtx context.Context) error {
		g, err := h.groups.Leave(txCtx, sess.ConnectionID)
		if errors.Is(err, domain.ErrGroupNotFound) || errors.Is(err, domain.ErrConnectionNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		group = g
		return nil
	}); err != nil {
		span.RecordError(err)
		h.log.ErrorContext(ctx, "hub - disconnect - leave group failed", "username", sess.Username, "connection_id", sess.ConnectionID, "err", err)
		return err
	}

	if group != nil {
		h.caster.Broadcast(ctx, group.Name, domain.GroupEvent{Type: domain.TypeUpdatedGroup, Group: *group})
	}
	h.log.InfoContext(ctx, "hub - disconnect - left", "username", sess.Username, "connection_id", sess.ConnectionID)
	return nil
}

// notifyUser and notifyOthers publish out-of-band events, swallowing
// delivery failures. Notifications must never fail the operation that
// produced them.
func (h *Hub) notifyUser(ctx context.Context, username string, event any) {
	if err := h.notifier.NotifyUser(ctx, username, event); err != nil {
		h.log.WarnContext(ctx, "hub - notify - publish failed", "username", username, "err", err)
	}
}

func (h *Hub) notifyOthers(ctx context.Context, except string, event any) {
	if err := h.notifier.NotifyOthers(ctx, except, event); err != nil {
		h.log.WarnContext(ctx, "hub - notify - publish failed", "except", except, "err", err)
	}
}

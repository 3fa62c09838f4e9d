package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"amora/internal/app/server/ws"
	"amora/internal/core/contracts"
	"amora/internal/core/domain"
	"amora/internal/core/services"
	"amora/internal/platform/logger"
	"amora/internal/platform/metrics"
	"amora/pkg/middleware"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type WSHandler struct {
	caster contracts.Broadcaster
	hub    *services.Hub
}

func NewWSHandler(caster contracts.Broadcaster, hub *services.Hub) *WSHandler {
	return &WSHandler{caster: caster, hub: hub}
}

// Handler upgrades the request and drives one connection's lifecycle:
// Connect, the read loop dispatching send/typing frames, and the
// Disconnect transition once the session closes for any reason.
func (s *WSHandler) Handler(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	span := trace.SpanFromContext(r.Context())
	username, ok := r.Context().Value(middleware.UserIDKey).(string)
	if !ok {
		http.Error(w, "Unauthorized: username missing", http.StatusUnauthorized)
		return
	}
	// Stored usernames are lowercase; normalize the peer here so every
	// lookup downstream compares against the canonical form.
	peer := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("user")))
	if peer == "" {
		http.Error(w, "missing user query parameter", http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("user.name", username))

	// The session outlives the HTTP request that carried the upgrade.
	sessionCtx := context.WithoutCancel(r.Context())
	ctx, cancel := context.WithCancel(sessionCtx)
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true // tighten later
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.ErrorContext(r.Context(), "ws handler - upgrade failed", "err", err)
		cancel()
		return
	}
	conn.SetCloseHandler(func(code int, text string) error {
		cancel()
		return nil
	})
	socket := ws.NewWebSocket(ctx, conn)

	sess := &services.Session{
		ConnectionID: uuid.NewString(),
		Username:     username,
		Peer:         peer,
		GroupName:    services.GroupName(username, peer),
	}
	client := ws.NewClient(ctx, socket, sess.ConnectionID, username, sess.GroupName)
	s.caster.Register(client)
	metrics.ActiveConnections.Inc()
	defer func() {
		s.caster.Unregister(client)
		client.Close()
		metrics.ActiveConnections.Dec()
		cancel()
	}()

	if err := s.hub.Connect(ctx, sess); err != nil {
		log.ErrorContext(r.Context(), "ws handler - connect failed", "username", username, "err", err)
		s.sendError(ctx, client, err)
		return
	}
	defer s.hub.Disconnect(sessionCtx, sess)
	log.InfoContext(r.Context(), "ws handler - connection established", "username", username, "connection_id", sess.ConnectionID)

	// Frames dispatch inline: the read loop serializes one connection's
	// frames, so consecutive sends persist and broadcast in order.
	socket.ReadLoop(func(data []byte) {
		s.dispatch(ctx, client, sess, data)
	})
}

func (s *WSHandler) dispatch(ctx context.Context, client contracts.Client, sess *services.Session, data []byte) {
	var frame domain.InboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		s.sendError(ctx, client, err)
		return
	}
	switch frame.Type {
	case domain.FrameSendMessage:
		if err := s.hub.SendMessage(ctx, sess, frame.RecipientUsername, frame.Content); err != nil {
			s.sendError(ctx, client, err)
		}
	case domain.FrameTyping:
		s.hub.UserIsTyping(ctx, sess)
	}
}

// sendError surfaces a failure to the caller only. Sentinel messages pass
// through; anything else collapses to a generic failure so store internals
// never reach the wire.
func (s *WSHandler) sendError(ctx context.Context, client contracts.Client, err error) {
	msg := "internal error"
	switch {
	case errors.Is(err, domain.ErrSelfMessage),
		errors.Is(err, domain.ErrEmptyContent),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrGroupNotFound),
		errors.Is(err, domain.ErrConnectionNotFound):
		msg = err.Error()
	}
	data, merr := json.Marshal(domain.ErrorEvent{Type: domain.TypeError, Message: msg})
	if merr != nil {
		return
	}
	_ = client.Send(ctx, data)
}

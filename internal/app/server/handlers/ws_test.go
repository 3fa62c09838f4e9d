package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"amora/internal/app/registry"
	"amora/internal/core/domain"
	"amora/internal/core/presence"
	"amora/internal/core/services"
	"amora/pkg/middleware"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGroupRepo struct {
	groups      map[string]*domain.Group
	connToGroup map[string]string
}

func newStubGroupRepo() *stubGroupRepo {
	return &stubGroupRepo{
		groups:      make(map[string]*domain.Group),
		connToGroup: make(map[string]string),
	}
}

func (r *stubGroupRepo) GetGroup(_ context.Context, name string) (*domain.Group, error) {
	g, ok := r.groups[name]
	if !ok {
		return nil, domain.ErrGroupNotFound
	}
	copied := domain.Group{Name: g.Name, Connections: append([]domain.Connection(nil), g.Connections...)}
	return &copied, nil
}

func (r *stubGroupRepo) CreateGroup(_ context.Context, name string) error {
	if _, ok := r.groups[name]; !ok {
		r.groups[name] = &domain.Group{Name: name}
	}
	return nil
}

func (r *stubGroupRepo) AddConnection(_ context.Context, groupName string, conn domain.Connection) error {
	g, ok := r.groups[groupName]
	if !ok {
		return domain.ErrGroupNotFound
	}
	g.Connections = append(g.Connections, conn)
	r.connToGroup[conn.ID] = groupName
	return nil
}

func (r *stubGroupRepo) RemoveConnection(_ context.Context, connectionID string) error {
	groupName, ok := r.connToGroup[connectionID]
	if !ok {
		return domain.ErrConnectionNotFound
	}
	g := r.groups[groupName]
	remaining := g.Connections[:0]
	for _, c := range g.Connections {
		if c.ID != connectionID {
			remaining = append(remaining, c)
		}
	}
	g.Connections = remaining
	delete(r.connToGroup, connectionID)
	return nil
}

func (r *stubGroupRepo) GetGroupForConnection(_ context.Context, connectionID string) (*domain.Group, error) {
	groupName, ok := r.connToGroup[connectionID]
	if !ok {
		return nil, domain.ErrGroupNotFound
	}
	return r.GetGroup(context.Background(), groupName)
}

type stubNotifier struct{}

func (stubNotifier) NotifyUser(context.Context, string, any) error   { return nil }
func (stubNotifier) NotifyOthers(context.Context, string, any) error { return nil }

func (stubNotifier) Subscribe(context.Context, func(ctx context.Context, username, except string, payload []byte)) error {
	return nil
}

func newWSTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := registry.New()
	tracker := presence.NewTracker()
	msgRepo := &stubMessageRepo{}
	groupSvc := services.NewGroupService(log, newStubGroupRepo())
	msgSvc := services.NewMessageService(log, msgRepo, stubUserRepo{}, passTx{})
	hub := services.NewHub(log, stubUserRepo{}, msgRepo, msgSvc, groupSvc, tracker, reg, stubNotifier{}, passTx{})
	handler := NewWSHandler(reg, hub)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), middleware.UserIDKey, "alice")
		handler.Handler(w, r.WithContext(ctx))
	}))
	t.Cleanup(srv.Close)
	return srv
}

type wireEvent struct {
	Type    string `json:"type"`
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

func dialWS(t *testing.T, srv *httptest.Server, peer string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + peer
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func TestWSMessagesBroadcastInSendOrder(t *testing.T) {
	srv := newWSTestServer(t)
	conn := dialWS(t, srv, "bob")

	for _, content := range []string{"first", "second", "third"} {
		frame, err := json.Marshal(domain.InboundFrame{
			Type:              domain.FrameSendMessage,
			RecipientUsername: "bob",
			Content:           content,
		})
		require.NoError(t, err)
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
	}

	var contents []string
	for len(contents) < 3 {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var ev wireEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		if ev.Type == domain.TypeNewMessage {
			contents = append(contents, ev.Message.Content)
		}
	}
	assert.Equal(t, []string{"first", "second", "third"}, contents, "a connection's sends arrive in the order they were made")
}

func TestWSConnectPushesSessionEvents(t *testing.T) {
	srv := newWSTestServer(t)
	conn := dialWS(t, srv, "bob")

	var types []string
	for len(types) < 3 {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var ev wireEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		types = append(types, ev.Type)
	}
	assert.Equal(t, []string{domain.TypeUpdatedGroup, domain.TypeMessageThread, domain.TypeOnlineUsers}, types)
}

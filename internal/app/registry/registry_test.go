package registry

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	id       string
	username string
	group    string
	sent     [][]byte
}

func (c *stubClient) ConnectionID() string { return c.id }
func (c *stubClient) Username() string     { return c.username }
func (c *stubClient) GroupName() string    { return c.group }
func (c *stubClient) Close()               {}

func (c *stubClient) Send(_ context.Context, data []byte) error {
	c.sent = append(c.sent, data)
	return nil
}

type ping struct {
	Type string `json:"type"`
}

func TestBroadcastScopedToGroup(t *testing.T) {
	r := New()
	a := &stubClient{id: "c1", username: "alice", group: "alice-bob"}
	b := &stubClient{id: "c2", username: "bob", group: "alice-bob"}
	other := &stubClient{id: "c3", username: "carol", group: "bob-carol"}
	r.Register(a)
	r.Register(b)
	r.Register(other)

	r.Broadcast(context.Background(), "alice-bob", ping{Type: "hello"})

	require.Len(t, a.sent, 1)
	require.Len(t, b.sent, 1)
	assert.Empty(t, other.sent, "other groups must not receive the event")

	var got ping
	require.NoError(t, json.Unmarshal(a.sent[0], &got))
	assert.Equal(t, "hello", got.Type)
}

func TestPushSkipsUnknownIDs(t *testing.T) {
	r := New()
	a := &stubClient{id: "c1", username: "alice", group: "alice-bob"}
	r.Register(a)

	r.Push(context.Background(), []string{"c1", "gone"}, ping{Type: "direct"})

	assert.Len(t, a.sent, 1, "known connection receives the event, unknown id is skipped")
}

func TestBroadcastAllExcept(t *testing.T) {
	r := New()
	a := &stubClient{id: "c1", username: "alice", group: "alice-bob"}
	a2 := &stubClient{id: "c2", username: "alice", group: "alice-carol"}
	b := &stubClient{id: "c3", username: "bob", group: "alice-bob"}
	r.Register(a)
	r.Register(a2)
	r.Register(b)

	r.BroadcastAll(context.Background(), ping{Type: "presence"}, "alice")

	assert.Empty(t, a.sent)
	assert.Empty(t, a2.sent, "every connection of the excluded user is skipped")
	assert.Len(t, b.sent, 1)
}

func TestUnregisterCleansUp(t *testing.T) {
	r := New()
	a := &stubClient{id: "c1", username: "alice", group: "alice-bob"}
	b := &stubClient{id: "c2", username: "bob", group: "alice-bob"}
	r.Register(a)
	r.Register(b)

	r.Unregister(a)
	r.Broadcast(context.Background(), "alice-bob", ping{Type: "after"})
	r.Push(context.Background(), []string{"c1"}, ping{Type: "direct"})

	assert.Empty(t, a.sent, "unregistered client receives nothing")
	assert.Len(t, b.sent, 1)

	r.Unregister(b)
	r.mu.RLock()
	defer r.mu.RUnlock()
	assert.Empty(t, r.groups, "empty group entries are removed")
	assert.Empty(t, r.clients)
}

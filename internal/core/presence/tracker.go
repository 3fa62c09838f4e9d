// Package presence tracks which connections a user currently holds open.
// State lives in process memory only and is rebuilt from zero on restart;
// callers must tolerate total loss of presence knowledge.
package presence

import "sync"

// Tracker maps a username to the set of its open connection ids. A user's
// entry is removed entirely once its last connection closes; the map never
// holds a present-but-empty set.
type Tracker struct {
	mu          sync.Mutex
	connections map[string]map[string]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{
		connections: make(map[string]map[string]struct{}),
	}
}

// Add registers a connection under a user, creating the entry if absent.
// Reports whether this was the user's first open connection.
func (t *Tracker) Add(username, connectionID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	conns, ok := t.connections[username]
	if !ok {
		conns = make(map[string]struct{})
		t.connections[username] = conns
	}
	conns[connectionID] = struct{}{}
	return !ok
}

// Remove drops a connection and deletes the user's entry if it became
// empty. Reports whether this was the user's last open connection.
func (t *Tracker) Remove(username, connectionID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	conns, ok := t.connections[username]
	if !ok {
		return false
	}
	delete(conns, connectionID)
	if len(conns) == 0 {
		delete(t.connections, username)
		return true
	}
	return false
}

// ConnectionsFor returns a point-in-time snapshot of the user's open
// connection ids, or nil if the user holds none.
func (t *Tracker) ConnectionsFor(username string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	conns, ok := t.connections[username]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(conns))
	for id := range conns {
		ids = append(ids, id)
	}
	return ids
}

// Online returns a snapshot of every username with at least one open
// connection.
func (t *Tracker) Online() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	users := make([]string, 0, len(t.connections))
	for u := range t.connections {
		users = append(users, u)
	}
	return users
}

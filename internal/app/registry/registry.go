// Package registry holds the node-local map of live websocket clients and
// fans hub events out to them.
package registry

import (
	"context"
	"encoding/json"
	"sync"

	"amora/internal/core/contracts"
)

type Registry struct {
	mu      sync.RWMutex
	clients map[string]contracts.Client            // connection id → client
	groups  map[string]map[string]contracts.Client // group name → connection id → client
}

func New() *Registry {
	return &Registry{
		clients: make(map[string]contracts.Client),
		groups:  make(map[string]map[string]contracts.Client),
	}
}

func (r *Registry) Register(c contracts.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	group := c.GroupName()
	if r.groups[group] == nil {
		r.groups[group] = make(map[string]contracts.Client)
	}
	r.groups[group][c.ConnectionID()] = c
	r.clients[c.ConnectionID()] = c
}

func (r *Registry) Unregister(c contracts.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	group := c.GroupName()
	delete(r.groups[group], c.ConnectionID())
	if len(r.groups[group]) == 0 {
		delete(r.groups, group)
	}
	delete(r.clients, c.ConnectionID())
}

// Broadcast sends an event to every connection in a group, in no
// particular order. Send failures are per-client and ignored; a dead
// client cleans itself up through its own close path.
func (r *Registry) Broadcast(ctx context.Context, groupName string, event any) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	for _, c := range r.groups[groupName] {
		_ = c.Send(ctx, data)
	}
}

// Push delivers an event to specific connections on this node. Unknown
// ids (connections on other nodes, or already closed) are skipped.
func (r *Registry) Push(ctx context.Context, connectionIDs []string, event any) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	for _, id := range connectionIDs {
		if c := r.clients[id]; c != nil {
			_ = c.Send(ctx, data)
		}
	}
}

// BroadcastAll delivers an event to every connection on this node except
// those owned by exceptUsername.
func (r *Registry) BroadcastAll(ctx context.Context, event any, exceptUsername string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	for _, c := range r.clients {
		if c.Username() == exceptUsername {
			continue
		}
		_ = c.Send(ctx, data)
	}
}

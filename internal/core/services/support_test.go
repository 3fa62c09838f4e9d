package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"time"

	"amora/internal/core/contracts"
	"amora/internal/core/domain"
	"amora/internal/core/paging"

	"github.com/google/uuid"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// nopTx runs the unit of work on the caller's context with no transaction.
type nopTx struct{}

func (nopTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeUserRepo struct {
	users map[string]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		r.users[u.Username] = u
	}
	return r
}

func (r *fakeUserRepo) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	if u, ok := r.users[username]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *fakeUserRepo) CreateUser(_ context.Context, u *domain.User) error {
	if _, ok := r.users[u.Username]; ok {
		return domain.ErrUsernameTaken
	}
	r.users[u.Username] = u
	return nil
}

type fakeMessageRepo struct {
	messages      map[uuid.UUID]*domain.Message
	addErr        error
	threadErr     error
	markReadCalls int
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[uuid.UUID]*domain.Message)}
}

func (r *fakeMessageRepo) AddMessage(_ context.Context, m *domain.Message) error {
	if r.addErr != nil {
		return r.addErr
	}
	stored := *m
	r.messages[m.ID] = &stored
	return nil
}

func (r *fakeMessageRepo) GetMessageByID(_ context.Context, id uuid.UUID) (*domain.Message, error) {
	m, ok := r.messages[id]
	if !ok {
		return nil, domain.ErrMessageNotFound
	}
	copied := *m
	return &copied, nil
}

func (r *fakeMessageRepo) SetDeletedFlags(_ context.Context, id uuid.UUID, senderDeleted, recipientDeleted bool) error {
	m, ok := r.messages[id]
	if !ok {
		return domain.ErrMessageNotFound
	}
	m.SenderDeleted = senderDeleted
	m.RecipientDeleted = recipientDeleted
	return nil
}

func (r *fakeMessageRepo) DeleteMessage(_ context.Context, id uuid.UUID) error {
	delete(r.messages, id)
	return nil
}

func (r *fakeMessageRepo) GetMessageThread(_ context.Context, currentUsername, otherUsername string) ([]domain.Message, error) {
	if r.threadErr != nil {
		return nil, r.threadErr
	}
	var msgs []domain.Message
	for _, m := range r.messages {
		between := (m.SenderUsername == currentUsername && m.RecipientUsername == otherUsername) ||
			(m.SenderUsername == otherUsername && m.RecipientUsername == currentUsername)
		if !between {
			continue
		}
		if m.SenderUsername == currentUsername && m.SenderDeleted {
			continue
		}
		if m.RecipientUsername == currentUsername && m.RecipientDeleted {
			continue
		}
		msgs = append(msgs, *m)
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].SentAt.Before(msgs[j].SentAt) })
	return msgs, nil
}

func (r *fakeMessageRepo) MarkThreadRead(_ context.Context, currentUsername, otherUsername string, readAt time.Time) (int64, error) {
	r.markReadCalls++
	var n int64
	for _, m := range r.messages {
		if m.RecipientUsername == currentUsername && m.SenderUsername == otherUsername && m.ReadAt == nil {
			at := readAt
			m.ReadAt = &at
			n++
		}
	}
	return n, nil
}

func (r *fakeMessageRepo) GetMessagesForUser(_ context.Context, params domain.MessageParams) (paging.PagedSlice[domain.Message], error) {
	var all []domain.Message
	for _, m := range r.messages {
		switch params.Container {
		case domain.ContainerOutbox:
			if m.SenderUsername == params.Username && !m.SenderDeleted {
				all = append(all, *m)
			}
		case domain.ContainerUnread:
			if m.RecipientUsername == params.Username && !m.RecipientDeleted && m.ReadAt == nil {
				all = append(all, *m)
			}
		default:
			if m.RecipientUsername == params.Username && !m.RecipientDeleted {
				all = append(all, *m)
			}
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].SentAt.After(all[j].SentAt) })
	total := len(all)
	start := (params.PageNumber - 1) * params.PageSize
	if start > total {
		start = total
	}
	end := start + params.PageSize
	if end > total {
		end = total
	}
	return paging.New(all[start:end], params.PageNumber, params.PageSize, total), nil
}

type fakeGroupRepo struct {
	groups      map[string]*domain.Group
	connToGroup map[string]string
}

func newFakeGroupRepo() *fakeGroupRepo {
	return &fakeGroupRepo{
		groups:      make(map[string]*domain.Group),
		connToGroup: make(map[string]string),
	}
}

func (r *fakeGroupRepo) GetGroup(_ context.Context, name string) (*domain.Group, error) {
	g, ok := r.groups[name]
	if !ok {
		return nil, domain.ErrGroupNotFound
	}
	copied := domain.Group{Name: g.Name, Connections: append([]domain.Connection(nil), g.Connections...)}
	return &copied, nil
}

func (r *fakeGroupRepo) CreateGroup(_ context.Context, name string) error {
	if _, ok := r.groups[name]; !ok {
		r.groups[name] = &domain.Group{Name: name}
	}
	return nil
}

func (r *fakeGroupRepo) AddConnection(_ context.Context, groupName string, conn domain.Connection) error {
	g, ok := r.groups[groupName]
	if !ok {
		return domain.ErrGroupNotFound
	}
	g.Connections = append(g.Connections, conn)
	r.connToGroup[conn.ID] = groupName
	return nil
}

func (r *fakeGroupRepo) RemoveConnection(_ context.Context, connectionID string) error {
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

func (r *fakeGroupRepo) GetGroupForConnection(_ context.Context, connectionID string) (*domain.Group, error) {
	groupName, ok := r.connToGroup[connectionID]
	if !ok {
		return nil, domain.ErrGroupNotFound
	}
	return r.GetGroup(context.Background(), groupName)
}

type broadcastCall struct {
	group string
	event any
}

type pushCall struct {
	connectionIDs []string
	event         any
}

type fakeBroadcaster struct {
	broadcasts []broadcastCall
	pushes     []pushCall
	broadAll   []any
}

func (b *fakeBroadcaster) Register(contracts.Client)   {}
func (b *fakeBroadcaster) Unregister(contracts.Client) {}

func (b *fakeBroadcaster) Broadcast(_ context.Context, groupName string, event any) {
	b.broadcasts = append(b.broadcasts, broadcastCall{group: groupName, event: event})
}

func (b *fakeBroadcaster) Push(_ context.Context, connectionIDs []string, event any) {
	b.pushes = append(b.pushes, pushCall{connectionIDs: connectionIDs, event: event})
}

func (b *fakeBroadcaster) BroadcastAll(_ context.Context, event any, _ string) {
	b.broadAll = append(b.broadAll, event)
}

type notifyCall struct {
	username string
	event    any
}

type fakeNotifier struct {
	userCalls   []notifyCall
	othersCalls []notifyCall // username field carries the excluded user
}

func (n *fakeNotifier) NotifyUser(_ context.Context, username string, event any) error {
	n.userCalls = append(n.userCalls, notifyCall{username: username, event: event})
	return nil
}

func (n *fakeNotifier) NotifyOthers(_ context.Context, exceptUsername string, event any) error {
	n.othersCalls = append(n.othersCalls, notifyCall{username: exceptUsername, event: event})
	return nil
}

func (n *fakeNotifier) Subscribe(_ context.Context, _ func(ctx context.Context, username, except string, payload []byte)) error {
	return nil
}

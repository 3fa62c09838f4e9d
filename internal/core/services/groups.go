package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"amora/internal/core/domain"
)

// GroupName derives the canonical conversation group name for two users.
// Usernames are lowercased first (the one casing policy the whole system
// shares), ordered by ordinal comparison and joined with "-", so both
// participants compute the same name regardless of who initiates.
func GroupName(caller, other string) string {
	caller = strings.ToLower(caller)
	other = strings.ToLower(other)
	if caller < other {
		return caller + "-" + other
	}
	return other + "-" + caller
}

// GroupService is the persistence glue for conversation groups. Methods
// are transaction-neutral: they run against whatever unit of work the
// caller's context carries.
type GroupService struct {
	repo domain.GroupRepository
	log  *slog.Logger
}

func NewGroupService(log *slog.Logger, repo domain.GroupRepository) *GroupService {
	return &GroupService{log: log, repo: repo}
}

// GetOrCreate returns the persisted group or lazily creates an empty one.
func (s *GroupService) GetOrCreate(ctx context.Context, name string) (*domain.Group, error) {
	group, err := s.repo.GetGroup(ctx, name)
	if err == nil {
		return group, nil
	}
	if !errors.Is(err, domain.ErrGroupNotFound) {
		return nil, err
	}
	if err := s.repo.CreateGroup(ctx, name); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "groups - get or create - group created", "group", name)
	return &domain.Group{Name: name}, nil
}

// Get returns the persisted group with its current connections.
func (s *GroupService) Get(ctx context.Context, name string) (*domain.Group, error) {
	return s.repo.GetGroup(ctx, name)
}

// Join appends a connection record to the group.
func (s *GroupService) Join(ctx context.Context, groupName string, conn domain.Connection) error {
	return s.repo.AddConnection(ctx, groupName, conn)
}

// Leave removes a connection from whichever group holds it and returns
// that group with the connection already stripped. An unknown connection
// is reported as not found, never silently ignored.
func (s *GroupService) Leave(ctx context.Context, connectionID string) (*domain.Group, error) {
	group, err := s.repo.GetGroupForConnection(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.RemoveConnection(ctx, connectionID); err != nil {
		return nil, err
	}
	remaining := group.Connections[:0]
	for _, c := range group.Connections {
		if c.ID != connectionID {
			remaining = append(remaining, c)
		}
	}
	group.Connections = remaining
	return group, nil
}

// GroupForConnection locates the group currently containing a connection.
func (s *GroupService) GroupForConnection(ctx context.Context, connectionID string) (*domain.Group, error) {
	return s.repo.GetGroupForConnection(ctx, connectionID)
}

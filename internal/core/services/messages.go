package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"amora/internal/core/contracts"
	"amora/internal/core/domain"
	"amora/internal/core/paging"

	"github.com/google/uuid"
)

// MessageService owns message persistence outside the live hub: the REST
// create path, thread retrieval with its mark-as-read side effect, the
// paged per-user listing and two-sided deletion.
type MessageService struct {
	repo      domain.MessageRepository
	users     domain.UserRepository
	txManager contracts.TxRunner
	log       *slog.Logger
}

func NewMessageService(
	log *slog.Logger,
	repo domain.MessageRepository,
	users domain.UserRepository,
	txManager contracts.TxRunner,
) *MessageService {
	return &MessageService{
		log:       log,
		repo:      repo,
		users:     users,
		txManager: txManager,
	}
}

// Create validates and persists a message without any broadcast. Used by
// the REST surface; the hub runs its own send path with presence stamping.
func (s *MessageService) Create(ctx context.Context, senderUsername, recipientUsername, content string) (*domain.Message, error) {
	recipientUsername = strings.ToLower(strings.TrimSpace(recipientUsername))
	if strings.EqualFold(senderUsername, recipientUsername) {
		return nil, domain.ErrSelfMessage
	}
	if strings.TrimSpace(content) == "" {
		return nil, domain.ErrEmptyContent
	}
	sender, err := s.users.GetUserByUsername(ctx, senderUsername)
	if err != nil {
		return nil, err
	}
	recipient, err := s.users.GetUserByUsername(ctx, recipientUsername)
	if err != nil {
		return nil, err
	}
	msg := domain.NewMessage(sender.Username, recipient.Username, content)
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		return s.repo.AddMessage(txCtx, msg)
	}); err != nil {
		s.log.ErrorContext(ctx, "messages - create - persist failed", "sender", senderUsername, "recipient", recipientUsername, "err", err)
		return nil, err
	}
	return msg, nil
}

// MessageThread returns the conversation between the two users, oldest
// first, filtered by the requester's own deletion flags. Viewing the
// thread marks every unread message addressed to the requester as read,
// persisted in the same unit of work. A second view with nothing unread
// performs no writes.
func (s *MessageService) MessageThread(ctx context.Context, currentUsername, otherUsername string) ([]domain.Message, error) {
	// One casing policy: stored usernames are lowercase, so the query
	// arguments must be too or the thread silently comes back empty.
	currentUsername = strings.ToLower(strings.TrimSpace(currentUsername))
	otherUsername = strings.ToLower(strings.TrimSpace(otherUsername))
	now := time.Now().UTC()
	var msgs []domain.Message
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		msgs, err = s.repo.GetMessageThread(txCtx, currentUsername, otherUsername)
		if err != nil {
			return err
		}
		if !hasUnreadFor(msgs, currentUsername) {
			return nil
		}
		n, err := s.repo.MarkThreadRead(txCtx, currentUsername, otherUsername, now)
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrNothingSaved
		}
		return nil
	}); err != nil {
		s.log.ErrorContext(ctx, "messages - message thread - load failed", "current", currentUsername, "other", otherUsername, "err", err)
		return nil, err
	}
	// Reflect the stamp on the returned slice so callers see what the
	// store now holds.
	for i := range msgs {
		if msgs[i].RecipientUsername == currentUsername && msgs[i].ReadAt == nil {
			msgs[i].ReadAt = &now
		}
	}
	return msgs, nil
}

// MessagesForUser returns one page of the user's messages filtered by the
// requested container.
func (s *MessageService) MessagesForUser(ctx context.Context, params domain.MessageParams) (paging.PagedSlice[domain.Message], error) {
	return s.repo.GetMessagesForUser(ctx, params)
}

// Delete sets the caller's deletion flag on the message. The row is hard
// deleted only once both sides have deleted it; until then the other
// party still sees it.
func (s *MessageService) Delete(ctx context.Context, id uuid.UUID, username string) error {
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		msg, err := s.repo.GetMessageByID(txCtx, id)
		if err != nil {
			return err
		}
		if msg.SenderUsername != username && msg.RecipientUsername != username {
			return domain.ErrNotMessageParty
		}
		if msg.SenderUsername == username {
			msg.SenderDeleted = true
		}
		if msg.RecipientUsername == username {
			msg.RecipientDeleted = true
		}
		if msg.SenderDeleted && msg.RecipientDeleted {
			return s.repo.DeleteMessage(txCtx, id)
		}
		return s.repo.SetDeletedFlags(txCtx, id, msg.SenderDeleted, msg.RecipientDeleted)
	}); err != nil {
		s.log.ErrorContext(ctx, "messages - delete - failed", "message_id", id.String(), "username", username, "err", err)
		return err
	}
	s.log.InfoContext(ctx, "messages - delete - success", "message_id", id.String(), "username", username)
	return nil
}

func hasUnreadFor(msgs []domain.Message, username string) bool {
	for i := range msgs {
		if msgs[i].RecipientUsername == username && msgs[i].ReadAt == nil {
			return true
		}
	}
	return false
}

package services

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"

	"amora/internal/core/domain"
)

// UserService is the thin account collaborator the hub depends on:
// register and login issuing the identity the token service signs.
type UserService struct {
	log  *slog.Logger
	repo domain.UserRepository
}

func NewUserService(log *slog.Logger, repo domain.UserRepository) *UserService {
	return &UserService{log: log, repo: repo}
}

func (s *UserService) Register(ctx context.Context, username, knownAs, password string) (*domain.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}
	if knownAs == "" {
		knownAs = username
	}
	salt := make([]byte, 64)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	user := &domain.User{
		Username:     username,
		KnownAs:      knownAs,
		PasswordSalt: salt,
		PasswordHash: hashPassword(salt, password),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		s.log.ErrorContext(ctx, "user - register - create failed", "username", username, "err", err)
		return nil, err
	}
	s.log.InfoContext(ctx, "user - register - created", "username", username)
	return user, nil
}

func (s *UserService) Login(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	computed := hashPassword(user.PasswordSalt, password)
	if subtle.ConstantTimeCompare(computed, user.PasswordHash) != 1 {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

func hashPassword(salt []byte, password string) []byte {
	mac := hmac.New(sha512.New, salt)
	mac.Write([]byte(password))
	return mac.Sum(nil)
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"amora/internal/core/domain"
	"amora/internal/core/services"
	"amora/internal/platform/logger"
)

type AuthHandler struct {
	userSvc  *services.UserService
	tokenSvc *services.TokenService
}

func NewAuthHandler(u *services.UserService, t *services.TokenService) *AuthHandler {
	return &AuthHandler{userSvc: u, tokenSvc: t}
}

type credentials struct {
	Username string `json:"username"`
	KnownAs  string `json:"known_as,omitempty"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	user, err := h.userSvc.Register(r.Context(), req.Username, req.KnownAs, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.ErrorContext(r.Context(), "auth handler - register failed", "username", req.Username, "err", err)
		http.Error(w, "registration failed", http.StatusInternalServerError)
		return
	}
	h.writeToken(w, r, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	user, err := h.userSvc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		log.ErrorContext(r.Context(), "auth handler - login failed", "username", req.Username, "err", err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}
	h.writeToken(w, r, user)
}

func (h *AuthHandler) writeToken(w http.ResponseWriter, r *http.Request, user *domain.User) {
	log := logger.FromContext(r.Context())
	token, err := h.tokenSvc.GenerateToken(user.Username)
	if err != nil {
		log.ErrorContext(r.Context(), "auth handler - generate token failed", "username", user.Username, "err", err)
		http.Error(w, "failed to generate token", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"username": user.Username,
		"known_as": user.KnownAs,
		"token":    token,
	})
}

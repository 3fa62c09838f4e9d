package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"amora/internal/core/domain"
	"amora/internal/core/paging"
	"amora/internal/core/services"
	"amora/internal/platform/logger"
	"amora/pkg/middleware"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

type MessagesHandler struct {
	msgSvc *services.MessageService
}

func NewMessagesHandler(msgSvc *services.MessageService) *MessagesHandler {
	return &MessagesHandler{msgSvc: msgSvc}
}

func (h *MessagesHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	username, _ := r.Context().Value(middleware.UserIDKey).(string)
	var req struct {
		RecipientUsername string `json:"recipient_username"`
		Content           string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	msg, err := h.msgSvc.Create(r.Context(), username, req.RecipientUsername, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSelfMessage), errors.Is(err, domain.ErrEmptyContent):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, domain.ErrUserNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			log.ErrorContext(r.Context(), "messages handler - create failed", "username", username, "err", err)
			http.Error(w, "failed to send message", http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(msg)
}

// List returns one page of the caller's messages. Pagination metadata
// travels in the Pagination response header alongside the JSON body.
func (h *MessagesHandler) List(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	username, _ := r.Context().Value(middleware.UserIDKey).(string)
	params := domain.MessageParams{
		Username:   username,
		Container:  domain.Container(r.URL.Query().Get("container")),
		PageNumber: queryInt(r, "pageNumber", 1),
		PageSize:   queryInt(r, "pageSize", defaultPageSize),
	}
	if params.PageNumber < 1 {
		params.PageNumber = 1
	}
	if params.PageSize < 1 {
		params.PageSize = defaultPageSize
	}
	if params.PageSize > maxPageSize {
		params.PageSize = maxPageSize
	}
	page, err := h.msgSvc.MessagesForUser(r.Context(), params)
	if err != nil {
		log.ErrorContext(r.Context(), "messages handler - list failed", "username", username, "err", err)
		http.Error(w, "failed to load messages", http.StatusInternalServerError)
		return
	}
	writePaginationHeader(w, page)
	w.Header().Set("Content-Type", "application/json")
	if page.Items == nil {
		page.Items = []domain.Message{}
	}
	json.NewEncoder(w).Encode(page.Items)
}

func (h *MessagesHandler) Thread(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	username, _ := r.Context().Value(middleware.UserIDKey).(string)
	other := strings.ToLower(strings.TrimSpace(r.PathValue("username")))
	msgs, err := h.msgSvc.MessageThread(r.Context(), username, other)
	if err != nil {
		log.ErrorContext(r.Context(), "messages handler - thread failed", "username", username, "other", other, "err", err)
		http.Error(w, "failed to load thread", http.StatusInternalServerError)
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(msgs)
}

func (h *MessagesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	username, _ := r.Context().Value(middleware.UserIDKey).(string)
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid message id", http.StatusBadRequest)
		return
	}
	if err := h.msgSvc.Delete(r.Context(), id, username); err != nil {
		switch {
		case errors.Is(err, domain.ErrMessageNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, domain.ErrNotMessageParty):
			http.Error(w, err.Error(), http.StatusForbidden)
		default:
			log.ErrorContext(r.Context(), "messages handler - delete failed", "username", username, "message_id", id.String(), "err", err)
			http.Error(w, "failed to delete message", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusOK)
}

func writePaginationHeader(w http.ResponseWriter, page paging.PagedSlice[domain.Message]) {
	header, _ := json.Marshal(map[string]int{
		"currentPage":  page.CurrentPage,
		"itemsPerPage": page.PageSize,
		"totalItems":   page.TotalCount,
		"totalPages":   page.TotalPages,
	})
	w.Header().Set("Pagination", string(header))
	w.Header().Set("Access-Control-Expose-Headers", "Pagination")
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

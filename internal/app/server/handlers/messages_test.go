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

	"amora/internal/core/domain"
	"amora/internal/core/paging"
	"amora/internal/core/services"
	"amora/pkg/middleware"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubMessageRepo serves the listing path; everything else is unused by
// these tests.
type stubMessageRepo struct {
	total int
}

func (s *stubMessageRepo) AddMessage(context.Context, *domain.Message) error { return nil }

func (s *stubMessageRepo) GetMessageByID(context.Context, uuid.UUID) (*domain.Message, error) {
	return nil, domain.ErrMessageNotFound
}

func (s *stubMessageRepo) SetDeletedFlags(context.Context, uuid.UUID, bool, bool) error { return nil }
func (s *stubMessageRepo) DeleteMessage(context.Context, uuid.UUID) error               { return nil }

func (s *stubMessageRepo) GetMessageThread(context.Context, string, string) ([]domain.Message, error) {
	return nil, nil
}

func (s *stubMessageRepo) MarkThreadRead(context.Context, string, string, time.Time) (int64, error) {
	return 0, nil
}

func (s *stubMessageRepo) GetMessagesForUser(_ context.Context, params domain.MessageParams) (paging.PagedSlice[domain.Message], error) {
	n := params.PageSize
	if n > s.total {
		n = s.total
	}
	items := make([]domain.Message, n)
	return paging.New(items, params.PageNumber, params.PageSize, s.total), nil
}

type stubUserRepo struct{}

func (stubUserRepo) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	return &domain.User{Username: username}, nil
}

func (stubUserRepo) CreateUser(context.Context, *domain.User) error { return nil }

type passTx struct{}

func (passTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newMessagesHandler(repo *stubMessageRepo) *MessagesHandler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMessagesHandler(services.NewMessageService(log, repo, stubUserRepo{}, passTx{}))
}

func authedRequest(method, target string, body io.Reader) *http.Request {
	r := httptest.NewRequest(method, target, body)
	ctx := context.WithValue(r.Context(), middleware.UserIDKey, "alice")
	return r.WithContext(ctx)
}

func TestListPaginationHeader(t *testing.T) {
	h := newMessagesHandler(&stubMessageRepo{total: 25})
	w := httptest.NewRecorder()

	h.List(w, authedRequest(http.MethodGet, "/messages?container=Inbox&pageNumber=2&pageSize=10", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Pagination", w.Header().Get("Access-Control-Expose-Headers"))

	var meta struct {
		CurrentPage  int `json:"currentPage"`
		ItemsPerPage int `json:"itemsPerPage"`
		TotalItems   int `json:"totalItems"`
		TotalPages   int `json:"totalPages"`
	}
	require.NoError(t, json.Unmarshal([]byte(w.Header().Get("Pagination")), &meta))
	assert.Equal(t, 2, meta.CurrentPage)
	assert.Equal(t, 10, meta.ItemsPerPage)
	assert.Equal(t, 25, meta.TotalItems)
	assert.Equal(t, 3, meta.TotalPages)
}

func TestListClampsPageSize(t *testing.T) {
	h := newMessagesHandler(&stubMessageRepo{total: 200})
	w := httptest.NewRecorder()

	h.List(w, authedRequest(http.MethodGet, "/messages?pageSize=999&pageNumber=0", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var meta struct {
		CurrentPage  int `json:"currentPage"`
		ItemsPerPage int `json:"itemsPerPage"`
	}
	require.NoError(t, json.Unmarshal([]byte(w.Header().Get("Pagination")), &meta))
	assert.Equal(t, 50, meta.ItemsPerPage, "page size is capped")
	assert.Equal(t, 1, meta.CurrentPage, "page number floors at one")
}

func TestListEmptyBodyIsArray(t *testing.T) {
	h := newMessagesHandler(&stubMessageRepo{total: 0})
	w := httptest.NewRecorder()

	h.List(w, authedRequest(http.MethodGet, "/messages", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()), "empty page must encode as an array, not null")
}

func TestCreateRejectsSelf(t *testing.T) {
	h := newMessagesHandler(&stubMessageRepo{})
	w := httptest.NewRecorder()
	body := strings.NewReader(`{"recipient_username":"alice","content":"hi"}`)

	h.Create(w, authedRequest(http.MethodPost, "/messages", body))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteInvalidID(t *testing.T) {
	h := newMessagesHandler(&stubMessageRepo{})
	w := httptest.NewRecorder()

	r := authedRequest(http.MethodDelete, "/messages/not-a-uuid", nil)
	r.SetPathValue("id", "not-a-uuid")
	h.Delete(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

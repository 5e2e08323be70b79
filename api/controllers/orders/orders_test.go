package orders

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/cinepass/internal/cart"
	"github.com/angelmondragon/cinepass/internal/history"
	"github.com/angelmondragon/cinepass/internal/users"
	pkgerrors "github.com/angelmondragon/cinepass/pkg/errors"
	"github.com/angelmondragon/cinepass/pkg/pagination"
)

type stubRepo struct {
	params pagination.Params
	order  *cart.OrderSnapshot
}

func (s *stubRepo) ListByUser(_ context.Context, userID uuid.UUID, params pagination.Params) (*history.Page, error) {
	s.params = params
	if _, err := params.Window(userID); err != nil {
		return nil, err
	}
	return &history.Page{Orders: []cart.OrderSnapshot{}}, nil
}

func (s *stubRepo) Get(context.Context, uuid.UUID, uuid.UUID) (*cart.OrderSnapshot, error) {
	if s.order == nil {
		return nil, history.ErrNotFound
	}
	return s.order, nil
}

type stubCurrent struct{ user *users.UserDTO }

func (s stubCurrent) Me(context.Context, string) (*users.UserDTO, error) {
	if s.user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotAuthenticated, "not logged in")
	}
	return s.user, nil
}

func loggedIn() stubCurrent {
	return stubCurrent{user: &users.UserDTO{ID: uuid.New(), Email: "a@b.com"}}
}

func TestListPassesPagination(t *testing.T) {
	repo := &stubRepo{}
	resp := httptest.NewRecorder()
	List(repo, loggedIn(), nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=5", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 5, repo.params.Limit)
}

func TestListRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{name: "limit too large", query: "?limit=500"},
		{name: "garbage cursor", query: "?cursor=not-a-cursor!"},
		{name: "foreign cursor", query: "?cursor=" + pagination.EncodeCursor(pagination.Cursor{Owner: uuid.New(), ID: uuid.New()})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := httptest.NewRecorder()
			List(&stubRepo{}, loggedIn(), nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/orders"+tt.query, nil))
			assert.Equal(t, http.StatusBadRequest, resp.Code)
		})
	}
}

func TestListRequiresLogin(t *testing.T) {
	resp := httptest.NewRecorder()
	List(&stubRepo{}, stubCurrent{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestDetail(t *testing.T) {
	id := uuid.New()
	r := chi.NewRouter()
	r.Get("/orders/{orderID}", Detail(&stubRepo{order: &cart.OrderSnapshot{ID: id}}, loggedIn(), nil))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/orders/"+id.String(), nil))
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/orders/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	missing := chi.NewRouter()
	missing.Get("/orders/{orderID}", Detail(&stubRepo{}, loggedIn(), nil))
	resp = httptest.NewRecorder()
	missing.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/orders/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

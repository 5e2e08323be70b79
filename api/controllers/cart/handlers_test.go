package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/cinepass/api/middleware"
	cartsvc "github.com/angelmondragon/cinepass/internal/cart"
	"github.com/angelmondragon/cinepass/internal/catalog"
	"github.com/angelmondragon/cinepass/internal/coupons"
	"github.com/angelmondragon/cinepass/internal/storefront"
	"github.com/angelmondragon/cinepass/pkg/money"
	"github.com/angelmondragon/cinepass/pkg/storage"
)

type guest struct{}

func (guest) IsAuthenticated(context.Context) (bool, error)       { return false, nil }
func (guest) CurrentUser(context.Context) (*cartsvc.Buyer, error) { return nil, nil }

type noHistory struct{}

func (noHistory) Record(context.Context, *cartsvc.OrderSnapshot) error { return nil }

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	reg, err := storefront.NewRegistry(storefront.Params{
		Movies:  catalog.Default(),
		Coupons: coupons.Default(),
		Store:   storage.NewMemoryStore(),
		History: noHistory{},
		AuthFor: func(string) cartsvc.AuthProvider { return guest{} },
		Cart:    cartsvc.Config{Pricing: cartsvc.Pricing{ConvenienceFee: money.MustParse("5.00")}},
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if sid := req.Header.Get("X-Test-Session"); sid != "" {
				req = req.WithContext(middleware.WithSessionID(req.Context(), sid))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/cart", Fetch(reg, nil))
	r.Post("/cart/items", AddItem(reg, nil))
	r.Patch("/cart/items/{itemID}", UpdateQuantity(reg, nil))
	return r
}

func call(t *testing.T, h http.Handler, method, path, sid, body string) (*httptest.ResponseRecorder, Cart) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if sid != "" {
		req.Header.Set("X-Test-Session", sid)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	var envelope struct {
		Data Cart `json:"data"`
	}
	if resp.Code < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	}
	return resp, envelope.Data
}

func TestFetchEmptyCartShowsFee(t *testing.T) {
	h := newRouter(t)
	resp, view := call(t, h, http.MethodGet, "/cart", "s1", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.NotNil(t, view.Items)
	assert.Empty(t, view.Items)
	assert.Equal(t, "5", view.Totals.Total.String())
}

func TestFetchWithoutSession(t *testing.T) {
	h := newRouter(t)
	resp, _ := call(t, h, http.MethodGet, "/cart", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAddItemThenUpdateQuantity(t *testing.T) {
	h := newRouter(t)

	resp, view := call(t, h, http.MethodPost, "/cart/items", "s1", `{"movie_id":3,"theater":"Sala 2","seats":["A1"]}`)
	require.Equal(t, http.StatusCreated, resp.Code)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "Sala 2", view.Items[0].Theater)
	assert.Equal(t, "16:00", view.Items[0].Showtime)

	itemID := view.Items[0].ID
	resp, _ = call(t, h, http.MethodPatch, "/cart/items/"+itemID, "s1", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp, view = call(t, h, http.MethodPatch, "/cart/items/"+itemID, "s1", `{"quantity":0}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, view.Items)

	resp, _ = call(t, h, http.MethodPatch, "/cart/items/"+itemID, "s1", `{"quantity":2}`)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestAddItemUnknownMovie(t *testing.T) {
	h := newRouter(t)
	resp, _ := call(t, h, http.MethodPost, "/cart/items", "s1", `{"movie_id":4242}`)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

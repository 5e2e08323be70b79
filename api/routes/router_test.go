package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/cinepass/internal/auth"
	"github.com/angelmondragon/cinepass/internal/cart"
	"github.com/angelmondragon/cinepass/internal/catalog"
	"github.com/angelmondragon/cinepass/internal/coupons"
	"github.com/angelmondragon/cinepass/internal/history"
	"github.com/angelmondragon/cinepass/internal/storefront"
	"github.com/angelmondragon/cinepass/internal/users"
	"github.com/angelmondragon/cinepass/pkg/auth/session"
	"github.com/angelmondragon/cinepass/pkg/config"
	"github.com/angelmondragon/cinepass/pkg/db"
	"github.com/angelmondragon/cinepass/pkg/logger"
	"github.com/angelmondragon/cinepass/pkg/metrics"
	"github.com/angelmondragon/cinepass/pkg/migrate"
	"github.com/angelmondragon/cinepass/pkg/money"
	"github.com/angelmondragon/cinepass/pkg/security"
	"github.com/angelmondragon/cinepass/pkg/storage"
)

type testServer struct {
	handler http.Handler
	t       *testing.T
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dsn := "file:routes_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migrate.Up(context.Background(), logger.Nop(), db.Wrap(conn)))

	cfg := &config.Config{
		App: config.AppConfig{Env: "test", CORSOrigins: []string{"http://localhost:3000"}},
		JWT: config.JWTConfig{Secret: "test-secret", Issuer: "cinepass", ExpirationMinutes: 60},
	}

	store := storage.NewMemoryStore()
	sessions, err := session.NewManager(store, 30*time.Minute)
	require.NoError(t, err)

	authSvc, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(conn),
		SessionManager: sessions,
		Movies:         catalog.Default(),
		Hasher: security.NewHasher(config.PasswordConfig{
			ArgonMemoryKB:    8 * 1024,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     16,
			ArgonKeyLen:      32,
		}),
	})
	require.NoError(t, err)

	orders := history.NewRepository(conn)
	reg := prometheus.NewRegistry()
	registry, err := storefront.NewRegistry(storefront.Params{
		Movies:  catalog.Default(),
		Coupons: coupons.Default(),
		Store:   store,
		History: orders,
		AuthFor: func(sessionID string) cart.AuthProvider { return authSvc.Provider(sessionID) },
		Cart:    cart.Config{Pricing: cart.Pricing{ConvenienceFee: money.MustParse("5.00")}},
		Metrics: metrics.NewStorefrontMetrics(reg),
	})
	require.NoError(t, err)

	handler := NewRouter(cfg, nil, Deps{
		Gatherer:   reg,
		Movies:     catalog.Default(),
		Coupons:    coupons.Default(),
		Auth:       authSvc,
		Workspaces: registry,
		Orders:     orders,
	})
	return &testServer{handler: handler, t: t}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func (s *testServer) do(method, path, token string, body any) (int, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	s.handler.ServeHTTP(resp, req)

	var env envelope
	if resp.Body.Len() > 0 && resp.Header().Get("Content-Type") == "application/json" {
		require.NoError(s.t, json.Unmarshal(resp.Body.Bytes(), &env))
	}
	return resp.Code, env
}

func (s *testServer) openSession() string {
	s.t.Helper()
	status, env := s.do(http.MethodPost, "/api/v1/sessions", "", nil)
	require.Equal(s.t, http.StatusCreated, status)
	var out struct {
		SessionID string `json:"session_id"`
		Token     string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &out))
	require.NotEmpty(s.t, out.SessionID)
	require.NotEmpty(s.t, out.Token)
	return out.Token
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	status, env := srv.do(http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"live"}`, string(env.Data))

	status, _ = srv.do(http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	srv.handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestCatalogIsPublic(t *testing.T) {
	srv := newTestServer(t)

	status, env := srv.do(http.MethodGet, "/api/v1/movies?in_theater=true", "", nil)
	require.Equal(t, http.StatusOK, status)
	var movies []catalog.Movie
	require.NoError(t, json.Unmarshal(env.Data, &movies))
	require.NotEmpty(t, movies)
	for _, m := range movies {
		assert.True(t, m.InTheater)
	}

	status, _ = srv.do(http.MethodGet, "/api/v1/movies/9999", "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = srv.do(http.MethodGet, "/api/v1/coupons", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestCartRequiresSessionToken(t *testing.T) {
	srv := newTestServer(t)

	status, env := srv.do(http.MethodGet, "/api/v1/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_AUTHENTICATED", env.Error.Code)
}

func TestCartEndpoints(t *testing.T) {
	srv := newTestServer(t)
	token := srv.openSession()

	status, env := srv.do(http.MethodPost, "/api/v1/cart/items", token, map[string]any{"movie_id": 2, "quantity": 2})
	require.Equal(t, http.StatusCreated, status)
	var view struct {
		Items  []cart.LineItem `json:"items"`
		Totals struct {
			Subtotal string `json:"subtotal"`
			Discount string `json:"discount"`
			Total    string `json:"total"`
		} `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.Len(t, view.Items, 1)
	assert.Equal(t, "44", view.Totals.Subtotal)

	itemID := view.Items[0].ID

	status, env = srv.do(http.MethodPost, "/api/v1/cart/coupons", token, map[string]any{"code": "desconto10"})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, "4.4", view.Totals.Discount)

	status, env = srv.do(http.MethodPost, "/api/v1/cart/coupons", token, map[string]any{"code": "DESCONTO10"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "DUPLICATE_COUPON", env.Error.Code)

	status, env = srv.do(http.MethodPost, "/api/v1/cart/coupons", token, map[string]any{"code": "NOPE"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "INVALID_COUPON", env.Error.Code)

	status, _ = srv.do(http.MethodPatch, "/api/v1/cart/items/"+itemID, token, map[string]any{"quantity": 3})
	require.Equal(t, http.StatusOK, status)

	status, _ = srv.do(http.MethodDelete, "/api/v1/cart/items/unknown", token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = srv.do(http.MethodDelete, "/api/v1/cart/coupons/desconto10", token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, env = srv.do(http.MethodDelete, "/api/v1/cart", token, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Empty(t, view.Items)

	status, env = srv.do(http.MethodPost, "/api/v1/cart/items", token, map[string]any{"movie_id": 0})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
}

func TestSessionsDoNotShareCarts(t *testing.T) {
	srv := newTestServer(t)
	first := srv.openSession()
	second := srv.openSession()

	status, _ := srv.do(http.MethodPost, "/api/v1/cart/items", first, map[string]any{"movie_id": 1})
	require.Equal(t, http.StatusCreated, status)

	status, env := srv.do(http.MethodGet, "/api/v1/cart", second, nil)
	require.Equal(t, http.StatusOK, status)
	var view struct {
		Items []cart.LineItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Empty(t, view.Items)
}

func TestCheckoutRequiresLogin(t *testing.T) {
	srv := newTestServer(t)
	token := srv.openSession()

	status, _ := srv.do(http.MethodPost, "/api/v1/cart/items", token, map[string]any{"movie_id": 1})
	require.Equal(t, http.StatusCreated, status)

	status, env := srv.do(http.MethodPost, "/api/v1/checkout/start", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "NOT_AUTHENTICATED", env.Error.Code)

	status, _ = srv.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestFullPurchase(t *testing.T) {
	srv := newTestServer(t)
	token := srv.openSession()

	status, _ := srv.do(http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"name":             "Maria Silva",
		"email":            "maria@example.com",
		"password":         "secret1",
		"confirm_password": "secret1",
	})
	require.Equal(t, http.StatusCreated, status)

	status, _ = srv.do(http.MethodPost, "/api/v1/auth/login", token, map[string]any{
		"email":    "maria@example.com",
		"password": "secret1",
	})
	require.Equal(t, http.StatusOK, status)

	status, _ = srv.do(http.MethodPost, "/api/v1/checkout/start", token, nil)
	require.Equal(t, http.StatusUnprocessableEntity, status, "empty cart cannot start checkout")

	status, _ = srv.do(http.MethodPost, "/api/v1/cart/items", token, map[string]any{"movie_id": 1, "quantity": 2})
	require.Equal(t, http.StatusCreated, status)
	status, _ = srv.do(http.MethodPost, "/api/v1/cart/coupons", token, map[string]any{"code": "FRETE"})
	require.Equal(t, http.StatusOK, status)

	status, env := srv.do(http.MethodPost, "/api/v1/checkout/start", token, nil)
	require.Equal(t, http.StatusOK, status)
	var review struct {
		StepName string `json:"step_name"`
		Personal struct {
			FullName string `json:"full_name"`
			Email    string `json:"email"`
		} `json:"personal"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &review))
	assert.Equal(t, "personal_data", review.StepName)
	assert.Equal(t, "Maria Silva", review.Personal.FullName)

	status, env = srv.do(http.MethodPut, "/api/v1/checkout/payment", token, map[string]any{"method": "pix"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "STATE_CONFLICT", env.Error.Code)
	assert.Equal(t, "personal_data", env.Error.Details["current_step"])

	status, _ = srv.do(http.MethodPut, "/api/v1/checkout/personal", token, map[string]any{
		"full_name": "Maria Silva",
		"cpf":       "123.456.789-00",
		"email":     "maria@example.com",
		"phone":     "11999999999",
	})
	require.Equal(t, http.StatusOK, status)

	status, _ = srv.do(http.MethodPut, "/api/v1/checkout/payment", token, map[string]any{
		"method":      "credit",
		"card_number": "4111 1111 1111 1234",
		"card_expiry": "12/30",
		"card_cvv":    "123",
		"card_name":   "MARIA SILVA",
	})
	require.Equal(t, http.StatusOK, status)

	status, env = srv.do(http.MethodPost, "/api/v1/checkout/finalize", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "TERMS_NOT_ACCEPTED", env.Error.Code)

	status, _ = srv.do(http.MethodPut, "/api/v1/checkout/terms", token, map[string]any{"accepted": true})
	require.Equal(t, http.StatusOK, status)

	status, env = srv.do(http.MethodPost, "/api/v1/checkout/finalize", token, nil)
	require.Equal(t, http.StatusCreated, status)
	var order cart.OrderSnapshot
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, "************1234", order.Payment.Payment.CardNumber)
	assert.Empty(t, order.Payment.Payment.CardCVV)
	assert.True(t, order.Totals.ConvenienceFee.IsZero())
	assert.Equal(t, "60", order.Totals.Total.String())

	status, env = srv.do(http.MethodGet, "/api/v1/cart", token, nil)
	require.Equal(t, http.StatusOK, status)
	var view struct {
		Items []cart.LineItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Empty(t, view.Items)

	status, env = srv.do(http.MethodGet, "/api/v1/orders", token, nil)
	require.Equal(t, http.StatusOK, status)
	var page history.Page
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Orders, 1)
	assert.Equal(t, order.ID, page.Orders[0].ID)

	status, _ = srv.do(http.MethodGet, "/api/v1/orders/"+order.ID.String(), token, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = srv.do(http.MethodGet, "/api/v1/orders/"+uuid.NewString(), token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = srv.do(http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = srv.do(http.MethodGet, "/api/v1/orders", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestProfileAndFavorites(t *testing.T) {
	srv := newTestServer(t)
	token := srv.openSession()

	status, _ := srv.do(http.MethodPut, "/api/v1/auth/favorites/3", token, nil)
	require.Equal(t, http.StatusUnauthorized, status)

	status, _ = srv.do(http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"name":             "Rafa Lima",
		"email":            "rafa@example.com",
		"password":         "secret1",
		"confirm_password": "secret1",
	})
	require.Equal(t, http.StatusCreated, status)
	status, _ = srv.do(http.MethodPost, "/api/v1/auth/login", token, map[string]any{
		"email":    "rafa@example.com",
		"password": "secret1",
	})
	require.Equal(t, http.StatusOK, status)

	status, env := srv.do(http.MethodPatch, "/api/v1/auth/profile", token, map[string]any{
		"phone":       "21 97777-6666",
		"preferences": map[string]any{"genres": []string{"Ação"}, "newsletter": false},
	})
	require.Equal(t, http.StatusOK, status)
	var user struct {
		Name    string `json:"name"`
		Profile struct {
			Phone       string `json:"phone"`
			Preferences struct {
				Genres     []string `json:"genres"`
				Newsletter bool     `json:"newsletter"`
			} `json:"preferences"`
		} `json:"profile"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, "Rafa Lima", user.Name)
	assert.Equal(t, "21 97777-6666", user.Profile.Phone)
	assert.Equal(t, []string{"Ação"}, user.Profile.Preferences.Genres)
	assert.False(t, user.Profile.Preferences.Newsletter)

	status, env = srv.do(http.MethodPatch, "/api/v1/auth/profile", token, map[string]any{"birth_date": "31/12/1999"})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Error.Details, "birth_date")

	status, _ = srv.do(http.MethodPut, "/api/v1/auth/favorites/3", token, nil)
	assert.Equal(t, http.StatusCreated, status)
	status, _ = srv.do(http.MethodPut, "/api/v1/auth/favorites/3", token, nil)
	assert.Equal(t, http.StatusOK, status)
	status, env = srv.do(http.MethodPut, "/api/v1/auth/favorites/999", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	status, env = srv.do(http.MethodGet, "/api/v1/auth/favorites/3", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"movie_id":3,"favorite":true}`, string(env.Data))

	status, env = srv.do(http.MethodGet, "/api/v1/auth/favorites", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"movie_ids":[3]}`, string(env.Data))

	status, _ = srv.do(http.MethodDelete, "/api/v1/auth/favorites/3", token, nil)
	require.Equal(t, http.StatusOK, status)
	status, env = srv.do(http.MethodGet, "/api/v1/auth/favorites", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"movie_ids":[]}`, string(env.Data))
}

package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/cinepass/api/controllers"
	cartcontrollers "github.com/angelmondragon/cinepass/api/controllers/cart"
	checkoutcontrollers "github.com/angelmondragon/cinepass/api/controllers/checkout"
	ordercontrollers "github.com/angelmondragon/cinepass/api/controllers/orders"
	"github.com/angelmondragon/cinepass/api/middleware"
	"github.com/angelmondragon/cinepass/internal/catalog"
	"github.com/angelmondragon/cinepass/internal/coupons"
	"github.com/angelmondragon/cinepass/internal/storefront"
	"github.com/angelmondragon/cinepass/pkg/config"
	"github.com/angelmondragon/cinepass/pkg/logger"
)

// Deps is everything the HTTP surface is wired to. DB and Redis feed the
// readiness check; RateLimit may be nil, which disables auth throttling.
type Deps struct {
	DB         controllers.Pinger
	Redis      controllers.Pinger
	RateLimit  middleware.RateLimitStore
	Gatherer   prometheus.Gatherer
	Movies     *catalog.Static
	Coupons    *coupons.Catalog
	Auth       controllers.AuthService
	Workspaces storefront.Runner
	Orders     ordercontrollers.Repository
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy("login", cfg.RateLimit.Window, cfg.RateLimit.IPLimit, cfg.RateLimit.EmailLimit)
	registerPolicy := middleware.NewAuthRateLimitPolicy("register", cfg.RateLimit.Window, cfg.RateLimit.IPLimit, cfg.RateLimit.EmailLimit)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": deps.DB,
			"redis":    deps.Redis,
		}))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sessions", controllers.SessionCreate(cfg.JWT, logg))
		r.Get("/movies", controllers.MoviesList(deps.Movies, logg))
		r.Get("/movies/{movieID}", controllers.MovieGet(deps.Movies, logg))
		r.Get("/coupons", controllers.CouponsList(deps.Coupons))
		r.With(middleware.AuthRateLimit(registerPolicy, deps.RateLimit, logg)).
			Post("/auth/register", controllers.AuthRegister(deps.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(cfg.JWT, logg))

			r.Route("/auth", func(r chi.Router) {
				r.With(middleware.AuthRateLimit(loginPolicy, deps.RateLimit, logg)).
					Post("/login", controllers.AuthLogin(deps.Auth, logg))
				r.Post("/logout", controllers.AuthLogout(deps.Auth, logg))
				r.Get("/me", controllers.AuthMe(deps.Auth, logg))
				r.Put("/password", controllers.AuthChangePassword(deps.Auth, logg))
				r.Patch("/profile", controllers.AuthUpdateProfile(deps.Auth, logg))
				r.Get("/favorites", controllers.FavoritesList(deps.Auth, logg))
				r.Get("/favorites/{movieID}", controllers.FavoriteStatus(deps.Auth, logg))
				r.Put("/favorites/{movieID}", controllers.FavoriteAdd(deps.Auth, logg))
				r.Delete("/favorites/{movieID}", controllers.FavoriteRemove(deps.Auth, logg))
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.Fetch(deps.Workspaces, logg))
				r.Delete("/", cartcontrollers.Clear(deps.Workspaces, logg))
				r.Post("/items", cartcontrollers.AddItem(deps.Workspaces, logg))
				r.Patch("/items/{itemID}", cartcontrollers.UpdateQuantity(deps.Workspaces, logg))
				r.Delete("/items/{itemID}", cartcontrollers.RemoveItem(deps.Workspaces, logg))
				r.Post("/coupons", cartcontrollers.ApplyCoupon(deps.Workspaces, logg))
				r.Delete("/coupons/{code}", cartcontrollers.RemoveCoupon(deps.Workspaces, logg))
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Get("/", checkoutcontrollers.Review(deps.Workspaces, logg))
				r.Post("/start", checkoutcontrollers.Start(deps.Workspaces, logg))
				r.Put("/personal", checkoutcontrollers.SubmitPersonalData(deps.Workspaces, logg))
				r.Put("/payment", checkoutcontrollers.SubmitPayment(deps.Workspaces, logg))
				r.Post("/back", checkoutcontrollers.GoBack(deps.Workspaces, logg))
				r.Put("/terms", checkoutcontrollers.AcceptTerms(deps.Workspaces, logg))
				r.Post("/finalize", checkoutcontrollers.Finalize(deps.Workspaces, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.List(deps.Orders, deps.Auth, logg))
				r.Get("/{orderID}", ordercontrollers.Detail(deps.Orders, deps.Auth, logg))
			})
		})
	})

	return r
}

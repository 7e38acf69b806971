package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gamehub/gamehub-backend/api/controllers"
	"github.com/gamehub/gamehub-backend/api/middleware"
	"github.com/gamehub/gamehub-backend/internal/auth"
	"github.com/gamehub/gamehub-backend/internal/cart"
	"github.com/gamehub/gamehub-backend/internal/catalog"
	"github.com/gamehub/gamehub-backend/internal/games"
	"github.com/gamehub/gamehub-backend/internal/registrations"
	"github.com/gamehub/gamehub-backend/pkg/auth/session"
	"github.com/gamehub/gamehub-backend/pkg/config"
	"github.com/gamehub/gamehub-backend/pkg/logger"
	"github.com/gamehub/gamehub-backend/pkg/qr"
	pkgredis "github.com/gamehub/gamehub-backend/pkg/redis"
)

// RedisStore is the slice of the redis client the HTTP layer needs.
type RedisStore interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
	Ping(ctx context.Context) error
}

// Dependencies carries everything cmd/api wires into the router.
type Dependencies struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            controllers.Pinger
	Redis         RedisStore
	Sessions      session.AccessSessionChecker
	Auth          auth.Service
	Games         games.Service
	Catalog       catalog.Service
	Cart          cart.Service
	Registrations registrations.Service
	QR            qr.Generator
	Gatherer      prometheus.Gatherer
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	gatewayLimit := middleware.GatewayRateLimit(middleware.NewGatewayLimiter(cfg.GatewayRateLimit), logg)

	var rateStore middleware.RateLimiterStore
	var idemStore pkgredis.IdempotencyStore
	var redisPinger controllers.Pinger
	if deps.Redis != nil {
		rateStore = deps.Redis
		idemStore = deps.Redis
		redisPinger = deps.Redis
	}
	authenticate := middleware.Auth(cfg.JWT, deps.Sessions, deps.Auth, logg)
	idempotent := middleware.Idempotency(idemStore, middleware.DefaultIdempotencyTTL, logg)
	paymentIdempotent := middleware.Idempotency(idemStore, middleware.PaymentIdempotencyTTL, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{
			"database": deps.DB,
			"redis":    redisPinger,
		}, logg))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, rateStore, logg), idempotent).Post("/register", controllers.AuthRegister(deps.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, rateStore, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(deps.Auth, logg))
	})

	r.Route("/api/v1/games", func(r chi.Router) {
		r.Get("/", controllers.GamesList(deps.Games, logg))
		r.Get("/{gameId}", controllers.GameGet(deps.Games, logg))
	})
	r.Get("/api/v1/developers", controllers.DevelopersList(deps.Catalog, true, logg))
	r.Get("/api/v1/categories", controllers.CategoriesList(deps.Catalog, true, logg))

	r.With(gatewayLimit).Get("/api/v1/payments/vnpay/return", controllers.VNPayReturn(deps.Registrations, logg))
	r.With(gatewayLimit).Get("/api/v1/webhooks/vnpay/ipn", controllers.VNPayIPN(deps.Registrations, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authenticate)

		r.Route("/profile", func(r chi.Router) {
			r.Get("/", controllers.ProfileGet(deps.Auth, logg))
			r.With(middleware.RequirePlayer(logg)).Put("/", controllers.ProfileUpdate(deps.Auth, logg))
			r.Post("/password", controllers.ProfileChangePassword(deps.Auth, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.RequirePlayer(logg))
			r.Get("/", controllers.CartGet(deps.Cart, logg))
			r.Delete("/", controllers.CartClear(deps.Cart, logg))
			r.Get("/items/{gameId}", controllers.CartHasItem(deps.Cart, logg))
			r.Post("/items/{gameId}", controllers.CartAddItem(deps.Cart, logg))
			r.Delete("/items/{gameId}", controllers.CartRemoveItem(deps.Cart, logg))
		})

		r.Route("/registrations", func(r chi.Router) {
			r.With(middleware.RequirePlayer(logg), paymentIdempotent).Post("/", controllers.RegistrationCreate(deps.Registrations, logg))
			r.Get("/", controllers.RegistrationsList(deps.Registrations, logg))
			r.Get("/{registrationId}", controllers.RegistrationGet(deps.Registrations, logg))
			r.Get("/{registrationId}/payment", controllers.RegistrationPaymentLink(deps.Registrations, logg))
			r.Get("/{registrationId}/payment-qr", controllers.RegistrationPaymentQR(deps.Registrations, deps.QR, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(middleware.RequireAdmin(logg))

		r.Post("/games", controllers.AdminGameCreate(deps.Games, logg))
		r.Put("/games/{gameId}", controllers.AdminGameUpdate(deps.Games, logg))
		r.Delete("/games/{gameId}", controllers.AdminGameDelete(deps.Games, logg))
		r.Patch("/games/{gameId}/price", controllers.AdminGameUpdatePrice(deps.Games, logg))

		r.Route("/developers", func(r chi.Router) {
			r.Get("/", controllers.DevelopersList(deps.Catalog, false, logg))
			r.Post("/", controllers.AdminDeveloperCreate(deps.Catalog, logg))
			r.Get("/{developerId}", controllers.AdminDeveloperGet(deps.Catalog, logg))
			r.Put("/{developerId}", controllers.AdminDeveloperUpdate(deps.Catalog, logg))
			r.Delete("/{developerId}", controllers.AdminDeveloperDelete(deps.Catalog, logg))
		})
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", controllers.CategoriesList(deps.Catalog, false, logg))
			r.Post("/", controllers.AdminCategoryCreate(deps.Catalog, logg))
			r.Get("/{categoryId}", controllers.AdminCategoryGet(deps.Catalog, logg))
			r.Put("/{categoryId}", controllers.AdminCategoryUpdate(deps.Catalog, logg))
			r.Delete("/{categoryId}", controllers.AdminCategoryDelete(deps.Catalog, logg))
		})

		r.Get("/registrations", controllers.RegistrationsList(deps.Registrations, logg))
		r.With(idempotent).Post("/registrations/{registrationId}/toggle", controllers.AdminRegistrationToggle(deps.Registrations, logg))
	})

	return r
}

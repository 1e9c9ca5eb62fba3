package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/forgeharbor/auth-go/docs"
	"github.com/forgeharbor/auth-go/internal/api/auth"
	"github.com/forgeharbor/auth-go/internal/api/gate"
	"github.com/forgeharbor/auth-go/internal/api/health"
	"github.com/forgeharbor/auth-go/internal/api/response"
	"github.com/forgeharbor/auth-go/internal/logger"
	"github.com/forgeharbor/auth-go/internal/metrics"
	"github.com/forgeharbor/auth-go/internal/token"
)

// Deps is everything the issuing service's router needs. It is assembled in
// cmd/api.
type Deps struct {
	Log            zerolog.Logger
	Metrics        *metrics.Metrics
	AllowedOrigins []string
	Auth           *auth.AuthHandler
	Gate           *gate.Gate
	DB             health.Pinger
}

// RelyingPartyDeps is the relying service's router input. It holds no
// signing material and no store.
type RelyingPartyDeps struct {
	Log            zerolog.Logger
	Metrics        *metrics.Metrics
	AllowedOrigins []string
	Gate           *gate.Gate
}

func SetupRoutes(d Deps) http.Handler {
	r := newRouter(d.Log, d.AllowedOrigins)

	r.Get("/health", health.HealthHandler)
	r.Get("/health/ready", health.ReadinessHandler(d.DB, d.Log))
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	// public auth routes
	r.Post("/auth/signup", d.Auth.Signup)
	r.Post("/auth/login", d.Auth.Login)
	r.Get("/auth/jwks", d.Auth.JWKS)

	// protected auth routes
	r.Get("/auth/me", d.Gate.Protect(d.Auth.Me))

	// init swagger
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs/index.html", http.StatusMovedPermanently)
	})
	r.Get("/docs/*", httpSwagger.WrapHandler)

	return r
}

func SetupRelyingPartyRoutes(d RelyingPartyDeps) http.Handler {
	r := newRouter(d.Log, d.AllowedOrigins)

	r.Get("/health", health.HealthHandler)
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	r.Get("/api/whoami", d.Gate.Protect(whoAmI))

	return r
}

func newRouter(log zerolog.Logger, origins []string) chi.Router {
	r := chi.NewRouter()

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"WWW-Authenticate"},
		AllowCredentials: false,
		MaxAge:           300, // max time in seconds for OPTIONS preflight response cache
	})

	r.Use(corsMiddleware.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Timeout(30 * time.Second))

	return r
}

func whoAmI(w http.ResponseWriter, r *http.Request, p token.Principal) {
	response.JSON(w, http.StatusOK, auth.MeResponse{
		UserID: p.UserID,
		Email:  p.Email,
	})
}

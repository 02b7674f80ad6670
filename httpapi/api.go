// Package httpapi exposes the auth engine over HTTP with a chi router.
package httpapi

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	youlyauth "github.com/am-IRh/youly-auth"
)

// Config configures the HTTP API.
type Config struct {
	// AllowedOrigins is passed to the CORS middleware. Empty allows none.
	AllowedOrigins []string
	// Logger receives request-scope logs. Required.
	Logger *zap.Logger
}

// API wires the engine's operations onto HTTP routes.
type API struct {
	engine   *youlyauth.Engine
	logger   *zap.Logger
	validate *validator.Validate
	origins  []string
}

// New returns an API serving the given engine.
func New(engine *youlyauth.Engine, cfg Config) *API {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &API{
		engine:   engine,
		logger:   logger,
		validate: validator.New(),
		origins:  cfg.AllowedOrigins,
	}
}

// Router builds the route tree:
//
//	POST /auth/register/send-otp
//	POST /auth/register/verify
//	POST /auth/login
//	POST /auth/refresh
//	POST /auth/logout
//	POST /auth/forgot-password/send-otp
//	POST /auth/forgot-password/verify-otp
//	POST /auth/reset-password
func (a *API) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(a.withClientIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register/send-otp", a.handleRegisterSendOTP)
		r.Post("/register/verify", a.handleRegisterVerify)
		r.Post("/login", a.handleLogin)
		r.Post("/refresh", a.handleRefresh)
		r.Post("/logout", a.handleLogout)
		r.Post("/forgot-password/send-otp", a.handleForgotSendOTP)
		r.Post("/forgot-password/verify-otp", a.handleForgotVerifyOTP)
		r.Post("/reset-password", a.handleResetPassword)
	})

	return r
}

// withClientIP copies the remote address into the request context so the
// engine's audit events carry it.
func (a *API) withClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		next.ServeHTTP(w, r.WithContext(youlyauth.WithClientIP(r.Context(), ip)))
	})
}

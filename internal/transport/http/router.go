package http

import (
	"context"
	"net/http"

	"github.com/go-auth-otp/internal/application/auth"
	"github.com/go-auth-otp/internal/application/user"
	"github.com/go-auth-otp/internal/config"
	"github.com/go-auth-otp/internal/transport/http/handler"
	appmiddleware "github.com/go-auth-otp/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router. ctx bounds the
// lifetime of background helpers such as the rate limiter cleanup.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10, applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(5), 10)

	authSvc := auth.NewService(auth.ServiceDeps{
		UserRepo:   deps.UserRepo,
		Hasher:     deps.Hasher,
		CodeStore:  deps.CodeStore,
		Tokens:     deps.JWTProvider,
		CodeSender: deps.CodeSender,
		CodeTTL:    cfg.DynamicCode.TTL,
	})
	userSvc := user.NewService(user.ServiceDeps{
		UserRepo: deps.UserRepo,
		Hasher:   deps.Hasher,
	})

	healthH := handler.NewHealthHandler(deps.HealthChecks)
	authH := handler.NewAuthHandler(authSvc, handler.CookieConfig{
		Secure: cfg.CookieSecure,
		MaxAge: cfg.JWT.SessionExpiry,
	})
	userH := handler.NewUserHandler(userSvc)
	authMw := appmiddleware.Auth(authSvc)

	r.Route("/v1", func(r chi.Router) {
		// Public routes
		r.Get("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/auth/create", userH.Register)
		r.With(sensitiveRL.Limit).Post("/auth/login", authH.Login)
		r.With(sensitiveRL.Limit).Post("/auth/login/dynamic-code", authH.VerifyDynamicCode)
		r.Post("/auth/logout", authH.Logout)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/auth/identity", authH.Identity)
			r.Get("/users/{id}", userH.Get)
			r.With(appmiddleware.RequireSelf("id")).Put("/users/{id}/phone-number", userH.UpdatePhoneNumber)
		})
	})

	return r
}

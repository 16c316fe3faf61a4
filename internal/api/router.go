package api

import (
	"context"
	"net/http"

	"github.com/Togather-Foundation/serendipity/internal/api/handlers"
	"github.com/Togather-Foundation/serendipity/internal/api/middleware"
	"github.com/Togather-Foundation/serendipity/internal/auth"
	"github.com/Togather-Foundation/serendipity/internal/config"
	"github.com/Togather-Foundation/serendipity/internal/domain/events"
	"github.com/Togather-Foundation/serendipity/internal/domain/users"
	"github.com/Togather-Foundation/serendipity/internal/metrics"
	"github.com/Togather-Foundation/serendipity/internal/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// NewRouter wires services, handlers and the middleware pipeline on top of
// store. Background work started here (rate limiter cleanup) stops with ctx.
func NewRouter(ctx context.Context, cfg config.Config, logger zerolog.Logger, store storage.Store, build BuildInfo) http.Handler {
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Auth.JWTIssuer)

	userService := users.NewService(store.Users(), hasher, logger)
	eventService := events.NewService(store.Events(), logger)

	authHandler := handlers.NewAuthHandler(userService, tokens, cfg.Environment)
	usersHandler := handlers.NewUsersHandler(userService, eventService, cfg.Environment)
	eventsHandler := handlers.NewEventsHandler(eventService, cfg.Environment)
	health := handlers.NewHealthChecker(store, cfg.Store.Driver, build.Version, build.GitCommit)

	limit := middleware.RateLimit(ctx, cfg.RateLimit, cfg.Environment)
	authTier := middleware.WithRateLimitTierHandler(middleware.TierAuth)
	authenticate := middleware.Authenticate(tokens, userService, cfg.Environment)
	bodyLimit := middleware.RequestSize(middleware.DefaultMaxBodySize)

	// credentials: open routes in the auth rate-limit tier.
	credentials := func(h http.HandlerFunc) http.Handler {
		return authTier(limit(bodyLimit(h)))
	}
	protected := func(h http.HandlerFunc) http.Handler {
		return limit(authenticate(h))
	}
	protectedBody := func(h http.HandlerFunc) http.Handler {
		return limit(authenticate(bodyLimit(h)))
	}

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", health.Healthz())
	mux.Handle("GET /readyz", health.Readyz())
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.Handle("GET /version", VersionHandler(build))

	mux.Handle("POST /api/signup", credentials(authHandler.Signup))
	mux.Handle("POST /api/login", credentials(authHandler.Login))

	mux.Handle("GET /api/profile", protected(usersHandler.Profile))
	mux.Handle("PUT /api/profile/bio", protectedBody(usersHandler.UpdateBio))
	mux.Handle("PUT /api/profile/interests", protectedBody(usersHandler.UpdateInterests))
	mux.Handle("GET /api/user/events", protected(usersHandler.Attending))
	mux.Handle("GET /api/user/hosting", protected(usersHandler.Hosting))
	mux.Handle("GET /api/user/{id}", protected(usersHandler.Get))

	mux.Handle("GET /api/events", protected(eventsHandler.List))
	mux.Handle("GET /api/events/all", protected(eventsHandler.All))
	mux.Handle("GET /api/events/categories", protected(eventsHandler.Categories))
	mux.Handle("GET /api/events/category/{name}", protected(eventsHandler.ByCategory))
	mux.Handle("POST /api/events", protectedBody(eventsHandler.Create))
	mux.Handle("POST /api/events/create", protectedBody(eventsHandler.Create))
	mux.Handle("GET /api/events/{id}", protected(eventsHandler.Get))
	mux.Handle("PUT /api/events/{id}", protectedBody(eventsHandler.Update))
	mux.Handle("POST /api/events/{id}/rsvp", protected(eventsHandler.Join))
	mux.Handle("DELETE /api/events/{id}/rsvp", protected(eventsHandler.Leave))

	// Tracing and metrics sit directly on the mux so both see r.Pattern.
	var handler http.Handler = metrics.HTTPMiddleware(mux)
	handler = middleware.Tracing(handler)
	handler = middleware.Preflight(handler)
	handler = middleware.CORS(cfg.CORS, logger)(handler)
	handler = middleware.SecurityHeaders(cfg.Environment == "production")(handler)
	handler = middleware.Recover(cfg.Environment)(handler)
	handler = middleware.RequestLogging(logger)(handler)
	handler = middleware.CorrelationID(logger)(handler)
	return handler
}

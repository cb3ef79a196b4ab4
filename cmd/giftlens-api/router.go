// Package main provides the API router setup.
package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/giftlens/giftlens/cmd/giftlens-api/handlers"
	"github.com/giftlens/giftlens/cmd/giftlens-api/middleware"
	"github.com/giftlens/giftlens/internal/app"
	"github.com/giftlens/giftlens/internal/observability"
	"github.com/giftlens/giftlens/internal/shopping"
)

// retryAfter is advertised to clients while startup is in progress.
const retryAfter = 5 * time.Second

// RouterConfig holds HTTP-level settings.
type RouterConfig struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	// RateLimit is requests per minute per client IP on text-generation
	// routes. Zero disables limiting.
	RateLimit int
}

// Services are the components behind the routes.
type Services struct {
	Recommender handlers.Recommender
	Notes       handlers.NoteWriter
	Health      handlers.HealthReporter
	Ready       middleware.ReadinessChecker
	Shopping    *shopping.Store
	Metrics     *observability.Metrics // nil disables /metrics
}

// ServicesFromApp adapts the wired application to the router.
func ServicesFromApp(a *app.App) Services {
	return Services{
		Recommender: a,
		Notes:       a.Notes,
		Health:      a,
		Ready:       a.State,
		Shopping:    a.Shopping,
		Metrics:     a.Metrics,
	}
}

// NewRouter creates the main API router with all routes configured.
func NewRouter(logger *observability.Logger, cfg RouterConfig, svc Services) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	if cfg.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	}

	healthHandler := handlers.NewHealthHandler(logger, svc.Health)
	recommendHandler := handlers.NewRecommendHandler(logger, svc.Recommender)
	notesHandler := handlers.NewNotesHandler(logger, svc.Notes)
	shoppingHandler := handlers.NewShoppingHandler(logger, svc.Shopping)

	// Health answers during startup too.
	r.Get("/health", healthHandler.Health)
	r.Get("/api/health", healthHandler.Health)

	if svc.Metrics != nil {
		r.Handle("/metrics", svc.Metrics.Handler())
	}

	// Text-generation routes
	r.Group(func(r chi.Router) {
		if cfg.RateLimit > 0 {
			r.Use(httprate.LimitByIP(cfg.RateLimit, time.Minute))
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireReady(svc.Ready, retryAfter))
			r.Post("/recommend", recommendHandler.Recommend)
			r.Post("/api/ai-recommendations", recommendHandler.Recommend)
		})

		r.Post("/greeting-card", notesHandler.GreetingCard)
		r.Post("/api/greeting-card", notesHandler.GreetingCard)
		r.Post("/thank-you", notesHandler.ThankYou)
		r.Post("/api/thank-you", notesHandler.ThankYou)
	})

	// Wishlist and cart routes
	r.Post("/wishlist/{userID}", shoppingHandler.AddToWishlist)
	r.Get("/wishlist/{userID}", shoppingHandler.Wishlist)
	r.Post("/cart/{userID}", shoppingHandler.AddToCart)
	r.Get("/cart/{userID}", shoppingHandler.Cart)

	return r
}

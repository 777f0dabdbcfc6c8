package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/edielopx/FreelanceHub-sub001/internal/auth"
	"github.com/edielopx/FreelanceHub-sub001/internal/middleware"
)

// Router holds all handlers and creates the chi router
type Router struct {
	authHandler     *AuthHandler
	messageHandler  *MessageHandler
	realtimeHandler *RealtimeHandler
	healthHandler   *HealthHandler
	jwtManager      *auth.JWTManager
	logger          *zap.Logger
}

// NewRouter creates a new router
func NewRouter(
	authHandler *AuthHandler,
	messageHandler *MessageHandler,
	realtimeHandler *RealtimeHandler,
	healthHandler *HealthHandler,
	jwtManager *auth.JWTManager,
	logger *zap.Logger,
) *Router {
	return &Router{
		authHandler:     authHandler,
		messageHandler:  messageHandler,
		realtimeHandler: realtimeHandler,
		healthHandler:   healthHandler,
		jwtManager:      jwtManager,
		logger:          logger,
	}
}

// Setup configures and returns the chi router
func (rt *Router) Setup() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RecoveryMiddleware(rt.logger))
	r.Use(middleware.LoggingMiddleware(rt.logger))
	r.Use(middleware.CORSMiddleware())
	r.Use(chimiddleware.Compress(5))

	// Health endpoints (no auth required)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", rt.healthHandler.Health)
		r.Get("/ready", rt.healthHandler.Ready)
		r.Get("/live", rt.healthHandler.Live)
	})

	r.Handle("/metrics", promhttp.Handler())

	// Realtime channel; identity is bound in-band via the auth handshake
	r.Get("/ws", rt.realtimeHandler.ServeWS)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", rt.authHandler.Register)
			r.Post("/login", rt.authHandler.Login)
			r.Post("/refresh", rt.authHandler.Refresh)
			r.Post("/logout", rt.authHandler.Logout)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(rt.jwtManager))

			r.Get("/me", rt.authHandler.Me)
			r.Post("/auth/logout-all", rt.authHandler.LogoutAll)

			r.Post("/messages", rt.messageHandler.Send)
			r.Get("/messages/{userId}", rt.messageHandler.GetConversation)
		})
	})

	return r
}

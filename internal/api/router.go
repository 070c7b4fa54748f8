package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomasz-karas/parkgate-core/internal/auth"
)

// buildRouter constructs the chi router with all middleware and routes.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware, outermost first.
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints.
		r.Get("/health", s.handleHealth)
		r.With(s.rateLimitLoginMiddleware).Post("/auth/login", s.handleLogin)

		// Everything below requires a valid bearer token.
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/auth/logout", s.handleLogout)
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			r.Route("/cards", func(r chi.Router) {
				r.Get("/", s.handleListCards)
				r.Get("/recent-unknown", s.handleRecentUnknownCards)
				r.With(s.requireRole(auth.RoleOperator)).Post("/", s.handleCreateCard)
				r.With(s.requireRole(auth.RoleOperator)).Post("/sync", s.handleSyncWhitelist)

				r.Route("/{uid}", func(r chi.Router) {
					r.Get("/", s.handleGetCard)
					r.Get("/history", s.handleCardHistory)
					r.With(s.requireRole(auth.RoleOperator)).Put("/", s.handleUpdateCard)
					r.With(s.requireRole(auth.RoleOperator)).Delete("/", s.handleDeleteCard)
				})
			})

			r.Route("/slots", func(r chi.Router) {
				r.Get("/", s.handleListSlots)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetSlot)
					r.Get("/history", s.handleSlotHistory)
					r.With(s.requireRole(auth.RoleOperator)).Post("/release", s.handleReleaseSlot)
				})
			})

			r.Route("/logs", func(r chi.Router) {
				r.Get("/", s.handleListLogs)
				r.Get("/recent", s.handleRecentLogs)
				r.Get("/export", s.handleExportLogs)
			})

			r.Route("/stats", func(r chi.Router) {
				r.Get("/", s.handleDashboardStats)
				r.Get("/peak-hours", s.handlePeakHours)
				r.Get("/occupancy-trend", s.handleOccupancyTrend)
			})

			r.Route("/settings/pricing", func(r chi.Router) {
				r.Get("/", s.handleGetPricing)
				r.With(s.requireRole(auth.RoleAdmin)).Put("/", s.handleUpdatePricing)
			})

			r.Route("/commands", func(r chi.Router) {
				r.Get("/mqtt-status", s.handleMQTTStatus)
				r.With(s.requireRole(auth.RoleOperator)).Post("/open-barrier", s.handleOpenBarrier)
				r.With(s.requireRole(auth.RoleOperator)).Post("/refresh-status", s.handleRefreshStatus)
				r.With(s.requireRole(auth.RoleOperator)).Post("/scan-mode", s.handleScanMode)
				r.With(s.requireRole(auth.RoleAdmin)).Post("/emergency", s.handleEmergency)
			})

			r.Get("/events", s.handleListEvents)
		})
	})

	// The WebSocket feed authenticates itself with a single-use ticket.
	wsPath := s.wsCfg.Path
	if wsPath == "" {
		wsPath = "/ws"
	}
	r.Get(wsPath, s.handleWebSocket)

	return r
}

// handleHealth returns a basic health status. Public, used by load balancers
// and the dashboard's connectivity indicator.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/civicgrid/grievance-engine/internal/api/http/handlers"
	"github.com/civicgrid/grievance-engine/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Reports        *handlers.ReportsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Only login and the health probes are
// public; the dashboard endpoints require an admin bearer token.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)

	api := app.Group("/api", cfg.AuthMiddleware.Handle)
	api.Get("/stats", cfg.Reports.Stats)
	api.Get("/filters", cfg.Reports.Filters)
	api.Get("/works", cfg.Reports.Works)
	api.Get("/locations", cfg.Reports.Locations)
}

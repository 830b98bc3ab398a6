package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ticketops/ticket-notifier/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health *handlers.HealthHandler
	Notify *handlers.NotifyHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	notifications := app.Group("/notifications")
	notifications.Post("/ticket-event", cfg.Notify.SendTicketEvent)
	notifications.Post("/sweep", cfg.Notify.TriggerSweep)
}

package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticketmanager/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Tickets *handlers.TicketsHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	tickets := app.Group("/tickets")
	tickets.Get("", cfg.Tickets.SearchTickets)
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("/open", cfg.Tickets.ListOpen)
	tickets.Post("/mass-close", cfg.Tickets.MassClose)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Post("/:id/close", cfg.Tickets.CloseTicket)
	tickets.Post("/:id/reopen", cfg.Tickets.ReopenTicket)
	tickets.Put("/:id/assignment", cfg.Tickets.UpdateAssignment)
	tickets.Put("/:id/priority", cfg.Tickets.UpdatePriority)

	actors := app.Group("/actors/:key")
	actors.Get("/tickets", cfg.Tickets.ListActorTickets)
	actors.Get("/unread", cfg.Tickets.ListActorUnread)
}

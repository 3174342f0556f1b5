package routes

import (
	"github.com/anjiri1684/driving_school/handlers"
	"github.com/gofiber/fiber/v2"
)

// Setup mounts every route group on app.
func Setup(app *fiber.App, h *handlers.Handler) {
	app.Get("/health", h.Health)

	PublicRoutes(app, h)
	AuthRoutes(app, h)
	BookingRoutes(app, h)
	InstructorRoutes(app, h)
	AdminRoutes(app, h)
	WebsocketRoutes(app, h)
}

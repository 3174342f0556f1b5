package routes

import (
	"github.com/anjiri1684/driving_school/handlers"
	"github.com/anjiri1684/driving_school/middleware"
	"github.com/gofiber/fiber/v2"
)

func AdminRoutes(app *fiber.App, h *handlers.Handler) {
	api := app.Group("/api/v1")

	admin := api.Group("/admin", middleware.Protected(h.JWTSecret), middleware.AdminRequired())

	instructors := admin.Group("/instructors")
	instructors.Post("", h.CreateInstructor)
	instructors.Put("/:id/verify", h.VerifyInstructor)
	instructors.Put("/:id/availability", h.SetInstructorAvailability)

	admin.Post("/bookings/:id/complete", h.CompleteBooking)
}

package routes

import (
	"github.com/anjiri1684/driving_school/handlers"
	"github.com/anjiri1684/driving_school/middleware"
	"github.com/gofiber/fiber/v2"
)

// InstructorRoutes guards each route rather than the group: a group guard on
// /instructor would also catch the public /instructors paths.
func InstructorRoutes(app *fiber.App, h *handlers.Handler) {
	api := app.Group("/api/v1")
	auth := middleware.Protected(h.JWTSecret)
	role := middleware.InstructorRequired()

	instructor := api.Group("/instructor")
	instructor.Get("/bookings", auth, role, h.GetInstructorBookings)
	instructor.Post("/bookings/:id/cancel", auth, role, h.CancelBooking)
	instructor.Put("/profile", auth, role, h.UpdateInstructorProfile)
	instructor.Post("/blocked-slots", auth, role, h.BlockSlot)
	instructor.Delete("/blocked-slots", auth, role, h.UnblockSlot)
	instructor.Get("/upload-signature", auth, role, h.UploadSignature)
}

package routes

import (
	"github.com/anjiri1684/driving_school/handlers"
	"github.com/anjiri1684/driving_school/middleware"
	"github.com/gofiber/fiber/v2"
)

func BookingRoutes(app *fiber.App, h *handlers.Handler) {
	api := app.Group("/api/v1")

	flow := api.Group("/booking-flow", middleware.Protected(h.JWTSecret), middleware.StudentRequired())
	flow.Post("", h.StartBookingFlow)
	flow.Get("/:id", h.GetBookingFlow)
	flow.Post("/:id/slot", h.SelectFlowSlot)
	flow.Get("/:id/instructors", h.SearchFlowInstructors)
	flow.Get("/:id/instructors/:instructorId", h.FlowInstructorDetails)
	flow.Post("/:id/instructor", h.SelectFlowInstructor)
	flow.Post("/:id/checkout", h.CheckoutFlow)
	flow.Post("/:id/back", h.BackFlow)
	flow.Delete("/:id", h.ExitFlow)

	booking := api.Group("/bookings", middleware.Protected(h.JWTSecret))
	booking.Get("/me", h.GetMyBookings)
	booking.Post("/:id/cancel", middleware.StudentRequired(), h.CancelBooking)

	dashboard := api.Group("/dashboard", middleware.Protected(h.JWTSecret), middleware.StudentRequired())
	dashboard.Get("/learning-path", h.GetLearningPath)
}

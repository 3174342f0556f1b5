package routes

import (
	"github.com/anjiri1684/driving_school/handlers"
	"github.com/gofiber/fiber/v2"
)

func PublicRoutes(app *fiber.App, h *handlers.Handler) {
	api := app.Group("/api/v1")

	api.Get("/slots", h.ListSlots)

	instructors := api.Group("/instructors")
	instructors.Get("/available", h.AvailableInstructors)
	instructors.Get("/:id", h.GetInstructor)
	instructors.Get("/:id/quote", h.QuoteLesson)
}

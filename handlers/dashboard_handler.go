package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// GetLearningPath always answers 200; when the content provider is down the
// payload says available=false and the lesson counts are still filled in.
func (h *Handler) GetLearningPath(c *fiber.Ctx) error {
	studentID, _, err := caller(c)
	if err != nil {
		return err
	}
	path, err := h.LearningPath.ForStudent(c.UserContext(), studentID, c.Query("goal"))
	if err != nil {
		return err
	}
	return ok(c, path)
}

package controllers

import "github.com/gofiber/fiber/v2"

// GET /api/dashboard/stats
func (h *Handler) DashboardStats(c *fiber.Ctx) error {
	stats, err := h.Dashboard.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

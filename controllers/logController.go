package controllers

import (
	"boostpanel-backend/services"
	"boostpanel-backend/utils"

	"github.com/gofiber/fiber/v2"
)

// GET /api/logs
func (h *Handler) ListLogs(c *fiber.Ctx) error {
	logs, total, err := h.Logs.List(c.UserContext(), services.LogFilter{
		Type:    c.Query("type"),
		OrderID: c.Query("orderId"),
		Limit:   utils.ParseIntDefault(c.Query("limit"), 50),
		Offset:  utils.ParseIntDefault(c.Query("offset"), 0),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"logs": logs, "total": total})
}

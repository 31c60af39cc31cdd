package controllers

import (
	"boostpanel-backend/middlewares"

	"github.com/gofiber/fiber/v2"
)

type LoginDTO struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

// POST /api/admin/login
func (h *Handler) Login(c *fiber.Ctx) error {
	var in LoginDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}

	admin, err := h.Auth.Login(c.UserContext(), in.Username, in.Password)
	if err != nil {
		return err
	}

	token, exp, err := h.Guard.Issue(admin)
	if err != nil {
		return err
	}
	h.Guard.SetCookie(c, token, exp)

	return c.JSON(fiber.Map{
		"message":   "success",
		"expiresAt": exp,
		"admin": fiber.Map{
			"id":       admin.ID,
			"username": admin.Username,
			"role":     admin.Role,
		},
	})
}

// POST /api/admin/logout
func (h *Handler) Logout(c *fiber.Ctx) error {
	h.Guard.ClearCookie(c)
	return c.JSON(fiber.Map{
		"message": "success",
	})
}

// GET /api/admin/me
func (h *Handler) Me(c *fiber.Ctx) error {
	claims := middlewares.AdminFrom(c)
	if claims == nil {
		return fiber.NewError(fiber.StatusUnauthorized, "not authenticated")
	}
	// The token outlives a deactivation; the account row is authoritative.
	admin, err := h.Auth.Get(c.UserContext(), claims.AdminID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"id":       admin.ID,
		"username": admin.Username,
		"role":     admin.Role,
	})
}

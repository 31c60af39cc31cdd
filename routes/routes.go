package routes

import (
	"boostpanel-backend/controllers"
	"boostpanel-backend/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Register wires all HTTP routes.
func Register(app *fiber.App, h *controllers.Handler, db *gorm.DB, log zerolog.Logger) {
	api := app.Group("/api")
	admin := h.Guard.RequireAdmin()
	tx := middlewares.RequestTx(db, log)

	// Admin session
	api.Post("/admin/login", h.Login)
	api.Post("/admin/logout", h.Logout)
	api.Get("/admin/me", admin, h.Me)

	// Public redemption path. Idempotency is claimed outside any request
	// transaction, and the order flow manages its own.
	api.Get("/services", h.ListActiveServices)
	api.Post("/validate-key", h.ValidateKey)
	api.Post("/orders", middlewares.Idempotency(db, log), h.CreateOrder)
	api.Get("/orders/search/:orderId", h.SearchOrder)

	// Keys
	keys := api.Group("/keys", admin)
	keys.Get("/", h.ListKeys)
	keys.Get("/stats", h.KeyStats)
	keys.Post("/", tx, h.CreateKey)
	keys.Post("/generate", tx, h.GenerateKeys)
	keys.Delete("/:id", tx, h.DeleteKey)

	// Services (admin)
	catalog := api.Group("/services", admin)
	catalog.Get("/all", h.ListServices)
	catalog.Post("/bulk", h.BulkCreateServices) // one transaction per batch
	catalog.Get("/:id", h.GetService)
	catalog.Post("/", h.CreateService)
	catalog.Put("/:id", h.UpdateService)
	catalog.Delete("/:id", h.DeleteService)

	// Audit + dashboard
	api.Get("/logs", admin, h.ListLogs)
	api.Get("/dashboard/stats", admin, h.DashboardStats)
}

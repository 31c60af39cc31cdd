package database

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// TxLocal is the c.Locals key under which middlewares.RequestTx stores the
// per-request transaction.
const TxLocal = "tx"

// Conn returns the per-request transaction when one is open, else fallback.
func Conn(c *fiber.Ctx, fallback *gorm.DB) *gorm.DB {
	if v := c.Locals(TxLocal); v != nil {
		if tx, ok := v.(*gorm.DB); ok && tx != nil {
			return tx
		}
	}
	return fallback
}

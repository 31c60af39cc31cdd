package middlewares

import (
	"boostpanel-backend/database"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// RequestTx runs the rest of the handler chain inside one DB transaction,
// reachable through database.Conn(c, ...). It commits when the chain returns
// nil and rolls back on error or panic. Never mount it on routes that call
// the provider API.
func RequestTx(db *gorm.DB, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		tx := db.WithContext(c.UserContext()).Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to begin transaction")
		}

		defer func() {
			if r := recover(); r != nil {
				_ = tx.Rollback()
				panic(r) // re-panic after rollback so Fiber's handler can catch
			}
			if err != nil {
				_ = tx.Rollback()
				return
			}
			if e := tx.Commit().Error; e != nil {
				log.Error().Err(e).Str("path", c.Path()).Msg("tx commit failed")
				err = fiber.NewError(fiber.StatusInternalServerError, "transaction commit failed")
			}
		}()

		c.Locals(database.TxLocal, tx)
		err = c.Next()
		return err
	}
}

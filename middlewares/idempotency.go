package middlewares

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"boostpanel-backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const idempotencyHeader = "Idempotency-Key"

// Idempotency makes a POST safe to retry when the client sends an
// Idempotency-Key header. The first response is stored and replayed; a key
// reused with another body, or replayed while the first request still runs,
// is rejected with 409. Requests are scoped by client IP.
func Idempotency(db *gorm.DB, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		method := strings.ToUpper(c.Method())
		if method != fiber.MethodPost && method != fiber.MethodPut && method != fiber.MethodPatch && method != fiber.MethodDelete {
			return c.Next()
		}

		key := strings.TrimSpace(c.Get(idempotencyHeader))
		if key == "" {
			return c.Next()
		}
		if len(key) > 128 {
			return fiber.NewError(fiber.StatusBadRequest, "Idempotency-Key too long")
		}

		scope := c.IP()
		path := c.OriginalURL() // includes query string

		// Deterministic request hash: method|path|body|scope
		h := sha256.New()
		h.Write([]byte(method))
		h.Write([]byte{'\n'})
		h.Write([]byte(path))
		h.Write([]byte{'\n'})
		h.Write(c.Body())
		h.Write([]byte{'\n'})
		h.Write([]byte(scope))
		reqHash := hex.EncodeToString(h.Sum(nil))

		// Phase 1: claim the key, or find who already holds it. The re-read
		// after a failed insert must not share a transaction with the insert,
		// Postgres aborts the whole transaction on a unique violation.
		db := db.WithContext(c.UserContext())
		var existing models.IdempotencyKey
		claimed := false
		err := db.Where("idem_key = ?", key).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			rec := models.IdempotencyKey{
				Key:         key,
				RequestHash: reqHash,
				Method:      method,
				Path:        path,
				Scope:       scope,
			}
			if cerr := db.Create(&rec).Error; cerr != nil {
				if e := db.Where("idem_key = ?", key).First(&existing).Error; e != nil {
					return fiber.NewError(fiber.StatusInternalServerError, "idempotency create failed")
				}
			} else {
				existing = rec
				claimed = true
			}
		case err != nil:
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency lookup failed")
		}

		if !claimed {
			if existing.RequestHash != reqHash {
				return fiber.NewError(fiber.StatusConflict, "Idempotency-Key reuse with different request")
			}
			if existing.ResponseStatus == 0 {
				return fiber.NewError(fiber.StatusConflict, "a request with this Idempotency-Key is still in progress")
			}
			c.Set("Idempotent-Replayed", "true")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Status(existing.ResponseStatus).Send(existing.ResponseBody)
		}

		// Phase 2: run the handler once. Errors are rendered first so the
		// stored response matches what the client saw.
		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = db.Where("idem_key = ?", key).Delete(&models.IdempotencyKey{}).Error
				return herr
			}
		}

		// Phase 3: store the response. A claim left without a response would
		// answer every retry with 409, so release it when the store fails.
		now := time.Now().UTC()
		resp := c.Response().Body()
		blob := make([]byte, len(resp))
		copy(blob, resp)
		err = db.Model(&models.IdempotencyKey{}).
			Where("idem_key = ?", key).
			Updates(map[string]any{
				"response_status": c.Response().StatusCode(),
				"response_body":   blob,
				"completed_at":    &now,
			}).Error
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("idempotency store failed")
			if derr := db.Where("idem_key = ?", key).Delete(&models.IdempotencyKey{}).Error; derr != nil {
				log.Error().Err(derr).Str("path", path).Msg("idempotency release failed")
			}
		}

		return nil
	}
}

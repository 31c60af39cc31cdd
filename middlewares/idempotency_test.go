package middlewares

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"boostpanel-backend/models"
	"boostpanel-backend/services"
	"boostpanel-backend/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func idempotentApp(t *testing.T, handler fiber.Handler) *fiber.App {
	t.Helper()
	return idempotentAppWith(t, testutil.NewTestDB(t), zerolog.Nop(), handler)
}

func idempotentAppWith(t *testing.T, db *gorm.DB, log zerolog.Logger, handler fiber.Handler) *fiber.App {
	t.Helper()
	app := fiber.New(fiber.Config{ErrorHandler: NewErrorHandler(zerolog.Nop())})
	app.Post("/orders", Idempotency(db, log), handler)
	return app
}

func post(t *testing.T, app *fiber.App, key, body string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(raw)
}

func TestIdempotencyReplaysFirstResponse(t *testing.T) {
	calls := 0
	app := idempotentApp(t, func(c *fiber.Ctx) error {
		calls++
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"call": calls})
	})

	resp, body := post(t, app, "k-1", `{"q":1}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"call":1}`, body)
	assert.Empty(t, resp.Header.Get("Idempotent-Replayed"))

	resp, body = post(t, app, "k-1", `{"q":1}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"call":1}`, body)
	assert.Equal(t, "true", resp.Header.Get("Idempotent-Replayed"))
	assert.Equal(t, 1, calls)

	resp, _ = post(t, app, "k-1", `{"q":2}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, 1, calls)

	post(t, app, "", `{"q":1}`)
	post(t, app, "", `{"q":1}`)
	assert.Equal(t, 3, calls)
}

func TestIdempotencyStoresErrors(t *testing.T) {
	calls := 0
	app := idempotentApp(t, func(c *fiber.Ctx) error {
		calls++
		return services.ErrKeyAlreadyUsed
	})

	resp, body := post(t, app, "k-err", `{}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, body, "key_already_used")

	resp, replay := post(t, app, "k-err", `{}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, body, replay)
	assert.Equal(t, "true", resp.Header.Get("Idempotent-Replayed"))
	assert.Equal(t, 1, calls)
}

func TestIdempotencyRejectsLongKeys(t *testing.T) {
	app := idempotentApp(t, func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	resp, _ := post(t, app, strings.Repeat("x", 129), `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIdempotencyReleasesKeyWhenStoreFails(t *testing.T) {
	db := testutil.NewTestDB(t)
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register("test:fail_idempotency_store", func(tx *gorm.DB) {
		if tx.Statement.Table == "idempotency_keys" {
			_ = tx.AddError(errors.New("disk full"))
		}
	}))

	var buf bytes.Buffer
	calls := 0
	app := idempotentAppWith(t, db, zerolog.New(&buf), func(c *fiber.Ctx) error {
		calls++
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"call": calls})
	})

	resp, body := post(t, app, "k-store", `{"q":1}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"call":1}`, body)
	assert.Contains(t, buf.String(), "idempotency store failed")
	assert.Contains(t, buf.String(), "disk full")

	var n int64
	require.NoError(t, db.Model(&models.IdempotencyKey{}).Where("idem_key = ?", "k-store").Count(&n).Error)
	assert.Zero(t, n)

	// The retry runs again instead of waiting on a claim that never completes.
	resp, body = post(t, app, "k-store", `{"q":1}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"call":2}`, body)
	assert.Equal(t, 2, calls)
}

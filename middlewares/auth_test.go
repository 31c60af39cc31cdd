package middlewares

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"boostpanel-backend/config"
	"boostpanel-backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuard(t *testing.T) *AdminGuard {
	t.Helper()
	g, err := NewAdminGuard(config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour})
	require.NoError(t, err)
	return g
}

func guardedApp(g *AdminGuard) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: NewErrorHandler(zerolog.Nop())})
	app.Get("/me", g.RequireAdmin(), func(c *fiber.Ctx) error {
		return c.SendString(AdminFrom(c).Username + ":" + ActorID(c))
	})
	return app
}

func TestNewAdminGuardNeedsSecret(t *testing.T) {
	_, err := NewAdminGuard(config.AuthConfig{})
	require.Error(t, err)

	g, err := NewAdminGuard(config.AuthConfig{JWTSecretFallback: "fallback"})
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, g.ttl)
}

func TestIssueAndParse(t *testing.T) {
	g := newTestGuard(t)
	admin := &models.AdminUser{ID: "a-1", Username: "root", Role: models.RoleAdmin}

	token, exp, err := g.Issue(admin)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := g.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "a-1", claims.AdminID)
	assert.Equal(t, "root", claims.Username)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	other, err := NewAdminGuard(config.AuthConfig{JWTSecret: "another-secret"})
	require.NoError(t, err)
	_, err = other.Parse(token)
	require.Error(t, err)

	g.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, err := g.Issue(admin)
	require.NoError(t, err)
	_, err = g.Parse(expired)
	require.Error(t, err)
}

func TestParseRejectsOtherAlgorithms(t *testing.T) {
	g := newTestGuard(t)
	claims := &Claims{
		AdminID:  "a-1",
		Username: "root",
		Role:     models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS384, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = g.Parse(token)
	require.Error(t, err)
}

func TestRequireAdmin(t *testing.T) {
	g := newTestGuard(t)
	app := guardedApp(g)

	adminToken, _, err := g.Issue(&models.AdminUser{ID: "a-1", Username: "root", Role: models.RoleAdmin})
	require.NoError(t, err)
	viewerToken, _, err := g.Issue(&models.AdminUser{ID: "v-1", Username: "viewer", Role: "viewer"})
	require.NoError(t, err)

	cases := []struct {
		name   string
		setup  func(r *http.Request)
		status int
		body   string
	}{
		{"no credentials", func(r *http.Request) {}, http.StatusUnauthorized, ""},
		{"garbage cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: "garbage"}) }, http.StatusUnauthorized, ""},
		{"valid cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: adminToken}) }, http.StatusOK, "root:a-1"},
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+adminToken) }, http.StatusOK, "root:a-1"},
		{"wrong role", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: viewerToken}) }, http.StatusForbidden, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tc.setup(req)
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
			if tc.body != "" {
				raw, _ := io.ReadAll(resp.Body)
				assert.Equal(t, tc.body, string(raw))
			}
		})
	}
}

func TestSetCookieAttributes(t *testing.T) {
	g := newTestGuard(t)
	g.cookieSecure = true
	app := fiber.New()
	app.Get("/login", func(c *fiber.Ctx) error {
		g.SetCookie(c, "tok", time.Now().Add(time.Hour))
		return nil
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/login", nil))
	require.NoError(t, err)
	cookies := resp.Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, CookieName, c.Name)
	assert.Equal(t, "tok", c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
}

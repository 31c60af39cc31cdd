package middlewares

import (
	"errors"
	"strings"
	"time"

	"boostpanel-backend/config"
	"boostpanel-backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

const (
	authHeader   = "Authorization"
	bearerPrefix = "Bearer "

	// CookieName carries the admin session token.
	CookieName = "admin_token"

	adminLocal = "admin"
)

// Claims is the admin session payload (subject = admin id).
type Claims struct {
	AdminID  string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// AdminGuard issues and verifies admin session tokens.
type AdminGuard struct {
	secret       []byte
	ttl          time.Duration
	cookieSecure bool
	now          func() time.Time
}

func NewAdminGuard(cfg config.AuthConfig) (*AdminGuard, error) {
	secret := cfg.Secret()
	if len(secret) == 0 {
		return nil, errors.New("JWT secret not configured (set JWT_SECRET_KEY or JWT_SECRET)")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AdminGuard{secret: secret, ttl: ttl, cookieSecure: cfg.CookieSecure, now: time.Now}, nil
}

// Issue signs an HS256 token for the admin, valid for the configured TTL.
func (g *AdminGuard) Issue(admin *models.AdminUser) (string, time.Time, error) {
	now := g.now()
	exp := now.Add(g.ttl)
	claims := &Claims{
		AdminID:  admin.ID,
		Username: admin.Username,
		Role:     admin.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   admin.ID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// Parse verifies signature, algorithm and expiry.
func (g *AdminGuard) Parse(raw string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	var claims Claims
	token, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return g.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}
	if strings.TrimSpace(claims.AdminID) == "" || strings.TrimSpace(claims.Username) == "" {
		return nil, errors.New("token missing subject")
	}
	return &claims, nil
}

func (g *AdminGuard) SetCookie(c *fiber.Ctx, token string, exp time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HTTPOnly: true,
		Secure:   g.cookieSecure,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func (g *AdminGuard) ClearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   g.cookieSecure,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

// RequireAdmin accepts the session cookie or a Bearer token. Missing or
// invalid tokens get 401, a valid token without the admin role gets 403.
func (g *AdminGuard) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := strings.TrimSpace(c.Cookies(CookieName))
		if raw == "" {
			h := c.Get(authHeader)
			if len(h) > len(bearerPrefix) && strings.EqualFold(h[:len(bearerPrefix)], bearerPrefix) {
				raw = strings.TrimSpace(h[len(bearerPrefix):])
			}
		}
		if raw == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "not authenticated")
		}

		claims, err := g.Parse(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}
		if claims.Role != models.RoleAdmin {
			return fiber.NewError(fiber.StatusForbidden, "admin role required")
		}

		c.Locals(adminLocal, claims)
		return c.Next()
	}
}

// AdminFrom returns the claims stored by RequireAdmin, or nil.
func AdminFrom(c *fiber.Ctx) *Claims {
	claims, _ := c.Locals(adminLocal).(*Claims)
	return claims
}

// ActorID is the admin id for audit rows, empty on public routes.
func ActorID(c *fiber.Ctx) string {
	if claims := AdminFrom(c); claims != nil {
		return claims.AdminID
	}
	return ""
}

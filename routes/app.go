package routes

import (
	"strings"

	"boostpanel-backend/config"
	"boostpanel-backend/controllers"
	"boostpanel-backend/metrics"
	"boostpanel-backend/middlewares"
	"boostpanel-backend/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// NewHandler builds the service layer on top of db and p.
func NewHandler(cfg config.Config, db *gorm.DB, p services.Provider, log zerolog.Logger) (*controllers.Handler, error) {
	guard, err := middlewares.NewAdminGuard(cfg.Auth)
	if err != nil {
		return nil, err
	}
	logs := services.NewLogSink(db, log)
	keys := services.NewKeyStore(db, logs)
	catalog := services.NewCatalog(db, logs, log, cfg.ImportBatchSize)

	return &controllers.Handler{
		DB:         db,
		Keys:       keys,
		Catalog:    catalog,
		Redemption: services.NewRedemption(db, keys, catalog, logs, p, log),
		Orders:     services.NewOrderLookup(db, logs, p, log),
		Logs:       logs,
		Dashboard:  services.NewDashboard(db, keys),
		Auth:       services.NewAdminAuth(db, logs),
		Guard:      guard,
	}, nil
}

// New returns the fully wired Fiber app.
func New(cfg config.Config, db *gorm.DB, p services.Provider, log zerolog.Logger) (*fiber.App, error) {
	h, err := NewHandler(cfg, db, p, log)
	if err != nil {
		return nil, err
	}
	metrics.MustRegister()

	app := fiber.New(fiber.Config{
		ErrorHandler:          middlewares.NewErrorHandler(log),
		BodyLimit:             cfg.BodyLimitBytes,
		DisableStartupMessage: true,
	})

	// Cookies only travel cross-origin with an explicit origin list; Fiber
	// refuses credentials together with "*".
	origins := strings.TrimSpace(cfg.AllowedOrigins)
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowCredentials: origins != "*",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
	}))

	if cfg.RateLimit.Max > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit.Max,
			Expiration: cfg.RateLimit.Window,
			Next: func(c *fiber.Ctx) bool {
				return c.Path() == "/metrics" || c.Path() == "/healthz"
			},
		}))
	}
	app.Use(middlewares.RequestLogger(log))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/healthz", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	Register(app, h, db, log)
	return app, nil
}

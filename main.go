package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"boostpanel-backend/config"
	"boostpanel-backend/database"
	"boostpanel-backend/logger"
	"boostpanel-backend/provider"
	"boostpanel-backend/routes"

	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger is not configured yet.
		l := zerolog.New(os.Stderr).With().Timestamp().Logger()
		l.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logger.New(cfg.Log, cfg.IsDev())

	// ---- Database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	admin, err := database.SeedAdmin(db, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("admin seed failed")
	}
	if admin == nil {
		log.Warn().Msg("ADMIN_PASSWORD not set, no admin account seeded")
	}

	// ---- HTTP
	client := provider.NewClient(cfg.Provider, log.With().Str("component", "provider").Logger())
	app, err := routes.New(cfg, db, client, log)
	if err != nil {
		log.Fatal().Err(err).Msg("app setup failed")
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("API server starting")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info().Msg("shutting down")
	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"boostpanel-backend/config"
	"boostpanel-backend/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the Postgres connection pool described by cfg.
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.ConnString()), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// SeedAdmin makes sure the configured admin account exists and that its
// password matches the configured one. An empty password disables seeding.
func SeedAdmin(db *gorm.DB, username, password string) (*models.AdminUser, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, nil
	}

	var admin models.AdminUser
	err := db.Where("username = ?", username).First(&admin).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		admin = models.AdminUser{Username: username, Role: models.RoleAdmin, IsActive: true}
		if err := admin.SetPassword(password); err != nil {
			return nil, err
		}
		if err := db.Create(&admin).Error; err != nil {
			return nil, fmt.Errorf("seed admin: %w", err)
		}
		return &admin, nil
	case err != nil:
		return nil, fmt.Errorf("seed admin lookup: %w", err)
	}

	if admin.ComparePassword(password) == nil {
		return &admin, nil
	}
	if err := admin.SetPassword(password); err != nil {
		return nil, err
	}
	if err := db.Model(&admin).Update("password", admin.Password).Error; err != nil {
		return nil, fmt.Errorf("seed admin password: %w", err)
	}
	return &admin, nil
}

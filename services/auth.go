package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"boostpanel-backend/metrics"
	"boostpanel-backend/models"

	"gorm.io/gorm"
)

// AdminAuth checks admin credentials against the admin_users table.
type AdminAuth struct {
	db   *gorm.DB
	logs *LogSink
}

func NewAdminAuth(db *gorm.DB, logs *LogSink) *AdminAuth {
	return &AdminAuth{db: db, logs: logs}
}

func (a *AdminAuth) Login(ctx context.Context, username, password string) (*models.AdminUser, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, Validation("username and password are required")
	}

	var admin models.AdminUser
	err := a.db.WithContext(ctx).Where("username = ?", username).First(&admin).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err != nil || !admin.IsActive || admin.ComparePassword(password) != nil {
		metrics.IncAdminLogin(false)
		_ = a.logs.Record(ctx, nil, LogEntry{
			Type:    models.LogAdminLoginFailed,
			Message: "Admin login failed",
			Data:    map[string]any{"username": username},
		})
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	admin.LastLogin = &now
	if err := a.db.WithContext(ctx).Model(&admin).Update("last_login", now).Error; err != nil {
		return nil, err
	}
	metrics.IncAdminLogin(true)
	if err := a.logs.Record(ctx, nil, LogEntry{
		Type:    models.LogAdminLogin,
		Message: "Admin logged in",
		UserID:  admin.ID,
	}); err != nil {
		return nil, err
	}
	return &admin, nil
}

// Get returns an active admin by id.
func (a *AdminAuth) Get(ctx context.Context, id string) (*models.AdminUser, error) {
	var admin models.AdminUser
	if err := a.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &Error{Kind: KindAuth, Code: "unknown_admin", Message: "admin account not found"}
		}
		return nil, err
	}
	return &admin, nil
}

package services

import (
	"context"
	"time"

	"boostpanel-backend/models"

	"gorm.io/gorm"
)

type ServiceStats struct {
	Total  int64 `json:"total"`
	Active int64 `json:"active"`
}

type OrderStats struct {
	Total    int64            `json:"total"`
	Today    int64            `json:"today"`
	ByStatus map[string]int64 `json:"byStatus"`
}

type DashboardStats struct {
	Keys     KeyStats     `json:"keys"`
	Services ServiceStats `json:"services"`
	Orders   OrderStats   `json:"orders"`
	Logs     int64        `json:"logs"`
}

type Dashboard struct {
	db   *gorm.DB
	keys *KeyStore
}

func NewDashboard(db *gorm.DB, keys *KeyStore) *Dashboard {
	return &Dashboard{db: db, keys: keys}
}

func (d *Dashboard) Stats(ctx context.Context) (*DashboardStats, error) {
	db := d.db.WithContext(ctx)
	out := &DashboardStats{Orders: OrderStats{ByStatus: map[string]int64{}}}

	keys, err := d.keys.Stats(ctx)
	if err != nil {
		return nil, err
	}
	out.Keys = keys

	if err := db.Model(&models.Service{}).Count(&out.Services.Total).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Service{}).Where("is_active = ?", true).Count(&out.Services.Active).Error; err != nil {
		return nil, err
	}

	var rows []struct {
		Status string
		Count  int64
	}
	if err := db.Model(&models.Order{}).Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out.Orders.ByStatus[r.Status] = r.Count
		out.Orders.Total += r.Count
	}

	startOfDay := time.Now().UTC().Truncate(24 * time.Hour)
	if err := db.Model(&models.Order{}).Where("created_at >= ?", startOfDay).Count(&out.Orders.Today).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Log{}).Count(&out.Logs).Error; err != nil {
		return nil, err
	}
	return out, nil
}

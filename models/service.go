package models

import (
	"time"

	"gorm.io/datatypes"
)

// Service is a catalog entry and the provider API used to fulfil it.
type Service struct {
	ID              uint              `json:"id" gorm:"primaryKey"`
	Name            string            `json:"name" gorm:"not null;uniqueIndex:idx_services_name_platform,priority:1"`
	Platform        string            `json:"platform" gorm:"size:64;not null;uniqueIndex:idx_services_name_platform,priority:2"`
	Type            string            `json:"type" gorm:"size:64;not null"`
	Description     string            `json:"description"`
	IsActive        bool              `json:"isActive" gorm:"not null;index"`
	APIEndpoint     string            `json:"apiEndpoint" gorm:"column:api_endpoint;not null"`
	APIMethod       string            `json:"apiMethod" gorm:"column:api_method;size:10;not null;default:POST"`
	APIHeaders      datatypes.JSONMap `json:"apiHeaders" gorm:"column:api_headers"`
	RequestTemplate datatypes.JSON    `json:"requestTemplate"`
	StatusEndpoint  string            `json:"statusEndpoint"`
	MinQuantity     int               `json:"minQuantity" gorm:"not null;default:0"`
	MaxQuantity     int               `json:"maxQuantity" gorm:"not null;default:0"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	LogKeyCreated          = "key_created"
	LogKeysGenerated       = "keys_generated"
	LogKeyDeleted          = "key_deleted"
	LogServiceCreated      = "service_created"
	LogServiceUpdated      = "service_updated"
	LogServiceDeleted      = "service_deleted"
	LogServicesImported    = "services_imported"
	LogServiceImportFailed = "service_import_failed"
	LogOrderCreated        = "order_created"
	LogOrderCompleted      = "order_completed"
	LogOrderFailed         = "order_failed"
	LogOrderRefreshed      = "order_refreshed"
	LogAdminLogin          = "admin_login"
	LogAdminLoginFailed    = "admin_login_failed"
)

// Log is an append-only audit row. It is never updated.
type Log struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Type      string         `json:"type" gorm:"size:32;not null;index"`
	Message   string         `json:"message"`
	Data      datatypes.JSON `json:"data"`
	UserID    string         `json:"userId" gorm:"size:64"`
	KeyID     *uint          `json:"keyId" gorm:"index"`
	OrderID   string         `json:"orderId" gorm:"size:32;index"`
	CreatedAt time.Time      `json:"createdAt" gorm:"index"`
}

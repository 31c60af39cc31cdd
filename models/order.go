package models

import "time"

const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderCompleted  = "completed"
	OrderFailed     = "failed"
	OrderCancelled  = "cancelled"
	OrderPartial    = "partial"
	OrderInProgress = "in_progress"
)

// Order is one redemption attempt. OrderID is the external-facing id.
type Order struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	OrderID         string     `json:"orderId" gorm:"size:32;uniqueIndex;not null"`
	KeyID           uint       `json:"keyId" gorm:"index;not null"`
	Key             *Key       `json:"key,omitempty" gorm:"foreignKey:KeyID;constraint:OnDelete:RESTRICT"`
	ServiceID       uint       `json:"serviceId" gorm:"index;not null"`
	Service         *Service   `json:"service,omitempty" gorm:"foreignKey:ServiceID;constraint:OnDelete:RESTRICT"`
	TargetURL       string     `json:"targetUrl" gorm:"not null"`
	Quantity        int        `json:"quantity" gorm:"not null"`
	Status          string     `json:"status" gorm:"size:16;not null;index"`
	ProviderOrderID string     `json:"providerOrderId" gorm:"size:64"`
	Response        string     `json:"response" gorm:"type:text"`
	ErrorMessage    string     `json:"errorMessage" gorm:"type:text"`
	CreatedAt       time.Time  `json:"createdAt" gorm:"index"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	CompletedAt     *time.Time `json:"completedAt"`
}

func IsOrderStatus(s string) bool {
	switch s {
	case OrderPending, OrderProcessing, OrderCompleted, OrderFailed,
		OrderCancelled, OrderPartial, OrderInProgress:
		return true
	}
	return false
}

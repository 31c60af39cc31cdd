package models

import "time"

const (
	KeyTypeSingle = "single"
	KeyTypeMulti  = "multi"
)

// Key is a redeemable access key. Single-use keys are consumed by one order
// (MaxQuantity, when set, caps that order's quantity); multi-use keys carry a
// unit quota in MaxQuantity that is drawn down across orders.
type Key struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	Value        string     `json:"value" gorm:"size:64;uniqueIndex;not null"`
	Type         string     `json:"type" gorm:"size:16;not null;default:single"`
	MaxQuantity  int        `json:"maxQuantity" gorm:"not null;default:0"`
	UsedQuantity int        `json:"usedQuantity" gorm:"not null;default:0"`
	IsUsed       bool       `json:"isUsed" gorm:"not null;default:false;index"`
	UsedAt       *time.Time `json:"usedAt"`
	UsedBy       string     `json:"usedBy" gorm:"size:32"`
	CreatedBy    string     `json:"createdBy" gorm:"size:64"`
	Note         string     `json:"note"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Remaining is the unit quota still available, or -1 when unbounded.
func (k *Key) Remaining() int {
	if k.IsUsed {
		return 0
	}
	if k.MaxQuantity <= 0 {
		return -1
	}
	if r := k.MaxQuantity - k.UsedQuantity; r > 0 {
		return r
	}
	return 0
}

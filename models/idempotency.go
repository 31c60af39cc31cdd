package models

import "time"

// IdempotencyKey stores the first response produced for an Idempotency-Key
// header so that client retries of POST /api/orders replay it.
type IdempotencyKey struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	Key            string     `json:"key" gorm:"column:idem_key;size:128;uniqueIndex"`
	RequestHash    string     `json:"request_hash" gorm:"size:64"` // sha256 of method|path|body|scope
	Method         string     `json:"method" gorm:"size:10"`
	Path           string     `json:"path" gorm:"size:255"`
	Scope          string     `json:"scope" gorm:"size:128"`
	ResponseStatus int        `json:"response_status"` // 0 while the first request is in flight
	ResponseBody   []byte     `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at"`
}

package services

import (
	"context"
	"encoding/json"
	"fmt"

	"boostpanel-backend/models"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LogEntry struct {
	Type    string
	Message string
	Data    any
	UserID  string
	KeyID   *uint
	OrderID string
}

type LogFilter struct {
	Type    string
	OrderID string
	Limit   int
	Offset  int
}

// LogSink appends audit rows and mirrors them to the process logger.
type LogSink struct {
	db  *gorm.DB
	log zerolog.Logger
}

func NewLogSink(db *gorm.DB, log zerolog.Logger) *LogSink {
	return &LogSink{db: db, log: log}
}

// Record writes e using db, so callers inside a transaction pass their tx.
// A nil db uses the sink's own handle.
func (s *LogSink) Record(ctx context.Context, db *gorm.DB, e LogEntry) error {
	if db == nil {
		db = s.db
	}
	row := models.Log{
		Type:    e.Type,
		Message: e.Message,
		UserID:  e.UserID,
		KeyID:   e.KeyID,
		OrderID: e.OrderID,
	}
	if e.Data != nil {
		raw, err := json.Marshal(e.Data)
		if err != nil {
			return fmt.Errorf("encode log data: %w", err)
		}
		row.Data = datatypes.JSON(raw)
	}
	if err := db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("write %s log: %w", e.Type, err)
	}

	ev := s.log.Info().Str("event", e.Type)
	if e.OrderID != "" {
		ev = ev.Str("order_id", e.OrderID)
	}
	if e.KeyID != nil {
		ev = ev.Uint("key_id", *e.KeyID)
	}
	if e.UserID != "" {
		ev = ev.Str("user_id", e.UserID)
	}
	ev.Msg(e.Message)
	return nil
}

func (s *LogSink) List(ctx context.Context, f LogFilter) ([]models.Log, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Log{})
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.OrderID != "" {
		q = q.Where("order_id = ?", f.OrderID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	logs := make([]models.Log, 0)
	if err := q.Order("created_at DESC, id DESC").
		Limit(clampLimit(f.Limit)).Offset(max(f.Offset, 0)).
		Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return 50
	case n > 500:
		return 500
	}
	return n
}

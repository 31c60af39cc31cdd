package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"boostpanel-backend/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type SearchResult struct {
	Order        *models.Order
	Refreshed    bool
	RefreshError string
}

// OrderLookup is the public read path over the order ledger.
type OrderLookup struct {
	db       *gorm.DB
	logs     *LogSink
	provider Provider
	log      zerolog.Logger
}

func NewOrderLookup(db *gorm.DB, logs *LogSink, p Provider, log zerolog.Logger) *OrderLookup {
	return &OrderLookup{db: db, logs: logs, provider: p, log: log}
}

// Search loads an order with its service and key. With refresh it asks the
// provider for the current status first; a failed refresh is reported in the
// result rather than failing the lookup.
func (o *OrderLookup) Search(ctx context.Context, orderID string, refresh bool) (*SearchResult, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, ErrOrderNotFound
	}
	order, err := o.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	res := &SearchResult{Order: order}
	if !refresh {
		return res, nil
	}
	switch {
	case order.ProviderOrderID == "":
		res.RefreshError = "order has no provider reference"
		return res, nil
	case order.Service == nil || order.Service.StatusEndpoint == "":
		res.RefreshError = "service does not support status checks"
		return res, nil
	}

	st, err := o.provider.CheckStatus(ctx, order.Service, order.ProviderOrderID)
	if err != nil {
		o.log.Warn().Err(err).Str("order_id", order.OrderID).Msg("order status refresh failed")
		res.RefreshError = err.Error()
		return res, nil
	}
	status, ok := MapProviderStatus(st.Status)
	if !ok {
		res.RefreshError = fmt.Sprintf("unrecognised provider status %q", st.Status)
		return res, nil
	}
	if err := o.applyStatus(ctx, order, status, st.Status); err != nil {
		return nil, err
	}
	res.Refreshed = true
	return res, nil
}

func (o *OrderLookup) load(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := o.db.WithContext(ctx).
		Preload("Service").
		Preload("Key").
		Where("order_id = ?", orderID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (o *OrderLookup) applyStatus(ctx context.Context, order *models.Order, status, raw string) error {
	if status == order.Status {
		return nil
	}
	prev := order.Status
	updates := map[string]any{"status": status}
	switch {
	case status == models.OrderCompleted && order.CompletedAt == nil:
		now := time.Now().UTC()
		order.CompletedAt = &now
		updates["completed_at"] = now
	case status != models.OrderCompleted && order.CompletedAt != nil:
		// completedAt only describes a terminal success.
		order.CompletedAt = nil
		updates["completed_at"] = nil
	}
	order.Status = status

	return o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
			return err
		}
		return o.logs.Record(ctx, tx, LogEntry{
			Type:    models.LogOrderRefreshed,
			Message: fmt.Sprintf("Order %s status %s -> %s", order.OrderID, prev, status),
			Data:    map[string]any{"from": prev, "to": status, "providerStatus": raw},
			KeyID:   &order.KeyID,
			OrderID: order.OrderID,
		})
	})
}

// MapProviderStatus normalises the status vocabulary common to SMM panel
// APIs ("In progress", "Canceled", ...) onto the order status set.
func MapProviderStatus(s string) (string, bool) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
	switch norm {
	case "pending":
		return models.OrderPending, true
	case "processing":
		return models.OrderProcessing, true
	case "in_progress", "inprogress":
		return models.OrderInProgress, true
	case "completed", "complete", "success":
		return models.OrderCompleted, true
	case "partial":
		return models.OrderPartial, true
	case "canceled", "cancelled", "refunded":
		return models.OrderCancelled, true
	case "failed", "fail", "error":
		return models.OrderFailed, true
	}
	return "", false
}

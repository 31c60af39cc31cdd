package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"boostpanel-backend/logger"
	"boostpanel-backend/metrics"
	"boostpanel-backend/models"
	"boostpanel-backend/provider"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Provider is the slice of the provider client the order flow depends on.
type Provider interface {
	PlaceOrder(ctx context.Context, svc *models.Service, targetURL string, quantity int) (*provider.Result, error)
	CheckStatus(ctx context.Context, svc *models.Service, providerOrderID string) (*provider.StatusResult, error)
}

type OrderRequest struct {
	KeyValue  string
	ServiceID uint
	TargetURL string
	Quantity  int
}

// Redemption validates a key, consumes it and forwards the order upstream.
type Redemption struct {
	db       *gorm.DB
	keys     *KeyStore
	catalog  *Catalog
	logs     *LogSink
	provider Provider
	log      zerolog.Logger
}

func NewRedemption(db *gorm.DB, keys *KeyStore, catalog *Catalog, logs *LogSink, p Provider, log zerolog.Logger) *Redemption {
	return &Redemption{db: db, keys: keys, catalog: catalog, logs: logs, provider: p, log: log}
}

// ValidateKey reports whether value may currently be redeemed.
func (r *Redemption) ValidateKey(ctx context.Context, value string) (*models.Key, error) {
	key, err := r.keys.FindByValue(ctx, value)
	if err != nil {
		return nil, err
	}
	if key.IsUsed {
		return key, ErrKeyAlreadyUsed
	}
	return key, nil
}

// Submit runs the redemption. On an upstream failure the persisted order is
// returned together with an Upstream error; the key stays consumed.
func (r *Redemption) Submit(ctx context.Context, in OrderRequest) (*models.Order, error) {
	in.KeyValue = strings.TrimSpace(in.KeyValue)
	in.TargetURL = strings.TrimSpace(in.TargetURL)
	if err := validateOrderRequest(in); err != nil {
		metrics.IncRedemption("invalid_request")
		return nil, err
	}

	key, err := r.ValidateKey(ctx, in.KeyValue)
	if err != nil {
		metrics.IncRedemption(redemptionResult(err))
		return nil, err
	}

	svc, err := r.catalog.GetActive(ctx, in.ServiceID)
	if err != nil {
		if errors.Is(err, ErrServiceNotFound) || errors.Is(err, ErrServiceInactive) {
			err = ErrServiceUnavailable.Wrap(err)
		}
		metrics.IncRedemption(redemptionResult(err))
		return nil, err
	}
	if err := checkQuantity(svc, key, in.Quantity); err != nil {
		metrics.IncRedemption(redemptionResult(err))
		return nil, err
	}

	order := &models.Order{
		OrderID:   ulid.Make().String(),
		KeyID:     key.ID,
		ServiceID: svc.ID,
		TargetURL: in.TargetURL,
		Quantity:  in.Quantity,
		Status:    models.OrderPending,
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		if err := r.keys.WithTx(tx).Consume(ctx, key, in.Quantity, order.OrderID); err != nil {
			return err
		}
		return r.logs.Record(ctx, tx, LogEntry{
			Type:    models.LogOrderCreated,
			Message: fmt.Sprintf("Order %s created for service %q", order.OrderID, svc.Name),
			Data: map[string]any{
				"serviceId": svc.ID,
				"targetUrl": order.TargetURL,
				"quantity":  order.Quantity,
				"key":       logger.Redact(key.Value),
			},
			KeyID:   &key.ID,
			OrderID: order.OrderID,
		})
	})
	if err != nil {
		metrics.IncRedemption(redemptionResult(err))
		return nil, err
	}
	metrics.IncRedemption("accepted")
	metrics.IncOrder(models.OrderPending)

	// Once the key is consumed the outcome must be recorded even if the
	// caller goes away.
	ctx = context.WithoutCancel(ctx)

	res, callErr := r.provider.PlaceOrder(ctx, svc, order.TargetURL, order.Quantity)
	if callErr != nil {
		return order, r.fail(ctx, order, callErr)
	}
	return order, r.complete(ctx, order, res)
}

func (r *Redemption) complete(ctx context.Context, order *models.Order, res *provider.Result) error {
	now := time.Now().UTC()
	order.Status = models.OrderCompleted
	order.CompletedAt = &now
	order.Response = string(res.Body)
	order.ProviderOrderID = res.ProviderOrderID

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(order).Updates(map[string]any{
			"status":            order.Status,
			"completed_at":      now,
			"response":          order.Response,
			"provider_order_id": order.ProviderOrderID,
		}).Error; err != nil {
			return err
		}
		return r.logs.Record(ctx, tx, LogEntry{
			Type:    models.LogOrderCompleted,
			Message: fmt.Sprintf("Order %s accepted by provider", order.OrderID),
			Data:    map[string]any{"statusCode": res.StatusCode, "providerOrderId": res.ProviderOrderID},
			KeyID:   &order.KeyID,
			OrderID: order.OrderID,
		})
	})
	if err != nil {
		r.log.Error().Err(err).Str("order_id", order.OrderID).Msg("could not record completed order")
		return err
	}
	metrics.IncOrder(models.OrderCompleted)
	return nil
}

func (r *Redemption) fail(ctx context.Context, order *models.Order, callErr error) error {
	order.Status = models.OrderFailed
	order.ErrorMessage = callErr.Error()
	updates := map[string]any{
		"status":        order.Status,
		"error_message": order.ErrorMessage,
	}
	data := map[string]any{"error": order.ErrorMessage}
	var ue *provider.UpstreamError
	if errors.As(callErr, &ue) {
		if len(ue.Body) > 0 {
			order.Response = string(ue.Body)
			updates["response"] = order.Response
		}
		if ue.StatusCode != 0 {
			data["statusCode"] = ue.StatusCode
		}
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(order).Updates(updates).Error; err != nil {
			return err
		}
		return r.logs.Record(ctx, tx, LogEntry{
			Type:    models.LogOrderFailed,
			Message: fmt.Sprintf("Order %s failed: %s", order.OrderID, order.ErrorMessage),
			Data:    data,
			KeyID:   &order.KeyID,
			OrderID: order.OrderID,
		})
	})
	if err != nil {
		r.log.Error().Err(err).Str("order_id", order.OrderID).Msg("could not record failed order")
		return err
	}
	metrics.IncOrder(models.OrderFailed)
	return Upstream(callErr)
}

func validateOrderRequest(in OrderRequest) error {
	if in.KeyValue == "" {
		return Validation("keyValue is required")
	}
	if in.ServiceID == 0 {
		return Validation("serviceId is required")
	}
	if in.Quantity < 1 {
		return Validation("quantity must be at least 1")
	}
	u, err := url.ParseRequestURI(in.TargetURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Validation("targetUrl must be an http(s) URL")
	}
	return nil
}

func checkQuantity(svc *models.Service, key *models.Key, qty int) error {
	if svc.MinQuantity > 0 && qty < svc.MinQuantity {
		return Validation("quantity must be at least %d for this service", svc.MinQuantity)
	}
	if svc.MaxQuantity > 0 && qty > svc.MaxQuantity {
		return Validation("quantity must be at most %d for this service", svc.MaxQuantity)
	}
	if rem := key.Remaining(); rem >= 0 && qty > rem {
		return ErrKeyQuotaExceeded
	}
	return nil
}

func redemptionResult(err error) string {
	switch {
	case errors.Is(err, ErrInvalidKey):
		return "invalid_key"
	case errors.Is(err, ErrKeyAlreadyUsed):
		return "key_used"
	case errors.Is(err, ErrKeyQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, ErrServiceUnavailable):
		return "service_unavailable"
	}
	var de *Error
	if errors.As(err, &de) && de.Kind == KindValidation {
		return "invalid_request"
	}
	return "error"
}

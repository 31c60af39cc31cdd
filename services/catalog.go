package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"boostpanel-backend/metrics"
	"boostpanel-backend/models"
	"boostpanel-backend/provider"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type FailedBatch struct {
	Batch int    `json:"batch"`
	From  int    `json:"from"`
	To    int    `json:"to"`
	Error string `json:"error"`
}

type ImportResult struct {
	Created       int           `json:"created"`
	Failed        int           `json:"failed"`
	FailedBatches []FailedBatch `json:"failedBatches"`
}

// Catalog owns the service list. Redemption only ever reads it.
type Catalog struct {
	db        *gorm.DB
	logs      *LogSink
	log       zerolog.Logger
	batchSize int
}

func NewCatalog(db *gorm.DB, logs *LogSink, log zerolog.Logger, batchSize int) *Catalog {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Catalog{db: db, logs: logs, log: log, batchSize: batchSize}
}

func (c *Catalog) ListActive(ctx context.Context) ([]models.Service, error) {
	services := make([]models.Service, 0)
	err := c.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("platform ASC, name ASC").
		Find(&services).Error
	return services, err
}

func (c *Catalog) ListAll(ctx context.Context) ([]models.Service, error) {
	services := make([]models.Service, 0)
	err := c.db.WithContext(ctx).Order("id ASC").Find(&services).Error
	return services, err
}

// Get returns ErrServiceNotFound for a missing id regardless of the active flag.
func (c *Catalog) Get(ctx context.Context, id uint) (*models.Service, error) {
	var svc models.Service
	if err := c.db.WithContext(ctx).First(&svc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	return &svc, nil
}

// GetActive distinguishes a missing service (ErrServiceNotFound) from an
// inactive one (ErrServiceInactive).
func (c *Catalog) GetActive(ctx context.Context, id uint) (*models.Service, error) {
	svc, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !svc.IsActive {
		return nil, ErrServiceInactive
	}
	return svc, nil
}

func (c *Catalog) Create(ctx context.Context, svc *models.Service, actor string) error {
	if err := PrepareService(svc); err != nil {
		return err
	}
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(svc).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateService
			}
			return err
		}
		return c.logs.Record(ctx, tx, LogEntry{
			Type:    models.LogServiceCreated,
			Message: fmt.Sprintf("Service %q created", svc.Name),
			Data:    map[string]any{"serviceId": svc.ID, "platform": svc.Platform},
			UserID:  actor,
		})
	})
}

// Update applies a column->value patch and returns the reloaded service.
func (c *Catalog) Update(ctx context.Context, id uint, updates map[string]any, actor string) (*models.Service, error) {
	if len(updates) == 0 {
		return c.Get(ctx, id)
	}
	if m, ok := updates["api_method"].(string); ok {
		updates["api_method"] = strings.ToUpper(strings.TrimSpace(m))
		if !validMethod(updates["api_method"].(string)) {
			return nil, Validation("apiMethod %q is not supported", m)
		}
	}
	if p, ok := updates["platform"].(string); ok {
		updates["platform"] = strings.ToLower(strings.TrimSpace(p))
	}
	if tpl, ok := updates["request_template"].(datatypes.JSON); ok {
		if err := checkTemplate(tpl); err != nil {
			return nil, err
		}
	}

	var out models.Service
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&out, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrServiceNotFound
			}
			return err
		}
		if err := tx.Model(&out).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateService
			}
			return err
		}
		if err := tx.First(&out, id).Error; err != nil {
			return err
		}
		if out.MaxQuantity > 0 && out.MaxQuantity < out.MinQuantity {
			return Validation("maxQuantity must be >= minQuantity")
		}
		fields := make([]string, 0, len(updates))
		for k := range updates {
			fields = append(fields, k)
		}
		return c.logs.Record(ctx, tx, LogEntry{
			Type:    models.LogServiceUpdated,
			Message: fmt.Sprintf("Service %q updated", out.Name),
			Data:    map[string]any{"serviceId": out.ID, "fields": fields},
			UserID:  actor,
		})
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Catalog) Delete(ctx context.Context, id uint, actor string) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var svc models.Service
		if err := tx.First(&svc, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrServiceNotFound
			}
			return err
		}
		var orders int64
		if err := tx.Model(&models.Order{}).Where("service_id = ?", id).Count(&orders).Error; err != nil {
			return err
		}
		if orders > 0 {
			return ErrServiceInUse
		}
		if err := tx.Delete(&svc).Error; err != nil {
			return err
		}
		return c.logs.Record(ctx, tx, LogEntry{
			Type:    models.LogServiceDeleted,
			Message: fmt.Sprintf("Service %q deleted", svc.Name),
			Data:    map[string]any{"serviceId": svc.ID},
			UserID:  actor,
		})
	})
}

// BulkCreate inserts services batch by batch, each batch in its own
// transaction. A failing batch is logged and skipped; the import goes on.
func (c *Catalog) BulkCreate(ctx context.Context, in []models.Service, actor string) (ImportResult, error) {
	res := ImportResult{FailedBatches: make([]FailedBatch, 0)}
	if len(in) == 0 {
		return res, Validation("no services to import")
	}
	for i := range in {
		if err := PrepareService(&in[i]); err != nil {
			return res, Validation("service at index %d: %s", i, err.Error())
		}
	}

	for batch, from := 0, 0; from < len(in); batch, from = batch+1, from+c.batchSize {
		to := min(from+c.batchSize, len(in))
		chunk := in[from:to]

		err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.Create(&chunk).Error
		})
		if err != nil {
			res.Failed += len(chunk)
			res.FailedBatches = append(res.FailedBatches, FailedBatch{Batch: batch, From: from, To: to - 1, Error: err.Error()})
			metrics.IncImportBatch(false)
			c.log.Warn().Err(err).Int("batch", batch).Int("from", from).Int("to", to-1).Msg("service import batch failed")
			if lerr := c.logs.Record(ctx, nil, LogEntry{
				Type:    models.LogServiceImportFailed,
				Message: fmt.Sprintf("Import batch %d (rows %d-%d) failed", batch, from, to-1),
				Data:    map[string]any{"batch": batch, "from": from, "to": to - 1, "error": err.Error()},
				UserID:  actor,
			}); lerr != nil {
				return res, lerr
			}
			continue
		}
		res.Created += len(chunk)
		metrics.IncImportBatch(true)
	}

	err := c.logs.Record(ctx, nil, LogEntry{
		Type:    models.LogServicesImported,
		Message: fmt.Sprintf("Imported %d services (%d failed)", res.Created, res.Failed),
		Data:    map[string]any{"created": res.Created, "failed": res.Failed, "batches": len(res.FailedBatches)},
		UserID:  actor,
	})
	return res, err
}

// PrepareService trims and defaults a service before it is stored.
func PrepareService(svc *models.Service) error {
	svc.Name = strings.TrimSpace(svc.Name)
	svc.Platform = strings.ToLower(strings.TrimSpace(svc.Platform))
	svc.Type = strings.TrimSpace(svc.Type)
	svc.APIEndpoint = strings.TrimSpace(svc.APIEndpoint)
	svc.StatusEndpoint = strings.TrimSpace(svc.StatusEndpoint)
	svc.APIMethod = strings.ToUpper(strings.TrimSpace(svc.APIMethod))
	if svc.APIMethod == "" {
		svc.APIMethod = http.MethodPost
	}

	switch {
	case svc.Name == "":
		return Validation("name is required")
	case svc.Platform == "":
		return Validation("platform is required")
	case svc.APIEndpoint == "":
		return Validation("apiEndpoint is required")
	case !validMethod(svc.APIMethod):
		return Validation("apiMethod %q is not supported", svc.APIMethod)
	case svc.MinQuantity < 0 || svc.MaxQuantity < 0:
		return Validation("quantity limits must not be negative")
	case svc.MaxQuantity > 0 && svc.MaxQuantity < svc.MinQuantity:
		return Validation("maxQuantity must be >= minQuantity")
	}
	if len(svc.RequestTemplate) == 0 {
		svc.RequestTemplate = datatypes.JSON("{}")
	}
	return checkTemplate(svc.RequestTemplate)
}

// checkTemplate renders tpl once with sample values so a broken template is
// rejected when it is saved instead of when a customer redeems.
func checkTemplate(tpl datatypes.JSON) error {
	if _, err := provider.BuildRequestBody(tpl, "https://example.com/p/1", 1); err != nil {
		return Validation("requestTemplate: %s", err.Error())
	}
	return nil
}

func validMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"boostpanel-backend/models"

	"gorm.io/gorm"
)

const maxGenerateCount = 1000

type NewKey struct {
	Value       string
	Type        string
	MaxQuantity int
	Note        string
	CreatedBy   string
}

type GenerateKeys struct {
	Count       int
	Prefix      string
	Type        string
	MaxQuantity int
	Note        string
	CreatedBy   string
}

type KeyFilter struct {
	Status string // "used" | "unused" | ""
	Search string
	Limit  int
	Offset int
}

type KeyStats struct {
	Total  int64 `json:"total"`
	Used   int64 `json:"used"`
	Unused int64 `json:"unused"`
}

// KeyStore is the single authority on whether a key may be redeemed.
type KeyStore struct {
	db   *gorm.DB
	logs *LogSink
}

func NewKeyStore(db *gorm.DB, logs *LogSink) *KeyStore {
	return &KeyStore{db: db, logs: logs}
}

// WithTx returns a store bound to tx. A nil tx returns the receiver.
func (s *KeyStore) WithTx(tx *gorm.DB) *KeyStore {
	if tx == nil {
		return s
	}
	cp := *s
	cp.db = tx
	return &cp
}

func (s *KeyStore) FindByValue(ctx context.Context, value string) (*models.Key, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, ErrInvalidKey
	}
	var key models.Key
	if err := s.db.WithContext(ctx).Where("value = ?", value).First(&key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidKey
		}
		return nil, err
	}
	return &key, nil
}

func (s *KeyStore) Get(ctx context.Context, id uint) (*models.Key, error) {
	var key models.Key
	if err := s.db.WithContext(ctx).First(&key, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return &key, nil
}

func (s *KeyStore) List(ctx context.Context, f KeyFilter) ([]models.Key, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Key{})
	switch f.Status {
	case "used":
		q = q.Where("is_used = ?", true)
	case "unused":
		q = q.Where("is_used = ?", false)
	case "":
	default:
		return nil, 0, Validation("status must be used or unused")
	}
	if f.Search != "" {
		q = q.Where("value LIKE ?", "%"+f.Search+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	keys := make([]models.Key, 0)
	if err := q.Order("id DESC").Limit(clampLimit(f.Limit)).Offset(max(f.Offset, 0)).Find(&keys).Error; err != nil {
		return nil, 0, err
	}
	return keys, total, nil
}

func (s *KeyStore) Create(ctx context.Context, in NewKey) (*models.Key, error) {
	typ, err := normalizeKeyType(in.Type, in.MaxQuantity)
	if err != nil {
		return nil, err
	}
	value := strings.TrimSpace(in.Value)
	if value == "" {
		if value, err = GenerateKeyValue(""); err != nil {
			return nil, err
		}
	}

	key := models.Key{
		Value:       value,
		Type:        typ,
		MaxQuantity: in.MaxQuantity,
		Note:        strings.TrimSpace(in.Note),
		CreatedBy:   in.CreatedBy,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&key).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateKey
			}
			return err
		}
		return s.logs.Record(ctx, tx, LogEntry{
			Type:    models.LogKeyCreated,
			Message: fmt.Sprintf("Key created (%s)", key.Type),
			Data:    map[string]any{"type": key.Type, "maxQuantity": key.MaxQuantity},
			UserID:  in.CreatedBy,
			KeyID:   &key.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// Generate inserts Count freshly generated keys in one transaction.
func (s *KeyStore) Generate(ctx context.Context, in GenerateKeys) ([]models.Key, error) {
	if in.Count < 1 || in.Count > maxGenerateCount {
		return nil, Validation("count must be between 1 and %d", maxGenerateCount)
	}
	typ, err := normalizeKeyType(in.Type, in.MaxQuantity)
	if err != nil {
		return nil, err
	}

	keys := make([]models.Key, 0, in.Count)
	seen := make(map[string]struct{}, in.Count)
	for len(keys) < in.Count {
		v, err := GenerateKeyValue(in.Prefix)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		keys = append(keys, models.Key{
			Value:       v,
			Type:        typ,
			MaxQuantity: in.MaxQuantity,
			Note:        strings.TrimSpace(in.Note),
			CreatedBy:   in.CreatedBy,
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(&keys, 200).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateKey
			}
			return err
		}
		return s.logs.Record(ctx, tx, LogEntry{
			Type:    models.LogKeysGenerated,
			Message: fmt.Sprintf("%d keys generated", len(keys)),
			Data:    map[string]any{"count": len(keys), "type": typ, "maxQuantity": in.MaxQuantity, "prefix": in.Prefix},
			UserID:  in.CreatedBy,
		})
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Consume draws n units from key for orderID with one conditional UPDATE, so
// concurrent redemptions can never push used_quantity past max_quantity or
// consume a key twice. Zero affected rows means another redemption won.
func (s *KeyStore) Consume(ctx context.Context, key *models.Key, n int, orderID string) error {
	if n <= 0 {
		return Validation("quantity must be positive")
	}
	now := time.Now().UTC()
	updates := map[string]any{
		"used_quantity": gorm.Expr("used_quantity + ?", n),
		"used_at":       now,
		"used_by":       orderID,
	}
	q := s.db.WithContext(ctx).Model(&models.Key{}).Where("id = ? AND is_used = ?", key.ID, false)
	if key.Type == models.KeyTypeMulti {
		q = q.Where("used_quantity + ? <= max_quantity", n)
		updates["is_used"] = gorm.Expr("used_quantity + ? >= max_quantity", n)
	} else {
		q = q.Where("(max_quantity = 0 OR ? <= max_quantity)", n)
		updates["is_used"] = true
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("consume key: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		current, err := s.Get(ctx, key.ID)
		if err != nil {
			if errors.Is(err, ErrKeyNotFound) {
				return ErrInvalidKey
			}
			return err
		}
		*key = *current
		if current.IsUsed {
			return ErrKeyAlreadyUsed
		}
		return ErrKeyQuotaExceeded
	}

	return s.db.WithContext(ctx).First(key, key.ID).Error
}

func (s *KeyStore) Delete(ctx context.Context, id uint, actor string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var key models.Key
		if err := tx.First(&key, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrKeyNotFound
			}
			return err
		}
		var orders int64
		if err := tx.Model(&models.Order{}).Where("key_id = ?", id).Count(&orders).Error; err != nil {
			return err
		}
		if orders > 0 {
			return ErrKeyInUse
		}
		if err := tx.Delete(&key).Error; err != nil {
			return err
		}
		return s.logs.Record(ctx, tx, LogEntry{
			Type:    models.LogKeyDeleted,
			Message: "Key deleted",
			Data:    map[string]any{"value": key.Value},
			UserID:  actor,
			KeyID:   &key.ID,
		})
	})
}

func (s *KeyStore) Stats(ctx context.Context) (KeyStats, error) {
	var st KeyStats
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Key{}).Count(&st.Total).Error; err != nil {
		return st, err
	}
	if err := db.Model(&models.Key{}).Where("is_used = ?", true).Count(&st.Used).Error; err != nil {
		return st, err
	}
	st.Unused = st.Total - st.Used
	return st, nil
}

func normalizeKeyType(typ string, maxQty int) (string, error) {
	typ = strings.ToLower(strings.TrimSpace(typ))
	if typ == "" {
		typ = models.KeyTypeSingle
	}
	if maxQty < 0 {
		return "", Validation("maxQuantity must not be negative")
	}
	switch typ {
	case models.KeyTypeSingle:
	case models.KeyTypeMulti:
		if maxQty <= 0 {
			return "", Validation("multi-use keys need a positive maxQuantity")
		}
	default:
		return "", Validation("type must be single or multi")
	}
	return typ, nil
}

// GenerateKeyValue returns PREFIX-XXXX-XXXX-XXXX (prefix optional) drawn from
// an alphabet without look-alike characters.
func GenerateKeyValue(prefix string) (string, error) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	const codeLength = 12

	buf := make([]byte, codeLength)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = chars[int(buf[i])%len(chars)]
	}

	code := string(buf[0:4]) + "-" + string(buf[4:8]) + "-" + string(buf[8:12])
	prefix = strings.ToUpper(strings.Trim(strings.TrimSpace(prefix), "-"))
	if prefix == "" {
		return code, nil
	}
	return prefix + "-" + code, nil
}

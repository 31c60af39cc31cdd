package services_test

import (
	"context"
	"regexp"
	"sync"
	"testing"

	"boostpanel-backend/models"
	"boostpanel-backend/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keyPattern = regexp.MustCompile(`^([A-Z0-9]+-)?[A-HJ-NP-Z2-9]{4}-[A-HJ-NP-Z2-9]{4}-[A-HJ-NP-Z2-9]{4}$`)

func TestGenerateKeyValueFormat(t *testing.T) {
	v, err := services.GenerateKeyValue("")
	require.NoError(t, err)
	assert.Regexp(t, keyPattern, v)

	v, err = services.GenerateKeyValue(" vip- ")
	require.NoError(t, err)
	assert.Regexp(t, `^VIP-`, v)
	assert.Regexp(t, keyPattern, v)
}

func TestCreateKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	key, err := f.keys.Create(ctx, services.NewKey{Note: " batch A ", CreatedBy: "admin-1"})
	require.NoError(t, err)
	assert.Regexp(t, keyPattern, key.Value)
	assert.Equal(t, models.KeyTypeSingle, key.Type)
	assert.Equal(t, "batch A", key.Note)
	assert.False(t, key.IsUsed)
	assert.EqualValues(t, 1, f.countLogs(t, models.LogKeyCreated))

	_, err = f.keys.Create(ctx, services.NewKey{Value: key.Value})
	require.ErrorIs(t, err, services.ErrDuplicateKey)

	_, err = f.keys.Create(ctx, services.NewKey{Type: models.KeyTypeMulti})
	var se *services.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, services.KindValidation, se.Kind)

	_, err = f.keys.Create(ctx, services.NewKey{Type: "weekly"})
	require.ErrorAs(t, err, &se)
	assert.Equal(t, services.KindValidation, se.Kind)
}

func TestGenerateKeys(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, n := range []int{0, 1001} {
		_, err := f.keys.Generate(ctx, services.GenerateKeys{Count: n})
		require.Error(t, err, "count %d", n)
	}

	keys, err := f.keys.Generate(ctx, services.GenerateKeys{Count: 25, Prefix: "vip", Type: "multi", MaxQuantity: 500})
	require.NoError(t, err)
	require.Len(t, keys, 25)

	seen := map[string]bool{}
	for _, k := range keys {
		assert.Regexp(t, `^VIP-`, k.Value)
		assert.Equal(t, models.KeyTypeMulti, k.Type)
		assert.NotZero(t, k.ID)
		assert.False(t, seen[k.Value])
		seen[k.Value] = true
	}

	st, err := f.keys.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 25, st.Total)
	assert.EqualValues(t, 25, st.Unused)
	assert.EqualValues(t, 1, f.countLogs(t, models.LogKeysGenerated))
}

func TestConsumeSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := f.key(t, services.NewKey{Value: "SINGLE-1"})

	require.NoError(t, f.keys.Consume(ctx, key, 1000, "ORDER-1"))
	assert.True(t, key.IsUsed)
	assert.Equal(t, 1000, key.UsedQuantity)
	assert.Equal(t, "ORDER-1", key.UsedBy)
	require.NotNil(t, key.UsedAt)

	stale := *key
	stale.IsUsed = false
	require.ErrorIs(t, f.keys.Consume(ctx, &stale, 1, "ORDER-2"), services.ErrKeyAlreadyUsed)
	assert.Equal(t, "ORDER-1", f.reloadKey(t, key.ID).UsedBy)
}

func TestConsumeSingleUseRespectsCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := f.key(t, services.NewKey{Value: "SINGLE-CAP", MaxQuantity: 100})

	require.ErrorIs(t, f.keys.Consume(ctx, key, 150, "ORDER-1"), services.ErrKeyQuotaExceeded)
	assert.False(t, f.reloadKey(t, key.ID).IsUsed)

	require.NoError(t, f.keys.Consume(ctx, key, 100, "ORDER-2"))
	assert.True(t, key.IsUsed)
}

func TestConsumeMultiUseDrawsDownQuota(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := f.key(t, services.NewKey{Value: "MULTI-1", Type: models.KeyTypeMulti, MaxQuantity: 10})

	require.NoError(t, f.keys.Consume(ctx, key, 4, "A"))
	assert.Equal(t, 4, key.UsedQuantity)
	assert.False(t, key.IsUsed)
	assert.Equal(t, 6, key.Remaining())

	require.ErrorIs(t, f.keys.Consume(ctx, key, 7, "B"), services.ErrKeyQuotaExceeded)
	assert.Equal(t, 4, key.UsedQuantity)

	require.NoError(t, f.keys.Consume(ctx, key, 6, "C"))
	assert.Equal(t, 10, key.UsedQuantity)
	assert.True(t, key.IsUsed)
	assert.Equal(t, 0, key.Remaining())

	require.ErrorIs(t, f.keys.Consume(ctx, key, 1, "D"), services.ErrKeyAlreadyUsed)
}

func TestConcurrentConsumeNeverOverdraws(t *testing.T) {
	f := newFixture(t)
	key := f.key(t, services.NewKey{Value: "MULTI-RACE", Type: models.KeyTypeMulti, MaxQuantity: 10})

	const workers = 25
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k := *key
			if err := f.keys.Consume(context.Background(), &k, 1, "RACE"); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, success)
	final := f.reloadKey(t, key.ID)
	assert.Equal(t, 10, final.UsedQuantity)
	assert.True(t, final.IsUsed)
}

func TestListKeysFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	used := f.key(t, services.NewKey{Value: "LIST-USED"})
	f.key(t, services.NewKey{Value: "LIST-FREE"})
	f.key(t, services.NewKey{Value: "OTHER-FREE"})
	require.NoError(t, f.keys.Consume(ctx, used, 1, "X"))

	keys, total, err := f.keys.List(ctx, services.KeyFilter{Status: "used"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, keys, 1)
	assert.Equal(t, "LIST-USED", keys[0].Value)

	_, total, err = f.keys.List(ctx, services.KeyFilter{Status: "unused"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	keys, total, err = f.keys.List(ctx, services.KeyFilter{Search: "LIST", Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, keys, 1)

	_, _, err = f.keys.List(ctx, services.KeyFilter{Status: "expired"})
	require.Error(t, err)
}

func TestDeleteKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.ErrorIs(t, f.keys.Delete(ctx, 999, "admin"), services.ErrKeyNotFound)

	free := f.key(t, services.NewKey{Value: "DEL-FREE"})
	require.NoError(t, f.keys.Delete(ctx, free.ID, "admin"))
	_, err := f.keys.Get(ctx, free.ID)
	require.ErrorIs(t, err, services.ErrKeyNotFound)
	assert.EqualValues(t, 1, f.countLogs(t, models.LogKeyDeleted))

	svc := f.service(t, "Followers")
	_, err = f.redemption.Submit(ctx, services.OrderRequest{
		KeyValue: "DEL-USED", ServiceID: svc.ID, TargetURL: "https://instagram.com/x", Quantity: 10,
	})
	require.ErrorIs(t, err, services.ErrInvalidKey)

	used := f.key(t, services.NewKey{Value: "DEL-USED"})
	_, err = f.redemption.Submit(ctx, services.OrderRequest{
		KeyValue: used.Value, ServiceID: svc.ID, TargetURL: "https://instagram.com/x", Quantity: 10,
	})
	require.NoError(t, err)
	require.ErrorIs(t, f.keys.Delete(ctx, used.ID, "admin"), services.ErrKeyInUse)
}

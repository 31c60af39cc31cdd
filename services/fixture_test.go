package services_test

import (
	"context"
	"sync"
	"testing"

	"boostpanel-backend/models"
	"boostpanel-backend/provider"
	"boostpanel-backend/services"
	"boostpanel-backend/testutil"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fakeProvider struct {
	mu         sync.Mutex
	calls      int
	result     *provider.Result
	err        error
	status     *provider.StatusResult
	statusErr  error
	onPlace    func(ctx context.Context)
	lastTarget string
}

func (f *fakeProvider) PlaceOrder(ctx context.Context, svc *models.Service, targetURL string, quantity int) (*provider.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastTarget = targetURL
	if f.onPlace != nil {
		f.onPlace(ctx)
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &provider.Result{StatusCode: 200, Body: []byte(`{"order":"P-1"}`), ProviderOrderID: "P-1"}, nil
}

func (f *fakeProvider) CheckStatus(ctx context.Context, svc *models.Service, providerOrderID string) (*provider.StatusResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.status, nil
}

func (f *fakeProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fixture struct {
	db         *gorm.DB
	logs       *services.LogSink
	keys       *services.KeyStore
	catalog    *services.Catalog
	redemption *services.Redemption
	orders     *services.OrderLookup
	provider   *fakeProvider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	log := zerolog.Nop()
	p := &fakeProvider{}

	logs := services.NewLogSink(db, log)
	keys := services.NewKeyStore(db, logs)
	catalog := services.NewCatalog(db, logs, log, 2)
	return &fixture{
		db:         db,
		logs:       logs,
		keys:       keys,
		catalog:    catalog,
		redemption: services.NewRedemption(db, keys, catalog, logs, p, log),
		orders:     services.NewOrderLookup(db, logs, p, log),
		provider:   p,
	}
}

func (f *fixture) service(t *testing.T, name string, mutate ...func(*models.Service)) *models.Service {
	t.Helper()
	svc := &models.Service{
		Name:            name,
		Platform:        "instagram",
		Type:            "followers",
		IsActive:        true,
		APIEndpoint:     "https://provider.example/api/v2",
		RequestTemplate: datatypes.JSON(`{"service":1,"link":"{{link}}","quantity":"{{quantity}}"}`),
	}
	for _, m := range mutate {
		m(svc)
	}
	require.NoError(t, f.catalog.Create(context.Background(), svc, "admin"))
	return svc
}

func (f *fixture) key(t *testing.T, in services.NewKey) *models.Key {
	t.Helper()
	key, err := f.keys.Create(context.Background(), in)
	require.NoError(t, err)
	return key
}

func (f *fixture) countLogs(t *testing.T, typ string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Log{}).Where("type = ?", typ).Count(&n).Error)
	return n
}

func (f *fixture) countOrders(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&n).Error)
	return n
}

func (f *fixture) reloadKey(t *testing.T, id uint) *models.Key {
	t.Helper()
	key, err := f.keys.Get(context.Background(), id)
	require.NoError(t, err)
	return key
}

package services_test

import (
	"context"
	"testing"

	"boostpanel-backend/models"
	"boostpanel-backend/provider"
	"boostpanel-backend/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.service(t, "Followers")
	f.service(t, "Paused", func(s *models.Service) { s.IsActive = false })
	f.key(t, services.NewKey{Value: "SPARE"})

	placeOrder(t, f, svc, "STATS-OK")
	f.provider.err = &provider.UpstreamError{StatusCode: 502}
	f.key(t, services.NewKey{Value: "STATS-FAIL"})
	_, err := f.redemption.Submit(ctx, services.OrderRequest{
		KeyValue: "STATS-FAIL", ServiceID: svc.ID, TargetURL: "https://x.com/a", Quantity: 1,
	})
	require.Error(t, err)

	st, err := services.NewDashboard(f.db, f.keys).Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, st.Keys.Total)
	assert.EqualValues(t, 2, st.Keys.Used)
	assert.EqualValues(t, 1, st.Keys.Unused)
	assert.EqualValues(t, 2, st.Services.Total)
	assert.EqualValues(t, 1, st.Services.Active)
	assert.EqualValues(t, 2, st.Orders.Total)
	assert.EqualValues(t, 2, st.Orders.Today)
	assert.EqualValues(t, 1, st.Orders.ByStatus[models.OrderCompleted])
	assert.EqualValues(t, 1, st.Orders.ByStatus[models.OrderFailed])
	assert.Positive(t, st.Logs)
}

func TestLogSinkList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, f.logs.Record(ctx, nil, services.LogEntry{Type: models.LogKeyCreated, Message: "k"}))
	}
	require.NoError(t, f.logs.Record(ctx, nil, services.LogEntry{
		Type: models.LogOrderCreated, Message: "o", OrderID: "ORD-1", Data: map[string]any{"quantity": 5},
	}))

	logs, total, err := f.logs.List(ctx, services.LogFilter{Type: models.LogKeyCreated, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, logs, 2)

	logs, total, err = f.logs.List(ctx, services.LogFilter{OrderID: "ORD-1"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, logs, 1)
	assert.JSONEq(t, `{"quantity":5}`, string(logs[0].Data))
}

package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	redemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boostpanel_redemptions_total",
			Help: "Key redemption attempts by result (accepted/invalid_key/key_used/quota_exceeded/service_unavailable/error).",
		},
		[]string{"result"},
	)

	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boostpanel_orders_total",
			Help: "Orders reaching a status.",
		},
		[]string{"status"},
	)

	providerLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "boostpanel_provider_request_seconds",
			Help:    "Latency of provider API calls, including retries.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"outcome"},
	)

	importBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boostpanel_service_import_batches_total",
			Help: "Service bulk import batches by result (ok/failed).",
		},
		[]string{"result"},
	)

	adminLoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boostpanel_admin_logins_total",
			Help: "Admin login attempts by result (success/failure).",
		},
		[]string{"result"},
	)
)

// MustRegister registers the collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			redemptionsTotal, ordersTotal, providerLatency,
			importBatchesTotal, adminLoginsTotal,
		)
	})
}

func IncRedemption(result string) {
	redemptionsTotal.WithLabelValues(norm(result)).Inc()
}

func IncOrder(status string) {
	ordersTotal.WithLabelValues(norm(status)).Inc()
}

func ObserveProvider(outcome string, d time.Duration) {
	providerLatency.WithLabelValues(norm(outcome)).Observe(d.Seconds())
}

func IncImportBatch(ok bool) {
	if ok {
		importBatchesTotal.WithLabelValues("ok").Inc()
		return
	}
	importBatchesTotal.WithLabelValues("failed").Inc()
}

func IncAdminLogin(success bool) {
	if success {
		adminLoginsTotal.WithLabelValues("success").Inc()
		return
	}
	adminLoginsTotal.WithLabelValues("failure").Inc()
}

func norm(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "unknown"
	}
	return s
}

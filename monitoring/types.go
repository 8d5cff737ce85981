package monitoring

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Arctic1879/file-vault/namespace"
)

var ownerCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "vault_owner_count",
	Help: "The number of owners with a tree in the vault",
})

var totalUsedBytes = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "vault_used_bytes",
	Help: "Total bytes charged against owner quotas",
})

var totalQuotaBytes = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "vault_quota_bytes",
	Help: "Total bytes granted across all owner quotas",
})

type Monitor struct {
	running atomic.Bool
	store   *namespace.Store
}

func NewMonitor(store *namespace.Store) *Monitor {
	return &Monitor{
		store: store,
	}
}

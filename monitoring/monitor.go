package monitoring

import (
	"time"
)

func (m *Monitor) updateUsage() {
	owners, err := m.store.ListOwners()
	if err != nil {
		return
	}

	var used, quota int64
	for _, id := range owners {
		o, err := m.store.Owner(id)
		if err != nil {
			continue
		}
		used += o.StorageUsedBytes
		quota += o.StorageLimitBytes
	}

	ownerCount.Set(float64(len(owners)))
	totalUsedBytes.Set(float64(used))
	totalQuotaBytes.Set(float64(quota))
}

func (m *Monitor) Start() {
	m.running.Store(true)

	for m.running.Load() {
		time.Sleep(time.Second * 30)
		m.updateUsage()
	}
}

func (m *Monitor) Stop() {
	m.running.Store(false)
}

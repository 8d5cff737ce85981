package namespace

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var nodeCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "vault_node_count",
	Help: "The number of live nodes across all owner trees",
})

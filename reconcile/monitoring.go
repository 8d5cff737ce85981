package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var cyclesRun = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vault_reconcile_cycles_total",
	Help: "The number of completed reconciliation passes",
})

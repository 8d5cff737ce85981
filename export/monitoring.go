package export

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var exportWarnings = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vault_export_warnings_total",
	Help: "The number of objects skipped during folder exports",
})

package policy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var quotaDenials = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vault_quota_denials_total",
	Help: "The number of uploads denied for exceeding an owner's quota",
})

var downloadsRecorded = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vault_downloads_total",
	Help: "The number of successful downloads recorded",
})

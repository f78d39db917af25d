package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// opsTotal counts successful ordered-set primitives by operation.
var opsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "copacabana_store_ops_total",
	Help: "Completed ordered-store primitive operations.",
}, []string{"op"})

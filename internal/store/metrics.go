package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	readsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "picklight_store_reads_total",
		Help: "Validated document loads, per logical file.",
	}, []string{"file"})

	writesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "picklight_store_writes_total",
		Help: "Successful document writes, per logical file.",
	}, []string{"file"})

	conflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "picklight_store_conflicts_total",
		Help: "Writes rejected because the file changed since it was read.",
	}, []string{"file"})
)

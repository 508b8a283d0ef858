package batch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for batch runs.
var (
	batchRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapi_batch_records_total",
		Help: "People records processed by outcome (resolved, failed)",
	}, []string{"outcome"})

	batchRowsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swapi_batch_rows_inserted_total",
		Help: "Rows committed to the people table",
	})

	batchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "swapi_batch_duration_seconds",
		Help:    "Batch stage duration in seconds (resolve, persist, total)",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"stage"})
)

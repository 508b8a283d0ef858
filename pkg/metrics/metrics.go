// Package metrics provides the Prometheus registry used by the loader and
// pushes it to a Pushgateway when a batch run ends.
// All metrics are defined in their respective packages (client, cache, batch)
// to maintain modularity and avoid circular dependencies.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// JobName is the Pushgateway job label for loader runs.
const JobName = "swapi_loader"

// Registry is the default Prometheus registry used by the loader.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer pushed at the end of a run.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// Push sends every gathered metric to the Pushgateway at url, grouped by
// run id so concurrent runs do not overwrite each other.
func Push(ctx context.Context, url, runID string) error {
	pusher := push.New(url, JobName).
		Gatherer(Gatherer).
		Grouping("run_id", runID)

	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - swapi_requests_total{endpoint, status} (Counter): requests by endpoint and HTTP status
//   - swapi_request_duration_seconds{endpoint} (Histogram): request duration
//   - swapi_errors_total{class} (Counter): errors by class (client, server, network, parse)
//
// Cache Metrics (pkg/cache):
//   - swapi_cache_hits_total{layer="redis"} (Counter)
//   - swapi_cache_misses_total (Counter)
//   - swapi_cache_size_bytes{layer="redis"} (Gauge)
//   - swapi_304_responses_total (Counter)
//   - swapi_conditional_requests_total (Counter)
//   - swapi_cache_errors_total{operation} (Counter)
//
// Batch Metrics (pkg/batch):
//   - swapi_batch_records_total{outcome} (Counter): person records resolved or failed
//   - swapi_batch_rows_inserted_total (Counter): rows committed
//   - swapi_batch_duration_seconds{stage} (Histogram): resolve and persist stage durations
//
// Example Prometheus Queries:
//
//   # Link fetch error rate
//   rate(swapi_errors_total[5m])
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(swapi_request_duration_seconds_bucket[5m]))
//
//   # Rows per run
//   swapi_batch_rows_inserted_total

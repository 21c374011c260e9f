// Package metrics keeps operational counters in an embedded tstorage
// time-series store under the workdir.
package metrics

import (
	"path"
	"sync"
	"time"

	"github.com/nakabonne/tstorage"
)

const (
	MetricSettlementCount  = "settlement_count"
	MetricSettlementAmount = "settlement_amount"
	MetricSyncItems        = "sync_items"
	MetricHTTPRequests     = "http_requests"
)

var (
	storage tstorage.Storage
	mu      sync.Mutex
)

// InitMetrics opens (or creates) the metrics store under workdir/metrics.
func InitMetrics(workdir string) error {
	mu.Lock()
	defer mu.Unlock()
	var err error
	storage, err = tstorage.NewStorage(
		tstorage.WithDataPath(path.Join(workdir, "metrics")),
		tstorage.WithTimestampPrecision(tstorage.Seconds),
		tstorage.WithRetention(7*24*time.Hour),
	)
	return err
}

// AddPoint records one sample for the named metric, now.
func AddPoint(name string, value float64) {
	mu.Lock()
	defer mu.Unlock()
	if storage == nil {
		return
	}
	_ = storage.InsertRows([]tstorage.Row{
		{
			Metric:    name,
			DataPoint: tstorage.DataPoint{Timestamp: time.Now().Unix(), Value: value},
		},
	})
}

// SetGauge is AddPoint for int64 gauges, matching the call sites.
func SetGauge(name string, value int64) {
	AddPoint(name, float64(value))
}

// Select returns data points for a metric over [start, end].
func Select(name string, start, end int64) ([]*tstorage.DataPoint, error) {
	mu.Lock()
	defer mu.Unlock()
	if storage == nil {
		return nil, nil
	}
	return storage.Select(name, nil, start, end)
}

func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if storage == nil {
		return nil
	}
	err := storage.Close()
	storage = nil
	return err
}

package corpus

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scan outcomes used as the result label.
const (
	resultComplete  = "complete"
	resultLimit     = "limit"
	resultCancelled = "cancelled"
	resultError     = "error"
)

var (
	// rowsScanned counts data rows read from any corpus source.
	rowsScanned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "puzzler",
		Subsystem: "corpus",
		Name:      "rows_scanned_total",
		Help:      "Total corpus rows read by the scanner",
	})

	// decodeFailures counts rows skipped because they failed to decode.
	// Labels: kind (malformed_row, invalid_move, invalid_number, csv)
	decodeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "puzzler",
		Subsystem: "corpus",
		Name:      "decode_failures_total",
		Help:      "Total corpus rows skipped due to decode errors",
	}, []string{"kind"})

	// scansTotal counts finished scans by outcome.
	// Labels: result (complete, limit, cancelled, error)
	scansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "puzzler",
		Subsystem: "corpus",
		Name:      "scans_total",
		Help:      "Total corpus scans by result",
	}, []string{"result"})
)

// WriteMetrics writes every metric in the default registry to path in the
// Prometheus text format, for collection by node_exporter's textfile
// collector. The file is replaced atomically.
func WriteMetrics(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}

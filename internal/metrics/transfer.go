package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vulpemventures/ocean-ntp1/internal/core/domain"
)

// Namespace prefixes the name of every metric of this package.
const Namespace = "ocean_ntp1"

const (
	statusSuccess  = "success"
	statusRejected = "rejected"
	statusError    = "error"
)

var (
	transferOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "transfer",
		Name:      "operations_total",
		Help:      "Count of transfer service operations.",
	}, []string{"operation", "status"})
	transferOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: "transfer",
		Name:      "operation_duration_seconds",
		Help:      "Duration of transfer service operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "status"})
	selectedInputs = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: "transfer",
		Name:      "selected_inputs",
		Help:      "Number of inputs of the planned transfers.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
	})
	lockedUtxos = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "utxo",
		Name:      "lock_changes_total",
		Help:      "Count of utxos locked or unlocked by the transfer service.",
	}, []string{"action"})
)

// ObserveTransfer records the outcome of a transfer service operation.
// Errors caused by the request are counted as rejected, any other one as
// error.
func ObserveTransfer(operation string, err error, started time.Time) {
	status := statusSuccess
	if err != nil {
		status = statusError
		if domain.IsUserError(err) {
			status = statusRejected
		}
	}

	transferOperationsTotal.WithLabelValues(operation, status).Inc()
	transferOperationDuration.WithLabelValues(operation, status).Observe(time.Since(started).Seconds())
}

// ObserveSelectedInputs records the number of inputs of a planned transfer.
func ObserveSelectedInputs(count int) {
	selectedInputs.Observe(float64(count))
}

// ObserveLockedUtxos records the number of utxos locked (or unlocked if
// locked is false).
func ObserveLockedUtxos(count int, locked bool) {
	if count <= 0 {
		return
	}
	action := "unlock"
	if locked {
		action = "lock"
	}
	lockedUtxos.WithLabelValues(action).Add(float64(count))
}

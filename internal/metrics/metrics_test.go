package metrics

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/ocean-ntp1/internal/core/domain"
	"github.com/vulpemventures/ocean-ntp1/pkg/profiler"
)

func delta(t *testing.T, collector prometheus.Collector, observe func()) float64 {
	t.Helper()

	before := testutil.ToFloat64(collector)
	observe()
	after := testutil.ToFloat64(collector)
	return after - before
}

func TestObserveTransfer(t *testing.T) {
	start := time.Now().Add(-time.Second)

	tests := []struct {
		name   string
		err    error
		status string
	}{
		{"success", nil, statusSuccess},
		{"rejected", fmt.Errorf("%w: X", domain.ErrInsufficientBalance), statusRejected},
		{"error", errors.New("boom"), statusError},
		{"defect", domain.ErrLedgerInconsistency, statusError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			counter := transferOperationsTotal.WithLabelValues("plan", tt.status)
			inc := delta(t, counter, func() {
				ObserveTransfer("plan", tt.err, start)
			})
			require.Equal(t, float64(1), inc)
		})
	}
}

func TestObserveLockedUtxos(t *testing.T) {
	inc := delta(t, lockedUtxos.WithLabelValues("lock"), func() {
		ObserveLockedUtxos(3, true)
	})
	require.Equal(t, float64(3), inc)

	inc = delta(t, lockedUtxos.WithLabelValues("unlock"), func() {
		ObserveLockedUtxos(2, false)
		ObserveLockedUtxos(0, false)
	})
	require.Equal(t, float64(2), inc)

	ObserveSelectedInputs(4)
}

func TestMetricsExposition(t *testing.T) {
	ObserveTransfer("prepare", nil, time.Now())
	ObserveLockedUtxos(1, true)

	buf := &bytes.Buffer{}
	require.NoError(t, profiler.WriteMetrics(buf, nil, Namespace))

	out := buf.String()
	require.Contains(t, out, `ocean_ntp1_transfer_operations_total{operation="prepare",status="success"}`)
	require.Contains(t, out, "ocean_ntp1_transfer_operation_duration_seconds_bucket")
	require.Contains(t, out, `ocean_ntp1_utxo_lock_changes_total{action="lock"}`)
	require.NotContains(t, out, "go_goroutines")
}

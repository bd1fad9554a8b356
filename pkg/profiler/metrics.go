package profiler

import (
	"bufio"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// WriteMetrics gathers the metrics registered to the given gatherer and writes
// them to w in the prometheus text format. A nil gatherer defaults to
// prometheus.DefaultGatherer. If prefix is not empty, only the metric
// families whose name starts with it are written.
func WriteMetrics(w io.Writer, gatherer prometheus.Gatherer, prefix string) error {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	metricFamilies, err := gatherer.Gather()
	if err != nil {
		return err
	}

	writer := bufio.NewWriter(w)
	for _, mf := range metricFamilies {
		if !strings.HasPrefix(mf.GetName(), prefix) {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(writer, mf); err != nil {
			return err
		}
	}
	return writer.Flush()
}

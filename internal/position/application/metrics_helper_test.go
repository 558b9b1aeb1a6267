package application

import (
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/wyfcoding/ledger/pkg/metrics"
)

func testCounter(m *metrics.Metrics, action string) float64 {
	return testutil.ToFloat64(m.ReservationsTotal.WithLabelValues(action))
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.OrderPlaced("pending")
	m.OrderPlaced("pending")
	m.OrderPlaced("preorder")
	m.StockRejected()
	m.Restocked(7)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ordersPlaced.WithLabelValues("pending")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ordersPlaced.WithLabelValues("preorder")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stockRejections))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.unitsRestocked))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.OrderPlaced("pending")
		m.Transition("shipped")
		m.StockRejected()
		m.Restocked(1)
		m.Delivered(1)
		m.RiderAlert()
		m.Request("/", "200")
	})
}

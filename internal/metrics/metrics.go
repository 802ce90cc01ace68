package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics собирает счётчики жизненного цикла заказов. Методы безопасны для nil.
type Metrics struct {
	registry        *prometheus.Registry
	ordersPlaced    *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	stockRejections prometheus.Counter
	unitsRestocked  prometheus.Counter
	unitsDelivered  prometheus.Counter
	riderAlerts     prometheus.Counter
	httpRequests    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ordersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wholesale", Name: "orders_placed_total", Help: "Orders placed, by initial status.",
		}, []string{"status"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wholesale", Name: "order_transitions_total", Help: "Order status transitions, by target status.",
		}, []string{"to"}),
		stockRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wholesale", Name: "stock_rejections_total", Help: "Deliveries rejected because stock would go negative.",
		}),
		unitsRestocked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wholesale", Name: "units_restocked_total", Help: "Units added by restock.",
		}),
		unitsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wholesale", Name: "units_delivered_total", Help: "Units removed from stock by delivery.",
		}),
		riderAlerts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wholesale", Name: "rider_alerts_total", Help: "Assignment alerts raised to riders.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wholesale", Name: "http_requests_total", Help: "HTTP requests, by route and status code.",
		}, []string{"route", "code"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ordersPlaced, m.transitions, m.stockRejections,
		m.unitsRestocked, m.unitsDelivered, m.riderAlerts, m.httpRequests,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) OrderPlaced(status string) {
	if m == nil {
		return
	}
	m.ordersPlaced.WithLabelValues(status).Inc()
}

func (m *Metrics) Transition(to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(to).Inc()
}

func (m *Metrics) StockRejected() {
	if m == nil {
		return
	}
	m.stockRejections.Inc()
}

func (m *Metrics) Restocked(units int64) {
	if m == nil {
		return
	}
	m.unitsRestocked.Add(float64(units))
}

func (m *Metrics) Delivered(units int64) {
	if m == nil {
		return
	}
	m.unitsDelivered.Add(float64(units))
}

func (m *Metrics) RiderAlert() {
	if m == nil {
		return
	}
	m.riderAlerts.Inc()
}

func (m *Metrics) Request(route, code string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, code).Inc()
}

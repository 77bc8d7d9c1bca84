package stubapi

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes request counters for the stub backend.
type Metrics struct {
	requestsTotal *prometheus.CounterVec
	bookingsTotal *prometheus.CounterVec
}

// NewMetrics registers the stub backend metrics on reg, falling back to the
// default registerer when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cleanbook",
			Subsystem: "stubapi",
			Name:      "requests_total",
			Help:      "Total HTTP requests served by the stub backend",
		}, []string{"route", "status"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cleanbook",
			Subsystem: "stubapi",
			Name:      "bookings_total",
			Help:      "Bookings created or replayed by the stub backend",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.bookingsTotal)
	return m
}

func (m *Metrics) observeRequest(route, status string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(route, status).Inc()
}

func (m *Metrics) observeBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

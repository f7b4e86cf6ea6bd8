package metrics

import (
	"github.com/metinatakli/cinema-booking/internal/seating"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors of the booking service.
type Metrics struct {
	// seat registry mutations (kind: held/released/booked, reason)
	SeatEventsTotal *prometheus.CounterVec

	// finalization attempts (status: completed, conflict, failed, aborted)
	BookingsTotal *prometheus.CounterVec

	// HTTP requests (method, route, status_code)
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency (method, route)
	HTTPRequestDuration *prometheus.HistogramVec

	reg prometheus.Registerer
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SeatEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seat_events_total",
				Help: "Total number of seat hold registry mutations",
			},
			[]string{"kind", "reason"},
		),
		BookingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookings_total",
				Help: "Total number of booking finalization attempts",
			},
			[]string{"status"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		reg: reg,
	}

	reg.MustRegister(
		m.SeatEventsTotal,
		m.BookingsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)

	return m
}

// OnSeatEvent counts one registry mutation per seat.
func (m *Metrics) OnSeatEvent(e seating.Event) {
	m.SeatEventsTotal.
		WithLabelValues(e.Kind.String(), string(e.Reason)).
		Add(float64(len(e.SeatIDs)))
}

// RegisterGauges exposes the number of live holds and open realtime
// connections, read at scrape time.
func (m *Metrics) RegisterGauges(holds, connections func() int) {
	m.reg.MustRegister(
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "seat_holds_active",
				Help: "Current number of seats held in the registry",
			},
			func() float64 { return float64(holds()) },
		),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "realtime_connections_active",
				Help: "Current number of open realtime connections",
			},
			func() float64 { return float64(connections()) },
		),
	)
}

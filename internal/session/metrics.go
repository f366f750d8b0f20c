package session

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"Yakebda/internal/checkout"
	"Yakebda/internal/store"
)

// Metrics are the domain collectors. A nil *Metrics records nothing.
type Metrics struct {
	Mutations          *prometheus.CounterVec
	Items              prometheus.Gauge
	OrdersFinalized    prometheus.Counter
	Expirations        prometheus.Counter
	ValidationFailures *prometheus.CounterVec
	StoreFailures      *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cart_mutations_total",
				Help: "Successful cart mutations",
			},
			[]string{"op"},
		),
		Items: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cart_items",
			Help: "Units currently in the cart",
		}),
		OrdersFinalized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_finalized_total",
			Help: "Orders placed",
		}),
		Expirations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cart_expirations_total",
			Help: "Orders cleared after their TTL",
		}),
		ValidationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_validation_failures_total",
				Help: "Rejected checkout attempts",
			},
			[]string{"code"},
		),
		StoreFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "store_failures_total",
				Help: "Failed store operations",
			},
			[]string{"op"},
		),
	}

	reg.MustRegister(m.Mutations, m.Items, m.OrdersFinalized, m.Expirations, m.ValidationFailures, m.StoreFailures)
	return m
}

func (m *Metrics) mutation(op string, items int) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(op).Inc()
	m.Items.Set(float64(items))
}

func (m *Metrics) items(n int) {
	if m == nil {
		return
	}
	m.Items.Set(float64(n))
}

func (m *Metrics) orderFinalized() {
	if m == nil {
		return
	}
	m.OrdersFinalized.Inc()
}

func (m *Metrics) expired() {
	if m == nil {
		return
	}
	m.Expirations.Inc()
}

func (m *Metrics) observeErr(err error) {
	if m == nil || err == nil {
		return
	}

	var verr *checkout.ValidationError
	if errors.As(err, &verr) {
		m.ValidationFailures.WithLabelValues(string(verr.Code)).Inc()
		return
	}

	var serr *store.StorageError
	if errors.As(err, &serr) {
		m.StoreFailures.WithLabelValues(serr.Op).Inc()
	}
}

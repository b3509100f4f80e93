package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	KindProduct = "product"
	KindService = "service"
)

// SettlementMetrics counts settlement lifecycle events. A nil receiver is a no-op.
type SettlementMetrics struct {
	ordersCreated       *prometheus.CounterVec
	stockRejections     prometheus.Counter
	paymentsInitiated   *prometheus.CounterVec
	webhookOutcomes     *prometheus.CounterVec
	escrowReleased      prometheus.Counter
	escrowReleaseDenied *prometheus.CounterVec
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	m := &SettlementMetrics{
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders and bookings created.",
		}, []string{"kind"}),
		stockRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_out_of_stock_total",
			Help: "Product orders rejected for insufficient stock.",
		}),
		paymentsInitiated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_initiated_total",
			Help: "Hosted checkout sessions initiated.",
		}, []string{"kind"}),
		webhookOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_webhook_notifications_total",
			Help: "Gateway notifications by outcome.",
		}, []string{"outcome"}),
		escrowReleased: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "escrow_released_total",
			Help: "Escrow payments released to providers.",
		}),
		escrowReleaseDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "escrow_release_denied_total",
			Help: "Escrow release attempts rejected by precondition.",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.ordersCreated, m.stockRejections, m.paymentsInitiated, m.webhookOutcomes, m.escrowReleased, m.escrowReleaseDenied)
	return m
}

func (m *SettlementMetrics) IncOrderCreated(kind string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (m *SettlementMetrics) IncOutOfStock() {
	if m == nil || m.stockRejections == nil {
		return
	}
	m.stockRejections.Inc()
}

func (m *SettlementMetrics) IncPaymentInitiated(kind string) {
	if m == nil || m.paymentsInitiated == nil {
		return
	}
	m.paymentsInitiated.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncWebhook records a notification outcome such as applied, duplicate or invalid_signature.
func (m *SettlementMetrics) IncWebhook(outcome string) {
	if m == nil || m.webhookOutcomes == nil {
		return
	}
	m.webhookOutcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *SettlementMetrics) IncEscrowReleased() {
	if m == nil || m.escrowReleased == nil {
		return
	}
	m.escrowReleased.Inc()
}

func (m *SettlementMetrics) IncEscrowReleaseDenied(reason string) {
	if m == nil || m.escrowReleaseDenied == nil {
		return
	}
	m.escrowReleaseDenied.WithLabelValues(normalizeLabel(reason)).Inc()
}

// Handler exposes the gatherer in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

package metrics

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestSettlementMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSettlementMetrics(reg)
	m.IncOrderCreated(KindProduct)
	m.IncOrderCreated(KindProduct)
	m.IncOrderCreated(KindService)
	m.IncPaymentInitiated(KindService)
	m.IncWebhook("applied")
	m.IncWebhook("invalid_signature")
	m.IncEscrowReleased()
	m.IncEscrowReleaseDenied("")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "orders_created_total", "kind", KindProduct); err != nil {
		t.Fatalf("fetch orders: %v", err)
	} else if got != 2 {
		t.Fatalf("expected product orders=2, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "payment_webhook_notifications_total", "outcome", "invalid_signature"); err != nil {
		t.Fatalf("fetch webhook: %v", err)
	} else if got != 1 {
		t.Fatalf("expected invalid_signature=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "escrow_release_denied_total", "reason", "unknown"); err != nil {
		t.Fatalf("fetch denied: %v", err)
	} else if got != 1 {
		t.Fatalf("expected empty reason normalized to unknown, got %f", got)
	}
	if mf := findMetricFamily(mfs, "escrow_released_total"); mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("expected escrow_released_total=1")
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var s *SettlementMetrics
	s.IncOrderCreated(KindProduct)
	s.IncWebhook("applied")
	s.IncEscrowReleased()

	var o *OutboxMetrics
	o.ObserveBatch(time.Second)
	o.IncPublished("order_placed")

	NewSettlementMetrics(nil).IncOutOfStock()
}

func TestOutboxMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.ObserveBatch(250 * time.Millisecond)
	m.IncPublished("payment_received")
	m.IncFailed("payment_received")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_events_published_total", "event_type", "payment_received"); err != nil || got != 1 {
		t.Fatalf("expected published=1, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_events_failed_total", "event_type", "payment_received"); err != nil || got != 1 {
		t.Fatalf("expected failed=1, got %f err=%v", got, err)
	}
	mf := findMetricFamily(mfs, "outbox_batch_duration_seconds")
	if mf == nil || mf.GetMetric()[0].GetHistogram().GetSampleSum() <= 0 {
		t.Fatalf("expected batch duration sum > 0")
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewSettlementMetrics(reg).IncOrderCreated(KindService)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `orders_created_total{kind="service"} 1`) {
		t.Fatalf("metrics output missing counter: %s", rec.Body.String())
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}

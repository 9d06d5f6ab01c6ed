package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type VendingMetrics struct {
	vouchersCreated  prometheus.Counter
	vouchersRedeemed *prometheus.CounterVec
	progressIncr     prometheus.Counter
	reportsPurchased *prometheus.CounterVec
	earningsClaimed  prometheus.Counter
	escrowRemaining  *prometheus.GaugeVec
}

var (
	vendingOnce     sync.Once
	vendingRegistry *VendingMetrics
)

func Vending() *VendingMetrics {
	vendingOnce.Do(func() {
		vendingRegistry = &VendingMetrics{
			vouchersCreated: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "solvend_vouchers_created_total",
				Help: "Count of purchase vouchers created by the backend authority.",
			}),
			vouchersRedeemed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "solvend_vouchers_redeemed_total",
				Help: "Count of vouchers redeemed at dispense time, by free flag.",
			}, []string{"free"}),
			progressIncr: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "solvend_progress_increments_total",
				Help: "Count of loyalty progress increments.",
			}),
			reportsPurchased: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "solvend_reports_purchased_total",
				Help: "Count of report purchases by kind.",
			}, []string{"kind"}),
			earningsClaimed: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "solvend_earnings_claims_total",
				Help: "Count of settled earnings claims.",
			}),
			escrowRemaining: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "solvend_report_escrow_remaining",
				Help: "Remaining distributable amount per report.",
			}, []string{"report"}),
		}
		prometheus.MustRegister(
			vendingRegistry.vouchersCreated,
			vendingRegistry.vouchersRedeemed,
			vendingRegistry.progressIncr,
			vendingRegistry.reportsPurchased,
			vendingRegistry.earningsClaimed,
			vendingRegistry.escrowRemaining,
		)
	})
	return vendingRegistry
}

func (m *VendingMetrics) ObserveVoucherCreated() {
	if m == nil {
		return
	}
	m.vouchersCreated.Inc()
}

func (m *VendingMetrics) ObserveVoucherRedeemed(free string) {
	if m == nil {
		return
	}
	if free == "" {
		free = "false"
	}
	m.vouchersRedeemed.WithLabelValues(free).Inc()
}

func (m *VendingMetrics) ObserveProgressIncrement() {
	if m == nil {
		return
	}
	m.progressIncr.Inc()
}

func (m *VendingMetrics) ObserveReportPurchased(kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.reportsPurchased.WithLabelValues(kind).Inc()
}

func (m *VendingMetrics) ObserveEarningsClaimed() {
	if m == nil {
		return
	}
	m.earningsClaimed.Inc()
}

func (m *VendingMetrics) SetEscrowRemaining(report string, amount float64) {
	if m == nil {
		return
	}
	m.escrowRemaining.WithLabelValues(report).Set(amount)
}

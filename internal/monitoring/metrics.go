package monitoring

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moneypro_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPResponseTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moneypro_http_response_time_seconds",
			Help:    "Histogram of response times",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moneypro_settlements_total",
			Help: "Settlement operations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	CommissionsPaidTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moneypro_commissions_paid_total",
			Help: "Referral commissions paid by level",
		},
		[]string{"level"},
	)

	CommissionAmountTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moneypro_commission_amount_total",
			Help: "Sum of referral commission amounts paid by level",
		},
		[]string{"level"},
	)

	ProfitAccrualsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moneypro_profit_accruals_total",
			Help: "Investment accrual runs by outcome",
		},
		[]string{"outcome"},
	)
)

// ObserveSettlement counts one settlement attempt. A nil error counts as success.
func ObserveSettlement(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	SettlementsTotal.WithLabelValues(operation, outcome).Inc()
}

// ObserveCommission counts a paid commission and its amount.
func ObserveCommission(level int, amount decimal.Decimal) {
	l := strconv.Itoa(level)
	CommissionsPaidTotal.WithLabelValues(l).Inc()
	f, _ := amount.Float64()
	CommissionAmountTotal.WithLabelValues(l).Add(f)
}

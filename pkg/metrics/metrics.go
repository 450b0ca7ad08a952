package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the ledger core.
type Metrics struct {
	EarningsPaid        prometheus.Counter
	EarningsUnvalidated prometheus.Counter
	EarningsFailed      prometheus.Counter
	CallbacksProcessed  *prometheus.CounterVec
	GatewayErrors       *prometheus.CounterVec
	InvestmentsCreated  prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		EarningsPaid: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "xotc",
			Subsystem: "earnings",
			Name:      "paid_total",
			Help:      "Scheduled earnings paid into wallets",
		}),
		EarningsUnvalidated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "xotc",
			Subsystem: "earnings",
			Name:      "unvalidated_total",
			Help:      "Scheduled earnings retired without payout",
		}),
		EarningsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "xotc",
			Subsystem: "earnings",
			Name:      "failed_total",
			Help:      "Scheduled earnings whose processing failed",
		}),
		CallbacksProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xotc",
			Subsystem: "gateway",
			Name:      "callbacks_total",
			Help:      "Gateway callbacks processed",
		}, []string{"purpose", "status"}),
		GatewayErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xotc",
			Subsystem: "gateway",
			Name:      "errors_total",
			Help:      "Failed calls to the payment gateway",
		}, []string{"operation"}),
		InvestmentsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "xotc",
			Subsystem: "investments",
			Name:      "created_total",
			Help:      "Investment purchases committed",
		}),
	}
}

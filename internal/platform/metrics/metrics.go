// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moneybox_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "moneybox_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})

	TransactionsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moneybox_transactions_recorded_total",
		Help: "Money box ledger rows written, labeled by type and operation status",
	}, []string{"type", "status"})

	Conversions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moneybox_currency_conversions_total",
		Help: "Currency conversions performed, labeled by provenance",
	}, []string{"provenance"})

	CompensationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "moneybox_compensation_failures_total",
		Help: "Failed operations whose compensating entry could not be written either",
	})

	DebtSettlements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moneybox_debt_settlements_total",
		Help: "Debt payments committed, labeled by mode (single or fifo) and payment method",
	}, []string{"mode", "method"})

	DebtSettledAmount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "moneybox_debt_settled_amount_total",
		Help: "Sum of debt amounts settled, in base currency units",
	})
)

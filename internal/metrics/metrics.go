// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

// Package metrics provides prometheus collectors of the rune transaction pipeline.
//
// Usage:
//
//	metrics.Register(prometheus.DefaultRegisterer, logger)
//	server := metrics.StartServer(":9100", prometheus.DefaultGatherer, logger)
//	defer server.Stop(context.Background())
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const namespace = "runesmith"

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var (
	// CoinPollsTotal counts coin source queries made while awaiting funds.
	CoinPollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "coinsource",
			Name:      "polls_total",
			Help:      "Total number of spendable coins queries while awaiting funds",
		},
		[]string{"status"}, // success, error, empty.
	)

	// BroadcastAttemptsTotal counts transaction submissions per endpoint.
	BroadcastAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcaster",
			Name:      "attempts_total",
			Help:      "Total number of transaction submissions per endpoint",
		},
		[]string{"endpoint", "status"},
	)

	// FlowsTotal counts executed rune operations.
	FlowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "executions_total",
			Help:      "Total number of rune operation flows",
		},
		[]string{"operation", "status"},
	)

	// FlowDuration observes rune operation flow duration.
	FlowDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "duration_seconds",
			Help:      "Time taken to build, sign and broadcast a rune operation",
			Buckets:   []float64{.1, .5, 1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"operation"},
	)

	// TransactionFeeSatoshi observes fees of assembled transactions.
	TransactionFeeSatoshi = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "txbuilder",
			Name:      "fee_satoshi",
			Help:      "Fee of assembled transactions in satoshi",
			Buckets:   prometheus.ExponentialBuckets(100, 2, 12),
		},
	)
)

// Collectors returns every collector of the package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{CoinPollsTotal, BroadcastAttemptsTotal, FlowsTotal, FlowDuration, TransactionFeeSatoshi}
}

// Register registers collectors, already registered ones are skipped.
func Register(registerer prometheus.Registerer, logger logrus.FieldLogger) {
	for _, collector := range Collectors() {
		if err := registerer.Register(collector); err != nil {
			var alreadyRegErr prometheus.AlreadyRegisteredError
			if errors.As(err, &alreadyRegErr) {
				logger.Debug("collector already registered")
				continue
			}

			logger.WithError(err).Error("failed to register collector")
		}
	}
}

// Status returns status label value of the operation result.
func Status(err error) string {
	if err != nil {
		return StatusError
	}

	return StatusSuccess
}

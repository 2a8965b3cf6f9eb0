// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package coinsource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/BoostyLabs/runesmith/bitcoin"
	"github.com/BoostyLabs/runesmith/internal/metrics"
)

// DefaultPollInterval defines interval between coin source queries.
const DefaultPollInterval = 5 * time.Second

// StatusSource provides transaction confirmation state.
type StatusSource interface {
	TxStatus(ctx context.Context, txID string) (bitcoin.CoinStatus, error)
	TipHeight(ctx context.Context) (uint64, error)
}

// AwaitParams defines polling parameters.
type AwaitParams struct {
	// PollInterval is a delay before every query, DefaultPollInterval if zero.
	PollInterval time.Duration
	// Timeout bounds the whole wait, unbounded if zero.
	Timeout time.Duration
	// MaxFailures is a number of consecutive failed queries after which waiting stops, unbounded if zero.
	MaxFailures int
	// Filter selects acceptable coins, every coin with non zero amount if nil.
	Filter func(bitcoin.Coin) bool
	Logger logrus.FieldLogger
}

// AwaitSpendable polls the lister until it returns acceptable coins for the address.
// The first query is made after one interval. Failed queries are logged and retried.
// Returns bitcoin.ErrTimeout when the wait expires and ctx cause when ctx is canceled.
func AwaitSpendable(ctx context.Context, lister Lister, address string, params AwaitParams) ([]bitcoin.Coin, error) {
	filter := params.Filter
	if filter == nil {
		filter = func(coin bitcoin.Coin) bool { return coin.Amount > 0 }
	}

	var (
		logger = loggerOrDefault(params.Logger).WithField("address", address)
		found  []bitcoin.Coin
	)
	err := poll(ctx, params, logger, func(ctx context.Context) (bool, error) {
		coins, err := lister.ListSpendable(ctx, address)
		if err != nil {
			metrics.CoinPollsTotal.WithLabelValues(metrics.StatusError).Inc()
			return false, err
		}

		found = found[:0]
		for _, coin := range coins {
			if filter(coin) {
				found = append(found, coin)
			}
		}

		if len(found) == 0 {
			metrics.CoinPollsTotal.WithLabelValues("empty").Inc()
			logger.Debug("no spendable coins yet")
			return false, nil
		}

		metrics.CoinPollsTotal.WithLabelValues(metrics.StatusSuccess).Inc()
		logger.WithFields(logrus.Fields{"coins": len(found), "amount": bitcoin.TotalAmount(found)}).Info("spendable coins found")

		return true, nil
	})
	if err != nil {
		return nil, err
	}

	return found, nil
}

// AwaitConfirmations polls the transaction status until it has the required number of confirmations.
// Returns immediately when confirmations is zero.
func AwaitConfirmations(ctx context.Context, source StatusSource, txID string, confirmations uint64, params AwaitParams) (bitcoin.CoinStatus, error) {
	var (
		logger = loggerOrDefault(params.Logger).WithField("txid", txID)
		status bitcoin.CoinStatus
	)
	if confirmations == 0 {
		return status, nil
	}

	err := poll(ctx, params, logger, func(ctx context.Context) (bool, error) {
		var err error
		if status, err = source.TxStatus(ctx, txID); err != nil {
			return false, err
		}

		if !status.Confirmed {
			logger.Debug("transaction is unconfirmed")
			return false, nil
		}

		tip, err := source.TipHeight(ctx)
		if err != nil {
			return false, err
		}

		got := bitcoin.Coin{Status: status}.Confirmations(tip)
		logger.WithFields(logrus.Fields{"confirmations": got, "required": confirmations}).Debug("transaction confirmed")

		return got >= confirmations, nil
	})

	return status, err
}

// poll calls check on every tick until it reports done. Check errors are logged and
// count as consecutive failures. Ticker and timeout are released on every return.
func poll(ctx context.Context, params AwaitParams, logger logrus.FieldLogger, check func(ctx context.Context) (bool, error)) error {
	interval := params.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	if params.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, params.Timeout)
		defer cancel()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var (
		start    = time.Now()
		failures = 0
	)
	for {
		select {
		case <-ctx.Done():
			return contextError(ctx, start)
		case <-ticker.C:
		}

		done, err := check(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return contextError(ctx, start)
		case err != nil:
			failures++
			logger.WithError(err).WithField("failures", failures).Warn("poll failed")
			if params.MaxFailures > 0 && failures >= params.MaxFailures {
				if !errors.Is(err, bitcoin.ErrNetwork) {
					err = fmt.Errorf("%w: %w", bitcoin.ErrNetwork, err)
				}

				return fmt.Errorf("%d consecutive failures: %w", failures, err)
			}
		case done:
			return nil
		default:
			failures = 0
		}
	}
}

// contextError maps deadline expiration to bitcoin.ErrTimeout, cancellation to its cause.
func contextError(ctx context.Context, start time.Time) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: gave up after %s", bitcoin.ErrTimeout, time.Since(start).Round(time.Millisecond))
	}

	return context.Cause(ctx)
}

func loggerOrDefault(logger logrus.FieldLogger) logrus.FieldLogger {
	if logger == nil {
		return logrus.StandardLogger()
	}

	return logger
}

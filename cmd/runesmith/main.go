// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/BoostyLabs/runesmith/bitcoin/broadcaster"
	"github.com/BoostyLabs/runesmith/bitcoin/coinsource"
	"github.com/BoostyLabs/runesmith/bitcoin/ord/runes"
	"github.com/BoostyLabs/runesmith/bitcoin/runeflow"
	"github.com/BoostyLabs/runesmith/bitcoin/signer"
	"github.com/BoostyLabs/runesmith/internal/metrics"
	"github.com/BoostyLabs/runesmith/internal/reservation"
)

// application holds resources shared by commands.
type application struct {
	ctx    context.Context
	cfg    Config
	params *chaincfg.Params
	key    *signer.KeySigner
	logger *logrus.Logger

	closers []func() error
}

func main() {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, using environment")
	}

	cfg, err := newConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Fatalf("invalid log level: %v", err)
	}
	logger.SetLevel(level)

	params, err := cfg.params()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	wif, err := cfg.wif(params)
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &application{
		ctx:    ctx,
		cfg:    cfg,
		params: params,
		key:    signer.NewKeySigner(wif.PrivKey),
		logger: logger,
	}
	defer app.close()

	if cfg.MetricsAddr != "" {
		registry := prometheus.NewRegistry()
		metrics.Register(registry, logger)
		metricsServer := metrics.StartServer(cfg.MetricsAddr, registry, logger)
		app.closers = append(app.closers, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			return metricsServer.Stop(ctx)
		})
	}

	parser := flags.NewParser(newOptions(app), flags.Default)
	if _, err = parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}

		app.close()
		os.Exit(1)
	}
}

// service creates rune flow service with persistent reservations.
func (app *application) service() (*runeflow.Service, error) {
	var ledger reservation.Ledger = reservation.NewMemory()
	if app.cfg.LedgerPath != "" {
		bolt, err := reservation.OpenBolt(app.cfg.LedgerPath)
		if err != nil {
			return nil, err
		}

		app.closers = append(app.closers, bolt.Close)
		ledger = bolt
	}

	return runeflow.NewService(
		app.cfg.flowConfig(app.params),
		app.key,
		runes.Encoder{},
		coinsource.NewClient(app.cfg.EsploraURL, nil, app.logger),
		broadcaster.New(nil, app.logger),
		ledger,
		app.logger,
	)
}

// close releases resources in reverse order.
func (app *application) close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Errorf("failed to close: %v", err)
		}
	}

	app.closers = nil
}
